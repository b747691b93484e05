package repl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

type recorder struct {
	calls [][]string
	err   error
}

func (rec *recorder) exec(_ context.Context, args []string) error {
	rec.calls = append(rec.calls, args)
	return rec.err
}

func runREPL(t *testing.T, input string, rec *recorder, opts ...Option) string {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithIO(strings.NewReader(input), &out)}, opts...)
	r := New(rec.exec, opts...)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return out.String()
}

func TestREPL_Exit(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"exit command", "exit\nPING\n"},
		{"quit command", "QUIT\nPING\n"},
		{"EOF", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			runREPL(t, tt.input, rec)
			if len(rec.calls) != 0 {
				t.Errorf("executor called %d times, want 0", len(rec.calls))
			}
		})
	}
}

func TestREPL_ExecutesSplitLines(t *testing.T) {
	rec := &recorder{}
	runREPL(t, "\n\nSET k \"a b\"\nGET k\n", rec)

	want := [][]string{{"SET", "k", "a b"}, {"GET", "k"}}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("calls = %q, want %q", rec.calls, want)
	}
}

func TestREPL_LastLineWithoutNewline(t *testing.T) {
	rec := &recorder{}
	runREPL(t, "PING", rec)

	if len(rec.calls) != 1 || rec.calls[0][0] != "PING" {
		t.Errorf("calls = %q, want one PING", rec.calls)
	}
}

func TestREPL_QuitWithArgsIsSentToServer(t *testing.T) {
	rec := &recorder{}
	runREPL(t, "quit now\n", rec)

	if len(rec.calls) != 1 {
		t.Errorf("calls = %q, want quit forwarded", rec.calls)
	}
}

func TestREPL_ExecutorError(t *testing.T) {
	rec := &recorder{err: errors.New("connection reset")}
	out := runREPL(t, "PING\nPING\n", rec)

	if len(rec.calls) != 2 {
		t.Errorf("REPL should continue after errors, calls = %d", len(rec.calls))
	}
	if !strings.Contains(out, "Error: connection reset") {
		t.Errorf("output = %q, want error message", out)
	}
}

func TestREPL_InvalidQuotes(t *testing.T) {
	rec := &recorder{}
	out := runREPL(t, "SET k \"oops\n", rec)

	if len(rec.calls) != 0 {
		t.Error("executor should not run for unbalanced quotes")
	}
	if !strings.Contains(out, "Invalid argument(s)") {
		t.Errorf("output = %q", out)
	}
}

func TestREPL_Help(t *testing.T) {
	out := runREPL(t, "help client\nhelp zzz\n", &recorder{})

	if !strings.Contains(out, "CLIENT INFO") || !strings.Contains(out, "CLIENT SETINFO") {
		t.Errorf("help output missing CLIENT commands: %q", out)
	}
	if strings.Contains(out, "PING") {
		t.Errorf("help client should not list PING: %q", out)
	}
	if !strings.Contains(out, `no commands match "zzz"`) {
		t.Errorf("output = %q", out)
	}
}

func TestREPL_HistoryCommand(t *testing.T) {
	out := runREPL(t, "PING\nGET k\nhistory\n", &recorder{})

	if !strings.Contains(out, "    1  PING") || !strings.Contains(out, "    2  GET k") {
		t.Errorf("history output = %q", out)
	}
}

func TestREPL_Prompt(t *testing.T) {
	out := runREPL(t, "PING\n", &recorder{}, WithPrompt(func() string { return "127.0.0.1:6379> " }))

	if strings.Count(out, "127.0.0.1:6379> ") != 2 {
		t.Errorf("output = %q, want prompt before each read", out)
	}
}

func TestREPL_PersistsHistory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "history")
	if err := os.WriteFile(file, []byte("OLD\n"), 0600); err != nil {
		t.Fatal(err)
	}

	runREPL(t, "PING\n", &recorder{}, WithHistory(NewHistory(file)))

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "OLD\nPING\n" {
		t.Errorf("history file = %q, want %q", data, "OLD\nPING\n")
	}
}

func TestREPL_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	r := New(rec.exec, WithIO(strings.NewReader("PING\n"), &bytes.Buffer{}))
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(rec.calls) != 0 {
		t.Error("no command should run after cancellation")
	}
}
