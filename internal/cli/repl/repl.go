package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Executor runs one command line already split into arguments.
type Executor func(ctx context.Context, args []string) error

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	exec      Executor
	prompt    func() string
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO sets the input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input = in
		r.output = out
	}
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		r.history = h
	}
}

// WithPrompt sets a prompt function, evaluated before every line.
func WithPrompt(prompt func() string) Option {
	return func(r *REPL) {
		r.prompt = prompt
	}
}

// New creates a REPL that runs commands with exec.
func New(exec Executor, opts ...Option) *REPL {
	r := &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		exec:      exec,
		prompt:    func() string { return "respkv> " },
		completer: NewCompleter(),
		history:   NewHistory(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads lines until EOF, exit or ctx is done. History is loaded
// before the first line and saved on return.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.history.Load(); err != nil {
		fmt.Fprintf(r.output, "warning: load history: %v\n", err)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			fmt.Fprintf(r.output, "warning: save history: %v\n", err)
		}
	}()

	reader := bufio.NewReader(r.input)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(r.output, r.prompt())

		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		eof := err == io.EOF

		line = strings.TrimSpace(line)
		if line != "" {
			r.history.Add(line)
			if r.handle(ctx, line) {
				return nil
			}
		}

		if eof {
			fmt.Fprintln(r.output)
			return nil
		}
	}
}

// handle runs one line and reports whether the REPL should stop.
func (r *REPL) handle(ctx context.Context, line string) bool {
	args, err := SplitLine(line)
	if err != nil {
		fmt.Fprintf(r.output, "Invalid argument(s): %v\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	switch strings.ToLower(args[0]) {
	case "exit", "quit":
		if len(args) == 1 {
			return true
		}
	case "help":
		r.help(strings.Join(args[1:], " "))
		return false
	case "history":
		for i, e := range r.history.Entries() {
			fmt.Fprintf(r.output, "%5d  %s\n", i+1, e)
		}
		return false
	}

	if err := r.exec(ctx, args); err != nil {
		fmt.Fprintf(r.output, "Error: %v\n", err)
	}
	return false
}

func (r *REPL) help(prefix string) {
	matches := r.completer.Complete(prefix)
	if len(matches) == 0 {
		fmt.Fprintf(r.output, "no commands match %q\n", prefix)
		return
	}
	for _, m := range matches {
		fmt.Fprintln(r.output, m)
	}
}
