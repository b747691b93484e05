package command

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/output"
	"github.com/yndnr/respkv/internal/cli/repl"
)

// ReplCommand returns the interactive command.
func ReplCommand() *cli.Command {
	return &cli.Command{
		Name:   "repl",
		Usage:  "Start an interactive session (default)",
		Flags:  replFlags(),
		Action: replAction,
	}
}

func replFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "history-file",
			Usage:   "history file; empty keeps history in memory",
			EnvVars: []string{"RESPKV_HISTORY_FILE"},
			Value:   repl.DefaultHistoryFile(),
		},
	}
}

func replAction(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	if _, err := EnsureConnected(c); err != nil {
		return err
	}

	formatter := output.NewFormatter(flags.Output)
	exec := func(ctx context.Context, args []string) error {
		cl, err := EnsureConnected(c)
		if err != nil {
			return err
		}
		reply, err := cl.Do(ctx, args...)
		if err != nil {
			// Reconnect on the next command.
			_ = GetConnectionManager(c).Disconnect()
			return err
		}
		return formatter.Format(c.App.Writer, reply)
	}

	// The root action has no history-file flag of its own.
	historyFile := repl.DefaultHistoryFile()
	if c.Command != nil && c.Command.Name == "repl" {
		historyFile = c.String("history-file")
	}

	r := repl.New(exec,
		repl.WithIO(c.App.Reader, c.App.Writer),
		repl.WithHistory(repl.NewHistory(historyFile)),
		repl.WithPrompt(func() string { return flags.Addr + "> " }),
	)
	return r.Run(contextOf(c))
}
