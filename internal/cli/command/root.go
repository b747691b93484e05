package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/connection"
	"github.com/yndnr/respkv/internal/cli/output"
	"github.com/yndnr/respkv/internal/infra/buildinfo"
)

const connMgrKey = "connMgr"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "respkv-cli",
		Usage:   "command-line client for respkv",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			PingCommand(),
			EchoCommand(),
			GetCommand(),
			SetCommand(),
			ClientCommand(),
			ExecCommand(),
			ReplCommand(),
		},
		Before: func(c *cli.Context) error {
			flags, err := ParseGlobalFlags(c)
			if err != nil {
				return err
			}
			c.App.Metadata[connMgrKey] = connection.NewManager(
				connection.WithTimeout(flags.Timeout),
				connection.WithLibInfo(connection.DefaultLibName, buildinfo.Version),
			)
			return nil
		},
		After: func(c *cli.Context) error {
			if mgr := GetConnectionManager(c); mgr != nil {
				return mgr.Disconnect()
			}
			return nil
		},
		Action: replAction,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "addr",
			Aliases: []string{"a"},
			Usage:   "respkv server address",
			EnvVars: []string{"RESPKV_ADDR"},
			Value:   "127.0.0.1:6379",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "dial and per-command timeout",
			Value: connection.DefaultTimeout,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: text, json, yaml",
			Value:   string(output.FormatText),
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Addr    string
	Timeout time.Duration
	Output  output.Format
}

// ParseGlobalFlags extracts and validates global flags from context.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return nil, err
	}
	return &GlobalFlags{
		Addr:    c.String("addr"),
		Timeout: c.Duration("timeout"),
		Output:  format,
	}, nil
}

// GetConnectionManager retrieves the connection manager from context.
func GetConnectionManager(c *cli.Context) *connection.Manager {
	if mgr, ok := c.App.Metadata[connMgrKey].(*connection.Manager); ok {
		return mgr
	}
	return nil
}

// EnsureConnected returns the current client, dialing the server first if
// needed.
func EnsureConnected(c *cli.Context) (*connection.Client, error) {
	mgr := GetConnectionManager(c)
	if mgr == nil {
		return nil, fmt.Errorf("connection manager not initialized")
	}
	if cl := mgr.Current(); cl != nil {
		return cl, nil
	}
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return nil, err
	}
	return mgr.Connect(contextOf(c), flags.Addr)
}

// do runs one command and turns an error reply into an error.
func do(c *cli.Context, args ...string) (connection.Reply, error) {
	cl, err := EnsureConnected(c)
	if err != nil {
		return connection.Reply{}, err
	}
	reply, err := cl.Do(contextOf(c), args...)
	if err != nil {
		return connection.Reply{}, err
	}
	return reply, reply.Err()
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	return output.NewFormatter(flags.Output).Format(c.App.Writer, data)
}

func contextOf(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}

// requireArgs checks the positional argument count.
func requireArgs(c *cli.Context, minArgs, maxArgs int) error {
	n := c.NArg()
	if n < minArgs || (maxArgs >= 0 && n > maxArgs) {
		return fmt.Errorf("usage: %s %s", c.Command.HelpName, c.Command.ArgsUsage)
	}
	return nil
}
