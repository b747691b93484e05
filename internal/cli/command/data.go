package command

import (
	"strconv"

	"github.com/urfave/cli/v2"
)

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:      "ping",
		Usage:     "Check that the server answers",
		ArgsUsage: "[MESSAGE]",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 0, 1); err != nil {
				return err
			}
			return runAndRender(c, append([]string{"PING"}, c.Args().Slice()...)...)
		},
	}
}

// EchoCommand returns the echo command.
func EchoCommand() *cli.Command {
	return &cli.Command{
		Name:      "echo",
		Usage:     "Echo a message back from the server",
		ArgsUsage: "MESSAGE",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1, 1); err != nil {
				return err
			}
			return runAndRender(c, "ECHO", c.Args().First())
		},
	}
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Get the value of a key",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1, 1); err != nil {
				return err
			}
			return runAndRender(c, "GET", c.Args().First())
		},
	}
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set a key, optionally with a time to live",
		ArgsUsage: "KEY VALUE [--px MS]",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "px",
				Usage: "expire after this many milliseconds",
			},
		},
		Action: func(c *cli.Context) error {
			args := c.Args().Slice()
			px, hasPX := "", c.IsSet("px")
			if hasPX {
				px = strconv.FormatInt(c.Int64("px"), 10)
			}
			// urfave stops at the first positional, so accept a trailing --px too.
			if len(args) == 4 && (args[2] == "--px" || args[2] == "-px") {
				px, hasPX = args[3], true
				args = args[:2]
			}
			if len(args) != 2 {
				return requireArgs(c, 2, 2)
			}
			cmd := []string{"SET", args[0], args[1]}
			if hasPX {
				cmd = append(cmd, "PX", px)
			}
			return runAndRender(c, cmd...)
		},
	}
}

// ExecCommand returns the exec command, which sends arguments verbatim.
func ExecCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Usage:     "Send a raw command",
		ArgsUsage: "COMMAND [ARG...]",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1, -1); err != nil {
				return err
			}
			return runAndRender(c, c.Args().Slice()...)
		},
	}
}

func runAndRender(c *cli.Context, args ...string) error {
	reply, err := do(c, args...)
	if err != nil {
		return err
	}
	return render(c, reply)
}
