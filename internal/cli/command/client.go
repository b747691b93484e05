package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/output"
)

// ClientCommand returns the client command group.
func ClientCommand() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "Inspect and configure client connections",
		Subcommands: []*cli.Command{
			{
				Name:  "info",
				Usage: "Show this connection",
				Action: func(c *cli.Context) error {
					reply, err := do(c, "CLIENT", "INFO")
					if err != nil {
						return err
					}
					return render(c, output.ParseKeyValues(reply.Str))
				},
			},
			{
				Name:  "id",
				Usage: "Show this connection's id",
				Action: func(c *cli.Context) error {
					return runAndRender(c, "CLIENT", "ID")
				},
			},
			{
				Name:  "list",
				Usage: "List all connections",
				Action: func(c *cli.Context) error {
					reply, err := do(c, "CLIENT", "LIST")
					if err != nil {
						return err
					}
					return render(c, output.ParseKeyValueLines(reply.Str))
				},
			},
			{
				Name:  "setinfo",
				Usage: "Set the library name or version of this connection",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "lib-name", Usage: "library name"},
					&cli.StringFlag{Name: "lib-ver", Usage: "library version"},
				},
				Action: clientSetInfoAction,
			},
		},
	}
}

func clientSetInfoAction(c *cli.Context) error {
	args := []string{"CLIENT", "SETINFO"}
	for _, name := range []string{"lib-name", "lib-ver"} {
		if c.IsSet(name) {
			args = append(args, name, c.String(name))
		}
	}
	if len(args) == 2 {
		return fmt.Errorf("client setinfo: at least one of --lib-name or --lib-ver is required")
	}
	return runAndRender(c, args...)
}
