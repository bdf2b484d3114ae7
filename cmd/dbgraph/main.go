// Command dbgraph plans which tables and fields a set of output fields depends on.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "dbgraph:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "dbgraph",
		Usage: "Plan which tables and fields are needed to produce a set of fields",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to .dbgraph.yaml (default: search upwards from the working directory)",
				Sources: cli.EnvVars("DBGRAPH_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log every state promotion to stderr",
			},
		},
		Commands: []*cli.Command{
			planCommand(),
			exportCommand(),
			demoCommand(),
			inspectCommand(),
		},
	}
}
