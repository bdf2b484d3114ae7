package main

import (
	"context"

	"github.com/nibrivia/dbgraph"
	"github.com/nibrivia/dbgraph/report"
	"github.com/urfave/cli/v3"
)

func planCommand() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "Show which tables and fields are needed for the wanted fields",
		ArgsUsage: "[schema files or directories...]",
		Flags:     append([]cli.Flag{wantFlag(true)}, outputFlags()...),
		Action:    runPlan,
	}
}

func runPlan(_ context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	paths, err := s.schemaPaths(cmd)
	if err != nil {
		return err
	}

	db, err := s.newDatabase()
	if err != nil {
		return err
	}

	if err := dbgraph.LoadSchemas(db, paths); err != nil {
		return err
	}

	if err := plan(db, cmd.StringSlice("want")); err != nil {
		return err
	}

	f, err := s.formatter(cmd, report.FormatText)
	if err != nil {
		return err
	}

	return f.FormatPlan(report.BuildPlan(db))
}
