package main

import (
	"context"

	"github.com/nibrivia/dbgraph"
	"github.com/nibrivia/dbgraph/report"
	"github.com/urfave/cli/v3"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write one row per (table, field) pair",
		ArgsUsage: "[schema files or directories...]",
		Flags:     outputFlags(),
		Action:    runExport,
	}
}

func runExport(_ context.Context, cmd *cli.Command) error {
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

	f, err := s.formatter(cmd, report.FormatCSV)
	if err != nil {
		return err
	}

	return f.FormatExport(report.BuildExport(db))
}
