package main

import (
	"context"
	"errors"

	"github.com/nibrivia/dbgraph/databases/sqlite"
	"github.com/nibrivia/dbgraph/report"
	"github.com/urfave/cli/v3"
)

// ErrNoSQLitePath is returned when inspect has no database file to read.
var ErrNoSQLitePath = errors.New("no sqlite database given (use --sqlite or sqlite.path in .dbgraph.yaml)")

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Build the graph from a SQLite database, then plan or export it",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "sqlite",
				Usage:   "path to the SQLite database file",
				Sources: cli.EnvVars("DBGRAPH_SQLITE"),
			},
			&cli.BoolFlag{
				Name:  "qualify",
				Usage: "name fields table.column instead of column",
			},
			wantFlag(false),
		}, outputFlags()...),
		Action: runInspect,
	}
}

func runInspect(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	path := firstNonEmpty(cmd.String("sqlite"), s.cfg.SQLitePath())
	if path == "" {
		return ErrNoSQLitePath
	}

	qualify := cmd.Bool("qualify")
	if !cmd.IsSet("qualify") && s.cfg.SQLite != nil {
		qualify = s.cfg.SQLite.Qualify
	}

	conn, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	db, err := s.newDatabase()
	if err != nil {
		return err
	}

	if err := sqlite.New(conn, sqlite.WithQualifiedNames(qualify)).IntrospectSchema(ctx, db); err != nil {
		return err
	}

	wants := cmd.StringSlice("want")
	if len(wants) == 0 {
		f, err := s.formatter(cmd, report.FormatCSV)
		if err != nil {
			return err
		}

		return f.FormatExport(report.BuildExport(db))
	}

	if err := plan(db, wants); err != nil {
		return err
	}

	f, err := s.formatter(cmd, report.FormatText)
	if err != nil {
		return err
	}

	return f.FormatPlan(report.BuildPlan(db))
}
