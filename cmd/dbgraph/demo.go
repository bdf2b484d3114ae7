package main

import (
	"context"
	_ "embed"

	"github.com/nibrivia/dbgraph"
	"github.com/nibrivia/dbgraph/report"
	"github.com/urfave/cli/v3"
)

//go:embed demo.yaml
var demoSchema []byte

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Plan against a built-in users/lessons/courses schema",
		Flags: append([]cli.Flag{
			&cli.StringSliceFlag{
				Name:    "want",
				Aliases: []string{"w"},
				Usage:   "field or expression to plan for",
				Value:   []string{"course_name"},
			},
			&cli.BoolFlag{
				Name:  "schema",
				Usage: "print the demo schema as YAML instead of planning",
			},
		}, outputFlags()...),
		Action: runDemo,
	}
}

func runDemo(_ context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	db, err := demoDatabase(s)
	if err != nil {
		return err
	}

	if cmd.Bool("schema") {
		return dbgraph.WriteSchema(s.stdout, db)
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

func demoDatabase(s *session) (*dbgraph.Database, error) {
	sf, err := dbgraph.ParseSchema(demoSchema)
	if err != nil {
		return nil, err
	}

	db, err := s.newDatabase()
	if err != nil {
		return nil, err
	}

	if err := sf.Apply(db); err != nil {
		return nil, err
	}

	return db, nil
}
