package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/nibrivia/dbgraph"
	"github.com/nibrivia/dbgraph/report"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Shared command errors.
var (
	ErrNoSchema  = errors.New("no schema files given (pass paths or set schemas in .dbgraph.yaml)")
	ErrNoTargets = errors.New("no target fields given (use --want)")
)

// session holds what every command needs: the loaded config and a logger.
type session struct {
	cfg     *dbgraph.Config
	logger  *zap.Logger
	stdout  io.Writer
	closers []io.Closer
}

func newSession(cmd *cli.Command) (*session, error) {
	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return nil, err
	}

	stdout := cmd.Root().Writer
	if stdout == nil {
		stdout = os.Stdout
	}

	return &session{cfg: cfg, logger: logger, stdout: stdout}, nil
}

// loadConfig loads an explicit config path, or searches upwards from the working
// directory. A missing config is not an error.
func loadConfig(path string) (*dbgraph.Config, error) {
	if path != "" {
		return dbgraph.LoadConfigFile(path)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}

	cfg, err := dbgraph.LoadConfig(cwd)
	if errors.Is(err, dbgraph.ErrConfigNotFound) {
		return &dbgraph.Config{}, nil
	}

	return cfg, err
}

func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)

	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return config.Build()
}

func (s *session) close() {
	for _, c := range s.closers {
		_ = c.Close()
	}

	_ = s.logger.Sync()
}

func (s *session) newDatabase() (*dbgraph.Database, error) {
	opts, err := s.cfg.Options()
	if err != nil {
		return nil, err
	}

	return dbgraph.New(append(opts, dbgraph.WithLogger(s.logger))...), nil
}

// schemaPaths returns the command arguments, or the configured schemas when none are given.
func (s *session) schemaPaths(cmd *cli.Command) ([]string, error) {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		paths = s.cfg.SchemaPaths()
	}

	if len(paths) == 0 {
		return nil, ErrNoSchema
	}

	return paths, nil
}

// formatter picks the output format (flag > config > fallback) and color mode.
func (s *session) formatter(cmd *cli.Command, fallback string) (report.Formatter, error) {
	format := firstNonEmpty(cmd.String("format"), s.cfg.Format, fallback)

	color, err := s.useColor(firstNonEmpty(cmd.String("color"), s.cfg.Color, dbgraph.ColorAuto))
	if err != nil {
		return nil, err
	}

	f, err := report.NewFormatter(format, s.stdout, color)
	if err != nil {
		return nil, err
	}

	if csvf, ok := f.(*report.CSVFormatter); ok {
		if path := cmd.String("detached"); path != "" {
			out, err := os.Create(path) //nolint:gosec // G304: output path from user input is expected
			if err != nil {
				return nil, err
			}

			s.closers = append(s.closers, out)
			csvf.Detached = out
		}
	}

	return f, nil
}

func (s *session) useColor(mode string) (bool, error) {
	switch mode {
	case dbgraph.ColorAlways:
		return true, nil
	case dbgraph.ColorNever:
		return false, nil
	case dbgraph.ColorAuto:
		if f, ok := s.stdout.(*os.File); ok {
			return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()), nil
		}

		return false, nil
	default:
		return false, fmt.Errorf("%w: color %q", dbgraph.ErrValidation, mode)
	}
}

// plan marks the targets wanted. Targets written as expressions are declared
// first, once every target has been checked.
func plan(db *dbgraph.Database, wants []string) error {
	if len(wants) == 0 {
		return ErrNoTargets
	}

	targets, err := db.DefineAll(wants)
	if err != nil {
		return err
	}

	return db.GetPlanForFields(targets)
}

// outputFlags are shared by every command that prints a report.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "output format (text, json, csv)",
		},
		&cli.StringFlag{
			Name:  "color",
			Usage: "color mode for text output (auto, always, never)",
		},
		&cli.StringFlag{
			Name:  "detached",
			Usage: "with csv output, write computed nodes that belong to no table to this file",
		},
	}
}

func wantFlag(required bool) cli.Flag {
	return &cli.StringSliceFlag{
		Name:     "want",
		Aliases:  []string{"w"},
		Usage:    "field or expression to plan for, e.g. course_name or \"(paste user_first user_last)\"",
		Required: required,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
