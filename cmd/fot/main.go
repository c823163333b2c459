package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"fot/internal/compose"
	"fot/internal/config"
	appLog "fot/internal/log"
	"fot/internal/template"
)

const version = "0.3.0"

// runner carries what every command needs. Commands read the loaded config
// from here rather than from package state.
type runner struct {
	in  *bufio.Reader
	out io.Writer
	now func() time.Time

	cfgPath string
	cfg     *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdin, os.Stdout).RunContext(ctx, os.Args); err != nil {
		appLog.Error("fot failed", err)
		os.Exit(exitCode(err))
	}
}

func newApp(in io.Reader, out io.Writer) *cli.App {
	r := &runner{in: bufio.NewReader(in), out: out, now: time.Now}
	return &cli.App{
		Name:      "fot",
		Usage:     "Football Organiser Toolkit: manage Spond availability for your team",
		Version:   version,
		Reader:    in,
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: config.DefaultPath(), Usage: "path to config file", EnvVars: []string{"FOT_CONFIG"}},
			&cli.BoolFlag{Name: "verbose", Usage: "debug logging"},
		},
		Before:         r.before,
		Commands:       r.commands(),
		OnUsageError:   usageError,
		ExitErrHandler: func(*cli.Context, error) {}, // main picks the exit code
	}
}

func (r *runner) before(c *cli.Context) error {
	r.cfgPath = c.String("config")
	cfg, err := config.Load(r.cfgPath)
	if err != nil {
		return err
	}
	r.cfg = cfg

	level := appLog.ParseLevel(cfg.LogLevel)
	if c.Bool("verbose") {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)
	return nil
}

var errUsage = errors.New("usage")

func usageError(_ *cli.Context, err error, _ bool) error {
	return fmt.Errorf("%w: %v", errUsage, err)
}

// exitCode is 2 for input the user can fix on the command line, 1 for
// everything else.
func exitCode(err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	var fe *compose.FieldError
	switch {
	case errors.As(err, &fe),
		errors.Is(err, template.ErrConflictingTemplates),
		errors.Is(err, errUsage):
		return 2
	}
	return 1
}
