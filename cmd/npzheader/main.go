// Package main provides a command-line utility that prints the array
// headers of .npy, .npz and .mat files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/scigolib/npzheader"
	"github.com/scigolib/npzheader/internal/config"
	"github.com/scigolib/npzheader/internal/render"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	fs := flag.NewFlagSet("npzheader", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Output.Format, "format", cfg.Output.Format, "Output format: table or json")
	fs.BoolVar(&cfg.Output.Color, "color", cfg.Output.Color, "Colorize table output")
	fs.IntVar(&cfg.Output.MaxValueWidth, "max-value-width", cfg.Output.MaxValueWidth, "Truncate values wider than this (0 disables)")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level: debug, info, warn or error")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: npzheader [flags] <file>...")
		fmt.Fprintln(stderr, "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	logger := newLogger(stderr, cfg.Log.Level)

	status := 0
	for _, path := range fs.Args() {
		if npzheader.DetectFormat(path) == npzheader.FormatUnknown {
			_ = level.Warn(logger).Log("msg", "unsupported file format", "path", path)
		}

		m, err := npzheader.GetHeaders(path, npzheader.WithLogger(logger))
		if err != nil {
			_ = level.Error(logger).Log("msg", "failed to read headers", "path", path, "kind", errorKind(err), "err", err)
			status = 1
			continue
		}

		if cfg.Output.Format == config.FormatJSON {
			err = render.JSON(stdout, path, m)
		} else {
			err = render.Table(stdout, path, m, render.Options{
				Color:         cfg.Output.Color,
				MaxValueWidth: cfg.Output.MaxValueWidth,
			})
		}
		if err != nil {
			_ = level.Error(logger).Log("msg", "failed to write output", "err", err)
			return 1
		}
	}
	return status
}

func newLogger(w io.Writer, lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = level.NewFilter(logger, level.Allow(level.ParseDefault(lvl, level.WarnValue())))
	return log.With(logger, "ts", log.DefaultTimestampUTC)
}

func errorKind(err error) string {
	var (
		ioErr     *npzheader.IOError
		formatErr *npzheader.FormatError
	)
	switch {
	case errors.Is(err, npzheader.ErrNotFound):
		return "not_found"
	case errors.As(err, &ioErr):
		return "io"
	case errors.As(err, &formatErr):
		return "format"
	default:
		return "unknown"
	}
}
