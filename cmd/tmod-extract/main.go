// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

// tmod-extract decodes a .tmod container and writes its files to a directory.
//
// Usage:
//
//	tmod-extract [flags] <input> <output>
//	tmod-extract --list [flags] <input>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/woozymasta/tmod"
)

// version is set at build time.
var version = "dev"

// Process exit codes.
const (
	exitOK         = 0
	exitFatal      = 1
	exitUsage      = 2
	exitExtraction = 3
)

// Environment variables.
const (
	envConfig   = "TMOD_CONFIG"
	envLogLevel = "TMOD_LOG"
)

// usageError marks invalid command lines and option values.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// usagef builds a usageError.
func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) int {
	flagSet := pflag.NewFlagSet("tmod-extract", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var fv config
	var configPath string
	var list bool
	var showVersion bool
	flagSet.StringVar(&configPath, "config", "", "YAML config file (default: $"+envConfig+")")
	flagSet.BoolVar(&fv.Strict, "strict", false, "abort on the first unsafe entry path and fail on any entry failure")
	flagSet.IntVarP(&fv.Workers, "workers", "j", 0, "parallel extraction workers (0: number of CPUs)")
	flagSet.StringArrayVarP(&fv.Include, "include", "i", nil, "include entries matching pattern (repeatable)")
	flagSet.StringArrayVarP(&fv.Exclude, "exclude", "x", nil, "exclude entries matching pattern (repeatable)")
	flagSet.BoolVar(&fv.CaseInsensitive, "ignore-case", false, "match include/exclude patterns case-insensitively")
	flagSet.StringVar(&fv.Prefix, "prefix", "", "only entries under this directory")
	flagSet.StringVar(&fv.FileMode, "file-mode", "", "output file policy: auto, truncate, overwrite_smart, create_only")
	flagSet.BoolVar(&fv.Sanitize, "sanitize", false, "rewrite entry names to filesystem-safe form")
	flagSet.StringVar(&fv.Layout, "layout", "", "force manifest layout: auto, legacy, modern")
	flagSet.BoolVar(&fv.RawPayload, "raw-payload", false, "payload segment is stored, not deflated")
	flagSet.BoolVar(&fv.VerifyHash, "verify-hash", false, "check the build hash against the payload")
	flagSet.BoolVarP(&list, "list", "l", false, "list entries instead of extracting")
	flagSet.StringVar(&fv.Format, "format", "", "list output format: text, json, yaml")
	flagSet.StringVar(&fv.MinSize, "min-size", "", "list only entries at least this large (e.g. 4KiB, 1MB)")
	flagSet.StringVar(&fv.LogLevel, "log-level", "", "log level: debug, info, warn, error (default: $"+envLogLevel+" or info)")
	flagSet.BoolVarP(&showVersion, "version", "v", false, "print version and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, flagSet)
			return exitOK
		}

		fmt.Fprintf(stderr, "error: %v\n\n", err)
		printUsage(stderr)
		return exitUsage
	}

	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stdout, flagSet)
		return exitOK
	}
	if showVersion {
		fmt.Fprintf(stdout, "tmod-extract %s\n", version)
		return exitOK
	}

	cfg, err := resolveConfig(flagSet, fv, configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}

	logger, err := newLogger(stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	positional := flagSet.Args()
	if list {
		if len(positional) != 1 {
			fmt.Fprintf(stderr, "error: --list expects exactly one input file\n\n")
			printUsage(stderr)
			return exitUsage
		}

		err = runList(positional[0], cfg, stdout, logger)
	} else {
		if len(positional) != 2 {
			fmt.Fprintf(stderr, "error: expected <input> and <output>\n\n")
			printUsage(stderr)
			return exitUsage
		}

		err = runExtract(ctx, positional[0], positional[1], cfg, logger)
	}

	if err != nil {
		logger.Error("tmod-extract failed", "error", err, "kind", tmod.KindOf(err))
		return exitCodeFor(err)
	}

	return exitOK
}

// extractionError reports a run that completed with entry failures the exit policy rejects.
type extractionError struct {
	failures int
	written  int
	strict   bool
}

func (e *extractionError) Error() string {
	if e.strict {
		return fmt.Sprintf("%d entries failed in strict mode", e.failures)
	}

	return fmt.Sprintf("no file extracted, %d entries failed", e.failures)
}

// runExtract decodes input and extracts it under output.
func runExtract(ctx context.Context, input string, output string, cfg config, logger *slog.Logger) error {
	onEvent := eventLogger(logger)

	readerOpts, err := cfg.readerOptions()
	if err != nil {
		return err
	}
	readerOpts.OnEvent = onEvent

	extractOpts := cfg.extractOptions()
	extractOpts.OnEvent = onEvent

	archive, err := tmod.OpenWithOptions(input, readerOpts)
	if err != nil {
		return err
	}

	res, err := archive.Extract(ctx, output, extractOpts)
	if err != nil {
		if errors.Is(err, tmod.ErrPathEscape) && cfg.Strict {
			return &extractionError{failures: len(res.Failures()), strict: true}
		}

		return err
	}

	failures := len(res.Failures())
	switch {
	case cfg.Strict && failures > 0:
		return &extractionError{failures: failures, written: res.FilesWritten, strict: true}
	case failures > 0 && res.FilesWritten == 0:
		return &extractionError{failures: failures}
	default:
		return nil
	}
}

// exitCodeFor maps a run error to the process exit code.
func exitCodeFor(err error) int {
	var ue *usageError
	var ee *extractionError

	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ue):
		return exitUsage
	case errors.As(err, &ee):
		return exitExtraction
	default:
		return exitFatal
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, "Usage:\n    tmod-extract [flags] <input> <output>\n    tmod-extract --list [flags] <input>\n\nRun 'tmod-extract --help' for flags.\n")
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `tmod-extract - Extract files from .tmod mod containers

USAGE
    tmod-extract [flags] <input> <output>
    tmod-extract --list [flags] <input>

FLAGS
%s
EXIT CODES
    0  success
    1  decoding or fatal error
    2  usage error
    3  entry failures in strict mode, or nothing extracted

ENVIRONMENT
    %-12s config file path (overridden by --config)
    %-12s log level (overridden by --log-level)
`, flagSet.FlagUsages(), envConfig, envLogLevel)
}
