// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/woozymasta/tmod"
)

// parseLogLevel parses a slog level name; empty means info.
func parseLogLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", name)
	}

	return level, nil
}

// newLogger returns a text logger writing to w.
func newLogger(w io.Writer, levelName string) (*slog.Logger, error) {
	level, err := parseLogLevel(levelName)
	if err != nil {
		return nil, err
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// eventLogger renders decoder and extractor events as log records.
func eventLogger(logger *slog.Logger) func(tmod.Event) {
	return func(ev tmod.Event) {
		switch e := ev.(type) {
		case tmod.HeaderParsed:
			attrs := []any{
				"version", e.Version,
				"layout", e.Layout.String(),
				"build_hash", tmod.FormatHash(e.BuildHash[:]),
			}
			if !e.Recognized {
				logger.Warn("container version is newer than any known release", attrs...)
				return
			}
			logger.Info("header parsed", attrs...)

		case tmod.ManifestParsed:
			logger.Info("manifest parsed", "mod", e.Name, "mod_version", e.Version, "entries", e.EntryCount)

		case tmod.EntryExtracted:
			logger.Debug("entry extracted", "path", e.Path, "output", e.OutputPath, "bytes", e.BytesWritten)

		case tmod.EntryFailed:
			logger.Warn("entry failed", "path", e.Path, "kind", e.Kind, "error", e.Err)

		case tmod.RunSummary:
			logger.Info("extraction finished",
				"files", e.FilesWritten,
				"size", humanize.Bytes(uint64(max(e.BytesWritten, 0))),
				"failures", e.Failures,
				"duration", e.Duration.Round(time.Millisecond),
			)

		default:
			logger.Debug(ev.EventName())
		}
	}
}
