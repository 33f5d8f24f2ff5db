// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/woozymasta/tmod"
	"gopkg.in/yaml.v3"
)

// List output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// listing is the machine-readable list output.
type listing struct {
	Name          string           `json:"name" yaml:"name"`
	ModVersion    string           `json:"mod_version" yaml:"mod_version"`
	FormatVersion string           `json:"format_version" yaml:"format_version"`
	Layout        string           `json:"layout" yaml:"layout"`
	BuildHash     string           `json:"build_hash" yaml:"build_hash"`
	Entries       []tmod.EntryInfo `json:"entries" yaml:"entries"`
	Recognized    bool             `json:"recognized" yaml:"recognized"`
}

// runList decodes input and prints the selected entry table.
func runList(input string, cfg config, stdout io.Writer, logger *slog.Logger) error {
	opts, err := cfg.listOptions()
	if err != nil {
		return err
	}
	opts.OnEvent = eventLogger(logger)

	archive, err := tmod.OpenWithOptions(input, opts.ReaderOptions)
	if err != nil {
		return err
	}

	entries, err := archive.List(opts)
	if err != nil {
		return err
	}

	header := archive.Header()
	meta := archive.Metadata()
	out := listing{
		Name:          meta.Name,
		ModVersion:    meta.Version,
		FormatVersion: header.Version,
		Layout:        archive.Layout().String(),
		BuildHash:     tmod.FormatHash(header.BuildHash[:]),
		Recognized:    header.Recognized,
		Entries:       entries,
	}
	if out.Entries == nil {
		out.Entries = []tmod.EntryInfo{}
	}

	switch cfg.Format {
	case formatJSON:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)

	case formatYAML:
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()

	default:
		return writeListText(stdout, out)
	}
}

// writeListText prints a human-readable table.
func writeListText(w io.Writer, out listing) error {
	fmt.Fprintf(w, "%s %s (format %s, %s layout)\n\n", out.Name, out.ModVersion, out.FormatVersion, out.Layout)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SIZE\tSTORED\tPATH")

	var total uint64
	for _, e := range out.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", humanize.Bytes(uint64(e.Size)), humanize.Bytes(uint64(e.StoredSize)), e.Path)
		total += uint64(e.Size)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d entries, %s\n", len(out.Entries), humanize.Bytes(total))
	return err
}
