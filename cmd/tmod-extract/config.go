// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/woozymasta/pathrules"
	"github.com/woozymasta/tmod"
	"gopkg.in/yaml.v3"
)

// config holds run settings. A YAML file provides defaults; flags set on
// the command line override file values.
type config struct {
	FileMode        string   `yaml:"file_mode"`
	Prefix          string   `yaml:"prefix"`
	Layout          string   `yaml:"layout"`
	Format          string   `yaml:"format"`
	LogLevel        string   `yaml:"log_level"`
	MinSize         string   `yaml:"min_size"`
	Include         []string `yaml:"include"`
	Exclude         []string `yaml:"exclude"`
	Workers         int      `yaml:"workers"`
	Strict          bool     `yaml:"strict"`
	CaseInsensitive bool     `yaml:"ignore_case"`
	Sanitize        bool     `yaml:"sanitize"`
	RawPayload      bool     `yaml:"raw_payload"`
	VerifyHash      bool     `yaml:"verify_hash"`
}

// loadConfigFile reads a YAML config file. Unknown keys are rejected.
func loadConfigFile(path string) (config, error) {
	var cfg config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, &usageError{err: fmt.Errorf("parse config %s: %w", path, err)}
	}

	return cfg, nil
}

// resolveConfig merges the config file (from --config or TMOD_CONFIG), the
// environment, and flags set on the command line, then validates the result.
func resolveConfig(flagSet *pflag.FlagSet, fv config, configPath string) (config, error) {
	if configPath == "" {
		configPath = os.Getenv(envConfig)
	}

	var cfg config
	if configPath != "" {
		var err error
		cfg, err = loadConfigFile(configPath)
		if err != nil {
			return cfg, err
		}
	}

	if level := os.Getenv(envLogLevel); level != "" {
		cfg.LogLevel = level
	}

	overrideFromFlags(&cfg, flagSet, fv)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// overrideFromFlags copies every flag the user set into cfg.
func overrideFromFlags(cfg *config, flagSet *pflag.FlagSet, fv config) {
	flagSet.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "strict":
			cfg.Strict = fv.Strict
		case "workers":
			cfg.Workers = fv.Workers
		case "include":
			cfg.Include = fv.Include
		case "exclude":
			cfg.Exclude = fv.Exclude
		case "ignore-case":
			cfg.CaseInsensitive = fv.CaseInsensitive
		case "prefix":
			cfg.Prefix = fv.Prefix
		case "file-mode":
			cfg.FileMode = fv.FileMode
		case "sanitize":
			cfg.Sanitize = fv.Sanitize
		case "layout":
			cfg.Layout = fv.Layout
		case "raw-payload":
			cfg.RawPayload = fv.RawPayload
		case "verify-hash":
			cfg.VerifyHash = fv.VerifyHash
		case "format":
			cfg.Format = fv.Format
		case "log-level":
			cfg.LogLevel = fv.LogLevel
		case "min-size":
			cfg.MinSize = fv.MinSize
		}
	})
}

// validate rejects option values the library would not accept.
func (c config) validate() error {
	if c.Workers < 0 {
		return usagef("--workers must not be negative, got %d", c.Workers)
	}

	switch tmod.ExtractFileMode(c.FileMode) {
	case "", tmod.ExtractFileModeAuto, tmod.ExtractFileModeTruncate,
		tmod.ExtractFileModeOverwriteSmart, tmod.ExtractFileModeCreateOnly:
	default:
		return usagef("unknown file mode %q", c.FileMode)
	}

	if _, err := tmod.ParseLayout(c.Layout); err != nil {
		return &usageError{err: err}
	}

	switch c.Format {
	case "", formatText, formatJSON, formatYAML:
	default:
		return usagef("unknown format %q", c.Format)
	}

	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return &usageError{err: err}
	}

	if _, err := c.minSize(); err != nil {
		return err
	}

	return nil
}

// minSize parses the listing size threshold ("", "512", "4KiB", "1MB").
func (c config) minSize() (uint32, error) {
	if c.MinSize == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(c.MinSize)
	if err != nil {
		return 0, usagef("invalid min size %q: %v", c.MinSize, err)
	}
	if size > math.MaxUint32 {
		return 0, usagef("min size %q exceeds the largest entry size", c.MinSize)
	}

	return uint32(size), nil
}

// rules converts include and exclude patterns to selection rules; excludes come last so they win.
func (c config) rules() []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(c.Include)+len(c.Exclude))
	for _, pattern := range c.Include {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: pattern})
	}
	for _, pattern := range c.Exclude {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: pattern})
	}

	return rules
}

// matcherOptions returns rule matching options.
func (c config) matcherOptions() pathrules.MatcherOptions {
	return pathrules.MatcherOptions{CaseInsensitive: c.CaseInsensitive}
}

// readerOptions builds decoder options.
func (c config) readerOptions() (tmod.ReaderOptions, error) {
	layout, err := tmod.ParseLayout(c.Layout)
	if err != nil {
		return tmod.ReaderOptions{}, &usageError{err: err}
	}

	opts := tmod.ReaderOptions{
		Layout:     layout,
		VerifyHash: c.VerifyHash,
	}
	if c.RawPayload {
		opts.Payload = tmod.PayloadStored
	}

	return opts, nil
}

// extractOptions builds extractor options.
func (c config) extractOptions() tmod.ExtractOptions {
	return tmod.ExtractOptions{
		FileMode:       tmod.ExtractFileMode(c.FileMode),
		Rules:          c.rules(),
		MatcherOptions: c.matcherOptions(),
		PathPrefix:     c.Prefix,
		MaxWorkers:     c.Workers,
		Strict:         c.Strict,
		SanitizeNames:  c.Sanitize,
	}
}

// listOptions builds listing options.
func (c config) listOptions() (tmod.ListOptions, error) {
	readerOpts, err := c.readerOptions()
	if err != nil {
		return tmod.ListOptions{}, err
	}

	minSize, err := c.minSize()
	if err != nil {
		return tmod.ListOptions{}, err
	}

	return tmod.ListOptions{
		ReaderOptions:  readerOpts,
		Rules:          c.rules(),
		MatcherOptions: c.matcherOptions(),
		PathPrefix:     c.Prefix,
		MinSize:        minSize,
	}, nil
}
