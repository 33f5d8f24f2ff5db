// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"fmt"
	"strings"

	"github.com/woozymasta/pathrules"
)

// entryMatcher holds compiled selection rules.
type entryMatcher struct {
	matcher *pathrules.Matcher
}

// newEntryMatcher compiles selection rules. It returns nil when no rule is set (select all).
// An unset default action excludes unmatched paths when any include rule exists, otherwise includes them.
func newEntryMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*entryMatcher, error) {
	rules = normalizeRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	if opts.DefaultAction == pathrules.ActionUnknown {
		opts.DefaultAction = pathrules.ActionInclude
		for _, rule := range rules {
			if rule.Action == pathrules.ActionInclude {
				opts.DefaultAction = pathrules.ActionExclude
				break
			}
		}
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidRules, err)
	}

	return &entryMatcher{matcher: matcher}, nil
}

// normalizeRules normalizes rule patterns and drops empty patterns.
func normalizeRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether path is selected. A nil matcher selects everything.
func (m *entryMatcher) Match(path string) bool {
	if m == nil || m.matcher == nil {
		return true
	}

	candidate := NormalizePath(path)
	if candidate == "" {
		// unusable names stay selected so extraction can report them
		return true
	}

	return m.matcher.Included(candidate, false)
}

// selectEntryIndexes returns table indexes of entries passing rules and prefix.
func selectEntryIndexes(entries []EntryInfo, matcher *entryMatcher, prefix string) []int {
	prefix = NormalizePath(prefix)
	out := make([]int, 0, len(entries))
	for i := range entries {
		if !matcher.Match(entries[i].Path) {
			continue
		}
		if prefix != "" && !hasPathPrefix(entries[i].Path, prefix) {
			continue
		}

		out = append(out, i)
	}

	return out
}

// hasPathPrefix reports whether entry path equals prefix or lies below it.
func hasPathPrefix(entryPath string, prefix string) bool {
	entryPath = NormalizePath(entryPath)
	return entryPath == prefix || strings.HasPrefix(entryPath, prefix+"/")
}

// filterEntriesBySize keeps entries whose uncompressed size is at least minSize.
func filterEntriesBySize(entries []EntryInfo, minSize uint32) []EntryInfo {
	if minSize == 0 {
		return entries
	}

	out := make([]EntryInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.Size < minSize {
			continue
		}

		out = append(out, entry)
	}

	return out
}

// filterEntries applies listing selection to entries.
func filterEntries(entries []EntryInfo, opts ListOptions) ([]EntryInfo, error) {
	matcher, err := newEntryMatcher(opts.Rules, opts.MatcherOptions)
	if err != nil {
		return nil, err
	}

	idx := selectEntryIndexes(entries, matcher, opts.PathPrefix)
	out := make([]EntryInfo, 0, len(idx))
	for _, i := range idx {
		out = append(out, entries[i])
	}

	return filterEntriesBySize(out, opts.MinSize), nil
}
