// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"errors"
	"reflect"
	"testing"

	"github.com/woozymasta/pathrules"
)

func includeRules(patterns ...string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: pattern})
	}

	return rules
}

func entryPaths(entries []EntryInfo) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}

	return out
}

func TestEntryMatcher_NoRulesSelectsAll(t *testing.T) {
	t.Parallel()

	m, err := newEntryMatcher(nil, pathrules.MatcherOptions{})
	if err != nil {
		t.Fatalf("newEntryMatcher: %v", err)
	}
	if m != nil {
		t.Fatal("matcher must be nil without rules")
	}
	if !m.Match("anything/at/all.txt") {
		t.Fatal("nil matcher must select every path")
	}

	m, err = newEntryMatcher(includeRules("", "  "), pathrules.MatcherOptions{})
	if err != nil || m != nil {
		t.Fatalf("blank patterns: matcher=%v err=%v, want nil and nil", m, err)
	}
}

func TestEntryMatcher_IncludeRules(t *testing.T) {
	t.Parallel()

	m, err := newEntryMatcher(includeRules("*.cs", "/Localization/**"), pathrules.MatcherOptions{CaseInsensitive: true})
	if err != nil {
		t.Fatalf("newEntryMatcher: %v", err)
	}

	testCases := []struct {
		path string
		want bool
	}{
		{path: `Content\Items\Sword.CS`, want: true},
		{path: "Localization/en-US.hjson", want: true},
		{path: "Content/Localization/en-US.hjson", want: false},
		{path: "icon.png", want: false},
	}

	for _, tc := range testCases {
		if got := m.Match(tc.path); got != tc.want {
			t.Fatalf("Match(%q)=%v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestEntryMatcher_ExcludeOnlyDefaultsToInclude(t *testing.T) {
	t.Parallel()

	m, err := newEntryMatcher([]pathrules.Rule{
		{Action: pathrules.ActionExclude, Pattern: "*.png"},
	}, pathrules.MatcherOptions{})
	if err != nil {
		t.Fatalf("newEntryMatcher: %v", err)
	}

	if m.Match("icon.png") {
		t.Fatal("icon.png must be excluded")
	}
	if !m.Match("build.txt") {
		t.Fatal("build.txt must be included by default")
	}
}

func TestEntryMatcher_InvalidRule(t *testing.T) {
	t.Parallel()

	_, err := newEntryMatcher([]pathrules.Rule{
		{Action: pathrules.ActionUnknown, Pattern: "*.png"},
	}, pathrules.MatcherOptions{DefaultAction: pathrules.ActionExclude})
	if !errors.Is(err, ErrInvalidRules) {
		t.Fatalf("err=%v, want ErrInvalidRules", err)
	}
}

func TestSelectEntryIndexes_Prefix(t *testing.T) {
	t.Parallel()

	entries := []EntryInfo{
		{Path: "Content/a.cs"},
		{Path: `Content\Items\b.cs`},
		{Path: "ContentExtra/c.cs"},
		{Path: "d.cs"},
	}

	got := selectEntryIndexes(entries, nil, "Content/")
	if want := []int{0, 1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("selectEntryIndexes=%v, want %v", got, want)
	}

	got = selectEntryIndexes(entries, nil, "")
	if want := []int{0, 1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("selectEntryIndexes(no prefix)=%v, want %v", got, want)
	}
}

func TestFilterEntries(t *testing.T) {
	t.Parallel()

	entries := []EntryInfo{
		{Path: "a.cs", Size: 1},
		{Path: "b.cs", Size: 100},
		{Path: "c.png", Size: 200},
		{Path: "sub/d.cs", Size: 300},
	}

	got, err := filterEntries(entries, ListOptions{
		Rules:   includeRules("*.cs"),
		MinSize: 50,
	})
	if err != nil {
		t.Fatalf("filterEntries: %v", err)
	}

	if want := []string{"b.cs", "sub/d.cs"}; !reflect.DeepEqual(entryPaths(got), want) {
		t.Fatalf("filterEntries=%v, want %v", entryPaths(got), want)
	}
}

func TestFilterEntriesBySize(t *testing.T) {
	t.Parallel()

	entries := []EntryInfo{{Path: "a", Size: 0}, {Path: "b", Size: 10}}
	if got := filterEntriesBySize(entries, 0); len(got) != 2 {
		t.Fatalf("minSize 0 kept %d entries, want 2", len(got))
	}
	if got := filterEntriesBySize(entries, 10); !reflect.DeepEqual(entryPaths(got), []string{"b"}) {
		t.Fatalf("minSize 10 kept %v", entryPaths(got))
	}
}
