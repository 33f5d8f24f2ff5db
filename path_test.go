// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "slash", in: "/", want: ""},
		{name: "clean", in: "Content/Items/Sword.cs", want: "Content/Items/Sword.cs"},
		{name: "windows", in: `.\Content\Items\`, want: "Content/Items"},
		{name: "dot segments", in: "./a/../b//c.txt", want: "b/c.txt"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := NormalizePath(tc.in)
			if got != tc.want {
				t.Fatalf("NormalizePath(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestValidateEntryPath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "plain", in: "info.json", want: "info.json"},
		{name: "nested backslash", in: `Content\Items\Sword.png`, want: "Content/Items/Sword.png"},
		{name: "redundant segments", in: "./a//./b.txt", want: "a/b.txt"},
		{name: "empty", in: "", wantErr: ErrInvalidPath},
		{name: "spaces", in: "   ", wantErr: ErrInvalidPath},
		{name: "only dots", in: "./.", wantErr: ErrInvalidPath},
		{name: "nul", in: "a\x00.txt", wantErr: ErrInvalidPath},
		{name: "parent", in: "../../etc/passwd", wantErr: ErrPathEscape},
		{name: "inner parent", in: "a/../../b", wantErr: ErrPathEscape},
		{name: "parent backslash", in: `a\..\b`, wantErr: ErrPathEscape},
		{name: "absolute", in: "/etc/passwd", wantErr: ErrPathEscape},
		{name: "absolute backslash", in: `\Windows\win.ini`, wantErr: ErrPathEscape},
		{name: "drive", in: `C:\Windows\win.ini`, wantErr: ErrPathEscape},
		{name: "drive relative", in: "c:evil.txt", wantErr: ErrPathEscape},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ValidateEntryPath(tc.in)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("ValidateEntryPath(%q) err=%v, want %v", tc.in, err, tc.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("ValidateEntryPath(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ValidateEntryPath(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestResolveExtractTarget(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	got, err := resolveExtractTarget(root, "a/b.txt")
	if err != nil {
		t.Fatalf("resolveExtractTarget: %v", err)
	}
	if want := filepath.Join(root, "a", "b.txt"); got != want {
		t.Fatalf("resolveExtractTarget=%q, want %q", got, want)
	}
}

func TestResolveExtractTarget_SymlinkStaysInRoot(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	root := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	got, err := resolveExtractTarget(root, "link/file.txt")
	if err != nil {
		t.Fatalf("resolveExtractTarget: %v", err)
	}

	rel, err := filepath.Rel(root, got)
	if err != nil || filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
		t.Fatalf("resolved %q escapes root %q", got, root)
	}
}

func TestIsWithinRoot(t *testing.T) {
	t.Parallel()

	root := filepath.Join(string(filepath.Separator), "out")
	testCases := []struct {
		target string
		want   bool
	}{
		{target: filepath.Join(root, "a.txt"), want: true},
		{target: filepath.Join(root, "a", "b"), want: true},
		{target: root, want: false},
		{target: filepath.Join(string(filepath.Separator), "outside"), want: false},
		{target: filepath.Join(string(filepath.Separator), "etc", "passwd"), want: false},
		{target: filepath.Join(root, "..dots"), want: true},
	}

	for _, tc := range testCases {
		if got := isWithinRoot(root, tc.target); got != tc.want {
			t.Fatalf("isWithinRoot(%q, %q)=%v, want %v", root, tc.target, got, tc.want)
		}
	}
}
