// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// NormalizePath converts an archive/internal path to normalized slash-separated form.
// It trims spaces, accepts both "/" and "\", removes leading "./" and "/", and cleans "." segments.
// It is meant for lookups; use ValidateEntryPath before touching the filesystem.
func NormalizePath(raw string) string {
	raw = normalizePathForMatching(raw)
	raw = strings.TrimPrefix(raw, "/")
	raw = path.Clean("/" + raw)
	raw = strings.TrimPrefix(raw, "/")
	if raw == "." {
		return ""
	}

	return strings.TrimSuffix(raw, "/")
}

// ValidateEntryPath normalizes an entry path for extraction.
// It fails with ErrInvalidPath for empty or NUL-containing paths and with
// ErrPathEscape for absolute, drive-rooted, or ".." paths.
func ValidateEntryPath(entryPath string) (string, error) {
	normalized, err := normalizeExtractEntryPath(entryPath)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, entryPath)
	}

	return normalized, nil
}

// normalizePathForMatching normalizes user/input paths for matcher use.
func normalizePathForMatching(path string) string {
	path = strings.TrimSpace(path)
	path = strings.ReplaceAll(path, `\`, `/`)
	path = strings.TrimPrefix(path, "./")
	return path
}

// normalizeExtractEntryPath normalizes entry path and rejects absolute/traversal inputs.
func normalizeExtractEntryPath(entryPath string) (string, error) {
	raw := strings.TrimSpace(entryPath)
	if raw == "" {
		return "", ErrInvalidPath
	}
	if strings.ContainsRune(raw, 0) {
		return "", ErrInvalidPath
	}
	if strings.HasPrefix(raw, `/`) || strings.HasPrefix(raw, `\`) {
		return "", ErrPathEscape
	}

	raw = strings.ReplaceAll(raw, `\`, `/`)
	if hasWindowsDrivePrefix(raw) {
		return "", ErrPathEscape
	}

	parts := strings.Split(raw, `/`)
	cleanParts := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", ErrPathEscape
		default:
			cleanParts = append(cleanParts, part)
		}
	}
	if len(cleanParts) == 0 {
		return "", ErrInvalidPath
	}

	return strings.Join(cleanParts, `/`), nil
}

// hasWindowsDrivePrefix reports whether path starts with a drive prefix like C: (rooted or drive-relative).
func hasWindowsDrivePrefix(path string) bool {
	if len(path) < 2 {
		return false
	}

	return isASCIIAlpha(path[0]) && path[1] == ':'
}

// isASCIIAlpha reports whether byte is ASCII latin letter.
func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// resolveExtractTarget joins a normalized relative path under rootAbs without following
// symlinks out of the root, then re-checks the result lexically.
func resolveExtractTarget(rootAbs string, relPath string) (string, error) {
	joined, err := securejoin.SecureJoin(rootAbs, filepath.FromSlash(relPath))
	if err != nil {
		return "", fmt.Errorf("%w: resolve %q: %w", ErrIO, relPath, err)
	}

	if !isWithinRoot(rootAbs, joined) {
		return "", fmt.Errorf("%w: %q resolves to %s", ErrPathEscape, relPath, joined)
	}

	return joined, nil
}

// isWithinRoot reports whether target is strictly below root.
func isWithinRoot(root string, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." || filepath.IsAbs(rel) {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
