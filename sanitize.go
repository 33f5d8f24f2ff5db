// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// maxSanitizedSegmentLen limits one path segment to common filesystem-safe length.
const maxSanitizedSegmentLen = 240

// unsafeSegmentRunes are rejected in file names on at least one mainstream filesystem.
const unsafeSegmentRunes = `<>:"|?*`

// reservedDeviceNames are Windows device names that cannot be used as file base names.
var reservedDeviceNames = func() map[string]struct{} {
	names := map[string]struct{}{
		"con": {}, "prn": {}, "aux": {}, "nul": {}, "clock$": {}, "conin$": {}, "conout$": {},
	}
	for i := 1; i <= 9; i++ {
		names[fmt.Sprintf("com%d", i)] = struct{}{}
		names[fmt.Sprintf("lpt%d", i)] = struct{}{}
	}

	return names
}()

// sanitizeRelativePath rewrites every segment of an already validated relative
// slash path to a portable file name. Segment count never changes, so a
// sanitized path stays below the output root.
func sanitizeRelativePath(relPath string) (string, error) {
	segments := strings.Split(relPath, "/")
	for i, segment := range segments {
		clean, err := sanitizeSegment(segment)
		if err != nil {
			return "", fmt.Errorf("%w: segment %q of %q", err, segment, relPath)
		}

		segments[i] = clean
	}

	return strings.Join(segments, "/"), nil
}

// sanitizeSegment maps control runes and reserved characters to "_", strips
// trailing dots and spaces, prefixes reserved device names, and bounds length.
func sanitizeSegment(segment string) (string, error) {
	if segment == "" || segment == "." || segment == ".." {
		return "", ErrInvalidPath
	}

	clean := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || unicode.In(r, unicode.Cf) || r == '\uFFFD' {
			return '_'
		}
		if strings.ContainsRune(unsafeSegmentRunes, r) {
			return '_'
		}

		return r
	}, segment)

	clean = strings.TrimRight(clean, ". ")
	if clean == "" {
		clean = "_"
	}

	if isReservedDeviceName(clean) {
		clean = "_" + clean
	}

	return shortenSegment(clean, maxSanitizedSegmentLen), nil
}

// isReservedDeviceName reports whether the part before the first dot is a device name.
func isReservedDeviceName(name string) bool {
	base := strings.ToLower(strings.TrimSpace(name))
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}

	_, ok := reservedDeviceNames[strings.TrimRight(base, " ")]
	return ok
}

// shortenSegment truncates long names keeping a stable hash suffix, so distinct
// long names remain distinct after truncation.
func shortenSegment(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	suffix := fmt.Sprintf("~%08x", h.Sum32())

	cut := maxLen - len(suffix)
	// avoid splitting a multi-byte rune
	for cut > 0 && !isRuneStart(value[cut]) {
		cut--
	}

	return value[:cut] + suffix
}

// isRuneStart reports whether b begins a UTF-8 sequence.
func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
