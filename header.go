// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/blang/semver"
)

var (
	// modernLayoutSince is the first version whose tables carry stored lengths.
	modernLayoutSince = semver.MustParse("0.11.0")
	// newestKnownVersion is the newest producer version this decoder was checked against.
	newestKnownVersion = semver.MustParse("2025.12.0")
)

// DecodeHeader reads magic, version, build hash, signature, and payload length from c.
// On success the cursor is positioned at the first payload byte.
func DecodeHeader(c *Cursor) (Header, error) {
	var h Header

	magic, err := c.ReadFixed(magicSize)
	if err != nil {
		return h, withOp(err, "read magic")
	}
	copy(h.Magic[:], magic)
	if !bytes.Equal(magic, Magic[:]) {
		return h, &DecodeError{Err: ErrBadMagic, Op: "read magic", Region: c.region, Offset: c.pos - magicSize}
	}

	versionOffset := c.Position()
	h.Version, err = c.ReadString()
	if err != nil {
		return h, withOp(err, "read version")
	}

	v, err := ParseVersion(h.Version)
	if err != nil {
		return h, &DecodeError{Err: err, Op: "parse version", Region: c.region, Offset: versionOffset}
	}
	h.Layout = layoutForVersion(v)
	h.Recognized = !v.GT(newestKnownVersion)

	hash, err := c.ReadFixed(buildHashSize)
	if err != nil {
		return h, withOp(err, "read build hash")
	}
	copy(h.BuildHash[:], hash)

	signature, err := c.ReadFixed(signatureSize)
	if err != nil {
		return h, withOp(err, "read signature")
	}
	copy(h.Signature[:], signature)

	lengthOffset := c.Position()
	h.PayloadLength, err = c.ReadU32()
	if err != nil {
		return h, withOp(err, "read payload length")
	}

	if uint64(h.PayloadLength) > uint64(c.Remaining()) {
		return h, &DecodeError{
			Err:    fmt.Errorf("%w: payload length %d, %d bytes remain", ErrUnexpectedEOF, h.PayloadLength, c.Remaining()),
			Op:     "check payload length",
			Region: c.region,
			Offset: lengthOffset,
		}
	}

	return h, nil
}

// ParseVersion parses a producer version tolerantly: a leading "v", missing
// minor/patch components, and a fourth numeric component (kept as build metadata) are accepted.
func ParseVersion(raw string) (semver.Version, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return semver.Version{}, fmt.Errorf("%w: empty version", ErrUnsupportedVersion)
	}

	s = foldFourthComponent(strings.TrimPrefix(s, "v"))
	v, err := semver.ParseTolerant(s)
	if err != nil {
		return semver.Version{}, fmt.Errorf("%w: %q: %w", ErrUnsupportedVersion, raw, err)
	}

	return v, nil
}

// foldFourthComponent rewrites "a.b.c.d[...]" to "a.b.c+d[...]" so four-part release numbers parse.
func foldFourthComponent(s string) string {
	core, suffix := s, ""
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		core, suffix = s[:i], s[i:]
	}

	parts := strings.Split(core, ".")
	if len(parts) != 4 {
		return s
	}

	build := parts[3]
	if strings.HasPrefix(suffix, "+") {
		return strings.Join(parts[:3], ".") + "+" + build + "." + suffix[1:]
	}
	if suffix != "" {
		// prerelease goes before build metadata
		return strings.Join(parts[:3], ".") + suffix + "+" + build
	}

	return strings.Join(parts[:3], ".") + "+" + build
}

// layoutForVersion selects the manifest table layout for a producer version.
func layoutForVersion(v semver.Version) Layout {
	if v.LT(modernLayoutSince) {
		return LayoutLegacy
	}

	return LayoutModern
}
