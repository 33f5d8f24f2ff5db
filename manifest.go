// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"errors"
	"fmt"
)

// ParseManifest decodes mod metadata and the entry table from an inflated payload.
// The layout must be LayoutLegacy or LayoutModern; entry offsets are relative to payload[DataStart:].
func ParseManifest(payload []byte, layout Layout, opts ManifestOptions) (Manifest, error) {
	opts.applyDefaults()

	var m Manifest
	if layout != LayoutLegacy && layout != LayoutModern {
		return m, fmt.Errorf("parse manifest: unsupported layout %s", layout)
	}

	c := newRegionCursor(payload, RegionPayload)

	name, err := c.ReadString()
	if err != nil {
		return m, truncatedManifest(withOp(err, "read mod name"))
	}

	version, err := c.ReadString()
	if err != nil {
		return m, truncatedManifest(withOp(err, "read mod version"))
	}
	m.Metadata = Metadata{Name: name, Version: version}

	countOffset := c.Position()
	count, err := c.ReadU32()
	if err != nil {
		return m, truncatedManifest(withOp(err, "read entry count"))
	}

	if err := checkEntryCount(count, c.Remaining(), layout, opts.MaxEntryCount); err != nil {
		return m, &DecodeError{Err: err, Op: "check entry count", Region: RegionPayload, Offset: countOffset}
	}

	m.Entries = make([]EntryInfo, 0, count)
	for i := uint32(0); i < count; i++ {
		entry, err := readEntryRecord(c, layout, opts)
		if err != nil {
			return m, fmt.Errorf("entry %d: %w", i, err)
		}

		m.Entries = append(m.Entries, entry)
	}

	m.DataStart = c.Position()
	if err := assignSequentialOffsets(m.Entries, c.Remaining()); err != nil {
		return m, &DecodeError{Err: err, Op: "resolve entry offsets", Region: RegionPayload, Offset: m.DataStart}
	}

	return m, nil
}

// readEntryRecord reads one table record for the given layout.
func readEntryRecord(c *Cursor, layout Layout, opts ManifestOptions) (EntryInfo, error) {
	var e EntryInfo

	pathOffset := c.Position()
	path, err := c.ReadString()
	if err != nil {
		return e, truncatedManifest(withOp(err, "read entry path"))
	}

	if err := validateManifestPath(path, opts.StrictPaths); err != nil {
		return e, &DecodeError{Err: err, Op: "validate entry path", Region: RegionPayload, Offset: pathOffset}
	}
	e.Path = path

	e.Size, err = c.ReadU32()
	if err != nil {
		return e, truncatedManifest(withOp(err, "read entry length"))
	}

	e.StoredSize = e.Size
	if layout.hasStoredLength() {
		e.StoredSize, err = c.ReadU32()
		if err != nil {
			return e, truncatedManifest(withOp(err, "read entry stored length"))
		}
	}

	return e, nil
}

// checkEntryCount rejects counts above the hard cap or above what remaining bytes could encode.
func checkEntryCount(count uint32, remaining int, layout Layout, maxCount uint32) error {
	if count > maxCount {
		return fmt.Errorf("%w: %d entries exceeds limit %d", ErrCountOverflow, count, maxCount)
	}

	if uint64(count)*uint64(layout.minEntrySize()) > uint64(remaining) {
		return fmt.Errorf("%w: %d entries cannot fit in %d bytes", ErrCountOverflow, count, remaining)
	}

	return nil
}

// validateManifestPath rejects structurally invalid paths, and escaping ones when strict.
func validateManifestPath(path string, strict bool) error {
	_, err := normalizeExtractEntryPath(path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPathEscape):
		if strict {
			return fmt.Errorf("%w: %q: %w", ErrInvalidPath, path, err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", err, path)
	}
}

// assignSequentialOffsets derives body offsets from the running sum of stored sizes
// and checks the sum equals the data region size.
func assignSequentialOffsets(entries []EntryInfo, dataSize int) error {
	var current uint64
	for i := range entries {
		entries[i].Offset = current
		current += uint64(entries[i].StoredSize)
	}

	switch {
	case current > uint64(dataSize):
		return fmt.Errorf("%w: bodies need %d bytes, %d remain", ErrTruncatedManifest, current, dataSize)
	case current < uint64(dataSize):
		return fmt.Errorf("%w: %d trailing bytes after entry bodies", ErrSizeMismatch, uint64(dataSize)-current)
	default:
		return nil
	}
}

// truncatedManifest reclassifies a short read inside the manifest as ErrTruncatedManifest.
func truncatedManifest(err error) error {
	var de *DecodeError
	if errors.As(err, &de) && errors.Is(de.Err, ErrUnexpectedEOF) {
		de.Err = fmt.Errorf("%w: %w", ErrTruncatedManifest, de.Err)
	}

	return err
}
