// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"bytes"
	"fmt"
	"io"
	"math"
)

// findEntryByName resolves one entry by normalized path. The last duplicate wins,
// matching what extraction leaves on disk.
func (a *Archive) findEntryByName(name string) *EntryInfo {
	lookupName := NormalizePath(name)
	for i := len(a.entries) - 1; i >= 0; i-- {
		if NormalizePath(a.entries[i].Path) == lookupName {
			return &a.entries[i]
		}
	}

	return nil
}

// OpenEntry opens named entry for reading.
// Returned stream yields decompressed content for deflated entries and fails
// with ErrSizeMismatch when the inflated length differs from the declared one.
func (a *Archive) OpenEntry(name string) (io.ReadCloser, error) {
	if a == nil {
		return nil, ErrNilArchive
	}

	info := a.findEntryByName(name)
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return openEntryStream(a.data, *info)
}

// OpenEntryInfo opens entry stream by already resolved metadata.
func (a *Archive) OpenEntryInfo(info EntryInfo) (io.ReadCloser, error) {
	if a == nil {
		return nil, ErrNilArchive
	}

	return openEntryStream(a.data, info)
}

// ReadEntry reads full (decompressed) content of the named entry.
func (a *Archive) ReadEntry(name string) ([]byte, error) {
	if a == nil {
		return nil, ErrNilArchive
	}

	info := a.findEntryByName(name)
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return entryBytes(a.data, *info)
}

// entryBody returns the stored bytes of one entry as a sub-slice of data.
func entryBody(data []byte, info EntryInfo) ([]byte, error) {
	end := info.Offset + uint64(info.StoredSize)
	if end < info.Offset || end > uint64(len(data)) {
		return nil, fmt.Errorf("%w: entry %s body [%d,%d) outside %d-byte data region",
			ErrSizeMismatch, info.Path, info.Offset, end, len(data))
	}

	return data[info.Offset:end:end], nil
}

// entryBytes resolves final entry content, inflating independently compressed bodies.
func entryBytes(data []byte, info EntryInfo) ([]byte, error) {
	body, err := entryBody(data, info)
	if err != nil {
		return nil, err
	}

	if !info.IsCompressed() {
		return body, nil
	}

	outLen, err := checkedUint32ToInt(info.Size)
	if err != nil {
		return nil, fmt.Errorf("resolve output size for %s: %w", info.Path, err)
	}

	out, err := Inflate(body, outLen)
	if err != nil {
		return nil, fmt.Errorf("inflate entry %s: %w", info.Path, err)
	}

	return out, nil
}

// openEntryStream opens a streaming reader over one entry.
func openEntryStream(data []byte, info EntryInfo) (io.ReadCloser, error) {
	body, err := entryBody(data, info)
	if err != nil {
		return nil, err
	}

	if !info.IsCompressed() {
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	rc, err := newInflater(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	return &limitedInflateReader{src: rc, name: info.Path, want: int64(info.Size)}, nil
}

// checkedUint32ToInt converts uint32 to int with platform-safe overflow check.
func checkedUint32ToInt(v uint32) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %d does not fit int", ErrSizeMismatch, v)
	}

	return int(v), nil
}
