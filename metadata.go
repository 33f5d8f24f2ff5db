// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"fmt"
	"os"
)

// ReadHeader reads a container file and decodes only its header.
func ReadHeader(path string) (Header, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Header{}, fmt.Errorf("open tmod: %w", err)
	}

	return ReadHeaderFromBytes(raw)
}

// ReadHeaderFromBytes decodes only the container header; the payload is not inflated.
func ReadHeaderFromBytes(raw []byte) (Header, error) {
	h, err := DecodeHeader(NewCursor(raw))
	if err != nil {
		return Header{}, fmt.Errorf("decode header: %w", err)
	}

	return h, nil
}

// ListEntries reads a container file and returns its entry table without touching bodies.
func ListEntries(path string) ([]EntryInfo, error) {
	return ListEntriesWithOptions(path, ListOptions{})
}

// ListEntriesWithOptions reads a container file and returns the selected entries in table order.
func ListEntriesWithOptions(path string, opts ListOptions) ([]EntryInfo, error) {
	a, err := OpenWithOptions(path, opts.ReaderOptions)
	if err != nil {
		return nil, err
	}

	return a.List(opts)
}

// List returns entries selected by rules, prefix, and minimum size, in table order.
func (a *Archive) List(opts ListOptions) ([]EntryInfo, error) {
	if a == nil {
		return nil, ErrNilArchive
	}

	return filterEntries(a.Entries(), opts)
}
