// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"fmt"
	"os"
)

// Archive provides read-only access to a decoded tmod container.
// It keeps the inflated payload in memory; entries borrow ranges of it.
type Archive struct {
	// header is the decoded container header.
	header Header
	// metadata is the mod name and version.
	metadata Metadata
	// entries stores parsed immutable entry metadata in table order.
	entries []EntryInfo
	// data is the body region of the inflated payload.
	data []byte
	// layout is the table layout actually used (header choice or forced).
	layout Layout
}

// Open reads a container file by path and decodes it.
func Open(path string) (*Archive, error) {
	return OpenWithOptions(path, ReaderOptions{})
}

// OpenWithOptions reads a container file by path and decodes it using explicit reader options.
func OpenWithOptions(path string, opts ReaderOptions) (*Archive, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open tmod: %w", err)
	}

	return DecodeWithOptions(raw, opts)
}

// Decode decodes a container held in memory. The buffer is only read.
func Decode(raw []byte) (*Archive, error) {
	return DecodeWithOptions(raw, ReaderOptions{})
}

// DecodeWithOptions decodes a container held in memory using explicit reader options.
// Any decoding failure aborts and is reported as a *DecodeError carrying the failing offset.
func DecodeWithOptions(raw []byte, opts ReaderOptions) (*Archive, error) {
	opts.applyDefaults()
	sink := newEventSink(opts.OnEvent)

	c := NewCursor(raw)
	header, err := DecodeHeader(c)
	if err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}

	layout := header.Layout
	if opts.Layout != LayoutAuto {
		layout = opts.Layout
	}

	sink.emit(HeaderParsed{
		Version:    header.Version,
		BuildHash:  header.BuildHash,
		Layout:     layout,
		Recognized: header.Recognized,
	})

	segmentOffset := c.Position()
	segment, err := c.ReadFixed(int(header.PayloadLength))
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", withOp(err, "read payload"))
	}

	if opts.VerifyHash {
		if err := VerifyBuildHash(header, segment); err != nil {
			return nil, &DecodeError{Err: err, Op: "verify build hash", Region: RegionContainer, Offset: segmentOffset}
		}
	}

	payload, err := decodePayloadSegment(segment, opts)
	if err != nil {
		return nil, &DecodeError{Err: err, Op: "inflate payload", Region: RegionContainer, Offset: segmentOffset}
	}

	manifest, err := ParseManifest(payload, layout, ManifestOptions{
		StrictPaths:   opts.StrictPaths,
		MaxEntryCount: opts.MaxEntryCount,
	})
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	sink.emit(ManifestParsed{
		Name:       manifest.Metadata.Name,
		Version:    manifest.Metadata.Version,
		EntryCount: len(manifest.Entries),
	})

	return &Archive{
		header:   header,
		metadata: manifest.Metadata,
		entries:  manifest.Entries,
		data:     payload[manifest.DataStart:],
		layout:   layout,
	}, nil
}

// decodePayloadSegment unwraps the payload segment according to opts.Payload.
func decodePayloadSegment(segment []byte, opts ReaderOptions) ([]byte, error) {
	switch opts.Payload {
	case PayloadDeflate:
		return inflateBounded(segment, -1, opts.MaxPayloadSize)
	case PayloadStored:
		return segment, nil
	default:
		return nil, fmt.Errorf("unknown payload compression %q", opts.Payload)
	}
}

// Header returns the decoded container header.
func (a *Archive) Header() Header {
	if a == nil {
		return Header{}
	}

	return a.header
}

// Metadata returns the mod name and version.
func (a *Archive) Metadata() Metadata {
	if a == nil {
		return Metadata{}
	}

	return a.metadata
}

// Layout returns the manifest table layout used to decode the archive.
func (a *Archive) Layout() Layout {
	if a == nil {
		return LayoutAuto
	}

	return a.layout
}

// Entries returns a copy of parsed entries in table order.
func (a *Archive) Entries() []EntryInfo {
	if a == nil {
		return nil
	}

	entries := make([]EntryInfo, len(a.entries))
	copy(entries, a.entries)
	return entries
}

// Data returns the body region the entry offsets refer to. The slice must not be modified.
func (a *Archive) Data() []byte {
	if a == nil {
		return nil
	}

	return a.data
}
