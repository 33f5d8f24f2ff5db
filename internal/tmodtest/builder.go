// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

// Package tmodtest builds .tmod containers for tests and benchmarks.
// It is not a supported encoder: field overrides exist to produce broken input.
package tmodtest

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // Container format uses SHA1 for the build hash.
	"encoding/binary"

	"github.com/klauspost/compress/flate"
)

// Header field sizes.
const (
	BuildHashSize = 20
	SignatureSize = 256
)

// File is one container entry.
type File struct {
	// Size overrides the declared uncompressed length.
	Size *uint32
	// StoredSize overrides the declared stored length (modern layout only).
	StoredSize *uint32
	// Path is written as is.
	Path string
	// Data is the uncompressed content.
	Data []byte
	// Compress deflates the body on its own (modern layout only).
	Compress bool
}

// Container describes one container to encode. Zero values produce a valid
// version "1.4" container with a deflated payload.
type Container struct {
	// Count overrides the declared entry count.
	Count *uint32
	// BuildHash overrides the computed payload hash.
	BuildHash *[BuildHashSize]byte
	// PayloadLength overrides the declared payload segment length.
	PayloadLength *uint32
	// Magic defaults to "TMOD".
	Magic string
	// Version defaults to "1.4".
	Version    string
	Name       string
	ModVersion string
	Files      []File
	// Trailing is appended to the payload after the bodies.
	Trailing []byte
	// Legacy omits the stored-length column.
	Legacy bool
	// StoredPayload skips the outer deflate wrap.
	StoredPayload bool
}

// Uint32 returns a pointer to v, for overrides.
func Uint32(v uint32) *uint32 {
	return &v
}

// Payload returns the inflated payload: metadata, entry table, and bodies.
func (c Container) Payload() []byte {
	var buf bytes.Buffer
	buf.Write(AppendString(nil, c.Name))
	buf.Write(AppendString(nil, c.ModVersion))

	count := uint32(len(c.Files))
	if c.Count != nil {
		count = *c.Count
	}
	buf.Write(binary.LittleEndian.AppendUint32(nil, count))

	bodies := make([][]byte, len(c.Files))
	for i, f := range c.Files {
		body := f.Data
		if f.Compress && !c.Legacy {
			body = Deflate(f.Data)
		}
		bodies[i] = body

		size := uint32(len(f.Data))
		if f.Size != nil {
			size = *f.Size
		}

		stored := uint32(len(body))
		if f.StoredSize != nil {
			stored = *f.StoredSize
		}

		buf.Write(AppendString(nil, f.Path))
		buf.Write(binary.LittleEndian.AppendUint32(nil, size))
		if !c.Legacy {
			buf.Write(binary.LittleEndian.AppendUint32(nil, stored))
		}
	}

	for _, body := range bodies {
		buf.Write(body)
	}
	buf.Write(c.Trailing)

	return buf.Bytes()
}

// Segment returns the payload segment as it is stored after the header.
func (c Container) Segment() []byte {
	if c.StoredPayload {
		return c.Payload()
	}

	return Deflate(c.Payload())
}

// Bytes encodes the full container.
func (c Container) Bytes() []byte {
	magic := c.Magic
	if magic == "" {
		magic = "TMOD"
	}

	version := c.Version
	if version == "" {
		version = "1.4"
	}

	segment := c.Segment()
	hash := sha1.Sum(segment) //nolint:gosec // Container format uses SHA1 for the build hash.
	if c.BuildHash != nil {
		hash = *c.BuildHash
	}

	length := uint32(len(segment))
	if c.PayloadLength != nil {
		length = *c.PayloadLength
	}

	var buf bytes.Buffer
	buf.WriteString(magic)
	buf.Write(AppendString(nil, version))
	buf.Write(hash[:])
	buf.Write(make([]byte, SignatureSize))
	buf.Write(binary.LittleEndian.AppendUint32(nil, length))
	buf.Write(segment)

	return buf.Bytes()
}

// AppendString appends s with a 7-bit encoded length prefix.
func AppendString(dst []byte, s string) []byte {
	dst = AppendLength(dst, uint64(len(s)))
	return append(dst, s...)
}

// AppendLength appends v as a 7-bit encoded length prefix.
func AppendLength(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}

	return append(dst, byte(v))
}

// Deflate compresses data as one raw deflate stream.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(data); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}

	return buf.Bytes()
}
