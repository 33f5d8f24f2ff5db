// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"encoding/binary"
	"unicode/utf8"
)

// Cursor is a sequential, bounds-checked little-endian reader over an in-memory buffer.
// Reads never panic: short data fails with ErrUnexpectedEOF and the position is left unchanged.
type Cursor struct {
	buf    []byte
	pos    int
	region Region
}

// NewCursor returns a cursor over buf positioned at zero.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf, region: RegionContainer}
}

// newRegionCursor returns a cursor whose errors report offsets in region.
func newRegionCursor(buf []byte, region Region) *Cursor {
	return &Cursor{buf: buf, region: region}
}

// Position returns the number of bytes consumed so far.
func (c *Cursor) Position() int {
	return c.pos
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

// Rest returns the unread bytes without advancing.
func (c *Cursor) Rest() []byte {
	return c.buf[c.pos:]
}

// fail builds a decode error anchored at the current position.
func (c *Cursor) fail(err error) error {
	return &DecodeError{Err: err, Region: c.region, Offset: c.pos}
}

// take returns the next n bytes as a borrowed slice and advances.
func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, c.fail(ErrUnexpectedEOF)
	}

	out := c.buf[c.pos : c.pos+n : c.pos+n]
	c.pos += n
	return out, nil
}

// ReadU8 reads one byte.
func (c *Cursor) ReadU8() (byte, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// ReadU32 reads a little-endian uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads a little-endian uint64.
func (c *Cursor) ReadU64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(b), nil
}

// ReadFixed returns the next n bytes as a sub-slice of the underlying buffer.
// The slice borrows the buffer and must not be modified.
func (c *Cursor) ReadFixed(n int) ([]byte, error) {
	return c.take(n)
}

// ReadBytes returns a copy of the next n bytes.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	b, err := c.take(n)
	if err != nil {
		return nil, err
	}

	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadLength reads a 7-bit encoded length prefix (low groups first, high bit continues).
// Prefixes longer than five bytes or values above MaxInt32 fail with ErrInvalidEncoding.
func (c *Cursor) ReadLength() (int, error) {
	start := c.pos
	var value uint64
	for i := 0; i < maxPrefixBytes; i++ {
		b, err := c.ReadU8()
		if err != nil {
			c.pos = start
			return 0, err
		}

		value |= uint64(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			if value > 1<<31-1 {
				c.pos = start
				return 0, c.fail(ErrInvalidEncoding)
			}

			return int(value), nil
		}
	}

	c.pos = start
	return 0, c.fail(ErrInvalidEncoding)
}

// ReadString reads a 7-bit length prefix followed by that many UTF-8 bytes.
func (c *Cursor) ReadString() (string, error) {
	start := c.pos
	n, err := c.ReadLength()
	if err != nil {
		return "", err
	}

	b, err := c.take(n)
	if err != nil {
		c.pos = start
		return "", c.fail(ErrUnexpectedEOF)
	}

	if !utf8.Valid(b) {
		c.pos = start
		return "", c.fail(ErrInvalidEncoding)
	}

	return string(b), nil
}
