// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
)

// inflateGrowCap bounds the buffer reserved before any byte is inflated.
const inflateGrowCap = 1 << 20

var (
	// inflaterPool reuses deflate decoders across blocks and entries.
	inflaterPool = sync.Pool{
		New: func() any {
			return flate.NewReader(bytes.NewReader(nil))
		},
	}
)

// pooledInflater wraps a pooled decoder so Close returns it to the pool.
type pooledInflater struct {
	io.ReadCloser
	once sync.Once
}

// Close releases the decoder back to the pool.
func (p *pooledInflater) Close() error {
	var err error
	p.once.Do(func() {
		err = p.ReadCloser.Close()
		inflaterPool.Put(p.ReadCloser)
	})

	return err
}

// newInflater returns a raw deflate decoder reading from src.
func newInflater(src io.Reader) (io.ReadCloser, error) {
	rc := inflaterPool.Get().(io.ReadCloser) //nolint:forcetypeassert // pool contains only flate readers
	if err := rc.(flate.Resetter).Reset(src, nil); err != nil {
		return nil, fmt.Errorf("%w: reset decoder: %w", ErrCorruptStream, err)
	}

	return &pooledInflater{ReadCloser: rc}, nil
}

// Inflate decompresses one raw deflate block.
// With expectedSize >= 0 the result must be exactly expectedSize bytes, otherwise ErrSizeMismatch.
// With expectedSize < 0 the size is unknown and inflation is bounded by DefaultMaxPayloadSize.
func Inflate(compressed []byte, expectedSize int) ([]byte, error) {
	return inflateBounded(compressed, expectedSize, DefaultMaxPayloadSize)
}

// inflateBounded decompresses one block reading at most one byte past the known or maximum size.
func inflateBounded(compressed []byte, expectedSize int, maxSize int) ([]byte, error) {
	limit := maxSize
	if expectedSize >= 0 {
		limit = expectedSize
	}

	rc, err := newInflater(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	// declared sizes come from the input, so the buffer grows with real output
	capHint := min(max(len(compressed)*4, 4096), limit, inflateGrowCap)

	var out bytes.Buffer
	out.Grow(capHint)
	n, err := out.ReadFrom(io.LimitReader(rc, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptStream, err)
	}

	if n > int64(limit) {
		if expectedSize >= 0 {
			return nil, fmt.Errorf("%w: inflated more than %d bytes", ErrSizeMismatch, expectedSize)
		}

		return nil, fmt.Errorf("%w: inflated size exceeds limit %d", ErrCorruptStream, maxSize)
	}

	if expectedSize >= 0 && n != int64(expectedSize) {
		return nil, fmt.Errorf("%w: inflated %d bytes, want %d", ErrSizeMismatch, n, expectedSize)
	}

	return out.Bytes(), nil
}

// limitedInflateReader streams one entry body and fails when its size differs from want.
type limitedInflateReader struct {
	src  io.ReadCloser
	name string
	want int64
	got  int64
}

// Read implements io.Reader.
func (r *limitedInflateReader) Read(p []byte) (int, error) {
	if r.got >= r.want {
		// probe one byte to catch oversized streams
		var probe [1]byte
		n, err := r.src.Read(probe[:])
		if n > 0 {
			return 0, fmt.Errorf("%w: entry %s inflates past %d bytes", ErrSizeMismatch, r.name, r.want)
		}
		if err == io.EOF {
			return 0, io.EOF
		}
		if err != nil {
			return 0, fmt.Errorf("%w: entry %s: %w", ErrCorruptStream, r.name, err)
		}

		return 0, nil
	}

	if int64(len(p)) > r.want-r.got {
		p = p[:r.want-r.got]
	}

	n, err := r.src.Read(p)
	r.got += int64(n)
	if err == io.EOF {
		if r.got != r.want {
			return n, fmt.Errorf("%w: entry %s inflated %d bytes, want %d", ErrSizeMismatch, r.name, r.got, r.want)
		}

		return n, io.EOF
	}
	if err != nil {
		return n, fmt.Errorf("%w: entry %s: %w", ErrCorruptStream, r.name, err)
	}

	return n, nil
}

// Close releases the decoder.
func (r *limitedInflateReader) Close() error {
	return r.src.Close()
}
