// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for tmod operations. Use errors.Is in callers.
var (
	// ErrUnexpectedEOF means fewer bytes remain than a read requires.
	ErrUnexpectedEOF = errors.New("unexpected end of data")
	// ErrInvalidEncoding means a string is not valid UTF-8 or its length prefix is malformed.
	ErrInvalidEncoding = errors.New("invalid encoding")
	// ErrBadMagic means the container does not start with the TMOD tag.
	ErrBadMagic = errors.New("bad magic: not a tmod container")
	// ErrUnsupportedVersion means the header version string is not a parseable version.
	ErrUnsupportedVersion = errors.New("unsupported format version")
	// ErrCorruptStream means compressed data is malformed or truncated.
	ErrCorruptStream = errors.New("corrupt compressed stream")
	// ErrSizeMismatch means a declared size disagrees with the actual data size.
	ErrSizeMismatch = errors.New("size mismatch")
	// ErrTruncatedManifest means the payload is shorter than its file table requires.
	ErrTruncatedManifest = errors.New("truncated manifest")
	// ErrCountOverflow means the declared entry count is implausible.
	ErrCountOverflow = errors.New("entry count overflow")
	// ErrInvalidPath means an entry path is empty or structurally invalid.
	ErrInvalidPath = errors.New("invalid entry path")
	// ErrPathEscape means an entry path resolves outside the output root.
	ErrPathEscape = errors.New("entry path escapes output root")
	// ErrIO means a filesystem create or write failed.
	ErrIO = errors.New("io failure")
	// ErrHashMismatch means the build hash does not match the payload segment.
	ErrHashMismatch = errors.New("build hash mismatch")
	// ErrEntryNotFound means the entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrInvalidRules means one or more selection rules are invalid.
	ErrInvalidRules = errors.New("invalid selection rules")
	// ErrNilArchive means the archive is nil.
	ErrNilArchive = errors.New("archive is nil")
)

// Region names the buffer a decode offset refers to.
type Region string

// Decode regions.
const (
	// RegionContainer is the raw container bytes.
	RegionContainer Region = "container"
	// RegionPayload is the inflated payload holding manifest and file bodies.
	RegionPayload Region = "payload"
)

// DecodeError reports a decoding failure together with the byte offset where it occurred.
// It unwraps to one of the sentinel errors above.
type DecodeError struct {
	// Err is the underlying sentinel (possibly wrapped).
	Err error
	// Op names the field or step being decoded.
	Op string
	// Region is the buffer Offset refers to.
	Region Region
	// Offset is the byte position where the failing read started.
	Offset int
}

// Error implements error.
func (e *DecodeError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s offset %d: %v", e.Region, e.Offset, e.Err)
	}

	return fmt.Sprintf("%s: %s offset %d: %v", e.Op, e.Region, e.Offset, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// withOp labels a decode error with the operation that failed.
// Non-decode errors pass through unchanged.
func withOp(err error, op string) error {
	var de *DecodeError
	if errors.As(err, &de) && de.Op == "" {
		de.Op = op
	}

	return err
}

// ErrorKind is a stable, machine-friendly name of an error class.
type ErrorKind string

// Error kinds reported in events and CLI output.
const (
	KindNone              ErrorKind = ""
	KindUnexpectedEOF     ErrorKind = "unexpected_eof"
	KindInvalidEncoding   ErrorKind = "invalid_encoding"
	KindBadMagic          ErrorKind = "bad_magic"
	KindUnsupportedVer    ErrorKind = "unsupported_version"
	KindCorruptStream     ErrorKind = "corrupt_stream"
	KindSizeMismatch      ErrorKind = "size_mismatch"
	KindTruncatedManifest ErrorKind = "truncated_manifest"
	KindCountOverflow     ErrorKind = "count_overflow"
	KindInvalidPath       ErrorKind = "invalid_path"
	KindPathEscape        ErrorKind = "path_escape"
	KindIO                ErrorKind = "io_failure"
	KindHashMismatch      ErrorKind = "hash_mismatch"
	KindCanceled          ErrorKind = "canceled"
	KindUnknown           ErrorKind = "unknown"
)

// kindTable maps sentinels to kinds; the outermost classification comes first
// for chains carrying several sentinels.
var kindTable = []struct {
	err  error
	kind ErrorKind
}{
	{ErrTruncatedManifest, KindTruncatedManifest},
	{ErrInvalidPath, KindInvalidPath},
	{ErrPathEscape, KindPathEscape},
	{ErrUnexpectedEOF, KindUnexpectedEOF},
	{ErrInvalidEncoding, KindInvalidEncoding},
	{ErrBadMagic, KindBadMagic},
	{ErrUnsupportedVersion, KindUnsupportedVer},
	{ErrCorruptStream, KindCorruptStream},
	{ErrSizeMismatch, KindSizeMismatch},
	{ErrCountOverflow, KindCountOverflow},
	{ErrHashMismatch, KindHashMismatch},
	{ErrIO, KindIO},
	{context.Canceled, KindCanceled},
	{context.DeadlineExceeded, KindCanceled},
}

// KindOf classifies err. It returns KindNone for nil and KindUnknown for unclassified errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	for _, k := range kindTable {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	return KindUnknown
}

// IsDecodeError reports whether err came from the decoding stage, which is fatal for a run.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
