// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"fmt"
	"time"

	"github.com/woozymasta/pathrules"
)

// Internal binary layout and format limits.
const (
	magicSize      = 4   // "TMOD" tag
	buildHashSize  = 20  // SHA1 of payload segment
	signatureSize  = 256 // opaque RSA signature block
	maxPrefixBytes = 5   // max bytes of a 7-bit encoded length
	maxNameLen     = 4096
)

// Magic is the fixed tag every container starts with.
var Magic = [magicSize]byte{'T', 'M', 'O', 'D'}

// Default decoder and extractor tuning values.
const (
	// DefaultMaxPayloadSize bounds inflation of the outer payload when no size is declared.
	DefaultMaxPayloadSize = 1 << 30
	// DefaultMaxEntryCount bounds the declared manifest entry count.
	DefaultMaxEntryCount = 1 << 20
)

// Layout selects the manifest table layout. It is chosen once from Header.Version.
type Layout uint8

// Manifest table layouts.
const (
	// LayoutAuto selects the layout from the header version.
	LayoutAuto Layout = iota
	// LayoutLegacy tables record only uncompressed lengths; bodies are stored raw.
	LayoutLegacy
	// LayoutModern tables record uncompressed and stored lengths; bodies may be deflated per entry.
	LayoutModern
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case LayoutAuto:
		return "auto"
	case LayoutLegacy:
		return "legacy"
	case LayoutModern:
		return "modern"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(l))
	}
}

// ParseLayout parses a layout from its string representation.
func ParseLayout(name string) (Layout, error) {
	switch name {
	case "", "auto":
		return LayoutAuto, nil
	case "legacy":
		return LayoutLegacy, nil
	case "modern":
		return LayoutModern, nil
	default:
		return LayoutAuto, fmt.Errorf("unknown layout %q", name)
	}
}

// hasStoredLength reports whether entries carry a separate stored-length column.
func (l Layout) hasStoredLength() bool {
	return l == LayoutModern
}

// minEntrySize is the smallest number of bytes one table record can occupy.
func (l Layout) minEntrySize() int {
	// one-byte length prefix + at least one path byte + u32 length
	size := 1 + 1 + 4
	if l.hasStoredLength() {
		size += 4
	}

	return size
}

// PayloadCompression describes how the payload segment after the header is wrapped.
type PayloadCompression string

// Payload segment encodings.
const (
	// PayloadDeflate means the payload segment is one raw deflate block.
	PayloadDeflate PayloadCompression = "deflate"
	// PayloadStored means the payload segment is used as-is.
	PayloadStored PayloadCompression = "stored"
)

// Header is the decoded fixed-then-variable container header.
type Header struct {
	// Version is the tool/format version string as stored.
	Version string `json:"version" yaml:"version"`
	// Magic is the 4-byte container tag.
	Magic [magicSize]byte `json:"-" yaml:"-"`
	// BuildHash is the opaque provenance hash.
	BuildHash [buildHashSize]byte `json:"-" yaml:"-"`
	// Signature is the opaque signature block; it is never verified.
	Signature [signatureSize]byte `json:"-" yaml:"-"`
	// PayloadLength is the exact byte length of the payload segment.
	PayloadLength uint32 `json:"payload_length" yaml:"payload_length"`
	// Layout is the manifest table layout selected from Version.
	Layout Layout `json:"-" yaml:"-"`
	// Recognized is false for parseable versions newer than any known release.
	Recognized bool `json:"recognized" yaml:"recognized"`
}

// Metadata is the mod name and version from the manifest.
type Metadata struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// EntryInfo describes one file recorded in the manifest table.
type EntryInfo struct {
	// Path is the entry path as stored in the table.
	Path string `json:"path" yaml:"path"`
	// Offset is the byte offset of the stored body inside the data region.
	Offset uint64 `json:"offset" yaml:"offset"`
	// Size is the uncompressed length.
	Size uint32 `json:"size" yaml:"size"`
	// StoredSize is the number of bytes the body occupies in the data region.
	StoredSize uint32 `json:"stored_size" yaml:"stored_size"`
}

// IsCompressed reports whether the body is independently deflated.
func (e *EntryInfo) IsCompressed() bool {
	return e.StoredSize != e.Size
}

// Manifest is the parsed manifest: metadata, ordered entry table, and data region start.
type Manifest struct {
	Metadata Metadata
	Entries  []EntryInfo
	// DataStart is the offset of the first body byte in the inflated payload.
	DataStart int
}

// ManifestOptions configures manifest parsing.
type ManifestOptions struct {
	// StrictPaths rejects escaping entry paths with ErrInvalidPath at parse time
	// instead of leaving them for per-entry ErrPathEscape during extraction.
	StrictPaths bool
	// MaxEntryCount bounds the declared entry count (zero means DefaultMaxEntryCount).
	MaxEntryCount uint32
}

// ReaderOptions configures container decoding.
type ReaderOptions struct {
	// OnEvent receives HeaderParsed and ManifestParsed events.
	OnEvent func(Event) `json:"-" yaml:"-"`
	// Payload describes how the payload segment is wrapped (default PayloadDeflate).
	Payload PayloadCompression `json:"payload,omitempty" yaml:"payload,omitempty"`
	// Layout forces a table layout; LayoutAuto selects it from the header version.
	Layout Layout `json:"-" yaml:"-"`
	// MaxPayloadSize bounds the inflated payload size (zero means DefaultMaxPayloadSize).
	MaxPayloadSize int `json:"max_payload_size,omitempty" yaml:"max_payload_size,omitempty"`
	// MaxEntryCount bounds the declared entry count (zero means DefaultMaxEntryCount).
	MaxEntryCount uint32 `json:"max_entry_count,omitempty" yaml:"max_entry_count,omitempty"`
	// StrictPaths fails decoding on escaping entry paths.
	StrictPaths bool `json:"strict_paths,omitempty" yaml:"strict_paths,omitempty"`
	// VerifyHash checks the build hash against the payload segment.
	VerifyHash bool `json:"verify_hash,omitempty" yaml:"verify_hash,omitempty"`
}

// ListOptions configures metadata-only listing.
type ListOptions struct {
	ReaderOptions
	// Rules selects entries by path (empty means all).
	Rules []pathrules.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	// MatcherOptions control rule matching.
	MatcherOptions pathrules.MatcherOptions `json:"matcher_options,omitzero" yaml:"matcher_options,omitzero"`
	// PathPrefix keeps entries under this directory prefix.
	PathPrefix string `json:"path_prefix,omitempty" yaml:"path_prefix,omitempty"`
	// MinSize drops entries whose uncompressed size is smaller.
	MinSize uint32 `json:"min_size,omitempty" yaml:"min_size,omitempty"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// OnEvent receives EntryExtracted, EntryFailed, and RunSummary events.
	// Calls are serialized; entry events may arrive out of table order when MaxWorkers > 1.
	OnEvent func(Event) `json:"-" yaml:"-"`
	// FileMode controls output file creation policy.
	FileMode ExtractFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// Rules selects entries by path (empty means all).
	Rules []pathrules.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	// MatcherOptions control rule matching.
	MatcherOptions pathrules.MatcherOptions `json:"matcher_options,omitzero" yaml:"matcher_options,omitzero"`
	// PathPrefix keeps entries under this directory prefix.
	PathPrefix string `json:"path_prefix,omitempty" yaml:"path_prefix,omitempty"`
	// MaxWorkers is number of extraction workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// Strict aborts the run on the first escaping entry path before anything is written.
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty"`
	// SanitizeNames rewrites entry path segments to filesystem-safe names.
	SanitizeNames bool `json:"sanitize_names,omitempty" yaml:"sanitize_names,omitempty"`
}

// ExtractFileMode controls output file open behavior during extraction.
type ExtractFileMode string

// Output file creation policies for extraction.
const (
	// ExtractFileModeAuto creates missing files and replaces existing ones.
	ExtractFileModeAuto ExtractFileMode = "auto"
	// ExtractFileModeOverwriteSmart replaces existing files. Entries are staged and
	// renamed into place, so it behaves like truncate; the name is kept for configs.
	ExtractFileModeOverwriteSmart ExtractFileMode = "overwrite_smart"
	// ExtractFileModeTruncate replaces existing files and creates missing ones.
	ExtractFileModeTruncate ExtractFileMode = "truncate"
	// ExtractFileModeCreateOnly creates files only when absent and fails on existing files.
	// Duplicate entries within one run still overwrite the file written earlier in that run.
	ExtractFileModeCreateOnly ExtractFileMode = "create_only"
)

// valid reports whether m is a known file mode.
func (m ExtractFileMode) valid() bool {
	switch m {
	case ExtractFileModeAuto, ExtractFileModeOverwriteSmart, ExtractFileModeTruncate, ExtractFileModeCreateOnly:
		return true
	default:
		return false
	}
}

// EntryOutcome is the per-entry extraction result.
type EntryOutcome struct {
	// Err is nil on success.
	Err error `json:"-" yaml:"-"`
	// Entry is the table entry.
	Entry EntryInfo `json:"entry" yaml:"entry"`
	// OutputPath is the resolved destination (empty when the path was rejected).
	OutputPath string `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	// Kind classifies Err.
	Kind ErrorKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	// Index is the entry position in the table.
	Index int `json:"index" yaml:"index"`
	// Written is the number of bytes written.
	Written int64 `json:"written" yaml:"written"`
}

// OK reports whether the entry was written.
func (o EntryOutcome) OK() bool {
	return o.Err == nil
}

// ExtractResult aggregates one extraction run. Outcomes are in table order.
type ExtractResult struct {
	Outcomes     []EntryOutcome `json:"outcomes" yaml:"outcomes"`
	FilesWritten int            `json:"files_written" yaml:"files_written"`
	BytesWritten int64          `json:"bytes_written" yaml:"bytes_written"`
	Duration     time.Duration  `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Failures returns failed outcomes in table order.
func (r *ExtractResult) Failures() []EntryOutcome {
	if r == nil {
		return nil
	}

	var out []EntryOutcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}

	return out
}

// applyDefaults fills zero-valued reader options with defaults.
func (opts *ReaderOptions) applyDefaults() {
	if opts.Payload == "" {
		opts.Payload = PayloadDeflate
	}

	if opts.MaxPayloadSize <= 0 {
		opts.MaxPayloadSize = DefaultMaxPayloadSize
	}

	if opts.MaxEntryCount == 0 {
		opts.MaxEntryCount = DefaultMaxEntryCount
	}
}

// applyDefaults fills zero-valued manifest options with defaults.
func (opts *ManifestOptions) applyDefaults() {
	if opts.MaxEntryCount == 0 {
		opts.MaxEntryCount = DefaultMaxEntryCount
	}
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.FileMode == "" {
		opts.FileMode = ExtractFileModeAuto
	}
}
