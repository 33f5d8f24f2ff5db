// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"sync"
	"time"
)

// Event is a diagnostics record emitted while decoding or extracting.
// Rendering and filtering are left to the receiver.
type Event interface {
	// EventName returns a stable event name.
	EventName() string
}

// HeaderParsed is emitted once the container header is decoded.
type HeaderParsed struct {
	Version    string
	BuildHash  [buildHashSize]byte
	Layout     Layout
	Recognized bool
}

// ManifestParsed is emitted once the manifest table is decoded.
type ManifestParsed struct {
	Name       string
	Version    string
	EntryCount int
}

// EntryExtracted is emitted after one entry is written.
type EntryExtracted struct {
	Path         string
	OutputPath   string
	BytesWritten int64
}

// EntryFailed is emitted when one entry cannot be extracted.
type EntryFailed struct {
	Err  error
	Path string
	Kind ErrorKind
}

// RunSummary is emitted at the end of an extraction run, including aborted ones.
type RunSummary struct {
	FilesWritten int
	BytesWritten int64
	Failures     int
	Duration     time.Duration
}

// EventName returns "header_parsed".
func (HeaderParsed) EventName() string { return "header_parsed" }

// EventName returns "manifest_parsed".
func (ManifestParsed) EventName() string { return "manifest_parsed" }

// EventName returns "entry_extracted".
func (EntryExtracted) EventName() string { return "entry_extracted" }

// EventName returns "entry_failed".
func (EntryFailed) EventName() string { return "entry_failed" }

// EventName returns "run_summary".
func (RunSummary) EventName() string { return "run_summary" }

// eventSink serializes calls to a user callback; a nil sink drops events.
type eventSink struct {
	fn func(Event)
	mu sync.Mutex
}

// newEventSink wraps fn; it returns nil when fn is nil.
func newEventSink(fn func(Event)) *eventSink {
	if fn == nil {
		return nil
	}

	return &eventSink{fn: fn}
}

// emit delivers one event.
func (s *eventSink) emit(ev Event) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn(ev)
}
