// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		err  error
		want ErrorKind
	}{
		{err: nil, want: KindNone},
		{err: errors.New("other"), want: KindUnknown},
		{err: fmt.Errorf("wrap: %w", ErrBadMagic), want: KindBadMagic},
		{err: fmt.Errorf("%w: %w", ErrTruncatedManifest, ErrUnexpectedEOF), want: KindTruncatedManifest},
		{err: fmt.Errorf("%w: %w", ErrInvalidPath, ErrPathEscape), want: KindInvalidPath},
		{err: fmt.Errorf("%w: open: %w", ErrIO, errors.New("denied")), want: KindIO},
		{err: &DecodeError{Err: ErrCountOverflow, Region: RegionPayload}, want: KindCountOverflow},
		{err: context.Canceled, want: KindCanceled},
		{err: context.DeadlineExceeded, want: KindCanceled},
	}

	for _, tc := range testCases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v)=%q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestDecodeError_Format(t *testing.T) {
	t.Parallel()

	err := error(&DecodeError{Err: ErrUnexpectedEOF, Op: "read signature", Region: RegionContainer, Offset: 42})
	msg := err.Error()
	for _, want := range []string{"read signature", "container", "42", ErrUnexpectedEOF.Error()} {
		if !strings.Contains(msg, want) {
			t.Fatalf("Error()=%q, missing %q", msg, want)
		}
	}

	if !errors.Is(fmt.Errorf("outer: %w", err), ErrUnexpectedEOF) {
		t.Fatal("DecodeError must unwrap to its sentinel")
	}
	if !IsDecodeError(fmt.Errorf("outer: %w", err)) {
		t.Fatal("IsDecodeError must see through wrapping")
	}
	if IsDecodeError(fmt.Errorf("%w: entry", ErrCorruptStream)) {
		t.Fatal("plain sentinel is not a decode error")
	}
}

func TestWithOp(t *testing.T) {
	t.Parallel()

	c := NewCursor(nil)
	_, err := c.ReadU32()
	err = withOp(err, "read count")

	var de *DecodeError
	if !errors.As(err, &de) || de.Op != "read count" {
		t.Fatalf("err=%v, want op label", err)
	}

	err = withOp(err, "outer")
	if !errors.As(err, &de) || de.Op != "read count" {
		t.Fatalf("existing op overwritten: %v", err)
	}
}

func TestEventSink_NilAndSerialized(t *testing.T) {
	t.Parallel()

	var nilSink *eventSink
	nilSink.emit(RunSummary{})

	if newEventSink(nil) != nil {
		t.Fatal("newEventSink(nil) must return nil")
	}

	count := 0
	sink := newEventSink(func(Event) { count++ })
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				sink.emit(EntryExtracted{})
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	if count != 800 {
		t.Fatalf("count=%d, want 800", count)
	}
}

func TestEventNames(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		ev   Event
		want string
	}{
		{ev: HeaderParsed{}, want: "header_parsed"},
		{ev: ManifestParsed{}, want: "manifest_parsed"},
		{ev: EntryExtracted{}, want: "entry_extracted"},
		{ev: EntryFailed{}, want: "entry_failed"},
		{ev: RunSummary{}, want: "run_summary"},
	}

	for _, tc := range testCases {
		if got := tc.ev.EventName(); got != tc.want {
			t.Fatalf("%T.EventName()=%q, want %q", tc.ev, got, tc.want)
		}
	}
}
