// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

/*
Package tmod decodes .tmod mod containers and extracts their files.

A container is a fixed-then-variable header (magic, version string, build
hash, signature, payload length) followed by one raw deflate block. The
inflated payload holds the mod name and version, an ordered entry table and
the entry bodies back to back. Tables written by producers older than 0.11
record only uncompressed lengths; newer tables also record stored lengths,
and an entry whose stored length differs is deflated on its own.

Decoding is strict and fatal: any malformed field aborts with a *DecodeError
carrying the byte offset. Extraction is lenient per entry: escaping paths,
size mismatches and write failures are collected in ExtractResult.

# Reading

	a, err := tmod.Open("ExampleMod.tmod")
	if err != nil {
	    return err
	}
	fmt.Println(a.Metadata().Name, a.Header().Version)
	for _, e := range a.Entries() {
	    data, _ := a.ReadEntry(e.Path)
	    // use data
	}

For metadata-only scans:

	h, err := tmod.ReadHeader("ExampleMod.tmod")
	if err != nil {
	    return err
	}
	entries, err := tmod.ListEntriesWithOptions("ExampleMod.tmod", tmod.ListOptions{
	    Rules: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "*.cs"},
	    },
	})
	_, _ = h, entries

Files produced by releases that no longer wrap the payload in deflate are
read with PayloadStored:

	a, err := tmod.OpenWithOptions("ExampleMod.tmod", tmod.ReaderOptions{
	    Payload:    tmod.PayloadStored,
	    VerifyHash: true,
	})

# Extracting

Extract writes entries in parallel and reports outcomes in table order.
Duplicate paths resolve to the last entry in the table.

	res, err := a.Extract(ctx, "out/", tmod.ExtractOptions{
	    MaxWorkers: 4,
	    OnEvent: func(ev tmod.Event) {
	        // render progress
	    },
	})
	if err != nil {
	    return err
	}
	for _, f := range res.Failures() {
	    log.Printf("%s: %s", f.Entry.Path, f.Kind)
	}

With Strict set, the first entry path escaping the output root aborts the
run before any file is written.
*/
package tmod
