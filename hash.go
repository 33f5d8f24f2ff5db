// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // Container format uses SHA1 for the build hash.
	"encoding/hex"
	"fmt"
)

// ComputeBuildHash returns the SHA1 digest of a raw payload segment.
func ComputeBuildHash(segment []byte) [buildHashSize]byte {
	return sha1.Sum(segment) //nolint:gosec // Container format uses SHA1 for the build hash.
}

// VerifyBuildHash checks that the header build hash matches the raw payload segment.
func VerifyBuildHash(h Header, segment []byte) error {
	sum := ComputeBuildHash(segment)
	if !bytes.Equal(sum[:], h.BuildHash[:]) {
		return fmt.Errorf("%w: header %s, payload %s", ErrHashMismatch, FormatHash(h.BuildHash[:]), FormatHash(sum[:]))
	}

	return nil
}

// FormatHash returns the lower-case hex form of a hash or signature.
func FormatHash(b []byte) string {
	return hex.EncodeToString(b)
}
