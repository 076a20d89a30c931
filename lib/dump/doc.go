// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

// Package dump reads and writes .xrec recording containers, the
// portable on-disk form of a recording session.
//
// A container is a CBOR sequence (one [Manifest] record, then any
// number of [Series] records) wrapped in a small binary envelope:
//
//	[magic 8B] [compression 1B] [encryption 1B] [salt 16B if encrypted]
//	[payload] [BLAKE3-256 digest 32B]
//
// The payload is the CBOR sequence, compressed (zstd by default, lz4
// or none selectable) and then optionally encrypted with
// XChaCha20-Poly1305 under a key derived from a 32-byte key file via
// HKDF-SHA256 and the random per-container salt. The trailing digest
// covers every byte before it, so corruption is detected before any
// decryption or decompression is attempted.
//
// CBOR records use Core Deterministic Encoding: the same recording
// always produces identical container bytes (modulo salt and nonce
// when encrypting).
package dump
