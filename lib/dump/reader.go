// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package dump

import (
	"bytes"
	"crypto/subtle"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// digestSize is the length of the trailing BLAKE3-256 digest.
const digestSize = 32

// Reader decodes a .xrec container. The whole container is read and
// its digest verified up front, before any decryption or
// decompression; a corrupt file never reaches the cipher or the
// decompressor.
type Reader struct {
	manifest    Manifest
	decoder     *cbor.Decoder
	compression CompressionTag
	encrypted   bool
}

// NewReader reads and verifies a container from r. options.Key is
// required for encrypted containers and ignored otherwise;
// options.Compression is ignored (the container header decides).
func NewReader(r io.Reader, options Options) (*Reader, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("dump: reading container: %w", err)
	}

	// Smallest possible container: magic, two tags, digest.
	if len(raw) < len(Magic)+2+digestSize {
		return nil, ErrTruncated
	}
	if !bytes.Equal(raw[:len(Magic)], Magic[:]) {
		return nil, ErrBadMagic
	}

	body, trailer := raw[:len(raw)-digestSize], raw[len(raw)-digestSize:]
	digest := blake3.Sum256(body)
	if subtle.ConstantTimeCompare(digest[:], trailer) != 1 {
		return nil, ErrDigestMismatch
	}

	compression := CompressionTag(raw[len(Magic)])
	encryption := EncryptionTag(raw[len(Magic)+1])
	payload := body[len(Magic)+2:]

	var salt []byte
	switch encryption {
	case EncryptionNone:
	case EncryptionXChaCha20:
		if options.Key == nil {
			return nil, ErrEncrypted
		}
		if len(payload) < saltSize {
			return nil, ErrTruncated
		}
		salt, payload = payload[:saltSize], payload[saltSize:]
		header := buildHeader(compression, encryption, salt)
		payload, err = decryptPayload(payload, options.Key, salt, header)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("dump: unsupported encryption tag %d", encryption)
	}

	payload, err = decompressPayload(payload, compression)
	if err != nil {
		return nil, err
	}

	reader := &Reader{
		decoder:     decMode.NewDecoder(bytes.NewReader(payload)),
		compression: compression,
		encrypted:   encryption != EncryptionNone,
	}
	if err := reader.decoder.Decode(&reader.manifest); err != nil {
		return nil, fmt.Errorf("dump: decoding manifest: %w", err)
	}
	if reader.manifest.FormatVersion > FormatVersion {
		return nil, fmt.Errorf("dump: container format version %d is newer than this reader (%d)",
			reader.manifest.FormatVersion, FormatVersion)
	}
	return reader, nil
}

// Manifest returns the container's session metadata.
func (r *Reader) Manifest() *Manifest { return &r.manifest }

// Compression returns the container's payload compression tag.
func (r *Reader) Compression() CompressionTag { return r.compression }

// Encrypted reports whether the container payload was encrypted.
func (r *Reader) Encrypted() bool { return r.encrypted }

// Next decodes the next series record, returning io.EOF after the
// last one.
func (r *Reader) Next() (*Series, error) {
	var series Series
	if err := r.decoder.Decode(&series); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("dump: decoding series: %w", err)
	}
	if len(series.Times) != len(series.Values) {
		return nil, fmt.Errorf("dump: series %s cpu %d has %d times but %d values",
			series.Knob, series.CPU, len(series.Times), len(series.Values))
	}
	return &series, nil
}

// Open reads a container file.
func Open(path string, options Options) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dump: opening %s: %w", path, err)
	}
	defer file.Close()
	return NewReader(file, options)
}

// Verify checks a container file's digest and envelope without a key.
// Encrypted containers verify up to (but not including) decryption.
func Verify(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("dump: opening %s: %w", path, err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("dump: reading %s: %w", path, err)
	}
	if len(raw) < len(Magic)+2+digestSize {
		return ErrTruncated
	}
	if !bytes.Equal(raw[:len(Magic)], Magic[:]) {
		return ErrBadMagic
	}
	body, trailer := raw[:len(raw)-digestSize], raw[len(raw)-digestSize:]
	digest := blake3.Sum256(body)
	if subtle.ConstantTimeCompare(digest[:], trailer) != 1 {
		return ErrDigestMismatch
	}
	return nil
}
