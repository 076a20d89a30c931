// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package dump

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"github.com/bmario/scorep-plugin-x86-adapt/lib/secret"
)

// Options configures a Writer or Reader.
type Options struct {
	// Compression selects the payload compression. The zero value is
	// CompressionNone; operator surfaces default to zstd through
	// ParseCompressionTag. Readers take the tag from the container.
	Compression CompressionTag

	// Key enables payload encryption when non-nil. The buffer is
	// borrowed: the caller keeps ownership and closes it after the
	// writer (or reader) is done.
	Key *secret.Buffer
}

// Writer assembles a .xrec container. Records are buffered in memory
// and the envelope (compression, encryption, digest) is applied on
// Close; nothing reaches the underlying writer before then. Timelines
// are bounded by the recording duration, so buffering a whole
// container is cheap compared to streaming envelope formats.
//
// Writer is not safe for concurrent use.
type Writer struct {
	destination io.Writer
	options     Options

	payload       bytes.Buffer
	wroteManifest bool
	closed        bool
}

// NewWriter prepares a container writer targeting w.
func NewWriter(w io.Writer, options Options) *Writer {
	return &Writer{destination: w, options: options}
}

// WriteManifest encodes the manifest record. It must be called exactly
// once, before any WriteSeries.
func (w *Writer) WriteManifest(manifest *Manifest) error {
	if w.wroteManifest {
		return fmt.Errorf("dump: manifest already written")
	}
	manifest.FormatVersion = FormatVersion
	if err := w.encode(manifest); err != nil {
		return fmt.Errorf("dump: encoding manifest: %w", err)
	}
	w.wroteManifest = true
	return nil
}

// WriteSeries encodes one timeline record.
func (w *Writer) WriteSeries(series *Series) error {
	if !w.wroteManifest {
		return fmt.Errorf("dump: manifest must be written before series")
	}
	if len(series.Times) != len(series.Values) {
		return fmt.Errorf("dump: series %s cpu %d has %d times but %d values",
			series.Knob, series.CPU, len(series.Times), len(series.Values))
	}
	if err := w.encode(series); err != nil {
		return fmt.Errorf("dump: encoding series %s cpu %d: %w", series.Knob, series.CPU, err)
	}
	return nil
}

func (w *Writer) encode(record any) error {
	if w.closed {
		return fmt.Errorf("dump: writer is closed")
	}
	data, err := encMode.Marshal(record)
	if err != nil {
		return err
	}
	w.payload.Write(data)
	return nil
}

// Close compresses (and optionally encrypts) the buffered records,
// writes the container envelope and payload, and appends the BLAKE3
// digest trailer. Close does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if !w.wroteManifest {
		return fmt.Errorf("dump: container needs a manifest")
	}

	payload, err := compressPayload(w.payload.Bytes(), w.options.Compression)
	if err != nil {
		return err
	}

	encryption := EncryptionNone
	var salt []byte
	if w.options.Key != nil {
		encryption = EncryptionXChaCha20
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return fmt.Errorf("dump: generating salt: %w", err)
		}
	}

	header := buildHeader(w.options.Compression, encryption, salt)
	if encryption == EncryptionXChaCha20 {
		payload, err = encryptPayload(payload, w.options.Key, salt, header)
		if err != nil {
			return err
		}
	}

	hasher := blake3.New()
	body := io.MultiWriter(hasher, w.destination)
	if _, err := body.Write(header); err != nil {
		return fmt.Errorf("dump: writing header: %w", err)
	}
	if _, err := body.Write(payload); err != nil {
		return fmt.Errorf("dump: writing payload: %w", err)
	}
	if _, err := w.destination.Write(hasher.Sum(nil)); err != nil {
		return fmt.Errorf("dump: writing digest: %w", err)
	}
	return nil
}

// buildHeader assembles the envelope header bytes: magic, the two
// tags, and the salt when encrypting. The header doubles as the AAD
// for payload encryption.
func buildHeader(compression CompressionTag, encryption EncryptionTag, salt []byte) []byte {
	header := make([]byte, 0, len(Magic)+2+len(salt))
	header = append(header, Magic[:]...)
	header = append(header, byte(compression), byte(encryption))
	header = append(header, salt...)
	return header
}
