// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package dump

import (
	"crypto/rand"
	"encoding/binary"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/bmario/scorep-plugin-x86-adapt/lib/secret"
)

// saltSize is the length of the random per-container HKDF salt.
const saltSize = 16

// hkdfInfo is the HKDF-SHA256 info string for container payload keys.
// Changing it invalidates every encrypted container.
var hkdfInfo = []byte("x86adapt.rec.enc.v1")

// zstdEncoder and zstdDecoder are shared across calls; both are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("dump: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("dump: zstd decoder initialization failed: " + err.Error())
	}
}

// compressPayload compresses the CBOR payload with the tagged
// algorithm. Unlike a chunk store, a container never falls back to
// "none" for incompressible data: the tag is an operator choice and
// the reader trusts it.
func compressPayload(payload []byte, tag CompressionTag) ([]byte, error) {
	switch tag {
	case CompressionNone:
		return payload, nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(payload, nil), nil
	case CompressionLZ4:
		compressed := make([]byte, lz4.CompressBlockBound(len(payload)))
		var compressor lz4.Compressor
		written, err := compressor.CompressBlock(payload, compressed)
		if err != nil {
			return nil, fmt.Errorf("dump: lz4 compress: %w", err)
		}
		if written == 0 {
			// Incompressible input: CompressBlock signals "store raw"
			// with a zero length. Keep the payload byte-for-byte and
			// let the size prefix disambiguate.
			compressed, written = payload, len(payload)
		}
		// LZ4 blocks do not carry the uncompressed size; prefix it.
		framed := make([]byte, 8+written)
		binary.LittleEndian.PutUint64(framed[:8], uint64(len(payload)))
		copy(framed[8:], compressed[:written])
		return framed, nil
	default:
		return nil, fmt.Errorf("dump: unsupported compression tag %d", tag)
	}
}

// decompressPayload reverses compressPayload.
func decompressPayload(compressed []byte, tag CompressionTag) ([]byte, error) {
	switch tag {
	case CompressionNone:
		return compressed, nil
	case CompressionZstd:
		payload, err := zstdDecoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("dump: zstd decompress: %w", err)
		}
		return payload, nil
	case CompressionLZ4:
		if len(compressed) < 8 {
			return nil, ErrTruncated
		}
		size := binary.LittleEndian.Uint64(compressed[:8])
		if size > 1<<40 {
			return nil, fmt.Errorf("dump: implausible lz4 payload size %d", size)
		}
		block := compressed[8:]
		if uint64(len(block)) == size {
			// Stored raw (incompressible at write time).
			return block, nil
		}
		payload := make([]byte, size)
		read, err := lz4.UncompressBlock(block, payload)
		if err != nil {
			return nil, fmt.Errorf("dump: lz4 decompress: %w", err)
		}
		if uint64(read) != size {
			return nil, fmt.Errorf("dump: lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return payload, nil
	default:
		return nil, fmt.Errorf("dump: unsupported compression tag %d", tag)
	}
}

// deriveKey expands the key file secret into the container payload key
// using HKDF-SHA256 with the per-container salt.
func deriveKey(key *secret.Buffer, salt []byte) (*secret.Buffer, error) {
	reader := hkdf.New(sha256.New, key.Bytes(), salt, hkdfInfo)
	derived := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		secret.Zero(derived)
		return nil, fmt.Errorf("dump: HKDF key derivation failed: %w", err)
	}
	return secret.NewFromBytes(derived)
}

// encryptPayload seals the compressed payload with XChaCha20-Poly1305.
// The output is nonce || ciphertext+tag; aad binds the envelope header
// (magic, tags, salt) so header tampering fails authentication.
func encryptPayload(payload []byte, key *secret.Buffer, salt, aad []byte) ([]byte, error) {
	derived, err := deriveKey(key, salt)
	if err != nil {
		return nil, err
	}
	defer derived.Close()

	aead, err := chacha20poly1305.NewX(derived.Bytes())
	if err != nil {
		return nil, fmt.Errorf("dump: creating XChaCha20-Poly1305 cipher: %w", err)
	}

	output := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(payload)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, output[:chacha20poly1305.NonceSizeX]); err != nil {
		return nil, fmt.Errorf("dump: generating nonce: %w", err)
	}
	return aead.Seal(output, output[:chacha20poly1305.NonceSizeX], payload, aad), nil
}

// decryptPayload opens a payload produced by encryptPayload.
func decryptPayload(sealed []byte, key *secret.Buffer, salt, aad []byte) ([]byte, error) {
	if len(sealed) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, ErrTruncated
	}

	derived, err := deriveKey(key, salt)
	if err != nil {
		return nil, err
	}
	defer derived.Close()

	aead, err := chacha20poly1305.NewX(derived.Bytes())
	if err != nil {
		return nil, fmt.Errorf("dump: creating XChaCha20-Poly1305 cipher: %w", err)
	}

	nonce := sealed[:chacha20poly1305.NonceSizeX]
	payload, err := aead.Open(nil, nonce, sealed[chacha20poly1305.NonceSizeX:], aad)
	if err != nil {
		return nil, fmt.Errorf("dump: decryption failed (wrong key or tampered container): %w", err)
	}
	return payload, nil
}

