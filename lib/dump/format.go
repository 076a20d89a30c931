// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package dump

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/bmario/scorep-plugin-x86-adapt/lib/recorder"
)

// Magic identifies a .xrec container: seven ASCII bytes plus a format
// version byte. Changing the trailing byte invalidates old readers.
var Magic = [8]byte{'X', 'A', 'D', 'A', 'P', 'T', 'R', 0x01}

// FormatVersion is the manifest-level format version, bumped when the
// record schema changes in a way version-aware readers must handle.
const FormatVersion = 1

// CompressionTag identifies the payload compression. Stored as one
// byte in the container header; the values are protocol constants.
type CompressionTag uint8

const (
	// CompressionNone stores the CBOR payload uncompressed.
	CompressionNone CompressionTag = 0

	// CompressionZstd is the writer default: timelines of slowly
	// changing register values compress extremely well.
	CompressionZstd CompressionTag = 1

	// CompressionLZ4 trades ratio for speed. Useful when dumps are
	// written on a measurement node whose CPU time is the experiment.
	CompressionLZ4 CompressionTag = 2
)

// String returns the human-readable name of a compression tag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// ParseCompressionTag parses a compression tag from its string form.
// The empty string selects the zstd default.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "", "zstd":
		return CompressionZstd, nil
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("dump: unknown compression %q", name)
	}
}

// EncryptionTag identifies the payload encryption scheme.
type EncryptionTag uint8

const (
	// EncryptionNone stores the payload in the clear.
	EncryptionNone EncryptionTag = 0

	// EncryptionXChaCha20 encrypts the compressed payload with
	// XChaCha20-Poly1305.
	EncryptionXChaCha20 EncryptionTag = 1
)

// Container-level errors callers branch on.
var (
	// ErrBadMagic reports a file that is not a .xrec container.
	ErrBadMagic = errors.New("dump: not a .xrec container")

	// ErrDigestMismatch reports a container whose trailing BLAKE3
	// digest does not match its contents.
	ErrDigestMismatch = errors.New("dump: container digest mismatch")

	// ErrEncrypted reports an encrypted container opened without a
	// key.
	ErrEncrypted = errors.New("dump: container is encrypted, key required")

	// ErrTruncated reports a container too short to hold its own
	// envelope.
	ErrTruncated = errors.New("dump: truncated container")
)

// Manifest is the first record of every container. It carries the
// session metadata a reader needs to interpret the series records.
type Manifest struct {
	// FormatVersion is the record schema version (FormatVersion at
	// write time).
	FormatVersion int `cbor:"version"`

	// Created is the session start, Unix nanoseconds.
	Created int64 `cbor:"created"`

	// Hostname names the recording machine.
	Hostname string `cbor:"hostname"`

	// IntervalNS is the sampling period in nanoseconds.
	IntervalNS int64 `cbor:"interval_ns"`

	// Knobs are the recorded configuration item names.
	Knobs []string `cbor:"knobs"`

	// CPUs are the recorded CPU indices, ascending.
	CPUs []int `cbor:"cpus"`

	// Plan is the recording plan name, empty for ad hoc sessions.
	Plan string `cbor:"plan,omitempty"`
}

// Series is one (CPU, knob) timeline. Times and Values are parallel
// slices in recording order.
type Series struct {
	CPU    int      `cbor:"cpu"`
	Knob   string   `cbor:"knob"`
	Times  []int64  `cbor:"times"`
	Values []uint64 `cbor:"values"`
}

// WriteSample appends one sample to the series. It implements
// recorder.Sink, so a *Series can be handed directly to
// Registry.Harvest.
func (s *Series) WriteSample(sample recorder.Sample) error {
	s.Times = append(s.Times, sample.Time.UnixNano())
	s.Values = append(s.Values, sample.Value)
	return nil
}

// Len returns the number of samples in the series.
func (s *Series) Len() int { return len(s.Times) }

// Samples converts the parallel slices back to recorder samples.
func (s *Series) Samples() []recorder.Sample {
	samples := make([]recorder.Sample, len(s.Times))
	for i := range s.Times {
		samples[i] = recorder.Sample{Time: time.Unix(0, s.Times[i]), Value: s.Values[i]}
	}
	return samples
}

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. The same recording always
// produces identical payload bytes.
var encMode cbor.EncMode

// decMode is the CBOR decoder. Unknown fields are ignored for forward
// compatibility with newer writers.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("dump: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("dump: CBOR decoder initialization failed: " + err.Error())
	}
}
