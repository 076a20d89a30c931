// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package dump

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bmario/scorep-plugin-x86-adapt/lib/recorder"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/secret"
)

func testManifest() *Manifest {
	return &Manifest{
		Created:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixNano(),
		Hostname:   "bench-04",
		IntervalNS: (50 * time.Millisecond).Nanoseconds(),
		Knobs:      []string{"Intel_UNCORE_FREQUENCY_MIN", "Intel_UNCORE_FREQUENCY_MAX"},
		CPUs:       []int{0, 1},
		Plan:       "uncore-sweep",
	}
}

func testSeries(cpu int, knob string, count int) *Series {
	series := &Series{CPU: cpu, Knob: knob}
	for i := 0; i < count; i++ {
		series.Times = append(series.Times, int64(i)*int64(time.Millisecond))
		series.Values = append(series.Values, uint64(1000+cpu*100+i))
	}
	return series
}

func writeContainer(t *testing.T, options Options, series ...*Series) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := NewWriter(&buffer, options)
	if err := writer.WriteManifest(testManifest()); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	for _, s := range series {
		if err := writer.WriteSeries(s); err != nil {
			t.Fatalf("WriteSeries: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buffer.Bytes()
}

func readAllSeries(t *testing.T, reader *Reader) []*Series {
	t.Helper()
	var all []*Series
	for {
		series, err := reader.Next()
		if err == io.EOF {
			return all
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		all = append(all, series)
	}
}

func TestRoundTrip_Compressions(t *testing.T) {
	for _, tag := range []CompressionTag{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(tag.String(), func(t *testing.T) {
			want := []*Series{
				testSeries(0, "Intel_UNCORE_FREQUENCY_MIN", 100),
				testSeries(1, "Intel_UNCORE_FREQUENCY_MAX", 100),
			}
			raw := writeContainer(t, Options{Compression: tag}, want...)

			reader, err := NewReader(bytes.NewReader(raw), Options{})
			if err != nil {
				t.Fatalf("NewReader: %v", err)
			}
			if reader.Compression() != tag {
				t.Errorf("compression = %v, want %v", reader.Compression(), tag)
			}

			manifest := reader.Manifest()
			if manifest.Hostname != "bench-04" || manifest.Plan != "uncore-sweep" {
				t.Errorf("manifest round-trip lost fields: %+v", manifest)
			}
			if manifest.FormatVersion != FormatVersion {
				t.Errorf("format version = %d, want %d", manifest.FormatVersion, FormatVersion)
			}

			got := readAllSeries(t, reader)
			if len(got) != len(want) {
				t.Fatalf("got %d series, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i].CPU != want[i].CPU || got[i].Knob != want[i].Knob {
					t.Errorf("series %d identity mismatch: %+v", i, got[i])
				}
				if len(got[i].Times) != len(want[i].Times) {
					t.Fatalf("series %d: got %d samples, want %d", i, len(got[i].Times), len(want[i].Times))
				}
				for j := range want[i].Times {
					if got[i].Times[j] != want[i].Times[j] || got[i].Values[j] != want[i].Values[j] {
						t.Fatalf("series %d sample %d mismatch", i, j)
					}
				}
			}
		})
	}
}

func testKey(t *testing.T) *secret.Buffer {
	t.Helper()
	key, err := secret.NewFromBytes(bytes.Repeat([]byte{0x5A}, secret.KeySize))
	if err != nil {
		t.Fatalf("creating key: %v", err)
	}
	t.Cleanup(func() { key.Close() })
	return key
}

func TestRoundTrip_Encrypted(t *testing.T) {
	key := testKey(t)
	raw := writeContainer(t, Options{Key: key}, testSeries(2, "AMD_FAM15_PREFETCH", 10))

	reader, err := NewReader(bytes.NewReader(raw), Options{Key: key})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if !reader.Encrypted() {
		t.Error("Encrypted() = false for encrypted container")
	}
	got := readAllSeries(t, reader)
	if len(got) != 1 || got[0].Len() != 10 {
		t.Fatalf("unexpected series content: %+v", got)
	}
}

func TestEncrypted_RequiresKey(t *testing.T) {
	raw := writeContainer(t, Options{Key: testKey(t)}, testSeries(0, "A", 1))

	_, err := NewReader(bytes.NewReader(raw), Options{})
	if !errors.Is(err, ErrEncrypted) {
		t.Fatalf("err = %v, want ErrEncrypted", err)
	}
}

func TestEncrypted_WrongKeyFails(t *testing.T) {
	raw := writeContainer(t, Options{Key: testKey(t)}, testSeries(0, "A", 1))

	wrong, err := secret.NewFromBytes(bytes.Repeat([]byte{0x77}, secret.KeySize))
	if err != nil {
		t.Fatalf("creating key: %v", err)
	}
	defer wrong.Close()

	if _, err := NewReader(bytes.NewReader(raw), Options{Key: wrong}); err == nil {
		t.Fatal("expected decryption failure with wrong key")
	}
}

func TestReader_DetectsTampering(t *testing.T) {
	raw := writeContainer(t, Options{}, testSeries(0, "A", 5))

	// Flip a payload byte; the digest must catch it.
	tampered := append([]byte(nil), raw...)
	tampered[len(Magic)+4] ^= 0x01

	_, err := NewReader(bytes.NewReader(tampered), Options{})
	if !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("err = %v, want ErrDigestMismatch", err)
	}
}

func TestReader_BadMagic(t *testing.T) {
	_, err := NewReader(bytes.NewReader(bytes.Repeat([]byte{0xFF}, 64)), Options{})
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}
}

func TestReader_Truncated(t *testing.T) {
	_, err := NewReader(bytes.NewReader(Magic[:]), Options{})
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

func TestWriter_ManifestFirst(t *testing.T) {
	writer := NewWriter(io.Discard, Options{})
	if err := writer.WriteSeries(testSeries(0, "A", 1)); err == nil {
		t.Error("expected error writing series before manifest")
	}
	if err := writer.Close(); err == nil {
		t.Error("expected error closing container without manifest")
	}
}

func TestSeries_IsRecorderSink(t *testing.T) {
	var sink recorder.Sink = &Series{CPU: 3, Knob: "X"}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		sample := recorder.Sample{Time: base.Add(time.Duration(i) * time.Millisecond), Value: uint64(i)}
		if err := sink.WriteSample(sample); err != nil {
			t.Fatalf("WriteSample: %v", err)
		}
	}

	series := sink.(*Series)
	if series.Len() != 3 {
		t.Fatalf("Len = %d, want 3", series.Len())
	}
	samples := series.Samples()
	for i, sample := range samples {
		if !sample.Time.Equal(base.Add(time.Duration(i) * time.Millisecond)) {
			t.Errorf("sample %d time mismatch", i)
		}
		if sample.Value != uint64(i) {
			t.Errorf("sample %d value = %d, want %d", i, sample.Value, i)
		}
	}
}

func TestVerify(t *testing.T) {
	raw := writeContainer(t, Options{}, testSeries(0, "A", 5))
	path := filepath.Join(t.TempDir(), "session.xrec")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("writing container: %v", err)
	}

	if err := Verify(path); err != nil {
		t.Errorf("Verify of intact container: %v", err)
	}

	raw[len(raw)-1] ^= 0x01
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("rewriting container: %v", err)
	}
	if err := Verify(path); !errors.Is(err, ErrDigestMismatch) {
		t.Errorf("Verify of tampered container: %v, want ErrDigestMismatch", err)
	}
}

func TestParseCompressionTag(t *testing.T) {
	tests := []struct {
		input string
		want  CompressionTag
	}{
		{"", CompressionZstd},
		{"zstd", CompressionZstd},
		{"lz4", CompressionLZ4},
		{"none", CompressionNone},
	}
	for _, test := range tests {
		got, err := ParseCompressionTag(test.input)
		if err != nil || got != test.want {
			t.Errorf("ParseCompressionTag(%q) = %v, %v; want %v", test.input, got, err, test.want)
		}
	}
	if _, err := ParseCompressionTag("xz"); err == nil {
		t.Error("expected error for unknown compression")
	}
}
