// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bmario/scorep-plugin-x86-adapt/cmd/xadapt/cli"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/dump"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/secret"
)

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:    "dump",
		Summary: "Inspect .xrec dump files",
		Description: `Inspect, export, and verify .xrec recording dumps.

Encrypted dumps need the same key file the recording was made with
(--key).`,
		Subcommands: []*cli.Command{
			dumpInfoCommand(),
			dumpExportCommand(),
			dumpVerifyCommand(),
			dumpKeygenCommand(),
		},
		Examples: []cli.Example{
			{Description: "Show a dump's manifest", Command: "xadapt dump info run.xrec"},
			{Description: "Export samples as JSON lines", Command: "xadapt dump export run.xrec | jq .value"},
			{Description: "Check integrity", Command: "xadapt dump verify run.xrec"},
		},
	}
}

type dumpReadParams struct {
	Key string `flag:"key" desc:"key file for encrypted dumps"`
}

// openDump opens path with the optional key file. The caller closes
// the returned buffer (nil for unencrypted reads).
func openDump(path string, params dumpReadParams) (*dump.Reader, *secret.Buffer, error) {
	var options dump.Options
	var key *secret.Buffer
	if params.Key != "" {
		loaded, err := secret.LoadKeyFile(params.Key)
		if err != nil {
			return nil, nil, err
		}
		key = loaded
		options.Key = key
	}
	reader, err := dump.Open(path, options)
	if err != nil {
		if key != nil {
			key.Close()
		}
		return nil, nil, err
	}
	return reader, key, nil
}

func dumpInfoCommand() *cli.Command {
	var params dumpReadParams
	return &cli.Command{
		Name:    "info",
		Summary: "Show a dump's manifest and series",
		Usage:   "xadapt dump info [flags] <file.xrec>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("dump info", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one dump file required")
			}
			return runDumpInfo(args[0], params)
		},
	}
}

func runDumpInfo(path string, params dumpReadParams) error {
	reader, key, err := openDump(path, params)
	if err != nil {
		return err
	}
	if key != nil {
		defer key.Close()
	}

	manifest := reader.Manifest()
	fmt.Printf("created:     %s\n", time.Unix(0, manifest.Created).Format(time.RFC3339))
	fmt.Printf("hostname:    %s\n", manifest.Hostname)
	fmt.Printf("interval:    %s\n", time.Duration(manifest.IntervalNS))
	fmt.Printf("compression: %s\n", reader.Compression())
	fmt.Printf("encrypted:   %v\n", reader.Encrypted())
	if manifest.Plan != "" {
		fmt.Printf("plan:        %s\n", manifest.Plan)
	}
	fmt.Printf("knobs:       %v\n", manifest.Knobs)
	fmt.Printf("cpus:        %v\n", manifest.CPUs)

	fmt.Println()
	for {
		series, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("cpu %d  %s  %d samples\n", series.CPU, series.Knob, series.Len())
	}
}

func dumpExportCommand() *cli.Command {
	var params dumpReadParams
	return &cli.Command{
		Name:    "export",
		Summary: "Print a dump's samples as JSON lines",
		Description: `Print every sample in the dump to stdout, one JSON object per
line: {"cpu":..., "knob":..., "time":..., "value":...}. Times are
Unix nanoseconds.`,
		Usage: "xadapt dump export [flags] <file.xrec>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("dump export", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one dump file required")
			}
			return runDumpExport(args[0], params)
		},
	}
}

// exportLine is the JSON-lines record emitted by dump export.
type exportLine struct {
	CPU   int    `json:"cpu"`
	Knob  string `json:"knob"`
	Time  int64  `json:"time"`
	Value uint64 `json:"value"`
}

func runDumpExport(path string, params dumpReadParams) error {
	reader, key, err := openDump(path, params)
	if err != nil {
		return err
	}
	if key != nil {
		defer key.Close()
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	encoder := json.NewEncoder(out)

	for {
		series, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		for i := range series.Times {
			line := exportLine{
				CPU:   series.CPU,
				Knob:  series.Knob,
				Time:  series.Times[i],
				Value: series.Values[i],
			}
			if err := encoder.Encode(line); err != nil {
				return err
			}
		}
	}
}

func dumpVerifyCommand() *cli.Command {
	return &cli.Command{
		Name:    "verify",
		Summary: "Check a dump's integrity digest",
		Description: `Verify the BLAKE3 digest of a dump file. Prints OK and exits 0
when the container is intact, or the failure and exits 1. Works on
encrypted dumps without the key: the digest covers the ciphertext.`,
		Usage: "xadapt dump verify <file.xrec>",
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one dump file required")
			}
			if err := dump.Verify(args[0]); err != nil {
				fmt.Printf("%s: %v\n", args[0], err)
				return &cli.ExitError{Code: 1}
			}
			fmt.Printf("%s: OK\n", args[0])
			return nil
		},
	}
}

type dumpKeygenParams struct {
	Out string `flag:"out,o" desc:"key file to create (required)"`
}

func dumpKeygenCommand() *cli.Command {
	var params dumpKeygenParams
	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate a dump encryption key file",
		Usage:   "xadapt dump keygen --out <keyfile>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("dump keygen", &params)
		},
		Run: func(args []string) error {
			if params.Out == "" {
				return fmt.Errorf("--out is required")
			}
			return runDumpKeygen(params.Out)
		},
	}
}

func runDumpKeygen(path string) error {
	key := make([]byte, secret.KeySize)
	if _, err := rand.Read(key); err != nil {
		return err
	}
	defer secret.Zero(key)
	if err := secret.WriteKeyFile(path, key); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
