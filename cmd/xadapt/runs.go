// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bmario/scorep-plugin-x86-adapt/cmd/xadapt/cli"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/dump"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/recorder"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/samplestore"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/secret"
)

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:    "runs",
		Summary: "Inspect the sample store",
		Description: `Inspect and manage recordings stored in the SQLite sample store.

The store location comes from the config file (default
~/.local/share/xadapt/samples.db). Reads work while a recording is in
progress.`,
		Subcommands: []*cli.Command{
			runsListCommand(),
			runsShowCommand(),
			runsExportCommand(),
			runsDeleteCommand(),
		},
		Examples: []cli.Example{
			{Description: "All stored runs", Command: "xadapt runs list"},
			{Description: "Timelines of run 3", Command: "xadapt runs show 3"},
			{Description: "Export run 3 as a dump file", Command: "xadapt runs export 3 --out run3.xrec"},
		},
	}
}

// openStore opens the configured sample store for a runs subcommand.
func openStore(params configParams) (*samplestore.Store, error) {
	configuration, logger, err := params.load()
	if err != nil {
		return nil, err
	}
	return samplestore.Open(configuration.Store, samplestore.Options{Logger: logger})
}

// parseRunID parses the single positional run-id argument.
func parseRunID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("exactly one run id required")
	}
	runID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid run id %q: %w", args[0], err)
	}
	return runID, nil
}

func runsListCommand() *cli.Command {
	var params struct{ configParams }
	return &cli.Command{
		Name:    "list",
		Summary: "List stored runs",
		Usage:   "xadapt runs list [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("runs list", &params)
		},
		Run: func(args []string) error {
			store, err := openStore(params.configParams)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs(context.Background())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "ID\tSTARTED\tDURATION\tINTERVAL\tPLAN\tNOTE\n")
			for _, run := range runs {
				duration := "running"
				if run.Finished() {
					duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					run.ID,
					run.StartedAt.Format(time.RFC3339),
					duration,
					run.Interval,
					run.Plan,
					run.Note)
			}
			return tw.Flush()
		},
	}
}

func runsShowCommand() *cli.Command {
	var params struct{ configParams }
	return &cli.Command{
		Name:    "show",
		Summary: "Show one run's timelines",
		Usage:   "xadapt runs show [flags] <run-id>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("runs show", &params)
		},
		Run: func(args []string) error {
			runID, err := parseRunID(args)
			if err != nil {
				return err
			}
			store, err := openStore(params.configParams)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()
			run, err := store.Run(ctx, runID)
			if err != nil {
				return err
			}
			series, err := store.RunSeries(ctx, runID)
			if err != nil {
				return err
			}

			fmt.Printf("run %d: started %s, interval %s",
				run.ID, run.StartedAt.Format(time.RFC3339), run.Interval)
			if run.Plan != "" {
				fmt.Printf(", plan %q", run.Plan)
			}
			fmt.Println()
			if run.Note != "" {
				fmt.Printf("note: %s\n", run.Note)
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "SERIES\tCPU\tKNOB\tSAMPLES\n")
			for _, s := range series {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%d\n", s.ID, s.CPU, s.Knob, s.Samples)
			}
			return tw.Flush()
		},
	}
}

type runsExportParams struct {
	configParams
	Out         string `flag:"out,o"       desc:"output .xrec file (required)"`
	Compression string `flag:"compression" desc:"dump compression: zstd, lz4, or none (default zstd)"`
	EncryptKey  string `flag:"encrypt-key" desc:"32-byte key file; encrypts the dump payload"`
}

func runsExportCommand() *cli.Command {
	var params runsExportParams
	return &cli.Command{
		Name:    "export",
		Summary: "Export a stored run as a dump file",
		Usage:   "xadapt runs export [flags] <run-id>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("runs export", &params)
		},
		Run: func(args []string) error {
			runID, err := parseRunID(args)
			if err != nil {
				return err
			}
			if params.Out == "" {
				return fmt.Errorf("--out is required")
			}
			return runRunsExport(params, runID)
		},
	}
}

func runRunsExport(params runsExportParams, runID int64) error {
	compression, err := dump.ParseCompressionTag(params.Compression)
	if err != nil {
		return err
	}

	store, err := openStore(params.configParams)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	run, err := store.Run(ctx, runID)
	if err != nil {
		return err
	}
	series, err := store.RunSeries(ctx, runID)
	if err != nil {
		return err
	}

	var key *secret.Buffer
	if params.EncryptKey != "" {
		key, err = secret.LoadKeyFile(params.EncryptKey)
		if err != nil {
			return err
		}
		defer key.Close()
	}

	file, err := os.Create(params.Out)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := dump.NewWriter(file, dump.Options{Compression: compression, Key: key})

	knobs, cpus := seriesDimensions(series)
	manifest := &dump.Manifest{
		FormatVersion: dump.FormatVersion,
		Created:       run.StartedAt.UnixNano(),
		Hostname:      run.Hostname,
		IntervalNS:    run.Interval.Nanoseconds(),
		Knobs:         knobs,
		CPUs:          cpus,
		Plan:          run.Plan,
	}
	if err := writer.WriteManifest(manifest); err != nil {
		return err
	}

	for _, info := range series {
		record := &dump.Series{CPU: info.CPU, Knob: info.Knob}
		err := store.Samples(ctx, info.ID, func(sample recorder.Sample) error {
			return record.WriteSample(sample)
		})
		if err != nil {
			return err
		}
		if err := writer.WriteSeries(record); err != nil {
			return err
		}
	}

	if err := writer.Close(); err != nil {
		return err
	}
	return file.Sync()
}

// seriesDimensions collapses a run's series list into the distinct
// knob names and CPU indices, preserving first-seen order.
func seriesDimensions(series []samplestore.SeriesInfo) (knobs []string, cpus []int) {
	seenKnob := make(map[string]bool)
	seenCPU := make(map[int]bool)
	for _, s := range series {
		if !seenKnob[s.Knob] {
			seenKnob[s.Knob] = true
			knobs = append(knobs, s.Knob)
		}
		if !seenCPU[s.CPU] {
			seenCPU[s.CPU] = true
			cpus = append(cpus, s.CPU)
		}
	}
	return knobs, cpus
}

func runsDeleteCommand() *cli.Command {
	var params struct{ configParams }
	return &cli.Command{
		Name:    "delete",
		Summary: "Delete a stored run",
		Usage:   "xadapt runs delete [flags] <run-id>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("runs delete", &params)
		},
		Run: func(args []string) error {
			runID, err := parseRunID(args)
			if err != nil {
				return err
			}
			store, err := openStore(params.configParams)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.DeleteRun(context.Background(), runID)
		},
	}
}
