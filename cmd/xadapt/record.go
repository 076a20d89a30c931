// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bmario/scorep-plugin-x86-adapt/cmd/xadapt/cli"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/affinity"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/config"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/dump"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/plan"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/recorder"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/samplestore"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/secret"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/xadapt"
)

type recordParams struct {
	configParams
	Knobs       []string      `flag:"knob"        desc:"knob to record (repeatable)"`
	CPUs        string        `flag:"cpus"        desc:"CPU list to record on (default: all CPUs)"`
	Interval    time.Duration `flag:"interval"    desc:"sampling interval (default: from config)"`
	Duration    time.Duration `flag:"duration"    desc:"stop after this long (default: until interrupted)"`
	Out         string        `flag:"out,o"       desc:"write a .xrec dump file"`
	Store       bool          `flag:"store"       desc:"append the run to the sample store"`
	Compression string        `flag:"compression" desc:"dump compression: zstd, lz4, or none (default zstd)"`
	EncryptKey  string        `flag:"encrypt-key" desc:"32-byte key file; encrypts the dump payload"`
	Note        string        `flag:"note"        desc:"free-form note stored with the run"`
}

func recordCommand() *cli.Command {
	var params recordParams
	return &cli.Command{
		Name:    "record",
		Summary: "Record knob timelines",
		Description: `Record the values of one or more knobs on a set of CPUs.

Each selected CPU gets a dedicated sampling thread pinned to it; all
threads read on the same interval. Recording stops on SIGINT/SIGTERM
or after --duration, then the collected timelines are written to a
.xrec dump file (--out) or appended to the SQLite sample store
(--store).

A plan file given as the positional argument replaces the recording
flags; --config and the ambient flags still apply.`,
		Usage: "xadapt record [flags] [plan.jsonc]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("record", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Ten seconds of two knobs on CPUs 0-3",
				Command:     "xadapt record --knob Intel_Target_PState --knob Intel_Uncore_Frequency --cpus 0-3 --duration 10s --out run.xrec",
			},
			{
				Description: "Record until Ctrl-C into the sample store",
				Command:     "xadapt record --knob Intel_Uncore_Frequency --store --note 'baseline, fans at 100%'",
			},
			{
				Description: "Run a recording plan",
				Command:     "xadapt record idle-sweep.jsonc",
			},
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("at most one plan file, got %d arguments", len(args))
			}
			planPath := ""
			if len(args) == 1 {
				planPath = args[0]
			}
			return runRecord(params, planPath)
		},
	}
}

// session is the fully resolved recording configuration, whether it
// came from flags or a plan file.
type session struct {
	planName    string
	knobs       []string
	cpus        []int
	interval    time.Duration
	duration    time.Duration
	outPath     string
	storePath   string
	compression dump.CompressionTag
	keyPath     string
	note        string
}

func runRecord(params recordParams, planPath string) error {
	configuration, logger, err := params.load()
	if err != nil {
		return err
	}

	var resolved *session
	if planPath != "" {
		resolved, err = sessionFromPlan(planPath, configuration)
	} else {
		resolved, err = sessionFromFlags(params, configuration)
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return record(ctx, resolved, configuration, logger)
}

func sessionFromFlags(params recordParams, configuration *config.Config) (*session, error) {
	if len(params.Knobs) == 0 {
		return nil, fmt.Errorf("at least one --knob is required (or a plan file)")
	}
	if params.Out == "" && !params.Store {
		return nil, fmt.Errorf("no destination: give --out or --store")
	}
	if params.Out != "" && params.Store {
		return nil, fmt.Errorf("--out and --store are mutually exclusive")
	}

	compression, err := dump.ParseCompressionTag(params.Compression)
	if err != nil {
		return nil, err
	}

	cpus, err := selectCPUs(params.CPUs, configuration.DeviceRoot)
	if err != nil {
		return nil, err
	}

	interval := params.Interval
	if interval == 0 {
		interval = configuration.Interval
	}

	resolved := &session{
		knobs:       params.Knobs,
		cpus:        cpus,
		interval:    interval,
		duration:    params.Duration,
		outPath:     params.Out,
		compression: compression,
		keyPath:     params.EncryptKey,
		note:        params.Note,
	}
	if params.Store {
		resolved.storePath = configuration.Store
	}
	return resolved, nil
}

func sessionFromPlan(path string, configuration *config.Config) (*session, error) {
	p, err := plan.Load(path)
	if err != nil {
		return nil, err
	}

	compression, err := dump.ParseCompressionTag(p.Output.Compression)
	if err != nil {
		return nil, err
	}

	var cpus []int
	mask, restricted, err := p.CPUMask()
	if err != nil {
		return nil, err
	}
	if restricted {
		cpus = mask.CPUs()
	} else {
		cpus, err = xadapt.ListCPUs(configuration.DeviceRoot)
		if err != nil {
			return nil, err
		}
	}

	interval, err := p.ParsedInterval()
	if err != nil {
		return nil, err
	}
	if interval == 0 {
		interval = configuration.Interval
	}
	duration, err := p.ParsedDuration()
	if err != nil {
		return nil, err
	}

	resolved := &session{
		planName:    p.Name,
		knobs:       p.Knobs,
		cpus:        cpus,
		interval:    interval,
		duration:    duration,
		outPath:     p.Output.Path,
		storePath:   p.Output.Store,
		compression: compression,
		keyPath:     p.Output.EncryptKey,
	}
	if resolved.outPath == "" && resolved.storePath == "" {
		resolved.storePath = configuration.Store
	}
	return resolved, nil
}

// activation is one (CPU, knob) pair bound to a registry handle.
type activation struct {
	cpu    int
	knob   string
	handle recorder.Handle
}

func record(ctx context.Context, resolved *session, configuration *config.Config, logger *slog.Logger) error {
	catalog, err := xadapt.LoadCatalog(configuration.DeviceRoot)
	if err != nil {
		return err
	}

	registry, err := recorder.New(recorder.Config{
		Catalog:  catalog,
		Root:     configuration.DeviceRoot,
		Interval: resolved.interval,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer registry.Close()

	for _, knob := range resolved.knobs {
		if _, err := registry.Declare(knob); err != nil {
			return err
		}
	}

	activations, err := activateAll(registry, resolved, logger)
	if err != nil {
		return err
	}

	started := time.Now()
	logger.Info("recording",
		"knobs", len(resolved.knobs),
		"cpus", len(resolved.cpus),
		"interval", resolved.interval,
		"duration", resolved.duration)

	if resolved.duration > 0 {
		timer := time.NewTimer(resolved.duration)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			logger.Info("interrupted, harvesting")
		case <-timer.C:
		}
	} else {
		<-ctx.Done()
		logger.Info("interrupted, harvesting")
	}

	if resolved.outPath != "" {
		return harvestToDump(registry, activations, resolved, started, logger)
	}
	return harvestToStore(registry, activations, resolved, started, logger)
}

// activateAll spawns one pinned OS thread per CPU and activates every
// knob on it. The registry derives the sampler's CPU from the calling
// thread's affinity, so activation has to happen on the target CPU.
func activateAll(registry *recorder.Registry, resolved *session, logger *slog.Logger) ([]activation, error) {
	type result struct {
		activations []activation
		err         error
	}
	results := make(chan result, len(resolved.cpus))

	for _, cpu := range resolved.cpus {
		go func() {
			// The thread stays locked until the goroutine exits; the
			// runtime discards it rather than returning a pinned
			// thread to the pool.
			runtime.LockOSThread()

			if err := affinity.PinTo(cpu); err != nil {
				results <- result{err: fmt.Errorf("pinning to cpu %d: %w", cpu, err)}
				return
			}

			var activations []activation
			for _, knob := range resolved.knobs {
				handle, err := registry.Activate(knob)
				if err != nil {
					results <- result{err: fmt.Errorf("activating %s on cpu %d: %w", knob, cpu, err)}
					return
				}
				activations = append(activations, activation{cpu: cpu, knob: knob, handle: handle})
			}
			results <- result{activations: activations}
		}()
	}

	var all []activation
	for range resolved.cpus {
		r := <-results
		if r.err != nil {
			return nil, r.err
		}
		all = append(all, r.activations...)
	}
	logger.Debug("all samplers active", "activations", len(all))
	return all, nil
}

func harvestToDump(registry *recorder.Registry, activations []activation, resolved *session, started time.Time, logger *slog.Logger) error {
	var key *secret.Buffer
	if resolved.keyPath != "" {
		loaded, err := secret.LoadKeyFile(resolved.keyPath)
		if err != nil {
			return err
		}
		defer loaded.Close()
		key = loaded
	}

	file, err := os.Create(resolved.outPath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := dump.NewWriter(file, dump.Options{
		Compression: resolved.compression,
		Key:         key,
	})

	hostname, _ := os.Hostname()
	manifest := &dump.Manifest{
		FormatVersion: dump.FormatVersion,
		Created:       started.UnixNano(),
		Hostname:      hostname,
		IntervalNS:    resolved.interval.Nanoseconds(),
		Knobs:         resolved.knobs,
		CPUs:          resolved.cpus,
		Plan:          resolved.planName,
	}
	if err := writer.WriteManifest(manifest); err != nil {
		return err
	}

	var harvestErr error
	for _, act := range activations {
		series := &dump.Series{CPU: act.cpu, Knob: act.knob}
		if err := registry.Harvest(act.handle, series); err != nil {
			// A failed sampling pass still delivered its partial
			// timeline; keep it and surface the first failure after
			// the dump is complete.
			if harvestErr == nil {
				harvestErr = err
			}
			logger.Warn("partial harvest", "knob", act.knob, "cpu", act.cpu, "error", err)
		}
		if err := writer.WriteSeries(series); err != nil {
			return err
		}
		logger.Debug("series written", "knob", act.knob, "cpu", act.cpu, "samples", series.Len())
	}

	if err := writer.Close(); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}
	logger.Info("dump written", "path", resolved.outPath, "series", len(activations))
	return harvestErr
}

func harvestToStore(registry *recorder.Registry, activations []activation, resolved *session, started time.Time, logger *slog.Logger) error {
	ctx := context.Background()
	store, err := samplestore.Open(resolved.storePath, samplestore.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer store.Close()

	hostname, _ := os.Hostname()
	runID, err := store.BeginRun(ctx, samplestore.RunMeta{
		StartedAt: started,
		Hostname:  hostname,
		Interval:  resolved.interval,
		Plan:      resolved.planName,
		Note:      resolved.note,
	})
	if err != nil {
		return err
	}

	var harvestErr error
	for _, act := range activations {
		var series dump.Series
		if err := registry.Harvest(act.handle, &series); err != nil {
			if harvestErr == nil {
				harvestErr = err
			}
			logger.Warn("partial harvest", "knob", act.knob, "cpu", act.cpu, "error", err)
		}
		if err := store.AppendSeries(ctx, runID, act.cpu, act.knob, series.Samples()); err != nil {
			return err
		}
	}

	if err := store.FinishRun(ctx, runID, time.Now()); err != nil {
		return err
	}
	logger.Info("run stored", "run", runID, "store", resolved.storePath)
	return harvestErr
}
