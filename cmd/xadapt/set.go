// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/bmario/scorep-plugin-x86-adapt/cmd/xadapt/cli"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/affinity"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/xadapt"
)

type setParams struct {
	configParams
	CPUs string `flag:"cpus" desc:"CPU list to write to (default: all CPUs)"`
}

func setCommand() *cli.Command {
	var params setParams
	return &cli.Command{
		Name:    "set",
		Summary: "Write a knob value",
		Description: `Write a value to a writable configuration item.

Writes go to every CPU in --cpus, or to every CPU the device tree
exposes when --cpus is omitted. Read-only items are rejected before
any device is touched.`,
		Usage: "xadapt set [flags] <name> <value>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("set", &params)
		},
		Examples: []cli.Example{
			{Description: "Pin the target P-state on CPUs 0-3", Command: "xadapt set --cpus 0-3 Intel_Target_PState 16"},
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: xadapt set [flags] <name> <value>")
			}
			value, err := strconv.ParseUint(args[1], 0, 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[1], err)
			}
			return runSet(params, args[0], value)
		},
	}
}

func runSet(params setParams, name string, value uint64) error {
	configuration, logger, err := params.load()
	if err != nil {
		return err
	}

	catalog, err := xadapt.LoadCatalog(configuration.DeviceRoot)
	if err != nil {
		return err
	}
	item, err := catalog.Lookup(name)
	if err != nil {
		return err
	}
	if !item.Writable {
		return fmt.Errorf("%s is read-only", item.Name)
	}

	cpus, err := selectCPUs(params.CPUs, configuration.DeviceRoot)
	if err != nil {
		return err
	}

	for _, cpu := range cpus {
		device, err := xadapt.OpenCPU(configuration.DeviceRoot, cpu)
		if err != nil {
			return err
		}
		writeErr := device.SetValue(item, value)
		closeErr := device.Close()
		if writeErr != nil {
			return fmt.Errorf("cpu %d: %w", cpu, writeErr)
		}
		if closeErr != nil {
			return fmt.Errorf("cpu %d: %w", cpu, closeErr)
		}
		logger.Info("knob written", "item", item.Name, "cpu", cpu, "value", value)
	}
	return nil
}

// selectCPUs resolves a cpu-list string, defaulting to every CPU the
// device tree exposes.
func selectCPUs(list, root string) ([]int, error) {
	if list == "" {
		return xadapt.ListCPUs(root)
	}
	mask, err := affinity.ParseList(list)
	if err != nil {
		return nil, err
	}
	return mask.CPUs(), nil
}
