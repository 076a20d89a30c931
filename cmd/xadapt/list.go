// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bmario/scorep-plugin-x86-adapt/cmd/xadapt/cli"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/xadapt"
)

type listParams struct {
	configParams
	Values   bool `flag:"values"   desc:"read and show current values"`
	CPU      int  `flag:"cpu"      desc:"CPU to read values from (with --values)"`
	Writable bool `flag:"writable" desc:"show only writable knobs"`
}

func listCommand() *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "list",
		Summary: "List the knobs the kernel module exposes",
		Description: `List every configuration item in the x86_adapt definitions file.

With --values, additionally opens one CPU's device read-only and shows
the current value of each item.`,
		Usage: "xadapt list [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Examples: []cli.Example{
			{Description: "All knobs", Command: "xadapt list"},
			{Description: "Writable knobs with current values on CPU 2", Command: "xadapt list --writable --values --cpu 2"},
		},
		Run: func(args []string) error {
			return runList(params)
		},
	}
}

func runList(params listParams) error {
	configuration, logger, err := params.load()
	if err != nil {
		return err
	}

	catalog, err := xadapt.LoadCatalog(configuration.DeviceRoot)
	if err != nil {
		return err
	}
	logger.Debug("catalog loaded", "items", catalog.Len(), "root", configuration.DeviceRoot)

	var device *xadapt.Device
	if params.Values {
		device, err = xadapt.OpenCPU(configuration.DeviceRoot, params.CPU)
		if err != nil {
			return err
		}
		defer device.Close()
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
	if params.Values {
		fmt.Fprintf(tw, "INDEX\tNAME\tMODE\tVALUE\tDESCRIPTION\n")
	} else {
		fmt.Fprintf(tw, "INDEX\tNAME\tMODE\tDESCRIPTION\n")
	}

	for _, item := range catalog.Items() {
		if params.Writable && !item.Writable {
			continue
		}
		mode := "ro"
		if item.Writable {
			mode = "rw"
		}
		if params.Values {
			value := "-"
			if v, err := device.ReadValue(item); err == nil {
				value = fmt.Sprintf("%d", v)
			} else {
				logger.Warn("read failed", "item", item.Name, "cpu", params.CPU, "error", err)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", item.Index, item.Name, mode, value, item.Description)
		} else {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", item.Index, item.Name, mode, item.Description)
		}
	}
	return tw.Flush()
}
