// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bmario/scorep-plugin-x86-adapt/cmd/xadapt/cli"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/watchui"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/xadapt"
)

type watchParams struct {
	configParams
	CPU      int           `flag:"cpu"      desc:"CPU to watch"`
	Interval time.Duration `flag:"interval" desc:"poll interval (default: from config)"`
}

func watchCommand() *cli.Command {
	var params watchParams
	return &cli.Command{
		Name:    "watch",
		Summary: "Watch knob values live",
		Description: `Show one CPU's knob values in a live-updating table.

Values that changed since the last poll are highlighted. Press / to
fuzzy-filter by knob name or description, space to pause polling,
and q to quit.`,
		Usage: "xadapt watch [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("watch", &params)
		},
		Examples: []cli.Example{
			{Description: "Watch CPU 2 at 100ms", Command: "xadapt watch --cpu 2 --interval 100ms"},
		},
		Run: func(args []string) error {
			return runWatch(params)
		},
	}
}

func runWatch(params watchParams) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("watch needs a terminal; use 'xadapt list --values' for scripted reads")
	}

	configuration, logger, err := params.load()
	if err != nil {
		return err
	}
	interval := params.Interval
	if interval == 0 {
		interval = configuration.Interval
	}

	catalog, err := xadapt.LoadCatalog(configuration.DeviceRoot)
	if err != nil {
		return err
	}
	device, err := xadapt.OpenCPU(configuration.DeviceRoot, params.CPU)
	if err != nil {
		return err
	}
	defer device.Close()

	items := catalog.Items()
	read := func() ([]watchui.Row, error) {
		rows := make([]watchui.Row, len(items))
		for i, item := range items {
			rows[i] = watchui.Row{
				Index:       item.Index,
				Name:        item.Name,
				Description: item.Description,
				Writable:    item.Writable,
			}
			value, err := device.ReadValue(item)
			if err != nil {
				rows[i].Err = err
				continue
			}
			rows[i].Value = value
		}
		return rows, nil
	}

	logger.Debug("watching", "cpu", params.CPU, "items", len(items), "interval", interval)

	model := watchui.New(read, interval, fmt.Sprintf("cpu %d", params.CPU))
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}
