// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

// The xadapt command inspects, records, and adjusts the per-CPU
// hardware configuration knobs exposed by the Linux x86_adapt kernel
// module.
package main

import (
	"fmt"
	"os"

	"github.com/bmario/scorep-plugin-x86-adapt/cmd/xadapt/cli"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/process"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/version"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (like dump verify)
		// return an ExitError with the desired exit code. Don't print
		// a redundant "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		process.Fatal(err)
	}
}

func run() error {
	return root().Execute(os.Args[1:])
}

func root() *cli.Command {
	return &cli.Command{
		Name: "xadapt",
		Description: `xadapt: x86_adapt hardware knob tool.

Inspect, record, and adjust the per-CPU configuration items exposed
by the x86_adapt kernel module under /dev/x86_adapt.`,
		Subcommands: []*cli.Command{
			listCommand(),
			setCommand(),
			recordCommand(),
			watchCommand(),
			runsCommand(),
			dumpCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("xadapt %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "List every knob the kernel module exposes",
				Command:     "xadapt list",
			},
			{
				Description: "Show current values on CPU 2",
				Command:     "xadapt list --values --cpu 2",
			},
			{
				Description: "Record two knobs on CPUs 0-3 for ten seconds",
				Command:     "xadapt record --knob Intel_Target_PState --knob Intel_Uncore_Frequency --cpus 0-3 --duration 10s --out run.xrec",
			},
			{
				Description: "Record from a plan file into the sample store",
				Command:     "xadapt record idle-sweep.jsonc",
			},
			{
				Description: "Watch knob values live",
				Command:     "xadapt watch --cpu 0",
			},
			{
				Description: "Show stored runs",
				Command:     "xadapt runs list",
			},
		},
	}
}
