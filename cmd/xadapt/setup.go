// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"

	"github.com/bmario/scorep-plugin-x86-adapt/cmd/xadapt/cli"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/config"
)

// configParams is embedded in every command's params struct so each
// command accepts --config uniformly.
type configParams struct {
	ConfigPath string `flag:"config" desc:"config file path (default ~/.config/xadapt/config.yaml)"`
}

// load reads the configuration and builds the command logger at the
// configured level.
func (p configParams) load() (*config.Config, *slog.Logger, error) {
	path := p.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	configuration, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	level, err := config.ParseLogLevel(configuration.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return configuration, cli.NewCommandLogger(level), nil
}
