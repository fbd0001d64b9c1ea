// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/kkrt-labs/cairo-runner/go/compiler"
	"gopkg.in/yaml.v3"
)

// Config holds the defaults of the driver's commands. Command line flags
// take precedence over configured values.
type Config struct {
	Compiler  CompilerConfig `yaml:"compiler"`
	Runner    string         `yaml:"runner"`
	StepLimit int            `yaml:"step_limit"`
	CacheSize int            `yaml:"cache_size"`
	LogLevel  string         `yaml:"log_level"`
}

type CompilerConfig struct {
	Command   []string `yaml:"command"`
	CairoPath []string `yaml:"cairo_path"`
	Formatter []string `yaml:"formatter"`
}

func defaultConfig() Config {
	return Config{
		Compiler: CompilerConfig{
			Command: []string{"cairo-compile"},
		},
		CacheSize: 64,
		LogLevel:  "info",
	}
}

// loadConfig reads a YAML configuration file. Values missing in the file
// keep their defaults; unknown keys are rejected.
func loadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	res := defaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&res); err != nil && len(bytes.TrimSpace(data)) > 0 {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return res, nil
}

func (c CompilerConfig) toCompilerConfig() compiler.Config {
	return compiler.Config{
		Command:   c.Command,
		CairoPath: c.CairoPath,
		Formatter: c.Formatter,
	}
}
