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
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "driver",
		Usage:     "Cairo program runner and equivalence checker",
		Copyright: "(c) 2024 Fantom Foundation",
		Flags: []cli.Flag{
			configFlag,
			logLevelFlag,
		},
		Before: setup,
		Commands: []*cli.Command{
			&CompileCmd,
			&RunCmd,
			&DescribeCmd,
			&ListCmd,
			&CheckCmd,
			&ExportCmd,
		},
	}
}

var configFlag = &cli.StringFlag{
	Name:      "config",
	Usage:     "YAML file providing defaults for compiler, runner, and logging",
	TakesFile: true,
}

var logLevelFlag = &cli.StringFlag{
	Name:  "log-level",
	Usage: "one of panic, fatal, error, warn, info, debug, trace",
}

const configKey = "config"

// setup loads the configuration and configures logging before any command
// is run.
func setup(ctx *cli.Context) error {
	config := defaultConfig()
	if path := ctx.String(configFlag.Name); path != "" {
		var err error
		if config, err = loadConfig(path); err != nil {
			return err
		}
	}
	if ctx.IsSet(logLevelFlag.Name) {
		config.LogLevel = ctx.String(logLevelFlag.Name)
	}
	level, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	if ctx.App.Metadata == nil {
		ctx.App.Metadata = map[string]any{}
	}
	ctx.App.Metadata[configKey] = config
	return nil
}

func getConfig(ctx *cli.Context) Config {
	if config, ok := ctx.App.Metadata[configKey].(Config); ok {
		return config
	}
	return defaultConfig()
}
