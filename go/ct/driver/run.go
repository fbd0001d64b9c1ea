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

	cliUtils "github.com/kkrt-labs/cairo-runner/go/ct/driver/cli"
	"github.com/kkrt-labs/cairo-runner/go/harness"
	"github.com/kkrt-labs/cairo-runner/go/program"
	"github.com/kkrt-labs/cairo-runner/go/runner/cvm"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var RunCmd = cli.Command{
	Action:    doRun,
	Name:      "run",
	Usage:     "Run a function of a program artifact",
	ArgsUsage: "<artifact> <function> [<value>... | <name>=<value>...]",
	Flags: []cli.Flag{
		cliUtils.RunnerFlag,
		cliUtils.StepLimitFlag,
		cliUtils.ArgTypeFlag,
		cliUtils.ReturnTypeFlag,
	},
}

func init() {
	cvm.RegisterExperimentalRunnerConfigurations()
}

func doRun(context *cli.Context) error {
	if context.Args().Len() < 2 {
		return fmt.Errorf("expected an artifact and a function name")
	}
	config := getConfig(context)

	loader, err := program.NewLoader(config.CacheSize)
	if err != nil {
		return err
	}
	prog, err := loader.LoadFile(context.Args().Get(0))
	if err != nil {
		return err
	}
	fn, err := program.Resolve(prog, context.Args().Get(1))
	if err != nil {
		return err
	}

	argTypes, err := parseTypeOverrides(cliUtils.ArgTypeFlag.Fetch(context))
	if err != nil {
		return err
	}
	returnTypes, err := parseTypeOverrides(cliUtils.ReturnTypeFlag.Fetch(context))
	if err != nil {
		return err
	}

	opts := []harness.Option{
		harness.WithRunner(cliUtils.RunnerFlag.Fetch(context, config.Runner)),
		harness.WithStepLimit(cliUtils.StepLimitFlag.Fetch(context, config.StepLimit)),
		harness.WithLogger(logrus.StandardLogger()),
	}
	for member, t := range argTypes {
		opts = append(opts, harness.WithArgType(fn.Name, member, t))
	}
	for member, t := range returnTypes {
		opts = append(opts, harness.WithReturnType(fn.Name, member, t))
	}
	h, err := harness.New(prog, opts...)
	if err != nil {
		return err
	}

	args, err := parseArgs(fn, context.Args().Slice()[2:], argTypes)
	if err != nil {
		return err
	}
	res, err := h.Run(context.Context, fn.Name, args...)
	if err != nil {
		return err
	}
	fmt.Println(formatValue(res))
	return nil
}
