// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cliUtils

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"runtime/pprof"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
	"github.com/urfave/cli/v2"
)

type filterFlagType struct {
	cli.StringFlag
}

var FilterFlag = &filterFlagType{
	cli.StringFlag{
		Name:    "filter",
		Aliases: []string{"f"},
		Usage:   "execute only for rules which name matches the given regex",
		Value:   "",
	},
}

func (f *filterFlagType) Fetch(context *cli.Context) (*regexp.Regexp, error) {
	return regexp.Compile(context.String(f.Name))
}

type jobsFlagType struct {
	cli.IntFlag
}

var JobsFlag = &jobsFlagType{
	cli.IntFlag{
		Name:    "jobs",
		Aliases: []string{"j"},
		Usage:   "number of jobs run simultaneously",
		Value:   runtime.NumCPU(),
	},
}

func (f *jobsFlagType) Fetch(context *cli.Context) int {
	if jobs := context.Int(f.Name); jobs > 0 {
		return jobs
	}
	return runtime.NumCPU()
}

type seedFlagType struct {
	cli.Uint64Flag
}

var SeedFlag = &seedFlagType{
	cli.Uint64Flag{
		Name:    "seed",
		Aliases: []string{"s"},
		Usage:   "seed for the random number generator",
	},
}

func (f *seedFlagType) Fetch(context *cli.Context) uint64 {
	return context.Uint64(f.Name)
}

type samplesFlagType struct {
	cli.IntFlag
}

var SamplesFlag = &samplesFlagType{
	cli.IntFlag{
		Name:  "samples",
		Usage: "number of cases generated per rule",
		Value: 1000,
	},
}

func (f *samplesFlagType) Fetch(context *cli.Context) int {
	return context.Int(f.Name)
}

type maxErrorsFlagType struct {
	cli.IntFlag
}

var MaxErrorsFlag = &maxErrorsFlagType{
	cli.IntFlag{
		Name:  "max-errors",
		Usage: "aborts testing after the given number of issues",
		Value: -1,
	},
}

func (f *maxErrorsFlagType) Fetch(context *cli.Context) int {
	return context.Int(f.Name)
}

type runnerFlagType struct {
	cli.StringFlag
}

var RunnerFlag = &runnerFlagType{
	cli.StringFlag{
		Name:  "runner",
		Usage: "name of the registered runner executing the programs",
		Value: cairo.DefaultRunner,
	},
}

// Fetch returns the runner selected on the command line, or the given
// default if the flag is not set.
func (f *runnerFlagType) Fetch(context *cli.Context, fallback string) string {
	if context.IsSet(f.Name) || fallback == "" {
		return context.String(f.Name)
	}
	return fallback
}

type stepLimitFlagType struct {
	cli.IntFlag
}

var StepLimitFlag = &stepLimitFlagType{
	cli.IntFlag{
		Name:  "step-limit",
		Usage: "maximum number of steps of a single run, 0 selects the runner's default",
	},
}

// Fetch returns the step limit selected on the command line, or the given
// default if the flag is not set.
func (f *stepLimitFlagType) Fetch(context *cli.Context, fallback int) int {
	if context.IsSet(f.Name) {
		return context.Int(f.Name)
	}
	return fallback
}

type typesFlagType struct {
	cli.StringSliceFlag
}

var ArgTypeFlag = &typesFlagType{
	cli.StringSliceFlag{
		Name:  "arg-type",
		Usage: "type hint of an argument as <member>=<type>, e.g. bytes=bytes",
	},
}

var ReturnTypeFlag = &typesFlagType{
	cli.StringSliceFlag{
		Name:  "return-type",
		Usage: "type hint of a return value as <member>=<type>",
	},
}

func (f *typesFlagType) Fetch(context *cli.Context) []string {
	return context.StringSlice(f.Name)
}

type cpuProfileType struct {
	cli.StringFlag
}

var CpuProfileFlag = &cpuProfileType{
	cli.StringFlag{
		Name:      "cpuprofile",
		Usage:     "store CPU profile in the provided filename",
		TakesFile: true,
	},
}

func (f *cpuProfileType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

// AddCommonFlags adds the flags shared by all long running commands.
func AddCommonFlags(command cli.Command) cli.Command {
	command.Flags = append(command.Flags, CpuProfileFlag)

	action := command.Action
	command.Action = func(ctx *cli.Context) (err error) {

		if cpuprofileFilename := CpuProfileFlag.Fetch(ctx); cpuprofileFilename != "" {
			f, err := os.Create(cpuprofileFilename)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %w", err)
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		return action(ctx)
	}
	return command
}
