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
	"math"
	"time"

	"github.com/dsnet/golib/unitconv"
	"github.com/kkrt-labs/cairo-runner/go/ct"
	cliUtils "github.com/kkrt-labs/cairo-runner/go/ct/driver/cli"
	"github.com/kkrt-labs/cairo-runner/go/harness"
	"github.com/urfave/cli/v2"
)

var CheckCmd = cliUtils.AddCommonFlags(cli.Command{
	Action: doCheck,
	Name:   "check",
	Usage:  "Compare the results of a runner with the reference implementations",
	Flags: []cli.Flag{
		cliUtils.FilterFlag,
		cliUtils.JobsFlag,
		cliUtils.SeedFlag,
		cliUtils.SamplesFlag,
		cliUtils.MaxErrorsFlag,
		cliUtils.RunnerFlag,
		cliUtils.StepLimitFlag,
	},
})

func doCheck(context *cli.Context) error {
	config := getConfig(context)

	filter, err := cliUtils.FilterFlag.Fetch(context)
	if err != nil {
		return err
	}
	jobCount := cliUtils.JobsFlag.Fetch(context)
	seed := cliUtils.SeedFlag.Fetch(context)
	samples := cliUtils.SamplesFlag.Fetch(context)
	maxErrors := cliUtils.MaxErrorsFlag.Fetch(context)
	if maxErrors <= 0 {
		maxErrors = math.MaxInt
	}
	runner := cliUtils.RunnerFlag.Fetch(context, config.Runner)

	rules := ct.FilterRules(ct.Rules(), filter)
	target, err := ct.NewTarget(runner, rules,
		harness.WithStepLimit(cliUtils.StepLimitFlag.Fetch(context, config.StepLimit)),
	)
	if err != nil {
		return err
	}

	issuesCollector := cliUtils.IssuesCollector{}
	statsCollector := newStatsCollector(rules)

	printIssueCounts := func(relativeTime time.Duration, rate float64, current int64) {
		fmt.Printf(
			"[t=%4d:%02d] - Processing ~%s cases per second, total %d, found issues %d\n",
			int(relativeTime.Seconds())/60, int(relativeTime.Seconds())%60,
			unitconv.FormatPrefix(rate, unitconv.SI, 0), current, issuesCollector.NumIssues(),
		)
	}

	opCheck := func(c ct.Case) ct.ConsumerResult {
		if issuesCollector.NumIssues() >= maxErrors {
			return ct.ConsumeAbort
		}
		statsCollector.registerTestFor(c.Rule.Name)
		if err := target.Check(context.Context, c); err != nil {
			statsCollector.registerIssueFor(c.Rule.Name)
			issuesCollector.AddIssue(c, err)
		}
		return ct.ConsumeContinue
	}

	fmt.Printf("Checking %d rules on %s with seed %d using %d jobs ...\n", len(rules), runner, seed, jobCount)
	err = ct.ForEachCase(context.Context, rules, samples, jobCount, seed, opCheck, printIssueCounts)
	if err != nil {
		return fmt.Errorf("error checking rules: %w", err)
	}

	// Summarize the result.
	fmt.Printf("%v", statsCollector.getStatistics())
	numIssues := issuesCollector.NumIssues()
	if numIssues == 0 {
		fmt.Printf("All cases passed successfully!\n")
		return nil
	}
	path, err := issuesCollector.ExportIssues()
	if err != nil {
		return err
	}
	fmt.Printf("Issues dumped to %s\n", path)
	return fmt.Errorf("failed to pass %d cases", numIssues)
}
