// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ct

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"pgregory.net/rand"
)

// ForEachCase generates samples cases for each of the given rules and
// passes them to the consumer using numJobs parallel workers. The random
// source is re-seeded for each rule, so the cases of a rule only depend on
// the seed. If printProgress is not nil, it is called periodically and
// once at the end.
func ForEachCase(
	ctx context.Context,
	rules []Rule,
	samples int,
	numJobs int,
	seed uint64,
	consume func(Case) ConsumerResult,
	printProgress func(relativeTime time.Duration, rate float64, current int64),
) error {
	if numJobs <= 0 {
		numJobs = 1
	}
	var caseCounter atomic.Int64
	var abort atomic.Bool

	if printProgress != nil {
		done := make(chan struct{})
		printerDone := make(chan struct{})
		go func() {
			defer close(printerDone)
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			startTime := time.Now()
			lastTime := startTime
			lastCounter := int64(0)

			checkTimingAndPrint := func(now time.Time) {
				cur := caseCounter.Load()
				diffCounter := cur - lastCounter
				diffTime := now.Sub(lastTime)
				lastTime = now
				lastCounter = cur
				rate := float64(diffCounter) / diffTime.Seconds()
				printProgress(now.Sub(startTime), rate, cur)
			}

			for {
				select {
				case <-done:
					checkTimingAndPrint(time.Now())
					return
				case now := <-ticker.C:
					checkTimingAndPrint(now)
				}
			}
		}()
		defer func() {
			close(done)   // < signals progress printer to stop
			<-printerDone // < blocks until the final report is printed
		}()
	}

	// Consumers are started before the producer to keep the case channel
	// drained.
	group, ctx := errgroup.WithContext(ctx)
	cases := make(chan Case, 10*numJobs)
	for i := 0; i < numJobs; i++ {
		group.Go(func() error {
			for c := range cases {
				if abort.Load() {
					continue // < keep draining the channel
				}
				caseCounter.Add(1)
				if consume(c) == ConsumeAbort {
					abort.Store(true)
				}
			}
			return nil
		})
	}

	group.Go(func() error {
		defer close(cases)
		for i := range rules {
			rule := &rules[i]
			// random is re-seeded for each rule to be reproducible.
			rnd := rand.New(seed)
			for index := 0; index < samples; index++ {
				if abort.Load() {
					return nil
				}
				c := Case{Rule: rule, Index: index, Args: rule.Generate(rnd)}
				select {
				case cases <- c:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		return nil
	})
	return group.Wait()
}
