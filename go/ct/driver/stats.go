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
	"sort"
	"strings"
	"sync"

	"github.com/kkrt-labs/cairo-runner/go/ct"
	"golang.org/x/exp/maps"
)

type statsCollector struct {
	statistics ruleStatistics
	mu         sync.Mutex
}

func newStatsCollector(rules []ct.Rule) *statsCollector {
	stats := ruleStatistics{make(map[string]ruleInfo)}
	for _, rule := range rules {
		stats.data[rule.Name] = ruleInfo{} // initialize all rules with 0
	}
	return &statsCollector{statistics: stats}
}

func (c *statsCollector) registerTestFor(ruleName string) {
	c.mu.Lock()
	c.statistics.registerTestFor(ruleName)
	c.mu.Unlock()
}

func (c *statsCollector) registerIssueFor(ruleName string) {
	c.mu.Lock()
	c.statistics.registerIssueFor(ruleName)
	c.mu.Unlock()
}

func (c *statsCollector) getStatistics() *ruleStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statistics.clone()
}

type ruleStatistics struct {
	data map[string]ruleInfo
}

func (s *ruleStatistics) registerTestFor(rule string) {
	if s.data == nil {
		s.data = make(map[string]ruleInfo)
	}
	stats := s.data[rule]
	stats.numTests++
	s.data[rule] = stats
}

func (s *ruleStatistics) registerIssueFor(rule string) {
	if s.data == nil {
		s.data = make(map[string]ruleInfo)
	}
	stats := s.data[rule]
	stats.numIssues++
	s.data[rule] = stats
}

func (s *ruleStatistics) getNumTestsFor(rule string) uint64 {
	return s.data[rule].numTests
}

func (s *ruleStatistics) getNumIssuesFor(rule string) uint64 {
	return s.data[rule].numIssues
}

func (s *ruleStatistics) clone() *ruleStatistics {
	return &ruleStatistics{maps.Clone(s.data)}
}

func (s *ruleStatistics) String() string {
	builder := strings.Builder{}

	rules := maps.Keys(s.data)
	sort.Strings(rules)

	builder.WriteString("rule,num_tests,num_issues\n")
	for _, rule := range rules {
		info := s.data[rule]
		builder.WriteString(fmt.Sprintf("%s,%d,%d\n", rule, info.numTests, info.numIssues))
	}
	return builder.String()
}

type ruleInfo struct {
	numTests  uint64
	numIssues uint64
}
