// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cvm

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// kind is the flag part of an instruction word. Instructions of the same
// kind only differ in their offsets.
type kind uint16

func (k kind) String() string {
	word := uint64(k)<<48 | 0x8000<<32 | 0x8000<<16 | 0x8000
	if k&(1<<2) != 0 {
		word += 1 << 32 // immediates require an op1 offset of 1
	}
	instr, err := cairo.DecodeInstruction(cairo.FeltFromUint64(word))
	if err != nil {
		return fmt.Sprintf("kind(%#x)", uint16(k))
	}

	parts := []string{instr.Opcode.String()}
	switch instr.ResLogic {
	case cairo.ResAdd:
		parts = append(parts, "add")
	case cairo.ResMul:
		parts = append(parts, "mul")
	}
	if instr.Op1Src == cairo.Op1SrcImm {
		parts = append(parts, "imm")
	}
	switch instr.PcUpdate {
	case cairo.PcJumpAbs:
		parts = append(parts, "jmp_abs")
	case cairo.PcJumpRel:
		parts = append(parts, "jmp_rel")
	case cairo.PcJnz:
		parts = append(parts, "jnz")
	}
	switch instr.ApUpdate {
	case cairo.ApAdd:
		parts = append(parts, "ap+=")
	case cairo.ApAdd1:
		parts = append(parts, "ap++")
	}
	return strings.Join(parts, "/")
}

// statisticRunner is a runner that collects statistics about the instruction
// sequences of the executed code.
type statisticRunner struct {
	mutex sync.Mutex
	stats *statistics
}

func (s *statisticRunner) run(m *machine) (status, error) {
	stats := statsCollector{stats: newStatistics()}
	status := statusRunning
	var err error
	for status == statusRunning {
		if m.pc.Segment == programSegment && m.pc.Offset >= 0 && m.pc.Offset < len(m.program.instructions) {
			stats.nextOp(m.program.instructions[m.pc.Offset].kind)
		}
		status, err = steps(m, true)
		if err != nil {
			break
		}
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.stats == nil {
		s.stats = newStatistics()
	}
	s.stats.insert(stats.stats)
	return status, err
}

// getSummary returns a summary of the collected statistics in a
// human-readable format.
func (s *statisticRunner) getSummary() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.stats == nil {
		s.stats = newStatistics()
	}
	return s.stats.print()
}

// reset clears the collected statistics.
func (s *statisticRunner) reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats = newStatistics()
}

// statistics counts how often each instruction kind, and each pair and
// triple of consecutive kinds, was executed.
type statistics struct {
	count       uint64
	singleCount map[uint64]uint64
	pairCount   map[uint64]uint64
	tripleCount map[uint64]uint64
}

func newStatistics() *statistics {
	return &statistics{
		singleCount: map[uint64]uint64{},
		pairCount:   map[uint64]uint64{},
		tripleCount: map[uint64]uint64{},
	}
}

// insert adds the counts of the given statistics to this instance.
func (s *statistics) insert(src *statistics) {
	s.count += src.count
	for k, v := range src.singleCount {
		s.singleCount[k] += v
	}
	for k, v := range src.pairCount {
		s.pairCount[k] += v
	}
	for k, v := range src.tripleCount {
		s.tripleCount[k] += v
	}
}

func (s *statistics) print() string {
	type entry struct {
		value uint64
		count uint64
	}

	getTopN := func(data map[uint64]uint64, n int) []entry {
		list := make([]entry, 0, len(data))
		for k, c := range data {
			list = append(list, entry{k, c})
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].count != list[j].count {
				return list[i].count > list[j].count
			}
			return list[i].value < list[j].value
		})
		if len(list) < n {
			return list
		}
		return list[0:n]
	}
	percent := func(count uint64) float32 {
		return float32(count*100) / float32(s.count)
	}

	builder := strings.Builder{}
	write := func(format string, args ...interface{}) {
		builder.WriteString(fmt.Sprintf(format, args...))
	}

	write("\n----- Statistics ------\n")
	write("\nSteps: %d\n", s.count)
	write("\nSingles:\n")
	for _, e := range getTopN(s.singleCount, 5) {
		write("\t%-30v: %d (%.2f%%)\n", kind(e.value), e.count, percent(e.count))
	}
	write("\nPairs:\n")
	for _, e := range getTopN(s.pairCount, 5) {
		write("\t%-30v%-30v: %d (%.2f%%)\n", kind(e.value>>16), kind(e.value), e.count, percent(e.count))
	}
	write("\nTriples:\n")
	for _, e := range getTopN(s.tripleCount, 5) {
		write("\t%-30v%-30v%-30v: %d (%.2f%%)\n", kind(e.value>>32), kind(e.value>>16), kind(e.value), e.count, percent(e.count))
	}
	write("\n")
	return builder.String()
}

// statsCollector keeps track of the recent history of executed instructions
// to collect instruction sequence statistics.
type statsCollector struct {
	stats *statistics

	last       uint64
	secondLast uint64
}

func (s *statsCollector) nextOp(k kind) {
	cur := uint64(k)
	s.stats.count++
	s.stats.singleCount[cur]++
	if s.stats.count >= 2 {
		s.stats.pairCount[s.last<<16|cur]++
	}
	if s.stats.count >= 3 {
		s.stats.tripleCount[s.secondLast<<32|s.last<<16|cur]++
	}
	s.last, s.secondLast = cur, s.last
}
