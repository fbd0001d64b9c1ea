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
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// DecoderConfig contains the configuration options of the instruction decoder.
type DecoderConfig struct {
	// CacheSize is the maximum number of decoded programs retained. If set
	// to 0, a default size is used. If negative, no cache is used.
	CacheSize int
}

const defaultDecoderCacheSize = 64

// decodedInstruction is a program word together with its interpretation as
// an instruction. Words holding immediates or data do not decode; err
// reports why, and is only raised if such a word is executed.
type decodedInstruction struct {
	instruction cairo.Instruction
	kind        kind
	err         error
}

type decodedHint struct {
	hint *cairo.Hint
	code string // < normalized code used for registry lookups
}

// decodedProgram is the form of a program executed by the machine.
type decodedProgram struct {
	program      *cairo.Program
	instructions []decodedInstruction
	hints        map[int][]decodedHint
}

// decoder converts programs into their decoded form.
type decoder struct {
	cache *lru.Cache[cairo.Hash, *decodedProgram]
}

func newDecoder(config DecoderConfig) (*decoder, error) {
	if config.CacheSize == 0 {
		config.CacheSize = defaultDecoderCacheSize
	}
	var cache *lru.Cache[cairo.Hash, *decodedProgram]
	if config.CacheSize > 0 {
		var err error
		cache, err = lru.New[cairo.Hash, *decodedProgram](config.CacheSize)
		if err != nil {
			return nil, err
		}
	}
	return &decoder{cache: cache}, nil
}

// decode returns the decoded form of the given program. Programs with a
// zero hash were not loaded from an artifact and are never cached.
func (d *decoder) decode(program *cairo.Program) *decodedProgram {
	if d.cache == nil || program.Hash == (cairo.Hash{}) {
		return decodeProgram(program)
	}
	res, exists := d.cache.Get(program.Hash)
	if exists {
		return res
	}
	res = decodeProgram(program)
	d.cache.Add(program.Hash, res)
	return res
}

func decodeProgram(program *cairo.Program) *decodedProgram {
	res := &decodedProgram{
		program:      program,
		instructions: make([]decodedInstruction, len(program.Data)),
		hints:        make(map[int][]decodedHint, len(program.Hints)),
	}
	for i, word := range program.Data {
		instruction, err := cairo.DecodeInstruction(word)
		res.instructions[i] = decodedInstruction{instruction: instruction, err: err}
		if err == nil {
			res.instructions[i].kind = kind(word.Uint64() >> 48)
		}
	}
	for pc, hints := range program.Hints {
		decoded := make([]decodedHint, len(hints))
		for i := range hints {
			decoded[i] = decodedHint{
				hint: &hints[i],
				code: normalizeHintCode(hints[i].Code),
			}
		}
		res.hints[pc] = decoded
	}
	return res
}
