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
	"math/big"

	"github.com/holiman/uint256"
	"github.com/kkrt-labs/cairo-runner/go/cairo"
	"github.com/kkrt-labs/cairo-runner/go/examples"
	"github.com/kkrt-labs/cairo-runner/go/harness"
	"github.com/kkrt-labs/cairo-runner/go/reference"
	"pgregory.net/rand"
)

// maxBytesLength bounds the byte strings generated for nibble splitting.
const maxBytesLength = 64

// Rules returns the rules covering the example functions.
func Rules() []Rule {
	minExample := examples.GetMinExample()
	divModExample := examples.GetDivModExample()
	nibblesExample := examples.GetBytesToNibbleListExample()
	return []Rule{
		{
			Name:    "min",
			Example: minExample,
			Generate: func(rnd *rand.Rand) []any {
				return []any{harness.Kwargs{"a": randomUint128(rnd), "b": randomUint128(rnd)}}
			},
		},
		{
			Name:    "divmod",
			Example: divModExample,
			Generate: func(rnd *rand.Rand) []any {
				return []any{harness.Kwargs{"value": randomUint128(rnd), "div": randomDivisor(rnd)}}
			},
		},
		{
			Name:    "divmod_by_zero",
			Example: divModExample,
			Generate: func(rnd *rand.Rand) []any {
				return []any{harness.Kwargs{"value": randomUint128(rnd), "div": 0}}
			},
			ExpectFault: cairo.DivisionUndefined,
		},
		{
			Name:    "bytes_to_nibble_list",
			Example: nibblesExample,
			Generate: func(rnd *rand.Rand) []any {
				return []any{randomBytes(rnd)}
			},
		},
	}
}

// randomUint128 samples values below 2^128, preferring boundary values.
func randomUint128(rnd *rand.Rand) *big.Int {
	switch rnd.Intn(8) {
	case 0:
		return big.NewInt(int64(rnd.Intn(3)))
	case 1:
		largest := reference.MaxUint128()
		return largest.SubUint64(largest, uint64(rnd.Intn(3))).ToBig()
	case 2:
		return new(big.Int).SetUint64(rnd.Uint64())
	}
	res := new(uint256.Int).SetUint64(rnd.Uint64())
	res.Lsh(res, 64)
	res.Or(res, uint256.NewInt(rnd.Uint64()))
	return res.ToBig()
}

// randomDivisor samples divisors in [1, reference.MaxDivisor].
func randomDivisor(rnd *rand.Rand) *big.Int {
	switch rnd.Intn(8) {
	case 0:
		return big.NewInt(1 + int64(rnd.Intn(16)))
	case 1:
		return reference.MaxDivisor.ToBig()
	}
	res := new(uint256.Int).SetUint64(rnd.Uint64())
	res.Lsh(res, 64)
	res.Or(res, uint256.NewInt(rnd.Uint64()))
	res.Mod(res, reference.MaxDivisor)
	return res.AddUint64(res, 1).ToBig()
}

func randomBytes(rnd *rand.Rand) []byte {
	res := make([]byte, rnd.Intn(maxBytesLength+1))
	rnd.Read(res)
	return res
}
