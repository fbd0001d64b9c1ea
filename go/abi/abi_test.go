// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package abi

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/kkrt-labs/cairo-runner/go/cairo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rand"
)

func felts(values ...uint64) []cairo.Felt {
	res := make([]cairo.Felt, 0, len(values))
	for _, v := range values {
		res = append(res, cairo.FeltFromUint64(v))
	}
	return res
}

func pow2(n uint) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), n)
}

func TestFelt_EncodesIntegers(t *testing.T) {
	minusOne := new(big.Int).Sub(cairo.Prime(), big.NewInt(1))
	tests := map[string]struct {
		value any
		want  cairo.Felt
	}{
		"int":          {42, cairo.FeltFromUint64(42)},
		"uint8":        {uint8(7), cairo.FeltFromUint64(7)},
		"negative":     {-1, cairo.FeltFromBig(minusOne)},
		"big":          {pow2(200), cairo.FeltFromBig(pow2(200))},
		"reduced":      {new(big.Int).Add(cairo.Prime(), big.NewInt(3)), cairo.FeltFromUint64(3)},
		"felt":         {cairo.FeltFromUint64(9), cairo.FeltFromUint64(9)},
		"uint256":      {uint256.NewInt(5), cairo.FeltFromUint64(5)},
		"bool":         {true, cairo.FeltFromUint64(1)},
		"negative big": {big.NewInt(-2), cairo.FeltFromInt64(-2)},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Encode(Felt, test.value)
			require.NoError(t, err)
			assert.Equal(t, []cairo.Felt{test.want}, got)
		})
	}
}

func TestFelt_RejectsUnsupportedValues(t *testing.T) {
	for _, value := range []any{"12", 1.5, nil, (*big.Int)(nil), []int{1}} {
		_, err := Encode(Felt, value)
		var encoding *cairo.EncodingError
		assert.True(t, errors.As(err, &encoding), "value %v", value)
	}
}

func TestUint_EnforcesRange(t *testing.T) {
	tests := map[string]struct {
		bits  int
		value any
		ok    bool
	}{
		"zero":             {128, 0, true},
		"max uint128":      {128, new(big.Int).Sub(pow2(128), big.NewInt(1)), true},
		"2^128":            {128, pow2(128), false},
		"negative":         {128, -1, false},
		"max uint8":        {8, 255, true},
		"256 as uint8":     {8, 256, false},
		"max uint256":      {256, new(big.Int).Sub(pow2(256), big.NewInt(1)), true},
		"2^256 as uint256": {256, pow2(256), false},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Encode(Uint(test.bits), test.value)
			if test.ok {
				assert.NoError(t, err)
			} else {
				var encoding *cairo.EncodingError
				assert.ErrorAs(t, err, &encoding)
			}
		})
	}
}

func TestUint_WideIntegersUseLimbs(t *testing.T) {
	value := new(big.Int).Add(pow2(200), big.NewInt(7))
	cells, err := Encode(Uint(256), value)
	require.NoError(t, err)
	assert.Equal(t, []cairo.Felt{cairo.FeltFromUint64(7), cairo.FeltFromBig(pow2(72))}, cells)

	decoded, err := Decode(Uint(256), cells)
	require.NoError(t, err)
	assert.Zero(t, value.Cmp(decoded.(*big.Int)))

	cells, err = Encode(Uint(384), value)
	require.NoError(t, err)
	assert.Len(t, cells, 3)
}

func TestUint_DecodingChecksRange(t *testing.T) {
	_, err := Decode(Uint(8), felts(256))
	var decoding *cairo.DecodingError
	assert.ErrorAs(t, err, &decoding)

	_, err = Decode(Uint(256), []cairo.Felt{{}, cairo.FeltFromBig(pow2(128))})
	assert.ErrorAs(t, err, &decoding)
}

func TestU256_RoundTrip(t *testing.T) {
	rnd := rand.New(1)
	for i := 0; i < 50; i++ {
		value := new(uint256.Int).SetBytes32(randomBytes(rnd, 32))
		cells, err := Encode(U256, value)
		require.NoError(t, err)
		require.Len(t, cells, 2)

		decoded, err := Decode(U256, cells)
		require.NoError(t, err)
		assert.Equal(t, value, decoded)
	}
}

func TestU256_Limbs(t *testing.T) {
	value := new(big.Int).Add(pow2(130), big.NewInt(1))
	cells, err := Encode(U256, value)
	require.NoError(t, err)
	assert.Equal(t, felts(1, 4), cells)

	_, err = Encode(U256, pow2(256))
	assert.Error(t, err)
	_, err = Encode(U256, -5)
	assert.Error(t, err)
}

func TestBool(t *testing.T) {
	cells, err := Encode(Bool, true)
	require.NoError(t, err)
	assert.Equal(t, felts(1), cells)

	got, err := Decode(Bool, felts(0))
	require.NoError(t, err)
	assert.Equal(t, false, got)

	_, err = Decode(Bool, felts(2))
	var decoding *cairo.DecodingError
	assert.ErrorAs(t, err, &decoding)

	_, err = Encode(Bool, 1)
	var encoding *cairo.EncodingError
	assert.ErrorAs(t, err, &encoding)
}

func TestBytes_Layout(t *testing.T) {
	cells, err := Encode(Bytes, []byte{0xab, 0x01})
	require.NoError(t, err)
	assert.Equal(t, felts(2, 0xab, 0x01), cells)

	got, err := Decode(Bytes, cells)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xab, 0x01}, got)

	got, err = Decode(Bytes, felts(0))
	require.NoError(t, err)
	assert.Equal(t, []byte{}, got)
}

func TestBytes_DecodingRejectsMalformedSequences(t *testing.T) {
	tests := map[string][]cairo.Felt{
		"empty":           nil,
		"short":           felts(3, 1, 2),
		"trailing cells":  felts(1, 1, 2),
		"no byte":         felts(1, 256),
		"huge length":     {cairo.FeltFromInt64(-1)},
		"max length":      {cairo.FeltFromUint64(math.MaxUint64)},
		"wrapping length": {cairo.FeltFromUint64(math.MaxUint64 - 20), cairo.FeltFromUint64(1)},
	}
	for name, cells := range tests {
		t.Run(name, func(t *testing.T) {
			for _, typ := range []Type{Bytes, PackedBytes} {
				_, err := Decode(typ, cells)
				var decoding *cairo.DecodingError
				assert.ErrorAs(t, err, &decoding, "type %s", typ.Name())
			}
		})
	}
}

func TestPackedBytes_Layout(t *testing.T) {
	data := make([]byte, 33)
	for i := range data {
		data[i] = byte(i + 1)
	}
	cells, err := Encode(PackedBytes, data)
	require.NoError(t, err)
	require.Len(t, cells, 3)
	assert.Equal(t, cairo.FeltFromUint64(33), cells[0])
	assert.Equal(t, cairo.FeltFromBig(new(big.Int).SetBytes(data[:31])), cells[1])
	assert.Equal(t, cairo.FeltFromUint64(32<<8|33), cells[2])

	got, err := Decode(PackedBytes, cells)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPackedBytes_RejectsOversizedWords(t *testing.T) {
	_, err := Decode(PackedBytes, felts(1, 0x100))
	var decoding *cairo.DecodingError
	assert.ErrorAs(t, err, &decoding)

	_, err = Decode(PackedBytes, felts(32, 1))
	assert.ErrorAs(t, err, &decoding)
}

func TestBytes_RoundTripRandomStrings(t *testing.T) {
	rnd := rand.New(3)
	for _, typ := range []Type{Bytes, PackedBytes} {
		for i := 0; i < 100; i++ {
			data := randomBytes(rnd, rnd.Intn(100))
			cells, err := Encode(typ, data)
			require.NoError(t, err)
			got, err := Decode(typ, cells)
			require.NoError(t, err)
			assert.Equal(t, data, got, "type %s", typ.Name())
		}
	}
}

func TestList(t *testing.T) {
	cells, err := Encode(List(U256), []*big.Int{big.NewInt(1), pow2(128)})
	require.NoError(t, err)
	assert.Equal(t, felts(2, 1, 0, 0, 1), cells)

	got, err := Decode(List(Felt), felts(2, 5, 6))
	require.NoError(t, err)
	assert.Equal(t, []any{big.NewInt(5), big.NewInt(6)}, got)

	_, err = Decode(List(Felt), felts(3, 5, 6))
	assert.Error(t, err)

	_, err = Encode(List(Felt), 5)
	var encoding *cairo.EncodingError
	assert.ErrorAs(t, err, &encoding)

	_, err = Encode(List(Uint(8)), []int{1, 300})
	assert.ErrorAs(t, err, &encoding)
}

func TestFelts_FixedSize(t *testing.T) {
	cells, err := Encode(Felts(2), []int{3, 4})
	require.NoError(t, err)
	assert.Equal(t, felts(3, 4), cells)

	_, err = Encode(Felts(2), []int{3})
	assert.Error(t, err)

	got, err := Decode(Felts(2), cells)
	require.NoError(t, err)
	assert.Equal(t, []any{big.NewInt(3), big.NewInt(4)}, got)
}

func TestDecodePrefix_IgnoresTrailingCells(t *testing.T) {
	got, used, err := DecodePrefix(Bytes, felts(1, 7, 99, 100))
	require.NoError(t, err)
	assert.Equal(t, 2, used)
	assert.Equal(t, []byte{7}, got)
}

func TestForCairoType(t *testing.T) {
	tests := map[string]Type{
		"felt":                                   Felt,
		"felt*":                                  List(Felt),
		"starkware.cairo.common.uint256.Uint256": U256,
		"bool":                                   Bool,
	}
	for cairoType, want := range tests {
		got, found := ForCairoType(cairoType)
		require.True(t, found, cairoType)
		assert.Equal(t, want.Name(), got.Name())
	}
	_, found := ForCairoType("__main__.Pair")
	assert.False(t, found)

	assert.Equal(t, "felt[3]", ForMember(cairo.Member{Name: "p", Type: "__main__.Triple", Size: 3}).Name())
	assert.Equal(t, "list[felt]", ForMember(cairo.Member{Name: "p", Type: "__main__.Triple*", Size: 1}).Name())
}

func randomBytes(rnd *rand.Rand, n int) []byte {
	res := make([]byte, n)
	for i := range res {
		res[i] = byte(rnd.Uint32())
	}
	return res
}
