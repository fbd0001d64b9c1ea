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
	"math/big"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// Bytes encodes byte strings as their length followed by one field
// element per byte. Host values are []byte or string; decoded values are
// []byte.
var Bytes Type = bytesType{}

type bytesType struct{}

func (bytesType) Name() string { return "bytes" }

func (t bytesType) Encode(value any) ([]cairo.Felt, error) {
	data, ok := asBytes(value)
	if !ok {
		return nil, encodingError(t, "unsupported host value of type %T", value)
	}
	res := make([]cairo.Felt, 0, len(data)+1)
	res = append(res, cairo.FeltFromUint64(uint64(len(data))))
	for _, b := range data {
		res = append(res, cairo.FeltFromUint64(uint64(b)))
	}
	return res, nil
}

func (t bytesType) decode(r *reader) (any, error) {
	length, err := readLength(t, r, 1)
	if err != nil {
		return nil, err
	}
	res := make([]byte, length)
	for i := range res {
		f, err := r.next(t)
		if err != nil {
			return nil, err
		}
		if !f.IsUint64() || f.Uint64() > 0xff {
			return nil, decodingError(t, "element %d holds %v, not a byte", i, f)
		}
		res[i] = byte(f.Uint64())
	}
	return res, nil
}

// PackedBytes encodes byte strings as their length followed by big-endian
// words of 31 bytes each. The last word holds the remaining bytes. Host
// values are []byte or string; decoded values are []byte.
var PackedBytes Type = packedBytesType{}

type packedBytesType struct{}

const bytesPerWord = 31

func (packedBytesType) Name() string { return "packed_bytes" }

func (t packedBytesType) Encode(value any) ([]cairo.Felt, error) {
	data, ok := asBytes(value)
	if !ok {
		return nil, encodingError(t, "unsupported host value of type %T", value)
	}
	words := (len(data) + bytesPerWord - 1) / bytesPerWord
	res := make([]cairo.Felt, 0, words+1)
	res = append(res, cairo.FeltFromUint64(uint64(len(data))))
	for start := 0; start < len(data); start += bytesPerWord {
		end := min(start+bytesPerWord, len(data))
		res = append(res, cairo.FeltFromBig(new(big.Int).SetBytes(data[start:end])))
	}
	return res, nil
}

func (t packedBytesType) decode(r *reader) (any, error) {
	length, err := readLength(t, r, bytesPerWord)
	if err != nil {
		return nil, err
	}
	res := make([]byte, 0, length)
	for start := 0; start < length; start += bytesPerWord {
		size := min(bytesPerWord, length-start)
		f, err := r.next(t)
		if err != nil {
			return nil, err
		}
		if f.BitLen() > 8*size {
			return nil, decodingError(t, "word %d exceeds %d bytes", start/bytesPerWord, size)
		}
		word := make([]byte, size)
		res = append(res, f.Big().FillBytes(word)...)
	}
	return res, nil
}

// readLength reads a length prefix and checks that the remaining cells can
// hold that many bytes.
func readLength(t Type, r *reader, bytesPerCell int) (int, error) {
	f, err := r.next(t)
	if err != nil {
		return 0, err
	}
	if !f.IsUint64() {
		return 0, decodingError(t, "invalid length %v", f)
	}
	length := f.Uint64()
	if length > uint64(r.remaining())*uint64(bytesPerCell) {
		cells := length / uint64(bytesPerCell)
		if length%uint64(bytesPerCell) != 0 {
			cells++
		}
		return 0, decodingError(t, "length %d requires %d cells, only %d available", length, cells, r.remaining())
	}
	return int(length), nil
}

func asBytes(value any) ([]byte, bool) {
	switch v := value.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	}
	return nil, false
}
