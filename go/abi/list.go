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
	"reflect"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// List returns the type of variable-length lists encoded as their length
// followed by the encoded elements. Host values are slices of values
// accepted by the element type; decoded values are []any.
func List(element Type) Type {
	return listType{element: element}
}

type listType struct {
	element Type
}

func (t listType) Name() string { return "list[" + t.element.Name() + "]" }

func (t listType) Encode(value any) ([]cairo.Felt, error) {
	elements, ok := asSlice(value)
	if !ok {
		return nil, encodingError(t, "unsupported host value of type %T", value)
	}
	res := []cairo.Felt{cairo.FeltFromUint64(uint64(len(elements)))}
	for i, e := range elements {
		cells, err := t.element.Encode(e)
		if err != nil {
			return nil, encodingError(t, "element %d: %v", i, err)
		}
		res = append(res, cells...)
	}
	return res, nil
}

func (t listType) decode(r *reader) (any, error) {
	f, err := r.next(t)
	if err != nil {
		return nil, err
	}
	// every element occupies at least one cell
	if !f.IsUint64() || f.Uint64() > uint64(r.remaining()) {
		return nil, decodingError(t, "invalid length %v with %d cells remaining", f, r.remaining())
	}
	res := make([]any, 0, f.Uint64())
	for i := uint64(0); i < f.Uint64(); i++ {
		e, err := t.element.decode(r)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}

// asSlice converts slices and arrays of any element type into []any.
func asSlice(value any) ([]any, bool) {
	if v, ok := value.([]any); ok {
		return v, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	res := make([]any, rv.Len())
	for i := range res {
		res[i] = rv.Index(i).Interface()
	}
	return res, true
}
