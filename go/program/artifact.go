// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package program

import "encoding/json"

// artifact mirrors the JSON document produced by the Cairo 0 compiler.
// Fields not needed for running functions are kept as raw messages so
// that artifacts can be re-emitted without loss.
type artifact struct {
	Attributes       json.RawMessage       `json:"attributes,omitempty"`
	Builtins         []string              `json:"builtins"`
	CompilerVersion  string                `json:"compiler_version,omitempty"`
	Data             []string              `json:"data"`
	DebugInfo        json.RawMessage       `json:"debug_info,omitempty"`
	Hints            map[string][]hint     `json:"hints"`
	Identifiers      map[string]identifier `json:"identifiers"`
	MainScope        string                `json:"main_scope"`
	Prime            string                `json:"prime"`
	ReferenceManager referenceManager      `json:"reference_manager"`
}

type hint struct {
	AccessibleScopes []string         `json:"accessible_scopes"`
	Code             string           `json:"code"`
	FlowTrackingData flowTrackingData `json:"flow_tracking_data"`
}

type flowTrackingData struct {
	ApTracking   apTracking     `json:"ap_tracking"`
	ReferenceIds map[string]int `json:"reference_ids"`
}

type apTracking struct {
	Group  int `json:"group"`
	Offset int `json:"offset"`
}

type referenceManager struct {
	References []reference `json:"references"`
}

type reference struct {
	ApTrackingData apTracking `json:"ap_tracking_data"`
	Pc             int        `json:"pc"`
	Value          string     `json:"value"`
}

// identifier covers all identifier kinds; which fields are set depends on
// the kind given by Type.
type identifier struct {
	Type string `json:"type"`

	// function and label
	Decorators []string `json:"decorators,omitempty"`
	Pc         *int     `json:"pc,omitempty"`

	// struct
	FullName string            `json:"full_name,omitempty"`
	Members  map[string]member `json:"members,omitempty"`
	Size     *int              `json:"size,omitempty"`

	// type_definition and reference
	CairoType string `json:"cairo_type,omitempty"`

	// alias
	Destination string `json:"destination,omitempty"`

	// const
	Value json.RawMessage `json:"value,omitempty"`

	References json.RawMessage `json:"references,omitempty"`
}

type member struct {
	CairoType string `json:"cairo_type"`
	Offset    int    `json:"offset"`
}
