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
	"os"
	"path/filepath"

	"github.com/kkrt-labs/cairo-runner/go/examples"
	"github.com/urfave/cli/v2"
)

var ExportCmd = cli.Command{
	Action:    doExport,
	Name:      "export",
	Usage:     "Write the artifacts of the example programs",
	ArgsUsage: "<directory>",
}

func doExport(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one output directory")
	}
	dir := context.Args().First()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, example := range examples.All() {
		data, err := example.Artifact()
		if err != nil {
			return fmt.Errorf("failed to assemble %s: %w", example.Name, err)
		}
		path := filepath.Join(dir, example.Name+".json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		fmt.Println(path)
	}
	return nil
}
