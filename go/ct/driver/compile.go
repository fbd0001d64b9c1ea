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

	"github.com/kkrt-labs/cairo-runner/go/compiler"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var CompileCmd = cli.Command{
	Action:    doCompile,
	Name:      "compile",
	Usage:     "Compile Cairo sources in proof mode",
	ArgsUsage: "<source>...",
}

func doCompile(context *cli.Context) error {
	if context.Args().Len() == 0 {
		return fmt.Errorf("missing source file")
	}
	config := getConfig(context).Compiler.toCompilerConfig()
	config.Log = logrus.StandardLogger()
	c := compiler.NewCairoCompile(config)
	for _, source := range context.Args().Slice() {
		output, err := c.Compile(context.Context, source)
		if err != nil {
			return err
		}
		fmt.Println(output)
	}
	return nil
}
