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
	"sort"
	"strings"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
	"github.com/kkrt-labs/cairo-runner/go/program"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"
)

var DescribeCmd = cli.Command{
	Action:    doDescribe,
	Name:      "describe",
	Usage:     "List the functions of a program artifact",
	ArgsUsage: "<artifact>",
}

func doDescribe(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one artifact")
	}
	prog, err := program.LoadFile(context.Args().First())
	if err != nil {
		return err
	}

	names := maps.Keys(prog.Functions)
	sort.Strings(names)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Function", "PC", "Implicit", "Arguments", "Returns"})
	table.SetCaption(true, fmt.Sprintf("%d Functions, builtins: %s", len(names), strings.Join(prog.Builtins, ", ")))
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, name := range names {
		fn := prog.Functions[name]
		table.Append([]string{
			fn.Name,
			fmt.Sprint(fn.Pc),
			formatMembers(fn.ImplicitArgs),
			formatMembers(fn.Args),
			formatMembers(fn.Returns),
		})
	}
	table.Render()
	return nil
}

func formatMembers(members []cairo.Member) string {
	parts := make([]string, 0, len(members))
	for _, m := range members {
		parts = append(parts, m.Name+": "+m.Type)
	}
	return strings.Join(parts, ", ")
}
