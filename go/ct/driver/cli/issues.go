// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cliUtils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kkrt-labs/cairo-runner/go/ct"
	"gopkg.in/yaml.v3"
)

type issue struct {
	Rule  string `yaml:"rule"`
	Index int    `yaml:"index"`
	Args  string `yaml:"args"`
	Error string `yaml:"error"`

	err error
}

func (i *issue) Err() error {
	return i.err
}

type IssuesCollector struct {
	issues []issue
	mu     sync.Mutex
}

func (c *IssuesCollector) AddIssue(testCase ct.Case, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issues = append(c.issues, issue{
		Rule:  testCase.Rule.Name,
		Index: testCase.Index,
		Args:  fmt.Sprint(testCase.Args),
		Error: err.Error(),
		err:   err,
	})
}

func (c *IssuesCollector) NumIssues() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.issues)
}

func (c *IssuesCollector) GetIssues() []issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issues
}

// ExportIssues prints the collected issues and writes them to a YAML file
// in a fresh temporary directory. The path of the file is returned; it is
// empty if there are no issues.
func (c *IssuesCollector) ExportIssues() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.issues) == 0 {
		return "", nil
	}
	for _, issue := range c.issues {
		fmt.Printf("----------------------------\n")
		fmt.Printf("%s\n", issue.err)
	}
	dir, err := os.MkdirTemp("", "ct_issues_*")
	if err != nil {
		return "", fmt.Errorf("failed to create output directory for %d issues", len(c.issues))
	}
	data, err := yaml.Marshal(c.issues)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "issues.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
