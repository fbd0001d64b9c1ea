// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source compiler.go -destination compiler_mock.go -package compiler

// Compiler turns Cairo sources into program artifacts.
type Compiler interface {
	// Compile compiles the given source file and returns the path of the
	// produced artifact. Rejected sources are reported as
	// *CompilationError.
	Compile(ctx context.Context, source string) (string, error)
}

// CompilationError is produced when the compiler rejects a source file.
type CompilationError struct {
	Source   string
	ExitCode int
	Stderr   string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compilation of %s failed with exit code %d: %s", e.Source, e.ExitCode, strings.TrimSpace(e.Stderr))
}

// Config configures the invocation of the external compiler.
type Config struct {
	// Command is the compiler executable followed by leading arguments.
	// If empty, cairo-compile is used.
	Command []string
	// CairoPath lists the directories searched for imported modules.
	CairoPath []string
	// Formatter is run on each produced artifact, e.g. trunk fmt. Its
	// failures are logged and otherwise ignored. If empty, no formatter
	// is run.
	Formatter []string
	// Log receives progress and diagnostics. If nil, the standard logger
	// is used.
	Log *logrus.Logger
}

// CairoCompile invokes the Cairo 0 compiler in proof mode.
type CairoCompile struct {
	config Config
}

func NewCairoCompile(config Config) *CairoCompile {
	if len(config.Command) == 0 {
		config.Command = []string{"cairo-compile"}
	}
	if config.Log == nil {
		config.Log = logrus.StandardLogger()
	}
	return &CairoCompile{config: config}
}

// OutputPath returns the artifact path used for a source file: the source
// path with its extension replaced by .json.
func OutputPath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + ".json"
}

func (c *CairoCompile) Compile(ctx context.Context, source string) (string, error) {
	output := OutputPath(source)
	args := append([]string{}, c.config.Command[1:]...)
	args = append(args, source, "--output", output, "--proof_mode", "--no_debug_info")
	if len(c.config.CairoPath) > 0 {
		args = append(args, "--cairo_path", strings.Join(c.config.CairoPath, ":"))
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.config.Command[0], args...)
	cmd.Stderr = &stderr
	err := cmd.Run()

	log := c.config.Log.WithField("source", source)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		log.WithField("exit_code", exitErr.ExitCode()).Error("Compilation failed.")
		log.Error(stderr.String())
		return "", &CompilationError{
			Source:   source,
			ExitCode: exitErr.ExitCode(),
			Stderr:   stderr.String(),
		}
	}
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to run %s", c.config.Command[0])
	}
	log.WithField("output", output).Info("Compilation successful.")

	if len(c.config.Formatter) > 0 {
		format := append(append([]string{}, c.config.Formatter[1:]...), output)
		if err := exec.CommandContext(ctx, c.config.Formatter[0], format...).Run(); err != nil {
			log.WithError(err).Warn("Formatting failed.")
		}
	}
	return output, nil
}
