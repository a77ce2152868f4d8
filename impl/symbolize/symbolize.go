// Package symbolize turns minidumps into symbolized stack traces by running
// the breakpad stackwalker against staged symbols.
package symbolize

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Symbolizer runs an external minidump stackwalker binary.
type Symbolizer struct {
	binary string
}

// New creates a Symbolizer using the passed binary, which must accept a
// dump path and a symbols directory as its two arguments (the
// minidump_stackwalk convention).
func New(binary string) *Symbolizer {
	return &Symbolizer{binary: binary}
}

// Run symbolicates the dump at dumpPath against the symbols in symbolsDir
// and returns the stackwalker's stdout. A non-zero exit is an error
// carrying the stackwalker's stderr.
func (s *Symbolizer) Run(ctx context.Context, dumpPath string, symbolsDir string) (string, error) {
	cmd := exec.CommandContext(ctx, s.binary, dumpPath, symbolsDir)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("can't generate stack trace: %s (rc=%d)",
				stderr.String(), exitErr.ExitCode())
		}
		return "", fmt.Errorf("can't run %s: %w", s.binary, err)
	}
	return stdout.String(), nil
}
