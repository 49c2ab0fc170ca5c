// Package fixer writes corrected translation units back to disk.
package fixer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/gnolang/misra/internal/cfront"
)

type Fixer struct {
	DryRun bool
	Out    io.Writer
	logger *zap.Logger
}

func New(dryRun bool, out io.Writer, logger *zap.Logger) *Fixer {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fixer{
		DryRun: dryRun,
		Out:    out,
		logger: logger,
	}
}

// Fix replaces the content of filename with fixed. It reports whether the
// file changed. The new content must parse; a file that would no longer
// parse is left alone.
func (f *Fixer) Fix(ctx context.Context, filename string, original, fixed []byte) (bool, error) {
	if bytes.Equal(original, fixed) {
		return false, nil
	}
	if err := cfront.CheckSyntax(ctx, filename, fixed); err != nil {
		return false, fmt.Errorf("refusing to write %s: %w", filename, err)
	}

	if f.DryRun {
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(original)),
			B:        difflib.SplitLines(string(fixed)),
			FromFile: filename,
			ToFile:   filename + " (fixed)",
			Context:  2,
		})
		if err != nil {
			return false, fmt.Errorf("failed to diff %s: %w", filename, err)
		}
		fmt.Fprintf(f.Out, "Would fix issues in %s\n%s", filename, diff)
		return true, nil
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(filename); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(filename, fixed, mode); err != nil {
		return false, fmt.Errorf("failed to write file: %w", err)
	}
	f.logger.Debug("file rewritten", zap.String("file", filename), zap.Int("bytes", len(fixed)))
	fmt.Fprintf(f.Out, "Fixed issues in %s\n", filename)
	return true, nil
}
