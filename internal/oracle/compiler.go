package oracle

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gnolang/misra/internal/cast"
)

const defaultTimeout = 30 * time.Second

// Compiler checks units with a C compiler in syntax-only mode. Implicit
// function declarations are errors.
type Compiler struct {
	CC      string
	Std     string
	Flags   []string
	Timeout time.Duration
}

func NewCompiler(cc, std string) *Compiler {
	return &Compiler{CC: cc, Std: std, Timeout: defaultTimeout}
}

func (c *Compiler) args(file, includeDir string) []string {
	args := []string{"-fsyntax-only", "-Werror=implicit-function-declaration"}
	if c.Std != "" {
		args = append(args, "-std="+c.Std)
	}
	args = append(args, c.Flags...)
	if includeDir != "" {
		args = append(args, "-I", includeDir)
	}
	return append(args, "-x", "c", file)
}

// Rebuild writes every file of unit into a private directory under its
// original name, so edited headers shadow the ones on disk, and compiles
// the .c files. Includes also resolve against the original directory.
func (c *Compiler) Rebuild(ctx context.Context, t *cast.Tree, unit cast.NodeID) error {
	dir, err := os.MkdirTemp("", "misra-")
	if err != nil {
		return fmt.Errorf("creating build directory: %w", err)
	}
	defer os.RemoveAll(dir)

	units := files(t, unit)
	for _, f := range units {
		if err := os.WriteFile(filepath.Join(dir, f.base), []byte(f.source), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", f.base, err)
		}
	}

	for _, f := range units {
		if filepath.Ext(f.base) == ".h" && len(units) > 1 {
			continue
		}
		includeDir, err := filepath.Abs(filepath.Dir(f.path))
		if err != nil {
			return fmt.Errorf("resolving include directory of %s: %w", f.path, err)
		}
		if err := c.compile(ctx, filepath.Join(dir, f.base), includeDir); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compile(ctx context.Context, file, includeDir string) error {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, c.CC, c.args(file, includeDir)...)
	cmd.Dir = filepath.Dir(file)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if cmdCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: %s timed out after %s", ErrRebuild, c.CC, timeout)
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: %s", ErrRebuild, msg)
	}
	return nil
}
