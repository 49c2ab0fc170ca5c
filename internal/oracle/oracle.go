// Package oracle decides whether a translation unit still builds after an
// edit. Oracles receive disposable copies of units and never modify them.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"github.com/gnolang/misra/internal"
	"github.com/gnolang/misra/internal/cast"
	"github.com/gnolang/misra/internal/cfront"
)

// ErrRebuild is wrapped by every rejection.
var ErrRebuild = errors.New("unit does not build")

var disposablePrefix = regexp.MustCompile(`^temp_misra_[0-9a-f-]{36}_`)

// originalBase strips the sandbox prefix from the base name of path.
func originalBase(path string) string {
	return disposablePrefix.ReplaceAllString(filepath.Base(path), "")
}

type unitFile struct {
	path   string // as recorded in the tree
	base   string // without the sandbox prefix
	source string
}

func files(t *cast.Tree, unit cast.NodeID) []unitFile {
	var out []unitFile
	for _, f := range t.Find(unit, cast.File) {
		name := t.Text(f)
		out = append(out, unitFile{path: name, base: originalBase(name), source: cast.Print(t, f)})
	}
	return out
}

// Parser rejects units whose printed source does not parse.
type Parser struct{}

func (Parser) Rebuild(ctx context.Context, t *cast.Tree, unit cast.NodeID) error {
	for _, f := range files(t, unit) {
		if err := cfront.CheckSyntax(ctx, f.path, []byte(f.source)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %w", ErrRebuild, err)
		}
	}
	return nil
}

// compilers are tried in order by Auto.
var compilers = []string{"cc", "gcc", "clang"}

// Auto returns a cached Compiler for the first C compiler found on PATH,
// or a cached Parser when there is none.
func Auto(std string, logger *zap.Logger) internal.Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, name := range compilers {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("using compiler oracle", zap.String("cc", path))
			return NewCached(NewCompiler(path, std), DefaultCacheSize, logger)
		}
	}
	logger.Warn("no C compiler found, validating edits by parsing only")
	return NewCached(Parser{}, DefaultCacheSize, logger)
}
