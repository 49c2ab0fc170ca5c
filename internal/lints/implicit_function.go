package lints

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gnolang/misra/internal"
	"github.com/gnolang/misra/internal/cast"
	"github.com/gnolang/misra/internal/config"
)

// ImplicitFunction forbids calls to functions without a visible
// declaration (17.3). The fix adds the include or extern declaration
// named by the implicitCalls section of the fix configuration.
//
// Headers that are neither standard headers of the table nor files of the
// program cannot be inspected and are assumed to declare the callee.
type ImplicitFunction struct {
	base
	defs *definitions
}

func NewImplicitFunction(s *internal.Session) internal.Rule {
	return &ImplicitFunction{
		base: newBase(s, "17.3", 1, internal.WholeProgram),
		defs: newDefinitions(s),
	}
}

func (r *ImplicitFunction) implicit(call cast.NodeID) bool {
	t := r.tree()
	name := t.CallName(call)
	if name == "" || strings.HasPrefix(name, "__builtin_") || declaredType(t, call, name) != "" {
		return false
	}
	file := t.EnclosingFile(call)
	return file.IsValid() && !r.visible(file, name, map[cast.NodeID]bool{file: true})
}

// visible reports whether file declares name itself or through one of its
// includes.
func (r *ImplicitFunction) visible(file cast.NodeID, name string, seen map[cast.NodeID]bool) bool {
	t := r.tree()
	if len(t.Declarations(file, name)) > 0 {
		return true
	}
	for _, inc := range t.Children(file) {
		if t.Kind(inc) != cast.Include {
			continue
		}
		text := t.Text(inc)
		if strings.HasPrefix(text, "<") {
			if !knownHeader(text) || stdDeclares(text, name) {
				return true
			}
			continue
		}
		h := headerFile(t, file, headerName(text))
		if !h.IsValid() {
			return true
		}
		if seen[h] {
			continue
		}
		seen[h] = true
		if r.visible(h, name, seen) {
			return true
		}
	}
	return false
}

// headerFile finds the program file an include of header written in file
// refers to.
func headerFile(t *cast.Tree, file cast.NodeID, header string) cast.NodeID {
	if f := programFile(t, filepath.Join(filepath.Dir(t.Text(file)), header)); f.IsValid() {
		return f
	}
	for _, f := range t.Find(t.Root(), cast.File) {
		if filepath.Base(t.Text(f)) == filepath.Base(header) {
			return f
		}
	}
	return cast.NoNode
}

func (r *ImplicitFunction) prefix(call cast.NodeID) string {
	return "Function '" + r.tree().CallName(call) + "' is declared implicitly."
}

func (r *ImplicitFunction) Match(n cast.NodeID, logViolations bool) bool {
	if r.tree().Kind(n) != cast.Call || !r.implicit(n) {
		return false
	}
	if logViolations {
		r.errorf(n, "%s", r.prefix(n))
	}
	return true
}

func (r *ImplicitFunction) Apply(ctx context.Context, n cast.NodeID) internal.Outcome {
	if r.unfixable(n) || !r.Match(n, false) {
		return internal.NoChange()
	}
	t := r.tree()
	name, prefix := t.CallName(n), r.prefix(n)
	file := t.EnclosingFile(n)

	fix := r.store().Config()
	if fix == nil {
		return r.giveUp(n, "%s Include or extern not added due to missing config file.", prefix)
	}
	loc, err := fix.ImplicitCall(name)
	switch {
	case errors.Is(err, config.ErrMissingKey):
		return r.giveUp(n, "%s Include or extern was not added as 'implicitCalls' is not defined in the configuration file.", prefix)
	case errors.Is(err, config.ErrMissingEntry):
		return r.giveUp(n, "%s Couldn't add include or extern due to missing configuration for function '%s'.", prefix, name)
	case err != nil:
		return r.giveUp(n, "%s Cannot add include or extern without a .h or .c reference.", prefix)
	}

	var (
		mutate  internal.Mutation
		refusal string
	)
	if strings.HasSuffix(loc, ".h") {
		refusal = "Provided include '" + loc + "' does not fix the violation."
		if t.Includes(file, loc) {
			return r.giveUp(n, "%s %s", prefix, refusal)
		}
		if knownHeader("<"+loc+">") && !stdDeclares(loc, name) {
			return r.giveUp(n, "%s %s", prefix, refusal)
		}
		if h := headerFile(t, file, loc); h.IsValid() && !r.visible(h, name, map[cast.NodeID]bool{h: true}) {
			return r.giveUp(n, "%s %s", prefix, refusal)
		}
		include := `"` + loc + `"`
		if knownHeader("<" + loc + ">") {
			include = "<" + loc + ">"
		}
		mutate = func(dst *cast.Tree, at internal.Resolver) error {
			insertTopLevel(dst, at(file), cast.NewBuilder(dst).Include(include))
			return nil
		}
	} else {
		refusal = "Provided definition at '" + loc + "' does not fix the violation."
		src, def, err := r.defs.find(ctx, loc, name)
		if err != nil {
			r.logger.Debug("definition lookup failed", zap.String("location", loc), zap.Error(err))
			return r.giveUp(n, "%s Provided file '%s' does not have function definition.", prefix, loc)
		}
		if !externalLinkage(src, def) {
			return r.giveUp(n, "%s Provided definition at '%s' does not have external linkage.", prefix, loc)
		}
		mutate = func(dst *cast.Tree, at internal.Resolver) error {
			insertTopLevel(dst, at(file), externPrototype(dst, src, def))
			return nil
		}
	}

	ok, err := r.sess.Sandbox.Commit(ctx, file, mutate)
	if err != nil {
		r.logger.Warn("could not validate declaration", zap.String("function", name), zap.Error(err))
		return internal.NoChange()
	}
	if !ok {
		return r.giveUp(n, "%s %s", prefix, refusal)
	}
	return internal.DescendantChanged()
}
