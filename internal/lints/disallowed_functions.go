package lints

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/gnolang/misra/internal"
	"github.com/gnolang/misra/internal/cast"
	"github.com/gnolang/misra/internal/config"
)

// DisallowedFunction forbids the functions of a standard header that the
// guideline names. A call is only reported when its file includes the
// header and the program does not define a function of the same name.
//
// The fix redirects the call to the replacement configured under
// disallowedFunctions, declaring it extern when the file does not see it.
type DisallowedFunction struct {
	base
	header    string
	functions []string
	standards []string
	defs      *definitions
}

func newDisallowed(s *internal.Session, id, header string, functions []string) *DisallowedFunction {
	return &DisallowedFunction{
		base:      newBase(s, id, 1, internal.WholeProgram),
		header:    header,
		functions: functions,
		defs:      newDefinitions(s),
	}
}

// NewNoDynamicMemory builds 21.3.
func NewNoDynamicMemory(s *internal.Session) internal.Rule {
	return newDisallowed(s, "21.3", "stdlib.h", []string{"calloc", "malloc", "aligned_alloc", "realloc", "free"})
}

// NewNoStdIO builds 21.6.
func NewNoStdIO(s *internal.Session) internal.Rule {
	return newDisallowed(s, "21.6", "stdio.h", stdHeaders["stdio.h"])
}

// NewNoNumericConversions builds 21.7.
func NewNoNumericConversions(s *internal.Session) internal.Rule {
	return newDisallowed(s, "21.7", "stdlib.h", []string{"atof", "atoi", "atol", "atoll"})
}

// NewNoProcessControl builds 21.8, which only exists up to C99.
func NewNoProcessControl(s *internal.Session) internal.Rule {
	r := newDisallowed(s, "21.8", "stdlib.h", []string{"abort", "exit", "_Exit", "quick_exit"})
	r.standards = []string{"c90", "c99"}
	return r
}

// NewNoSearchOrSort builds 21.9.
func NewNoSearchOrSort(s *internal.Session) internal.Rule {
	return newDisallowed(s, "21.9", "stdlib.h", []string{"bsearch", "qsort"})
}

// NewNoTimeDate builds 21.10.
func NewNoTimeDate(s *internal.Session) internal.Rule {
	return newDisallowed(s, "21.10", "time.h", stdHeaders["time.h"])
}

// NewNoTgmath builds 21.11.
func NewNoTgmath(s *internal.Session) internal.Rule {
	return newDisallowed(s, "21.11", "tgmath.h", stdHeaders["tgmath.h"])
}

func (r *DisallowedFunction) AppliesTo(std string) bool {
	return len(r.standards) == 0 || slices.Contains(r.standards, strings.ToLower(std))
}

func (r *DisallowedFunction) disallowed(call cast.NodeID) bool {
	t := r.tree()
	name := t.CallName(call)
	if name == "" || !slices.Contains(r.functions, name) {
		return false
	}
	file := t.EnclosingFile(call)
	if !t.Includes(file, r.header) {
		return false
	}
	return !functionDefinition(t, internal.FactsRoot(t, r.scope, call), name).IsValid()
}

func (r *DisallowedFunction) prefix(call cast.NodeID) string {
	return fmt.Sprintf("Function '%s' of <%s> shall not be used.", r.tree().CallName(call), r.header)
}

func (r *DisallowedFunction) Match(n cast.NodeID, logViolations bool) bool {
	if r.tree().Kind(n) != cast.Call || !r.disallowed(n) {
		return false
	}
	if logViolations {
		r.errorf(n, "%s", r.prefix(n))
	}
	return true
}

func (r *DisallowedFunction) Apply(ctx context.Context, n cast.NodeID) internal.Outcome {
	if r.unfixable(n) || !r.Match(n, false) {
		return internal.NoChange()
	}
	t := r.tree()
	name, prefix := t.CallName(n), r.prefix(n)
	file := t.EnclosingFile(n)

	fix := r.store().Config()
	if fix == nil {
		return r.giveUp(n, "%s Extern not added due to missing config file.", prefix)
	}
	repl, err := fix.Replacement(r.header, name)
	switch {
	case errors.Is(err, config.ErrMissingKey):
		return r.giveUp(n, "%s Extern was not added as 'disallowedFunctions' is not defined in the configuration file.", prefix)
	case errors.Is(err, config.ErrMissingLibrary):
		return r.giveUp(n, "%s Couldn't add extern due to missing configuration for standard library <%s>.", prefix, r.header)
	case errors.Is(err, config.ErrMissingEntry):
		return r.giveUp(n, "%s Couldn't add extern due to missing configuration for function '%s' of standard library <%s>.", prefix, name, r.header)
	case err != nil:
		return r.giveUp(n, "%s Couldn't add extern due to incomplete configuration for function '%s' of standard library <%s>.", prefix, name, r.header)
	}

	src, def, err := r.defs.find(ctx, repl.Location, repl.Replacement)
	if err != nil {
		r.logger.Debug("definition lookup failed", zap.String("location", repl.Location), zap.Error(err))
		return r.giveUp(n, "%s Provided file '%s' does not have function definition.", prefix, repl.Location)
	}
	needExtern := len(t.Declarations(file, repl.Replacement)) == 0
	if needExtern && !externalLinkage(src, def) {
		return r.giveUp(n, "%s Provided definition at '%s' does not have external linkage.", prefix, repl.Location)
	}

	ok, err := r.sess.Sandbox.Commit(ctx, file, func(dst *cast.Tree, at internal.Resolver) error {
		if needExtern {
			insertTopLevel(dst, at(file), externPrototype(dst, src, def))
		}
		callee := dst.ChildAt(at(n), 0)
		dst.Node(callee).Text = repl.Replacement
		return nil
	})
	if err != nil {
		r.logger.Warn("could not validate replacement", zap.String("function", name), zap.Error(err))
		return internal.NoChange()
	}
	if !ok {
		return r.giveUp(n, "%s Provided definition at '%s' does not fix the violation.", prefix, repl.Location)
	}
	return internal.DescendantChanged()
}
