package lints

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/gnolang/misra/internal"
	"github.com/gnolang/misra/internal/branch"
	"github.com/gnolang/misra/internal/cast"
	"github.com/gnolang/misra/internal/config"
)

// NonVoidReturn requires every path of a non-void function to end with a
// return statement (17.4). The fix appends a return of the default value
// configured for the return type.
type NonVoidReturn struct{ base }

func NewNonVoidReturn(s *internal.Session) internal.Rule {
	return &NonVoidReturn{newBase(s, "17.4", defaultPriority, internal.SingleUnit)}
}

func (r *NonVoidReturn) reachesEnd(fn cast.NodeID) bool {
	t := r.tree()
	if t.Kind(fn) != cast.Function || cast.IsVoid(t.Node(fn).Type) {
		return false
	}
	body := t.Body(fn)
	if !body.IsValid() {
		return false
	}
	for _, s := range t.Children(body) {
		if t.Kind(s) == cast.Return {
			return false
		}
	}
	return !terminates(t, body)
}

func (r *NonVoidReturn) prefix(fn cast.NodeID) string {
	return "Function '" + r.tree().Text(fn) + "' reaches the end without a return statement."
}

func (r *NonVoidReturn) Match(n cast.NodeID, logViolations bool) bool {
	if !r.reachesEnd(n) {
		return false
	}
	if logViolations {
		r.errorf(n, "%s", r.prefix(n))
	}
	return true
}

func (r *NonVoidReturn) Apply(ctx context.Context, n cast.NodeID) internal.Outcome {
	if r.unfixable(n) || !r.Match(n, false) {
		return internal.NoChange()
	}
	t := r.tree()
	typ := t.Node(n).Type
	prefix := r.prefix(n)

	fix := r.store().Config()
	if fix == nil {
		return r.giveUp(n, "%s Default value return not added due to missing config file.", prefix)
	}
	value, err := fix.DefaultValue(typ)
	switch {
	case errors.Is(err, config.ErrMissingKey):
		return r.giveUp(n, "%s Default value return was not added as 'defaultValues' is not defined in the configuration file.", prefix)
	case err != nil:
		return r.giveUp(n, "%s Default value return not added due to missing default value configuration for type '%s'.", prefix, typ)
	}

	ok, err := r.sess.Sandbox.Commit(ctx, t.EnclosingFile(n), func(dst *cast.Tree, at internal.Resolver) error {
		b := cast.NewBuilder(dst)
		dst.Append(dst.Body(at(n)), b.Return(b.Lit(value)))
		return nil
	})
	if err != nil {
		r.logger.Warn("could not validate default return", zap.String("function", t.Text(n)), zap.Error(err))
		return internal.NoChange()
	}
	if !ok {
		return r.giveUp(n, "%s Provided default value for type '%s' is invalid and was therefore not inserted.", prefix, typ)
	}
	r.warnf(n, "Function '%s' now returns '%s' when it reaches the end.", t.Text(n), value)
	return internal.DescendantChanged()
}

// terminates reports whether control can never run past the end of stmt.
// Unknown constructs are assumed to complete normally.
func terminates(t *cast.Tree, stmt cast.NodeID) bool {
	switch t.Kind(stmt) {
	case cast.Return, cast.Goto:
		return true
	case cast.ExprStmt:
		return branch.StmtBranch(t, stmt).BranchKind == branch.Exit
	case cast.Compound:
		return blockTerminates(t, t.Children(stmt))
	case cast.If:
		els := t.ChildAt(stmt, 2)
		return els.IsValid() && terminates(t, t.ChildAt(stmt, 1)) && terminates(t, els)
	case cast.Switch:
		body := t.Body(stmt)
		return body.IsValid() && hasDefault(t, stmt) && !hasBoundBreak(t, stmt) &&
			blockTerminates(t, t.Children(body))
	case cast.While, cast.DoWhile, cast.For:
		return infinite(t, stmt) && !hasBoundBreak(t, stmt)
	}
	return false
}

// blockTerminates follows stmts in order. A label makes the statements
// after it reachable again.
func blockTerminates(t *cast.Tree, stmts []cast.NodeID) bool {
	done := false
	for _, s := range stmts {
		switch {
		case t.Kind(s).IsLabel(), t.Kind(s) == cast.Label:
			done = false
		case !done:
			done = terminates(t, s)
		}
	}
	return done
}

// hasBoundBreak reports whether a break below construct leaves it.
func hasBoundBreak(t *cast.Tree, construct cast.NodeID) bool {
	found := false
	for _, c := range t.Children(construct) {
		t.Walk(c, func(n cast.NodeID) bool {
			switch {
			case found:
				return false
			case t.Kind(n) == cast.Break:
				found = true
			case t.Kind(n).IsBreakable():
				return false
			}
			return true
		})
	}
	return found
}

// infinite reports whether a loop condition is a non-zero constant or, for
// a for loop, missing.
func infinite(t *cast.Tree, loop cast.NodeID) bool {
	if t.Kind(loop) == cast.For {
		parts := strings.Split(t.Text(loop), ";")
		if len(parts) != 3 {
			return false
		}
		cond := strings.TrimSpace(parts[1])
		return cond == "" || isNonZero(cond)
	}
	cond := t.Cond(loop)
	for t.Kind(cond) == cast.Paren {
		cond = t.ChildAt(cond, 0)
	}
	return t.Kind(cond) == cast.IntLit && isNonZero(t.Text(cond)) || t.Text(cond) == "true"
}

func isNonZero(lit string) bool {
	lit = strings.TrimRight(strings.ToLower(lit), "ul")
	return lit != "" && strings.Trim(lit, "0x") != ""
}

// UnusedReturnValue requires the value of a non-void call to be used or
// explicitly discarded (17.7).
type UnusedReturnValue struct{ base }

func NewUnusedReturnValue(s *internal.Session) internal.Rule {
	return &UnusedReturnValue{newBase(s, "17.7", defaultPriority, internal.WholeProgram)}
}

// returnsValue reports whether the function called by call is known to
// return a value.
func (r *UnusedReturnValue) returnsValue(call cast.NodeID) bool {
	t := r.tree()
	name := t.CallName(call)
	if name == "" {
		return false
	}
	if decls := t.Declarations(internal.FactsRoot(t, r.scope, call), name); len(decls) > 0 {
		return !cast.IsVoid(t.Node(decls[0]).Type)
	}
	return isStdFunction(name) && !voidFunctions[name]
}

func (r *UnusedReturnValue) Match(n cast.NodeID, logViolations bool) bool {
	t := r.tree()
	if t.Kind(n) != cast.Call || t.Kind(t.Parent(n)) != cast.ExprStmt || !r.returnsValue(n) {
		return false
	}
	if logViolations {
		r.errorf(n, "Return value of %s must be used. It can be discarded with an explicit cast to void.", t.CallName(n))
	}
	return true
}

func (r *UnusedReturnValue) Apply(_ context.Context, n cast.NodeID) internal.Outcome {
	if !r.Match(n, false) {
		return internal.NoChange()
	}
	t, b := r.tree(), r.builder()
	hole := b.Empty()
	t.Replace(n, hole)
	discard := b.CastVoid(n)
	t.Replace(hole, discard)
	return internal.Replaced(discard)
}

// staticArraySize matches the `[static N]` of an array parameter.
var staticArraySize = regexp.MustCompile(`\[\s*static\s+\d+\s*\]`)

// StaticArrayParam forbids static between the brackets of an array
// parameter (17.6). The parameter becomes an array of unknown size.
type StaticArrayParam struct{ base }

func NewStaticArrayParam(s *internal.Session) internal.Rule {
	return &StaticArrayParam{newBase(s, "17.6", defaultPriority, internal.SingleUnit)}
}

// AppliesTo excludes C90, which has no static array parameters.
func (r *StaticArrayParam) AppliesTo(std string) bool {
	return !strings.EqualFold(std, "c90")
}

func (r *StaticArrayParam) params(fn cast.NodeID) []cast.NodeID {
	t := r.tree()
	if t.Kind(fn) != cast.Function {
		return nil
	}
	var out []cast.NodeID
	for _, p := range t.Params(fn) {
		if staticArraySize.MatchString(t.Node(p).Decl) {
			out = append(out, p)
		}
	}
	return out
}

func (r *StaticArrayParam) Match(n cast.NodeID, logViolations bool) bool {
	params := r.params(n)
	if logViolations {
		for _, p := range params {
			r.errorf(p, "The 'static' keyword cannot appear inside the square brackets ('[]') in array parameter declarations.")
		}
	}
	return len(params) > 0
}

func (r *StaticArrayParam) Apply(_ context.Context, n cast.NodeID) internal.Outcome {
	params := r.params(n)
	if len(params) == 0 {
		return internal.NoChange()
	}
	t := r.tree()
	for _, p := range params {
		node := t.Node(p)
		node.Decl = staticArraySize.ReplaceAllString(node.Decl, "[]")
	}
	fn := t.Node(n)
	fn.Decl = staticArraySize.ReplaceAllString(fn.Decl, "[]")
	return internal.DescendantChanged()
}
