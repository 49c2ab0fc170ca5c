package branch

import (
	"errors"
	"fmt"

	"github.com/gnolang/misra/internal"
	"github.com/gnolang/misra/internal/cast"
	"github.com/gnolang/misra/internal/minilogic"
)

var (
	ErrNotSwitch       = errors.New("not a switch statement")
	ErrConditionalExit = errors.New("switch contains a conditional break")
	ErrSideEffects     = errors.New("switch condition has side effects and would be evaluated more than once")
	ErrUnsupported     = errors.New("switch body cannot be duplicated")
	ErrNotEquivalent   = errors.New("rewritten switch does not behave like the original")
)

// tagName stands for a switch condition that is not a plain identifier
// while checking a rewrite.
const tagName = "switch_tag"

// Plan is the replacement computed for a switch. Stmts are detached and in
// order; an empty list means the switch does nothing.
type Plan struct {
	Stmts     []cast.NodeID
	Flattened bool
	Report    minilogic.VerificationReport
}

// Rewrite computes the statements replacing sw without touching the tree.
//
// A switch whose only clause group holds the default label is flattened to
// that group's statements. Any other switch becomes an if/else-if chain with
// one arm per group and the default group as the final else.
func Rewrite(t *cast.Tree, sw cast.NodeID) (Plan, error) {
	if t.Kind(sw) != cast.Switch || !t.Body(sw).IsValid() {
		return Plan{}, ErrNotSwitch
	}
	if HasConditionalExit(t, sw) {
		return Plan{}, ErrConditionalExit
	}
	if len(NestedLabels(t, sw)) > 0 {
		return Plan{}, ErrUnsupported
	}
	groups := Groups(t, sw)
	for _, g := range groups {
		if hasDecls(t, g.Stmts) {
			return Plan{}, ErrUnsupported
		}
	}

	b := cast.NewBuilder(t)
	cond := t.Cond(sw)
	var plan Plan
	if len(groups) == 0 || len(groups) == 1 && groups[0].Default {
		plan.Flattened = true
		if t.HasSideEffects(cond) {
			plan.Stmts = append(plan.Stmts, b.ExprStmt(b.CastVoid(scrutinee(t, cond))))
		}
		if len(groups) == 1 {
			body, _ := groups[0].Run(t)
			plan.Stmts = append(plan.Stmts, clones(t, body)...)
		}
	} else {
		chain := chainOf(t, groups)
		if t.HasSideEffects(cond) && chain.comparisons(t) > 1 {
			return Plan{}, ErrSideEffects
		}
		if len(chain.Default) == 0 {
			// values of a dropped arm reach a default that does nothing
			chain.Arms = dropEmpty(chain.Arms)
		}
		switch {
		case len(chain.Arms) > 0:
			plan.Stmts = []cast.NodeID{buildChain(t, cond, chain)}
		case t.HasSideEffects(cond):
			plan.Stmts = []cast.NodeID{b.ExprStmt(b.CastVoid(scrutinee(t, cond)))}
		}
	}

	report, err := verify(t, sw, plan.Stmts)
	plan.Report = report
	if err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// Normalize rewrites sw in place. On error the tree is unchanged.
func Normalize(t *cast.Tree, sw cast.NodeID) (internal.Outcome, error) {
	plan, err := Rewrite(t, sw)
	if err != nil {
		return internal.NoChange(), err
	}
	return Apply(t, sw, plan), nil
}

// Apply puts plan in place of sw.
func Apply(t *cast.Tree, sw cast.NodeID, plan Plan) internal.Outcome {
	b := cast.NewBuilder(t)
	inBlock := t.Kind(t.Parent(sw)) == cast.Compound
	switch {
	case len(plan.Stmts) == 0 && inBlock:
		t.Detach(sw)
		return internal.Removed()
	case len(plan.Stmts) == 0:
		empty := b.Empty()
		t.Replace(sw, empty)
		return internal.Replaced(empty)
	case len(plan.Stmts) == 1:
		t.Replace(sw, plan.Stmts[0])
		return internal.Replaced(plan.Stmts[0])
	case !inBlock:
		block := b.Compound(plan.Stmts...)
		t.Replace(sw, block)
		return internal.Replaced(block)
	}

	first := plan.Stmts[0]
	t.Replace(sw, first)
	prev := first
	for _, stmt := range plan.Stmts[1:] {
		t.InsertAfter(prev, stmt)
		prev = stmt
	}
	return internal.Replaced(first)
}

func buildChain(t *cast.Tree, cond cast.NodeID, c Chain) cast.NodeID {
	b := cast.NewBuilder(t)
	els := cast.NoNode
	if len(c.Default) > 0 {
		els = b.Compound(clones(t, c.Default)...)
	}
	for i := len(c.Arms) - 1; i >= 0; i-- {
		arm := c.Arms[i]
		els = b.If(labelTest(t, cond, arm.Labels), b.Compound(clones(t, arm.Body)...), els)
	}
	return els
}

// labelTest builds the disjunction of the label tests of one arm.
func labelTest(t *cast.Tree, cond cast.NodeID, labels []cast.NodeID) cast.NodeID {
	b := cast.NewBuilder(t)
	tests := make([]cast.NodeID, 0, len(labels))
	for _, l := range labels {
		values := t.Children(l)
		if len(values) == 1 {
			tests = append(tests, b.Eq(scrutinee(t, cond), t.Clone(values[0])))
			continue
		}
		test := b.And(
			b.Binary(">=", scrutinee(t, cond), t.Clone(values[0])),
			b.Binary("<=", scrutinee(t, cond), t.Clone(values[1])),
		)
		if len(labels) > 1 {
			test = b.Paren(test)
		}
		tests = append(tests, test)
	}
	return b.Or(tests...)
}

// scrutinee returns a fresh copy of cond, parenthesized unless it is
// primary.
func scrutinee(t *cast.Tree, cond cast.NodeID) cast.NodeID {
	c := t.Clone(cond)
	if t.IsPrimary(c) {
		return c
	}
	return cast.NewBuilder(t).Paren(c)
}

func clones(t *cast.Tree, ids []cast.NodeID) []cast.NodeID {
	out := make([]cast.NodeID, len(ids))
	for i, id := range ids {
		out[i] = t.Clone(id)
	}
	return out
}

func dropEmpty(arms []Arm) []Arm {
	out := arms[:0:0]
	for _, arm := range arms {
		if len(arm.Body) > 0 {
			out = append(out, arm)
		}
	}
	return out
}

// verify evaluates sw and its replacement over every scrutinee value that
// selects a different entry point. Code outside the evaluated subset is not
// checked.
func verify(t *cast.Tree, sw cast.NodeID, stmts []cast.NodeID) (minilogic.VerificationReport, error) {
	cond := t.Cond(sw)
	tag, aliases := t.Text(cond), map[string]string(nil)
	if t.Kind(cond) != cast.Ident {
		tag = tagName
		aliases = map[string]string{cast.PrintExpr(t, cond): tagName}
	}

	orig, ok := minilogic.FromCast(t, sw, aliases)
	if !ok {
		return minilogic.VerificationReport{Result: minilogic.Unknown}, nil
	}
	block := minilogic.BlockStmt{}
	for _, id := range stmts {
		s, ok := minilogic.FromCast(t, id, aliases)
		if !ok {
			return minilogic.VerificationReport{Result: minilogic.Unknown}, nil
		}
		block.Stmts = append(block.Stmts, s)
	}

	ml := minilogic.New()
	if t.Ancestor(sw, cast.While, cast.DoWhile, cast.For, cast.Function) != t.EnclosingFunction(sw) {
		ml = minilogic.NewForLoopContext()
	}
	report := ml.VerifySwitchRewrite(orig.(minilogic.SwitchStmt), block, tag)
	if report.Result == minilogic.NotEquivalent {
		return report, fmt.Errorf("%w: %s", ErrNotEquivalent, minilogic.FormatReport(report))
	}
	return report, nil
}
