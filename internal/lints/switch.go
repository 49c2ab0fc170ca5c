package lints

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/gnolang/misra/internal"
	"github.com/gnolang/misra/internal/branch"
	"github.com/gnolang/misra/internal/cast"
)

// NestedSwitchLabel reports case and default labels placed inside a block
// of the switch body (16.2). They are left where they are.
type NestedSwitchLabel struct{ base }

func NewNestedSwitchLabel(s *internal.Session) internal.Rule {
	return &NestedSwitchLabel{newBase(s, "16.2", 4, internal.SingleUnit)}
}

func (r *NestedSwitchLabel) Match(n cast.NodeID, logViolations bool) bool {
	t := r.tree()
	if t.Kind(n) != cast.Switch {
		return false
	}
	labels := branch.NestedLabels(t, n)
	if logViolations {
		for _, l := range labels {
			r.errorf(l, "A switch label can only be used if its enclosing compound statement is the switch statement itself.")
		}
	}
	return len(labels) > 0
}

func (r *NestedSwitchLabel) Apply(_ context.Context, n cast.NodeID) internal.Outcome {
	if r.Match(n, false) {
		r.logger.Debug("nested switch labels left in place", zap.Int("line", r.tree().Location(n).Line))
	}
	return internal.NoChange()
}

// UnconditionalBreak requires every switch clause to end with a break
// (16.3). A clause that falls through gets a copy of the statements it
// would have run, up to the next break.
type UnconditionalBreak struct{ base }

func NewUnconditionalBreak(s *internal.Session) internal.Rule {
	return &UnconditionalBreak{newBase(s, "16.3", 2, internal.SingleUnit)}
}

// missingBreaks returns the last statement of every clause of sw that has
// no break of its own.
func missingBreaks(t *cast.Tree, sw cast.NodeID) []cast.NodeID {
	if t.Kind(sw) != cast.Switch {
		return nil
	}
	children := t.Children(t.Body(sw))
	var out []cast.NodeID
	for i, c := range children {
		if !t.Kind(c).IsLabel() {
			continue
		}
		last, hasBreak := cast.NoNode, false
		for _, s := range children[i+1:] {
			if t.Kind(s).IsLabel() {
				break
			}
			last = s
			hasBreak = hasBreak || t.Kind(s) == cast.Break
		}
		if last.IsValid() && !hasBreak {
			out = append(out, last)
		}
	}
	return out
}

func (r *UnconditionalBreak) Match(n cast.NodeID, logViolations bool) bool {
	stmts := missingBreaks(r.tree(), n)
	if logViolations {
		for _, s := range stmts {
			r.errorf(s, "Missing unconditional break after statement '%s'", code(r.tree(), s))
		}
	}
	return len(stmts) > 0
}

func (r *UnconditionalBreak) Apply(_ context.Context, n cast.NodeID) internal.Outcome {
	t, b := r.tree(), r.builder()
	stmts := missingBreaks(t, n)
	if len(stmts) == 0 {
		return internal.NoChange()
	}
	for _, s := range stmts {
		prev := s
		if !branch.StmtBranch(t, s).Deviates() {
			copies := fallThrough(t, s)
			for _, c := range copies {
				t.InsertAfter(prev, c)
				prev = c
			}
			if len(copies) > 0 {
				r.warnf(s, "Statements reached by falling through were copied after '%s' before the inserted break.", code(t, s))
			}
		}
		t.InsertAfter(prev, b.Break())
	}
	return internal.DescendantChanged()
}

// fallThrough copies the statements control reaches after s by falling
// into the following clauses, up to the next break.
func fallThrough(t *cast.Tree, s cast.NodeID) []cast.NodeID {
	var out []cast.NodeID
	for next := t.NextSibling(s); next.IsValid(); next = t.NextSibling(next) {
		kind := t.Kind(next)
		if kind == cast.Break {
			break
		}
		if kind.IsLabel() || kind == cast.Label {
			continue
		}
		out = append(out, t.Clone(next))
		if branch.StmtBranch(t, next).Deviates() {
			break
		}
	}
	return out
}

// SwitchDefault requires a default label in every switch (16.4).
type SwitchDefault struct{ base }

func NewSwitchDefault(s *internal.Session) internal.Rule {
	return &SwitchDefault{newBase(s, "16.4", defaultPriority, internal.SingleUnit)}
}

func (r *SwitchDefault) Match(n cast.NodeID, logViolations bool) bool {
	t := r.tree()
	if t.Kind(n) != cast.Switch || !t.Body(n).IsValid() || hasDefault(t, n) {
		return false
	}
	if logViolations {
		r.errorf(n, "Switch statement is missing a default case.")
	}
	return true
}

func (r *SwitchDefault) Apply(_ context.Context, n cast.NodeID) internal.Outcome {
	if !r.Match(n, false) {
		return internal.NoChange()
	}
	t, b := r.tree(), r.builder()
	body := t.Body(n)
	t.Append(body, b.Default())
	t.Append(body, b.Empty())
	t.Append(body, b.Break())
	return internal.DescendantChanged()
}

// DefaultFirstOrLast requires the default label to be the first or the
// last label of its switch (16.5).
type DefaultFirstOrLast struct{ base }

func NewDefaultFirstOrLast(s *internal.Session) internal.Rule {
	return &DefaultFirstOrLast{newBase(s, "16.5", defaultPriority, internal.SingleUnit)}
}

func (r *DefaultFirstOrLast) Match(n cast.NodeID, logViolations bool) bool {
	t := r.tree()
	if t.Kind(n) != cast.Switch {
		return false
	}
	labels := switchLabels(t, n)
	for i, l := range labels {
		if t.Kind(l) != cast.Default {
			continue
		}
		if i == 0 || i == len(labels)-1 {
			return false
		}
		if logViolations {
			r.errorf(n, "The default case of a switch statement must be the first or last label.")
		}
		return true
	}
	return false
}

// Apply moves the default label behind the labels that directly follow
// it. When that does not make it the last label, its whole clause moves to
// the end of the switch. Clauses that fall through are left alone; they
// are handled once every clause ends with a break.
func (r *DefaultFirstOrLast) Apply(_ context.Context, n cast.NodeID) internal.Outcome {
	if !r.Match(n, false) {
		return internal.NoChange()
	}
	t := r.tree()
	def := defaultLabel(t, n)

	changed := false
	if t.Kind(t.NextSibling(def)).IsLabel() {
		last := t.NextSibling(def)
		for t.Kind(t.NextSibling(last)).IsLabel() {
			last = t.NextSibling(last)
		}
		t.Detach(def)
		t.InsertAfter(last, def)
		changed = true
		if !r.Match(n, false) {
			return internal.DescendantChanged()
		}
	}

	groups := branch.Groups(t, n)
	at := -1
	for i, g := range groups {
		if g.Default {
			at = i
		}
	}
	if at < 0 || !leavesSwitch(t, groups[at]) || !leavesSwitch(t, groups[len(groups)-1]) ||
		at > 0 && !leavesSwitch(t, groups[at-1]) {
		if changed {
			return internal.DescendantChanged()
		}
		return internal.NoChange()
	}

	body := t.Body(n)
	for _, s := range slices.Concat(groups[at].Labels, groups[at].Stmts) {
		t.Detach(s)
		t.Append(body, s)
	}
	return internal.DescendantChanged()
}

func defaultLabel(t *cast.Tree, sw cast.NodeID) cast.NodeID {
	for _, l := range switchLabels(t, sw) {
		if t.Kind(l) == cast.Default {
			return l
		}
	}
	return cast.NoNode
}

// leavesSwitch reports whether control never falls out of g into whatever
// follows it.
func leavesSwitch(t *cast.Tree, g branch.Group) bool {
	_, end := g.Run(t)
	return end.Deviates()
}

// SwitchMinClauses requires at least two clauses per switch (16.6). A
// smaller switch is rewritten into plain statements.
type SwitchMinClauses struct{ base }

func NewSwitchMinClauses(s *internal.Session) internal.Rule {
	return &SwitchMinClauses{newBase(s, "16.6", defaultPriority, internal.SingleUnit)}
}

func clauseCount(t *cast.Tree, sw cast.NodeID) int {
	n := 0
	for _, g := range branch.Groups(t, sw) {
		if len(g.Stmts) > 0 {
			n++
		}
	}
	return n
}

const minClausesMsg = "Switch statements should have at least two clauses."

func (r *SwitchMinClauses) Match(n cast.NodeID, logViolations bool) bool {
	t := r.tree()
	if t.Kind(n) != cast.Switch || !t.Body(n).IsValid() || clauseCount(t, n) >= 2 {
		return false
	}
	if logViolations {
		r.errorf(n, minClausesMsg)
	}
	return true
}

func (r *SwitchMinClauses) Apply(_ context.Context, n cast.NodeID) internal.Outcome {
	if r.unfixable(n) || !r.Match(n, false) {
		return internal.NoChange()
	}
	if branch.HasConditionalExit(r.tree(), n) {
		return r.giveUp(n, "switch statement must have at least two clauses and cannot be transformed due to a conditional break statement.")
	}
	return r.normalize(n, minClausesMsg)
}

// NonBooleanSwitch forbids switching on an essentially boolean expression
// (16.7). Such a switch is rewritten into an if statement.
type NonBooleanSwitch struct{ base }

func NewNonBooleanSwitch(s *internal.Session) internal.Rule {
	return &NonBooleanSwitch{newBase(s, "16.7", 4, internal.SingleUnit)}
}

var booleanOps = map[string]bool{
	"<": true, ">": true, "<=": true, ">=": true, "==": true, "!=": true,
	"&&": true, "||": true, "!": true,
}

// isBoolean reports whether expr, evaluated at n, has essentially boolean
// type: a comparison, a logical operation or a bool variable.
func isBoolean(t *cast.Tree, n, expr cast.NodeID) bool {
	switch t.Kind(expr) {
	case cast.Paren:
		return isBoolean(t, n, t.ChildAt(expr, 0))
	case cast.Binary, cast.Unary:
		return booleanOps[t.Text(expr)]
	case cast.Literal:
		return t.Text(expr) == "true" || t.Text(expr) == "false"
	case cast.Ident:
		typ := declaredType(t, n, t.Text(expr))
		return typ == "bool" || typ == "_Bool"
	case cast.Cast:
		typ := firstTypeWord(t.Node(expr).Type)
		return typ == "bool" || typ == "_Bool"
	}
	return false
}

func (r *NonBooleanSwitch) Match(n cast.NodeID, logViolations bool) bool {
	t := r.tree()
	if t.Kind(n) != cast.Switch || !isBoolean(t, n, t.Cond(n)) {
		return false
	}
	if logViolations {
		r.errorf(n, "Switch statement controlling expression '%s' must not have essentially boolean type.", code(t, t.Cond(n)))
	}
	return true
}

func (r *NonBooleanSwitch) Apply(_ context.Context, n cast.NodeID) internal.Outcome {
	if r.unfixable(n) || !r.Match(n, false) {
		return internal.NoChange()
	}
	t := r.tree()
	if !t.Body(n).IsValid() {
		return r.giveUp(n, "Switch statement controlling expression '%s' must not have essentially boolean type.", code(t, t.Cond(n)))
	}
	if branch.HasConditionalExit(t, n) {
		return r.giveUp(n, "The switch statement's controlling expression %s must not be of a boolean type and cannot be transformed due to a conditional break statement.", code(t, t.Cond(n)))
	}
	return r.normalize(n, "Switch statement controlling expression '"+code(t, t.Cond(n))+"' must not have essentially boolean type.")
}

// normalize rewrites sw with the branch normalizer. prefix starts the
// error recorded when the rewrite is refused.
func (r base) normalize(sw cast.NodeID, prefix string) internal.Outcome {
	out, err := branch.Normalize(r.tree(), sw)
	switch {
	case err == nil:
		return out
	case errors.Is(err, branch.ErrConditionalExit):
		return r.giveUp(sw, "%s The switch cannot be transformed due to a conditional break statement.", prefix)
	case errors.Is(err, branch.ErrSideEffects):
		return r.giveUp(sw, "%s The controlling expression has side effects and would be evaluated more than once.", prefix)
	case errors.Is(err, branch.ErrUnsupported):
		return r.giveUp(sw, "%s Clauses declaring variables or labels, or holding nested case labels, cannot be transformed.", prefix)
	case errors.Is(err, branch.ErrNotEquivalent):
		r.logger.Debug("switch rewrite refused", zap.Error(err))
		return r.giveUp(sw, "%s The transformed statement would not behave like the original.", prefix)
	}
	r.logger.Warn("switch rewrite failed", zap.Error(err))
	return r.giveUp(sw, "%s %v", prefix, err)
}
