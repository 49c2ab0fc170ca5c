package branch

import "github.com/gnolang/misra/internal/cast"

// Group is a run of consecutive case labels sharing one body.
type Group struct {
	Labels  []cast.NodeID
	Default bool
	// Stmts are the statements between the last label of the group and the
	// next label, in source order.
	Stmts []cast.NodeID
}

// Groups splits the body of sw into clause groups in source order.
// Statements ahead of the first label never run and belong to no group.
func Groups(t *cast.Tree, sw cast.NodeID) []Group {
	body := t.Body(sw)
	if !body.IsValid() {
		return nil
	}

	var (
		groups []Group
		cur    *Group
	)
	for _, stmt := range t.Children(body) {
		kind := t.Kind(stmt)
		if kind.IsLabel() {
			if cur == nil || len(cur.Stmts) > 0 {
				groups = append(groups, Group{})
				cur = &groups[len(groups)-1]
			}
			cur.Labels = append(cur.Labels, stmt)
			cur.Default = cur.Default || kind == cast.Default
			continue
		}
		if cur != nil {
			cur.Stmts = append(cur.Stmts, stmt)
		}
	}
	return groups
}

// Run returns the statements executed for g up to its exit, and how that
// exit happens. A direct break is consumed. Statements after the exit are
// unreachable and left out. A Regular or Empty exit falls through.
func (g Group) Run(t *cast.Tree) ([]cast.NodeID, Branch) {
	return segment(t, g.Stmts)
}

func segment(t *cast.Tree, stmts []cast.NodeID) ([]cast.NodeID, Branch) {
	var run []cast.NodeID
	for _, stmt := range stmts {
		b := StmtBranch(t, stmt)
		if t.Kind(stmt) == cast.Break {
			return run, b
		}
		run = append(run, stmt)
		if b.Deviates() {
			return run, b
		}
	}
	if len(run) == 0 {
		return nil, Empty.Branch()
	}
	return run, Regular.Branch()
}

// HasConditionalExit reports whether sw holds a break bound to it that is
// not a direct statement of its body, such as a break guarded by an if.
func HasConditionalExit(t *cast.Tree, sw cast.NodeID) bool {
	body := t.Body(sw)
	if !body.IsValid() {
		return false
	}

	found := false
	t.Walk(body, func(n cast.NodeID) bool {
		if found {
			return false
		}
		kind := t.Kind(n)
		switch {
		case kind == cast.Break:
			found = t.Parent(n) != body
		case kind.IsBreakable():
			// breaks below belong to the nested construct
			return false
		}
		return true
	})
	return found
}

// Chain is the conditional form of a switch: one arm per group with a
// label test, in order, then the default body.
type Chain struct {
	Arms    []Arm
	Default []cast.NodeID
}

// Arm pairs the labels of a group with the statements it runs.
type Arm struct {
	Labels []cast.NodeID
	Body   []cast.NodeID
}

// chainOf lays out the groups of sw as a Chain. The body of each group is
// followed through fall-through into the groups after it in source order.
// The default group moves to the end regardless of its position.
func chainOf(t *cast.Tree, groups []Group) Chain {
	var c Chain
	for i, g := range groups {
		body := fallThrough(t, groups[i:])
		if g.Default {
			c.Default = body
			continue
		}
		c.Arms = append(c.Arms, Arm{Labels: g.Labels, Body: body})
	}
	return c
}

func fallThrough(t *cast.Tree, groups []Group) []cast.NodeID {
	var out []cast.NodeID
	for _, g := range groups {
		run, end := g.Run(t)
		out = append(out, run...)
		if end.Deviates() {
			break
		}
	}
	return out
}

// comparisons counts how often the scrutinee is evaluated when no arm
// matches.
func (c Chain) comparisons(t *cast.Tree) int {
	n := 0
	for _, arm := range c.Arms {
		for _, l := range arm.Labels {
			n += t.NumChildren(l)
		}
	}
	return n
}
