package branch

import "github.com/gnolang/misra/internal/cast"

// Branch stores how a statement hands control on.
type Branch struct {
	BranchKind
	Call string // callee of an Exit branch
}

// BlockBranch classifies a compound statement by its last statement.
func BlockBranch(t *cast.Tree, block cast.NodeID) Branch {
	n := t.NumChildren(block)
	if n == 0 {
		return Empty.Branch()
	}
	return StmtBranch(t, t.ChildAt(block, n-1))
}

func StmtBranch(t *cast.Tree, stmt cast.NodeID) Branch {
	switch t.Kind(stmt) {
	case cast.Return:
		return Return.Branch()
	case cast.Compound:
		return BlockBranch(t, stmt)
	case cast.Break:
		return Break.Branch()
	case cast.Continue:
		return Continue.Branch()
	case cast.Goto:
		return Goto.Branch()
	case cast.ExprStmt:
		if fn, ok := ExprCall(t, stmt); ok && cast.NoReturn(fn) {
			return Branch{BranchKind: Exit, Call: fn}
		}
	case cast.Empty:
		return Empty.Branch()
	}

	return Regular.Branch()
}

// hasDecls reports whether any of stmts declares something or defines a
// label. Such statements cannot be duplicated into several branches.
func hasDecls(t *cast.Tree, stmts []cast.NodeID) bool {
	for _, stmt := range stmts {
		switch t.Kind(stmt) {
		case cast.VarDecl, cast.Label:
			return true
		}
		if len(t.Find(stmt, cast.Label)) > 0 {
			return true
		}
	}

	return false
}

// NestedLabels returns the case and default labels of sw that sit below
// the top level of its body, as in Duff's device. Labels of nested switches
// belong to them.
func NestedLabels(t *cast.Tree, sw cast.NodeID) []cast.NodeID {
	var out []cast.NodeID
	for _, stmt := range t.Children(t.Body(sw)) {
		if t.Kind(stmt).IsLabel() {
			continue
		}
		t.Walk(stmt, func(n cast.NodeID) bool {
			switch k := t.Kind(n); {
			case k == cast.Switch:
				return false
			case k.IsLabel():
				out = append(out, n)
			}
			return true
		})
	}
	return out
}
