package branch

import "github.com/gnolang/misra/internal/cast"

// ExprCall returns the callee of an expression statement that is a plain
// call, possibly discarded through a (void) cast.
func ExprCall(t *cast.Tree, stmt cast.NodeID) (string, bool) {
	if t.Kind(stmt) != cast.ExprStmt {
		return "", false
	}
	x := t.ChildAt(stmt, 0)
	for {
		switch t.Kind(x) {
		case cast.Paren:
			x = t.ChildAt(x, 0)
			continue
		case cast.Cast:
			if cast.IsVoid(t.Node(x).Type) {
				x = t.ChildAt(x, 0)
				continue
			}
		}
		break
	}
	name := t.CallName(x)
	return name, name != ""
}
