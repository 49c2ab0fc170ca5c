package cast

import "strings"

// EnclosingFile returns the File node containing id (id itself if it is one).
func (t *Tree) EnclosingFile(id NodeID) NodeID {
	if t.Kind(id) == File {
		return id
	}
	return t.Ancestor(id, File)
}

// EnclosingFunction returns the Function node containing id.
func (t *Tree) EnclosingFunction(id NodeID) NodeID {
	if t.Kind(id) == Function {
		return id
	}
	return t.Ancestor(id, Function)
}

// Body returns the compound statement of a function, switch or loop.
func (t *Tree) Body(id NodeID) NodeID {
	switch t.Kind(id) {
	case Function, Switch, While, For:
		last := t.ChildAt(id, t.NumChildren(id)-1)
		if t.Kind(last) == Compound {
			return last
		}
		return NoNode
	case DoWhile:
		return t.ChildAt(id, 0)
	}
	return NoNode
}

// Cond returns the controlling expression of an if, switch or loop.
func (t *Tree) Cond(id NodeID) NodeID {
	switch t.Kind(id) {
	case If, Switch, While:
		return t.ChildAt(id, 0)
	case DoWhile:
		return t.ChildAt(id, 1)
	}
	return NoNode
}

// Params returns the Param children of a function.
func (t *Tree) Params(fn NodeID) []NodeID {
	var out []NodeID
	for _, c := range t.Children(fn) {
		if t.Kind(c) == Param {
			out = append(out, c)
		}
	}
	return out
}

// CallName returns the callee identifier of a call expression, or "" when
// the callee is not a plain identifier.
func (t *Tree) CallName(call NodeID) string {
	if t.Kind(call) != Call {
		return ""
	}
	callee := t.ChildAt(call, 0)
	if t.Kind(callee) != Ident {
		return ""
	}
	return t.Text(callee)
}

// Args returns the argument expressions of a call.
func (t *Tree) Args(call NodeID) []NodeID {
	children := t.Children(call)
	if len(children) == 0 {
		return nil
	}
	return children[1:]
}

// Includes reports whether file has an #include of header, written with
// either quotes or angle brackets.
func (t *Tree) Includes(file NodeID, header string) bool {
	for _, c := range t.Children(file) {
		if t.Kind(c) != Include {
			continue
		}
		if strings.Trim(t.Text(c), `<>"`) == strings.Trim(header, `<>"`) {
			return true
		}
	}
	return false
}

// Declarations returns every function definition and prototype under root
// whose name is name.
func (t *Tree) Declarations(root NodeID, name string) []NodeID {
	var out []NodeID
	t.Walk(root, func(id NodeID) bool {
		switch t.Kind(id) {
		case Function, Prototype:
			if t.Text(id) == name {
				out = append(out, id)
			}
			return false
		case Program, File:
			return true
		}
		return false
	})
	return out
}

// IsVoid reports whether a type spelling denotes void.
func IsVoid(typ string) bool {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(typ), "static")) == "void"
}

// noReturn lists the standard library functions that never return to
// their caller.
var noReturn = map[string]bool{
	"abort":      true,
	"exit":       true,
	"_Exit":      true,
	"quick_exit": true,
	"longjmp":    true,
	"thrd_exit":  true,
}

// NoReturn reports whether the library function name never returns.
func NoReturn(name string) bool { return noReturn[name] }

// IsPrimary reports whether expr binds tighter than any binary operator.
func (t *Tree) IsPrimary(expr NodeID) bool {
	switch t.Kind(expr) {
	case Ident, IntLit, Literal, Paren, Call, Postfix:
		return true
	}
	return false
}

// HasSideEffects reports whether evaluating expr may modify state: calls,
// assignments, increments and decrements. Raw expressions are assumed to
// have side effects.
func (t *Tree) HasSideEffects(expr NodeID) bool {
	found := false
	t.Walk(expr, func(id NodeID) bool {
		switch t.Kind(id) {
		case Call, Assign, Postfix, Raw:
			found = true
		case Unary:
			if op := t.Text(id); op == "++" || op == "--" {
				found = true
			}
		}
		return !found
	})
	return found
}

// ReferencesIdent reports whether an identifier named name appears below id.
func (t *Tree) ReferencesIdent(id NodeID, name string) bool {
	found := false
	t.Walk(id, func(n NodeID) bool {
		switch t.Kind(n) {
		case Ident:
			if t.Text(n) == name {
				found = true
			}
		case Raw, VarDecl, For:
			if containsWord(t.Text(n), name) {
				found = true
			}
		}
		return !found
	})
	return found
}

func containsWord(s, word string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], word)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(word)
		if (start == 0 || !isIdentByte(s[start-1])) && (end == len(s) || !isIdentByte(s[end])) {
			return true
		}
		i = end
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
