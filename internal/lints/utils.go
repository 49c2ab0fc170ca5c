package lints

import (
	"strings"

	"github.com/gnolang/misra/internal/cast"
)

// switchLabels returns the case and default labels placed directly in the
// body of sw, in source order.
func switchLabels(t *cast.Tree, sw cast.NodeID) []cast.NodeID {
	var out []cast.NodeID
	for _, c := range t.Children(t.Body(sw)) {
		if t.Kind(c).IsLabel() {
			out = append(out, c)
		}
	}
	return out
}

func hasDefault(t *cast.Tree, sw cast.NodeID) bool {
	for _, l := range switchLabels(t, sw) {
		if t.Kind(l) == cast.Default {
			return true
		}
	}
	return false
}

// code renders a node on a single line for messages.
func code(t *cast.Tree, id cast.NodeID) string {
	if t.Kind(id).IsExpr() {
		return cast.PrintExpr(t, id)
	}
	return strings.Join(strings.Fields(cast.Print(t, id)), " ")
}

var qualifiers = map[string]bool{
	"static": true, "extern": true, "const": true, "volatile": true,
	"register": true, "auto": true, "_Thread_local": true,
}

// declaredType returns the leading type word of the declaration of the
// variable name visible from at: a parameter of the enclosing function, a
// local declaration, or a file scope declaration. It returns "" when name is
// not declared as a variable there.
func declaredType(t *cast.Tree, at cast.NodeID, name string) string {
	if fn := t.EnclosingFunction(at); fn.IsValid() {
		for _, p := range t.Params(fn) {
			if t.Text(p) == name {
				return firstTypeWord(t.Node(p).Type)
			}
		}
		for _, d := range t.Find(fn, cast.VarDecl) {
			if typ, ok := declTypeOf(t.Text(d), name); ok {
				return typ
			}
		}
	}
	file := t.EnclosingFile(at)
	for _, d := range t.Children(file) {
		if t.Kind(d) != cast.VarDecl {
			continue
		}
		if typ, ok := declTypeOf(t.Text(d), name); ok {
			return typ
		}
	}
	return ""
}

// declTypeOf looks for name among the declarators of a declaration such as
// `static bool a = 0, b;`.
func declTypeOf(text, name string) (string, bool) {
	if i := strings.IndexByte(text, '='); i >= 0 {
		// only the first declarator before an initializer is considered
		text = text[:i]
	}
	words := identWords(text)
	typ := ""
	for i, w := range words {
		if qualifiers[w] {
			continue
		}
		if typ == "" {
			typ = w
			continue
		}
		if w == name && i > 0 {
			return typ, true
		}
	}
	return "", false
}

func firstTypeWord(typ string) string {
	for _, w := range identWords(typ) {
		if !qualifiers[w] {
			return w
		}
	}
	return ""
}

func identWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9')
	})
}

// insertTopLevel places n after the last #include of file, or first when
// the file has none.
func insertTopLevel(t *cast.Tree, file, n cast.NodeID) {
	last := cast.NoNode
	for _, c := range t.Children(file) {
		if t.Kind(c) == cast.Include {
			last = c
		}
	}
	switch {
	case last.IsValid():
		t.InsertAfter(last, n)
	case t.NumChildren(file) > 0:
		t.InsertBefore(t.ChildAt(file, 0), n)
	default:
		t.Append(file, n)
	}
}

// functionDefinition returns the definition named name below root.
func functionDefinition(t *cast.Tree, root cast.NodeID, name string) cast.NodeID {
	for _, d := range t.Declarations(root, name) {
		if t.Kind(d) == cast.Function {
			return d
		}
	}
	return cast.NoNode
}
