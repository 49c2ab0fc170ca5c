package lints

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/gnolang/misra/internal"
	"github.com/gnolang/misra/internal/cast"
)

// UnusedLabels reports labels no goto jumps to and removes them (2.6).
type UnusedLabels struct{ base }

func NewUnusedLabels(s *internal.Session) internal.Rule {
	return &UnusedLabels{newBase(s, "2.6", defaultPriority, internal.SingleUnit)}
}

func (r *UnusedLabels) unused(fn cast.NodeID) []cast.NodeID {
	t := r.tree()
	targets := make(map[string]bool)
	for _, g := range t.Find(fn, cast.Goto) {
		targets[t.Text(g)] = true
	}
	var out []cast.NodeID
	for _, l := range t.Find(fn, cast.Label) {
		if !targets[t.Text(l)] {
			out = append(out, l)
		}
	}
	return out
}

func (r *UnusedLabels) Match(n cast.NodeID, logViolations bool) bool {
	t := r.tree()
	if t.Kind(n) != cast.Function {
		return false
	}
	labels := r.unused(n)
	if logViolations {
		for _, l := range labels {
			r.errorf(l, "Label '%s' is unused in function %s.", t.Text(l), t.Text(n))
		}
	}
	return len(labels) > 0
}

func (r *UnusedLabels) Apply(_ context.Context, n cast.NodeID) internal.Outcome {
	if !r.Match(n, false) {
		return internal.NoChange()
	}
	for _, l := range r.unused(n) {
		r.tree().Detach(l)
	}
	return internal.DescendantChanged()
}

// UnusedParameters reports named parameters a function body never reads
// (2.7). Removing them would mean rewriting every caller, including calls
// through pointers the tool cannot see, so the rule only reports.
type UnusedParameters struct{ base }

func NewUnusedParameters(s *internal.Session) internal.Rule {
	return &UnusedParameters{newBase(s, "2.7", 3, internal.SingleUnit)}
}

func (r *UnusedParameters) Match(n cast.NodeID, logViolations bool) bool {
	t := r.tree()
	if t.Kind(n) != cast.Function {
		return false
	}
	body := t.Body(n)
	found := false
	for _, p := range t.Params(n) {
		name := t.Text(p)
		if name == "" || t.ReferencesIdent(body, name) {
			continue
		}
		found = true
		if logViolations {
			r.errorf(p, "Parameter '%s' is unused in function %s.", name, t.Text(n))
		}
	}
	return found
}

func (r *UnusedParameters) Apply(_ context.Context, n cast.NodeID) internal.Outcome {
	if r.Match(n, false) {
		r.logger.Debug("unused parameters left in place", zap.String("function", r.tree().Text(n)))
	}
	return internal.NoChange()
}

// enumerators returns the constants an enum declaration or a typedef of
// an enum defines.
func enumerators(n *cast.Node) []string {
	if !strings.HasPrefix(n.Type, "enum") {
		return nil
	}
	decl := n.Decl
	open, end := strings.IndexByte(decl, '{'), strings.LastIndexByte(decl, '}')
	if open < 0 || end < open {
		return nil
	}
	var out []string
	for _, item := range strings.Split(decl[open+1:end], ",") {
		name, _, _ := strings.Cut(item, "=")
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// usedOutside reports whether name is referenced anywhere in the program
// except below decl and nodes skip accepts.
func usedOutside(t *cast.Tree, decl cast.NodeID, name string, tag bool, skip func(cast.NodeID) bool) bool {
	return references(t, t.Root(), name, tag, func(id cast.NodeID) bool {
		return id == decl || skip != nil && skip(id)
	}) > 0
}

// enumeratorsUsed reports whether a constant declared by decl is used
// elsewhere, which keeps the declaration alive.
func enumeratorsUsed(t *cast.Tree, decl cast.NodeID) bool {
	for _, e := range enumerators(t.Node(decl)) {
		if usedOutside(t, decl, e, false, nil) {
			return true
		}
	}
	return false
}

// UnusedTypeDecl reports typedefs nothing refers to (2.3). They are
// removed, except that a struct, union or enum defined by the typedef
// stays when its tag is used.
type UnusedTypeDecl struct{ base }

func NewUnusedTypeDecl(s *internal.Session) internal.Rule {
	return &UnusedTypeDecl{newBase(s, "2.3", defaultPriority, internal.WholeProgram)}
}

func (r *UnusedTypeDecl) Match(n cast.NodeID, logViolations bool) bool {
	t := r.tree()
	if t.Kind(n) != cast.Typedef || enumeratorsUsed(t, n) {
		return false
	}
	for _, name := range t.Node(n).Names {
		if usedOutside(t, n, name, false, nil) {
			return false
		}
	}
	if logViolations {
		r.errorf(n, "Type declaration %s is declared but not used.", t.Text(n))
	}
	return true
}

func (r *UnusedTypeDecl) Apply(_ context.Context, n cast.NodeID) internal.Outcome {
	if !r.Match(n, false) {
		return internal.NoChange()
	}
	t := r.tree()
	node := t.Node(n)
	keyword, name, tagged := typedefTag(node)
	open, end := strings.IndexByte(node.Decl, '{'), strings.LastIndexByte(node.Decl, '}')
	if tagged && open >= 0 && end > open && usedOutside(t, n, name, true, nil) {
		// typedef struct s {...} t; becomes struct s {...};
		tag := r.builder().Tag(keyword, name, node.Decl[open:end+1])
		t.Node(tag).Span = node.Span
		t.Replace(n, tag)
		return internal.Replaced(tag)
	}
	t.Detach(n)
	return internal.Removed()
}

// UnusedTagDecl reports struct, union and enum tags nothing refers to
// (2.4). A tag declared on its own is removed; a tag only named by its
// typedef loses its name.
type UnusedTagDecl struct{ base }

func NewUnusedTagDecl(s *internal.Session) internal.Rule {
	return &UnusedTagDecl{newBase(s, "2.4", 3, internal.WholeProgram)}
}

func (r *UnusedTagDecl) tagName(n cast.NodeID) (string, bool) {
	t := r.tree()
	node := t.Node(n)
	switch node.Kind {
	case cast.Tag:
		return node.Text, true
	case cast.Typedef:
		_, name, ok := typedefTag(node)
		return name, ok
	}
	return "", false
}

func (r *UnusedTagDecl) Match(n cast.NodeID, logViolations bool) bool {
	t := r.tree()
	name, ok := r.tagName(n)
	if !ok || enumeratorsUsed(t, n) {
		return false
	}
	node := t.Node(n)
	// other declarations of the same tag do not count as uses
	redeclared := func(id cast.NodeID) bool {
		return t.Kind(id) == cast.Tag && t.Text(id) == name
	}
	if usedOutside(t, n, name, true, redeclared) {
		return false
	}
	if node.Kind == cast.Typedef {
		if _, self := replaceRefs(node.Decl, name, name, true); self > 1 {
			// struct s { struct s *next; }
			return false
		}
		if logViolations {
			r.errorf(n, "The tag '%s' is declared but only used in a typedef.", name)
		}
		return true
	}
	if logViolations {
		r.errorf(n, "The tag '%s' is declared but not used.", name)
	}
	return true
}

func (r *UnusedTagDecl) Apply(_ context.Context, n cast.NodeID) internal.Outcome {
	if !r.Match(n, false) {
		return internal.NoChange()
	}
	t := r.tree()
	node := t.Node(n)
	if node.Kind == cast.Tag {
		t.Detach(n)
		return internal.Removed()
	}
	keyword, name, _ := typedefTag(node)
	node.Decl = strings.Replace(node.Decl, keyword+" "+name, keyword, 1)
	node.Type = keyword
	return internal.DescendantChanged()
}
