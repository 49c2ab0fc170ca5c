package lints

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/gnolang/misra/internal"
	"github.com/gnolang/misra/internal/cast"
)

// significantChars is the number of leading characters two identifiers
// must differ in.
const significantChars = 31

type linkage int

const (
	noLinkage linkage = iota
	internalLinkage
	extLinkage
)

// ident is one declared identifier of the program.
type ident struct {
	name    string
	node    cast.NodeID // declaring node
	linkage linkage
	kind    internal.NameKind
	tag     bool // struct, union or enum tag name space

	// region is the scope the identifier is declared in. Parameters share
	// the region of the function body.
	region cast.NodeID
	// scope is where references to the identifier can appear.
	scope cast.NodeID
	// fromDecl limits references to the declaration and what follows it.
	fromDecl bool
}

var tagKinds = map[string]internal.NameKind{
	"struct": internal.NameStruct,
	"union":  internal.NameUnion,
	"enum":   internal.NameEnum,
}

// identifiers lists the identifiers declared below root in source order.
// Prototypes and extern declarations refer to entities declared elsewhere
// and are left out.
func identifiers(t *cast.Tree, root cast.NodeID) []ident {
	var out []ident
	t.Walk(root, func(id cast.NodeID) bool {
		n := t.Node(id)
		switch n.Kind {
		case cast.Program, cast.File:
			return true
		case cast.Function:
			out = append(out, fileScoped(t, id, n.Text, linkageOf(n.Storage), internal.NameFunc))
			body := t.Body(id)
			for _, p := range t.Params(id) {
				if name := t.Text(p); name != "" {
					out = append(out, ident{name: name, node: p, kind: internal.NameVar, region: body, scope: id})
				}
			}
			return true
		case cast.VarDecl:
			if strings.Contains(n.Storage, "extern") {
				return false
			}
			parent := t.Parent(id)
			for _, name := range n.Names {
				if t.Kind(parent) == cast.File {
					out = append(out, fileScoped(t, id, name, linkageOf(n.Storage), internal.NameVar))
					continue
				}
				out = append(out, ident{name: name, node: id, kind: internal.NameVar, region: parent, scope: parent, fromDecl: true})
			}
			return false
		case cast.Typedef:
			for _, name := range n.Names {
				out = append(out, typeScoped(t, id, name, internal.NameTypedef, false))
			}
			if keyword, name, ok := typedefTag(n); ok && strings.Contains(n.Decl, "{") {
				out = append(out, typeScoped(t, id, name, tagKinds[keyword], true))
			}
			return false
		case cast.Tag:
			out = append(out, typeScoped(t, id, n.Text, tagKinds[n.Type], true))
			return false
		case cast.Prototype, cast.Include, cast.Raw:
			return false
		}
		return t.Kind(id).IsStmt()
	})
	return out
}

func linkageOf(storage string) linkage {
	if strings.Contains(storage, "static") {
		return internalLinkage
	}
	return extLinkage
}

func fileScoped(t *cast.Tree, id cast.NodeID, name string, l linkage, kind internal.NameKind) ident {
	scope := t.Root()
	if l == internalLinkage {
		scope = t.EnclosingFile(id)
	}
	return ident{name: name, node: id, linkage: l, kind: kind, region: t.EnclosingFile(id), scope: scope}
}

// typeScoped builds the identifier of a type name. Types declared in a
// header are visible from every file including it.
func typeScoped(t *cast.Tree, id cast.NodeID, name string, kind internal.NameKind, tag bool) ident {
	file := t.EnclosingFile(id)
	scope := file
	if strings.HasSuffix(t.Text(file), ".h") {
		scope = t.Root()
	}
	return ident{name: name, node: id, kind: kind, tag: tag, region: file, scope: scope}
}

// typedefTag returns the tag a typedef aliases, if any.
func typedefTag(n *cast.Node) (keyword, name string, ok bool) {
	keyword, name, ok = strings.Cut(n.Type, " ")
	if _, known := tagKinds[keyword]; !ok || !known || !isIdent(name) {
		return "", "", false
	}
	return keyword, name, true
}

func isIdent(s string) bool {
	if s == "" || s[0] >= '0' && s[0] <= '9' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !identByte(s[i]) {
			return false
		}
	}
	return true
}

// similar reports whether a and b differ but agree on their significant
// characters.
func similar(a, b string) bool {
	return a != b && len(a) >= significantChars && len(b) >= significantChars &&
		a[:significantChars] == b[:significantChars]
}

var tagKeywords = map[string]bool{"struct": true, "union": true, "enum": true}

func identByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// replaceRefs replaces every reference to old in a piece of C source by
// repl and returns the result with the number of references found. Tag
// references are the words following struct, union or enum; the other
// name space excludes them and member names. Literals and comments are
// left alone.
func replaceRefs(s, old, repl string, tag bool) (string, int) {
	if !strings.Contains(s, old) {
		return s, 0
	}
	var (
		sb        strings.Builder
		prevWord  string
		prevPunct string
		count     int
	)
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(s) && s[j] != c {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			j = min(j+1, len(s))
			sb.WriteString(s[i:j])
			prevWord, prevPunct, i = "", string(c), j
		case strings.HasPrefix(s[i:], "//"):
			j := strings.IndexByte(s[i:], '\n')
			if j < 0 {
				j = len(s) - i
			}
			sb.WriteString(s[i : i+j])
			i += j
		case strings.HasPrefix(s[i:], "/*"):
			j := strings.Index(s[i+2:], "*/")
			end := len(s)
			if j >= 0 {
				end = i + 2 + j + 2
			}
			sb.WriteString(s[i:end])
			i = end
		case identByte(c):
			j := i
			for j < len(s) && identByte(s[j]) {
				j++
			}
			word := s[i:j]
			ref := word == old
			if tag {
				ref = ref && tagKeywords[prevWord]
			} else {
				ref = ref && !tagKeywords[prevWord] && prevPunct != "." && prevPunct != "->" && prevWord != "goto"
			}
			if ref {
				count++
				word = repl
			}
			sb.WriteString(word)
			prevWord, prevPunct, i = s[i:j], "", j
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			sb.WriteByte(c)
			i++
		case strings.HasPrefix(s[i:], "->"):
			sb.WriteString("->")
			prevWord, prevPunct, i = "", "->", i+2
		default:
			sb.WriteByte(c)
			prevWord, prevPunct, i = "", string(c), i+1
		}
	}
	return sb.String(), count
}

// rename replaces old by repl in every declaration and reference below
// scope. With from set, nodes ahead of it in source order keep their
// spelling.
func rename(t *cast.Tree, scope, from cast.NodeID, old, repl string, tag bool) {
	started := !from.IsValid()
	sub := func(s string) string {
		out, _ := replaceRefs(s, old, repl, tag)
		return out
	}
	t.Walk(scope, func(id cast.NodeID) bool {
		if id == from {
			started = true
		}
		if !started {
			return true
		}
		n := t.Node(id)
		switch n.Kind {
		case cast.Ident:
			if !tag && n.Text == old {
				n.Text = repl
			}
		case cast.Function, cast.Prototype, cast.Param, cast.Typedef:
			if !tag && n.Text == old {
				n.Text = repl
			}
			n.Decl, n.Type = sub(n.Decl), sub(n.Type)
		case cast.Tag:
			if tag && n.Text == old {
				n.Text = repl
			}
			n.Decl = sub(n.Decl)
		case cast.VarDecl, cast.Raw, cast.For:
			n.Text = sub(n.Text)
		case cast.Cast:
			n.Type = sub(n.Type)
		}
		if !tag && slices.Contains(n.Names, old) {
			names := slices.Clone(n.Names)
			for i := range names {
				if names[i] == old {
					names[i] = repl
				}
			}
			n.Names = names
		}
		return true
	})
}

// references counts the references to name below root, skipping the
// subtrees skip accepts.
func references(t *cast.Tree, root cast.NodeID, name string, tag bool, skip func(cast.NodeID) bool) int {
	count := 0
	add := func(s string) {
		_, c := replaceRefs(s, name, name, tag)
		count += c
	}
	t.Walk(root, func(id cast.NodeID) bool {
		if skip(id) {
			return false
		}
		n := t.Node(id)
		switch n.Kind {
		case cast.Ident:
			if !tag && n.Text == name {
				count++
			}
		case cast.Function, cast.Prototype, cast.Param, cast.Typedef, cast.Tag:
			add(n.Decl)
			add(n.Type)
		case cast.VarDecl, cast.Raw, cast.For:
			add(n.Text)
		case cast.Cast:
			add(n.Type)
		}
		return true
	})
	return count
}

// conflict is an identifier a rule wants renamed.
type conflict struct {
	ident
	msg string
	// fixed is false when renaming cannot remove the violation.
	fixed bool
}

// renameRule reports identifiers that clash with others and gives them
// generated names. Each rename is tried in the sandbox first.
type renameRule struct {
	base
	at        cast.Kind
	conflicts func(ids []ident) []conflict
}

func newRenameRule(s *internal.Session, id string, scope internal.Scope, conflicts func([]ident) []conflict) *renameRule {
	at := cast.Program
	if scope == internal.SingleUnit {
		at = cast.File
	}
	return &renameRule{base: newBase(s, id, 2, scope), at: at, conflicts: conflicts}
}

func (r *renameRule) find(n cast.NodeID) []conflict {
	t := r.tree()
	if t.Kind(n) != r.at {
		return nil
	}
	return r.conflicts(identifiers(t, n))
}

func (r *renameRule) Match(n cast.NodeID, logViolations bool) bool {
	found := r.find(n)
	if logViolations {
		for _, c := range found {
			r.errorf(c.node, "%s", c.msg)
		}
	}
	return len(found) > 0
}

func (r *renameRule) Apply(ctx context.Context, n cast.NodeID) internal.Outcome {
	if !r.Match(n, false) {
		return internal.NoChange()
	}
	t := r.tree()
	renamed := 0
	for _, c := range r.find(n) {
		if r.unfixable(c.node) || !r.declares(c) {
			continue
		}
		if !c.fixed {
			r.giveUp(c.node, "%s", c.msg)
			continue
		}

		fresh := r.store().FreshName(c.kind)
		unit := t.EnclosingFile(c.scope)
		if !unit.IsValid() {
			unit = t.Root()
		}
		from := cast.NoNode
		if c.fromDecl {
			from = c.node
		}
		ok, err := r.sess.Sandbox.Commit(ctx, unit, func(dst *cast.Tree, at internal.Resolver) error {
			rename(dst, at(c.scope), at(from), c.name, fresh, c.tag)
			return nil
		})
		if err != nil {
			r.logger.Warn("could not validate rename", zap.String("identifier", c.name), zap.Error(err))
			return internal.NoChange()
		}
		if !ok {
			r.giveUp(c.node, "%s Renaming it to '%s' breaks the build.", c.msg, fresh)
			continue
		}
		r.logger.Debug("renamed identifier", zap.String("from", c.name), zap.String("to", fresh))
		renamed++
	}
	if renamed == 0 {
		return internal.NoChange()
	}
	return internal.DescendantChanged()
}

// declares reports whether the node of c still declares its name. An
// earlier rename in the same pass may have covered it.
func (r *renameRule) declares(c conflict) bool {
	n := r.tree().Node(c.node)
	if c.tag {
		if n.Kind == cast.Typedef {
			_, name, ok := typedefTag(n)
			return ok && name == c.name
		}
		return n.Text == c.name
	}
	return n.Text == c.name || slices.Contains(n.Names, c.name)
}

// NewDistinctExternalIdentifiers builds 5.1: external identifiers shall be
// distinct in their significant characters.
func NewDistinctExternalIdentifiers(s *internal.Session) internal.Rule {
	return newRenameRule(s, "5.1", internal.WholeProgram, func(ids []ident) []conflict {
		var out []conflict
		for j, b := range ids {
			if b.linkage != extLinkage {
				continue
			}
			if slices.ContainsFunc(ids[:j], func(a ident) bool {
				return a.linkage == extLinkage && similar(a.name, b.name)
			}) {
				out = append(out, conflict{ident: b, fixed: true,
					msg: "Identifier '" + b.name + "' is not distinct from other external identifiers within the first 31 characters."})
			}
		}
		return out
	})
}

// NewDistinctIdentifiersInScope builds 5.2: identifiers declared in the
// same scope and name space shall be distinct.
func NewDistinctIdentifiersInScope(s *internal.Session) internal.Rule {
	return newRenameRule(s, "5.2", internal.SingleUnit, func(ids []ident) []conflict {
		var out []conflict
		for j, b := range ids {
			if b.linkage == extLinkage {
				continue
			}
			if slices.ContainsFunc(ids[:j], func(a ident) bool {
				return a.region == b.region && a.tag == b.tag && similar(a.name, b.name)
			}) {
				out = append(out, conflict{ident: b, fixed: true,
					msg: "Identifier '" + b.name + "' is not sufficiently distinct from other identifiers in the same scope within the first 31 characters."})
			}
		}
		return out
	})
}

// NewUniqueTypedefNames builds 5.6: a typedef name shall be unique. A tag
// may share the name of the typedef declaring it.
func NewUniqueTypedefNames(s *internal.Session) internal.Rule {
	return newRenameRule(s, "5.6", internal.WholeProgram, func(ids []ident) []conflict {
		var out []conflict
		for j, x := range ids {
			clash := func(td ident) bool {
				if td.kind != internal.NameTypedef || td.name != x.name || td.node == x.node {
					return false
				}
				if x.tag {
					// typedef struct s {...} s; or typedef struct s s;
					return !associated(s.Tree, td.node, x)
				}
				return true
			}
			var hit bool
			if x.kind == internal.NameTypedef {
				hit = slices.ContainsFunc(ids[:j], clash)
			} else {
				hit = slices.ContainsFunc(ids, clash)
			}
			if hit {
				out = append(out, conflict{ident: x, fixed: true,
					msg: "Identifier '" + x.name + "' is also the name of a typedef. Typedef identifiers must not be reused."})
			}
		}
		return out
	})
}

// NewUniqueTagNames builds 5.7: a tag name shall be unique. A typedef may
// share the name of the tag it aliases.
func NewUniqueTagNames(s *internal.Session) internal.Rule {
	return newRenameRule(s, "5.7", internal.WholeProgram, func(ids []ident) []conflict {
		var out []conflict
		for _, x := range ids {
			if x.tag {
				continue
			}
			if slices.ContainsFunc(ids, func(tg ident) bool {
				return tg.tag && tg.name == x.name && !(x.kind == internal.NameTypedef && associated(s.Tree, x.node, tg))
			}) {
				out = append(out, conflict{ident: x, fixed: true,
					msg: "Identifier '" + x.name + "' is also the name of a tag. Tag identifiers must not be reused."})
			}
		}
		return out
	})
}

// associated reports whether typedef td aliases the tag tg.
func associated(t *cast.Tree, td cast.NodeID, tg ident) bool {
	if td == tg.node {
		return true
	}
	_, name, ok := typedefTag(t.Node(td))
	return ok && name == tg.name
}

// NewUniqueExternalLinkIdentifiers builds 5.8: identifiers of objects and
// functions with external linkage shall be unique. Two external
// definitions of one name cannot be told apart by renaming and are only
// reported.
func NewUniqueExternalLinkIdentifiers(s *internal.Session) internal.Rule {
	return newRenameRule(s, "5.8", internal.WholeProgram, func(ids []ident) []conflict {
		var out []conflict
		for j, x := range ids {
			if x.tag {
				continue
			}
			external := func(e ident) bool {
				return e.linkage == extLinkage && e.name == x.name && e.node != x.node
			}
			msg := "Identifier '" + x.name + "' is already defined with external linkage in this or other file."
			switch {
			case x.linkage == extLinkage:
				if slices.ContainsFunc(ids[:j], external) {
					out = append(out, conflict{ident: x, msg: msg})
				}
			case slices.ContainsFunc(ids, external):
				out = append(out, conflict{ident: x, msg: msg, fixed: true})
			}
		}
		return out
	})
}

// NewUniqueInternalLinkIdentifiers builds 5.9: identifiers of objects and
// functions with internal linkage should be unique. The first definition in
// file order keeps its name.
func NewUniqueInternalLinkIdentifiers(s *internal.Session) internal.Rule {
	return newRenameRule(s, "5.9", internal.WholeProgram, func(ids []ident) []conflict {
		var out []conflict
		for j, x := range ids {
			if x.tag || x.linkage == extLinkage {
				continue
			}
			static := func(i ident) bool {
				return i.linkage == internalLinkage && i.name == x.name && i.node != x.node
			}
			var hit bool
			if x.linkage == internalLinkage {
				hit = slices.ContainsFunc(ids[:j], static)
			} else {
				hit = slices.ContainsFunc(ids, static)
			}
			if hit {
				out = append(out, conflict{ident: x, fixed: true,
					msg: "Identifier '" + x.name + "' is already defined with internal linkage in this or other file."})
			}
		}
		return out
	})
}
