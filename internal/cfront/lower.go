package cfront

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/gnolang/misra/internal/cast"
)

// lowerer turns tree-sitter nodes into cast nodes. Constructs the rules do not
// reason about are kept verbatim as Raw nodes.
type lowerer struct {
	t   *cast.Tree
	b   cast.Builder
	src []byte
}

func (l *lowerer) text(n *sitter.Node) string {
	return n.Content(l.src)
}

func (l *lowerer) span(id cast.NodeID, n *sitter.Node) cast.NodeID {
	sp, ep := n.StartPoint(), n.EndPoint()
	l.t.Node(id).Span = cast.Span{
		Line:      int(sp.Row) + 1,
		Column:    int(sp.Column) + 1,
		EndLine:   int(ep.Row) + 1,
		EndColumn: int(ep.Column) + 1,
	}
	return id
}

func (l *lowerer) raw(n *sitter.Node) cast.NodeID {
	return l.span(l.b.Raw(l.text(n)), n)
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

func (l *lowerer) file(path string, root *sitter.Node) cast.NodeID {
	file := l.t.New(cast.File, path)
	for _, c := range namedChildren(root) {
		for _, id := range l.topLevel(c) {
			l.t.Append(file, id)
		}
	}
	return file
}

func (l *lowerer) topLevel(n *sitter.Node) []cast.NodeID {
	switch n.Type() {
	case "preproc_include":
		path := n.ChildByFieldName("path")
		if path == nil {
			return []cast.NodeID{l.raw(n)}
		}
		return []cast.NodeID{l.span(l.b.Include(l.text(path)), n)}
	case "function_definition":
		return []cast.NodeID{l.function(n)}
	case "declaration":
		return []cast.NodeID{l.declaration(n)}
	case "type_definition":
		return []cast.NodeID{l.typedef(n)}
	case "struct_specifier", "union_specifier", "enum_specifier":
		return []cast.NodeID{l.tag(n)}
	}
	return []cast.NodeID{l.rawTopLevel(n)}
}

// rawTopLevel keeps a top-level construct as written. Preprocessor lines keep
// their trailing newline out of the verbatim text.
func (l *lowerer) rawTopLevel(n *sitter.Node) cast.NodeID {
	id := l.raw(n)
	node := l.t.Node(id)
	node.Text = strings.TrimRight(node.Text, "\n")
	return id
}

// declarator walks nested declarators down to the function declarator and
// counts pointer levels on the way.
func declarator(n *sitter.Node) (fn *sitter.Node, pointers int) {
	for cur := n; cur != nil; cur = cur.ChildByFieldName("declarator") {
		switch cur.Type() {
		case "pointer_declarator":
			pointers++
		case "function_declarator":
			if fn == nil {
				fn = cur
			}
		}
	}
	return fn, pointers
}

func (l *lowerer) declName(n *sitter.Node) string {
	for cur := n; cur != nil; cur = cur.ChildByFieldName("declarator") {
		if cur.Type() == "identifier" || cur.Type() == "field_identifier" {
			return l.text(cur)
		}
	}
	return ""
}

func (l *lowerer) specifiers(n *sitter.Node) (typ, storage string) {
	var quals []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "storage_class_specifier":
			storage = l.text(c)
		case "type_qualifier":
			quals = append(quals, l.text(c))
		}
	}
	if t := n.ChildByFieldName("type"); t != nil {
		quals = append(quals, l.text(t))
	}
	return strings.Join(quals, " "), storage
}

func withPointers(typ string, pointers int) string {
	if pointers == 0 {
		return typ
	}
	return typ + " " + strings.Repeat("*", pointers)
}

func (l *lowerer) function(n *sitter.Node) cast.NodeID {
	decl := n.ChildByFieldName("declarator")
	body := n.ChildByFieldName("body")
	if decl == nil || body == nil {
		return l.raw(n)
	}
	fnDecl, pointers := declarator(decl)
	typ, storage := l.specifiers(n)

	id := l.span(l.t.New(cast.Function, l.declName(decl)), n)
	node := l.t.Node(id)
	node.Type = withPointers(typ, pointers)
	node.Storage = storage
	node.Decl = strings.TrimSpace(string(l.src[n.StartByte():body.StartByte()]))

	if fnDecl != nil {
		if params := fnDecl.ChildByFieldName("parameters"); params != nil {
			for _, p := range namedChildren(params) {
				if p.Type() != "parameter_declaration" {
					continue
				}
				pd := p.ChildByFieldName("declarator")
				if pd == nil {
					continue
				}
				_, ptr := declarator(pd)
				ptyp, _ := l.specifiers(p)
				param := l.span(l.t.New(cast.Param, l.declName(pd)), p)
				l.t.Node(param).Type = withPointers(ptyp, ptr)
				l.t.Node(param).Decl = l.text(p)
				l.t.Append(id, param)
			}
		}
	}
	l.t.Append(id, l.compound(body))
	return id
}

func (l *lowerer) declaration(n *sitter.Node) cast.NodeID {
	decl := n.ChildByFieldName("declarator")
	if decl != nil {
		if fn, pointers := declarator(decl); fn != nil && l.declName(decl) != "" {
			typ, storage := l.specifiers(n)
			id := l.span(l.t.New(cast.Prototype, l.declName(decl)), n)
			node := l.t.Node(id)
			node.Type = withPointers(typ, pointers)
			node.Storage = storage
			node.Decl = strings.TrimSuffix(strings.TrimSpace(l.text(n)), ";")
			return id
		}
	}
	return l.varDecl(n)
}

func (l *lowerer) varDecl(n *sitter.Node) cast.NodeID {
	id := l.span(l.b.VarDecl(l.text(n)), n)
	node := l.t.Node(id)
	_, node.Storage = l.specifiers(n)
	node.Names = l.declaredNames(n)
	return id
}

// declaredNames returns the identifier of every declarator of n.
func (l *lowerer) declaredNames(n *sitter.Node) []string {
	var names []string
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) != "declarator" {
			continue
		}
		if name := l.leafName(n.Child(i)); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// leafName digs through pointer, array, function, init and parenthesized
// declarators down to the declared identifier.
func (l *lowerer) leafName(n *sitter.Node) string {
	for cur := n; cur != nil; {
		switch cur.Type() {
		case "identifier", "type_identifier", "field_identifier":
			return l.text(cur)
		case "parenthesized_declarator":
			named := namedChildren(cur)
			if len(named) == 0 {
				return ""
			}
			cur = named[0]
		default:
			cur = cur.ChildByFieldName("declarator")
		}
	}
	return ""
}

// typedef lowers `typedef <type> <names>;`. A tagged struct, union or enum
// keeps "keyword tag" as its type so the tag can be told apart from the
// typedef name.
func (l *lowerer) typedef(n *sitter.Node) cast.NodeID {
	names := l.declaredNames(n)
	if len(names) == 0 {
		return l.rawTopLevel(n)
	}
	id := l.span(l.t.New(cast.Typedef, names[0]), n)
	node := l.t.Node(id)
	node.Names = names
	node.Decl = l.text(n)
	if typ := n.ChildByFieldName("type"); typ != nil {
		node.Type = l.text(typ)
		if keyword, name, ok := l.tagOf(typ); ok {
			node.Type = keyword + " " + name
		}
	}
	return id
}

func (l *lowerer) tagOf(n *sitter.Node) (keyword, name string, ok bool) {
	keyword, found := strings.CutSuffix(n.Type(), "_specifier")
	if !found || keyword != "struct" && keyword != "union" && keyword != "enum" {
		return "", "", false
	}
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return "", "", false
	}
	return keyword, l.text(nameNode), true
}

// tag lowers a struct, union or enum declared on its own. The terminating
// semicolon is a separate token of the translation unit.
func (l *lowerer) tag(n *sitter.Node) cast.NodeID {
	keyword, name, ok := l.tagOf(n)
	decl := l.text(n)
	if next := n.NextSibling(); next != nil && next.Type() == ";" {
		decl += ";"
	}
	if !ok {
		id := l.raw(n)
		l.t.Node(id).Text = decl
		return id
	}
	id := l.span(l.t.New(cast.Tag, name), n)
	node := l.t.Node(id)
	node.Type = keyword
	node.Decl = decl
	return id
}

func (l *lowerer) compound(n *sitter.Node) cast.NodeID {
	id := l.span(l.t.New(cast.Compound, ""), n)
	for _, c := range namedChildren(n) {
		for _, s := range l.stmt(c) {
			l.t.Append(id, s)
		}
	}
	return id
}

// single lowers a statement that must stay one node, wrapping label
// expansions into a compound.
func (l *lowerer) single(n *sitter.Node) cast.NodeID {
	stmts := l.stmt(n)
	if len(stmts) == 1 {
		return stmts[0]
	}
	return l.span(l.b.Compound(stmts...), n)
}

func (l *lowerer) stmt(n *sitter.Node) []cast.NodeID {
	one := func(id cast.NodeID) []cast.NodeID { return []cast.NodeID{l.span(id, n)} }

	switch n.Type() {
	case "compound_statement":
		return []cast.NodeID{l.compound(n)}
	case "expression_statement":
		named := namedChildren(n)
		if len(named) == 0 {
			return one(l.b.Empty())
		}
		return one(l.b.ExprStmt(l.expr(named[0])))
	case "if_statement":
		cond := l.cond(n.ChildByFieldName("condition"))
		then := l.single(n.ChildByFieldName("consequence"))
		els := cast.NoNode
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			if alt.Type() == "else_clause" {
				alt = namedChildren(alt)[0]
			}
			els = l.single(alt)
		}
		return one(l.b.If(cond, then, els))
	case "switch_statement":
		cond := l.cond(n.ChildByFieldName("condition"))
		body := l.compound(n.ChildByFieldName("body"))
		return one(l.t.New(cast.Switch, "", cond, body))
	case "case_statement":
		return l.caseStmt(n)
	case "break_statement":
		return one(l.b.Break())
	case "continue_statement":
		return one(l.b.Continue())
	case "return_statement":
		named := namedChildren(n)
		if len(named) == 0 {
			return one(l.b.Return(cast.NoNode))
		}
		return one(l.b.Return(l.expr(named[0])))
	case "goto_statement":
		return one(l.b.Goto(l.text(n.ChildByFieldName("label"))))
	case "labeled_statement":
		label := l.span(l.b.Label(l.text(n.ChildByFieldName("label"))), n)
		out := []cast.NodeID{label}
		for _, c := range namedChildren(n)[1:] {
			out = append(out, l.stmt(c)...)
		}
		return out
	case "while_statement":
		return one(l.b.While(l.cond(n.ChildByFieldName("condition")), l.single(n.ChildByFieldName("body"))))
	case "do_statement":
		return one(l.b.DoWhile(l.single(n.ChildByFieldName("body")), l.cond(n.ChildByFieldName("condition"))))
	case "for_statement":
		return l.forStmt(n)
	case "declaration":
		return []cast.NodeID{l.varDecl(n)}
	}
	return []cast.NodeID{l.raw(n)}
}

// caseStmt flattens tree-sitter's nested case statement into a label node
// followed by its statements as siblings.
func (l *lowerer) caseStmt(n *sitter.Node) []cast.NodeID {
	var label cast.NodeID
	value := n.ChildByFieldName("value")
	if value == nil {
		label = l.span(l.b.Default(), n)
	} else {
		label = l.span(l.b.Case(l.expr(value)), n)
	}
	out := []cast.NodeID{label}
	for _, c := range namedChildren(n) {
		if value != nil && c.StartByte() == value.StartByte() && c.EndByte() == value.EndByte() {
			continue
		}
		out = append(out, l.stmt(c)...)
	}
	return out
}

func (l *lowerer) forStmt(n *sitter.Node) []cast.NodeID {
	body := n.ChildByFieldName("body")
	if body == nil {
		return []cast.NodeID{l.raw(n)}
	}
	var open, close *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.StartByte() >= body.StartByte() {
			break
		}
		switch c.Type() {
		case "(":
			if open == nil {
				open = c
			}
		case ")":
			close = c
		}
	}
	if open == nil || close == nil {
		return []cast.NodeID{l.raw(n)}
	}
	header := strings.TrimSpace(string(l.src[open.EndByte():close.StartByte()]))
	return []cast.NodeID{l.span(l.b.For(header, l.single(body)), n)}
}

// cond strips the parentheses tree-sitter keeps around controlling
// expressions; the printer adds them back.
func (l *lowerer) cond(n *sitter.Node) cast.NodeID {
	if n == nil {
		return cast.NoNode
	}
	if n.Type() == "parenthesized_expression" || n.Type() == "condition_clause" {
		named := namedChildren(n)
		if len(named) == 1 {
			return l.expr(named[0])
		}
	}
	return l.expr(n)
}

func (l *lowerer) expr(n *sitter.Node) cast.NodeID {
	one := func(id cast.NodeID) cast.NodeID { return l.span(id, n) }

	switch n.Type() {
	case "identifier":
		return one(l.b.Ident(l.text(n)))
	case "number_literal":
		text := l.text(n)
		if isIntegerLiteral(text) {
			return one(l.t.New(cast.IntLit, text))
		}
		return one(l.b.Lit(text))
	case "string_literal", "char_literal", "concatenated_string", "true", "false", "null":
		return one(l.b.Lit(l.text(n)))
	case "parenthesized_expression":
		named := namedChildren(n)
		if len(named) != 1 {
			return l.raw(n)
		}
		return one(l.b.Paren(l.expr(named[0])))
	case "binary_expression":
		op := n.ChildByFieldName("operator")
		left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
		if op == nil || left == nil || right == nil {
			return l.raw(n)
		}
		return one(l.b.Binary(op.Type(), l.expr(left), l.expr(right)))
	case "assignment_expression":
		op := n.ChildByFieldName("operator")
		left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
		if op == nil || left == nil || right == nil {
			return l.raw(n)
		}
		return one(l.b.Assign(op.Type(), l.expr(left), l.expr(right)))
	case "unary_expression", "pointer_expression":
		op := n.ChildByFieldName("operator")
		arg := n.ChildByFieldName("argument")
		if op == nil || arg == nil {
			return l.raw(n)
		}
		return one(l.b.Unary(op.Type(), l.expr(arg)))
	case "update_expression":
		op := n.ChildByFieldName("operator")
		arg := n.ChildByFieldName("argument")
		if op == nil || arg == nil {
			return l.raw(n)
		}
		if op.StartByte() < arg.StartByte() {
			return one(l.b.Unary(op.Type(), l.expr(arg)))
		}
		return one(l.t.New(cast.Postfix, op.Type(), l.expr(arg)))
	case "call_expression":
		fn := n.ChildByFieldName("function")
		args := n.ChildByFieldName("arguments")
		if fn == nil || args == nil {
			return l.raw(n)
		}
		call := l.t.New(cast.Call, "", l.expr(fn))
		for _, a := range namedChildren(args) {
			l.t.Append(call, l.expr(a))
		}
		return one(call)
	case "cast_expression":
		typ := n.ChildByFieldName("type")
		value := n.ChildByFieldName("value")
		if typ == nil || value == nil {
			return l.raw(n)
		}
		return one(l.b.Cast(l.text(typ), l.expr(value)))
	}
	return l.raw(n)
}

func isIntegerLiteral(s string) bool {
	s = strings.ToLower(s)
	if strings.HasPrefix(s, "0x") {
		return !strings.ContainsAny(s, ".p")
	}
	return !strings.ContainsAny(s, ".e")
}
