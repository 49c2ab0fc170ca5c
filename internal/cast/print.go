package cast

import "strings"

const indentUnit = "    "

// Print renders the subtree rooted at id as C source.
func Print(t *Tree, id NodeID) string {
	p := &printer{t: t}
	p.node(id, 0)
	return p.sb.String()
}

// PrintExpr renders an expression or a single statement on one line.
func PrintExpr(t *Tree, id NodeID) string {
	if t.Kind(id).IsExpr() {
		p := &printer{t: t}
		p.expr(id)
		return p.sb.String()
	}
	return strings.Join(strings.Fields(Print(t, id)), " ")
}

type printer struct {
	t  *Tree
	sb strings.Builder
}

func (p *printer) write(s ...string) {
	for _, x := range s {
		p.sb.WriteString(x)
	}
}

func (p *printer) indent(level int) {
	if level > 0 {
		p.sb.WriteString(strings.Repeat(indentUnit, level))
	}
}

func (p *printer) node(id NodeID, level int) {
	switch p.t.Kind(id) {
	case Program:
		for i, f := range p.t.Children(id) {
			if i > 0 {
				p.write("\n")
			}
			p.node(f, 0)
		}
	case File:
		p.file(id)
	default:
		p.stmt(id, level)
	}
}

func (p *printer) file(id NodeID) {
	prev := Invalid
	for _, c := range p.t.Children(id) {
		kind := p.t.Kind(c)
		if prev != Invalid && (kind == Function || prev == Function || prev == Include && kind != Include) {
			p.write("\n")
		}
		p.topLevel(c)
		prev = kind
	}
}

func (p *printer) topLevel(id NodeID) {
	n := p.t.Node(id)
	switch n.Kind {
	case Include:
		p.write("#include ", n.Text, "\n")
	case Function:
		p.write(n.Decl, " ")
		p.stmtInline(p.t.Body(id), 0)
		p.write("\n")
	case Prototype:
		p.write(n.Decl, ";\n")
	default:
		p.stmt(id, 0)
	}
}

// stmtInline prints a statement that follows a header on the same line.
func (p *printer) stmtInline(id NodeID, level int) {
	if p.t.Kind(id) == Compound {
		p.compound(id, level)
		return
	}
	sub := &printer{t: p.t}
	sub.stmt(id, level+1)
	p.write("\n", strings.TrimRight(sub.sb.String(), "\n"))
}

func (p *printer) compound(id NodeID, level int) {
	p.write("{\n")
	inSwitch := p.t.Kind(p.t.Parent(id)) == Switch
	children := p.t.Children(id)
	for i, c := range children {
		if p.t.Kind(c).IsLabel() && inSwitch {
			p.stmt(c, level)
			continue
		}
		if p.t.Kind(c) == Label && i == len(children)-1 {
			p.indent(level + 1)
			p.write(p.t.Text(c), ": ;\n")
			continue
		}
		p.stmt(c, level+1)
	}
	p.indent(level)
	p.write("}")
}

func (p *printer) stmt(id NodeID, level int) {
	n := p.t.Node(id)
	if n == nil {
		return
	}
	p.indent(level)
	switch n.Kind {
	case Compound:
		p.compound(id, level)
		p.write("\n")
	case ExprStmt:
		p.expr(p.t.ChildAt(id, 0))
		p.write(";\n")
	case If:
		p.ifStmt(id, level)
		p.write("\n")
	case Switch:
		p.write("switch (")
		p.expr(p.t.ChildAt(id, 0))
		p.write(") ")
		p.stmtInline(p.t.ChildAt(id, 1), level)
		p.write("\n")
	case Case:
		p.write("case ")
		p.expr(p.t.ChildAt(id, 0))
		if hi := p.t.ChildAt(id, 1); hi.IsValid() {
			p.write(" ... ")
			p.expr(hi)
		}
		p.write(":\n")
	case Default:
		p.write("default:\n")
	case Break:
		p.write("break;\n")
	case Continue:
		p.write("continue;\n")
	case Return:
		p.write("return")
		if x := p.t.ChildAt(id, 0); x.IsValid() {
			p.write(" ")
			p.expr(x)
		}
		p.write(";\n")
	case Goto:
		p.write("goto ", n.Text, ";\n")
	case Label:
		p.write(n.Text, ":\n")
	case While:
		p.write("while (")
		p.expr(p.t.ChildAt(id, 0))
		p.write(") ")
		p.stmtInline(p.t.ChildAt(id, 1), level)
		p.write("\n")
	case DoWhile:
		p.write("do ")
		p.stmtInline(p.t.ChildAt(id, 0), level)
		p.write(" while (")
		p.expr(p.t.ChildAt(id, 1))
		p.write(");\n")
	case For:
		p.write("for (", n.Text, ") ")
		p.stmtInline(p.t.ChildAt(id, 0), level)
		p.write("\n")
	case Empty:
		p.write(";\n")
	case VarDecl, Raw:
		p.write(n.Text, "\n")
	case Typedef, Tag:
		p.write(n.Decl, "\n")
	case Function, Prototype, Include:
		p.topLevel(id)
	default:
		p.expr(id)
		p.write(";\n")
	}
}

func (p *printer) ifStmt(id NodeID, level int) {
	p.write("if (")
	p.expr(p.t.ChildAt(id, 0))
	p.write(") ")
	p.stmtInline(p.t.ChildAt(id, 1), level)
	els := p.t.ChildAt(id, 2)
	if !els.IsValid() {
		return
	}
	p.write(" else ")
	if p.t.Kind(els) == If {
		p.ifStmt(els, level)
		return
	}
	p.stmtInline(els, level)
}

func (p *printer) expr(id NodeID) {
	n := p.t.Node(id)
	if n == nil {
		return
	}
	switch n.Kind {
	case Ident, IntLit, Literal, Raw:
		p.write(n.Text)
	case Binary, Assign:
		p.expr(p.t.ChildAt(id, 0))
		p.write(" ", n.Text, " ")
		p.expr(p.t.ChildAt(id, 1))
	case Unary:
		p.write(n.Text)
		p.expr(p.t.ChildAt(id, 0))
	case Postfix:
		p.expr(p.t.ChildAt(id, 0))
		p.write(n.Text)
	case Paren:
		p.write("(")
		p.expr(p.t.ChildAt(id, 0))
		p.write(")")
	case Cast:
		p.write("(", n.Type, ")")
		p.expr(p.t.ChildAt(id, 0))
	case Call:
		children := p.t.Children(id)
		p.expr(children[0])
		p.write("(")
		for i, a := range children[1:] {
			if i > 0 {
				p.write(", ")
			}
			p.expr(a)
		}
		p.write(")")
	default:
		p.write(PrintExpr(p.t, id))
	}
}
