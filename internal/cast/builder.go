package cast

import "strconv"

// Builder constructs detached nodes in a tree.
type Builder struct {
	t *Tree
}

func NewBuilder(t *Tree) Builder { return Builder{t: t} }

func (b Builder) Tree() *Tree { return b.t }

func (b Builder) Ident(name string) NodeID { return b.t.New(Ident, name) }

func (b Builder) Int(v int64) NodeID { return b.t.New(IntLit, strconv.FormatInt(v, 10)) }

func (b Builder) Lit(text string) NodeID { return b.t.New(Literal, text) }

func (b Builder) Raw(text string) NodeID { return b.t.New(Raw, text) }

func (b Builder) Binary(op string, l, r NodeID) NodeID { return b.t.New(Binary, op, l, r) }

func (b Builder) Eq(l, r NodeID) NodeID { return b.Binary("==", l, r) }

// Or folds operands into a left-associated disjunction.
func (b Builder) Or(operands ...NodeID) NodeID {
	return b.fold("||", operands)
}

func (b Builder) And(operands ...NodeID) NodeID {
	return b.fold("&&", operands)
}

func (b Builder) fold(op string, operands []NodeID) NodeID {
	if len(operands) == 0 {
		return NoNode
	}
	acc := operands[0]
	for _, o := range operands[1:] {
		acc = b.Binary(op, acc, o)
	}
	return acc
}

func (b Builder) Unary(op string, x NodeID) NodeID { return b.t.New(Unary, op, x) }

func (b Builder) Paren(x NodeID) NodeID { return b.t.New(Paren, "", x) }

func (b Builder) Assign(op string, l, r NodeID) NodeID { return b.t.New(Assign, op, l, r) }

func (b Builder) Call(name string, args ...NodeID) NodeID {
	return b.t.New(Call, "", append([]NodeID{b.Ident(name)}, args...)...)
}

func (b Builder) Cast(typ string, x NodeID) NodeID {
	id := b.t.New(Cast, "", x)
	b.t.Node(id).Type = typ
	return id
}

// CastVoid wraps x into an explicit (void) conversion.
func (b Builder) CastVoid(x NodeID) NodeID { return b.Cast("void", x) }

func (b Builder) ExprStmt(x NodeID) NodeID { return b.t.New(ExprStmt, "", x) }

func (b Builder) Compound(stmts ...NodeID) NodeID { return b.t.New(Compound, "", stmts...) }

// If builds a conditional; els may be NoNode.
func (b Builder) If(cond, then, els NodeID) NodeID {
	return b.t.New(If, "", cond, then, els)
}

func (b Builder) Switch(cond NodeID, stmts ...NodeID) NodeID {
	return b.t.New(Switch, "", cond, b.Compound(stmts...))
}

func (b Builder) Case(v NodeID) NodeID { return b.t.New(Case, "", v) }

// CaseRange builds a `case lo ... hi:` label.
func (b Builder) CaseRange(lo, hi NodeID) NodeID { return b.t.New(Case, "", lo, hi) }

func (b Builder) Default() NodeID { return b.t.New(Default, "") }

func (b Builder) Break() NodeID { return b.t.New(Break, "") }

func (b Builder) Continue() NodeID { return b.t.New(Continue, "") }

func (b Builder) Empty() NodeID { return b.t.New(Empty, "") }

// Return builds a return statement; x may be NoNode.
func (b Builder) Return(x NodeID) NodeID { return b.t.New(Return, "", x) }

func (b Builder) Goto(label string) NodeID { return b.t.New(Goto, label) }

func (b Builder) Label(name string) NodeID { return b.t.New(Label, name) }

func (b Builder) While(cond, body NodeID) NodeID { return b.t.New(While, "", cond, body) }

func (b Builder) DoWhile(body, cond NodeID) NodeID { return b.t.New(DoWhile, "", body, cond) }

// For builds a loop whose header is kept as written.
func (b Builder) For(header string, body NodeID) NodeID { return b.t.New(For, header, body) }

func (b Builder) Include(header string) NodeID { return b.t.New(Include, header) }

func (b Builder) VarDecl(text string) NodeID { return b.t.New(VarDecl, text) }

// Typedef builds `typedef typ name;`.
func (b Builder) Typedef(typ, name string) NodeID {
	id := b.t.New(Typedef, name)
	n := b.t.Node(id)
	n.Type = typ
	n.Decl = "typedef " + typ + " " + name + ";"
	n.Names = []string{name}
	return id
}

// Tag builds a struct, union or enum declaration. body is written as is
// and may be empty for a forward declaration.
func (b Builder) Tag(keyword, name, body string) NodeID {
	id := b.t.New(Tag, name)
	n := b.t.Node(id)
	n.Type = keyword
	n.Decl = keyword + " " + name
	if body != "" {
		n.Decl += " " + body
	}
	n.Decl += ";"
	return id
}

// Function builds a definition named name returning typ. params alternate
// type and name spellings.
func (b Builder) Function(typ, name string, params []string, body NodeID) NodeID {
	id := b.t.New(Function, name)
	n := b.t.Node(id)
	n.Type = typ
	n.Decl = typ + " " + name + "(" + joinParams(params) + ")"
	for i := 0; i+1 < len(params); i += 2 {
		p := b.t.New(Param, params[i+1])
		b.t.Node(p).Type = params[i]
		b.t.Append(id, p)
	}
	b.t.Append(id, body)
	return id
}

// Prototype builds a declaration from a verbatim header such as
// `extern int f(int x)`.
func (b Builder) Prototype(name, typ, storage, decl string) NodeID {
	id := b.t.New(Prototype, name)
	n := b.t.Node(id)
	n.Type = typ
	n.Storage = storage
	n.Decl = decl
	return id
}

func (b Builder) File(path string, items ...NodeID) NodeID { return b.t.New(File, path, items...) }

func (b Builder) Program(files ...NodeID) NodeID { return b.t.New(Program, "", files...) }

func joinParams(params []string) string {
	if len(params) < 2 {
		return "void"
	}
	out := ""
	for i := 0; i+1 < len(params); i += 2 {
		if i > 0 {
			out += ", "
		}
		out += params[i] + " " + params[i+1]
	}
	return out
}
