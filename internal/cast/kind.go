package cast

// Kind identifies the syntactic category of a node.
type Kind uint8

const (
	Invalid Kind = iota

	// top level
	Program
	File
	Include
	Function
	Param
	Prototype
	VarDecl
	Raw
	Typedef
	Tag

	// statements
	Compound
	ExprStmt
	If
	Switch
	Case
	Default
	Break
	Continue
	Return
	Goto
	Label
	While
	DoWhile
	For
	Empty

	// expressions
	Ident
	IntLit
	Literal
	Binary
	Unary
	Postfix
	Call
	Paren
	Cast
	Assign
)

var kindNames = [...]string{
	Invalid:   "invalid",
	Program:   "program",
	File:      "file",
	Include:   "include",
	Function:  "function",
	Param:     "param",
	Prototype: "prototype",
	VarDecl:   "vardecl",
	Raw:       "raw",
	Typedef:   "typedef",
	Tag:       "tag",
	Compound:  "compound",
	ExprStmt:  "exprstmt",
	If:        "if",
	Switch:    "switch",
	Case:      "case",
	Default:   "default",
	Break:     "break",
	Continue:  "continue",
	Return:    "return",
	Goto:      "goto",
	Label:     "label",
	While:     "while",
	DoWhile:   "dowhile",
	For:       "for",
	Empty:     "empty",
	Ident:     "ident",
	IntLit:    "intlit",
	Literal:   "literal",
	Binary:    "binary",
	Unary:     "unary",
	Postfix:   "postfix",
	Call:      "call",
	Paren:     "paren",
	Cast:      "cast",
	Assign:    "assign",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// IsTypeDecl reports whether k declares a type name: a typedef or a
// struct, union or enum tag.
func (k Kind) IsTypeDecl() bool { return k == Typedef || k == Tag }

// IsLabel reports whether k is a switch label.
func (k Kind) IsLabel() bool { return k == Case || k == Default }

// IsLoop reports whether k is an iteration statement.
func (k Kind) IsLoop() bool { return k == While || k == DoWhile || k == For }

// IsBreakable reports whether a break statement can bind to k.
func (k Kind) IsBreakable() bool { return k == Switch || k.IsLoop() }

// IsExpr reports whether k is an expression kind.
func (k Kind) IsExpr() bool { return k >= Ident && k <= Assign }

// IsStmt reports whether k is a statement kind.
func (k Kind) IsStmt() bool {
	return (k >= Compound && k <= Empty) || k == VarDecl || k == Raw
}
