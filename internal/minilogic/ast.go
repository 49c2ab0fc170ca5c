package minilogic

import (
	"fmt"
	"strings"
)

// Expr represents an expression.
type Expr interface {
	isExpr()
	String() string
}

// LiteralExpr is an integer constant.
type LiteralExpr struct {
	Val Value
}

func (LiteralExpr) isExpr() {}
func (e LiteralExpr) String() string {
	return e.Val.String()
}

// VarExpr is a variable reference.
type VarExpr struct {
	Name string
}

func (VarExpr) isExpr() {}
func (e VarExpr) String() string {
	return e.Name
}

type BinaryOp int

const (
	_ BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
)

var binaryOps = map[string]BinaryOp{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpMod,
	"==": OpEq, "!=": OpNeq, "<": OpLt, "<=": OpLte, ">": OpGt, ">=": OpGte,
	"&&": OpAnd, "||": OpOr,
}

// ParseBinaryOp maps a C operator spelling to a BinaryOp.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	op, ok := binaryOps[s]
	return op, ok
}

func (op BinaryOp) String() string {
	for k, v := range binaryOps {
		if v == op {
			return k
		}
	}
	return "?"
}

type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (BinaryExpr) isExpr() {}
func (e BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	if op == OpNot {
		return "!"
	}
	return "-"
}

type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
}

func (UnaryExpr) isExpr() {}
func (e UnaryExpr) String() string {
	return "(" + e.Op.String() + e.Operand.String() + ")"
}

// CallExpr is an opaque call. Its result is symbolic.
type CallExpr struct {
	Func string
	Args []Expr
}

func (CallExpr) isExpr() {}
func (e CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Func + "(" + strings.Join(args, ", ") + ")"
}

// Stmt represents a statement.
type Stmt interface {
	isStmt()
	String() string
}

// AssignStmt is `x = e`.
type AssignStmt struct {
	Var  string
	Expr Expr
}

func (AssignStmt) isStmt() {}
func (s AssignStmt) String() string {
	return s.Var + " = " + s.Expr.String()
}

type IfStmt struct {
	Cond Expr
	Then Stmt
	Else Stmt // nil without else
}

func (IfStmt) isStmt() {}
func (s IfStmt) String() string {
	out := "if " + s.Cond.String() + " { " + s.Then.String() + " }"
	if s.Else != nil {
		out += " else { " + s.Else.String() + " }"
	}
	return out
}

// SwitchStmt dispatches on Tag to the first matching label in Body and runs
// every following statement until a break.
type SwitchStmt struct {
	Tag  Expr
	Body []Stmt
}

func (SwitchStmt) isStmt() {}
func (s SwitchStmt) String() string {
	return "switch " + s.Tag.String() + " " + Block(s.Body...).String()
}

// LabelStmt is a case or default label inside a switch body. A single value
// case has Lo == Hi.
type LabelStmt struct {
	Lo, Hi  int64
	Default bool
}

func (LabelStmt) isStmt() {}
func (s LabelStmt) String() string {
	switch {
	case s.Default:
		return "default:"
	case s.Lo == s.Hi:
		return fmt.Sprintf("case %d:", s.Lo)
	}
	return fmt.Sprintf("case %d ... %d:", s.Lo, s.Hi)
}

func (s LabelStmt) matches(v int64) bool {
	return !s.Default && s.Lo <= v && v <= s.Hi
}

type ReturnStmt struct {
	Value Expr // nil for a bare return
}

func (ReturnStmt) isStmt() {}
func (s ReturnStmt) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

type BreakStmt struct{}

func (BreakStmt) isStmt()        {}
func (BreakStmt) String() string { return "break" }

type ContinueStmt struct{}

func (ContinueStmt) isStmt()        {}
func (ContinueStmt) String() string { return "continue" }

// CallStmt is a call evaluated for its effect.
type CallStmt struct {
	Call CallExpr
}

func (CallStmt) isStmt() {}
func (s CallStmt) String() string {
	return s.Call.String()
}

type BlockStmt struct {
	Stmts []Stmt
}

func (BlockStmt) isStmt() {}
func (s BlockStmt) String() string {
	parts := make([]string, len(s.Stmts))
	for i, st := range s.Stmts {
		parts[i] = st.String()
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

type NoopStmt struct{}

func (NoopStmt) isStmt()        {}
func (NoopStmt) String() string { return "noop" }

// Helpers to construct nodes.

func IntLit(v int64) Expr { return LiteralExpr{Val: IntValue{Val: v}} }

func Var(name string) Expr { return VarExpr{Name: name} }

func Binary(op BinaryOp, l, r Expr) Expr { return BinaryExpr{Op: op, Left: l, Right: r} }

func Unary(op UnaryOp, x Expr) Expr { return UnaryExpr{Op: op, Operand: x} }

func Assign(v string, e Expr) Stmt { return AssignStmt{Var: v, Expr: e} }

func If(cond Expr, then, els Stmt) Stmt { return IfStmt{Cond: cond, Then: then, Else: els} }

func Switch(tag Expr, body ...Stmt) Stmt { return SwitchStmt{Tag: tag, Body: body} }

func Case(v int64) Stmt { return LabelStmt{Lo: v, Hi: v} }

func CaseRange(lo, hi int64) Stmt { return LabelStmt{Lo: lo, Hi: hi} }

func Default() Stmt { return LabelStmt{Default: true} }

func Return(e Expr) Stmt { return ReturnStmt{Value: e} }

func Break() Stmt { return BreakStmt{} }

func Call(fn string, args ...Expr) Stmt { return CallStmt{Call: CallExpr{Func: fn, Args: args}} }

func Block(stmts ...Stmt) Stmt { return BlockStmt{Stmts: stmts} }
