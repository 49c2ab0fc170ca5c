package minilogic

import (
	"strconv"
	"strings"

	"github.com/gnolang/misra/internal/cast"
)

// FromCast converts the statement at id into the evaluator's language.
// Expressions whose printed form is a key of aliases become the variable it
// names, which lets a non-identifier switch tag be bound like a variable.
// The second result is false when the statement leaves the supported subset.
func FromCast(t *cast.Tree, id cast.NodeID, aliases map[string]string) (Stmt, bool) {
	c := converter{t: t, aliases: aliases}
	s := c.stmt(id)
	return s, !c.failed
}

// ExprFromCast converts a single expression.
func ExprFromCast(t *cast.Tree, id cast.NodeID, aliases map[string]string) (Expr, bool) {
	c := converter{t: t, aliases: aliases}
	e := c.expr(id)
	return e, !c.failed
}

type converter struct {
	t       *cast.Tree
	aliases map[string]string
	failed  bool
}

func (c *converter) fail() Stmt {
	c.failed = true
	return NoopStmt{}
}

func (c *converter) failExpr() Expr {
	c.failed = true
	return IntLit(0)
}

func (c *converter) stmts(ids []cast.NodeID) []Stmt {
	out := make([]Stmt, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.stmt(id))
	}
	return out
}

func (c *converter) stmt(id cast.NodeID) Stmt {
	t := c.t
	kids := t.Children(id)
	switch t.Kind(id) {
	case cast.Compound:
		return BlockStmt{Stmts: c.stmts(kids)}
	case cast.Empty:
		return NoopStmt{}
	case cast.ExprStmt:
		if len(kids) != 1 {
			return c.fail()
		}
		return c.exprStmt(kids[0])
	case cast.If:
		if len(kids) < 2 {
			return c.fail()
		}
		s := IfStmt{Cond: c.expr(kids[0]), Then: c.stmt(kids[1])}
		if len(kids) > 2 {
			s.Else = c.stmt(kids[2])
		}
		return s
	case cast.Switch:
		body := t.Body(id)
		if !body.IsValid() {
			return c.fail()
		}
		return SwitchStmt{Tag: c.expr(t.Cond(id)), Body: c.stmts(t.Children(body))}
	case cast.Case:
		lo, ok := c.constant(kids[0])
		if !ok {
			return c.fail()
		}
		hi := lo
		if len(kids) > 1 {
			if hi, ok = c.constant(kids[1]); !ok {
				return c.fail()
			}
		}
		return CaseRange(lo, hi)
	case cast.Default:
		return Default()
	case cast.Break:
		return BreakStmt{}
	case cast.Continue:
		return ContinueStmt{}
	case cast.Return:
		if len(kids) == 0 {
			return ReturnStmt{}
		}
		return ReturnStmt{Value: c.expr(kids[0])}
	}
	return c.fail()
}

// exprStmt accepts the expression forms that are statements in their own
// right: calls, assignments and increments.
func (c *converter) exprStmt(id cast.NodeID) Stmt {
	t := c.t
	if _, ok := c.aliases[cast.PrintExpr(t, id)]; ok {
		return NoopStmt{}
	}
	kids := t.Children(id)
	switch t.Kind(id) {
	case cast.Paren:
		return c.exprStmt(kids[0])
	case cast.Cast:
		if cast.IsVoid(t.Node(id).Type) {
			return c.exprStmt(kids[0])
		}
	case cast.Call:
		name := t.CallName(id)
		if name == "" {
			return c.fail()
		}
		call := CallExpr{Func: name}
		for _, a := range t.Args(id) {
			call.Args = append(call.Args, c.expr(a))
		}
		if cast.NoReturn(name) {
			return BlockStmt{Stmts: []Stmt{CallStmt{Call: call}, ReturnStmt{}}}
		}
		return CallStmt{Call: call}
	case cast.Assign:
		name, ok := c.lvalue(kids[0])
		if !ok {
			return c.fail()
		}
		rhs := c.expr(kids[1])
		op := t.Text(id)
		if op == "=" {
			return Assign(name, rhs)
		}
		bop, ok := ParseBinaryOp(strings.TrimSuffix(op, "="))
		if !ok {
			return c.fail()
		}
		return Assign(name, Binary(bop, Var(name), rhs))
	case cast.Unary, cast.Postfix:
		op := t.Text(id)
		if op != "++" && op != "--" {
			break
		}
		name, ok := c.lvalue(kids[0])
		if !ok {
			return c.fail()
		}
		bop := OpAdd
		if op == "--" {
			bop = OpSub
		}
		return Assign(name, Binary(bop, Var(name), IntLit(1)))
	}
	// An expression evaluated only for its value cannot change state.
	c.expr(id)
	return NoopStmt{}
}

func (c *converter) lvalue(id cast.NodeID) (string, bool) {
	switch c.t.Kind(id) {
	case cast.Ident:
		return c.t.Text(id), true
	case cast.Paren:
		return c.lvalue(c.t.ChildAt(id, 0))
	}
	return "", false
}

func (c *converter) expr(id cast.NodeID) Expr {
	t := c.t
	if name, ok := c.aliases[cast.PrintExpr(t, id)]; ok {
		return Var(name)
	}
	kids := t.Children(id)
	switch t.Kind(id) {
	case cast.Ident:
		return Var(t.Text(id))
	case cast.IntLit:
		v, ok := parseInt(t.Text(id))
		if !ok {
			return c.failExpr()
		}
		return IntLit(v)
	case cast.Literal:
		switch t.Text(id) {
		case "true":
			return IntLit(1)
		case "false":
			return IntLit(0)
		}
		if v, ok := parseChar(t.Text(id)); ok {
			return IntLit(v)
		}
	case cast.Paren:
		return c.expr(kids[0])
	case cast.Cast:
		return c.expr(kids[0])
	case cast.Binary:
		op, ok := ParseBinaryOp(t.Text(id))
		if !ok {
			return c.failExpr()
		}
		return Binary(op, c.expr(kids[0]), c.expr(kids[1]))
	case cast.Unary:
		switch t.Text(id) {
		case "!":
			return Unary(OpNot, c.expr(kids[0]))
		case "-":
			return Unary(OpNeg, c.expr(kids[0]))
		case "+":
			return c.expr(kids[0])
		}
	}
	return c.failExpr()
}

func (c *converter) constant(id cast.NodeID) (int64, bool) {
	e := c.expr(id)
	if c.failed {
		return 0, false
	}
	v, ok := NewEvaluator().EvalExpr(e, NewEnv()).(IntValue)
	return v.Val, ok
}

func parseInt(text string) (int64, bool) {
	text = strings.TrimRight(text, "uUlL")
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseChar(text string) (int64, bool) {
	if len(text) < 3 || text[0] != '\'' || text[len(text)-1] != '\'' {
		return 0, false
	}
	r, _, tail, err := strconv.UnquoteChar(text[1:len(text)-1], '\'')
	if err != nil || tail != "" {
		return 0, false
	}
	return int64(r), true
}
