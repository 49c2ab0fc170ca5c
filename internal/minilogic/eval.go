package minilogic

import "slices"

// Evaluator evaluates expressions and statements.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// EvalExpr evaluates an expression in the given environment.
func (ev *Evaluator) EvalExpr(expr Expr, env *Env) Value {
	switch e := expr.(type) {
	case LiteralExpr:
		return e.Val

	case VarExpr:
		if val := env.Get(e.Name); val != nil {
			return val
		}
		return SymbolicValue{Name: e.Name}

	case BinaryExpr:
		return ev.evalBinary(e, env)

	case UnaryExpr:
		operand := ev.EvalExpr(e.Operand, env)
		i, ok := operand.(IntValue)
		if !ok {
			return SymbolicValue{Name: e.Op.String() + operand.String()}
		}
		if e.Op == OpNot {
			return boolValue(i.Val == 0)
		}
		return IntValue{Val: -i.Val}

	case CallExpr:
		return SymbolicValue{Name: e.String()}
	}
	return SymbolicValue{Name: expr.String()}
}

func (ev *Evaluator) evalBinary(e BinaryExpr, env *Env) Value {
	left := ev.EvalExpr(e.Left, env)
	l, lok := left.(IntValue)

	// short circuit before looking at the right operand
	switch e.Op {
	case OpAnd:
		if lok && l.Val == 0 {
			return boolValue(false)
		}
	case OpOr:
		if lok && l.Val != 0 {
			return boolValue(true)
		}
	}

	right := ev.EvalExpr(e.Right, env)
	r, rok := right.(IntValue)
	if !lok || !rok {
		return symbolicBinary(e.Op, left, right)
	}

	switch e.Op {
	case OpAdd:
		return IntValue{Val: l.Val + r.Val}
	case OpSub:
		return IntValue{Val: l.Val - r.Val}
	case OpMul:
		return IntValue{Val: l.Val * r.Val}
	case OpDiv:
		if r.Val != 0 {
			return IntValue{Val: l.Val / r.Val}
		}
	case OpMod:
		if r.Val != 0 {
			return IntValue{Val: l.Val % r.Val}
		}
	case OpEq:
		return boolValue(l.Val == r.Val)
	case OpNeq:
		return boolValue(l.Val != r.Val)
	case OpLt:
		return boolValue(l.Val < r.Val)
	case OpLte:
		return boolValue(l.Val <= r.Val)
	case OpGt:
		return boolValue(l.Val > r.Val)
	case OpGte:
		return boolValue(l.Val >= r.Val)
	case OpAnd, OpOr:
		return boolValue(r.Val != 0)
	}
	return symbolicBinary(e.Op, left, right)
}

// symbolicBinary names an undetermined result after its operands so that two
// different computations never compare equal.
func symbolicBinary(op BinaryOp, l, r Value) Value {
	return SymbolicValue{Name: "(" + l.String() + " " + op.String() + " " + r.String() + ")"}
}

// EvalStmt evaluates a statement in the given environment.
func (ev *Evaluator) EvalStmt(stmt Stmt, env *Env) Result {
	return ev.evalStmt(stmt, env, nil)
}

func (ev *Evaluator) evalStmt(stmt Stmt, env *Env, calls []CallRecord) Result {
	switch s := stmt.(type) {
	case AssignStmt:
		val := ev.EvalExpr(s.Expr, env)
		out := env.Clone()
		out.Set(s.Var, val)
		return continueResult(out, calls)

	case BlockStmt:
		return ev.evalSeq(s.Stmts, env, calls)

	case IfStmt:
		return ev.evalIf(s, env, calls)

	case SwitchStmt:
		return ev.evalSwitch(s, env, calls)

	case ReturnStmt:
		r := Result{Kind: ResultReturn, Calls: calls}
		if s.Value != nil {
			r.Value = ev.EvalExpr(s.Value, env)
		}
		return r

	case BreakStmt:
		return Result{Kind: ResultBreak, Env: env, Calls: calls}

	case ContinueStmt:
		return Result{Kind: ResultContinueLoop, Env: env, Calls: calls}

	case CallStmt:
		args := make([]Value, len(s.Call.Args))
		for i, arg := range s.Call.Args {
			args[i] = ev.EvalExpr(arg, env)
		}
		next := append(slices.Clip(calls), CallRecord{Func: s.Call.Func, Args: args})
		return continueResult(env, next)

	case NoopStmt, LabelStmt:
		return continueResult(env, calls)
	}
	return unknownResult()
}

func (ev *Evaluator) evalSeq(stmts []Stmt, env *Env, calls []CallRecord) Result {
	for _, st := range stmts {
		r := ev.evalStmt(st, env, calls)
		if r.Kind != ResultContinue {
			return r
		}
		env, calls = r.Env, r.Calls
	}
	return continueResult(env, calls)
}

func (ev *Evaluator) evalIf(s IfStmt, env *Env, calls []CallRecord) Result {
	cond := ev.EvalExpr(s.Cond, env)
	c, ok := cond.(IntValue)
	if !ok {
		return ev.evalSymbolicIf(s, env, calls)
	}
	if c.Val != 0 {
		return ev.evalStmt(s.Then, env, calls)
	}
	if s.Else != nil {
		return ev.evalStmt(s.Else, env, calls)
	}
	return continueResult(env, calls)
}

// evalSymbolicIf evaluates both branches and only keeps the result when they
// agree.
func (ev *Evaluator) evalSymbolicIf(s IfStmt, env *Env, calls []CallRecord) Result {
	thenResult := ev.evalStmt(s.Then, env, calls)
	elseResult := continueResult(env, calls)
	if s.Else != nil {
		elseResult = ev.evalStmt(s.Else, env, calls)
	}
	if thenResult.Equal(elseResult) {
		return thenResult
	}
	return unknownResult()
}

func (ev *Evaluator) evalSwitch(s SwitchStmt, env *Env, calls []CallRecord) Result {
	tag, ok := ev.EvalExpr(s.Tag, env).(IntValue)
	if !ok {
		return unknownResult()
	}

	start, def := -1, -1
	for i, st := range s.Body {
		label, ok := st.(LabelStmt)
		if !ok {
			continue
		}
		if label.Default {
			def = i
		} else if start < 0 && label.matches(tag.Val) {
			start = i
		}
	}
	if start < 0 {
		start = def
	}
	if start < 0 {
		return continueResult(env, calls)
	}

	r := ev.evalSeq(s.Body[start:], env, calls)
	if r.Kind == ResultBreak {
		return continueResult(r.Env, r.Calls)
	}
	return r
}
