package minilogic

import (
	"fmt"
	"slices"
)

// ResultKind represents the kind of execution result.
type ResultKind int

const (
	// ResultContinue indicates normal execution continues.
	ResultContinue ResultKind = iota
	// ResultReturn indicates a return statement was executed.
	ResultReturn
	// ResultBreak indicates a break escaped every enclosing switch.
	ResultBreak
	// ResultContinueLoop indicates a continue statement was executed.
	ResultContinueLoop
	// ResultUnknown indicates the result cannot be determined.
	ResultUnknown
)

func (k ResultKind) String() string {
	switch k {
	case ResultContinue:
		return "Continue"
	case ResultReturn:
		return "Return"
	case ResultBreak:
		return "Break"
	case ResultContinueLoop:
		return "ContinueLoop"
	case ResultUnknown:
		return "Unknown"
	default:
		return "?"
	}
}

// Result is the outcome of evaluating a statement.
type Result struct {
	Kind  ResultKind
	Env   *Env         // valid for Continue, Break and ContinueLoop
	Value Value        // valid for Return, nil for a bare return
	Calls []CallRecord // calls executed so far, in order
}

// CallRecord is one executed call.
type CallRecord struct {
	Func string
	Args []Value
}

func (c CallRecord) String() string {
	return fmt.Sprintf("%s%v", c.Func, c.Args)
}

func continueResult(env *Env, calls []CallRecord) Result {
	return Result{Kind: ResultContinue, Env: env, Calls: calls}
}

func unknownResult() Result {
	return Result{Kind: ResultUnknown}
}

func (r Result) String() string {
	switch r.Kind {
	case ResultContinue:
		return fmt.Sprintf("Continue(%s)", r.Env)
	case ResultReturn:
		if r.Value == nil {
			return "Return()"
		}
		return fmt.Sprintf("Return(%s)", r.Value)
	}
	return r.Kind.String()
}

// Equal checks if two results are indistinguishable.
func (r Result) Equal(other Result) bool {
	if r.Kind != other.Kind {
		return false
	}
	switch r.Kind {
	case ResultContinue, ResultBreak, ResultContinueLoop:
		if !r.Env.Equal(other.Env) {
			return false
		}
	case ResultReturn:
		if (r.Value == nil) != (other.Value == nil) {
			return false
		}
		if r.Value != nil && !r.Value.Equal(other.Value) {
			return false
		}
	}
	return callSequencesEqual(r.Calls, other.Calls)
}

func callSequencesEqual(a, b []CallRecord) bool {
	return slices.EqualFunc(a, b, func(x, y CallRecord) bool {
		return x.Func == y.Func && slices.EqualFunc(x.Args, y.Args, func(p, q Value) bool { return p.Equal(q) })
	})
}
