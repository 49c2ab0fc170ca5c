package minilogic

import "fmt"

// VerificationResult represents the result of equivalence verification.
type VerificationResult int

const (
	_ VerificationResult = iota
	Equivalent
	NotEquivalent
	Unknown
)

func (r VerificationResult) String() string {
	switch r {
	case Equivalent:
		return "Equivalent"
	case NotEquivalent:
		return "NotEquivalent"
	case Unknown:
		return "Unknown"
	default:
		return "?"
	}
}

// ReasonCode explains a verification result.
type ReasonCode int

const (
	ReasonNone ReasonCode = iota
	ReasonSameResult
	ReasonDifferentKind
	ReasonDifferentEnv
	ReasonDifferentValue
	ReasonDifferentCalls
	ReasonSymbolicCondition
	ReasonInvalidBreakContinue
)

func (r ReasonCode) String() string {
	switch r {
	case ReasonSameResult:
		return "same result for all environments"
	case ReasonDifferentKind:
		return "different result kinds"
	case ReasonDifferentEnv:
		return "different environments"
	case ReasonDifferentValue:
		return "different return values"
	case ReasonDifferentCalls:
		return "different call sequences"
	case ReasonSymbolicCondition:
		return "symbolic condition - cannot determine branch"
	case ReasonInvalidBreakContinue:
		return "break/continue outside loop context"
	default:
		return "none"
	}
}

// VerificationReport provides detailed information about verification.
type VerificationReport struct {
	Result VerificationResult
	Reason ReasonCode
	Detail string
}

// Verifier checks the equivalence of two statements.
type Verifier struct {
	evaluator *Evaluator
	// InLoopContext allows break and continue to escape the compared
	// statements, as they may inside a loop body.
	InLoopContext bool
}

func NewVerifier() *Verifier {
	return &Verifier{evaluator: NewEvaluator()}
}

// CheckEquivalenceWithEnv evaluates both statements from env and compares
// the outcomes.
func (v *Verifier) CheckEquivalenceWithEnv(s1, s2 Stmt, env *Env) VerificationReport {
	r1 := v.evaluator.EvalStmt(s1, env)
	r2 := v.evaluator.EvalStmt(s2, env)

	if r1.Kind == ResultUnknown || r2.Kind == ResultUnknown {
		return VerificationReport{
			Result: Unknown,
			Reason: ReasonSymbolicCondition,
			Detail: "evaluation produced unknown result",
		}
	}
	if !v.InLoopContext && (escapes(r1) || escapes(r2)) {
		return VerificationReport{Result: Unknown, Reason: ReasonInvalidBreakContinue}
	}

	if r1.Kind != r2.Kind {
		return VerificationReport{
			Result: NotEquivalent,
			Reason: ReasonDifferentKind,
			Detail: "result kinds differ: " + r1.Kind.String() + " vs " + r2.Kind.String(),
		}
	}

	switch r1.Kind {
	case ResultContinue, ResultBreak, ResultContinueLoop:
		if !r1.Env.Equal(r2.Env) {
			return VerificationReport{
				Result: NotEquivalent,
				Reason: ReasonDifferentEnv,
				Detail: "environments differ: " + r1.Env.String() + " vs " + r2.Env.String(),
			}
		}
	case ResultReturn:
		if !r1.Equal(Result{Kind: ResultReturn, Value: r2.Value, Calls: r1.Calls}) {
			return VerificationReport{
				Result: NotEquivalent,
				Reason: ReasonDifferentValue,
				Detail: "return values differ: " + r1.String() + " vs " + r2.String(),
			}
		}
	}

	if !callSequencesEqual(r1.Calls, r2.Calls) {
		return VerificationReport{
			Result: NotEquivalent,
			Reason: ReasonDifferentCalls,
			Detail: fmt.Sprintf("call sequences differ: %v vs %v", r1.Calls, r2.Calls),
		}
	}

	return VerificationReport{
		Result: Equivalent,
		Reason: ReasonSameResult,
		Detail: "statements produce identical results",
	}
}

func escapes(r Result) bool {
	return r.Kind == ResultBreak || r.Kind == ResultContinueLoop
}

// CheckOverValues binds variable to each of values in turn and requires the
// two statements to agree on every one of them. The first disagreement wins;
// otherwise any undecided value makes the whole report Unknown.
func (v *Verifier) CheckOverValues(s1, s2 Stmt, variable string, values []int64) VerificationReport {
	result := VerificationReport{Result: Equivalent, Reason: ReasonSameResult}
	for _, val := range values {
		env := NewEnv()
		env.Set(variable, IntValue{Val: val})
		report := v.CheckEquivalenceWithEnv(s1, s2, env)
		switch report.Result {
		case NotEquivalent:
			report.Detail = fmt.Sprintf("%s = %d: %s", variable, val, report.Detail)
			return report
		case Unknown:
			result = report
		}
	}
	return result
}
