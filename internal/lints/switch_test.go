package lints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/misra/internal/cast"
)

func wrap(body string) string {
	return "void f(int x) {\n" + body + "}\n"
}

func TestUnconditionalBreak(t *testing.T) {
	t.Parallel()

	code := wrap(`    switch (x) {
    case 1:
        a();
    case 2:
        b();
        break;
    case 3:
        return;
    default:
        c();
    }
`)
	f := newFixture(t, nil, src("main.c", code))
	assert.Equal(t, []string{
		"Missing unconditional break after statement 'a();'",
		"Missing unconditional break after statement 'return;'",
		"Missing unconditional break after statement 'c();'",
	}, f.check(NewUnconditionalBreak))

	sum := f.fix(t, NewUnconditionalBreak)
	assert.Empty(t, sum.Errors)
	require.Len(t, sum.Warnings, 1)
	assert.Contains(t, sum.Warnings[0].Message, "'a();'")

	want := `switch (x) {
case 1:
    a();
    b();
    break;
case 2:
    b();
    break;
case 3:
    return;
    break;
default:
    c();
    break;
}
`
	assert.Equal(t, want, cast.Print(f.tree, f.first(cast.Switch)))
}

func TestUnconditionalBreakConsecutiveLabels(t *testing.T) {
	t.Parallel()

	code := wrap(`    switch (x) {
    case 1:
    case 2:
        a();
        break;
    default:
        break;
    }
`)
	f := newFixture(t, nil, src("main.c", code))
	assert.Empty(t, f.check(NewUnconditionalBreak))
}

func TestSwitchDefault(t *testing.T) {
	t.Parallel()

	code := wrap(`    switch (x) {
    case 1:
        a();
        break;
    }
`)
	f := newFixture(t, nil, src("main.c", code))
	assert.Equal(t, []string{"Switch statement is missing a default case."}, f.check(NewSwitchDefault))

	sum := f.fix(t, NewSwitchDefault)
	assert.Empty(t, sum.Errors)
	want := `switch (x) {
case 1:
    a();
    break;
default:
    ;
    break;
}
`
	assert.Equal(t, want, cast.Print(f.tree, f.first(cast.Switch)))
}

// labelOrder lists the labels of the first switch, "default" for the
// default label and the case value otherwise.
func labelOrder(f *fixture) []string {
	var out []string
	for _, l := range switchLabels(f.tree, f.first(cast.Switch)) {
		if f.tree.Kind(l) == cast.Default {
			out = append(out, "default")
			continue
		}
		out = append(out, cast.PrintExpr(f.tree, f.tree.ChildAt(l, 0)))
	}
	return out
}

func TestDefaultFirstOrLast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		want   []string
		errors int
	}{
		{
			name: "default clause moves to the end",
			body: `    switch (x) {
    case 1: a(); break;
    default: b(); break;
    case 2: c(); break;
    }
`,
			want: []string{"1", "2", "default"},
		},
		{
			name: "default label moves behind the labels that follow it",
			body: `    switch (x) {
    case 1: a(); break;
    default:
    case 2: c(); break;
    }
`,
			want: []string{"1", "2", "default"},
		},
		{
			name: "shared clause moves with its labels",
			body: `    switch (x) {
    case 1: a(); break;
    default:
    case 2: c(); break;
    case 3: d(); break;
    }
`,
			want: []string{"1", "3", "2", "default"},
		},
		{
			name: "falling into default is left alone",
			body: `    switch (x) {
    case 1: a();
    default: b(); break;
    case 2: c(); break;
    }
`,
			want:   []string{"1", "default", "2"},
			errors: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, nil, src("main.c", wrap(tt.body)))
			require.Len(t, f.check(NewDefaultFirstOrLast), 1)

			sum := f.fix(t, NewDefaultFirstOrLast)
			assert.Len(t, sum.Errors, tt.errors)
			assert.Equal(t, tt.want, labelOrder(f))
		})
	}
}

func TestDefaultFirstOrLastKeepsClauseStatements(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, src("main.c", wrap(`    switch (x) {
    case 1: a(); break;
    default: b(); break;
    case 2: c(); break;
    }
`)))
	f.fix(t, NewDefaultFirstOrLast)
	want := `switch (x) {
case 1:
    a();
    break;
case 2:
    c();
    break;
default:
    b();
    break;
}
`
	assert.Equal(t, want, cast.Print(f.tree, f.first(cast.Switch)))
}

func TestSwitchMinClauses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		want   string
		errors []string
	}{
		{
			name: "lone default is flattened",
			body: `    switch (x) {
    default:
        a();
        break;
    }
`,
			want: wrap("    a();\n"),
		},
		{
			name: "single case becomes an if",
			body: `    switch (x) {
    case 1:
        a();
        break;
    }
`,
			want: wrap("    if (x == 1) {\n        a();\n    }\n"),
		},
		{
			name: "empty switch disappears",
			body: "    switch (x) {\n    }\n    a();\n",
			want: wrap("    a();\n"),
		},
		{
			name: "conditional break is refused",
			body: `    switch (x) {
    case 1:
        if (x) {
            break;
        }
        a();
        break;
    }
`,
			errors: []string{"switch statement must have at least two clauses and cannot be transformed due to a conditional break statement."},
		},
		{
			name: "side effects evaluated twice are refused",
			body: `    switch (next()) {
    case 1:
    case 2:
        a();
        break;
    }
`,
			errors: []string{minClausesMsg + " The controlling expression has side effects and would be evaluated more than once."},
		},
		{
			name: "case label inside a block is refused",
			body: `    switch (x) {
    default: {
        a();
    case 2:
        b();
    }
        break;
    }
`,
			errors: []string{minClausesMsg + " Clauses declaring variables or labels, or holding nested case labels, cannot be transformed."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, nil, src("main.c", wrap(tt.body)))
			assert.Equal(t, []string{minClausesMsg}, f.check(NewSwitchMinClauses))

			sum := f.fix(t, NewSwitchMinClauses)
			if tt.errors != nil {
				assert.Equal(t, tt.errors, messages(sum.Errors))
				assert.True(t, f.first(cast.Switch).IsValid())
				return
			}
			assert.Empty(t, sum.Errors)
			assert.Equal(t, tt.want, f.file(0))
		})
	}
}

func TestSwitchMinClausesCounting(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, src("main.c", wrap(`    switch (x) {
    case 1:
    case 2:
        a();
        break;
    default:
        break;
    }
`)))
	assert.Empty(t, f.check(NewSwitchMinClauses))
}

func TestNonBooleanSwitch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		code  string
		match bool
	}{
		{"comparison", wrap("    switch (x > 0) { case 1: a(); break; default: b(); break; }\n"), true},
		{"negation", wrap("    switch (!x) { case 1: a(); break; default: b(); break; }\n"), true},
		{"bool parameter", "void f(bool x) {\n    switch (x) { case 1: a(); break; default: b(); break; }\n}\n", true},
		{"bool local", wrap("    _Bool ok = x;\n    switch (ok) { case 1: a(); break; default: b(); break; }\n"), true},
		{"integer", wrap("    switch (x) { case 1: a(); break; default: b(); break; }\n"), false},
		{"arithmetic", wrap("    switch (x + 1) { case 1: a(); break; default: b(); break; }\n"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, nil, src("main.c", tt.code))
			assert.Equal(t, tt.match, len(f.check(NewNonBooleanSwitch)) == 1)
		})
	}
}

func TestNonBooleanSwitchRewrite(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, src("main.c", wrap(`    switch (x > 0) {
    case 1:
        a();
        break;
    default:
        b();
        break;
    }
`)))
	assert.Equal(t, []string{"Switch statement controlling expression 'x > 0' must not have essentially boolean type."},
		f.check(NewNonBooleanSwitch))

	sum := f.fix(t, NewNonBooleanSwitch)
	assert.Empty(t, sum.Errors)
	assert.Equal(t, wrap("    if ((x > 0) == 1) {\n        a();\n    } else {\n        b();\n    }\n"), f.file(0))
}

func TestNonBooleanSwitchConditionalBreak(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, src("main.c", wrap(`    switch (x == 2) {
    case 1:
        if (x) {
            break;
        }
        a();
        break;
    default:
        break;
    }
`)))
	sum := f.fix(t, NewNonBooleanSwitch)
	assert.Equal(t, []string{
		"The switch statement's controlling expression x == 2 must not be of a boolean type and cannot be transformed due to a conditional break statement.",
	}, messages(sum.Errors))
	assert.Equal(t, 1, sum.Passes)
}

func TestNestedSwitchLabel(t *testing.T) {
	t.Parallel()

	const msg = "A switch label can only be used if its enclosing compound statement is the switch statement itself."
	tests := []struct {
		name   string
		body   string
		errors []string
	}{
		{
			name: "label inside a block",
			body: `    switch (x) {
    case 1:
        if (x) {
    case 2:
            a();
        }
        break;
    default:
        break;
    }
`,
			errors: []string{msg},
		},
		{
			name: "labels of an inner switch",
			body: `    switch (x) {
    case 1: {
        switch (x) {
        case 2:
            a();
            break;
        default:
            break;
        }
        break;
    }
    default:
        break;
    }
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, nil, src("main.c", wrap(tt.body)))
			got := f.check(NewNestedSwitchLabel)
			if len(tt.errors) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.errors, got)

			before := f.file(0)
			sum := f.fix(t, NewNestedSwitchLabel)
			assert.Equal(t, tt.errors, messages(sum.Errors))
			assert.Equal(t, before, f.file(0))
		})
	}
}
