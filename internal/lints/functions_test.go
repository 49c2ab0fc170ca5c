package lints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/misra/internal/cast"
	"github.com/gnolang/misra/internal/config"
)

const missingReturn = `int f(int x) {
    if (x) {
        return 1;
    }
}
`

func TestNonVoidReturn(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixConfig(t, `{"defaultValues": {"int": "0"}}`), src("main.c", missingReturn))
	assert.Equal(t, []string{"Function 'f' reaches the end without a return statement."}, f.check(NewNonVoidReturn))

	sum := f.fix(t, NewNonVoidReturn)
	assert.Empty(t, sum.Errors)
	assert.Equal(t, []string{"Function 'f' now returns '0' when it reaches the end."}, messages(sum.Warnings))
	assert.Equal(t, `int f(int x) {
    if (x) {
        return 1;
    }
    return 0;
}
`, f.file(0))
}

func TestNonVoidReturnRefused(t *testing.T) {
	t.Parallel()

	const prefix = "Function 'f' reaches the end without a return statement. "
	tests := []struct {
		name string
		fix  string
		want string
	}{
		{
			name: "no configuration",
			want: prefix + "Default value return not added due to missing config file.",
		},
		{
			name: "no defaultValues key",
			fix:  `{"implicitCalls": {}}`,
			want: prefix + "Default value return was not added as 'defaultValues' is not defined in the configuration file.",
		},
		{
			name: "no value for the type",
			fix:  `{"defaultValues": {"float": "0.0f"}}`,
			want: prefix + "Default value return not added due to missing default value configuration for type 'int'.",
		},
		{
			name: "value does not build",
			fix:  `{"defaultValues": {"int": ")"}}`,
			want: prefix + "Provided default value for type 'int' is invalid and was therefore not inserted.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var fix config.Provider
			if tt.fix != "" {
				fix = fixConfig(t, tt.fix)
			}
			f := newFixture(t, fix, src("main.c", missingReturn))
			sum := f.fix(t, NewNonVoidReturn)
			assert.Equal(t, []string{tt.want}, messages(sum.Errors))
			assert.Empty(t, sum.Warnings)
			assert.Equal(t, missingReturn, f.file(0))
		})
	}
}

func TestTerminates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		body string
		want bool
	}{
		{"return 1;", true},
		{"x++;", false},
		{"if (x) return 1; else return 2;", true},
		{"if (x) return 1;", false},
		{"exit(1);", true},
		{"while (1) { x++; }", true},
		{"while (x) { x++; }", false},
		{"while (1) { if (x) break; }", false},
		{"for (;;) { switch (x) { case 1: break; default: break; } }", true},
		{"do { x++; } while (1);", true},
		{"switch (x) { case 1: return 1; default: return 0; }", true},
		{"switch (x) { case 1: return 1; }", false},
		{"switch (x) { case 1: return 1; default: break; }", false},
		{"return 1; again: x++;", false},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, nil, src("main.c", "int f(int x) {\n"+tt.body+"\n}\n"))
			body := f.tree.Body(f.first(cast.Function))
			require.True(t, body.IsValid())
			assert.Equal(t, tt.want, terminates(f.tree, body))
		})
	}
}

func TestNonVoidReturnSkips(t *testing.T) {
	t.Parallel()

	const code = `void v(int x) {
    x++;
}

int loop(void) {
    for (;;) {
    }
}

int fail(void) {
    abort();
}
`
	f := newFixture(t, nil, src("main.c", code))
	assert.Empty(t, f.check(NewNonVoidReturn))
}

func TestUnusedReturnValue(t *testing.T) {
	t.Parallel()

	const code = `int get(void);
void put(int v);

void f(void) {
    int y;
    get();
    put(1);
    printf("hi");
    strlen("hi");
    (void)get();
    y = get();
}
`
	f := newFixture(t, nil, src("main.c", code))
	assert.Equal(t, []string{
		"Return value of get must be used. It can be discarded with an explicit cast to void.",
		"Return value of printf must be used. It can be discarded with an explicit cast to void.",
		"Return value of strlen must be used. It can be discarded with an explicit cast to void.",
	}, f.check(NewUnusedReturnValue))

	sum := f.fix(t, NewUnusedReturnValue)
	assert.Empty(t, sum.Errors)
	assert.Equal(t, 3, sum.Rewrites)

	printed := f.file(0)
	assert.Contains(t, printed, "    (void)get();\n    put(1);\n    (void)printf(\"hi\");\n")
	assert.Contains(t, printed, "(void)strlen(\"hi\");")
	assert.NotContains(t, printed, "(void)(void)")
}

func TestStaticArrayParam(t *testing.T) {
	t.Parallel()

	const code = `int sum(const int v[static 4], int n[ static 2 ], int w[]) {
    return v[0] + n[0] + w[0];
}
`
	const msg = "The 'static' keyword cannot appear inside the square brackets ('[]') in array parameter declarations."

	f := newFixture(t, nil, src("main.c", code))
	assert.Equal(t, []string{msg, msg}, f.check(NewStaticArrayParam))

	sum := f.fix(t, NewStaticArrayParam)
	assert.Empty(t, sum.Errors)
	assert.Equal(t, 1, sum.Rewrites)
	assert.Contains(t, f.file(0), "int sum(const int v[], int n[], int w[]) {")
}
