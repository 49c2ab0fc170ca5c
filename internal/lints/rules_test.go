package lints

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/misra/internal"
	"github.com/gnolang/misra/internal/cast"
	"github.com/gnolang/misra/internal/cfront"
	"github.com/gnolang/misra/internal/config"
	"github.com/gnolang/misra/internal/oracle"
)

type fixture struct {
	tree *cast.Tree
	sess *internal.Session
}

func src(path, content string) cfront.Source {
	return cfront.Source{Path: path, Content: []byte(content)}
}

func newFixture(t *testing.T, fix config.Provider, sources ...cfront.Source) *fixture {
	t.Helper()
	tree, err := cfront.ParseProgram(context.Background(), sources)
	require.NoError(t, err)
	return &fixture{tree: tree, sess: internal.NewSession(tree, oracle.Parser{}, fix)}
}

func fixConfig(t *testing.T, doc string) config.Provider {
	t.Helper()
	fix, err := config.Parse([]byte(doc), config.FormatJSON)
	require.NoError(t, err)
	return fix
}

func (f *fixture) engine(rules ...internal.RuleConstructor) *internal.Engine {
	return internal.NewEngine(f.sess, internal.BuildRules(f.sess, rules, nil, nil), internal.WithMaxPasses(20))
}

func (f *fixture) check(rules ...internal.RuleConstructor) []string {
	return messages(f.engine(rules...).CheckCompliance(f.tree.Root()).Errors)
}

func (f *fixture) fix(t *testing.T, rules ...internal.RuleConstructor) internal.Summary {
	t.Helper()
	sum, err := f.engine(rules...).ApplyCorrections(context.Background(), f.tree.Root())
	require.NoError(t, err)
	return sum
}

// file prints the i-th file of the program.
func (f *fixture) file(i int) string {
	return cast.Print(f.tree, f.tree.ChildAt(f.tree.Root(), i))
}

// first returns the first node of kind in the program.
func (f *fixture) first(kind cast.Kind) cast.NodeID {
	nodes := f.tree.Find(f.tree.Root(), kind)
	if len(nodes) == 0 {
		return cast.NoNode
	}
	return nodes[0]
}

func messages(vs []internal.Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Message
	}
	return out
}

func TestCatalogue(t *testing.T) {
	t.Parallel()

	sess := internal.NewSession(cast.NewTree(), nil, nil)
	rules := internal.BuildRules(sess, Catalogue, nil, nil)
	assert.Equal(t, []string{
		"17.3", "21.3", "21.6", "21.7", "21.8", "21.9", "21.10", "21.11",
		"5.1", "5.2", "5.6", "5.7", "5.8", "5.9", "16.3",
		"2.7", "2.4", "16.2", "16.7",
		"2.6", "2.3", "16.4", "16.5", "16.6", "17.4", "17.7", "17.6", "20.2",
	}, rules.IDs())

	assert.NotNil(t, rules.ForStandard("c99").Find("21.8"))
	assert.Nil(t, rules.ForStandard("c11").Find("21.8"))
	assert.Len(t, rules.ForStandard("c11"), len(rules)-1)
	assert.Nil(t, rules.ForStandard("c90").Find("17.6"))
}

func TestUnusedLabels(t *testing.T) {
	t.Parallel()

	const code = `int f(int x) {
    if (x) goto done;
unused:
    x++;
done:
    return x;
}
`
	f := newFixture(t, nil, src("main.c", code))
	assert.Equal(t, []string{"Label 'unused' is unused in function f."}, f.check(NewUnusedLabels))

	sum := f.fix(t, NewUnusedLabels)
	assert.Empty(t, sum.Errors)
	labels := f.tree.Find(f.tree.Root(), cast.Label)
	require.Len(t, labels, 1)
	assert.Equal(t, "done", f.tree.Text(labels[0]))
	assert.Len(t, f.tree.Find(f.tree.Root(), cast.Postfix), 1, "labelled statement is kept")
}

func TestUnusedParameters(t *testing.T) {
	t.Parallel()

	const code = `int g(int a, int b) {
    return a;
}

int h(void) {
    return 0;
}
`
	f := newFixture(t, nil, src("main.c", code))
	assert.Equal(t, []string{"Parameter 'b' is unused in function g."}, f.check(NewUnusedParameters))

	sum := f.fix(t, NewUnusedParameters)
	assert.Equal(t, []string{"Parameter 'b' is unused in function g."}, messages(sum.Errors))
	assert.Equal(t, 0, sum.Rewrites)
}

func TestDeclTypeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text, name string
		want       string
		found      bool
	}{
		{"bool flag = x > 1;", "flag", "bool", true},
		{"static const _Bool ready;", "ready", "_Bool", true},
		{"int a, b;", "b", "int", true},
		{"int (*fp)(void) = 0;", "fp", "int", true},
		{"int count = other;", "other", "", false},
		{"int bool_count;", "bool", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			typ, ok := declTypeOf(tt.text, tt.name)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, typ)
		})
	}
}

func TestApplyOnlyWhereMatched(t *testing.T) {
	t.Parallel()

	const code = `int g(void) {
    return 0;
}

int h(int a) {
    if (a) {
        return 1;
    }
}
`
	f := newFixture(t, nil, src("main.c", code))
	fns := f.tree.Find(f.tree.Root(), cast.Function)
	require.Len(t, fns, 2)
	ctx := context.Background()

	for _, ctor := range []internal.RuleConstructor{NewNonVoidReturn, NewUnusedParameters} {
		r := ctor(f.sess)
		assert.False(t, r.Apply(ctx, fns[0]).Changed(), r.ID())
	}
	assert.Empty(t, f.sess.Store.Errors(), "nothing is recorded for a compliant function")

	assert.False(t, NewNonVoidReturn(f.sess).Apply(ctx, fns[1]).Changed())
	assert.Equal(t, []string{
		"Function 'h' reaches the end without a return statement. Default value return not added due to missing config file.",
	}, messages(f.sess.Store.Errors()))
}

func TestUnusedTypeDecl(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		code    string
		errors  []string
		present []string
		absent  []string
	}{
		{
			name:    "unused typedef removed",
			code:    "typedef int unused_t;\ntypedef int used_t;\nused_t g(void) { return 0; }\n",
			errors:  []string{"Type declaration unused_t is declared but not used."},
			present: []string{"typedef int used_t;"},
			absent:  []string{"unused_t"},
		},
		{
			name:    "used tag survives its typedef",
			code:    "typedef struct cell { int v; } cell_t;\nint size(struct cell *c) { return c->v; }\n",
			errors:  []string{"Type declaration cell_t is declared but not used."},
			present: []string{"struct cell { int v; };"},
			absent:  []string{"cell_t"},
		},
		{
			name:    "enumerator in use",
			code:    "typedef enum { OFF, ON } mode_t;\nint g(void) { return ON; }\n",
			present: []string{"mode_t;"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.errors, nilIfEmpty(newFixture(t, nil, src("main.c", tt.code)).check(NewUnusedTypeDecl)))

			f := newFixture(t, nil, src("main.c", tt.code))
			sum := f.fix(t, NewUnusedTypeDecl)
			assert.Empty(t, sum.Errors)
			printed := f.file(0)
			for _, s := range tt.present {
				assert.Contains(t, printed, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, printed, s)
			}
		})
	}
}

func TestUnusedTagDecl(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		code    string
		errors  []string
		present []string
		absent  []string
	}{
		{
			name:   "unused tag removed",
			code:   "struct lonely { int v; };\nint g(void) { return 0; }\n",
			errors: []string{"The tag 'lonely' is declared but not used."},
			absent: []string{"lonely"},
		},
		{
			name:    "tag only named by its typedef",
			code:    "typedef struct inner { int v; } inner_t;\ninner_t make(void) { inner_t x; x.v = 1; return x; }\n",
			errors:  []string{"The tag 'inner' is declared but only used in a typedef."},
			present: []string{"typedef struct { int v; } inner_t;"},
		},
		{
			name:    "self referencing tag",
			code:    "typedef struct list { struct list *next; } list_t;\nlist_t *head(list_t *l) { return l; }\n",
			present: []string{"struct list *next;"},
		},
		{
			name:    "enumerator in use",
			code:    "enum mode { OFF, ON };\nint g(void) { return ON; }\n",
			present: []string{"enum mode { OFF, ON };"},
		},
		{
			name:    "forward declaration does not count",
			code:    "struct used;\nstruct used { int v; };\nint g(struct used *u) { return u->v; }\n",
			present: []string{"struct used { int v; };"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.errors, nilIfEmpty(newFixture(t, nil, src("main.c", tt.code)).check(NewUnusedTagDecl)))

			f := newFixture(t, nil, src("main.c", tt.code))
			sum := f.fix(t, NewUnusedTagDecl)
			assert.Empty(t, sum.Errors)
			printed := f.file(0)
			for _, s := range tt.present {
				assert.Contains(t, printed, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, printed, s)
			}
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestHeaderName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header  string
		invalid bool
	}{
		{`<stdio.h>`, false},
		{`"sub/dir.h"`, false},
		{`"odd'name.h"`, true},
		{`<win\path.h>`, true},
		{`"a/*b.h"`, true},
		{`"a//b.h"`, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.invalid, invalidHeaderName(tt.header), tt.header)
	}

	const code = "#include \"odd'name.h\"\n#include <stdio.h>\nint g(void) { return 0; }\n"
	f := newFixture(t, nil, src("main.c", code))
	want := []string{`Invalid characters in header filename. Invalid characters are ', ", \, and the sequences /* and //.`}
	assert.Equal(t, want, f.check(NewHeaderName))

	sum := f.fix(t, NewHeaderName)
	assert.Equal(t, want, messages(sum.Errors))
	assert.Equal(t, 0, sum.Rewrites)
}
