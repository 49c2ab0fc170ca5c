package lints

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gnolang/misra/internal"
	"github.com/gnolang/misra/internal/cast"
	"github.com/gnolang/misra/internal/cfront"
)

// definitions finds the function definitions a fix configuration points
// to. A location is looked up among the files of the program first and
// parsed from disk otherwise.
type definitions struct {
	sess   *internal.Session
	parsed map[string]parsedFile
}

type parsedFile struct {
	tree *cast.Tree
	file cast.NodeID
	err  error
}

func newDefinitions(s *internal.Session) *definitions {
	return &definitions{sess: s, parsed: make(map[string]parsedFile)}
}

// find returns the tree holding the definition of fn in the file at
// location, and the definition itself.
func (d *definitions) find(ctx context.Context, location, fn string) (*cast.Tree, cast.NodeID, error) {
	path := location
	if fix := d.sess.Store.Config(); fix != nil {
		path = fix.Resolve(location)
	}

	live := d.sess.Tree
	if file := programFile(live, path); file.IsValid() {
		if def := functionDefinition(live, file, fn); def.IsValid() {
			return live, def, nil
		}
		return nil, cast.NoNode, fmt.Errorf("no definition of %s in %s", fn, location)
	}

	p, ok := d.parsed[path]
	if !ok {
		p = d.parse(ctx, path)
		d.parsed[path] = p
	}
	if p.err != nil {
		return nil, cast.NoNode, p.err
	}
	if def := functionDefinition(p.tree, p.file, fn); def.IsValid() {
		return p.tree, def, nil
	}
	return nil, cast.NoNode, fmt.Errorf("no definition of %s in %s", fn, location)
}

func (d *definitions) parse(ctx context.Context, path string) parsedFile {
	sources, err := cfront.ReadSources([]string{path})
	if err != nil {
		return parsedFile{err: err}
	}
	t, file, err := cfront.ParseFile(ctx, sources[0])
	return parsedFile{tree: t, file: file, err: err}
}

// programFile returns the File node of t whose path is path.
func programFile(t *cast.Tree, path string) cast.NodeID {
	want := cleanAbs(path)
	for _, f := range t.Find(t.Root(), cast.File) {
		if cleanAbs(t.Text(f)) == want {
			return f
		}
	}
	return cast.NoNode
}

func cleanAbs(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// externalLinkage reports whether a definition can be referenced from
// another unit.
func externalLinkage(t *cast.Tree, def cast.NodeID) bool {
	return t.Node(def).Storage != "static"
}

// externPrototype builds in dst an extern declaration of def, a definition
// of src.
func externPrototype(dst, src *cast.Tree, def cast.NodeID) cast.NodeID {
	n := src.Node(def)
	decl := n.Decl
	if !strings.HasPrefix(decl, "extern ") {
		decl = "extern " + decl
	}
	return cast.NewBuilder(dst).Prototype(n.Text, n.Type, "extern", decl)
}
