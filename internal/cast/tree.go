package cast

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// NodeID is a stable handle to a node inside a Tree. Ids are 1-based and
// never reused, so a detached node keeps its id for as long as the tree lives.
type NodeID uint32

// NoNode is the zero id.
const NoNode NodeID = 0

func (id NodeID) IsValid() bool { return id != NoNode }

// Span is the source range a node was parsed from. Nodes built by rules
// have a zero span and report the location of their closest parsed ancestor.
type Span struct {
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

func (s Span) IsZero() bool { return s.Line == 0 }

// Node is one element of the arena.
type Node struct {
	Kind Kind
	// Text holds the spelling of identifiers, literals and operators, the
	// path of files and includes, the header of for loops, the verbatim
	// source of Raw and VarDecl nodes and the name of Typedef and Tag nodes.
	Text string
	// Type is the declared type spelling of functions, params, prototypes
	// and cast targets. Typedefs keep the aliased type ("struct s" for a
	// tagged one) and tags their keyword.
	Type string
	// Decl is the verbatim declarator header of functions and prototypes,
	// and the whole declaration of Typedef and Tag nodes.
	Decl    string
	Storage string
	// Names lists the identifiers declared by VarDecl and Typedef nodes in
	// declarator order. The slice is replaced, never modified in place.
	Names []string
	Span  Span

	parent   NodeID
	children []NodeID
}

// Tree is an arena of nodes with parent/children links.
type Tree struct {
	nodes []Node
	root  NodeID
}

func NewTree() *Tree {
	return &Tree{nodes: make([]Node, 0, 64)}
}

// Len returns the number of allocated nodes, attached or not.
func (t *Tree) Len() int { return len(t.nodes) }

// Alloc copies n into the arena and returns its id. Links carried by n are
// discarded; the new node starts detached and childless.
func (t *Tree) Alloc(n Node) NodeID {
	n.parent = NoNode
	n.children = nil
	t.nodes = append(t.nodes, n)
	id, err := safecast.Conv[uint32](len(t.nodes))
	if err != nil {
		panic(fmt.Errorf("node count overflow: %w", err))
	}
	return NodeID(id)
}

// New allocates a node of the given kind and appends children to it.
func (t *Tree) New(kind Kind, text string, children ...NodeID) NodeID {
	id := t.Alloc(Node{Kind: kind, Text: text})
	for _, c := range children {
		if c.IsValid() {
			t.Append(id, c)
		}
	}
	return id
}

// Node returns the node for id, or nil when id is not part of the arena.
func (t *Tree) Node(id NodeID) *Node {
	if id == NoNode || int(id) > len(t.nodes) {
		return nil
	}
	return &t.nodes[id-1]
}

func (t *Tree) Kind(id NodeID) Kind {
	if n := t.Node(id); n != nil {
		return n.Kind
	}
	return Invalid
}

func (t *Tree) Text(id NodeID) string {
	if n := t.Node(id); n != nil {
		return n.Text
	}
	return ""
}

func (t *Tree) Root() NodeID { return t.root }

func (t *Tree) SetRoot(id NodeID) { t.root = id }

func (t *Tree) Parent(id NodeID) NodeID {
	if n := t.Node(id); n != nil {
		return n.parent
	}
	return NoNode
}

// Children returns a copy of the child list, safe to iterate while mutating.
func (t *Tree) Children(id NodeID) []NodeID {
	if n := t.Node(id); n != nil {
		return slices.Clone(n.children)
	}
	return nil
}

func (t *Tree) NumChildren(id NodeID) int {
	if n := t.Node(id); n != nil {
		return len(n.children)
	}
	return 0
}

// ChildAt returns the i-th child or NoNode when out of range.
func (t *Tree) ChildAt(id NodeID, i int) NodeID {
	n := t.Node(id)
	if n == nil || i < 0 || i >= len(n.children) {
		return NoNode
	}
	return n.children[i]
}

// Index returns the position of id among its siblings, or -1 when detached.
func (t *Tree) Index(id NodeID) int {
	p := t.Node(t.Parent(id))
	if p == nil {
		return -1
	}
	return slices.Index(p.children, id)
}

func (t *Tree) NextSibling(id NodeID) NodeID {
	i := t.Index(id)
	if i < 0 {
		return NoNode
	}
	return t.ChildAt(t.Parent(id), i+1)
}

func (t *Tree) PrevSibling(id NodeID) NodeID {
	i := t.Index(id)
	if i <= 0 {
		return NoNode
	}
	return t.ChildAt(t.Parent(id), i-1)
}

// Append adds child as the last child of parent, detaching it first.
func (t *Tree) Append(parent, child NodeID) {
	t.Detach(child)
	p := t.Node(parent)
	p.children = append(p.children, child)
	t.Node(child).parent = parent
}

// InsertBefore places n immediately before ref.
func (t *Tree) InsertBefore(ref, n NodeID) {
	t.insertAt(ref, n, 0)
}

// InsertAfter places n immediately after ref.
func (t *Tree) InsertAfter(ref, n NodeID) {
	t.insertAt(ref, n, 1)
}

func (t *Tree) insertAt(ref, n NodeID, offset int) {
	if ref == n {
		return
	}
	t.Detach(n)
	parent := t.Parent(ref)
	if parent == NoNode {
		panic(fmt.Sprintf("cast: insert next to detached node %d", ref))
	}
	p := t.Node(parent)
	i := slices.Index(p.children, ref) + offset
	p.children = slices.Insert(p.children, i, n)
	t.Node(n).parent = parent
}

// Detach unlinks id from its parent. The subtree stays intact in the arena.
func (t *Tree) Detach(id NodeID) {
	n := t.Node(id)
	if n == nil || n.parent == NoNode {
		return
	}
	p := t.Node(n.parent)
	if i := slices.Index(p.children, id); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
	n.parent = NoNode
}

// Replace puts repl at the position of old and detaches old. When old is the
// root, repl becomes the root. repl may be a descendant of old.
func (t *Tree) Replace(old, repl NodeID) {
	if old == repl {
		return
	}
	t.Detach(repl)
	parent := t.Parent(old)
	if parent == NoNode {
		if t.root == old {
			t.root = repl
		}
		return
	}
	p := t.Node(parent)
	i := slices.Index(p.children, old)
	p.children[i] = repl
	t.Node(repl).parent = parent
	t.Node(old).parent = NoNode
}

// Attached reports whether id is reachable from the root.
func (t *Tree) Attached(id NodeID) bool {
	for cur := id; cur != NoNode; cur = t.Parent(cur) {
		if cur == t.root {
			return true
		}
	}
	return false
}

// Contains reports whether id is anc or lies below it.
func (t *Tree) Contains(anc, id NodeID) bool {
	for cur := id; cur != NoNode; cur = t.Parent(cur) {
		if cur == anc {
			return true
		}
	}
	return false
}

// Ancestor returns the closest proper ancestor of id whose kind is one of kinds.
func (t *Tree) Ancestor(id NodeID, kinds ...Kind) NodeID {
	for cur := t.Parent(id); cur != NoNode; cur = t.Parent(cur) {
		if slices.Contains(kinds, t.Kind(cur)) {
			return cur
		}
	}
	return NoNode
}

// Walk visits id and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func (t *Tree) Walk(id NodeID, fn func(NodeID) bool) {
	if id == NoNode || !fn(id) {
		return
	}
	for _, c := range t.Children(id) {
		t.Walk(c, fn)
	}
}

// Descendants returns every node strictly below id in pre-order.
func (t *Tree) Descendants(id NodeID) []NodeID {
	var out []NodeID
	t.Walk(id, func(n NodeID) bool {
		if n != id {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Find returns the descendants of id (id included) with one of the kinds.
func (t *Tree) Find(id NodeID, kinds ...Kind) []NodeID {
	var out []NodeID
	t.Walk(id, func(n NodeID) bool {
		if slices.Contains(kinds, t.Kind(n)) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Clone deep-copies the subtree rooted at id inside the same arena. The copy
// starts detached.
func (t *Tree) Clone(id NodeID) NodeID {
	root, _ := t.CopyInto(t, id)
	return root
}

// CopyInto deep-copies the subtree rooted at id into dst and returns the new
// root together with the mapping from source ids to destination ids.
func (t *Tree) CopyInto(dst *Tree, id NodeID) (NodeID, map[NodeID]NodeID) {
	mapping := make(map[NodeID]NodeID)
	root := t.copyNode(dst, id, mapping)
	return root, mapping
}

func (t *Tree) copyNode(dst *Tree, id NodeID, mapping map[NodeID]NodeID) NodeID {
	src := t.Node(id)
	if src == nil {
		return NoNode
	}
	children := slices.Clone(src.children)
	nid := dst.Alloc(*src)
	mapping[id] = nid
	for _, c := range children {
		dst.Append(nid, t.copyNode(dst, c, mapping))
	}
	return nid
}

// Location returns the span of id or of its closest ancestor with one.
func (t *Tree) Location(id NodeID) Span {
	for cur := id; cur != NoNode; cur = t.Parent(cur) {
		if n := t.Node(cur); !n.Span.IsZero() {
			return n.Span
		}
	}
	return Span{}
}
