package dbgraph

import "go.uber.org/zap"

// edgeSet is an insertion-ordered set of arena IDs.
type edgeSet struct {
	ids  []int
	seen map[int]struct{}
}

func (s *edgeSet) add(id int) bool {
	if s.seen == nil {
		s.seen = make(map[int]struct{})
	}

	if _, ok := s.seen[id]; ok {
		return false
	}

	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)

	return true
}

func (s *edgeSet) contains(id int) bool {
	_, ok := s.seen[id]
	return ok
}

func (s *edgeSet) len() int {
	return len(s.ids)
}

// graph is the arena that owns every node of a Database.
// Nodes reference each other only by arena ID.
type graph struct {
	nodes []*Node
	log   *zap.Logger
}

func (g *graph) newNode(name string, kind Kind) *Node {
	n := &Node{
		id:   len(g.nodes),
		name: name,
		kind: kind,
		g:    g,
	}
	g.nodes = append(g.nodes, n)

	return n
}

// link records parent -> child in both directions.
func (g *graph) link(parent, child *Node) {
	parent.children.add(child.id)
	child.parents.add(parent.id)
}

func (g *graph) resolve(ids []int) []*Node {
	out := make([]*Node, len(ids))
	for i, id := range ids {
		out[i] = g.nodes[id]
	}

	return out
}

// Node is a vertex of the schema graph: a field, a computed field, a union or a table.
//
// The tri-state flags only ever go from false to true, and wanted implies needed
// implies available whenever they are observed.
type Node struct {
	id   int
	name string
	kind Kind
	g    *graph

	parents  edgeSet
	children edgeSet

	wanted    bool
	needed    bool
	available bool

	// Computed and union nodes.
	fn     string
	params []int

	// Tables.
	keys    []int
	fields  []int
	columns map[int]string
	locked  bool
}

// Name returns the node's registry name.
func (n *Node) Name() string { return n.name }

// Kind returns the node's kind.
func (n *Node) Kind() Kind { return n.kind }

// Wanted reports whether the node was explicitly requested by a plan.
func (n *Node) Wanted() bool { return n.wanted }

// Needed reports whether the node is required to satisfy a wanted node.
func (n *Node) Needed() bool { return n.needed }

// Available reports whether the node is obtainable given the current plan.
func (n *Node) Available() bool { return n.available }

// Parents returns the nodes this node depends on, in insertion order.
func (n *Node) Parents() []*Node { return n.g.resolve(n.parents.ids) }

// Children returns the nodes depending on this node, in insertion order.
func (n *Node) Children() []*Node { return n.g.resolve(n.children.ids) }

// Fn returns the function tag of a computed node, or "" for other kinds.
func (n *Node) Fn() string { return n.fn }

// Params returns the computation inputs of a computed node.
func (n *Node) Params() []*Node { return n.g.resolve(n.params) }

// Keys returns the key fields of a table.
func (n *Node) Keys() []*Node { return n.g.resolve(n.keys) }

// Fields returns every field of a table, keys included.
func (n *Node) Fields() []*Node { return n.g.resolve(n.fields) }

// Locked reports whether a table has had a key declared.
func (n *Node) Locked() bool { return n.locked }

// IsKey reports whether f is one of the table's keys.
func (n *Node) IsKey(f *Node) bool {
	for _, id := range n.keys {
		if id == f.id {
			return true
		}
	}

	return false
}

// Column returns the table-local column name of field f.
// It is the field's global name unless the table declared an alias.
func (n *Node) Column(f *Node) string {
	if c, ok := n.columns[f.id]; ok {
		return c
	}

	return f.name
}

// Descendants returns every node reachable through child edges, depth first.
// Each call walks the graph afresh.
func (n *Node) Descendants() []*Node {
	return n.walk(func(m *Node) []int { return m.children.ids }, make(map[int]bool))
}

// Ancestors returns every node reachable through parent edges, depth first.
// Each call walks the graph afresh.
func (n *Node) Ancestors() []*Node {
	return n.walk(func(m *Node) []int { return m.parents.ids }, make(map[int]bool))
}

// walk is an iterative pre-order traversal. The start node is not pre-marked, so
// it shows up in its own result when it sits on a cycle.
func (n *Node) walk(next func(*Node) []int, visited map[int]bool) []*Node {
	var out []*Node

	stack := reversed(next(n))
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[id] {
			continue
		}

		visited[id] = true
		m := n.g.nodes[id]
		out = append(out, m)
		stack = append(stack, reversed(next(m))...)
	}

	return out
}

func reversed(ids []int) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}

	return out
}

func names(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.name
	}

	return out
}
