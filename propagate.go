package dbgraph

import "go.uber.org/zap"

// Propagation runs synchronously: every mutator cascades through the neighbours it
// affects before returning, so the graph is at a fixpoint once the outermost call
// returns. The idempotence guards bound recursion on cyclic graphs.

// disambiguate reports whether marking n wanted would require picking one of
// several sources. It reads edges only, so it can run before any mutation.
func (n *Node) disambiguate() error {
	switch n.kind {
	case KindField:
		if n.parents.len() > 1 {
			return &DisambiguationError{
				Node:       n.name,
				Reason:     "field belongs to more than one table",
				Candidates: names(n.Parents()),
			}
		}
	case KindComputed, KindUnion:
		if alt := n.alternates(); len(alt) > 0 {
			return &DisambiguationError{
				Node:       n.name,
				Reason:     "computed field can also be fetched from another source",
				Candidates: append([]string{"compute " + n.fn}, names(alt)...),
			}
		}
	case KindTable:
	}

	return nil
}

// setWanted marks n as explicitly requested. Callers must run disambiguate first.
func (n *Node) setWanted() {
	if n.wanted {
		return
	}

	n.setNeeded()
	n.wanted = true
	n.g.promoted(n, "wanted")

	// A computed node already fanned out to its params in setNeeded.
	if n.kind == KindField && n.parents.len() == 1 {
		n.g.nodes[n.parents.ids[0]].setNeeded()
	}
}

func (n *Node) setNeeded() {
	if n.needed {
		return
	}

	n.setAvailable()
	n.needed = true
	n.g.promoted(n, "needed")

	switch n.kind {
	case KindField:
	case KindComputed, KindUnion:
		for _, p := range n.Parents() {
			p.setNeeded()
		}
	case KindTable:
		if !n.anyKey(func(k *Node) bool { return k.needed }) {
			for _, k := range n.Keys() {
				k.setNeeded()
			}
		}

		for _, f := range n.Fields() {
			f.setAvailable()
		}
	}
}

func (n *Node) setAvailable() {
	if n.available {
		return
	}

	n.available = true
	n.g.promoted(n, "available")

	for _, c := range n.Children() {
		c.checkAvailable()
	}
}

// checkAvailable re-evaluates availability after a neighbour changed state.
func (n *Node) checkAvailable() {
	if n.available {
		return
	}

	switch n.kind {
	case KindField:
		for _, p := range n.Parents() {
			if p.available {
				n.setAvailable()
				return
			}
		}
	case KindComputed, KindUnion:
		if n.paramsAvailable() {
			n.setAvailable()
			return
		}

		for _, p := range n.alternates() {
			if p.available {
				n.setAvailable()
				return
			}
		}
	case KindTable:
		if n.anyKey(func(k *Node) bool { return k.available }) {
			n.setAvailable()
		}
	}
}

func (n *Node) paramsAvailable() bool {
	for _, id := range n.params {
		if !n.g.nodes[id].available {
			return false
		}
	}

	return true
}

// alternates returns the parents of a computed node that are not params.
func (n *Node) alternates() []*Node {
	isParam := make(map[int]bool, len(n.params))
	for _, id := range n.params {
		isParam[id] = true
	}

	var out []*Node

	for _, id := range n.parents.ids {
		if !isParam[id] {
			out = append(out, n.g.nodes[id])
		}
	}

	return out
}

func (n *Node) anyKey(pred func(*Node) bool) bool {
	for _, id := range n.keys {
		if pred(n.g.nodes[id]) {
			return true
		}
	}

	return false
}

func (g *graph) promoted(n *Node, state string) {
	g.log.Debug("node promoted",
		zap.String("node", n.name),
		zap.Stringer("kind", n.kind),
		zap.String("state", state),
	)
}
