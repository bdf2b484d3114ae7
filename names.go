package dbgraph

// Function tags.
const (
	// FnDefault is the tag used when a computed node is declared without one.
	FnDefault = "fn"

	// FnUnion is the tag of the built-in composite key constructor.
	FnUnion = "union"
)

// Kind identifies which propagation rules a node follows.
type Kind int

// Node kinds.
const (
	KindField Kind = iota
	KindComputed
	KindUnion
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindComputed:
		return "computed"
	case KindUnion:
		return "union"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// IsComputed reports whether nodes of this kind are derived from params.
func (k Kind) IsComputed() bool {
	return k == KindComputed || k == KindUnion
}

// ParseKind maps a kind name used in config files to a computed kind.
// Only computed kinds can be registered for function tags.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "computed", "":
		return KindComputed, true
	case "union":
		return KindUnion, true
	default:
		return 0, false
	}
}

// ComputedName derives the registry name of a computed node, e.g. "(paste a b)".
func ComputedName(fn string, params []string) string {
	name := "(" + fn
	for _, p := range params {
		name += " " + p
	}

	return name + ")"
}
