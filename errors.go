package dbgraph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when no .dbgraph.yaml is found.
	ErrConfigNotFound = errors.New("dbgraph: no .dbgraph.yaml found")

	// ErrNotFound is returned when a name does not resolve to a declared field.
	ErrNotFound = errors.New("dbgraph: not found")

	// ErrValidation is returned when a build step is rejected before touching the graph.
	ErrValidation = errors.New("dbgraph: validation failed")

	// ErrInvalidOperation is returned when a table is modified after it was locked.
	ErrInvalidOperation = errors.New("dbgraph: invalid operation")

	// ErrDisambiguationRequired is returned when a wanted node has more than one
	// possible source and the engine refuses to pick one.
	ErrDisambiguationRequired = errors.New("dbgraph: disambiguation required")

	// ErrInvalidExpression is returned when a computed-node expression cannot be parsed.
	ErrInvalidExpression = errors.New("dbgraph: invalid expression")
)

// DisambiguationError describes an unresolved choice among several sources.
type DisambiguationError struct {
	Node       string   // name of the wanted node
	Reason     string   // what kind of choice is open
	Candidates []string // names of the competing sources
}

func (e *DisambiguationError) Error() string {
	return fmt.Sprintf("%v: %s: %s (candidates: %s)",
		ErrDisambiguationRequired, e.Node, e.Reason, strings.Join(e.Candidates, ", "))
}

// Is reports whether target is ErrDisambiguationRequired.
func (e *DisambiguationError) Is(target error) bool {
	return target == ErrDisambiguationRequired
}
