package graph

import "errors"

var (
	// ErrCycle is returned by Compile when the graph is not a DAG.
	ErrCycle = errors.New("graph: cycle detected")

	// ErrDanglingBinding is returned by Compile when an input binding
	// references a node absent from the graph, or a node that is not an
	// ancestor of the bound node.
	ErrDanglingBinding = errors.New("graph: dangling input binding")

	// ErrUnresolvedBinding reports that a binding could not be resolved
	// at execution time. This is a builder or scheduler defect, never a
	// recoverable runtime condition.
	ErrUnresolvedBinding = errors.New("graph: unresolved input binding")

	// ErrDuplicateOutput reports a second write for the same
	// (node, output) key within one run. Writes are once-only so logic
	// errors surface immediately instead of silently overwriting.
	ErrDuplicateOutput = errors.New("graph: duplicate output write")
)
