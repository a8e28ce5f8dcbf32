package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle indicates the stage's dependencies contain a cycle.
var ErrCycle = errors.New("dependency cycle detected")

// Unresolved is a node the sort could never schedule.
type Unresolved struct {
	Node string

	// Blocking are in-stage dependencies that are themselves unresolved.
	Blocking []string

	// External are dependencies outside the stage. They cannot cause a cycle
	// and are listed for completeness.
	External []string
}

// CycleError lists every node left unscheduled by the topological sort.
type CycleError struct {
	Nodes []Unresolved
}

func (e *CycleError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d package(s) could not be ordered", ErrCycle, len(e.Nodes))
	for _, n := range e.Nodes {
		fmt.Fprintf(&b, "\n  %s", n.Node)
		for _, d := range n.Blocking {
			fmt.Fprintf(&b, "\n    -> %s (unresolved, in stage)", d)
		}
		for _, d := range n.External {
			fmt.Fprintf(&b, "\n    -> %s (outside stage)", d)
		}
	}
	return b.String()
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// Contains reports whether id is among the unresolved nodes.
func (e *CycleError) Contains(id string) bool {
	for _, n := range e.Nodes {
		if n.Node == id {
			return true
		}
	}
	return false
}
