// Package graph orders one stage's packages so every package comes after the
// packages it depends on.
//
// Nodes are package destinations. An edge A -> B means A depends on B. Only
// dependencies on nodes of the same stage take part in ordering; dependencies
// on packages from earlier stages are kept as external edges, which are
// reported in cycle diagnostics but never hold a node back.
package graph

// Node is one package of the stage.
type Node struct {
	// ID is the package destination.
	ID string

	// Deps are the destinations this package depends on, in declaration order.
	Deps []string
}

// Graph is an in-degree graph over a single stage.
type Graph struct {
	ids      []string       // input order
	index    map[string]int // id -> input position
	deps     [][]int        // distinct in-stage dependencies
	external [][]string     // dependencies outside the stage
	users    [][]int        // reverse edges, in input order of the dependent
	indeg    []int
}

// Build constructs the graph. Nodes with a repeated ID after the first are
// ignored.
func Build(nodes []Node) *Graph {
	g := &Graph{index: make(map[string]int, len(nodes))}
	for _, n := range nodes {
		if _, dup := g.index[n.ID]; dup {
			continue
		}
		g.index[n.ID] = len(g.ids)
		g.ids = append(g.ids, n.ID)
	}

	g.deps = make([][]int, len(g.ids))
	g.external = make([][]string, len(g.ids))
	g.users = make([][]int, len(g.ids))
	g.indeg = make([]int, len(g.ids))

	seenNode := make(map[string]bool, len(g.ids))
	for _, n := range nodes {
		if seenNode[n.ID] {
			continue
		}
		seenNode[n.ID] = true
		from := g.index[n.ID]

		seen := make(map[string]bool, len(n.Deps))
		for _, d := range n.Deps {
			if seen[d] {
				continue
			}
			seen[d] = true
			to, inStage := g.index[d]
			if !inStage {
				g.external[from] = append(g.external[from], d)
				continue
			}
			g.deps[from] = append(g.deps[from], to)
			g.indeg[from]++
		}
	}

	// Build reverse edges in input order of the dependent so decrements, and
	// therefore enqueue order, follow the reference list.
	for from, tos := range g.deps {
		for _, to := range tos {
			g.users[to] = append(g.users[to], from)
		}
	}
	return g
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.ids) }

// InDegree returns the number of in-stage dependencies of id.
func (g *Graph) InDegree(id string) int {
	i, ok := g.index[id]
	if !ok {
		return 0
	}
	return g.indeg[i]
}

// External returns the dependencies of id that lie outside the stage.
func (g *Graph) External(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]string, len(g.external[i]))
	copy(out, g.external[i])
	return out
}

// Sort returns the build order using Kahn's algorithm with a FIFO queue.
// Nodes that become ready together keep their input order. If some nodes
// can never become ready, Sort returns a *CycleError describing all of them.
func (g *Graph) Sort() ([]string, error) {
	indeg := make([]int, len(g.indeg))
	copy(indeg, g.indeg)

	queue := make([]int, 0, len(g.ids))
	for i, d := range indeg {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]string, 0, len(g.ids))
	done := make([]bool, len(g.ids))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, g.ids[n])
		done[n] = true

		for _, u := range g.users[n] {
			indeg[u]--
			if indeg[u] == 0 {
				queue = append(queue, u)
			}
		}
	}

	if len(order) == len(g.ids) {
		return order, nil
	}
	return nil, g.cycleError(done)
}

func (g *Graph) cycleError(done []bool) *CycleError {
	err := &CycleError{}
	for i, id := range g.ids {
		if done[i] {
			continue
		}
		u := Unresolved{Node: id}
		for _, d := range g.deps[i] {
			if !done[d] {
				u.Blocking = append(u.Blocking, g.ids[d])
			}
		}
		u.External = append(u.External, g.external[i]...)
		err.Nodes = append(err.Nodes, u)
	}
	return err
}
