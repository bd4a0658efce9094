package artifact

import (
	"fmt"
	"strings"
)

// Graph is a small dependency graph over artifact declaration ids. It is used
// before registration to order declarations so that every input is
// registered ahead of the artifacts built from it. Graph is not safe for
// concurrent use; it only lives for the duration of a load.
type Graph struct {
	nodes map[string]*graphNode
	// order keeps insertion order so that results are deterministic.
	order []string
}

type graphNode struct {
	id         string
	deps       []string
	dependents []string
}

// NewGraph creates and returns an initialized, empty Graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*graphNode)}
}

// AddNode adds a node with the given id. Adding an existing id does nothing.
func (g *Graph) AddNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &graphNode{id: id}
	g.order = append(g.order, id)
}

// AddEdge records that toID depends on fromID. Both nodes must exist. A
// self-edge is a cycle of length one.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("%w: %s -> %s", ErrCyclicDependency, fromID, toID)
	}
	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}
	to.deps = append(to.deps, fromID)
	from.dependents = append(from.dependents, toID)
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// DetectCycles returns an error wrapping ErrCyclicDependency that names the
// cycle path if the graph is not a DAG.
func (g *Graph) DetectCycles() error {
	// permanent: fully visited. temporary: on the current DFS stack.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			start := 0
			for i, s := range stack {
				if s == id {
					start = i
					break
				}
			}
			path := append(append([]string{}, stack[start:]...), id)
			return fmt.Errorf("%w: %s", ErrCyclicDependency, strings.Join(path, " -> "))
		}
		temporary[id] = true
		stack = append(stack, id)
		for _, dep := range g.nodes[id].deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, id := range g.order {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// TopologicalOrder returns every node id such that dependencies precede
// their dependents. Among nodes that are ready at the same time, insertion
// order wins.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}
	pending := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		pending[id] = len(n.deps)
	}

	out := make([]string, 0, len(g.order))
	done := make(map[string]bool, len(g.order))
	for len(out) < len(g.order) {
		progressed := false
		for _, id := range g.order {
			if done[id] || pending[id] > 0 {
				continue
			}
			done[id] = true
			out = append(out, id)
			for _, dep := range g.nodes[id].dependents {
				pending[dep]--
			}
			progressed = true
		}
		if !progressed {
			// Unreachable after DetectCycles, kept so a bug cannot spin forever.
			return nil, fmt.Errorf("%w: unresolved nodes remain", ErrCyclicDependency)
		}
	}
	return out, nil
}
