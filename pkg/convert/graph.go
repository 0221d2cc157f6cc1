// SPDX-License-Identifier: MPL-2.0
//
// Adapted from the internal/dag package of github.com/invowk/invowk.

package convert

import "github.com/lemonberrylabs/unitcalc/pkg/types"

// Graph is a directed dependency graph over unit symbols. An edge from A to
// B means A is defined in terms of B, so A must be expanded before B.
type Graph struct {
	// adjacency maps each node to the nodes it depends on.
	adjacency map[string][]string
	// nodes tracks all nodes in insertion order for deterministic output.
	nodes   []string
	nodeSet map[string]bool
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to. Both nodes are implicitly added.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// HasNode reports whether name is in the graph.
func (g *Graph) HasNode(name string) bool {
	return g.nodeSet[name]
}

// TopologicalSort orders the nodes so that every unit precedes the units it
// depends on, using Kahn's algorithm. Nodes at the same level appear in
// insertion order. A cycle is reported as a RegistryError carrying the
// cycle's path.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	queue := make([]string, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		return nil, types.NewCycleError(g.findCycle(inDegree))
	}
	return result, nil
}

// findCycle walks backwards through the nodes Kahn's algorithm could not
// release until one repeats, and returns that loop in edge order, e.g.
// [A B A]. Every unreleased node has an unreleased predecessor, so the walk
// always closes.
func (g *Graph) findCycle(inDegree map[string]int) []string {
	preds := make(map[string][]string)
	var start string
	for _, from := range g.nodes {
		if inDegree[from] == 0 {
			continue
		}
		if start == "" {
			start = from
		}
		for _, to := range g.adjacency[from] {
			preds[to] = append(preds[to], from)
		}
	}

	path := []string{start}
	seen := map[string]int{start: 0}
	node := start
	for {
		next := preds[node][0]
		if i, ok := seen[next]; ok {
			cycle := []string{next}
			for k := len(path) - 1; k >= i; k-- {
				cycle = append(cycle, path[k])
			}
			return cycle
		}
		seen[next] = len(path)
		path = append(path, next)
		node = next
	}
}
