// Package graph provides dependency resolution for task scheduling.
package graph

import (
	"fmt"
	"sort"
	"strings"
)

// CycleError indicates a circular dependency was found in the task graph.
// Unresolved lists the node IDs that could not be ordered.
type CycleError struct {
	Unresolved []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected among: %s", strings.Join(e.Unresolved, ", "))
}

// DependencyGraph represents a directed acyclic graph of task dependencies.
// Nodes are task IDs and edges represent "depends on" relationships.
type DependencyGraph struct {
	// order preserves the original input order of node IDs, used for
	// deterministic tie-breaking.
	order []string
	// nodes is the set of known node IDs.
	nodes map[string]bool
	// edges maps node ID to the IDs it depends on.
	edges map[string][]string
}

// New builds a dependency graph from node IDs and a dependency map.
// Returns an error if the map references an unknown node. Cycle detection
// is deferred to ResolveOrder so callers get the unresolved node list.
func New(nodeIDs []string, dependsOn map[string][]string) (*DependencyGraph, error) {
	g := &DependencyGraph{
		order: make([]string, 0, len(nodeIDs)),
		nodes: make(map[string]bool, len(nodeIDs)),
		edges: make(map[string][]string, len(nodeIDs)),
	}

	for _, id := range nodeIDs {
		if g.nodes[id] {
			return nil, fmt.Errorf("duplicate node %s", id)
		}
		g.nodes[id] = true
		g.order = append(g.order, id)
	}

	for id, deps := range dependsOn {
		if !g.nodes[id] {
			return nil, fmt.Errorf("dependency map references unknown node %s", id)
		}
		for _, depID := range deps {
			if !g.nodes[depID] {
				return nil, fmt.Errorf("node %s depends on unknown node %s", id, depID)
			}
			g.edges[id] = append(g.edges[id], depID)
		}
	}

	return g, nil
}

// ResolveOrder returns node IDs in an order where all dependencies come
// before their dependents, using Kahn's algorithm. Ties between nodes that
// become ready simultaneously are broken by original input order, so the
// result is deterministic. Returns a CycleError if a cycle exists.
func (g *DependencyGraph) ResolveOrder() ([]string, error) {
	layers, err := g.Layers()
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(g.order))
	for _, layer := range layers {
		result = append(result, layer...)
	}
	return result, nil
}

// Layers partitions the nodes into ordered groups where every node in a
// layer depends only on nodes in earlier layers. Nodes within a layer are
// in original input order. Returns a CycleError if a cycle exists.
func (g *DependencyGraph) Layers() ([][]string, error) {
	inDegree := make(map[string]int, len(g.order))
	for id := range g.nodes {
		inDegree[id] = len(g.edges[id])
	}

	emitted := make(map[string]bool, len(g.order))
	var layers [][]string

	for len(emitted) < len(g.order) {
		// Scan in input order so ties are deterministic.
		var layer []string
		for _, id := range g.order {
			if !emitted[id] && inDegree[id] == 0 {
				layer = append(layer, id)
			}
		}

		if len(layer) == 0 {
			// Remaining nodes all have unmet in-degree: a cycle.
			var unresolved []string
			for _, id := range g.order {
				if !emitted[id] {
					unresolved = append(unresolved, id)
				}
			}
			return nil, &CycleError{Unresolved: unresolved}
		}

		inLayer := make(map[string]bool, len(layer))
		for _, id := range layer {
			emitted[id] = true
			inLayer[id] = true
		}
		// Decrement the in-degree of every dependent of this layer.
		for id, deps := range g.edges {
			if emitted[id] {
				continue
			}
			for _, depID := range deps {
				if inLayer[depID] {
					inDegree[id]--
				}
			}
		}

		layers = append(layers, layer)
	}

	return layers, nil
}

// Dependencies returns the IDs the given node depends on.
func (g *DependencyGraph) Dependencies(id string) []string {
	return g.edges[id]
}

// Dependents returns the IDs of nodes that depend on the given node,
// in input order.
func (g *DependencyGraph) Dependents(id string) []string {
	var dependents []string
	for _, candidate := range g.order {
		for _, depID := range g.edges[candidate] {
			if depID == id {
				dependents = append(dependents, candidate)
				break
			}
		}
	}
	return dependents
}

// Size returns the number of nodes in the graph.
func (g *DependencyGraph) Size() int {
	return len(g.nodes)
}

// CanExecute reports whether every required input is available. This is a
// data-availability check, distinct from scheduling order: a task may be
// scheduled in the right group yet still lack inputs because an upstream
// task failed to produce output. Missing IDs are returned sorted.
func CanExecute(required []string, available map[string]bool) (bool, []string) {
	var missing []string
	for _, id := range required {
		if !available[id] {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return len(missing) == 0, missing
}
