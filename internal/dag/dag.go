package dag

import "fmt"

// node is a single vertex with its adjacency in both directions.
type node struct {
	id         string
	deps       map[string]*node
	dependents map[string]*node
}

// Graph is a directed graph keyed by node ID. Insertion order is retained
// so topological sorts are deterministic across runs.
type Graph struct {
	nodes map[string]*node
	order []string
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.order = append(g.order, id)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID`
// node, meaning `toID` depends on `fromID`. An error is returned if either
// node does not exist or the edge would be a self-reference.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode
	return nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// if a cycle is found, naming the first node involved in the detected cycle.
func (g *Graph) DetectCycles() error {
	// Classic depth-first search with three node sets: permanently visited,
	// temporarily on the recursion stack, and unvisited.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			return fmt.Errorf("cycle detected involving node '%s'", n.id)
		}

		temporary[n.id] = true
		for _, dependent := range n.dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, id := range g.order {
		if !permanent[id] {
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Sort returns the node IDs in a topological order: every node appears
// after all of its dependencies. Among nodes whose dependencies are
// satisfied, insertion order wins, so the result is stable. An error is
// returned if the graph contains a cycle.
func (g *Graph) Sort() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		indegree[id] = len(n.deps)
	}

	sorted := make([]string, 0, len(g.nodes))
	emitted := make(map[string]bool, len(g.nodes))

	for len(sorted) < len(g.nodes) {
		progressed := false
		for _, id := range g.order {
			if emitted[id] || indegree[id] != 0 {
				continue
			}
			emitted[id] = true
			sorted = append(sorted, id)
			progressed = true
			for depID := range g.nodes[id].dependents {
				indegree[depID]--
			}
		}
		if !progressed {
			// Every remaining node still has unmet dependencies.
			if err := g.DetectCycles(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("unable to derive a topological order")
		}
	}
	return sorted, nil
}
