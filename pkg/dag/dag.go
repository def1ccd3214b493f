package dag

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// NamedNode is the input contract for building a DAG.
type NamedNode interface {
	// NodeName uniquely identifies a node.
	NodeName() string
	// PrevNodeNames names the nodes that must come before this node.
	PrevNodeNames() []string
}

// DAG is a directed acyclic graph over named nodes. Cycles are rejected
// at construction time, not at traversal time.
type DAG struct {
	nodes map[string]*node
	order []string // insertion order, used as a stable tie-breaker
}

type node struct {
	name      string
	prevNames []string
	prev      []*node
	next      []*node
}

// New builds a DAG from the given nodes and validates all links.
func New(nodes []NamedNode) (*DAG, error) {
	g := &DAG{nodes: map[string]*node{}}

	for _, n := range nodes {
		if err := g.addNode(n); err != nil {
			return nil, errors.Wrapf(err, "failed to add node %q", n.NodeName())
		}
	}

	for _, name := range g.order {
		n := g.nodes[name]
		for _, prevName := range n.prevNames {
			if err := g.addLink(n, prevName); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

func (g *DAG) addNode(n NamedNode) error {
	name := n.NodeName()
	if name == "" {
		return errors.New("node name cannot be empty")
	}
	if _, ok := g.nodes[name]; ok {
		return errors.Errorf("duplicate node: %s", name)
	}
	g.nodes[name] = &node{name: name, prevNames: n.PrevNodeNames()}
	g.order = append(g.order, name)
	return nil
}

func (g *DAG) addLink(n *node, prevName string) error {
	prev, ok := g.nodes[prevName]
	if !ok {
		// A constraint against an unregistered node is not an error;
		// the dependency simply does not participate.
		return nil
	}
	if err := validateLink(prev, n); err != nil {
		return err
	}
	n.prev = append(n.prev, prev)
	prev.next = append(prev.next, n)
	return nil
}

func validateLink(from, to *node) error {
	if from.name == to.name {
		return errors.Errorf("self cycle detected: node %q depends on itself", from.name)
	}
	path := []string{to.name, from.name}
	if err := visit(to, from.prev, path); err != nil {
		return errors.Wrap(err, "cycle detected")
	}
	return nil
}

func visit(start *node, prev []*node, visitedPath []string) error {
	for _, n := range prev {
		visitedPath = append(visitedPath, n.name)
		if n.name == start.name {
			return errors.Errorf("%s", visitedPathString(visitedPath))
		}
		if err := visit(start, n.prev, visitedPath); err != nil {
			return err
		}
	}
	return nil
}

func visitedPathString(path []string) string {
	// reverse, since the graph was walked through prev pointers
	for i := len(path)/2 - 1; i >= 0; i-- {
		opp := len(path) - 1 - i
		path[i], path[opp] = path[opp], path[i]
	}
	return strings.Join(path, " -> ")
}

// TopoSort returns all node names in dependency order: every node appears
// after all of its predecessors. Ties are broken by insertion order, so
// the result is deterministic for a given registration sequence.
func (g *DAG) TopoSort() []string {
	indegree := make(map[string]int, len(g.nodes))
	for name, n := range g.nodes {
		indegree[name] = len(n.prev)
	}

	ready := make([]string, 0, len(g.nodes))
	for _, name := range g.order {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	pos := make(map[string]int, len(g.order))
	for i, name := range g.order {
		pos[name] = i
	}

	sorted := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return pos[ready[i]] < pos[ready[j]] })
		name := ready[0]
		ready = ready[1:]
		sorted = append(sorted, name)
		for _, next := range g.nodes[name].next {
			indegree[next.name]--
			if indegree[next.name] == 0 {
				ready = append(ready, next.name)
			}
		}
	}
	return sorted
}

// Has reports whether the graph contains the named node.
func (g *DAG) Has(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Len returns the number of nodes in the graph.
func (g *DAG) Len() int {
	return len(g.nodes)
}
