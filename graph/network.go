package graph

import "fmt"

// Network is a set of edges; its node set is the union of edge endpoints,
// held in an arena keyed by label so lookups by Label are O(1). Exactly
// one node has Kind Start; zero or more have Kind End.
type Network struct {
	nodesByLabel map[Label]*Node
	edges        []*Edge
}

// NewNetwork returns an empty network. Populate it with AddEdge.
func NewNetwork() *Network {
	return &Network{nodesByLabel: make(map[Label]*Node)}
}

// Provider is a nullary factory that returns a fresh network instance. A
// provider enables resets without aliasing: every call returns nodes/edges
// independent of any previously-returned graph.
type Provider func() *Network

// AddEdge registers an edge, interning its endpoints into the arena by
// label so later AddEdge calls sharing an endpoint label reuse the same
// *Node. No de-duplication of edges is performed - callers are expected to
// add each edge once.
func (n *Network) AddEdge(e *Edge) {
	e.A = n.intern(e.A)
	e.B = n.intern(e.B)
	n.edges = append(n.edges, e)
}

func (n *Network) intern(node *Node) *Node {
	if existing, ok := n.nodesByLabel[node.Label]; ok {
		return existing
	}
	n.nodesByLabel[node.Label] = node
	return node
}

// Nodes returns every node in the network, in no particular order.
func (n *Network) Nodes() []*Node {
	nodes := make([]*Node, 0, len(n.nodesByLabel))
	for _, node := range n.nodesByLabel {
		nodes = append(nodes, node)
	}
	return nodes
}

// Edges returns every edge in the network, in insertion order.
func (n *Network) Edges() []*Edge {
	return n.edges
}

// Start returns the network's unique START node. Panics if none exists -
// a network without a START node is a construction bug, not a recoverable
// runtime condition.
func (n *Network) Start() *Node {
	for _, node := range n.nodesByLabel {
		if node.Kind == Start {
			return node
		}
	}
	panic("graph: network has no START node")
}

// End returns the set of END nodes in the network.
func (n *Network) End() []*Node {
	var ends []*Node
	for _, node := range n.nodesByLabel {
		if node.Kind == End {
			ends = append(ends, node)
		}
	}
	return ends
}

// ErrEdgeNotFound is returned by GetEdge when no edge connects the two
// given nodes.
type ErrEdgeNotFound struct {
	A, B Label
}

func (e *ErrEdgeNotFound) Error() string {
	return fmt.Sprintf("graph: no edge between %s and %s", e.A, e.B)
}

// ErrNodeNotFound is returned by GetNodeByLabel when no node carries the
// given label.
type ErrNodeNotFound struct {
	Label Label
}

func (e *ErrNodeNotFound) Error() string {
	return fmt.Sprintf("graph: no node labelled %s", e.Label)
}

// GetEdge returns the unique edge between a and b. Order-independent: the
// edge's identity is unordered on endpoints.
func (n *Network) GetEdge(a, b *Node) (*Edge, error) {
	for _, edge := range n.edges {
		if edge.Has(a) && edge.Has(b) {
			return edge, nil
		}
	}
	return nil, &ErrEdgeNotFound{A: a.Label, B: b.Label}
}

// GetNodeByLabel looks up a node by its label.
func (n *Network) GetNodeByLabel(label Label) (*Node, error) {
	node, ok := n.nodesByLabel[label]
	if !ok {
		return nil, &ErrNodeNotFound{Label: label}
	}
	return node, nil
}

// GetEdgeByLabel looks up an edge by its endpoints' labels.
func (n *Network) GetEdgeByLabel(a, b Label) (*Edge, error) {
	nodeA, err := n.GetNodeByLabel(a)
	if err != nil {
		return nil, err
	}
	nodeB, err := n.GetNodeByLabel(b)
	if err != nil {
		return nil, err
	}
	return n.GetEdge(nodeA, nodeB)
}

func (n *Network) String() string {
	return fmt.Sprintf("Network(%d edges, %d nodes)", len(n.edges), len(n.nodesByLabel))
}
