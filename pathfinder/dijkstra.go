// Package pathfinder computes least-cost routes through a graph.Network,
// honoring dynamic edge/node disablement and the soft node-traversal
// penalty that discourages routing through intermediate junctions.
package pathfinder

import (
	"container/heap"
	"errors"
	"math"

	"ufobrain/graph"
)

// ErrInvalidEndpoint is returned when start is not in the graph, or end is
// not one of the graph's END nodes.
var ErrInvalidEndpoint = errors.New("pathfinder: invalid start or end node")

// ErrNoPathFound is returned when no finite-weight route connects start to
// end.
var ErrNoPathFound = errors.New("pathfinder: no path found")

// FindPath returns the least-cost route from start to end, as an ordered
// sequence of nodes beginning at start and ending at end. end must carry
// graph.End kind - this check is never weakened, even for mid-mission
// re-planning against the same target, since the target node retains its
// END kind for the life of the mission.
//
// Dijkstra runs over the undirected graph induced by the edge set, using
// graph.Edge.Weight for base cost plus an additional NodePenaltyWeight
// added to every edge whose endpoints are both interior nodes (neither
// start nor end) - this discourages routing through intermediate junctions
// when a more direct edge exists. Infinite-weight edges (disabled edges or
// edges touching a disabled node) are excluded from relaxation entirely.
func FindPath(net *graph.Network, start, end *graph.Node) ([]*graph.Node, error) {
	if !contains(net.Nodes(), start) || !isEnd(net, end) {
		return nil, ErrInvalidEndpoint
	}

	adjacency := buildAdjacency(net)

	dist := map[graph.Label]float64{start.Label: 0}
	prev := map[graph.Label]*graph.Node{}
	visited := map[graph.Label]bool{}

	pq := &priorityQueue{{node: start, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		current := heap.Pop(pq).(pqItem)
		if visited[current.node.Label] {
			continue
		}
		visited[current.node.Label] = true

		if current.node.Label == end.Label {
			break
		}

		for _, edge := range adjacency[current.node.Label] {
			neighbor := edge.Other(current.node)
			if visited[neighbor.Label] {
				continue
			}
			weight := edgeWeight(edge, start, end)
			if math.IsInf(weight, 1) {
				continue
			}
			candidate := dist[current.node.Label] + weight
			existing, seen := dist[neighbor.Label]
			if !seen || candidate < existing {
				dist[neighbor.Label] = candidate
				prev[neighbor.Label] = current.node
				heap.Push(pq, pqItem{node: neighbor, dist: candidate})
			}
		}
	}

	if _, ok := dist[end.Label]; !ok {
		return nil, ErrNoPathFound
	}

	return reconstruct(prev, start, end), nil
}

// edgeWeight is graph.Edge.Weight plus the soft node-traversal penalty for
// edges interior to the route (neither endpoint is the mission's start or
// end node).
func edgeWeight(e *graph.Edge, start, end *graph.Node) float64 {
	weight := e.Weight()
	if math.IsInf(weight, 1) {
		return weight
	}
	aIsTerminal := e.A.Label == start.Label || e.A.Label == end.Label
	bIsTerminal := e.B.Label == start.Label || e.B.Label == end.Label
	if !aIsTerminal && !bIsTerminal {
		weight += graph.NodePenaltyWeight
	}
	return weight
}

func buildAdjacency(net *graph.Network) map[graph.Label][]*graph.Edge {
	adjacency := make(map[graph.Label][]*graph.Edge)
	for _, e := range net.Edges() {
		adjacency[e.A.Label] = append(adjacency[e.A.Label], e)
		adjacency[e.B.Label] = append(adjacency[e.B.Label], e)
	}
	return adjacency
}

func reconstruct(prev map[graph.Label]*graph.Node, start, end *graph.Node) []*graph.Node {
	path := []*graph.Node{end}
	for path[len(path)-1].Label != start.Label {
		next := prev[path[len(path)-1].Label]
		path = append(path, next)
	}
	// reverse in place
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func contains(nodes []*graph.Node, target *graph.Node) bool {
	for _, n := range nodes {
		if n.Label == target.Label {
			return true
		}
	}
	return false
}

func isEnd(net *graph.Network, node *graph.Node) bool {
	for _, e := range net.End() {
		if e.Label == node.Label {
			return true
		}
	}
	return false
}

// pqItem is a node queued by its tentative distance from start.
type pqItem struct {
	node *graph.Node
	dist float64
}

// priorityQueue is a container/heap min-heap over pqItem.dist. Ties break
// on label for deterministic iteration order; callers must not depend on
// this specific tie-break.
type priorityQueue []pqItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	return pq[i].node.Label < pq[j].node.Label
}
func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(pqItem))
}
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
