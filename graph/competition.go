package graph

// Node labels in the competition topology. START is the unique start node;
// A, B, C are the selectable END nodes; W, X, Y, Z are intermediate
// waypoints.
const (
	LabelStart Label = "START"
	LabelW     Label = "W"
	LabelX     Label = "X"
	LabelY     Label = "Y"
	LabelZ     Label = "Z"
	LabelA     Label = "A"
	LabelB     Label = "B"
	LabelC     Label = "C"
)

// CompetitionTopology returns the fixed edge list of the embedded
// competition graph, independent of node coordinates. Shared by
// NewCompetitionNetwork and graph/jsonprovider.go so the JSON-backed
// provider and the hardcoded default always agree on connectivity.
var CompetitionTopology = [][2]Label{
	{LabelStart, LabelW},
	{LabelStart, LabelX},
	{LabelStart, LabelZ},
	{LabelW, LabelA},
	{LabelW, LabelX},
	{LabelX, LabelY},
	{LabelX, LabelZ},
	{LabelX, LabelA},
	{LabelY, LabelA},
	{LabelY, LabelB},
	{LabelY, LabelC},
	{LabelY, LabelZ},
	{LabelZ, LabelC},
	{LabelA, LabelB},
	{LabelB, LabelC},
}

// CompetitionPositions are the embedded default coordinates for the
// competition topology.
var CompetitionPositions = map[Label]Position{
	LabelStart: {X: 0, Y: 0},
	LabelW:     {X: 2, Y: 1},
	LabelX:     {X: 0.5, Y: 1},
	LabelY:     {X: 0, Y: 2.5},
	LabelZ:     {X: -2, Y: 1},
	LabelA:     {X: 2, Y: 4},
	LabelB:     {X: 0, Y: 5},
	LabelC:     {X: -2, Y: 4},
}

// NewCompetitionNetwork builds the hardcoded competition topology using the
// given per-label positions. This is the default embedded provider: it
// hard-codes the competition topology's connectivity, but accepts
// positions so a persisted/measured coordinate set (see graph.FileProvider)
// can be substituted without duplicating the edge list.
func NewCompetitionNetwork(positions map[Label]Position) *Network {
	kindOf := func(label Label) Kind {
		switch label {
		case LabelStart:
			return Start
		case LabelA, LabelB, LabelC:
			return End
		default:
			return Normal
		}
	}

	net := NewNetwork()
	for _, pair := range CompetitionTopology {
		a := &Node{Label: pair[0], Kind: kindOf(pair[0]), Position: positions[pair[0]]}
		b := &Node{Label: pair[1], Kind: kindOf(pair[1]), Position: positions[pair[1]]}
		net.AddEdge(&Edge{A: a, B: b})
	}
	return net
}

// DefaultProvider is the embedded competition-topology provider: a nullary
// factory returning a fresh graph with the hardcoded default coordinates.
func DefaultProvider() *Network {
	return NewCompetitionNetwork(CompetitionPositions)
}
