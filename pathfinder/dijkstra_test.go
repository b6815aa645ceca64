package pathfinder

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ufobrain/graph"
)

func labelsOf(path []*graph.Node) []graph.Label {
	labels := make([]graph.Label, len(path))
	for i, n := range path {
		labels[i] = n.Label
	}
	return labels
}

func nodeFor(net *graph.Network, label graph.Label) *graph.Node {
	n, err := net.GetNodeByLabel(label)
	if err != nil {
		panic(err)
	}
	return n
}

func TestFindPathCompetitionScenarios(t *testing.T) {
	Convey("Given the unmodified competition network, routing to B", t, func() {
		net := graph.DefaultProvider()
		b := nodeFor(net, graph.LabelB)

		path, err := FindPath(net, net.Start(), b)

		So(err, ShouldBeNil)
		So(labelsOf(path), ShouldResemble, []graph.Label{
			graph.LabelStart, graph.LabelX, graph.LabelY, graph.LabelB,
		})
	})

	Convey("Given node X disabled, routing to B", t, func() {
		net := graph.DefaultProvider()
		b := nodeFor(net, graph.LabelB)
		nodeFor(net, graph.LabelX).Disabled = true

		path, err := FindPath(net, net.Start(), b)

		So(err, ShouldBeNil)
		So(labelsOf(path), ShouldResemble, []graph.Label{
			graph.LabelStart, graph.LabelZ, graph.LabelY, graph.LabelB,
		})
	})

	Convey("Given edge X-Y disabled, routing to B", t, func() {
		net := graph.DefaultProvider()
		b := nodeFor(net, graph.LabelB)
		xy, err := net.GetEdgeByLabel(graph.LabelX, graph.LabelY)
		So(err, ShouldBeNil)
		xy.Disabled = true

		path, findErr := FindPath(net, net.Start(), b)

		So(findErr, ShouldBeNil)
		So(labelsOf(path), ShouldResemble, []graph.Label{
			graph.LabelStart, graph.LabelX, graph.LabelA, graph.LabelB,
		})
	})

	Convey("Given edge X-Y disabled and edge X-A obstructed, routing to B", t, func() {
		net := graph.DefaultProvider()
		b := nodeFor(net, graph.LabelB)
		xy, _ := net.GetEdgeByLabel(graph.LabelX, graph.LabelY)
		xy.Disabled = true
		xa, _ := net.GetEdgeByLabel(graph.LabelX, graph.LabelA)
		xa.Obstructed = true

		path, err := FindPath(net, net.Start(), b)

		So(err, ShouldBeNil)
		So(labelsOf(path), ShouldResemble, []graph.Label{
			graph.LabelStart, graph.LabelZ, graph.LabelY, graph.LabelB,
		})
	})

	Convey("Given edge X-Y disabled, edge X-A obstructed, and node Z disabled, routing to B", t, func() {
		net := graph.DefaultProvider()
		b := nodeFor(net, graph.LabelB)
		xy, _ := net.GetEdgeByLabel(graph.LabelX, graph.LabelY)
		xy.Disabled = true
		xa, _ := net.GetEdgeByLabel(graph.LabelX, graph.LabelA)
		xa.Obstructed = true
		nodeFor(net, graph.LabelZ).Disabled = true

		path, err := FindPath(net, net.Start(), b)

		So(err, ShouldBeNil)
		So(labelsOf(path), ShouldResemble, []graph.Label{
			graph.LabelStart, graph.LabelW, graph.LabelA, graph.LabelB,
		})
	})
}

func TestFindPathBoundaries(t *testing.T) {
	Convey("Given a network with every edge disabled", t, func() {
		net := graph.DefaultProvider()
		for _, e := range net.Edges() {
			e.Disabled = true
		}
		b := nodeFor(net, graph.LabelB)

		_, err := FindPath(net, net.Start(), b)

		So(err, ShouldEqual, ErrNoPathFound)
	})

	Convey("Given a START node with every incident edge disabled", t, func() {
		net := graph.NewNetwork()
		start := &graph.Node{Label: graph.LabelStart, Kind: graph.Start}
		end := &graph.Node{Label: graph.LabelA, Kind: graph.End}
		w := &graph.Node{Label: graph.LabelW, Kind: graph.Normal}
		net.AddEdge(&graph.Edge{A: start, B: w, Disabled: true})
		net.AddEdge(&graph.Edge{A: w, B: end})

		_, err := FindPath(net, net.Start(), net.End()[0])

		So(err, ShouldEqual, ErrNoPathFound)
	})

	Convey("Given an end argument that is not an END node", t, func() {
		net := graph.DefaultProvider()
		notEnd := nodeFor(net, graph.LabelW)

		_, err := FindPath(net, net.Start(), notEnd)

		So(err, ShouldEqual, ErrInvalidEndpoint)
	})
}
