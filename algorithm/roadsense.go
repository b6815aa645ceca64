// Package algorithm implements RoadSense, the top-level mission state
// machine: start -> drive-to-start -> plan -> turn -> follow -> reach ->
// repeat.
package algorithm

import (
	"log"
	"time"

	"ufobrain/actor"
	"ufobrain/eventbus"
	"ufobrain/graph"
	"ufobrain/listener"
	"ufobrain/metrics"
	"ufobrain/pathfinder"
)

// State is the explicit encoding of RoadSense's phase, kept alongside the
// flags (target/in_start_zone/is_moving/recalculation_required) the
// mission model names. State is derived, never stored independently of the
// flags, so it cannot drift out of sync with them.
type State int

const (
	Idle State = iota
	DrivingToStart
	Planning
	Turning
	Following
)

func (s State) String() string {
	switch s {
	case DrivingToStart:
		return "DrivingToStart"
	case Planning:
		return "Planning"
	case Turning:
		return "Turning"
	case Following:
		return "Following"
	default:
		return "Idle"
	}
}

// sleeper abstracts the 100ms no-line-found debounce so tests can run
// synchronously. New assigns time.Sleep, which satisfies it directly.
type sleeper func(time.Duration)

// RoadSense is the mission state machine. It implements listener.Callbacks
// and is wired against a eventbus.Receiver by Wire.
type RoadSense struct {
	listener.NoOp

	networkProvider graph.Provider
	network         *graph.Network
	actor           *actor.Actor
	logger          *log.Logger
	sleep           sleeper
	telemetry       *metrics.Telemetry

	// NoLineDebounce is the delay before recalculating after NO_LINE_FOUND,
	// a race workaround against firmware; kept configurable since its
	// necessity is environment-specific.
	NoLineDebounce time.Duration

	target                *graph.Node
	path                  []*graph.Node
	nodeIndex             int
	inStartZone           bool
	isMoving              bool
	recalculationRequired bool
	startTime             time.Time
}

// New constructs a fresh RoadSense over a newly-provided network. The actor
// starts parked on the network's START node.
func New(provider graph.Provider, sender interface {
	Turn(angle int16, snap bool) error
	FollowLine() error
	DestinationReached() error
}, logger *log.Logger) *RoadSense {
	if logger == nil {
		logger = log.New(log.Writer(), "roadsense: ", log.LstdFlags)
	}
	net := provider()
	return &RoadSense{
		networkProvider: provider,
		network:         net,
		actor:           actor.New(sender, net.Start()),
		logger:          logger,
		sleep:           time.Sleep,
		NoLineDebounce:  100 * time.Millisecond,
	}
}

// Name identifies this algorithm to the control plane.
func (r *RoadSense) Name() string { return "RoadSense" }

// SetTelemetry attaches a telemetry sink for mission distance/duration
// tracking. Optional - nil (the default) disables recording.
func (r *RoadSense) SetTelemetry(t *metrics.Telemetry) { r.telemetry = t }

// Network returns the live graph the algorithm is navigating - exposed so
// the control plane and vision updater can read/mutate it. Mutation must
// only happen on the engine's single event-loop goroutine.
func (r *RoadSense) Network() *graph.Network { return r.network }

// State reports the algorithm's current phase, derived from its flags.
func (r *RoadSense) State() State {
	switch {
	case r.target == nil:
		return Idle
	case r.inStartZone:
		return DrivingToStart
	case r.isMoving:
		return Following
	default:
		return Turning
	}
}

// Wire registers this algorithm's callbacks against recv.
func (r *RoadSense) Wire(recv *eventbus.Receiver) {
	listener.Wire(recv, r.network, r)
}

// Reset clears mission state and requests a fresh graph from the provider -
// required because the graph mutates in place and a second mission must
// start from a clean topology.
func (r *RoadSense) Reset() {
	r.target = nil
	r.nodeIndex = 0
	r.path = nil
	r.inStartZone = false
	r.isMoving = false
	r.recalculationRequired = false
	r.network = r.networkProvider()
	r.actor.SetCurrentOrLastNode(r.network.Start())
}

// OnStart begins a mission to target: records the target, enters the
// start zone, and follows the line to the physical START marker.
func (r *RoadSense) OnStart(target *graph.Node) {
	r.startTime = time.Now()
	if r.telemetry != nil {
		r.telemetry.MissionStarted(r.startTime)
	}
	r.inStartZone = true
	r.recalculationRequired = false
	r.target = target
	if err := r.actor.FollowToNextNode(); err != nil {
		r.logger.Printf("error: follow_line on start: %v", err)
		return
	}
	r.isMoving = true
	r.logger.Printf("started navigation to %s", target.Label)
}

// OnPointReached handles a POINT_REACHED event.
func (r *RoadSense) OnPointReached() {
	r.isMoving = false

	if r.inStartZone {
		r.logger.Printf("start point reached")
		r.inStartZone = false
		r.restart()
		return
	}

	if r.recalculationRequired {
		r.logger.Printf("recalculating path...")
		r.recalculationRequired = false
		r.restart()
		return
	}

	if r.telemetry != nil {
		if edge, err := r.network.GetEdge(r.path[r.nodeIndex], r.path[r.nodeIndex+1]); err == nil {
			r.telemetry.RecordHop(edge.Distance())
		}
	}
	r.nodeIndex++
	r.actor.SetCurrentOrLastNode(r.path[r.nodeIndex])
	r.logger.Printf("reached node %s", r.path[r.nodeIndex].Label)

	if r.actor.CurrentOrLastNode().Label == r.target.Label {
		r.onDestinationReached()
		return
	}
	r.turnToNextNode()
}

func (r *RoadSense) onDestinationReached() {
	if err := r.actor.DestinationReached(); err != nil {
		r.logger.Printf("error: destination_reached: %v", err)
	}
	if r.telemetry != nil {
		r.telemetry.MissionEnded(time.Now())
	}
	r.logger.Printf("destination %s reached in %s", r.target.Label, time.Since(r.startTime))
	r.target = nil
	r.nodeIndex = 0
	r.path = nil
}

// OnNextPointBlocked handles a NEXT_POINT_BLOCKED event. If the vehicle is
// still moving, the block is deferred - a RETURNING or POINT_REACHED event
// will follow once the firmware completes its autonomous return.
func (r *RoadSense) OnNextPointBlocked() {
	r.actor.OnNextNodeBlocked()
	if r.isMoving {
		r.logger.Printf("next point blocked, handling after returning")
		return
	}
	r.logger.Printf("next point blocked, recalculating path...")
	r.path[r.nodeIndex+1].Disabled = true
	r.restart()
}

// OnNoLineFound handles a NO_LINE_FOUND event: disables the missing
// segment, waits out the firmware debounce, and recalculates.
func (r *RoadSense) OnNoLineFound() {
	node1 := r.path[r.nodeIndex]
	node2 := r.path[r.nodeIndex+1]
	edge, err := r.network.GetEdge(node1, node2)
	if err != nil {
		r.logger.Printf("error: no edge between %s and %s: %v", node1.Label, node2.Label, err)
		return
	}
	edge.Disabled = true
	r.logger.Printf("line %s -> %s is missing, recalculating...", node1.Label, node2.Label)
	r.sleep(r.NoLineDebounce)
	r.restart()
}

// OnReturning handles a RETURNING event: marks the next node disabled and
// defers recalculation until the vehicle reports POINT_REACHED.
func (r *RoadSense) OnReturning() {
	r.path[r.nodeIndex+1].Disabled = true
	r.recalculationRequired = true
}

// OnAligned handles an ALIGNED event. hold=true pauses in Turning (e.g. to
// let an external collaborator like the vision updater act); hold=false
// resumes following the line.
func (r *RoadSense) OnAligned(hold bool) {
	r.logger.Printf("aligned, %s", map[bool]string{true: "holding", false: "proceed"}[hold])
	if hold {
		return
	}
	if err := r.actor.FollowToNextNode(); err != nil {
		r.logger.Printf("error: follow_line on aligned: %v", err)
		return
	}
	r.isMoving = true
}

// restart recomputes the path from the actor's current node to the target
// and issues a turn toward the first hop.
func (r *RoadSense) restart() {
	path, err := pathfinder.FindPath(r.network, r.actor.CurrentOrLastNode(), r.target)
	if err != nil {
		r.logger.Printf("error: %v, aborting mission", err)
		r.target = nil
		r.path = nil
		r.nodeIndex = 0
		return
	}
	r.path = path
	r.nodeIndex = 0
	r.logger.Printf("new path: %v", labels(r.path))
	r.turnToNextNode()
}

func (r *RoadSense) turnToNextNode() {
	onNode := r.path[r.nodeIndex]
	toNode := r.path[r.nodeIndex+1]
	if err := r.actor.TurnOnNode(onNode, toNode); err != nil {
		r.logger.Printf("error: turn_on_node %s -> %s: %v", onNode.Label, toNode.Label, err)
		return
	}
	r.logger.Printf("turn on %s to %s", onNode.Label, toNode.Label)
}

func labels(path []*graph.Node) []graph.Label {
	out := make([]graph.Label, len(path))
	for i, n := range path {
		out[i] = n.Label
	}
	return out
}
