// Package actor tracks the vehicle's logical heading across turns and
// translates graph moves into heading-aware motion commands.
package actor

import (
	"math"

	"ufobrain/graph"
)

// sender is the subset of eventbus.Sender the actor needs.
type sender interface {
	Turn(angle int16, snap bool) error
	FollowLine() error
	DestinationReached() error
}

// Actor is a stateful heading tracker. Initial heading is 0 degrees
// ("straight up" in the map frame).
type Actor struct {
	sender        sender
	headingDeg    float64
	currentOrLast *graph.Node
}

// New returns an actor starting at startNode with heading 0.
func New(s sender, startNode *graph.Node) *Actor {
	return &Actor{sender: s, currentOrLast: startNode}
}

// CurrentOrLastNode returns the node the vehicle is sitting on, or the
// last node it physically reached.
func (a *Actor) CurrentOrLastNode() *graph.Node {
	return a.currentOrLast
}

// SetCurrentOrLastNode updates the node the vehicle has most recently
// physically reached. Called by the algorithm after every POINT_REACHED.
func (a *Actor) SetCurrentOrLastNode(n *graph.Node) {
	a.currentOrLast = n
}

// HeadingDeg returns the actor's current absolute heading.
func (a *Actor) HeadingDeg() float64 {
	return a.headingDeg
}

// angleTo computes the absolute heading (degrees, 0 = "up") from on to to,
// using the map frame's "-90 and negated x" convention: atan2(dy, -dx)
// converted to degrees, then shifted by -90.
func angleTo(on, to *graph.Node) float64 {
	dx := -(to.Position.X - on.Position.X)
	dy := to.Position.Y - on.Position.Y
	return math.Atan2(dy, dx)*180/math.Pi - 90
}

// optimise returns the representative of current among {current, current+360,
// current-360} that minimizes the absolute difference to target. Idempotent
// when current == target.
func optimise(current, target float64) float64 {
	plain := math.Abs(target - current)
	plus := math.Abs(target - (current + 360))
	minus := math.Abs(target - (current - 360))

	switch {
	case plain <= plus && plain <= minus:
		return current
	case plus <= minus:
		return current + 360
	default:
		return current - 360
	}
}

// TurnOnNode computes the absolute target heading for moving from "on" to
// "to", emits a TURN command for the shortest signed delta from the
// current heading, and stores the target as the new heading.
func (a *Actor) TurnOnNode(on, to *graph.Node) error {
	target := angleTo(on, to)
	representative := optimise(a.headingDeg, target)
	delta := int16(math.Round(target - representative))

	if err := a.sender.Turn(delta, true); err != nil {
		return err
	}
	a.headingDeg = target
	return nil
}

// OnNextNodeBlocked flips the actor's internal heading model by 180
// degrees: the vehicle has physically turned around to return, autonomously,
// under firmware control. No command is emitted here.
func (a *Actor) OnNextNodeBlocked() {
	a.headingDeg += 180
}

// FollowToNextNode emits FOLLOW_LINE.
func (a *Actor) FollowToNextNode() error {
	return a.sender.FollowLine()
}

// DestinationReached emits DESTINATION_REACHED.
func (a *Actor) DestinationReached() error {
	return a.sender.DestinationReached()
}
