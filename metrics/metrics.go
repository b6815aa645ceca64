// Package metrics collects mission telemetry for the control plane's
// GET /telemetry endpoint, written from the engine's single event-loop goroutine
// and read concurrently by HTTP handlers.
package metrics

import (
	"math"
	"sync/atomic"
	"time"
)

// atomicFloat64 is a lock-free float64 box, CAS-looped over its bit
// pattern via sync/atomic's uint64 ops. Telemetry is the only caller: it
// needs three float fields (distance, mission-start time, last mission
// duration) written from the engine's event-loop goroutine and read
// concurrently by HTTP handlers, which doesn't justify a mutex.
type atomicFloat64 struct {
	bits uint64
}

func newAtomicFloat64(val float64) *atomicFloat64 {
	return &atomicFloat64{bits: math.Float64bits(val)}
}

// AtomicRead returns the current value, synchronized with main memory.
func (af *atomicFloat64) AtomicRead() float64 {
	return math.Float64frombits(atomic.LoadUint64(&af.bits))
}

// AtomicAdd adds addend to the value. If a concurrent writer raced this
// one, the CAS fails, the value is left unchanged and succeeded is false;
// RecordHop retries until the CAS succeeds.
func (af *atomicFloat64) AtomicAdd(addend float64) (newVal float64, succeeded bool) {
	old := af.AtomicRead()
	newVal = old + addend
	succeeded = atomic.CompareAndSwapUint64(&af.bits, math.Float64bits(old), math.Float64bits(newVal))
	return
}

// AtomicSet unconditionally overwrites the value.
func (af *atomicFloat64) AtomicSet(newVal float64) {
	atomic.StoreUint64(&af.bits, math.Float64bits(newVal))
}

// Telemetry accumulates distance and node-visit counters across missions.
// All fields are safe for concurrent read; writes are expected only from
// the event-loop goroutine.
type Telemetry struct {
	distanceMeters  *atomicFloat64
	nodesVisited    int64          // atomic
	missionsRun     int64          // atomic
	missionStarted  *atomicFloat64 // unix seconds, 0 if no mission running
	lastMissionTook *atomicFloat64 // seconds
}

// New returns a zeroed telemetry set.
func New() *Telemetry {
	return &Telemetry{
		distanceMeters:  newAtomicFloat64(0),
		missionStarted:  newAtomicFloat64(0),
		lastMissionTook: newAtomicFloat64(0),
	}
}

// RecordHop adds a traversed edge's distance to the running total and
// increments the node-visit counter.
func (t *Telemetry) RecordHop(distanceMeters float64) {
	for {
		if _, ok := t.distanceMeters.AtomicAdd(distanceMeters); ok {
			break
		}
	}
	atomic.AddInt64(&t.nodesVisited, 1)
}

// MissionStarted marks the beginning of a mission at now (unix seconds).
func (t *Telemetry) MissionStarted(now time.Time) {
	t.missionStarted.AtomicSet(float64(now.Unix()))
	atomic.AddInt64(&t.missionsRun, 1)
}

// MissionEnded records how long the just-finished mission took.
func (t *Telemetry) MissionEnded(now time.Time) {
	started := t.missionStarted.AtomicRead()
	if started == 0 {
		return
	}
	t.lastMissionTook.AtomicSet(now.Sub(time.Unix(int64(started), 0)).Seconds())
	t.missionStarted.AtomicSet(0)
}

// Snapshot is a point-in-time, JSON-serializable copy of the telemetry
// state, served by the control plane's GET /telemetry endpoint.
type Snapshot struct {
	DistanceMeters     float64 `json:"distanceMeters"`
	NodesVisited       int64   `json:"nodesVisited"`
	MissionsRun        int64   `json:"missionsRun"`
	MissionInProgress  bool    `json:"missionInProgress"`
	LastMissionSeconds float64 `json:"lastMissionSeconds"`
}

// Snapshot reads a consistent-enough point-in-time copy of the telemetry.
// Individual fields may be read a moment apart under concurrent writers;
// this is acceptable for a non-authoritative display feed.
func (t *Telemetry) Snapshot() Snapshot {
	return Snapshot{
		DistanceMeters:     t.distanceMeters.AtomicRead(),
		NodesVisited:       atomic.LoadInt64(&t.nodesVisited),
		MissionsRun:        atomic.LoadInt64(&t.missionsRun),
		MissionInProgress:  t.missionStarted.AtomicRead() != 0,
		LastMissionSeconds: t.lastMissionTook.AtomicRead(),
	}
}
