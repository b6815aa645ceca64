// Package engine owns the lifecycle of the codec/bus pair and the active
// navigation algorithm.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"ufobrain/codec"
	"ufobrain/eventbus"
	"ufobrain/graph"
	"ufobrain/vision"
	"ufobrain/wire"
)

// ErrVisionNotConfigured is returned by SubmitVisionFrame when no vision
// updater was set via SetVisionUpdater.
var ErrVisionNotConfigured = errors.New("engine: vision not configured")

// ErrNoActiveNetwork is returned by SubmitVisionFrame when the active
// algorithm (or manual control, with none active) exposes no network to
// mutate.
var ErrNoActiveNetwork = errors.New("engine: no active network")

// networkOwner is satisfied by an Algorithm that exposes the network it is
// navigating, e.g. *algorithm.RoadSense. Defined here, at the point of use,
// since Algorithm itself must stay free of vision-specific methods.
type networkOwner interface {
	Network() *graph.Network
}

// Algorithm is the set of operations the engine needs from a navigation
// algorithm, satisfied by *algorithm.RoadSense.
type Algorithm interface {
	Name() string
	Wire(recv *eventbus.Receiver)
	Reset()
}

// Factory builds a fresh Algorithm instance bound to provider, sender and
// logger - the engine calls this each time ChangeAlgorithm selects a
// concrete algorithm type, then attaches it to the receiver via Wire.
type Factory func(provider graph.Provider, sender *eventbus.Sender, logger *log.Logger) Algorithm

// Engine wires a transport to a sender/receiver pair and an optional
// algorithm, and runs the codec's read loop until the transport closes or
// the context is cancelled.
type Engine struct {
	networkProvider graph.Provider
	logger          *log.Logger

	sender   *eventbus.Sender
	receiver *eventbus.Receiver
	cdc      *codec.Codec

	algorithm Algorithm
	manual    bool

	visionUpdater *vision.Updater
}

// New returns an engine with a sender/receiver pair bound to a log-only
// placeholder bus, so commands sent before Init attaches a real transport
// are logged rather than lost.
func New(provider graph.Provider, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.Writer(), "engine: ", log.LstdFlags)
	}
	return &Engine{
		networkProvider: provider,
		logger:          logger,
		sender:          eventbus.NewSender(logTransport{logger}),
		receiver:        eventbus.NewReceiver(noopSubscriber{}, logger),
	}
}

// Init attaches a real transport and, unless manual is true, starts the
// default RoadSense algorithm against it. The codec's read loop is not
// started until Run is called.
func (e *Engine) Init(rw interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)
}, manual bool, newRoadSense Factory) {
	e.manual = manual
	e.cdc = codec.New(rw, e.logger)
	e.sender.SetBus(e.cdc)
	e.receiver = eventbus.NewReceiver(e.cdc, e.logger)

	if manual {
		e.logger.Printf("manual control enabled, no algorithm started")
		return
	}
	e.logger.Printf("starting algorithm")
	e.algorithm = newRoadSense(e.networkProvider, e.sender, e.logger)
	e.algorithm.Wire(e.receiver)
	e.logger.Printf("engine initialised")
}

// ChangeAlgorithm replaces the active algorithm. Passing a nil factory
// disables navigation and enables manual control.
func (e *Engine) ChangeAlgorithm(newAlgorithm Factory) {
	if e.algorithm != nil {
		e.logger.Printf("stopping current algorithm %s", e.algorithm.Name())
		e.algorithm = nil
	}
	if newAlgorithm == nil {
		e.logger.Printf("no algorithm specified, manual control enabled")
		e.manual = true
		return
	}
	e.manual = false
	e.algorithm = newAlgorithm(e.networkProvider, e.sender, e.logger)
	e.algorithm.Wire(e.receiver)
	e.logger.Printf("changed algorithm to %s", e.algorithm.Name())
}

// Algorithm returns the active algorithm, or nil under manual control.
func (e *Engine) Algorithm() Algorithm { return e.algorithm }

// SetVisionUpdater attaches the graph updater run by SubmitVisionFrame.
// Passing nil disables the /vision/frame endpoint.
func (e *Engine) SetVisionUpdater(u *vision.Updater) {
	e.visionUpdater = u
}

// SubmitVisionFrame runs a vision update cycle against the active
// algorithm's network, scheduled onto the codec's dispatch goroutine via
// Codec.Go so it never interleaves with wire-driven algorithm mutations.
// It blocks until the update completes or ctx is cancelled.
func (e *Engine) SubmitVisionFrame(ctx context.Context, frame []byte) error {
	if e.visionUpdater == nil {
		return ErrVisionNotConfigured
	}
	owner, ok := e.algorithm.(networkOwner)
	if !ok {
		return ErrNoActiveNetwork
	}

	result := make(chan error, 1)
	if err := e.cdc.Go(ctx, func() {
		result <- e.visionUpdater.Update(owner.Network(), frame)
	}); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sender exposes the engine's typed command sender, for manual control and
// the control plane's direct-command endpoints.
func (e *Engine) Sender() *eventbus.Sender { return e.sender }

// CreateNetwork returns a fresh network from the configured provider,
// independent of whatever graph the active algorithm is navigating.
func (e *Engine) CreateNetwork() *graph.Network { return e.networkProvider() }

// Reset resets the active algorithm's mission state.
func (e *Engine) Reset() {
	e.logger.Printf("resetting engine")
	if e.algorithm != nil {
		e.algorithm.Reset()
	}
	e.logger.Printf("engine reset complete")
}

// Run starts the codec's read loop under an errgroup so its terminal error
// (transport closed, or ctx cancellation) is observable by the caller
// alongside any other supervised goroutines.
func (e *Engine) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	e.cdc.Start(groupCtx)
	group.Go(func() error {
		err := <-e.cdc.Err()
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return fmt.Errorf("engine: codec read loop: %w", err)
	})
	return group.Wait()
}

// logTransport is the placeholder bus used before Init attaches a real
// transport: it only logs, mirroring LogUARTBus.
type logTransport struct {
	logger *log.Logger
}

func (l logTransport) Send(cmd wire.CommandID, payload []byte) error {
	l.logger.Printf("command %s payload=%x (no transport attached)", cmd, payload)
	return nil
}

// noopSubscriber satisfies eventbus's subscriber requirement before a real
// codec is attached; it never calls its handler.
type noopSubscriber struct{}

func (noopSubscriber) Subscribe(codec.Handler) {}
