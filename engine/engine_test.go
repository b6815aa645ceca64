package engine

import (
	"context"
	"log"
	"net"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"ufobrain/algorithm"
	"ufobrain/eventbus"
	"ufobrain/graph"
	"ufobrain/vision"
)

func roadSenseFactory(provider graph.Provider, sender *eventbus.Sender, logger *log.Logger) Algorithm {
	return algorithm.New(provider, sender, logger)
}

func TestEngineLifecycle(t *testing.T) {
	Convey("Given a fresh engine with no transport attached", t, func() {
		e := New(graph.DefaultProvider, nil)

		So(e.Algorithm(), ShouldBeNil)

		Convey("Init without manual control starts RoadSense against a transport", func() {
			client, server := net.Pipe()
			defer client.Close()
			defer server.Close()

			e.Init(server, false, roadSenseFactory)

			So(e.Algorithm(), ShouldNotBeNil)
			So(e.Algorithm().Name(), ShouldEqual, "RoadSense")
		})

		Convey("Init with manual control leaves no algorithm active", func() {
			client, server := net.Pipe()
			defer client.Close()
			defer server.Close()

			e.Init(server, true, roadSenseFactory)

			So(e.Algorithm(), ShouldBeNil)
		})

		Convey("ChangeAlgorithm(nil) disables navigation", func() {
			client, server := net.Pipe()
			defer client.Close()
			defer server.Close()

			e.Init(server, false, roadSenseFactory)
			e.ChangeAlgorithm(nil)

			So(e.Algorithm(), ShouldBeNil)
		})

		Convey("Run returns once the context is cancelled", func() {
			client, server := net.Pipe()
			defer client.Close()
			defer server.Close()

			e.Init(server, true, nil)

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			err := e.Run(ctx)

			So(err, ShouldBeNil)
		})
	})
}

func TestSubmitVisionFrame(t *testing.T) {
	Convey("Given an engine with no vision updater configured", t, func() {
		e := New(graph.DefaultProvider, nil)
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()
		e.Init(server, false, roadSenseFactory)

		err := e.SubmitVisionFrame(context.Background(), []byte(`{}`))

		So(err, ShouldEqual, ErrVisionNotConfigured)
	})

	Convey("Given an engine configured for vision but with no active algorithm", t, func() {
		e := New(graph.DefaultProvider, nil)
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()
		e.Init(server, true, roadSenseFactory)
		e.SetVisionUpdater(vision.NewUpdater(vision.JSONDetector{}, vision.CalibratedProjector{}, nil))

		err := e.SubmitVisionFrame(context.Background(), []byte(`{}`))

		So(err, ShouldEqual, ErrNoActiveNetwork)
	})

	Convey("Given an engine running with vision configured and an active algorithm", t, func() {
		e := New(graph.DefaultProvider, nil)
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()
		e.Init(server, false, roadSenseFactory)
		e.SetVisionUpdater(vision.NewUpdater(vision.JSONDetector{}, vision.CalibratedProjector{MetersPerPixel: 1}, nil))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		runDone := make(chan error, 1)
		go func() { runDone <- e.Run(ctx) }()

		Convey("an empty frame is a no-op update that completes without error", func() {
			err := e.SubmitVisionFrame(ctx, []byte(`{"nodes":[],"obstacles":[]}`))

			So(err, ShouldBeNil)
		})

		Convey("a malformed frame surfaces the detector's decode error", func() {
			err := e.SubmitVisionFrame(ctx, []byte("not json"))

			So(err, ShouldNotBeNil)
		})
	})
}
