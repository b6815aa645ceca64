// Command ufobrain is the navigation brain for an autonomous line-following
// vehicle: it speaks a framed serial protocol to the vehicle's firmware,
// runs the RoadSense mission state machine (or accepts manual control),
// and exposes an HTTP/WebSocket control plane for an operator.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"

	"ufobrain/algorithm"
	"ufobrain/config"
	"ufobrain/controlplane"
	"ufobrain/demo"
	"ufobrain/engine"
	"ufobrain/eventbus"
	"ufobrain/graph"
	"ufobrain/metrics"
	"ufobrain/vision"
)

// roadSenseFactory adapts algorithm.New to engine.Factory's signature.
func roadSenseFactory(telemetry *metrics.Telemetry) engine.Factory {
	return func(provider graph.Provider, sender *eventbus.Sender, logger *log.Logger) engine.Algorithm {
		rs := algorithm.New(provider, sender, logger)
		rs.SetTelemetry(telemetry)
		return rs
	}
}

func run() error {
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	hub := controlplane.NewHub()
	logWriter := io.MultiWriter(os.Stderr, hub)
	logger := log.New(logWriter, "ufobrain: ", log.LstdFlags)
	if cfg.Debug {
		logger.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	var provider graph.Provider = graph.DefaultProvider
	var fileProvider *graph.FileProvider
	if cfg.GraphFile != "" {
		fileProvider = graph.NewFileProvider(cfg.GraphFile)
		provider = fileProvider.Provide
	}

	telemetry := metrics.New()
	eng := engine.New(provider, logger)
	newRoadSense := roadSenseFactory(telemetry)
	registry := map[string]controlplane.AlgorithmFactory{"RoadSense": newRoadSense}

	if cfg.Vision {
		projector := vision.CalibratedProjector{
			OriginX:        cfg.CameraOriginX,
			OriginY:        cfg.CameraOriginY,
			MetersPerPixel: cfg.CameraMetersPerPixel,
		}
		eng.SetVisionUpdater(vision.NewUpdater(vision.JSONDetector{}, projector, logger))
	}

	ctrl := controlplane.New(eng, registry, telemetry, fileProvider, hub, logger)

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: ctrl.Router()}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Printf("control plane listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("control plane: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		return httpServer.Shutdown(context.Background())
	})

	if cfg.Demo {
		group.Go(func() error {
			return demo.Run(groupCtx, eng, cfg.Debug, cfg.Manual, newRoadSense, logger)
		})
	} else {
		port, err := openSerialPort(cfg)
		if err != nil {
			return fmt.Errorf("opening %s: %w", cfg.Bus, err)
		}
		defer port.Close()

		eng.Init(port, cfg.Manual, newRoadSense)
		if err := eng.Sender().SetDebugLogging(cfg.Debug); err != nil {
			logger.Printf("warning: set_debug_logging failed: %v", err)
		}

		group.Go(func() error { return eng.Run(groupCtx) })
	}

	return group.Wait()
}

// openSerialPort opens the configured serial device as an io.ReadWriteCloser
// for the codec. The concrete transport is an external collaborator (real
// hardware, never exercised here) - demo mode's in-memory bus is what this
// module's tests actually drive.
func openSerialPort(cfg *config.Config) (io.ReadWriteCloser, error) {
	mode := &serial.Mode{BaudRate: cfg.Baudrate}
	return serial.Open(cfg.Bus, mode)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
