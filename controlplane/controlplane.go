// Package controlplane exposes the HTTP/WebSocket operator surface:
// algorithm selection, network editing, direct manual commands, and a
// monitoring feed of engine log events, routed with github.com/gorilla/mux.
package controlplane

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"ufobrain/engine"
	"ufobrain/graph"
	"ufobrain/metrics"
)

// Version is reported by GET /version.
const Version = "1.0.0"

// AlgorithmFactory names and constructs a selectable navigation algorithm.
type AlgorithmFactory = engine.Factory

// Server wires an *engine.Engine to the HTTP/WS control surface. It holds no
// mutable mission state itself - every handler reads or mutates the engine
// and its active algorithm's network, which only ever run on the engine's
// single event-loop goroutine; handlers here only schedule calls into it via
// the engine's already-synchronous methods.
type Server struct {
	eng          *engine.Engine
	registry     map[string]AlgorithmFactory
	telemetry    *metrics.Telemetry
	fileProvider *graph.FileProvider
	hub          *Hub
	logger       *log.Logger
}

// New builds a Server. fileProvider may be nil, in which case PUT /network
// edits are rejected (the engine was started without a persisted topology).
func New(eng *engine.Engine, registry map[string]AlgorithmFactory, telemetry *metrics.Telemetry, fileProvider *graph.FileProvider, hub *Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "controlplane: ", log.LstdFlags)
	}
	if hub == nil {
		hub = NewHub()
	}
	return &Server{
		eng:          eng,
		registry:     registry,
		telemetry:    telemetry,
		fileProvider: fileProvider,
		hub:          hub,
		logger:       logger,
	}
}

// Hub returns the monitoring broadcaster, so callers can install it as the
// output of the engine's and codec's loggers.
func (s *Server) Hub() *Hub { return s.hub }

// Router builds the mux.Router serving the operator HTTP/WS surface,
// including the /version, /algorithm (GET) and /algorithms endpoints
// recorded in DESIGN.md as supplements.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	r.HandleFunc("/telemetry", s.handleTelemetry).Methods(http.MethodGet)

	r.HandleFunc("/algorithm", s.handleGetAlgorithm).Methods(http.MethodGet)
	r.HandleFunc("/algorithm", s.handleSetAlgorithm).Methods(http.MethodPut)
	r.HandleFunc("/algorithm/reset", s.handleResetAlgorithm).Methods(http.MethodPost)
	r.HandleFunc("/algorithms", s.handleListAlgorithms).Methods(http.MethodGet)

	r.HandleFunc("/network", s.handleGetNetwork).Methods(http.MethodGet)
	r.HandleFunc("/network", s.handleSetNetwork).Methods(http.MethodPut)

	r.HandleFunc("/vision/frame", s.handleVisionFrame).Methods(http.MethodPost)

	r.HandleFunc("/command/speed", s.handleSpeed).Methods(http.MethodPost)
	r.HandleFunc("/command/logging", s.handleLogging).Methods(http.MethodPost)
	r.HandleFunc("/command/destination-reached", s.handleDestinationReached).Methods(http.MethodPost)
	r.HandleFunc("/command/follow", s.handleFollow).Methods(http.MethodPost)
	r.HandleFunc("/command/turn", s.handleTurn).Methods(http.MethodPost)

	r.HandleFunc("/monitoring", s.serveMonitoring)

	return r
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

// handleTelemetry surfaces the metrics package's mission distance/duration
// counters as a supplementary read-only endpoint.
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if s.telemetry == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, s.telemetry.Snapshot())
}

// networkViewer is implemented by algorithms that expose the network they
// are navigating, e.g. *algorithm.RoadSense.
type networkViewer interface {
	Network() *graph.Network
}

func (s *Server) currentNetwork() (*graph.Network, bool) {
	alg := s.eng.Algorithm()
	if alg == nil {
		return nil, false
	}
	viewer, ok := alg.(networkViewer)
	if !ok {
		return nil, false
	}
	return viewer.Network(), true
}

func (s *Server) handleGetAlgorithm(w http.ResponseWriter, r *http.Request) {
	alg := s.eng.Algorithm()
	if alg == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": alg.Name()})
}

func (s *Server) handleListAlgorithms(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.registry))
	for name := range s.registry {
		names = append(names, name)
	}
	writeJSON(w, http.StatusOK, names)
}

// handleSetAlgorithm implements PUT /algorithm?name=<AlgorithmName|"">. An
// empty name disables navigation and enables manual control, mirroring
// _set_algorithm's nil-algorithm 204 path.
func (s *Server) handleSetAlgorithm(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		s.eng.ChangeAlgorithm(nil)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	factory, ok := s.registry[name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown algorithm %q", name), http.StatusBadRequest)
		return
	}
	s.eng.ChangeAlgorithm(factory)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetAlgorithm(w http.ResponseWriter, r *http.Request) {
	s.eng.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// handleGetNetwork implements GET /network, returning a {label: {x, y}}
// document of the current network's node positions.
func (s *Server) handleGetNetwork(w http.ResponseWriter, r *http.Request) {
	net, ok := s.currentNetwork()
	if !ok {
		net = s.eng.CreateNetwork()
	}
	writeJSON(w, http.StatusOK, graph.Positions(net))
}

// handleSetNetwork implements PUT /network: operator-edited coordinates are
// persisted to the backing file so the next Reset/restart picks them up.
// The live network is not mutated in place - only the engine's own
// event-loop goroutine may touch it, so a topology change takes effect on
// the next mission rather than mid-flight.
func (s *Server) handleSetNetwork(w http.ResponseWriter, r *http.Request) {
	if s.fileProvider == nil {
		http.Error(w, "network editing requires a --graph file", http.StatusNotImplemented)
		return
	}
	var positions map[graph.Label]graph.Position
	if err := json.NewDecoder(r.Body).Decode(&positions); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.fileProvider.Persist(positions); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleVisionFrame implements POST /vision/frame: the body is an
// already-detected frame (see vision.FrameDetections), run through the
// configured vision updater on the engine's own event-loop goroutine.
func (s *Server) handleVisionFrame(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch err := s.eng.SubmitVisionFrame(r.Context(), body); {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, engine.ErrVisionNotConfigured):
		http.Error(w, err.Error(), http.StatusNotImplemented)
	case errors.Is(err, engine.ErrNoActiveNetwork):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Speed int8 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.eng.Sender().SetSpeed(body.Speed); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogging(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.eng.Sender().SetDebugLogging(body.Enabled); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDestinationReached(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.Sender().DestinationReached(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.Sender().FollowLine(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Angle int16 `json:"angle"`
		Snap  bool  `json:"snap"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.eng.Sender().Turn(body.Angle, body.Snap); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
