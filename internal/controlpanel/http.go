package controlpanel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/warble/internal/transport"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const httpShutdownTimeout = 5 * time.Second

type stateResponse struct {
	State    string `json:"state"`
	Device   string `json:"device,omitempty"`
	StreamID string `json:"streamId,omitempty"`
}

// StreamDescriber identifies the output stream being controlled.
type StreamDescriber interface {
	DeviceName() string
	ID() uuid.UUID
}

type HTTPOption func(*HTTP)

// DescribeStream adds the device and stream id to the state reports.
func DescribeStream(stream StreamDescriber) HTTPOption {
	return func(p *HTTP) { p.stream = stream }
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTP exposes the transport over a small JSON API:
//
//	GET  /healthz
//	GET  /state
//	POST /play
//	POST /pause
//	POST /exit     ends the presentation, see Quit
//	POST /{other}  404
//	GET  /metrics
type HTTP struct {
	commander
	state    StateReader
	stream   StreamDescriber
	router   chi.Router
	quit     chan struct{}
	quitOnce sync.Once
}

// NewHTTP takes ownership of sender.
func NewHTTP(sender *transport.Sender, state StateReader, logger *slog.Logger, opts ...HTTPOption) *HTTP {
	if logger == nil {
		logger = slog.Default()
	}
	p := &HTTP{
		commander: commander{panel: "http", sender: sender, logger: logger.With("panel", "http")},
		state:     state,
		quit:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(p.logRequests)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", p.health)
	r.Get("/state", p.getState)
	r.Post("/exit", p.exit)
	r.Post("/{command}", p.command)
	r.Handle("/metrics", promhttp.Handler())

	p.router = r
	return p
}

func (p *HTTP) Handler() http.Handler {
	return p.router
}

// Quit is closed once POST /exit has been received.
func (p *HTTP) Quit() <-chan struct{} {
	return p.quit
}

// Serve listens on addr until ctx is done or POST /exit is received.
// The sender is closed when Serve returns.
func (p *HTTP) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		p.close()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return p.ServeListener(ctx, listener)
}

func (p *HTTP) ServeListener(ctx context.Context, listener net.Listener) error {
	defer p.close()

	srv := &http.Server{
		Handler:           p.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      20 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		p.logger.Info("control panel listening", "addr", listener.Addr().String())
		serveErr <- srv.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("control panel server failed: %w", err)
	case <-ctx.Done():
	case <-p.quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down control panel: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------------

func (p *HTTP) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (p *HTTP) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, p.stateResponse())
}

func (p *HTTP) command(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "command")
	msg, ok := transport.ParseMessage(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("unknown command %q", name)})
		return
	}
	if msg == transport.Exit {
		p.exit(w, r)
		return
	}

	if err := p.send(msg); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	// The controller applies the message asynchronously, so the state
	// reported here may not include it yet.
	writeJSON(w, http.StatusAccepted, p.stateResponse())
}

func (p *HTTP) stateResponse() stateResponse {
	resp := stateResponse{State: p.state.State().String()}
	if p.stream != nil {
		resp.Device = p.stream.DeviceName()
		resp.StreamID = p.stream.ID().String()
	}
	return resp
}

func (p *HTTP) exit(w http.ResponseWriter, r *http.Request) {
	p.quitOnce.Do(func() {
		p.quitRequested()
		close(p.quit)
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "exiting"})
}

func (p *HTTP) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		p.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"requestID", chimw.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
