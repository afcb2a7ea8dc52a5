// Package http implements the daemon's HTTP API: daemon status, include
// graph export, path resolution, manual reloads and pairing. The
// WebSocket bridge mounts at /ws so one port serves both surfaces.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/declview/hotview/internal/domain"
	"github.com/declview/hotview/internal/domain/events"
	"github.com/declview/hotview/internal/pairing"
	"github.com/declview/hotview/internal/registry"
	"github.com/declview/hotview/internal/security"
	"github.com/declview/hotview/internal/server/http/middleware"
)

// StatusFunc supplies the payload for /api/status.
type StatusFunc func() events.StatusResponsePayload

// GraphFunc supplies the include graph for /api/graph.
type GraphFunc func() *registry.Graph

// ResolveFunc maps a runtime location to a source path for /api/resolve.
type ResolveFunc func(location string) (string, bool)

// ReloadFunc queues a manual reload for /api/reload. An empty resource
// reloads every registered root.
type ReloadFunc func(resource string) error

// Server is the HTTP API server.
type Server struct {
	addr          string
	httpServer    *http.Server
	originChecker *security.OriginChecker
	pairLimiter   *middleware.RateLimiter

	statusFn  StatusFunc
	graphFn   GraphFunc
	resolveFn ResolveFunc
	reloadFn  ReloadFunc
	wsHandler http.HandlerFunc
	qr        *pairing.QRGenerator
}

// New creates an HTTP server for host:port.
func New(host string, port int, checker *security.OriginChecker) *Server {
	return &Server{
		addr:          fmt.Sprintf("%s:%d", host, port),
		originChecker: checker,
	}
}

// SetStatusFunc sets the provider for /api/status.
func (s *Server) SetStatusFunc(fn StatusFunc) {
	s.statusFn = fn
}

// SetGraphFunc sets the provider for /api/graph.
func (s *Server) SetGraphFunc(fn GraphFunc) {
	s.graphFn = fn
}

// SetResolveFunc sets the resolver for /api/resolve.
func (s *Server) SetResolveFunc(fn ResolveFunc) {
	s.resolveFn = fn
}

// SetReloadFunc sets the reload trigger for /api/reload.
func (s *Server) SetReloadFunc(fn ReloadFunc) {
	s.reloadFn = fn
}

// SetWebSocketHandler mounts the WebSocket upgrade handler at /ws.
func (s *Server) SetWebSocketHandler(h http.HandlerFunc) {
	s.wsHandler = h
}

// SetPairingGenerator enables the /api/pair endpoints.
func (s *Server) SetPairingGenerator(qr *pairing.QRGenerator) {
	s.qr = qr
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler builds the routed handler. Exposed so tests can serve it
// without binding a port.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/graph", s.handleGraph).Methods(http.MethodGet)
	api.HandleFunc("/resolve", s.handleResolve).Methods(http.MethodGet)
	api.HandleFunc("/reload", s.handleReload).Methods(http.MethodPost)

	if s.qr != nil {
		// Pairing is the only surface meant for unpaired LAN clients,
		// so it gets its own tight rate limit.
		if s.pairLimiter == nil {
			s.pairLimiter = middleware.NewRateLimiter()
		}
		limit := middleware.RateLimitMiddleware(s.pairLimiter, nil)
		api.Handle("/pair", limit(http.HandlerFunc(s.handlePairInfo))).Methods(http.MethodGet)
		api.Handle("/pair/qr", limit(http.HandlerFunc(s.handlePairQR))).Methods(http.MethodGet)
	}

	if s.wsHandler != nil {
		router.HandleFunc("/ws", s.wsHandler)
	}

	return s.corsMiddleware(router)
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	// No Read/WriteTimeout here: they would apply to the underlying
	// connection and kill long-lived WebSocket sessions on /ws. The
	// pumps manage their own deadlines.
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("http server starting")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("http server stopping")

	if s.pairLimiter != nil {
		s.pairLimiter.Close()
		s.pairLimiter = nil
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "hotview",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.statusFn == nil {
		s.respondError(w, http.StatusServiceUnavailable, "status unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, s.statusFn())
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if s.graphFn == nil {
		s.respondError(w, http.StatusServiceUnavailable, "graph unavailable")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "text"
	}

	graph := s.graphFn()
	if root := r.URL.Query().Get("root"); root != "" {
		graph = graph.Subgraph(root)
	}

	var rendered string
	switch format {
	case "text":
		rendered = graph.Text()
	case "dot":
		rendered = graph.DOT()
	case "mermaid":
		rendered = graph.Mermaid()
	default:
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
		return
	}

	s.respondJSON(w, http.StatusOK, events.GraphResponsePayload{
		Format: format,
		Graph:  rendered,
		Roots:  len(graph.Roots()),
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if s.resolveFn == nil {
		s.respondError(w, http.StatusServiceUnavailable, "resolver unavailable")
		return
	}

	location := r.URL.Query().Get("location")
	if location == "" {
		s.respondError(w, http.StatusBadRequest, "missing location parameter")
		return
	}

	path, ok := s.resolveFn(location)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"location":    location,
		"source_path": path,
		"resolved":    ok,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.reloadFn == nil {
		s.respondError(w, http.StatusServiceUnavailable, "reload unavailable")
		return
	}

	// An empty body means "reload everything".
	var body struct {
		Resource string `json:"resource"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.reloadFn(body.Resource); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotRegistered):
			s.respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrInvalidResourcePath):
			s.respondError(w, http.StatusBadRequest, err.Error())
		default:
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":   "queued",
		"resource": body.Resource,
	})
}

func (s *Server) handlePairInfo(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.qr.GetPairingInfo())
}

func (s *Server) handlePairQR(w http.ResponseWriter, r *http.Request) {
	size := 256
	if raw := r.URL.Query().Get("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			size = n
		}
	}
	if size < 128 {
		size = 128
	}
	if size > 512 {
		size = 512
	}

	png, err := s.qr.GeneratePNG(size)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// corsMiddleware reflects allowed origins back onto API responses so
// browser preview shells can call the API from their own origin.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originChecker != nil && s.originChecker.CheckOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
