// Package server exposes the HTTP API a workflow-builder frontend talks
// to: node-type catalog metadata, auto-layout, and graph validation.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowcanvas/flowcanvas/catalog"
	"github.com/flowcanvas/flowcanvas/layout"
)

// ServerConfig configures a Server instance.
type ServerConfig struct {
	Store      CatalogStore
	Catalog    *catalog.Catalog
	Version    string
	Engine     *layout.Engine
	CORSOrigin string
	MaxBody    int64
	Logger     *slog.Logger
	Tracer     trace.Tracer
}

// Server is the FlowCanvas HTTP API server.
type Server struct {
	store  CatalogStore
	engine *layout.Engine

	catalogMu      sync.RWMutex
	catalog        *catalog.Catalog
	catalogVersion string

	corsOrigin string
	maxBody    int64
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	corsOrigin := cfg.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	maxBody := cfg.MaxBody
	if maxBody <= 0 {
		maxBody = 1 << 20 // 1 MB default
	}
	engine := cfg.Engine
	if engine == nil {
		engine = layout.NewEngine()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otelapi.Tracer("flowcanvas/server")
	}
	return &Server{
		store:          cfg.Store,
		engine:         engine,
		catalog:        cfg.Catalog,
		catalogVersion: cfg.Version,
		corsOrigin:     corsOrigin,
		maxBody:        maxBody,
		logger:         logger,
		tracer:         tracer,
	}
}

// SetCatalog swaps in a newly fetched catalog. Derived metadata, defaults
// and constraints are recomputed lazily on the next node-types request.
func (s *Server) SetCatalog(version string, cat *catalog.Catalog) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.catalog = cat
	s.catalogVersion = version
}

// Catalog returns the current catalog and its version.
func (s *Server) Catalog() (*catalog.Catalog, string) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	return s.catalog, s.catalogVersion
}

// Handler returns an http.Handler with all routes and middleware wired.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	var handler http.Handler = mux
	handler = s.corsMiddleware(handler)
	handler = s.maxBodyMiddleware(handler)
	handler = s.requestIDMiddleware(handler)

	return handler
}

// RegisterRoutes mounts API routes onto an existing mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/node-types", s.handleNodeTypes)
	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("GET /api/catalog/versions", s.handleCatalogVersions)
	mux.HandleFunc("GET /api/catalog/versions/{version}", s.handleCatalogVersion)
	mux.HandleFunc("POST /api/layout", s.handleLayout)
	mux.HandleFunc("POST /api/graphs/validate", s.handleValidateGraph)
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) maxBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware tags every request with an ID, echoes it on the
// response, and logs method/path/duration.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// apiError is the standard error envelope.
type apiError struct {
	Error apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string, details ...string) {
	body := apiError{
		Error: apiErrorBody{
			Code:    code,
			Message: message,
		},
	}
	if len(details) > 0 {
		body.Error.Details = details
	}
	writeJSON(w, status, body)
}
