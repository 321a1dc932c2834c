package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowcanvas/flowcanvas/graph"
	"github.com/flowcanvas/flowcanvas/layout"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// nodeTypesResponse bundles everything a builder canvas needs to render
// its node palette and config forms.
type nodeTypesResponse struct {
	Version     string         `json:"version,omitempty"`
	Catalog     map[string]any `json:"catalog"`
	Metadata    map[string]any `json:"metadata"`
	Defaults    map[string]any `json:"defaults"`
	Constraints map[string]any `json:"constraints"`
}

func (s *Server) handleNodeTypes(w http.ResponseWriter, r *http.Request) {
	cat, version := s.Catalog()
	if cat == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_CATALOG", "no catalog loaded")
		return
	}

	// Extraction is memoized per catalog instance; only the first request
	// after a catalog swap pays for the walk.
	_, span := s.tracer.Start(r.Context(), "schema.extract",
		trace.WithAttributes(attribute.String("flowcanvas.catalog_version", version)))
	model := cat.Model()
	metadata := model.AllMetadata()
	defaults := model.ObjectFromSchema()
	constraints := model.AllConstraints()
	span.End()

	constraintsOut := make(map[string]any, len(constraints))
	for path, record := range constraints {
		constraintsOut[path] = record
	}

	writeJSON(w, http.StatusOK, nodeTypesResponse{
		Version:     version,
		Catalog:     cat.Document(),
		Metadata:    metadata,
		Defaults:    defaults,
		Constraints: constraintsOut,
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	cat, version := s.Catalog()
	if cat == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_CATALOG", "no catalog loaded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version": version,
		"catalog": cat.Document(),
	})
}

// catalogVersionMeta lists a stored version without its full source.
type catalogVersionMeta struct {
	Version   string    `json:"version"`
	FetchedAt time.Time `json:"fetched_at"`
}

func (s *Server) handleCatalogVersions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_STORE", "catalog persistence is not configured")
		return
	}
	records, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("listing catalog versions", "error", err)
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", "listing catalog versions failed")
		return
	}
	metas := make([]catalogVersionMeta, 0, len(records))
	for _, rec := range records {
		metas = append(metas, catalogVersionMeta{Version: rec.Version, FetchedAt: rec.FetchedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": metas})
}

func (s *Server) handleCatalogVersion(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_STORE", "catalog persistence is not configured")
		return
	}
	version := r.PathValue("version")
	rec, found, err := s.store.Get(r.Context(), version)
	if err != nil {
		s.logger.Error("loading catalog version", "version", version, "error", err)
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", "loading catalog version failed")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "VERSION_NOT_FOUND", "catalog version not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// layoutRequest is a node/edge snapshot plus layout options.
type layoutRequest struct {
	Nodes     []layout.Node `json:"nodes"`
	Edges     []layout.Edge `json:"edges"`
	Direction string        `json:"direction,omitempty"`
	RankSep   float64       `json:"rank_sep,omitempty"`
	NodeSep   float64       `json:"node_sep,omitempty"`
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid layout request: "+err.Error())
		return
	}

	engine := s.engine
	if req.RankSep > 0 || req.NodeSep > 0 {
		var opts []layout.EngineOption
		if req.RankSep > 0 {
			opts = append(opts, layout.WithRankSep(req.RankSep))
		}
		if req.NodeSep > 0 {
			opts = append(opts, layout.WithNodeSep(req.NodeSep))
		}
		engine = layout.NewEngine(opts...)
	}

	_, span := s.tracer.Start(r.Context(), "layout",
		trace.WithAttributes(
			attribute.Int("flowcanvas.node_count", len(req.Nodes)),
			attribute.Int("flowcanvas.edge_count", len(req.Edges)),
		))
	laid, err := engine.Layout(req.Nodes, req.Edges, layout.Direction(req.Direction))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.End()
		if errors.Is(err, layout.ErrCycle) {
			writeError(w, http.StatusUnprocessableEntity, "GRAPH_CYCLE", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "LAYOUT_ERROR", err.Error())
		return
	}
	span.End()

	writeJSON(w, http.StatusOK, map[string]any{"nodes": laid})
}

func (s *Server) handleValidateGraph(w http.ResponseWriter, r *http.Request) {
	var def graph.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid graph definition: "+err.Error())
		return
	}

	diags := def.Validate()
	if diags == nil {
		diags = []graph.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":       !graph.HasErrors(diags),
		"diagnostics": diags,
	})
}
