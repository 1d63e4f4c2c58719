package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"SearchKit/internal/dsl"
	"SearchKit/internal/engine"
	"SearchKit/internal/search"
)

// Handler holds the HTTP handlers for the SearchKit API.
type Handler struct {
	mgr      *IndexManager
	searcher *search.Searcher
	queries  *dsl.Registry
	metrics  *Metrics
	cfg      Config
	logger   *slog.Logger
}

// NewHandler creates a Handler over the given collaborators.
func NewHandler(mgr *IndexManager, searcher *search.Searcher, queries *dsl.Registry, metrics *Metrics, cfg Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		mgr:      mgr,
		searcher: searcher,
		queries:  queries,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Index lifecycle.
	mux.HandleFunc("GET /indexes", h.handleListIndexes)
	mux.HandleFunc("POST /indexes/{name}", h.handleCreateIndex)
	mux.HandleFunc("GET /indexes/{name}", h.handleGetIndex)
	mux.HandleFunc("DELETE /indexes/{name}", h.handleDeleteIndex)

	// Document ingestion.
	mux.HandleFunc("POST /indexes/{name}/documents", h.handleIngestDocuments)

	// Search and validation.
	mux.HandleFunc("POST /indexes/{name}/search", h.handleSearch)
	mux.HandleFunc("POST /query/validate", h.handleValidate)
}

// --- Index Lifecycle ---

func (h *Handler) handleListIndexes(w http.ResponseWriter, r *http.Request) {
	names := h.mgr.ListIndexes()

	infos := make([]map[string]any, 0, len(names))
	for _, name := range names {
		inst, err := h.mgr.GetIndex(name)
		if err != nil {
			continue
		}
		infos = append(infos, inst.IndexInfo())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"indexes": infos,
	})
}

func (h *Handler) handleCreateIndex(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req struct {
		DefaultAnalyzer string `json:"default_analyzer"`
	}
	// The body is optional; an empty body means defaults.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.mgr.CreateIndex(name, req.DefaultAnalyzer); err != nil {
		if errors.Is(err, ErrIndexExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"status": "created",
		"name":   name,
	})
}

func (h *Handler) handleGetIndex(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	inst, err := h.mgr.GetIndex(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, inst.IndexInfo())
}

func (h *Handler) handleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.mgr.DeleteIndex(name); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"name":   name,
	})
}

// --- Document Ingestion ---

func (h *Handler) handleIngestDocuments(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	inst, err := h.mgr.GetIndex(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req struct {
		Documents []Document `json:"documents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "no documents provided")
		return
	}

	ids, err := inst.AddDocuments(req.Documents)
	if err != nil {
		if errors.Is(err, engine.ErrDuplicateDoc) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.metrics.DocumentsIndexed.Add(float64(len(ids)))

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "accepted",
		"indexed": len(ids),
		"ids":     ids,
	})
}

// --- Search ---

// searchRequest is a full-DSL search body: the query is one clause
// object dispatched through the clause registry.
type searchRequest struct {
	Query json.RawMessage `json:"query"`
	TopK  int             `json:"top_k"`
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	inst, err := h.mgr.GetIndex(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Query) == 0 {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}

	builder, err := dsl.ParseQuery(req.Query, h.queries)
	if err != nil {
		h.metrics.ParseFailures.Inc()
		writeParseError(w, err)
		return
	}

	rctx := &dsl.RewriteContext{
		Analyzers:       h.mgr.Analyzers(),
		DefaultAnalyzer: inst.DefaultAnalyzer,
	}
	opts := search.Options{
		TopK:          req.TopK,
		Timeout:       h.cfg.SearchTimeout(),
		MaxDocsScored: h.cfg.MaxDocsScored,
	}

	var result *search.Result
	err = inst.Snapshot(func(reader *engine.IndexReader) error {
		var searchErr error
		result, searchErr = h.searcher.Search(reader, builder, rctx, opts)
		return searchErr
	})
	if err != nil {
		h.metrics.SearchesTotal.WithLabelValues(name, "error").Inc()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.metrics.SearchesTotal.WithLabelValues(name, "ok").Inc()
	h.metrics.SearchDuration.Observe(result.Took.Seconds())
	if result.CachedPlan {
		h.metrics.PlanCacheHits.Inc()
	} else {
		h.metrics.PlanCacheMisses.Inc()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"request_id": result.RequestID,
		"took_ms":    result.Took.Milliseconds(),
		"timed_out":  result.TimedOut,
		"total_hits": result.TotalHits,
		"hits":       result.Hits,
	})
}

// --- Validation ---

// handleValidate parses and rewrites a clause object without executing
// it. Non-conformant bodies yield valid=false rather than an HTTP error.
func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	builder, err := dsl.ParseQuery(body, h.queries)
	if err != nil {
		h.metrics.ParseFailures.Inc()
		writeJSON(w, http.StatusOK, map[string]any{
			"valid": false,
			"error": parseErrorBody(err),
		})
		return
	}

	rctx := &dsl.RewriteContext{Analyzers: h.mgr.Analyzers()}
	rewritten, err := h.searcher.Validate(builder, rctx)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"valid": false,
			"error": map[string]any{"message": err.Error()},
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid":     true,
		"rewritten": dsl.Source(rewritten),
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"message": message,
		},
	})
}

// writeParseError maps a parse failure to 400, exposing the offending
// offset and clause when the error carries them.
func writeParseError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": parseErrorBody(err),
	})
}

func parseErrorBody(err error) map[string]any {
	body := map[string]any{"message": err.Error()}
	var perr *dsl.ParsingError
	if errors.As(err, &perr) {
		body["offset"] = perr.Offset
		if perr.Clause != "" {
			body["clause"] = perr.Clause
		}
	}
	return body
}
