package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openrisk-labs/kestrel/internal/domain"
	"github.com/openrisk-labs/kestrel/internal/rules"
	"github.com/openrisk-labs/kestrel/internal/worker"
	"github.com/openrisk-labs/kestrel/internal/workflow"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	controller *workflow.Controller
	searcher   domain.PatternSearcher
	cache      domain.Cache
	bus        domain.EventBus
	engine     *rules.Engine
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(controller *workflow.Controller, searcher domain.PatternSearcher, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, version string) *Handler {
	return &Handler{
		controller: controller,
		searcher:   searcher,
		cache:      cache,
		bus:        bus,
		engine:     engine,
		version:    version,
	}
}

// DetectRequest is the request body for POST /api/v1/detect.
type DetectRequest struct {
	Sector string        `json:"sector"`
	Data   domain.Record `json:"data"`
}

// DetectResponse is the response for POST /api/v1/detect.
type DetectResponse struct {
	Result          *domain.ScoreResult `json:"result"`
	SimilarPatterns int                 `json:"similarPatterns"`
	Metadata        struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// Detect handles POST /api/v1/detect requests: one record through the full
// analysis pipeline, synchronously.
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	var req DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	sector, err := domain.ParseSector(req.Sector)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if len(req.Data) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "data is required",
		})
		return
	}

	analysis, err := h.controller.Analyze(ctx, sector, req.Data)
	if err != nil {
		slog.Error("analysis failed", "sector", sector, "trace_id", traceID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "analysis failed",
		})
		return
	}

	resp := DetectResponse{
		Result:          analysis.Result,
		SimilarPatterns: analysis.SimilarPatterns,
	}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// DetectAsync handles POST /api/v1/detect/async: the record is queued on the
// event bus and picked up by the analysis worker. The result arrives as a
// completion event.
func (h *Handler) DetectAsync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "event bus not available",
		})
		return
	}

	var req DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if _, err := domain.ParseSector(req.Sector); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if len(req.Data) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "data is required",
		})
		return
	}

	requestID := uuid.New().String()
	payload, err := json.Marshal(worker.AnalysisRequest{
		RequestID: requestID,
		Sector:    req.Sector,
		Data:      req.Data,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to encode request",
		})
		return
	}

	if err := h.bus.Publish(ctx, domain.TopicAnalysisRequested, payload); err != nil {
		slog.Error("failed to queue analysis request", "request_id", requestID, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "failed to queue analysis request",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"requestId": requestID,
		"status":    "queued",
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check pattern store health
	if h.searcher != nil {
		if err := h.searcher.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// CreatePatternRequest is the request body for adding a fraud pattern.
type CreatePatternRequest struct {
	Sector      string  `json:"sector"`
	Description string  `json:"description"`
	RiskLevel   string  `json:"riskLevel,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

// CreatePattern adds a pattern to the retrieval library.
func (h *Handler) CreatePattern(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.searcher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "pattern store not available",
		})
		return
	}

	var req CreatePatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	sector, err := domain.ParseSector(req.Sector)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	pattern := &domain.Pattern{
		Sector:      sector,
		Description: req.Description,
		RiskLevel:   domain.RiskLevel(req.RiskLevel),
		Score:       req.Score,
	}

	if err := h.searcher.Add(ctx, pattern); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	slog.Info("pattern added", "id", pattern.ID, "sector", pattern.Sector)
	writeJSON(w, http.StatusCreated, pattern)
}

// PatternCount returns stored pattern counts, optionally filtered by the
// sector query parameter.
func (h *Handler) PatternCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.searcher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "pattern store not available",
		})
		return
	}

	var sector domain.Sector
	if s := r.URL.Query().Get("sector"); s != "" {
		parsed, err := domain.ParseSector(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}
		sector = parsed
	}

	count, err := h.searcher.Count(ctx, sector)
	if err != nil {
		slog.Error("pattern count failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to count patterns",
		})
		return
	}

	resp := map[string]interface{}{"count": count}
	if sector != "" {
		resp["sector"] = sector
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRules returns the overlay rules currently loaded in the engine.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "rule engine not available",
		})
		return
	}

	loadedRules := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": loadedRules,
		"count": len(loadedRules),
	})
}

// GetRule retrieves an overlay rule by ID.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	if h.engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "rule engine not available",
		})
		return
	}

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating an overlay rule.
type CreateRuleRequest struct {
	ID         string  `json:"id"`
	Sector     string  `json:"sector"`
	Expression string  `json:"expression"`
	Weight     float64 `json:"weight"`
	Enabled    bool    `json:"enabled"`
}

// CreateRule validates and loads an overlay rule into the engine. The rule
// applies immediately; it is not persisted across restarts.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "rule engine not available",
		})
		return
	}

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id and expression are required",
		})
		return
	}

	var sector domain.Sector
	if req.Sector != "" {
		parsed, err := domain.ParseSector(req.Sector)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}
		sector = parsed
	}

	rule := domain.OverlayRule{
		ID:         req.ID,
		Sector:     sector,
		Expression: req.Expression,
		Weight:     req.Weight,
		Enabled:    req.Enabled,
	}

	if err := h.engine.LoadRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	slog.Info("overlay rule loaded", "id", rule.ID, "sector", rule.Sector)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    rule,
		"message": "Rule loaded into the scoring overlay.",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
