package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopsignal/shopsignal/internal/models"
	"github.com/shopsignal/shopsignal/internal/scoring"
	"github.com/shopsignal/shopsignal/internal/store"
)

// ingestRequest is one raw UI signal submitted for classification.
// Durations are milliseconds; percents are 0-100. The session id is
// caller-supplied opaque state; a request without one is assigned a
// fresh id, returned in the response for the client to keep.
type ingestRequest struct {
	SessionID  string  `json:"session_id,omitempty"`
	ProductID  string  `json:"product_id"`
	Signal     string  `json:"signal"`
	DurationMs float64 `json:"duration_ms,omitempty"`
	Percent    float64 `json:"percent,omitempty"`
	Quantity   int     `json:"quantity,omitempty"`
	DidClick   bool    `json:"did_click,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSession issues a fresh opaque session id. The client holds it
// and replays it on every ingest; the server never infers identity.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"session_id": uuid.NewString()})
}

// handleIngest accepts one raw signal, classifies it, and persists the
// resulting event plus its counter side effects. Sub-threshold signals
// are accepted and dropped; the client never needs to know thresholds.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "ingest rate limit exceeded")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	if s.config.IsProductExcluded(req.ProductID) {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "ignored"})
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	tracker := s.tracker.ForSession(sessionID)

	ctx := r.Context()
	duration := time.Duration(req.DurationMs) * time.Millisecond

	var err error
	switch req.Signal {
	case "page_open":
		err = tracker.TrackPageOpen(ctx, req.ProductID)
	case "hover":
		err = tracker.TrackHover(ctx, req.ProductID, duration)
	case "add_to_cart_hover":
		err = tracker.TrackAddToCartHover(ctx, req.ProductID, duration, req.DidClick)
	case "price_hover":
		err = tracker.TrackPriceHover(ctx, req.ProductID, duration)
	case "time_on_page":
		err = tracker.TrackTimeOnPage(ctx, req.ProductID, duration)
	case "scroll_depth":
		err = tracker.TrackScrollDepth(ctx, req.ProductID, req.Percent)
	case "image_view":
		err = tracker.TrackImageView(ctx, req.ProductID)
	case "description_read":
		err = tracker.TrackDescriptionRead(ctx, req.ProductID, req.Percent)
	case "quantity_change":
		err = tracker.TrackQuantityChange(ctx, req.ProductID, req.Quantity)
	case "comparison_view":
		err = tracker.TrackComparisonView(ctx, req.ProductID)
	case "add_to_cart":
		err = tracker.TrackAddToCart(ctx, req.ProductID)
	case "checkout_intent":
		err = tracker.TrackCheckoutIntent(ctx, req.ProductID)
	case "impression":
		err = tracker.TrackImpression(ctx, req.ProductID)
	case "click":
		err = tracker.TrackClick(ctx, req.ProductID)
	default:
		writeError(w, http.StatusBadRequest, "unknown signal: "+req.Signal)
		return
	}

	if err != nil {
		slog.Error("failed to ingest signal",
			slog.String("signal", req.Signal),
			slog.String("product_id", req.ProductID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to record signal")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "session_id": sessionID})
}

func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	scores, err := s.store.ListScores(r.Context())
	if err != nil {
		slog.Error("failed to list scores", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list scores")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scores": scores, "count": len(scores)})
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("product")

	score, err := s.store.GetScore(r.Context(), productID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product has no score")
		return
	}
	if err != nil {
		slog.Error("failed to get score", slog.String("product_id", productID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get score")
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) handleProductEvents(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("product")

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	since := time.Now().Add(-scoring.LookbackWindow)
	events, err := s.events.FetchProductEvents(r.Context(), productID, since, limit)
	if err != nil {
		slog.Error("failed to fetch events", slog.String("product_id", productID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to fetch events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (s *Server) handleProductStats(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("product")

	stats, err := s.events.FetchProductStats(r.Context(), productID)
	if err != nil {
		slog.Error("failed to fetch stats", slog.String("product_id", productID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to fetch stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": productID, "stats": stats})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.Overview(r.Context())
	if err != nil {
		slog.Error("failed to build overview", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to build overview")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary, "total": summary.Total()})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("product")

	analytics, err := s.store.GetAnalytics(r.Context(), productID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product has no analytics")
		return
	}
	if err != nil {
		slog.Error("failed to get analytics", slog.String("product_id", productID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get analytics")
		return
	}
	writeJSON(w, http.StatusOK, scoring.ComputeAnalytics(*analytics))
}

func (s *Server) handleViability(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("product")

	analytics, err := s.store.GetAnalytics(r.Context(), productID)
	if errors.Is(err, store.ErrNotFound) {
		// No counters yet still yields a verdict: everything-zero scores
		// as kill, which is the honest answer for an unseen product.
		analytics = &models.ProductAnalytics{ProductID: productID}
	} else if err != nil {
		slog.Error("failed to get analytics", slog.String("product_id", productID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get analytics")
		return
	}

	verdict := scoring.CalculateViabilityScore(scoring.ComputeAnalytics(*analytics))
	writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	report, err := s.runner.Run(r.Context())
	if err != nil {
		slog.Error("recalculation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "recalculation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"products_scored": report.Metadata.ProductsScored,
		"events_analyzed": report.Metadata.TotalEventsAnalyzed,
		"summary":         report.Summary,
		"failed_writes":   report.FailedWrites,
		"run_duration":    report.Metadata.RunDuration,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
