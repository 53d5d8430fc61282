// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	service "github.com/tipio/tipio/internal/app"
	"github.com/tipio/tipio/internal/domain/model"
)

// PredictionsHandler handles prediction requests.
type PredictionsHandler struct {
	deps Dependencies
}

// NewPredictionsHandler creates a new predictions handler.
func NewPredictionsHandler(deps Dependencies) *PredictionsHandler {
	return &PredictionsHandler{deps: deps}
}

// predictionRequest mirrors the request schema for POST /predictions.
type predictionRequest struct {
	EventID   string `json:"event_id,omitempty"`
	PartyA    string `json:"party_a"`
	PartyB    string `json:"party_b"`
	Sport     string `json:"sport"`
	StartTime string `json:"start_time,omitempty"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
}

func (p predictionRequest) validate() error {
	switch {
	case strings.TrimSpace(p.PartyA) == "":
		return errors.New("missing party_a")
	case strings.TrimSpace(p.PartyB) == "":
		return errors.New("missing party_b")
	case strings.TrimSpace(p.Sport) == "":
		return errors.New("missing sport")
	case strings.TrimSpace(p.UserID) == "":
		return errors.New("missing user_id")
	}
	if p.StartTime != "" {
		if _, err := time.Parse(time.RFC3339, p.StartTime); err != nil {
			return errors.New("invalid start_time; must be RFC3339")
		}
	}
	return nil
}

// HandlePostPrediction handles POST /predictions requests.
func (h *PredictionsHandler) HandlePostPrediction(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_prediction"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req predictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}

	ev := model.Event{
		ID:     strings.TrimSpace(req.EventID),
		PartyA: strings.TrimSpace(req.PartyA),
		PartyB: strings.TrimSpace(req.PartyB),
		Sport:  strings.TrimSpace(req.Sport),
		Status: model.EventScheduled,
	}
	if req.StartTime != "" {
		ev.StartTime, _ = time.Parse(time.RFC3339, req.StartTime)
	}
	if ev.ID == "" {
		ev.ID = model.EventID(ev.Sport, ev.Title(), time.Now())
	}

	result, err := h.deps.RequestPrediction(r.Context(), ev, req.UserID, req.Username)
	if err != nil {
		if errors.Is(err, service.ErrQuotaExceeded) {
			writeError(w, http.StatusTooManyRequests, "quota_exceeded", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}
