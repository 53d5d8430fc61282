// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tipio/tipio/internal/domain/model"
)

// VotesHandler handles community vote requests.
type VotesHandler struct {
	deps Dependencies
}

// NewVotesHandler creates a new votes handler.
func NewVotesHandler(deps Dependencies) *VotesHandler {
	return &VotesHandler{deps: deps}
}

// voteRequest mirrors the request schema for POST /votes.
type voteRequest struct {
	EventID  string `json:"event_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Choice   string `json:"choice"`
}

func (v voteRequest) validate() error {
	switch {
	case strings.TrimSpace(v.EventID) == "":
		return errors.New("missing event_id")
	case strings.TrimSpace(v.UserID) == "":
		return errors.New("missing user_id")
	case !model.ValidChoice(model.VoteChoice(v.Choice)):
		return errors.New(`invalid choice; must be "1", "draw" or "2"`)
	}
	return nil
}

// HandlePostVote handles POST /votes requests.
func (h *VotesHandler) HandlePostVote(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_vote"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}

	totals, err := h.deps.RecordVote(r.Context(), req.EventID, req.UserID, req.Username, model.VoteChoice(req.Choice))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// HandleGetVoteStats handles GET /votes/{event_id} requests.
func (h *VotesHandler) HandleGetVoteStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	eventID := strings.TrimPrefix(r.URL.Path, "/votes/")
	if eventID == "" || strings.Contains(eventID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	totals, err := h.deps.VoteStats(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}
