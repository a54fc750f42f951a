package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/internal/domain/picks"
	"github.com/okian/acerace/pkg/logger"
)

// PicksDependencies defines the atomic pick-set submission.
type PicksDependencies interface {
	SubmitPicks(ctx context.Context, userID, tournamentID string, playerIDs []string) ([]model.Selection, error)
}

// PicksHandler accepts complete pick sets.
type PicksHandler struct {
	deps PicksDependencies
	log  logger.Logger
}

// NewPicksHandler creates a new picks handler.
func NewPicksHandler(deps PicksDependencies, log logger.Logger) *PicksHandler {
	return &PicksHandler{deps: deps, log: log}
}

type picksRequest struct {
	UserID       string   `json:"user_id"`
	TournamentID string   `json:"tournament_id"`
	PlayerIDs    []string `json:"player_ids"`
}

// HandleSubmit handles POST /picks.
func (h *PicksHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_picks"
	var req picksRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, WrapKind(op, ErrBadRequest, err))
		return
	}
	userID := strings.TrimSpace(req.UserID)
	tournamentID := strings.TrimSpace(req.TournamentID)
	if userID == "" || tournamentID == "" {
		writeError(w, r, h.log, NewKind(op, ErrBadRequest))
		return
	}
	if len(req.PlayerIDs) != 2*picks.MaxPerHalf {
		writeError(w, r, h.log, WrapKind(op, ErrBadRequest, picks.ErrNotReady))
		return
	}
	stored, err := h.deps.SubmitPicks(r.Context(), userID, tournamentID, req.PlayerIDs)
	if err != nil {
		writeError(w, r, h.log, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}
