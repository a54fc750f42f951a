package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/pkg/logger"
)

// ResultDependencies defines what the result intake needs.
type ResultDependencies interface {
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
	Enqueue(ctx context.Context, e model.ResultEvent) bool
}

// ResultsHandler accepts match results.
type ResultsHandler struct {
	deps ResultDependencies
	log  logger.Logger
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultDependencies, log logger.Logger) *ResultsHandler {
	return &ResultsHandler{deps: deps, log: log}
}

type resultRequest struct {
	EventID      string    `json:"event_id"`
	TournamentID string    `json:"tournament_id"`
	PlayerID     string    `json:"player_id"`
	Round        string    `json:"round"`
	TS           time.Time `json:"ts"`
}

func (req *resultRequest) validate() bool {
	req.EventID = strings.TrimSpace(req.EventID)
	req.TournamentID = strings.TrimSpace(req.TournamentID)
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	req.Round = strings.TrimSpace(req.Round)
	return req.EventID != "" && req.TournamentID != "" && req.PlayerID != "" && req.Round != ""
}

type resultResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePost handles POST /results.
func (h *ResultsHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_result"
	var req resultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, WrapKind(op, ErrBadRequest, err))
		return
	}
	if !req.validate() {
		writeError(w, r, h.log, NewKind(op, ErrBadRequest))
		return
	}

	ctx := r.Context()
	if h.deps.SeenAndRecord(ctx, req.EventID) {
		writeJSON(w, http.StatusOK, resultResponse{Status: "duplicate", Duplicate: true})
		return
	}
	ev := model.ResultEvent{
		EventID:      req.EventID,
		TournamentID: req.TournamentID,
		PlayerID:     req.PlayerID,
		Round:        req.Round,
		TS:           req.TS.UTC(),
	}
	if !h.deps.Enqueue(ctx, ev) {
		// forget the id so the sender can retry
		h.deps.Unrecord(ctx, req.EventID)
		writeError(w, r, h.log, NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, resultResponse{Status: "accepted"})
}
