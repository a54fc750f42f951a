package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/internal/domain/picks"
	"github.com/okian/acerace/pkg/logger"
)

// SelectionDependencies defines the single-selection operations.
type SelectionDependencies interface {
	SelectionsByUser(ctx context.Context, userID string) ([]model.Selection, error)
	AddSelection(ctx context.Context, sel model.Selection) (model.Selection, error)
}

// SelectionsHandler serves a user's pick history and single picks.
type SelectionsHandler struct {
	deps SelectionDependencies
	log  logger.Logger
}

// NewSelectionsHandler creates a new selections handler.
func NewSelectionsHandler(deps SelectionDependencies, log logger.Logger) *SelectionsHandler {
	return &SelectionsHandler{deps: deps, log: log}
}

// HandleList handles GET /selections/{userId}[?group=tournament].
func (h *SelectionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_selections"
	sels, err := h.deps.SelectionsByUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, h.log, Wrap(op, err))
		return
	}
	switch r.URL.Query().Get("group") {
	case "":
		if sels == nil {
			sels = []model.Selection{}
		}
		writeJSON(w, http.StatusOK, sels)
	case "tournament":
		groups := picks.GroupByTournament(sels)
		if groups == nil {
			groups = []picks.TournamentGroup{}
		}
		writeJSON(w, http.StatusOK, groups)
	default:
		writeError(w, r, h.log, NewKind(op, ErrBadRequest))
	}
}

type selectionRequest struct {
	UserID        string    `json:"user_id"`
	TournamentID  string    `json:"tournament_id"`
	PlayerID      string    `json:"player_id"`
	DrawHalf      string    `json:"draw_half,omitempty"`
	SelectionDate time.Time `json:"selection_date,omitempty"` // zero means now
}

func (req *selectionRequest) toSelection() (model.Selection, bool) {
	sel := model.Selection{
		UserID:       strings.TrimSpace(req.UserID),
		TournamentID: strings.TrimSpace(req.TournamentID),
		PlayerID:     strings.TrimSpace(req.PlayerID),
	}
	if !req.SelectionDate.IsZero() {
		sel.SelectionDate = req.SelectionDate.UTC()
	}
	if sel.UserID == "" || sel.TournamentID == "" || sel.PlayerID == "" {
		return model.Selection{}, false
	}
	if req.DrawHalf != "" {
		half, err := model.ParseDrawHalf(req.DrawHalf)
		if err != nil {
			return model.Selection{}, false
		}
		sel.DrawHalf = half
	}
	return sel, true
}

// HandleCreate handles POST /selections.
func (h *SelectionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_selection"
	var req selectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, WrapKind(op, ErrBadRequest, err))
		return
	}
	sel, ok := req.toSelection()
	if !ok {
		writeError(w, r, h.log, NewKind(op, ErrBadRequest))
		return
	}
	stored, err := h.deps.AddSelection(r.Context(), sel)
	if err != nil {
		writeError(w, r, h.log, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}
