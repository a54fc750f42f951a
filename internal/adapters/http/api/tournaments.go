package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/pkg/logger"
)

// TournamentDependencies defines the tournament operations.
type TournamentDependencies interface {
	ListTournaments(ctx context.Context) ([]model.Tournament, error)
	CreateTournament(ctx context.Context, t model.Tournament) error
}

// TournamentsHandler serves the tournament list and creation.
type TournamentsHandler struct {
	deps TournamentDependencies
	log  logger.Logger
}

// NewTournamentsHandler creates a new tournaments handler.
func NewTournamentsHandler(deps TournamentDependencies, log logger.Logger) *TournamentsHandler {
	return &TournamentsHandler{deps: deps, log: log}
}

// HandleList handles GET /tournaments.
func (h *TournamentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_tournaments"
	ts, err := h.deps.ListTournaments(r.Context())
	if err != nil {
		writeError(w, r, h.log, Wrap(op, err))
		return
	}
	if ts == nil {
		ts = []model.Tournament{}
	}
	writeJSON(w, http.StatusOK, ts)
}

type createTournamentRequest struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	StartDate time.Time `json:"start_date"`
}

// HandleCreate handles POST /tournaments.
func (h *TournamentsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_tournament"
	var req createTournamentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, WrapKind(op, ErrBadRequest, err))
		return
	}
	t := model.Tournament{
		ID:        strings.TrimSpace(req.ID),
		Name:      strings.TrimSpace(req.Name),
		Location:  strings.TrimSpace(req.Location),
		StartDate: req.StartDate.UTC(),
	}
	if t.ID == "" || t.Name == "" {
		writeError(w, r, h.log, NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.CreateTournament(r.Context(), t); err != nil {
		writeError(w, r, h.log, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, t)
}
