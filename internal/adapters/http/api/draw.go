package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/acerace/internal/domain/draw"
	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/pkg/logger"
)

// DrawDependencies defines the draw operations.
type DrawDependencies interface {
	Draw(ctx context.Context, tournamentID string) ([]model.DrawEntry, error)
	ReplaceDraw(ctx context.Context, tournamentID string, entries []model.DrawEntry) error
}

// DrawHandler serves tournament draws.
type DrawHandler struct {
	deps DrawDependencies
	log  logger.Logger
}

// NewDrawHandler creates a new draw handler.
func NewDrawHandler(deps DrawDependencies, log logger.Logger) *DrawHandler {
	return &DrawHandler{deps: deps, log: log}
}

// HandleGet handles GET /tournament/{id}/draw[?enrich=true].
func (h *DrawHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_draw"
	entries, err := h.deps.Draw(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, Wrap(op, err))
		return
	}
	if entries == nil {
		entries = []model.DrawEntry{}
	}
	if enrich, _ := strconv.ParseBool(r.URL.Query().Get("enrich")); enrich {
		writeJSON(w, http.StatusOK, draw.EnrichAll(entries))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type drawEntryRequest struct {
	PlayerID string `json:"player_id"`
	DrawHalf string `json:"draw_half"`
	Position int    `json:"position"`
}

// HandleReplace handles PUT /tournament/{id}/draw.
func (h *DrawHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	const op = "api.replace_draw"
	var req []drawEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, WrapKind(op, ErrBadRequest, err))
		return
	}
	id := chi.URLParam(r, "id")
	entries := make([]model.DrawEntry, 0, len(req))
	for _, e := range req {
		half, err := model.ParseDrawHalf(e.DrawHalf)
		if err != nil {
			writeError(w, r, h.log, WrapKind(op, ErrBadRequest, err))
			return
		}
		if e.PlayerID == "" {
			writeError(w, r, h.log, NewKind(op, ErrBadRequest))
			return
		}
		entries = append(entries, model.DrawEntry{
			TournamentID: id,
			PlayerID:     e.PlayerID,
			DrawHalf:     half,
			Position:     e.Position,
		})
	}
	if err := h.deps.ReplaceDraw(r.Context(), id, entries); err != nil {
		writeError(w, r, h.log, Wrap(op, err))
		return
	}
	stored, err := h.deps.Draw(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, stored)
}
