package api

import (
	"context"
	"net/http"

	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/internal/domain/ranking"
	"github.com/okian/acerace/pkg/logger"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, key ranking.SortKey) ([]model.LeaderboardRow, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
	log  logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, log logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, log: log}
}

// HandleGet handles GET /leaderboard?sort=week_points requests.
func (h *LeaderboardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	key, err := ranking.ParseSortKey(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, r, h.log, Wrap(op, err))
		return
	}
	rows, err := h.deps.Leaderboard(r.Context(), key)
	if err != nil {
		writeError(w, r, h.log, Wrap(op, err))
		return
	}
	if rows == nil {
		rows = []model.LeaderboardRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}
