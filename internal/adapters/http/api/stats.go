package api

import (
	"maps"
	"net/http"
)

// StatsProvider reports a flat set of counters for GET /stats.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler merges the stats of every provider into one object. Later
// providers win on key collisions.
type StatsHandler struct {
	providers []StatsProvider
}

// NewStatsHandler creates a stats handler over the given providers. Nil
// providers are skipped.
func NewStatsHandler(providers ...StatsProvider) *StatsHandler {
	h := &StatsHandler{}
	for _, p := range providers {
		if p != nil {
			h.providers = append(h.providers, p)
		}
	}
	return h
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string]any)
	for _, p := range h.providers {
		maps.Copy(out, p.GetStats())
	}
	writeJSON(w, http.StatusOK, out)
}
