// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/acerace/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies bundles everything the handlers need. Each handler only
// depends on the narrow slice it uses.
type Dependencies interface {
	TournamentDependencies
	DrawDependencies
	SelectionDependencies
	PicksDependencies
	LeaderboardDependencies
	ResultDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	tournamentsHandler *TournamentsHandler
	drawHandler        *DrawHandler
	selectionsHandler  *SelectionsHandler
	picksHandler       *PicksHandler
	leaderboardHandler *LeaderboardHandler
	resultsHandler     *ResultsHandler

	allowedOrigins []string
	adminSecret    []byte
	extraStats     []StatsProvider
	logger         logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(append([]StatsProvider{statsProvider}, s.extraStats...)...)
	s.tournamentsHandler = NewTournamentsHandler(deps, s.logger)
	s.drawHandler = NewDrawHandler(deps, s.logger)
	s.selectionsHandler = NewSelectionsHandler(deps, s.logger)
	s.picksHandler = NewPicksHandler(deps, s.logger)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.logger)
	s.resultsHandler = NewResultsHandler(deps, s.logger)
	return s
}

// Router builds the chi router with every API route. Callers may add more
// routes (docs, websocket) to the returned router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Get("/tournaments", s.tournamentsHandler.HandleList)
	r.Get("/tournament/{id}/draw", s.drawHandler.HandleGet)
	r.Get("/selections/{userId}", s.selectionsHandler.HandleList)
	r.Post("/selections", s.selectionsHandler.HandleCreate)
	r.Post("/picks", s.picksHandler.HandleSubmit)
	r.Get("/leaderboard", s.leaderboardHandler.HandleGet)

	r.Group(func(r chi.Router) {
		r.Use(AdminOnly(s.adminSecret))
		r.Post("/tournaments", s.tournamentsHandler.HandleCreate)
		r.Put("/tournament/{id}/draw", s.drawHandler.HandleReplace)
		r.Post("/results", s.resultsHandler.HandlePost)
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError classifies err and writes {code, message}. Internal errors are
// logged and their details withheld.
func writeError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		if log != nil {
			log.Error(r.Context(), "request failed",
				logger.String("path", r.URL.Path),
				logger.String("request_id", middleware.GetReqID(r.Context())),
				logger.Error(err),
			)
		}
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a bounded JSON body into v and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
