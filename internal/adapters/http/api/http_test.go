package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/acerace/internal/adapters/http/api"
	"github.com/okian/acerace/internal/adapters/repository"
	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/internal/domain/picks"
	"github.com/okian/acerace/internal/domain/ranking"
	"github.com/okian/acerace/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockDependencies is an in-memory stand-in for the service.
type mockDependencies struct {
	mu          sync.Mutex
	tournaments []model.Tournament
	draws       map[string][]model.DrawEntry
	selections  []model.Selection
	rows        []model.LeaderboardRow
	seen        map[string]bool
	enqueued    []model.ResultEvent
	queueFull   bool
	storeErr    error
	lastSort    ranking.SortKey
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		tournaments: []model.Tournament{{ID: "rg", Name: "Roland Garros", Location: "Paris"}},
		draws: map[string][]model.DrawEntry{
			"rg": {
				{TournamentID: "rg", PlayerID: "alcaraz", DrawHalf: model.HalfTop, Position: 1},
				{TournamentID: "rg", PlayerID: "djokovic", DrawHalf: model.HalfBottom, Position: 2},
			},
		},
		rows: []model.LeaderboardRow{
			{UserID: "alice", WeekPoints: 3, MonthPoints: 10, YearPoints: 10},
			{UserID: "bob", WeekPoints: 8, MonthPoints: 8, YearPoints: 30},
		},
		seen: make(map[string]bool),
	}
}

func (m *mockDependencies) ListTournaments(context.Context) ([]model.Tournament, error) {
	return m.tournaments, m.storeErr
}

func (m *mockDependencies) CreateTournament(_ context.Context, t model.Tournament) error {
	for _, existing := range m.tournaments {
		if existing.ID == t.ID {
			return fmt.Errorf("%w: tournament %s", repository.ErrConflict, t.ID)
		}
	}
	m.tournaments = append(m.tournaments, t)
	return nil
}

func (m *mockDependencies) Draw(_ context.Context, id string) ([]model.DrawEntry, error) {
	entries, ok := m.draws[id]
	if !ok {
		return nil, fmt.Errorf("%w: tournament %s", repository.ErrNotFound, id)
	}
	return entries, nil
}

func (m *mockDependencies) ReplaceDraw(_ context.Context, id string, entries []model.DrawEntry) error {
	if _, ok := m.draws[id]; !ok {
		return fmt.Errorf("%w: tournament %s", repository.ErrNotFound, id)
	}
	m.draws[id] = entries
	return nil
}

func (m *mockDependencies) SelectionsByUser(_ context.Context, userID string) ([]model.Selection, error) {
	var out []model.Selection
	for _, s := range m.selections {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockDependencies) AddSelection(_ context.Context, sel model.Selection) (model.Selection, error) {
	if sel.DrawHalf == "" {
		sel.DrawHalf = model.HalfTop
	}
	if err := picks.Validate(m.selections, sel); err != nil {
		return model.Selection{}, fmt.Errorf("%w: %w", repository.ErrConflict, err)
	}
	sel.ID = fmt.Sprintf("s%d", len(m.selections)+1)
	m.selections = append(m.selections, sel)
	return sel, nil
}

func (m *mockDependencies) SubmitPicks(_ context.Context, userID, tournamentID string, playerIDs []string) ([]model.Selection, error) {
	if m.storeErr != nil {
		return nil, m.storeErr
	}
	out := make([]model.Selection, 0, len(playerIDs))
	for _, id := range playerIDs {
		out = append(out, model.Selection{UserID: userID, TournamentID: tournamentID, PlayerID: id})
	}
	return out, nil
}

func (m *mockDependencies) Leaderboard(_ context.Context, key ranking.SortKey) ([]model.LeaderboardRow, error) {
	m.lastSort = key
	return ranking.Sort(m.rows, key), nil
}

func (m *mockDependencies) SeenAndRecord(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDependencies) Unrecord(_ context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
}

func (m *mockDependencies) Enqueue(_ context.Context, e model.ResultEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queueFull {
		return false
	}
	m.enqueued = append(m.enqueued, e)
	return true
}

type mockStatsProvider struct{}

func (mockStatsProvider) GetStats() map[string]any {
	return map[string]any{"started": true, "queueLength": 0}
}

type extraStats map[string]any

func (e extraStats) GetStats() map[string]any { return e }

func do(h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestServer_Routes(t *testing.T) {
	Convey("Given an API router over mock dependencies", t, func() {
		deps := newMockDependencies()
		router := api.NewServer(deps, mockStatsProvider{}).Router()

		Convey("Then health and stats respond", func() {
			So(do(router, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
			w := do(router, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then extra stats providers are merged in", func() {
			merged := api.NewServer(deps, mockStatsProvider{},
				api.WithStatsProvider(extraStats{"liveClients": 3, "queueLength": 7}),
				api.WithStatsProvider(nil),
			).Router()
			w := do(merged, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"liveClients":3`)
			So(w.Body.String(), ShouldContainSubstring, `"queueLength":7`)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then unknown routes are 404", func() {
			So(do(router, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When listing tournaments", func() {
			w := do(router, http.MethodGet, "/tournaments", "")

			Convey("Then the stored tournaments are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got []model.Tournament
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(got[0].Location, ShouldEqual, "Paris")
			})
		})

		Convey("When the store fails", func() {
			deps.storeErr = errors.New("db down")
			w := do(router, http.MethodGet, "/tournaments", "")

			Convey("Then the details are hidden", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(errorCode(w), ShouldEqual, "internal_error")
				So(w.Body.String(), ShouldNotContainSubstring, "db down")
			})
		})

		Convey("When creating a tournament", func() {
			w := do(router, http.MethodPost, "/tournaments", `{"id":"wimb","name":"Wimbledon","location":"London","start_date":"2026-06-29T00:00:00Z"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)

			Convey("Then a second create conflicts", func() {
				w := do(router, http.MethodPost, "/tournaments", `{"id":"wimb","name":"Wimbledon"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(w), ShouldEqual, "conflict")
			})

			Convey("Then a nameless tournament is rejected", func() {
				So(do(router, http.MethodPost, "/tournaments", `{"id":"x"}`).Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When reading a draw", func() {
			Convey("Then plain entries come back", func() {
				w := do(router, http.MethodGet, "/tournament/rg/draw", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldNotContainSubstring, "nationality")
			})

			Convey("Then enrich adds profile fields", func() {
				w := do(router, http.MethodGet, "/tournament/rg/draw?enrich=true", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var got []model.EnrichedEntry
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].Nationality, ShouldNotBeEmpty)
			})

			Convey("Then an unknown tournament is 404", func() {
				w := do(router, http.MethodGet, "/tournament/nope/draw", "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "not_found")
			})
		})

		Convey("When replacing a draw", func() {
			w := do(router, http.MethodPut, "/tournament/rg/draw", `[{"player_id":"sinner","draw_half":"top","position":1}]`)

			Convey("Then the new draw is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.draws["rg"][0].DrawHalf, ShouldEqual, model.HalfTop)
				So(deps.draws["rg"][0].TournamentID, ShouldEqual, "rg")
			})

			Convey("Then a bad half is rejected", func() {
				w := do(router, http.MethodPut, "/tournament/rg/draw", `[{"player_id":"sinner","draw_half":"middle"}]`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When selecting single players", func() {
			body := func(player string) string {
				return fmt.Sprintf(`{"user_id":"u1","tournament_id":"rg","player_id":%q}`, player)
			}
			So(do(router, http.MethodPost, "/selections", body("a")).Code, ShouldEqual, http.StatusCreated)
			So(do(router, http.MethodPost, "/selections", body("b")).Code, ShouldEqual, http.StatusCreated)

			Convey("Then a third player in the half is a conflict", func() {
				w := do(router, http.MethodPost, "/selections", body("c"))
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(w), ShouldEqual, "half_full")
			})

			Convey("Then the history is listed and grouped", func() {
				w := do(router, http.MethodGet, "/selections/u1", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var sels []model.Selection
				So(json.Unmarshal(w.Body.Bytes(), &sels), ShouldBeNil)
				So(len(sels), ShouldEqual, 2)

				w = do(router, http.MethodGet, "/selections/u1?group=tournament", "")
				var groups []picks.TournamentGroup
				So(json.Unmarshal(w.Body.Bytes(), &groups), ShouldBeNil)
				So(len(groups), ShouldEqual, 1)
				So(len(groups[0].Selections), ShouldEqual, 2)
			})

			Convey("Then an unknown user has an empty history", func() {
				w := do(router, http.MethodGet, "/selections/nobody", "")
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When the browser posts a selection with its own date", func() {
			w := do(router, http.MethodPost, "/selections",
				`{"user_id":"demo-user","tournament_id":"rg","player_id":"alcaraz","draw_half":"Top","selection_date":"2026-05-25T10:00:00.000Z"}`)

			Convey("Then it is stored with that date", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				var sel model.Selection
				So(json.Unmarshal(w.Body.Bytes(), &sel), ShouldBeNil)
				So(sel.DrawHalf, ShouldEqual, model.HalfTop)
				So(sel.SelectionDate.Equal(time.Date(2026, time.May, 25, 10, 0, 0, 0, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When a selection is malformed", func() {
			So(do(router, http.MethodPost, "/selections", `{"user_id":"u1"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(router, http.MethodPost, "/selections", `{"user_id":"u1","tournament_id":"rg","player_id":"a","extra":1}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(router, http.MethodPost, "/selections", `not json`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When submitting a pick set", func() {
			Convey("Then four players are stored", func() {
				w := do(router, http.MethodPost, "/picks", `{"user_id":"u1","tournament_id":"rg","player_ids":["a","b","c","d"]}`)
				So(w.Code, ShouldEqual, http.StatusCreated)
			})

			Convey("Then fewer players are an incomplete set", func() {
				w := do(router, http.MethodPost, "/picks", `{"user_id":"u1","tournament_id":"rg","player_ids":["a","b"]}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "incomplete_picks")
			})

			Convey("Then a malformed set from the service is a bad request", func() {
				deps.storeErr = fmt.Errorf("%w: %w", repository.ErrInvalid, picks.ErrHalfFull)
				w := do(router, http.MethodPost, "/picks", `{"user_id":"u1","tournament_id":"rg","player_ids":["a","b","c","d"]}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "half_full")
			})
		})

		Convey("When reading the leaderboard", func() {
			Convey("Then the default key is week points", func() {
				w := do(router, http.MethodGet, "/leaderboard", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastSort, ShouldEqual, ranking.DefaultSortKey)
				var rows []model.LeaderboardRow
				So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
				So(rows[0].UserID, ShouldEqual, "bob")
			})

			Convey("Then another key reorders", func() {
				w := do(router, http.MethodGet, "/leaderboard?sort=month_points", "")
				var rows []model.LeaderboardRow
				So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
				So(rows[0].UserID, ShouldEqual, "alice")
			})

			Convey("Then an unknown key is rejected", func() {
				w := do(router, http.MethodGet, "/leaderboard?sort=points", "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "unknown_sort_key")
			})
		})
	})
}

func TestResultsHandler(t *testing.T) {
	Convey("Given an API router accepting results", t, func() {
		deps := newMockDependencies()
		router := api.NewServer(deps, mockStatsProvider{}).Router()
		body := `{"event_id":"e1","tournament_id":"rg","player_id":"alcaraz","round":"QF","ts":"2026-06-05T14:00:00+02:00"}`

		Convey("When a result is posted", func() {
			w := do(router, http.MethodPost, "/results", body)

			Convey("Then it is accepted and queued in UTC", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"accepted"`)
				So(len(deps.enqueued), ShouldEqual, 1)
				So(deps.enqueued[0].TS.Equal(time.Date(2026, 6, 5, 12, 0, 0, 0, time.UTC)), ShouldBeTrue)
				So(deps.enqueued[0].TS.Location(), ShouldEqual, time.UTC)
			})

			Convey("Then a replay is a duplicate", func() {
				w := do(router, http.MethodPost, "/results", body)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
				So(len(deps.enqueued), ShouldEqual, 1)
			})
		})

		Convey("When the queue is full", func() {
			deps.queueFull = true
			w := do(router, http.MethodPost, "/results", body)

			Convey("Then it reports backpressure and the id can be retried", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(errorCode(w), ShouldEqual, "backpressure")

				deps.queueFull = false
				So(do(router, http.MethodPost, "/results", body).Code, ShouldEqual, http.StatusAccepted)
			})
		})

		Convey("When fields are missing", func() {
			w := do(router, http.MethodPost, "/results", `{"event_id":"e1","round":"QF"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "bad_request")
		})
	})
}

func TestAdminOnly(t *testing.T) {
	Convey("Given a router with an admin secret", t, func() {
		secret := "s3cret"
		deps := newMockDependencies()
		router := api.NewServer(deps, mockStatsProvider{}, api.WithAdminSecret(secret)).Router()
		body := `{"id":"wimb","name":"Wimbledon"}`

		Convey("Then a request without a token is unauthorized", func() {
			w := do(router, http.MethodPost, "/tournaments", body)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(errorCode(w), ShouldEqual, "unauthorized")
		})

		Convey("Then a token signed with another secret is unauthorized", func() {
			token, err := api.IssueAdminToken([]byte("other"), "ops", time.Minute)
			So(err, ShouldBeNil)
			w := do(router, http.MethodPost, "/tournaments", body, "Authorization", "Bearer "+token)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Then an expired token is unauthorized", func() {
			token, err := api.IssueAdminToken([]byte(secret), "ops", -time.Minute)
			So(err, ShouldBeNil)
			w := do(router, http.MethodPost, "/tournaments", body, "Authorization", "Bearer "+token)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Then a valid admin token passes", func() {
			token, err := api.IssueAdminToken([]byte(secret), "ops", time.Minute)
			So(err, ShouldBeNil)
			w := do(router, http.MethodPost, "/tournaments", body, "Authorization", "Bearer "+token)
			So(w.Code, ShouldEqual, http.StatusCreated)
		})

		Convey("Then public routes stay open", func() {
			So(do(router, http.MethodGet, "/tournaments", "").Code, ShouldEqual, http.StatusOK)
		})
	})

	Convey("Given no secret", t, func() {
		_, err := api.IssueAdminToken(nil, "ops", time.Minute)
		So(err, ShouldNotBeNil)
	})
}

func TestCORS(t *testing.T) {
	Convey("Given a router with an allowed origin", t, func() {
		router := api.NewServer(newMockDependencies(), mockStatsProvider{},
			api.WithAllowedOrigins("http://localhost:3000")).Router()

		Convey("When the browser preflights a pick submission", func() {
			w := do(router, http.MethodOptions, "/picks", "",
				"Origin", "http://localhost:3000",
				"Access-Control-Request-Method", http.MethodPost,
			)

			Convey("Then the origin is allowed", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "http://localhost:3000")
			})
		})

		Convey("When another origin asks", func() {
			w := do(router, http.MethodGet, "/tournaments", "", "Origin", "http://evil.example")

			Convey("Then no CORS header is set", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
			})
		})
	})
}
