package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/acerace/internal/adapters/http/live"
	"github.com/okian/acerace/internal/adapters/repository"
	app "github.com/okian/acerace/internal/app"
	"github.com/okian/acerace/internal/config"
	"github.com/okian/acerace/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the full route tree over an in-memory store", t, func() {
		ctx := context.Background()
		store, err := repository.Open(ctx, repository.DriverSQLite, ":memory:")
		convey.So(err, convey.ShouldBeNil)
		defer store.Close()

		cfg := config.New()
		svc := app.New(app.WithStore(store), app.WithWorkerCount(1))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		hub := live.NewHub(svc)
		hubCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go hub.Run(hubCtx)

		h := newHandler(ctx, cfg, svc, hub)

		for _, path := range []string{"/healthz", "/stats", "/tournaments", "/leaderboard", "/api-docs", "/openapi.yaml"} {
			convey.Convey("Then GET "+path+" answers 200", func() {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			})
		}

		convey.Convey("Then /stats includes the live client count", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", http.NoBody))
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"liveClients":0`)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"started":true`)
		})

		convey.Convey("Then the websocket route refuses plain requests", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/leaderboard", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("Then admin routes follow the configured secret", func() {
			cfg.AdminSecret = "s3cret"
			guarded := newHandler(ctx, cfg, svc, hub)
			w := httptest.NewRecorder()
			guarded.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/results", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a config with a seed file", t, func() {
		dir := t.TempDir()
		seedPath := filepath.Join(dir, "seed.yaml")
		convey.So(os.WriteFile(seedPath, []byte(`
tournaments:
  - id: rg
    name: Roland Garros
    start_date: "2026-05-24"
    draw:
      - { player_id: alcaraz, draw_half: top }
`), 0o600), convey.ShouldBeNil)

		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.DBDSN = filepath.Join(dir, "acerace.db")
		cfg.WorkerCount = 1
		cfg.SeedFile = seedPath

		convey.Convey("When run is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg, logger.Get()) }()
			time.Sleep(100 * time.Millisecond)
			cancel()

			convey.Convey("Then it shuts down cleanly and the seed persisted", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("run did not return")
				}

				store, err := repository.Open(context.Background(), repository.DriverSQLite, cfg.DBDSN)
				convey.So(err, convey.ShouldBeNil)
				defer store.Close()
				tour, err := store.GetTournament(context.Background(), "rg")
				convey.So(err, convey.ShouldBeNil)
				convey.So(tour.Name, convey.ShouldEqual, "Roland Garros")
			})
		})

		convey.Convey("When the seed file is broken", func() {
			cfg.SeedFile = filepath.Join(dir, "missing.yaml")
			err := run(context.Background(), cfg, logger.Get())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestUpdateMetrics(t *testing.T) {
	convey.Convey("Given the metric updaters", t, func() {
		convey.Convey("Then they run without a started service", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(app.New()) }, convey.ShouldNotPanic)
		})
	})
}
