package cli_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/acerace/internal/adapters/http/api"
	"github.com/okian/acerace/internal/adapters/repository"
	service "github.com/okian/acerace/internal/app"
	"github.com/okian/acerace/internal/cli"
	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newServer(t *testing.T, opts ...api.Option) string {
	t.Helper()
	ctx := context.Background()
	store, err := repository.Open(ctx, repository.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	start := time.Date(2026, 5, 24, 0, 0, 0, 0, time.UTC)
	if err := store.CreateTournament(ctx, model.Tournament{ID: "rg", Name: "Roland Garros", Location: "Paris", StartDate: start}); err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	if err := store.ReplaceDraw(ctx, "rg", []model.DrawEntry{
		{PlayerID: "alcaraz", DrawHalf: model.HalfTop, Position: 1},
		{PlayerID: "sinner", DrawHalf: model.HalfTop, Position: 2},
		{PlayerID: "ruud", DrawHalf: model.HalfTop, Position: 3},
		{PlayerID: "djokovic", DrawHalf: model.HalfBottom, Position: 4},
		{PlayerID: "zverev", DrawHalf: model.HalfBottom, Position: 5},
	}); err != nil {
		t.Fatalf("replace draw: %v", err)
	}
	svc := service.New(service.WithStore(store), service.WithWorkerCount(1))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	srv := httptest.NewServer(api.NewServer(svc, svc, opts...).Router())
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Stop(ctx)
		_ = store.Close()
	})
	return srv.URL
}

type runner struct {
	url      string
	identity string
}

func (r runner) run(args ...string) (int, string, string) {
	var out, errOut bytes.Buffer
	full := append([]string{"-server", r.url, "-identity", r.identity}, args...)
	code := cli.Run(context.Background(), full, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestCLI(t *testing.T) {
	Convey("Given the CLI pointed at a running server", t, func() {
		r := runner{url: newServer(t), identity: filepath.Join(t.TempDir(), "identity.json")}

		Convey("Then tournaments are listed", func() {
			code, out, _ := r.run("tournaments")
			So(code, ShouldEqual, cli.ExitOK)
			So(out, ShouldContainSubstring, "Roland Garros")
			So(out, ShouldContainSubstring, "2026-05-24")
		})

		Convey("Then the draw is shown by half", func() {
			code, out, _ := r.run("draw", "rg")
			So(code, ShouldEqual, cli.ExitOK)
			So(out, ShouldContainSubstring, "Top half:")
			So(out, ShouldContainSubstring, "Bottom half:")
			So(strings.Index(out, "alcaraz"), ShouldBeLessThan, strings.Index(out, "Bottom half:"))
			So(strings.Index(out, "zverev"), ShouldBeGreaterThan, strings.Index(out, "Bottom half:"))
		})

		Convey("Then the identity defaults to the demo user", func() {
			_, out, _ := r.run("whoami")
			So(strings.TrimSpace(out), ShouldEqual, "demo-user")
		})

		Convey("When logged in and picking a full set", func() {
			code, _, _ := r.run("login", "alice")
			So(code, ShouldEqual, cli.ExitOK)

			code, out, _ := r.run("pick", "rg", "alcaraz", "sinner", "djokovic", "zverev")
			So(code, ShouldEqual, cli.ExitOK)
			So(out, ShouldContainSubstring, cli.MsgSubmitted)

			Convey("Then the history lists the picks for the logged in user", func() {
				code, out, _ := r.run("history")
				So(code, ShouldEqual, cli.ExitOK)
				So(out, ShouldContainSubstring, "rg:")
				So(out, ShouldContainSubstring, "djokovic")
			})

			Convey("Then picking again fails on the server", func() {
				code, out, _ := r.run("pick", "rg", "alcaraz", "sinner", "djokovic", "zverev")
				So(code, ShouldEqual, cli.ExitError)
				So(out, ShouldContainSubstring, cli.MsgFailed)
			})

			Convey("Then the leaderboard marks the leader", func() {
				code, out, _ := r.run("leaderboard", "-sort", "user_id")
				So(code, ShouldEqual, cli.ExitOK)
				So(out, ShouldContainSubstring, "*")
				So(out, ShouldContainSubstring, "alice")
			})
		})

		Convey("When a third player of one half is picked", func() {
			code, out, _ := r.run("pick", "rg", "alcaraz", "sinner", "ruud")
			So(code, ShouldEqual, cli.ExitError)
			So(out, ShouldContainSubstring, cli.MsgHalfFull)
		})

		Convey("When the set is incomplete", func() {
			code, out, _ := r.run("pick", "rg", "alcaraz", "djokovic")
			So(code, ShouldEqual, cli.ExitError)
			So(out, ShouldContainSubstring, cli.MsgNotReady)
		})

		Convey("When a player is toggled twice", func() {
			code, out, _ := r.run("pick", "rg", "alcaraz", "ruud", "ruud", "sinner", "djokovic", "zverev")
			So(code, ShouldEqual, cli.ExitOK)
			So(out, ShouldContainSubstring, cli.MsgSubmitted)
		})

		Convey("When the player is not in the draw", func() {
			code, _, errOut := r.run("pick", "rg", "federer")
			So(code, ShouldEqual, cli.ExitError)
			So(errOut, ShouldContainSubstring, "federer")
		})

		Convey("When the sort key is unknown", func() {
			code, _, _ := r.run("leaderboard", "-sort", "points")
			So(code, ShouldEqual, cli.ExitError)
		})

		Convey("When the command is unknown or missing", func() {
			code, _, errOut := r.run("serve")
			So(code, ShouldEqual, cli.ExitUsage)
			So(errOut, ShouldContainSubstring, "unknown command")

			code, _, _ = r.run()
			So(code, ShouldEqual, cli.ExitUsage)
		})

		Convey("When arguments are missing", func() {
			code, _, errOut := r.run("draw")
			So(code, ShouldEqual, cli.ExitUsage)
			So(errOut, ShouldContainSubstring, "usage: acerace draw")
		})
	})
}

func TestCLIAdmin(t *testing.T) {
	Convey("Given a server with an admin secret", t, func() {
		r := runner{url: newServer(t, api.WithAdminSecret("s3cret")), identity: filepath.Join(t.TempDir(), "identity.json")}

		Convey("When a result is posted without a token", func() {
			code, _, errOut := r.run("result", "rg", "alcaraz", "QF")
			So(code, ShouldEqual, cli.ExitError)
			So(errOut, ShouldContainSubstring, "401")
		})

		Convey("When a token is issued and used", func() {
			code, out, _ := r.run("admin-token", "-secret", "s3cret", "-ttl", "1m")
			So(code, ShouldEqual, cli.ExitOK)
			token := strings.TrimSpace(out)
			So(token, ShouldNotBeEmpty)

			code, out, _ = r.run("-token", token, "result", "-event", "e1", "rg", "alcaraz", "QF")
			So(code, ShouldEqual, cli.ExitOK)
			So(out, ShouldContainSubstring, "Result e1 accepted.")

			Convey("Then a replay is reported as recorded", func() {
				_, out, _ := r.run("-token", token, "result", "-event", "e1", "rg", "alcaraz", "QF")
				So(out, ShouldContainSubstring, "already recorded")
			})
		})

		Convey("When admin-token has no secret", func() {
			code, _, _ := r.run("admin-token")
			So(code, ShouldEqual, cli.ExitUsage)
		})
	})
}
