package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/okian/acerace/internal/adapters/http/api"
	"github.com/okian/acerace/internal/client"
	"github.com/okian/acerace/internal/domain/draw"
	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/internal/domain/picks"
	"github.com/okian/acerace/internal/domain/ranking"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func subFlags(name string, a *app) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func runTournaments(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	ts, err := a.client.Tournaments(ctx)
	if err != nil {
		return err
	}
	if len(ts) == 0 {
		fmt.Fprintln(a.out, "No tournaments.")
		return nil
	}
	tw := newTable(a.out)
	fmt.Fprintln(tw, "ID\tNAME\tLOCATION\tSTARTS")
	for _, t := range ts {
		start := "-"
		if !t.StartDate.IsZero() {
			start = t.StartDate.Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Location, start)
	}
	return tw.Flush()
}

func runDraw(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	entries, err := a.client.Draw(ctx, args[0])
	if err != nil {
		return err
	}
	plain := make([]model.DrawEntry, len(entries))
	for i, e := range entries {
		plain[i] = e.DrawEntry
	}
	top, bottom := draw.Split(plain)
	byHalf := map[model.DrawHalf][]model.DrawEntry{model.HalfTop: top, model.HalfBottom: bottom}
	for _, half := range model.Halves {
		fmt.Fprintf(a.out, "%s half:\n", half)
		tw := newTable(a.out)
		fmt.Fprintln(tw, "  POS\tPLAYER\tNAT\tAGE\tPLAYS\tSURFACE")
		for _, e := range draw.EnrichAll(byHalf[half]) {
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%d\t%s\t%s\n",
				e.Position, e.PlayerID, e.Nationality, e.Age, e.Handedness, e.Surface)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// runPick toggles the listed players into a pick set, the same way the draw
// screen does, and submits the set once it holds two players per half.
func runPick(ctx context.Context, a *app, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	tournamentID, players := args[0], args[1:]

	entries, err := a.client.Draw(ctx, tournamentID)
	if err != nil {
		return err
	}
	byPlayer := make(map[string]model.DrawEntry, len(entries))
	for _, e := range entries {
		byPlayer[e.PlayerID] = e.DrawEntry
	}

	set := picks.New(tournamentID)
	for _, p := range players {
		entry, ok := byPlayer[p]
		if !ok {
			return fmt.Errorf("player %q is not in the %s draw", p, tournamentID)
		}
		if _, err := set.Toggle(entry); err != nil {
			if errors.Is(err, picks.ErrHalfFull) {
				fmt.Fprintln(a.out, MsgHalfFull)
			}
			return err
		}
	}
	if !set.Ready() {
		fmt.Fprintln(a.out, MsgNotReady)
		return picks.ErrNotReady
	}

	if _, err := a.client.SubmitPicks(ctx, set, a.userID); err != nil {
		fmt.Fprintln(a.out, MsgFailed)
		return err
	}
	fmt.Fprintln(a.out, MsgSubmitted)
	return nil
}

func runHistory(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	groups, err := a.client.History(ctx, a.userID)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Fprintf(a.out, "No picks yet for %s.\n", a.userID)
		return nil
	}
	for _, g := range groups {
		fmt.Fprintf(a.out, "%s:\n", g.TournamentID)
		tw := newTable(a.out)
		for _, s := range g.Selections {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", s.PlayerID, s.DrawHalf, s.SelectionDate.Local().Format(time.DateOnly))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func runLeaderboard(ctx context.Context, a *app, args []string) error {
	fs := subFlags("leaderboard", a)
	sortKey := fs.String("sort", string(ranking.DefaultSortKey), "user_id, week_points, month_points or year_points")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return errUsage
	}
	key, err := ranking.ParseSortKey(*sortKey)
	if err != nil {
		return err
	}
	rows, err := a.client.Leaderboard(ctx, key)
	if err != nil {
		return err
	}
	leader, hasLeader := ranking.Leader(rows)

	tw := newTable(a.out)
	fmt.Fprintln(tw, "\tUSER\tWEEK\tMONTH\tYEAR")
	for _, r := range rows {
		mark := ""
		if hasLeader && r.UserID == leader.UserID {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%g\n", mark, r.UserID, r.WeekPoints, r.MonthPoints, r.YearPoints)
	}
	return tw.Flush()
}

func runLogin(_ context.Context, a *app, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errUsage
	}
	if err := client.SaveIdentity(a.identityPath, client.Identity{ID: strings.TrimSpace(args[0])}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s.\n", strings.TrimSpace(args[0]))
	return nil
}

func runWhoami(_ context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	fmt.Fprintln(a.out, a.userID)
	return nil
}

func runResult(ctx context.Context, a *app, args []string) error {
	fs := subFlags("result", a)
	eventID := fs.String("event", "", "event id (default: random)")
	if err := fs.Parse(args); err != nil || fs.NArg() != 3 {
		return errUsage
	}
	if *eventID == "" {
		*eventID = uuid.NewString()
	}
	ev := model.ResultEvent{
		EventID:      *eventID,
		TournamentID: fs.Arg(0),
		PlayerID:     fs.Arg(1),
		Round:        fs.Arg(2),
		TS:           time.Now().UTC(),
	}
	dup, err := a.client.PostResult(ctx, ev)
	if err != nil {
		return err
	}
	if dup {
		fmt.Fprintf(a.out, "Result %s was already recorded.\n", ev.EventID)
		return nil
	}
	fmt.Fprintf(a.out, "Result %s accepted.\n", ev.EventID)
	return nil
}

func runAdminToken(_ context.Context, a *app, args []string) error {
	fs := subFlags("admin-token", a)
	secret := fs.String("secret", "", "admin secret configured on the server")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	subject := fs.String("subject", "admin", "token subject")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 || *secret == "" {
		return errUsage
	}
	token, err := api.IssueAdminToken([]byte(*secret), *subject, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, token)
	return nil
}
