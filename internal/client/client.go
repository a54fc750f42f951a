// Package client is a typed Go client for the pick game HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/acerace/internal/domain/draw"
	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/internal/domain/picks"
	"github.com/okian/acerace/internal/domain/ranking"
)

const (
	defaultTimeout = 10 * time.Second
	// maxInFlight bounds concurrent requests of SubmitSelections.
	maxInFlight = 4
)

// Error is a non-2xx answer from the API.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to one API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	adminToken string
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tournaments lists every tournament.
func (c *Client) Tournaments(ctx context.Context) ([]model.Tournament, error) {
	var out []model.Tournament
	if err := c.do(ctx, http.MethodGet, "/tournaments", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Draw returns a tournament's draw with player profiles attached.
func (c *Client) Draw(ctx context.Context, tournamentID string) ([]model.EnrichedEntry, error) {
	var entries []model.DrawEntry
	if err := c.do(ctx, http.MethodGet, "/tournament/"+url.PathEscape(tournamentID)+"/draw", nil, &entries); err != nil {
		return nil, err
	}
	return draw.EnrichAll(entries), nil
}

// Selections returns a user's pick history.
func (c *Client) Selections(ctx context.Context, userID string) ([]model.Selection, error) {
	var out []model.Selection
	if err := c.do(ctx, http.MethodGet, "/selections/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// History returns a user's picks grouped by tournament.
func (c *Client) History(ctx context.Context, userID string) ([]picks.TournamentGroup, error) {
	sels, err := c.Selections(ctx, userID)
	if err != nil {
		return nil, err
	}
	return picks.GroupByTournament(sels), nil
}

type selectionRequest struct {
	UserID        string         `json:"user_id"`
	TournamentID  string         `json:"tournament_id"`
	PlayerID      string         `json:"player_id"`
	DrawHalf      model.DrawHalf `json:"draw_half,omitempty"`
	SelectionDate *time.Time     `json:"selection_date,omitempty"`
}

// SubmitSelection stores one pick.
func (c *Client) SubmitSelection(ctx context.Context, sel model.Selection) (model.Selection, error) {
	req := selectionRequest{
		UserID:       sel.UserID,
		TournamentID: sel.TournamentID,
		PlayerID:     sel.PlayerID,
		DrawHalf:     sel.DrawHalf,
	}
	if !sel.SelectionDate.IsZero() {
		req.SelectionDate = &sel.SelectionDate
	}
	var out model.Selection
	if err := c.do(ctx, http.MethodPost, "/selections", req, &out); err != nil {
		return model.Selection{}, err
	}
	return out, nil
}

// SubmitSelections posts every selection concurrently and returns the first
// failure. Picks stored before a failure stay stored; use SubmitPicks for an
// all-or-nothing submission.
func (c *Client) SubmitSelections(ctx context.Context, sels []model.Selection) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)
	for _, sel := range sels {
		g.Go(func() error {
			_, err := c.SubmitSelection(gctx, sel)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("submit selections: %w", err)
	}
	return nil
}

type picksRequest struct {
	UserID       string   `json:"user_id"`
	TournamentID string   `json:"tournament_id"`
	PlayerIDs    []string `json:"player_ids"`
}

// SubmitPicks stores a complete pick set atomically.
func (c *Client) SubmitPicks(ctx context.Context, set *picks.Set, userID string) ([]model.Selection, error) {
	if !set.Ready() {
		return nil, picks.ErrNotReady
	}
	req := picksRequest{UserID: userID, TournamentID: set.TournamentID()}
	for _, e := range append(set.Top(), set.Bottom()...) {
		req.PlayerIDs = append(req.PlayerIDs, e.PlayerID)
	}
	var out []model.Selection
	if err := c.do(ctx, http.MethodPost, "/picks", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Leaderboard fetches the leaderboard and orders it by key.
func (c *Client) Leaderboard(ctx context.Context, key ranking.SortKey) ([]model.LeaderboardRow, error) {
	var rows []model.LeaderboardRow
	path := "/leaderboard?sort=" + url.QueryEscape(string(key))
	if err := c.do(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}
	return ranking.Sort(rows, key), nil
}

type resultRequest struct {
	EventID      string    `json:"event_id"`
	TournamentID string    `json:"tournament_id"`
	PlayerID     string    `json:"player_id"`
	Round        string    `json:"round"`
	TS           time.Time `json:"ts"`
}

type resultResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// PostResult reports a match result. It needs an admin token when the
// server has an admin secret. duplicate is true when the event id was
// already accepted.
func (c *Client) PostResult(ctx context.Context, e model.ResultEvent) (duplicate bool, err error) { //nolint:gocritic // hugeParam: mirrors the queue's by-value events
	req := resultRequest{
		EventID:      e.EventID,
		TournamentID: e.TournamentID,
		PlayerID:     e.PlayerID,
		Round:        e.Round,
		TS:           e.TS,
	}
	var out resultResponse
	if err := c.do(ctx, http.MethodPost, "/results", req, &out); err != nil {
		return false, err
	}
	return out.Duplicate, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var payload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload) == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
