package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/okian/acerace/internal/adapters/repository/migrations"
	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/internal/domain/picks"
	"github.com/okian/acerace/internal/domain/ranking"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore implements Store on database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
	newID  func() string

	// selMu serializes selection writes so the per-half cap holds across
	// concurrent requests on either driver.
	selMu sync.Mutex
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open connects to the database and applies the embedded migrations.
// For sqlite the dsn is a file path or ":memory:".
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: empty dsn", ErrInvalid)
	}
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = sql.Open("sqlite", dsn)
		if err == nil {
			// One connection: sqlite has a single writer and every
			// :memory: connection would otherwise be its own database.
			db.SetMaxOpenConns(1)
		}
	case DriverPostgres:
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			db.SetMaxOpenConns(25)
			db.SetMaxIdleConns(25)
			db.SetConnMaxLifetime(5 * time.Minute)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrDriver, driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}

	s := &SQLStore{
		db:     db,
		driver: driver,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	if err := s.migrate(ctx, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// CreateTournament inserts t. A taken id returns ErrConflict.
func (s *SQLStore) CreateTournament(ctx context.Context, t model.Tournament) error {
	t.ID = strings.TrimSpace(t.ID)
	t.Name = strings.TrimSpace(t.Name)
	if t.ID == "" {
		return fmt.Errorf("%w: tournament id is required", ErrInvalid)
	}
	if t.Name == "" {
		return fmt.Errorf("%w: tournament name is required", ErrInvalid)
	}
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO tournaments (id, name, location, start_date) VALUES (?, ?, ?, ?)`),
		t.ID, t.Name, strings.TrimSpace(t.Location), toMillis(t.StartDate),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: tournament %s exists", ErrConflict, t.ID)
		}
		return fmt.Errorf("create tournament: %w", err)
	}
	return nil
}

// GetTournament returns one tournament.
func (s *SQLStore) GetTournament(ctx context.Context, id string) (model.Tournament, error) {
	return s.getTournament(ctx, s.db, id)
}

func (s *SQLStore) getTournament(ctx context.Context, q querier, id string) (model.Tournament, error) {
	var (
		t     model.Tournament
		start int64
	)
	err := q.QueryRowContext(ctx,
		s.rebind(`SELECT id, name, location, start_date FROM tournaments WHERE id = ?`), id,
	).Scan(&t.ID, &t.Name, &t.Location, &start)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tournament{}, fmt.Errorf("%w: tournament %s", ErrNotFound, id)
	}
	if err != nil {
		return model.Tournament{}, fmt.Errorf("get tournament: %w", err)
	}
	t.StartDate = fromMillis(start)
	return t, nil
}

// ListTournaments returns every tournament.
func (s *SQLStore) ListTournaments(ctx context.Context) ([]model.Tournament, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, location, start_date FROM tournaments ORDER BY start_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	defer rows.Close()

	out := make([]model.Tournament, 0)
	for rows.Next() {
		var (
			t     model.Tournament
			start int64
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Location, &start); err != nil {
			return nil, fmt.Errorf("scan tournament: %w", err)
		}
		t.StartDate = fromMillis(start)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	return out, nil
}

// ReplaceDraw deletes the current draw of tournamentID and inserts entries.
// The caller's slice is left untouched.
func (s *SQLStore) ReplaceDraw(ctx context.Context, tournamentID string, entries []model.DrawEntry) error {
	entries = slices.Clone(entries)
	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		e := &entries[i]
		if e.TournamentID == "" {
			e.TournamentID = tournamentID
		}
		switch {
		case e.TournamentID != tournamentID:
			return kindErr(ErrInvalid, picks.ErrWrongTournament)
		case strings.TrimSpace(e.PlayerID) == "":
			return fmt.Errorf("%w: player id is required", ErrInvalid)
		case !e.DrawHalf.Valid():
			return kindErr(ErrInvalid, fmt.Errorf("%w: %q", model.ErrInvalidHalf, e.DrawHalf))
		case e.Position <= 0:
			return fmt.Errorf("%w: position must be positive", ErrInvalid)
		}
		if _, dup := seen[e.PlayerID]; dup {
			return fmt.Errorf("%w: player %s listed twice", ErrInvalid, e.PlayerID)
		}
		seen[e.PlayerID] = struct{}{}
		if e.ID == "" {
			e.ID = s.newID()
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace draw: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.getTournament(ctx, tx, tournamentID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM draw_entries WHERE tournament_id = ?`), tournamentID); err != nil {
		return fmt.Errorf("clear draw: %w", err)
	}
	insert := s.rebind(`INSERT INTO draw_entries (id, tournament_id, player_id, draw_half, position) VALUES (?, ?, ?, ?, ?)`)
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, insert, e.ID, e.TournamentID, e.PlayerID, string(e.DrawHalf), e.Position); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: draw entry %s", ErrConflict, e.ID)
			}
			return fmt.Errorf("insert draw entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace draw: %w", err)
	}
	return nil
}

// Draw returns the draw of a tournament. An unknown tournament is
// ErrNotFound; a known one without a draw yields an empty slice.
func (s *SQLStore) Draw(ctx context.Context, tournamentID string) ([]model.DrawEntry, error) {
	if _, err := s.getTournament(ctx, s.db, tournamentID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT id, tournament_id, player_id, draw_half, position
FROM draw_entries WHERE tournament_id = ? ORDER BY position, player_id`), tournamentID)
	if err != nil {
		return nil, fmt.Errorf("query draw: %w", err)
	}
	defer rows.Close()

	out := make([]model.DrawEntry, 0)
	for rows.Next() {
		var (
			e    model.DrawEntry
			half string
		)
		if err := rows.Scan(&e.ID, &e.TournamentID, &e.PlayerID, &half, &e.Position); err != nil {
			return nil, fmt.Errorf("scan draw entry: %w", err)
		}
		e.DrawHalf = model.DrawHalf(half)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query draw: %w", err)
	}
	return out, nil
}

// DrawEntry returns where a player sits in a tournament draw.
func (s *SQLStore) DrawEntry(ctx context.Context, tournamentID, playerID string) (model.DrawEntry, error) {
	return s.drawEntry(ctx, s.db, tournamentID, playerID)
}

func (s *SQLStore) drawEntry(ctx context.Context, q querier, tournamentID, playerID string) (model.DrawEntry, error) {
	var (
		e    model.DrawEntry
		half string
	)
	err := q.QueryRowContext(ctx, s.rebind(`
SELECT id, tournament_id, player_id, draw_half, position
FROM draw_entries WHERE tournament_id = ? AND player_id = ?`), tournamentID, playerID,
	).Scan(&e.ID, &e.TournamentID, &e.PlayerID, &half, &e.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DrawEntry{}, fmt.Errorf("%w: player %s is not in the draw of %s", ErrNotFound, playerID, tournamentID)
	}
	if err != nil {
		return model.DrawEntry{}, fmt.Errorf("get draw entry: %w", err)
	}
	e.DrawHalf = model.DrawHalf(half)
	return e, nil
}

// AddSelection stores one selection.
func (s *SQLStore) AddSelection(ctx context.Context, sel model.Selection) (model.Selection, error) {
	out, err := s.AddSelections(ctx, []model.Selection{sel})
	if err != nil {
		return model.Selection{}, err
	}
	return out[0], nil
}

// AddSelections validates and stores sels in one transaction.
func (s *SQLStore) AddSelections(ctx context.Context, sels []model.Selection) ([]model.Selection, error) {
	if len(sels) == 0 {
		return nil, fmt.Errorf("%w: no selections", ErrInvalid)
	}

	s.selMu.Lock()
	defer s.selMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add selections: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing := make(map[string][]model.Selection)
	insert := s.rebind(`
INSERT INTO selections (id, user_id, tournament_id, player_id, draw_half, selection_date)
VALUES (?, ?, ?, ?, ?, ?)`)
	out := make([]model.Selection, 0, len(sels))

	for _, sel := range sels {
		sel.UserID = strings.TrimSpace(sel.UserID)
		if sel.UserID == "" || sel.TournamentID == "" || sel.PlayerID == "" {
			return nil, fmt.Errorf("%w: user_id, tournament_id and player_id are required", ErrInvalid)
		}
		if sel.DrawHalf != "" && !sel.DrawHalf.Valid() {
			return nil, kindErr(ErrInvalid, fmt.Errorf("%w: %q", model.ErrInvalidHalf, sel.DrawHalf))
		}
		if _, err := s.getTournament(ctx, tx, sel.TournamentID); err != nil {
			return nil, err
		}
		entry, err := s.drawEntry(ctx, tx, sel.TournamentID, sel.PlayerID)
		if err != nil {
			return nil, err
		}
		if sel.DrawHalf == "" {
			sel.DrawHalf = entry.DrawHalf
		}
		if sel.DrawHalf != entry.DrawHalf {
			return nil, kindErr(ErrInvalid, picks.ErrHalfMismatch)
		}

		key := sel.UserID + "\x00" + sel.TournamentID
		prior, ok := existing[key]
		if !ok {
			prior, err = s.userTournamentSelections(ctx, tx, sel.UserID, sel.TournamentID)
			if err != nil {
				return nil, err
			}
		}
		if err := picks.Validate(prior, sel); err != nil {
			return nil, kindErr(ErrConflict, err)
		}

		if sel.ID == "" {
			sel.ID = s.newID()
		}
		if sel.SelectionDate.IsZero() {
			sel.SelectionDate = s.now()
		}
		sel.SelectionDate = fromMillis(toMillis(sel.SelectionDate))

		if _, err := tx.ExecContext(ctx, insert,
			sel.ID, sel.UserID, sel.TournamentID, sel.PlayerID, string(sel.DrawHalf), toMillis(sel.SelectionDate),
		); err != nil {
			if isUniqueViolation(err) {
				return nil, kindErr(ErrConflict, picks.ErrDuplicatePick)
			}
			return nil, fmt.Errorf("insert selection: %w", err)
		}
		existing[key] = append(prior, sel)
		out = append(out, sel)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add selections: %w", err)
	}
	return out, nil
}

func (s *SQLStore) userTournamentSelections(ctx context.Context, q querier, userID, tournamentID string) ([]model.Selection, error) {
	return s.querySelections(ctx, q, `
SELECT id, user_id, tournament_id, player_id, draw_half, selection_date
FROM selections WHERE user_id = ? AND tournament_id = ?
ORDER BY selection_date, id`, userID, tournamentID)
}

// SelectionsByUser returns every selection of a user.
func (s *SQLStore) SelectionsByUser(ctx context.Context, userID string) ([]model.Selection, error) {
	return s.querySelections(ctx, s.db, `
SELECT id, user_id, tournament_id, player_id, draw_half, selection_date
FROM selections WHERE user_id = ?
ORDER BY selection_date, id`, userID)
}

func (s *SQLStore) querySelections(ctx context.Context, q querier, query string, args ...any) ([]model.Selection, error) {
	rows, err := q.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	out := make([]model.Selection, 0)
	for rows.Next() {
		var (
			sel  model.Selection
			half string
			at   int64
		)
		if err := rows.Scan(&sel.ID, &sel.UserID, &sel.TournamentID, &sel.PlayerID, &half, &at); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		sel.DrawHalf = model.DrawHalf(half)
		sel.SelectionDate = fromMillis(at)
		out = append(out, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	return out, nil
}

// PickersOf returns the users holding a selection of playerID.
func (s *SQLStore) PickersOf(ctx context.Context, tournamentID, playerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT DISTINCT user_id FROM selections
WHERE tournament_id = ? AND player_id = ? ORDER BY user_id`), tournamentID, playerID)
	if err != nil {
		return nil, fmt.Errorf("query pickers: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan picker: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query pickers: %w", err)
	}
	return users, nil
}

// AddAward inserts a, ignoring a repeat of the same (event, user).
func (s *SQLStore) AddAward(ctx context.Context, a model.Award) (bool, error) {
	if a.UserID == "" || a.EventID == "" {
		return false, fmt.Errorf("%w: award needs user_id and event_id", ErrInvalid)
	}
	if a.ID == "" {
		a.ID = s.newID()
	}
	if a.AwardedAt.IsZero() {
		a.AwardedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`
INSERT INTO awards (id, user_id, tournament_id, player_id, event_id, points, awarded_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (event_id, user_id) DO NOTHING`),
		a.ID, a.UserID, a.TournamentID, a.PlayerID, a.EventID, a.Points, toMillis(a.AwardedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert award: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert award: %w", err)
	}
	return n > 0, nil
}

// Leaderboard aggregates points per user over the windows of w.
func (s *SQLStore) Leaderboard(ctx context.Context, w ranking.Window) ([]model.LeaderboardRow, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT u.user_id,
       COALESCE(SUM(CASE WHEN a.awarded_at >= ? THEN a.points ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN a.awarded_at >= ? THEN a.points ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN a.awarded_at >= ? THEN a.points ELSE 0 END), 0)
FROM (SELECT user_id FROM selections UNION SELECT user_id FROM awards) u
LEFT JOIN awards a ON a.user_id = u.user_id
GROUP BY u.user_id
ORDER BY u.user_id`),
		toMillis(w.Week), toMillis(w.Month), toMillis(w.Year),
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]model.LeaderboardRow, 0)
	for rows.Next() {
		var r model.LeaderboardRow
		if err := rows.Scan(&r.UserID, &r.WeekPoints, &r.MonthPoints, &r.YearPoints); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	return out, nil
}

// Count returns how many users are on the leaderboard.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM (SELECT user_id FROM selections UNION SELECT user_id FROM awards) u`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

var _ Store = (*SQLStore)(nil)
