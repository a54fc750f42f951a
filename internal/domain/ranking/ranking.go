// Package ranking orders leaderboard rows and computes the calendar windows
// points are bucketed into.
package ranking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/acerace/internal/domain/model"
)

// ErrUnknownSortKey reports a sort key that is not a leaderboard column.
var ErrUnknownSortKey = errors.New("unknown sort key")

// SortKey names the leaderboard column rows are ordered by.
type SortKey string

// Leaderboard columns.
const (
	ByUser  SortKey = "user_id"
	ByWeek  SortKey = "week_points"
	ByMonth SortKey = "month_points"
	ByYear  SortKey = "year_points"

	DefaultSortKey = ByWeek
)

// ParseSortKey validates s. Empty selects DefaultSortKey.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return DefaultSortKey, nil
	case ByUser, ByWeek, ByMonth, ByYear:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
}

func points(r model.LeaderboardRow, k SortKey) float64 {
	switch k {
	case ByMonth:
		return r.MonthPoints
	case ByYear:
		return r.YearPoints
	default:
		return r.WeekPoints
	}
}

// Sort returns a copy of rows ordered by key. Point columns sort descending
// with ties broken by user id; the user column sorts ascending.
func Sort(rows []model.LeaderboardRow, key SortKey) []model.LeaderboardRow {
	out := make([]model.LeaderboardRow, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		if key == ByUser {
			return out[i].UserID < out[j].UserID
		}
		pi, pj := points(out[i], key), points(out[j], key)
		if pi != pj {
			return pi > pj
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// Leader returns the first row of sorted rows.
func Leader(sorted []model.LeaderboardRow) (model.LeaderboardRow, bool) {
	if len(sorted) == 0 {
		return model.LeaderboardRow{}, false
	}
	return sorted[0], true
}

// Window holds the UTC instants each leaderboard column starts counting from.
type Window struct {
	Week  time.Time
	Month time.Time
	Year  time.Time
}

// Windows returns the starts of the ISO week (Monday), month and year that
// contain now, all in UTC.
func Windows(now time.Time) Window {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	// Monday is 0.
	offset := (int(day.Weekday()) + 6) % 7
	return Window{
		Week:  day.AddDate(0, 0, -offset),
		Month: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		Year:  time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}
