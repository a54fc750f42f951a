// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidHalf reports a draw half other than Top or Bottom.
var ErrInvalidHalf = errors.New("invalid draw half")

// DrawHalf is one of the two brackets of a tournament draw.
type DrawHalf string

// The two halves of a draw.
const (
	HalfTop    DrawHalf = "Top"
	HalfBottom DrawHalf = "Bottom"
)

// Halves lists the halves in display order.
var Halves = [...]DrawHalf{HalfTop, HalfBottom}

// ParseDrawHalf accepts "top"/"bottom" in any case.
func ParseDrawHalf(s string) (DrawHalf, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top":
		return HalfTop, nil
	case "bottom":
		return HalfBottom, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidHalf, s)
}

// Valid reports whether h is Top or Bottom.
func (h DrawHalf) Valid() bool {
	return h == HalfTop || h == HalfBottom
}

// Tournament is one event users pick players for.
type Tournament struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	StartDate time.Time `json:"start_date"`
}

// DrawEntry places a player in one half of a tournament draw.
type DrawEntry struct {
	ID           string   `json:"id"`
	TournamentID string   `json:"tournament_id"`
	PlayerID     string   `json:"player_id"`
	DrawHalf     DrawHalf `json:"draw_half"`
	Position     int      `json:"position"`
}

// Selection is one player a user picked for a tournament.
type Selection struct {
	ID            string    `json:"id,omitempty"`
	UserID        string    `json:"user_id"`
	TournamentID  string    `json:"tournament_id"`
	PlayerID      string    `json:"player_id"`
	DrawHalf      DrawHalf  `json:"draw_half"`
	SelectionDate time.Time `json:"selection_date"`
}

// LeaderboardRow aggregates a user's points over rolling calendar windows.
type LeaderboardRow struct {
	UserID      string  `json:"user_id"`
	WeekPoints  float64 `json:"week_points"`
	MonthPoints float64 `json:"month_points"`
	YearPoints  float64 `json:"year_points"`
}

// Handedness of a player.
type Handedness string

// Surface a player prefers.
type Surface string

// Profile values.
const (
	HandRight Handedness = "Right"
	HandLeft  Handedness = "Left"

	SurfaceClay  Surface = "Clay"
	SurfaceGrass Surface = "Grass"
	SurfaceHard  Surface = "Hard"
)

// PlayerProfile describes a drawn player.
type PlayerProfile struct {
	Nationality string     `json:"nationality"`
	Age         int        `json:"age"`
	Handedness  Handedness `json:"handedness"`
	Surface     Surface    `json:"surface"`
}

// EnrichedEntry is a draw entry with its player profile.
type EnrichedEntry struct {
	DrawEntry
	PlayerProfile
}

// ResultEvent reports that a player reached a round of a tournament.
type ResultEvent struct {
	EventID      string    // unique id for idempotency
	TournamentID string
	PlayerID     string
	Round        string    // e.g. "QF", "SF", "W"
	TS           time.Time // when the round was reached
}

// Award is the points one user earned from one result event.
type Award struct {
	ID           string
	UserID       string
	TournamentID string
	PlayerID     string
	EventID      string
	Points       float64
	AwardedAt    time.Time
}
