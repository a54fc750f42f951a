// Package scoring turns match results into the points a picker earns.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRound reports a result without a round.
var ErrInvalidRound = errors.New("invalid round")

// Rounds in draw order, smallest first.
var Rounds = []string{"r128", "r64", "r32", "r16", "qf", "sf", "f", "w"}

// Option applies a configuration option to the RoundScorer.
type Option func(*RoundScorer)

// WithRoundPoints sets the points per round. Keys are matched
// case-insensitively; negative values are ignored.
func WithRoundPoints(points map[string]float64, defaultPoints float64) Option {
	return func(s *RoundScorer) {
		s.points = make(map[string]float64, len(points))
		for round, p := range points {
			if p >= 0 {
				s.points[normalize(round)] = p
			}
		}
		if defaultPoints >= 0 {
			s.defaultPoints = defaultPoints
		}
	}
}

// Input abstracts the result fields needed for scoring.
type Input struct {
	TournamentID string
	PlayerID     string
	Round        string
}

// Result is the points each picker of the player receives.
type Result struct {
	PlayerID string
	Points   float64
}

// Scorer computes points from a result.
type Scorer interface {
	// Score computes points, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// RoundScorer awards a fixed number of points per round reached.
type RoundScorer struct {
	points        map[string]float64
	defaultPoints float64
}

// NewRoundScorer creates a scorer with a Fibonacci ladder unless overridden.
func NewRoundScorer(opts ...Option) *RoundScorer {
	s := &RoundScorer{points: make(map[string]float64, len(Rounds))}
	a, b := 1.0, 2.0
	for _, r := range Rounds {
		s.points[r] = a
		a, b = b, a+b
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns the points for in.Round.
func (s *RoundScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	round := normalize(in.Round)
	if round == "" {
		return Result{}, ErrInvalidRound
	}
	return Result{PlayerID: in.PlayerID, Points: s.PointsFor(round)}, nil
}

// PointsFor returns the points for round, or the default for an unknown one.
func (s *RoundScorer) PointsFor(round string) float64 {
	if p, ok := s.points[normalize(round)]; ok {
		return p
	}
	return s.defaultPoints
}

func normalize(round string) string {
	return strings.ToLower(strings.TrimSpace(round))
}
