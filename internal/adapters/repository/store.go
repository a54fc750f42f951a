// Package repository persists tournaments, draws, selections and awards.
package repository

import (
	"context"

	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/internal/domain/ranking"
)

// Store provides read/write access to the game state.
type Store interface {
	CreateTournament(ctx context.Context, t model.Tournament) error
	// GetTournament returns ErrNotFound for an unknown id.
	GetTournament(ctx context.Context, id string) (model.Tournament, error)
	// ListTournaments orders by start date, then id.
	ListTournaments(ctx context.Context) ([]model.Tournament, error)

	// ReplaceDraw swaps the whole draw of a tournament in one transaction.
	ReplaceDraw(ctx context.Context, tournamentID string, entries []model.DrawEntry) error
	// Draw returns the entries ordered by position.
	Draw(ctx context.Context, tournamentID string) ([]model.DrawEntry, error)
	DrawEntry(ctx context.Context, tournamentID, playerID string) (model.DrawEntry, error)

	// AddSelection validates sel against the draw and the user's other picks
	// and stores it. The stored selection carries its id and date.
	AddSelection(ctx context.Context, sel model.Selection) (model.Selection, error)
	// AddSelections stores every selection or none.
	AddSelections(ctx context.Context, sels []model.Selection) ([]model.Selection, error)
	// SelectionsByUser orders by selection date, then id.
	SelectionsByUser(ctx context.Context, userID string) ([]model.Selection, error)
	// PickersOf returns the users who picked the player, sorted.
	PickersOf(ctx context.Context, tournamentID, playerID string) ([]string, error)

	// AddAward returns false when the (event, user) pair was already awarded.
	AddAward(ctx context.Context, a model.Award) (bool, error)
	// Leaderboard sums award points per user since each window start. Users
	// with selections but no awards are listed with zero points.
	Leaderboard(ctx context.Context, w ranking.Window) ([]model.LeaderboardRow, error)
	// Count returns the number of users on the leaderboard.
	Count(ctx context.Context) (int, error)

	Close() error
}
