// Package picks implements the bounded per-half pick set and helpers over
// stored selections.
package picks

import (
	"fmt"
	"time"

	"github.com/okian/acerace/internal/domain/model"
)

// MaxPerHalf is how many players a user picks from each half of a draw.
const MaxPerHalf = 2

// Set holds a user's in-progress picks for one tournament. The zero value is
// not usable; call New.
type Set struct {
	tournamentID string
	top          []model.DrawEntry
	bottom       []model.DrawEntry
}

// New returns an empty pick set for tournamentID.
func New(tournamentID string) *Set {
	return &Set{tournamentID: tournamentID}
}

// TournamentID returns the tournament the set belongs to.
func (s *Set) TournamentID() string { return s.tournamentID }

func (s *Set) half(h model.DrawHalf) (*[]model.DrawEntry, error) {
	switch h {
	case model.HalfTop:
		return &s.top, nil
	case model.HalfBottom:
		return &s.bottom, nil
	}
	return nil, fmt.Errorf("%w: %q", model.ErrInvalidHalf, h)
}

// Toggle removes entry if it is selected, otherwise adds it. Adding to a half
// that already holds MaxPerHalf players fails with ErrHalfFull and leaves the
// set unchanged. It reports whether the entry is selected afterwards.
func (s *Set) Toggle(entry model.DrawEntry) (bool, error) {
	if entry.TournamentID != "" && entry.TournamentID != s.tournamentID {
		return false, fmt.Errorf("%w: %s", ErrWrongTournament, entry.TournamentID)
	}
	list, err := s.half(entry.DrawHalf)
	if err != nil {
		return false, err
	}
	for i, p := range *list {
		if p.PlayerID == entry.PlayerID {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			return false, nil
		}
	}
	if len(*list) >= MaxPerHalf {
		return false, ErrHalfFull
	}
	*list = append(*list, entry)
	return true, nil
}

// IsSelected reports whether entry's player is picked in its half.
func (s *Set) IsSelected(entry model.DrawEntry) bool {
	list, err := s.half(entry.DrawHalf)
	if err != nil {
		return false
	}
	for _, p := range *list {
		if p.PlayerID == entry.PlayerID {
			return true
		}
	}
	return false
}

// Top returns the top half picks in selection order.
func (s *Set) Top() []model.DrawEntry { return append([]model.DrawEntry(nil), s.top...) }

// Bottom returns the bottom half picks in selection order.
func (s *Set) Bottom() []model.DrawEntry { return append([]model.DrawEntry(nil), s.bottom...) }

// Ready reports whether both halves hold exactly MaxPerHalf players.
func (s *Set) Ready() bool {
	return len(s.top) == MaxPerHalf && len(s.bottom) == MaxPerHalf
}

// Reset clears both halves.
func (s *Set) Reset() {
	s.top, s.bottom = nil, nil
}

// Selections turns a ready set into selections for userID, top half first.
func (s *Set) Selections(userID string, now time.Time) ([]model.Selection, error) {
	if !s.Ready() {
		return nil, fmt.Errorf("%w: top=%d bottom=%d", ErrNotReady, len(s.top), len(s.bottom))
	}
	now = now.UTC()
	out := make([]model.Selection, 0, 2*MaxPerHalf)
	for _, list := range [][]model.DrawEntry{s.top, s.bottom} {
		for _, e := range list {
			out = append(out, model.Selection{
				UserID:        userID,
				TournamentID:  s.tournamentID,
				PlayerID:      e.PlayerID,
				DrawHalf:      e.DrawHalf,
				SelectionDate: now,
			})
		}
	}
	return out, nil
}

// Validate applies the pick rules to a candidate selection given the user's
// existing selections for the same tournament.
func Validate(existing []model.Selection, candidate model.Selection) error {
	if !candidate.DrawHalf.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidHalf, candidate.DrawHalf)
	}
	inHalf := 0
	for _, sel := range existing {
		if sel.UserID != candidate.UserID || sel.TournamentID != candidate.TournamentID {
			continue
		}
		if sel.PlayerID == candidate.PlayerID {
			return fmt.Errorf("%w: %s", ErrDuplicatePick, candidate.PlayerID)
		}
		if sel.DrawHalf == candidate.DrawHalf {
			inHalf++
		}
	}
	if inHalf >= MaxPerHalf {
		return ErrHalfFull
	}
	return nil
}

// TournamentGroup is a user's selections for one tournament.
type TournamentGroup struct {
	TournamentID string            `json:"tournament_id"`
	Selections   []model.Selection `json:"selections"`
}

// GroupByTournament groups selections by tournament id. Groups appear in the
// order their tournament is first seen; selections keep input order.
func GroupByTournament(selections []model.Selection) []TournamentGroup {
	index := make(map[string]int)
	groups := make([]TournamentGroup, 0)
	for _, sel := range selections {
		i, ok := index[sel.TournamentID]
		if !ok {
			i = len(groups)
			index[sel.TournamentID] = i
			groups = append(groups, TournamentGroup{TournamentID: sel.TournamentID})
		}
		groups[i].Selections = append(groups[i].Selections, sel)
	}
	return groups
}
