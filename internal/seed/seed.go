// Package seed loads tournaments and their draws from a YAML file into the
// store at start-up.
//
// File layout:
//
//	tournaments:
//	  - id: rg-2026
//	    name: Roland Garros
//	    location: Paris
//	    start_date: "2026-05-24"
//	    draw:
//	      - { player_id: alcaraz, draw_half: top }
//	      - { player_id: djokovic, draw_half: bottom, position: 64 }
//
// Dates are quoted and use YYYY-MM-DD or RFC 3339. A missing position
// defaults to the entry's place in the list.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/acerace/internal/adapters/repository"
	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/pkg/logger"
)

// Sentinel errors.
var (
	ErrLoadSeed    = errors.New("load seed failed")
	ErrInvalidSeed = errors.New("invalid seed")
)

// File is the decoded seed document.
type File struct {
	Tournaments []Tournament `koanf:"tournaments"`
}

// Tournament is one seeded tournament with its draw.
type Tournament struct {
	ID        string  `koanf:"id"`
	Name      string  `koanf:"name"`
	Location  string  `koanf:"location"`
	StartDate string  `koanf:"start_date"`
	Draw      []Entry `koanf:"draw"`
}

// Entry is one seeded draw position.
type Entry struct {
	PlayerID string `koanf:"player_id"`
	DrawHalf string `koanf:"draw_half"`
	Position int    `koanf:"position"`
}

// Store is the slice of the repository the seeder writes to.
type Store interface {
	CreateTournament(ctx context.Context, t model.Tournament) error
	ReplaceDraw(ctx context.Context, tournamentID string, entries []model.DrawEntry) error
	Draw(ctx context.Context, tournamentID string) ([]model.DrawEntry, error)
}

// Load reads and decodes the YAML file at path.
func Load(ctx context.Context, path string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadSeed, path, err)
	}
	var f File
	if err := k.UnmarshalWithConf("", &f, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadSeed, path, err)
	}
	return &f, nil
}

// Apply writes the seeded tournaments and draws. A tournament that already
// exists keeps its draw so restarts do not wipe draws users picked from; only
// an empty draw, left by an earlier failed seed, is filled in. It returns the
// number of tournaments created or repaired.
func Apply(ctx context.Context, store Store, f *File) (int, error) {
	log := logger.Get().Named("seed")
	created := 0
	for _, st := range f.Tournaments {
		t, entries, err := st.model()
		if err != nil {
			return created, err
		}
		if err := store.CreateTournament(ctx, t); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				repaired, err := repairDraw(ctx, store, t.ID, entries)
				if err != nil {
					return created, err
				}
				if repaired {
					created++
					log.Info(ctx, "empty draw reseeded",
						logger.String("tournament_id", t.ID),
						logger.Int("players", len(entries)),
					)
					continue
				}
				log.Debug(ctx, "tournament already seeded", logger.String("tournament_id", t.ID))
				continue
			}
			return created, fmt.Errorf("seed tournament %s: %w", t.ID, err)
		}
		if err := store.ReplaceDraw(ctx, t.ID, entries); err != nil {
			return created, fmt.Errorf("seed draw %s: %w", t.ID, err)
		}
		created++
		log.Info(ctx, "tournament seeded",
			logger.String("tournament_id", t.ID),
			logger.Int("players", len(entries)),
		)
	}
	return created, nil
}

func repairDraw(ctx context.Context, store Store, tournamentID string, entries []model.DrawEntry) (bool, error) {
	if len(entries) == 0 {
		return false, nil
	}
	current, err := store.Draw(ctx, tournamentID)
	if err != nil {
		return false, fmt.Errorf("seed draw %s: %w", tournamentID, err)
	}
	if len(current) > 0 {
		return false, nil
	}
	if err := store.ReplaceDraw(ctx, tournamentID, entries); err != nil {
		return false, fmt.Errorf("seed draw %s: %w", tournamentID, err)
	}
	return true, nil
}

// LoadFile is Load followed by Apply.
func LoadFile(ctx context.Context, store Store, path string) (int, error) {
	f, err := Load(ctx, path)
	if err != nil {
		return 0, err
	}
	return Apply(ctx, store, f)
}

func (st Tournament) model() (model.Tournament, []model.DrawEntry, error) {
	id := strings.TrimSpace(st.ID)
	if id == "" || strings.TrimSpace(st.Name) == "" {
		return model.Tournament{}, nil, fmt.Errorf("%w: tournament needs id and name", ErrInvalidSeed)
	}
	start, err := parseDate(st.StartDate)
	if err != nil {
		return model.Tournament{}, nil, fmt.Errorf("%w: tournament %s: %w", ErrInvalidSeed, id, err)
	}
	entries := make([]model.DrawEntry, 0, len(st.Draw))
	for i, e := range st.Draw {
		half, err := model.ParseDrawHalf(e.DrawHalf)
		if err != nil {
			return model.Tournament{}, nil, fmt.Errorf("%w: tournament %s: %w", ErrInvalidSeed, id, err)
		}
		pos := e.Position
		if pos == 0 {
			pos = i + 1
		}
		entries = append(entries, model.DrawEntry{
			TournamentID: id,
			PlayerID:     strings.TrimSpace(e.PlayerID),
			DrawHalf:     half,
			Position:     pos,
		})
	}
	return model.Tournament{
		ID:        id,
		Name:      strings.TrimSpace(st.Name),
		Location:  strings.TrimSpace(st.Location),
		StartDate: start,
	}, entries, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("start_date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}
