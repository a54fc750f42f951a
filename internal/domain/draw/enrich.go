// Package draw derives player profiles from draw entries.
package draw

import (
	"github.com/okian/acerace/internal/domain/model"
)

// Profile defaults until a player data source exists.
const (
	DefaultNationality = "ES"
	DefaultAge         = 25
)

// Profile derives a player profile from the entry's draw position.
func Profile(e model.DrawEntry) model.PlayerProfile {
	p := model.PlayerProfile{
		Nationality: DefaultNationality,
		Age:         DefaultAge,
		Handedness:  model.HandLeft,
	}
	if e.Position%2 == 0 {
		p.Handedness = model.HandRight
	}
	switch e.Position % 3 {
	case 0:
		p.Surface = model.SurfaceClay
	case 1:
		p.Surface = model.SurfaceGrass
	default:
		p.Surface = model.SurfaceHard
	}
	return p
}

// Enrich pairs an entry with its profile.
func Enrich(e model.DrawEntry) model.EnrichedEntry {
	return model.EnrichedEntry{DrawEntry: e, PlayerProfile: Profile(e)}
}

// EnrichAll enriches every entry, keeping order.
func EnrichAll(entries []model.DrawEntry) []model.EnrichedEntry {
	out := make([]model.EnrichedEntry, len(entries))
	for i, e := range entries {
		out[i] = Enrich(e)
	}
	return out
}

// Split partitions entries into top and bottom halves, keeping order.
// Entries with an invalid half are dropped.
func Split(entries []model.DrawEntry) (top, bottom []model.DrawEntry) {
	for _, e := range entries {
		switch e.DrawHalf {
		case model.HalfTop:
			top = append(top, e)
		case model.HalfBottom:
			bottom = append(bottom, e)
		}
	}
	return top, bottom
}
