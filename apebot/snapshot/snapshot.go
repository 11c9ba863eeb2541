package snapshot

import (
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/greatapesociety/apebot/apebot/marketplace"
)

var generation atomic.Uint64

// Snapshot is the locally cached copy of the full collection. Assets keep
// their marketplace order; token ids are unique within a snapshot.
//
// A configured pseudo trait (a numeric attribute the collection embeds as
// a regular trait, e.g. "IQ") is stripped from every asset at build time
// and kept in a side table so it never pollutes trait-price or rarity
// computation.
type Snapshot struct {
	Assets       []marketplace.Asset
	PseudoScores map[string]float64
	ModTime      time.Time

	// Generation increases with every snapshot build and lets derived
	// indices be cached per snapshot rather than recomputed per query.
	Generation uint64

	byToken map[string]int
}

// New builds a Snapshot from raw assets, extracting pseudoTrait (if
// non-empty) into the side table.
func New(assets []marketplace.Asset, pseudoTrait string, modTime time.Time) *Snapshot {
	s := &Snapshot{
		Assets:       assets,
		PseudoScores: make(map[string]float64),
		ModTime:      modTime,
		Generation:   generation.Add(1),
		byToken:      make(map[string]int, len(assets)),
	}

	for i := range s.Assets {
		asset := &s.Assets[i]

		if pseudoTrait != "" {
			kept := asset.Traits[:0]
			for _, trait := range asset.Traits {
				if trait.TraitType != pseudoTrait {
					kept = append(kept, trait)
					continue
				}
				score, err := strconv.ParseFloat(trait.Value, 64)
				if err != nil {
					slog.Warn("Skipping non-numeric pseudo trait",
						slog.String("type", "sys"),
						slog.String("token_id", asset.TokenID),
						slog.String("value", trait.Value))
					continue
				}
				s.PseudoScores[asset.TokenID] = score
			}
			asset.Traits = kept
		}

		if _, dup := s.byToken[asset.TokenID]; dup {
			slog.Warn("Duplicate token id in snapshot, keeping first",
				slog.String("type", "sys"),
				slog.String("token_id", asset.TokenID))
			continue
		}
		s.byToken[asset.TokenID] = i
	}

	return s
}

// AssetByTokenID returns the asset with the given token id.
func (s *Snapshot) AssetByTokenID(tokenID string) (*marketplace.Asset, bool) {
	i, ok := s.byToken[tokenID]
	if !ok {
		return nil, false
	}
	return &s.Assets[i], true
}

// Len returns the number of assets in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.Assets)
}

// PseudoScore returns the extracted pseudo-trait value for a token.
func (s *Snapshot) PseudoScore(tokenID string) (float64, bool) {
	v, ok := s.PseudoScores[tokenID]
	return v, ok
}

// PseudoPopulation returns all extracted pseudo-trait values.
func (s *Snapshot) PseudoPopulation() []float64 {
	values := make([]float64, 0, len(s.PseudoScores))
	for _, v := range s.PseudoScores {
		values = append(values, v)
	}
	return values
}
