package analytics

import (
	"sort"

	"github.com/greatapesociety/apebot/apebot/marketplace"
	"github.com/greatapesociety/apebot/apebot/snapshot"
)

// RankedAsset pairs an asset with its rarity score.
type RankedAsset struct {
	Asset *marketplace.Asset
	Score int
}

// RankByRarity returns every asset ordered rarest first. Traitless
// assets sort last. Ties keep snapshot order.
func (e *Engine) RankByRarity(s *snapshot.Snapshot) []RankedAsset {
	index := e.RarityIndex(s)

	ranked := make([]RankedAsset, 0, s.Len())
	for i := range s.Assets {
		asset := &s.Assets[i]
		ranked = append(ranked, RankedAsset{
			Asset: asset,
			Score: index.Score(asset),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
