package analytics

import (
	"fmt"
	"math"

	"github.com/greatapesociety/apebot/apebot/marketplace"
	"github.com/greatapesociety/apebot/apebot/snapshot"
)

// RarityIndex holds the per-snapshot aggregates rarity scoring needs.
//
// TotalUniqueTraitCount sums the trait_count of every globally distinct
// trait, where distinctness is keyed by the trait value alone, not the
// (trait_type, value) pair. Two trait types sharing a value string are
// conflated on purpose: the collection's metadata never reuses values
// across types and the published scores were computed this way.
type RarityIndex struct {
	TotalUniqueTraitCount int64

	minRaw float64
	maxRaw float64
}

// RarityIndex computes (or returns the cached) rarity index for a
// snapshot.
func (e *Engine) RarityIndex(snap *snapshot.Snapshot) *RarityIndex {
	key := fmt.Sprintf("rarity:%d", snap.Generation)
	if cached, ok := e.cache.Get(key); ok {
		return cached.(*RarityIndex)
	}

	idx := buildRarityIndex(snap)
	e.cache.Add(key, idx)
	return idx
}

func buildRarityIndex(snap *snapshot.Snapshot) *RarityIndex {
	var total int64
	seen := make(map[string]struct{})
	for i := range snap.Assets {
		for _, trait := range snap.Assets[i].Traits {
			if _, ok := seen[trait.Value]; ok {
				continue
			}
			seen[trait.Value] = struct{}{}
			total += trait.TraitCount
		}
	}

	idx := &RarityIndex{
		TotalUniqueTraitCount: total,
		minRaw:                math.Inf(1),
		maxRaw:                math.Inf(-1),
	}

	for i := range snap.Assets {
		raw, ok := rawRarity(&snap.Assets[i], total)
		if !ok {
			continue
		}
		if raw < idx.minRaw {
			idx.minRaw = raw
		}
		if raw > idx.maxRaw {
			idx.maxRaw = raw
		}
	}

	return idx
}

// rawRarity is total_unique_trait_count / sum(trait_count of the asset's
// own traits). False when the asset carries no traits.
func rawRarity(asset *marketplace.Asset, total int64) (float64, bool) {
	if len(asset.Traits) == 0 {
		return 0, false
	}
	var sum int64
	for _, trait := range asset.Traits {
		sum += trait.TraitCount
	}
	if sum == 0 {
		return 0, false
	}
	return float64(total) / float64(sum), true
}

// Score rescales the asset's raw rarity onto [0, 100] against the
// snapshot-wide min/max and rounds to the nearest integer. Returns -1
// for an asset without traits.
func (idx *RarityIndex) Score(asset *marketplace.Asset) int {
	raw, ok := rawRarity(asset, idx.TotalUniqueTraitCount)
	if !ok {
		return -1
	}

	// Every asset shares the same raw value: the rescale denominator is
	// zero, so pin the score at the top of the scale.
	if idx.maxRaw == idx.minRaw {
		return 100
	}

	rescaled := 100/(idx.maxRaw-idx.minRaw)*(raw-idx.maxRaw) + 100
	return int(math.Round(rescaled))
}
