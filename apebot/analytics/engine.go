package analytics

import (
	"fmt"
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/greatapesociety/apebot/apebot/marketplace"
	"github.com/greatapesociety/apebot/apebot/snapshot"
)

const cacheSize = 8192

var weiPerEth = decimal.New(1, 18)

// TraitPrice is one trait's median listing price, labelled
// "{value} {trait_type}".
type TraitPrice struct {
	Label string
	Price float64
}

// Engine computes trait pricing and rarity over a snapshot. Computation
// is O(assets x traits), so results are cached per snapshot generation;
// a snapshot reload naturally invalidates every cached entry through the
// generation embedded in the cache key.
type Engine struct {
	cache *lru.Cache
}

// NewEngine creates an engine with a bounded result cache.
func NewEngine() *Engine {
	cache, _ := lru.New(cacheSize)
	return &Engine{cache: cache}
}

// WeiToEth converts an integer smallest-denomination amount to a decimal
// token amount (collection-wide fixed 18 decimals). Returns NaN for an
// unparseable amount so price lists can skip it.
func WeiToEth(wei string) float64 {
	d, err := decimal.NewFromString(wei)
	if err != nil {
		return math.NaN()
	}
	f, _ := d.Div(weiPerEth).Float64()
	return f
}

// MedianPriceForTrait returns the median of the first listing price of
// every asset that carries the exact (traitType, traitValue) pair and has
// at least one active sell order. NaN when no such asset exists, so
// downstream aggregation can skip the trait rather than fail.
func (e *Engine) MedianPriceForTrait(snap *snapshot.Snapshot, traitType, traitValue string) float64 {
	key := fmt.Sprintf("median:%d:%s\x00%s", snap.Generation, traitType, traitValue)
	if cached, ok := e.cache.Get(key); ok {
		return cached.(float64)
	}

	var prices []float64
	for i := range snap.Assets {
		asset := &snap.Assets[i]
		if !asset.HasSellOrder() {
			continue
		}
		for _, trait := range asset.Traits {
			if trait.TraitType == traitType && trait.Value == traitValue {
				prices = append(prices, WeiToEth(asset.SellOrders[0].BasePrice))
			}
		}
	}

	price := median(prices)
	e.cache.Add(key, price)
	return price
}

// TraitPrices computes the median price for every trait the asset
// carries, in the asset's trait order. A repeated trait type keeps its
// first position with the last value, matching the collection metadata's
// own de-duplication.
func (e *Engine) TraitPrices(snap *snapshot.Snapshot, asset *marketplace.Asset) []TraitPrice {
	order := make([]string, 0, len(asset.Traits))
	values := make(map[string]string, len(asset.Traits))
	for _, trait := range asset.Traits {
		if _, seen := values[trait.TraitType]; !seen {
			order = append(order, trait.TraitType)
		}
		values[trait.TraitType] = trait.Value
	}

	prices := make([]TraitPrice, 0, len(order))
	for _, traitType := range order {
		value := values[traitType]
		prices = append(prices, TraitPrice{
			Label: value + " " + traitType,
			Price: e.MedianPriceForTrait(snap, traitType, value),
		})
	}
	return prices
}

// AllTraitPrices lists every distinct trait carried anywhere in the
// collection with its median listing price, ordered by first appearance.
// Cached per snapshot generation.
func (e *Engine) AllTraitPrices(snap *snapshot.Snapshot) []TraitPrice {
	key := fmt.Sprintf("alltraits:%d", snap.Generation)
	if cached, ok := e.cache.Get(key); ok {
		return cached.([]TraitPrice)
	}

	type pair struct{ traitType, value string }
	seen := make(map[pair]struct{})
	var prices []TraitPrice
	for i := range snap.Assets {
		for _, trait := range snap.Assets[i].Traits {
			p := pair{trait.TraitType, trait.Value}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			prices = append(prices, TraitPrice{
				Label: CleanTraitLabel(trait.Value + " " + trait.TraitType),
				Price: e.MedianPriceForTrait(snap, trait.TraitType, trait.Value),
			})
		}
	}

	e.cache.Add(key, prices)
	return prices
}

// MostValuableTrait returns the cleaned label of the highest-priced
// trait. Ties keep the first-encountered label; NaN entries are skipped.
// Empty string when no trait has price data.
func MostValuableTrait(prices []TraitPrice) string {
	best := ""
	bestPrice := math.Inf(-1)
	for _, tp := range prices {
		if math.IsNaN(tp.Price) {
			continue
		}
		if tp.Price > bestPrice {
			bestPrice = tp.Price
			best = tp.Label
		}
	}
	return CleanTraitLabel(best)
}

// CleanTraitLabel strips a trailing trait-type token that repeats more
// than once inside the label, an artifact of trait types that embed
// their own name in the value. Purely cosmetic.
func CleanTraitLabel(label string) string {
	label = strings.ReplaceAll(label, "_", " ")
	tokens := strings.Split(label, " ")
	if len(tokens) == 0 {
		return label
	}
	traitType := tokens[len(tokens)-1]

	count := 0
	for _, token := range tokens {
		if token == traitType {
			count++
		}
	}
	if count > 1 {
		label = label[:len(label)-len(traitType)]
	}
	return label
}

// AggregateStats summarizes a price list, excluding NaN sentinels. All
// three values are NaN when no numeric price is present.
func AggregateStats(prices []float64) (avg, min, max float64) {
	numeric := filterNaN(prices)
	if len(numeric) == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}

	avg, _ = stats.Mean(numeric)
	min, _ = stats.Min(numeric)
	max, _ = stats.Max(numeric)
	return avg, min, max
}

// Prices extracts the price column of a trait price list.
func Prices(traitPrices []TraitPrice) []float64 {
	prices := make([]float64, len(traitPrices))
	for i, tp := range traitPrices {
		prices[i] = tp.Price
	}
	return prices
}

// median tolerates empty and NaN-bearing input, returning NaN.
func median(values []float64) float64 {
	numeric := filterNaN(values)
	if len(numeric) == 0 {
		return math.NaN()
	}
	m, err := stats.Median(numeric)
	if err != nil {
		return math.NaN()
	}
	return m
}

func filterNaN(values []float64) []float64 {
	numeric := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			numeric = append(numeric, v)
		}
	}
	return numeric
}
