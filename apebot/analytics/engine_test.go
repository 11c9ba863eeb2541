package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/greatapesociety/apebot/apebot/marketplace"
	"github.com/greatapesociety/apebot/apebot/snapshot"
)

const (
	oneEth     = "1000000000000000000"
	twoEth     = "2000000000000000000"
	threeEth   = "3000000000000000000"
	oneAndHalf = "1500000000000000000"
)

func listed(price string) []marketplace.SellOrder {
	return []marketplace.SellOrder{{BasePrice: price}}
}

func trait(traitType, value string, count int64) marketplace.Trait {
	return marketplace.Trait{TraitType: traitType, Value: value, TraitCount: count}
}

func snap(assets ...marketplace.Asset) *snapshot.Snapshot {
	return snapshot.New(assets, "", time.Now())
}

func TestWeiToEth(t *testing.T) {
	tests := []struct {
		wei  string
		want float64
	}{
		{oneAndHalf, 1.5},
		{oneEth, 1.0},
		{"10000000000000000", 0.01},
		{"0", 0},
	}
	for _, tt := range tests {
		if got := WeiToEth(tt.wei); got != tt.want {
			t.Errorf("WeiToEth(%q) = %v, want %v", tt.wei, got, tt.want)
		}
	}

	if !math.IsNaN(WeiToEth("not-a-number")) {
		t.Error("WeiToEth should return NaN for garbage input")
	}
}

func TestEngine_MedianPriceForTrait(t *testing.T) {
	s := snap(
		marketplace.Asset{TokenID: "1", Traits: []marketplace.Trait{trait("Fur", "Gold", 3)}, SellOrders: listed(oneEth)},
		marketplace.Asset{TokenID: "2", Traits: []marketplace.Trait{trait("Fur", "Gold", 3)}, SellOrders: listed(threeEth)},
		marketplace.Asset{TokenID: "3", Traits: []marketplace.Trait{trait("Fur", "Gold", 3)}, SellOrders: listed(twoEth)},
		// Carries the trait but has no listing: excluded.
		marketplace.Asset{TokenID: "4", Traits: []marketplace.Trait{trait("Fur", "Gold", 3)}},
		// Listed but different value: excluded.
		marketplace.Asset{TokenID: "5", Traits: []marketplace.Trait{trait("Fur", "Brown", 90)}, SellOrders: listed(oneEth)},
	)

	e := NewEngine()

	if got := e.MedianPriceForTrait(s, "Fur", "Gold"); got != 2.0 {
		t.Errorf("median = %v, want 2.0", got)
	}

	t.Run("even length averages middle values", func(t *testing.T) {
		s2 := snap(
			marketplace.Asset{TokenID: "1", Traits: []marketplace.Trait{trait("Fur", "Gold", 2)}, SellOrders: listed(oneEth)},
			marketplace.Asset{TokenID: "2", Traits: []marketplace.Trait{trait("Fur", "Gold", 2)}, SellOrders: listed(twoEth)},
		)
		if got := NewEngine().MedianPriceForTrait(s2, "Fur", "Gold"); got != 1.5 {
			t.Errorf("median = %v, want 1.5", got)
		}
	})

	t.Run("sentinel iff no listed asset carries the trait", func(t *testing.T) {
		if got := e.MedianPriceForTrait(s, "Fur", "Rainbow"); !math.IsNaN(got) {
			t.Errorf("median = %v, want NaN for unknown value", got)
		}
		// Trait exists in the collection but only on unlisted assets.
		s2 := snap(
			marketplace.Asset{TokenID: "1", Traits: []marketplace.Trait{trait("Hat", "Crown", 1)}},
		)
		if got := e.MedianPriceForTrait(s2, "Hat", "Crown"); !math.IsNaN(got) {
			t.Errorf("median = %v, want NaN for unlisted-only trait", got)
		}
	})

	t.Run("cache does not leak across snapshot generations", func(t *testing.T) {
		e := NewEngine()
		if got := e.MedianPriceForTrait(s, "Fur", "Gold"); got != 2.0 {
			t.Fatalf("median = %v, want 2.0", got)
		}
		s2 := snap(
			marketplace.Asset{TokenID: "1", Traits: []marketplace.Trait{trait("Fur", "Gold", 1)}, SellOrders: listed(oneEth)},
		)
		if got := e.MedianPriceForTrait(s2, "Fur", "Gold"); got != 1.0 {
			t.Errorf("median = %v, want 1.0 from the new snapshot", got)
		}
	})
}

func TestEngine_TraitPrices(t *testing.T) {
	s := snap(
		marketplace.Asset{TokenID: "1", Traits: []marketplace.Trait{
			trait("Fur", "Gold", 3),
			trait("Hat", "Crown", 1),
		}, SellOrders: listed(twoEth)},
		marketplace.Asset{TokenID: "2", Traits: []marketplace.Trait{trait("Fur", "Gold", 3)}, SellOrders: listed(oneEth)},
	)

	e := NewEngine()
	asset, _ := s.AssetByTokenID("1")
	prices := e.TraitPrices(s, asset)

	if len(prices) != 2 {
		t.Fatalf("len(prices) = %d, want 2", len(prices))
	}
	if prices[0].Label != "Gold Fur" || prices[1].Label != "Crown Hat" {
		t.Errorf("labels = %q, %q", prices[0].Label, prices[1].Label)
	}
	if prices[0].Price != 1.5 {
		t.Errorf("Gold Fur price = %v, want 1.5", prices[0].Price)
	}
	if prices[1].Price != 2.0 {
		t.Errorf("Crown Hat price = %v, want 2.0", prices[1].Price)
	}
}

func TestMostValuableTrait(t *testing.T) {
	tests := []struct {
		name   string
		prices []TraitPrice
		want   string
	}{
		{
			name: "picks max",
			prices: []TraitPrice{
				{Label: "Gold Fur", Price: 1.5},
				{Label: "Crown Hat", Price: 3.0},
			},
			want: "Crown Hat",
		},
		{
			name: "tie keeps first encountered",
			prices: []TraitPrice{
				{Label: "Gold Fur", Price: 2.0},
				{Label: "Crown Hat", Price: 2.0},
			},
			want: "Gold Fur",
		},
		{
			name: "skips NaN entries",
			prices: []TraitPrice{
				{Label: "Gold Fur", Price: math.NaN()},
				{Label: "Crown Hat", Price: 0.5},
			},
			want: "Crown Hat",
		},
		{
			name: "all NaN yields empty",
			prices: []TraitPrice{
				{Label: "Gold Fur", Price: math.NaN()},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MostValuableTrait(tt.prices); got != tt.want {
				t.Errorf("MostValuableTrait() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanTraitLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		// Trait types embedding their own name in the value repeat the
		// trailing token and get it trimmed.
		{"Laser Eyes Eyes", "Laser Eyes "},
		{"Gold Fur", "Gold Fur"},
		{"Laser_Eyes Eyes", "Laser Eyes "},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanTraitLabel(tt.label); got != tt.want {
			t.Errorf("CleanTraitLabel(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestAggregateStats(t *testing.T) {
	t.Run("excludes sentinels", func(t *testing.T) {
		avg, min, max := AggregateStats([]float64{1, math.NaN(), 3})
		if avg != 2 || min != 1 || max != 3 {
			t.Errorf("AggregateStats() = %v, %v, %v", avg, min, max)
		}
	})

	t.Run("all sentinel input", func(t *testing.T) {
		avg, min, max := AggregateStats([]float64{math.NaN()})
		if !math.IsNaN(avg) || !math.IsNaN(min) || !math.IsNaN(max) {
			t.Errorf("AggregateStats() = %v, %v, %v, want NaNs", avg, min, max)
		}
	})
}

func TestEngine_AllTraitPrices(t *testing.T) {
	s := snap(
		marketplace.Asset{TokenID: "1", Traits: []marketplace.Trait{trait("Fur", "Gold", 3), trait("Eyes", "Laser", 5)}, SellOrders: listed(twoEth)},
		marketplace.Asset{TokenID: "2", Traits: []marketplace.Trait{trait("Fur", "Gold", 3)}, SellOrders: listed(oneEth)},
		marketplace.Asset{TokenID: "3", Traits: []marketplace.Trait{trait("Fur", "Brown", 90)}},
	)
	e := NewEngine()

	prices := e.AllTraitPrices(s)
	if len(prices) != 3 {
		t.Fatalf("len = %d, want 3 distinct traits", len(prices))
	}
	if prices[0].Label != "Gold Fur" || prices[0].Price != 1.5 {
		t.Errorf("first = %+v, want Gold Fur at 1.5", prices[0])
	}
	if prices[1].Label != "Laser Eyes" || prices[1].Price != 2.0 {
		t.Errorf("second = %+v, want Laser Eyes at 2.0", prices[1])
	}
	if !math.IsNaN(prices[2].Price) {
		t.Errorf("unlisted trait price = %v, want NaN", prices[2].Price)
	}
}
