package sales

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/greatapesociety/apebot/apebot/marketplace"
)

type fakeRates struct {
	rate  decimal.Decimal
	err   error
	calls int
}

func (f *fakeRates) ETHUSD(context.Context) (decimal.Decimal, error) {
	f.calls++
	return f.rate, f.err
}

func account(address, username string) *marketplace.Account {
	a := &marketplace.Account{Address: address}
	if username != "" {
		a.User = &struct {
			Username string `json:"username"`
		}{Username: username}
	}
	return a
}

func singleEvent(id int64, symbol, totalPrice string) marketplace.AssetEvent {
	return marketplace.AssetEvent{
		ID: id,
		Asset: &marketplace.Asset{
			Name:      "Great Ape #7",
			ImageURL:  "https://img/7.png",
			Permalink: "https://market/assets/0xabc/7",
		},
		Seller:        account("0xseller00aabbcc", ""),
		WinnerAccount: account("0xbuyer00ddeeff", "bob"),
		PaymentToken:  marketplace.PaymentToken{Symbol: symbol},
		TotalPrice:    totalPrice,
	}
}

func TestParser_ParseEvents_ETHConversion(t *testing.T) {
	rates := &fakeRates{rate: decimal.RequireFromString("2000")}
	p := NewParser(rates, nil)

	sales := p.ParseEvents(context.Background(), []marketplace.AssetEvent{
		singleEvent(1, "ETH", "1500000000000000000"),
	})
	if len(sales) != 1 {
		t.Fatalf("len(sales) = %d, want 1", len(sales))
	}

	sale := sales[0]
	if !sale.Price.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("Price = %s, want 1.5", sale.Price)
	}
	if sale.PriceUSD == nil || !sale.PriceUSD.Equal(decimal.RequireFromString("3000")) {
		t.Errorf("PriceUSD = %v, want 3000", sale.PriceUSD)
	}
	if sale.IsBundle() {
		t.Error("single-asset sale must not be a bundle")
	}
	if sale.Seller.DisplayName() != "0xseller" {
		t.Errorf("seller display = %q, want short address", sale.Seller.DisplayName())
	}
	if sale.Buyer.DisplayName() != "bob" {
		t.Errorf("buyer display = %q, want username", sale.Buyer.DisplayName())
	}
}

func TestParser_ParseEvents_WETH(t *testing.T) {
	rates := &fakeRates{rate: decimal.RequireFromString("1000")}
	p := NewParser(rates, nil)

	sales := p.ParseEvents(context.Background(), []marketplace.AssetEvent{
		singleEvent(1, "WETH", "2000000000000000000"),
	})
	if !sales[0].Price.Equal(decimal.RequireFromString("2")) {
		t.Errorf("Price = %s, want 2", sales[0].Price)
	}
	if sales[0].PriceUSD == nil {
		t.Error("WETH sales should get a USD conversion")
	}
}

func TestParser_ParseEvents_NonETHPassthrough(t *testing.T) {
	rates := &fakeRates{rate: decimal.RequireFromString("2000")}
	p := NewParser(rates, nil)

	sales := p.ParseEvents(context.Background(), []marketplace.AssetEvent{
		singleEvent(1, "DAI", "1500.25"),
	})
	sale := sales[0]
	if !sale.Price.Equal(decimal.RequireFromString("1500.25")) {
		t.Errorf("Price = %s, want face value 1500.25", sale.Price)
	}
	if sale.PriceUSD != nil {
		t.Errorf("PriceUSD = %v, want nil for non-ETH token", sale.PriceUSD)
	}
	if rates.calls != 0 {
		t.Errorf("oracle calls = %d, want 0", rates.calls)
	}
}

func TestParser_ParseEvents_OracleFailure(t *testing.T) {
	rates := &fakeRates{err: errors.New("oracle down")}
	p := NewParser(rates, nil)

	sales := p.ParseEvents(context.Background(), []marketplace.AssetEvent{
		singleEvent(1, "ETH", "1000000000000000000"),
	})
	if len(sales) != 1 {
		t.Fatalf("oracle failure must not drop the sale, got %d sales", len(sales))
	}
	if sales[0].PriceUSD != nil {
		t.Errorf("PriceUSD = %v, want nil when oracle fails", sales[0].PriceUSD)
	}
	if !sales[0].Price.Equal(decimal.RequireFromString("1")) {
		t.Errorf("Price = %s, want 1", sales[0].Price)
	}
}

func TestParser_ParseEvents_Bundle(t *testing.T) {
	p := NewParser(nil, nil)

	events := []marketplace.AssetEvent{{
		ID: 9,
		AssetBundle: &marketplace.AssetBundle{
			Assets: []marketplace.BundleAsset{
				{ImageURL: "https://img/first.png"},
				{ImageURL: "https://img/second.png"},
				{ImageURL: "https://img/third.png"},
			},
			Permalink: "https://market/bundles/great-apes",
		},
		Seller:        account("0xseller00aabbcc", ""),
		WinnerAccount: account("0xbuyer00ddeeff", ""),
		PaymentToken:  marketplace.PaymentToken{Symbol: "ETH"},
		TotalPrice:    "3000000000000000000",
	}}

	sales := p.ParseEvents(context.Background(), events)
	if len(sales) != 1 {
		t.Fatalf("len(sales) = %d, want 1", len(sales))
	}

	sale := sales[0]
	if !sale.IsBundle() || sale.BundleSize() != 3 {
		t.Errorf("bundle = %v size = %d, want bundle of 3", sale.IsBundle(), sale.BundleSize())
	}
	if sale.Subject.ImageURL() != "https://img/first.png" {
		t.Errorf("image = %q, want the first bundled asset's image", sale.Subject.ImageURL())
	}
	if sale.Subject.Permalink() != "https://market/bundles/great-apes" {
		t.Errorf("link = %q, want the bundle permalink", sale.Subject.Permalink())
	}
}

func TestParser_ParseEvents_Malformed(t *testing.T) {
	p := NewParser(nil, nil)

	events := []marketplace.AssetEvent{
		{ID: 1, PaymentToken: marketplace.PaymentToken{Symbol: "ETH"}, TotalPrice: "0"},
		singleEvent(2, "ETH", "1000000000000000000"),
	}

	sales := p.ParseEvents(context.Background(), events)
	if len(sales) != 1 {
		t.Fatalf("len(sales) = %d, want 1 (malformed event skipped)", len(sales))
	}
	if sales[0].ID != 2 {
		t.Errorf("surviving sale ID = %d, want 2", sales[0].ID)
	}
}

func TestParty_ShortAddress(t *testing.T) {
	p := Party{Address: "0x1234567890abcdef"}
	if got := p.ShortAddress(); got != "0x123456" {
		t.Errorf("ShortAddress() = %q, want %q", got, "0x123456")
	}

	short := Party{Address: "0xab"}
	if got := short.ShortAddress(); got != "0xab" {
		t.Errorf("ShortAddress() = %q, want %q", got, "0xab")
	}
}
