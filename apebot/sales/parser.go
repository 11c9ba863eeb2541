package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/greatapesociety/apebot/apebot/marketplace"
)

// ErrMalformedEvent marks an event carrying neither a single-asset nor a
// bundle payload. Such events are logged and skipped, never fatal.
var ErrMalformedEvent = errors.New("event has neither asset nor bundle payload")

var weiPerEth = decimal.New(1, 18)

// RateSource converts ETH amounts to USD. Failures degrade a single
// sale's USD display, nothing more.
type RateSource interface {
	ETHUSD(ctx context.Context) (decimal.Decimal, error)
}

// Parser turns raw marketplace events into Sale records.
type Parser struct {
	rates  RateSource
	logger *slog.Logger
}

// NewParser creates a Parser. rates may be nil to disable USD conversion.
func NewParser(rates RateSource, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{rates: rates, logger: logger}
}

// ParseEvents parses every event it can, skipping and logging malformed
// ones. One bad event never aborts the batch.
func (p *Parser) ParseEvents(ctx context.Context, events []marketplace.AssetEvent) []Sale {
	parsed := make([]Sale, 0, len(events))
	for i := range events {
		sale, err := p.parseEvent(ctx, &events[i])
		if err != nil {
			p.logger.Error("Skipping unparseable sale event",
				slog.String("type", "error"),
				slog.Int64("event_id", events[i].ID),
				slog.Any("error", err))
			continue
		}
		parsed = append(parsed, sale)
	}
	return parsed
}

func (p *Parser) parseEvent(ctx context.Context, ev *marketplace.AssetEvent) (Sale, error) {
	var subject SaleSubject
	switch {
	case ev.Asset != nil:
		subject = SingleSubject{
			Name:  ev.Asset.Name,
			Image: ev.Asset.ImageURL,
			Link:  ev.Asset.Permalink,
		}
	case ev.AssetBundle != nil:
		bundle := BundleSubject{
			Size: len(ev.AssetBundle.Assets),
			Link: ev.AssetBundle.Permalink,
		}
		if len(ev.AssetBundle.Assets) > 0 {
			bundle.Image = ev.AssetBundle.Assets[0].ImageURL
		}
		subject = bundle
	default:
		return Sale{}, ErrMalformedEvent
	}

	sale := Sale{
		ID:           ev.ID,
		Subject:      subject,
		PaymentToken: ev.PaymentToken.Symbol,
	}
	if ev.Seller != nil {
		sale.Seller = Party{Address: ev.Seller.Address, Username: ev.Seller.Username()}
	}
	if ev.WinnerAccount != nil {
		sale.Buyer = Party{Address: ev.WinnerAccount.Address, Username: ev.WinnerAccount.Username()}
	}

	total, err := decimal.NewFromString(ev.TotalPrice)
	if err != nil {
		return Sale{}, fmt.Errorf("parse total_price %q: %w", ev.TotalPrice, err)
	}

	switch sale.PaymentToken {
	case "ETH", "WETH":
		sale.Price = total.Div(weiPerEth)
		sale.PriceUSD = p.convertUSD(ctx, ev.ID, sale.Price)
	default:
		// Any other token's total_price is already a decimal face value;
		// no USD conversion is attempted.
		sale.Price = total
	}

	return sale, nil
}

// convertUSD returns nil when the oracle is unavailable; the sale is
// still announced, just without a USD figure.
func (p *Parser) convertUSD(ctx context.Context, eventID int64, eth decimal.Decimal) *decimal.Decimal {
	if p.rates == nil {
		return nil
	}
	rate, err := p.rates.ETHUSD(ctx)
	if err != nil {
		p.logger.Error("USD price unavailable",
			slog.String("type", "error"),
			slog.Int64("event_id", eventID),
			slog.Any("error", err))
		return nil
	}
	usd := rate.Mul(eth)
	return &usd
}
