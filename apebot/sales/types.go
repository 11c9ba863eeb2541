package sales

import (
	"github.com/shopspring/decimal"
)

const shortAddrChars = 8

// Party is one side of a sale. Address is always present; Username only
// when the marketplace account has a profile.
type Party struct {
	Address  string
	Username string
}

// ShortAddress returns the leading characters of the address for
// display.
func (p Party) ShortAddress() string {
	if len(p.Address) <= shortAddrChars {
		return p.Address
	}
	return p.Address[:shortAddrChars]
}

// DisplayName prefers the username over the shortened address.
func (p Party) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	return p.ShortAddress()
}

// SaleSubject is what was sold: a single asset or a bundle. The variant
// is resolved once at parse time.
type SaleSubject interface {
	saleSubject()

	// ImageURL is the representative image (the first bundled asset's
	// image for bundles).
	ImageURL() string
	// Permalink links to the asset or bundle page.
	Permalink() string
}

// SingleSubject is a one-asset sale.
type SingleSubject struct {
	Name  string
	Image string
	Link  string
}

func (SingleSubject) saleSubject()        {}
func (s SingleSubject) ImageURL() string  { return s.Image }
func (s SingleSubject) Permalink() string { return s.Link }

// BundleSubject is a multi-asset sale.
type BundleSubject struct {
	Size  int
	Image string
	Link  string
}

func (BundleSubject) saleSubject()        {}
func (b BundleSubject) ImageURL() string  { return b.Image }
func (b BundleSubject) Permalink() string { return b.Link }

// Sale is a normalized marketplace sale event.
type Sale struct {
	ID           int64
	Subject      SaleSubject
	Seller       Party
	Buyer        Party
	PaymentToken string

	// Price is in PaymentToken units: wei / 10^18 for ETH and WETH, the
	// raw face value for anything else.
	Price decimal.Decimal

	// PriceUSD is nil when no conversion is available (non-ETH token or
	// oracle failure).
	PriceUSD *decimal.Decimal
}

// IsBundle reports whether the sale grouped multiple assets.
func (s Sale) IsBundle() bool {
	_, ok := s.Subject.(BundleSubject)
	return ok
}

// BundleSize returns the number of bundled assets, 0 for single sales.
func (s Sale) BundleSize() int {
	if b, ok := s.Subject.(BundleSubject); ok {
		return b.Size
	}
	return 0
}
