package marketplace

// Trait is a single categorical attribute on an asset. TraitCount is the
// number of assets in the whole collection sharing this exact
// (trait_type, value) pair, as reported by the marketplace.
type Trait struct {
	TraitType  string `json:"trait_type"`
	Value      string `json:"value"`
	TraitCount int64  `json:"trait_count"`
}

// SellOrder is an open listing for an asset. BasePrice is an integer
// amount in the token's smallest denomination (wei for ETH/WETH).
type SellOrder struct {
	BasePrice string `json:"base_price"`
}

// Asset is one collectible token of the tracked collection.
type Asset struct {
	TokenID    string      `json:"token_id"`
	Name       string      `json:"name"`
	ImageURL   string      `json:"image_url"`
	Permalink  string      `json:"permalink"`
	Traits     []Trait     `json:"traits"`
	SellOrders []SellOrder `json:"sell_orders"`
}

// HasSellOrder reports whether the asset currently has at least one
// active listing.
func (a *Asset) HasSellOrder() bool {
	return len(a.SellOrders) > 0
}

// Account is a marketplace account. User is nil when the address has no
// associated profile.
type Account struct {
	Address string `json:"address"`
	User    *struct {
		Username string `json:"username"`
	} `json:"user"`
}

// Username returns the account's display name, or "" if unset.
func (a *Account) Username() string {
	if a == nil || a.User == nil {
		return ""
	}
	return a.User.Username
}

// PaymentToken describes the currency a sale settled in.
type PaymentToken struct {
	Symbol string `json:"symbol"`
}

// BundleAsset is one asset inside a bundle payload. Bundles only carry
// the fields needed for display.
type BundleAsset struct {
	ImageURL string `json:"image_url"`
}

// AssetBundle is a multi-asset sale payload.
type AssetBundle struct {
	Assets    []BundleAsset `json:"assets"`
	Permalink string        `json:"permalink"`
}

// AssetEvent is a raw marketplace event. Exactly one of Asset and
// AssetBundle is set for a well-formed successful sale.
type AssetEvent struct {
	ID            int64        `json:"id"`
	Asset         *Asset       `json:"asset"`
	AssetBundle   *AssetBundle `json:"asset_bundle"`
	Seller        *Account     `json:"seller"`
	WinnerAccount *Account     `json:"winner_account"`
	PaymentToken  PaymentToken `json:"payment_token"`
	TotalPrice    string       `json:"total_price"`
}

type assetsResponse struct {
	Assets []Asset `json:"assets"`
}

type eventsResponse struct {
	AssetEvents []AssetEvent `json:"asset_events"`
}
