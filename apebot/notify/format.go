package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/shopspring/decimal"

	"github.com/greatapesociety/apebot/apebot/sales"
)

const (
	embedColorSale = 0x2ECC71

	accountURL = "https://opensea.io/"
)

// SaleTitle describes what happened: a purchase for a priced sale, a
// transfer for a zero-price one.
func SaleTitle(sale sales.Sale, collectionName string) string {
	verb := "purchased"
	if sale.Price.IsZero() {
		verb = "transferred"
	}

	if bundle, ok := sale.Subject.(sales.BundleSubject); ok {
		return fmt.Sprintf("%s Bundle of %d was %s!", collectionName, bundle.Size, verb)
	}
	single := sale.Subject.(sales.SingleSubject)
	return fmt.Sprintf("%s was %s!", single.Name, verb)
}

// SalePriceLine renders "1.5 ETH ($3,000.00)" with the USD part omitted
// when no conversion is available.
func SalePriceLine(sale sales.Sale) string {
	line := sale.Price.String() + " " + sale.PaymentToken
	if sale.PriceUSD != nil {
		line += " (" + FormatUSD(*sale.PriceUSD) + ")"
	}
	return line
}

// FormatUSD renders a dollar amount with thousands grouping and two
// decimals.
func FormatUSD(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	parts := strings.SplitN(fixed, ".", 2)
	intPart := parts[0]

	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	out := "$" + grouped.String() + "." + parts[1]
	if neg {
		out = "-" + out
	}
	return out
}

// SaleEmbed builds the Discord embed announcing one sale.
func SaleEmbed(sale sales.Sale, collectionName, footer string) discord.Embed {
	inline := true
	return discord.Embed{
		Title: SaleTitle(sale, collectionName),
		URL:   sale.Subject.Permalink(),
		Color: embedColorSale,
		Fields: []discord.EmbedField{
			{
				Name:  "**Sale price**",
				Value: SalePriceLine(sale),
			},
			{
				Name:   "**Buyer**",
				Value:  fmt.Sprintf("[%s](%s%s)", sale.Buyer.DisplayName(), accountURL, sale.Buyer.Address),
				Inline: &inline,
			},
			{
				Name:   "**Seller**",
				Value:  fmt.Sprintf("[%s](%s%s)", sale.Seller.DisplayName(), accountURL, sale.Seller.Address),
				Inline: &inline,
			},
		},
		Image: &discord.EmbedResource{
			URL: sale.Subject.ImageURL(),
		},
		Footer: &discord.EmbedFooter{
			Text: footer,
		},
	}
}

// TweetText builds the sale announcement tweet.
func TweetText(sale sales.Sale, collectionName string, hashtags []string) string {
	subjectName := ""
	if bundle, ok := sale.Subject.(sales.BundleSubject); ok {
		subjectName = fmt.Sprintf("%s Bundle of %d", collectionName, bundle.Size)
	} else {
		subjectName = sale.Subject.(sales.SingleSubject).Name
	}

	price, _ := sale.Price.Float64()
	priceText := strconv.FormatFloat(price, 'g', 3, 64)

	usd := " "
	if sale.PriceUSD != nil {
		usd = " (" + FormatUSD(*sale.PriceUSD) + ") "
	}

	return fmt.Sprintf("%s bought for %s %s%sby %s from %s. %s %s",
		subjectName,
		priceText,
		sale.PaymentToken,
		usd,
		tweetParty(sale.Buyer),
		tweetParty(sale.Seller),
		sale.Subject.Permalink(),
		strings.Join(hashtags, " "),
	)
}

// tweetParty always shows the short address, with the username appended
// when known.
func tweetParty(p sales.Party) string {
	if p.Username != "" {
		return fmt.Sprintf("%s (%s)", p.ShortAddress(), p.Username)
	}
	return p.ShortAddress()
}
