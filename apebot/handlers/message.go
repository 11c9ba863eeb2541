package handlers

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/greatapesociety/apebot/apebot"
	"github.com/greatapesociety/apebot/apebot/analytics"
	"github.com/greatapesociety/apebot/apebot/logger"
	"github.com/greatapesociety/apebot/apebot/snapshot"
	"github.com/greatapesociety/apebot/apebot/utils"
)

const (
	helpCommand    = "!apehelp"
	topRareCommand = "!toprare"

	defaultTopRareCount = 3
	maxTopRareCount     = 25
)

// MessageHandler answers the text command surface: a pasted asset URL,
// !apehelp and !toprareN.
func MessageHandler(b *apebot.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.MessageCreate) {
		if e.Message.Author.Bot {
			return
		}
		if b.Cfg.Bot.ChatChannelID != 0 && e.ChannelID != b.Cfg.Bot.ChatChannelID {
			return
		}

		content := strings.TrimSpace(e.Message.Content)
		switch {
		case strings.HasPrefix(content, b.Cfg.Collection.AssetURLPrefix):
			runTextCommand("price", e, func() error {
				return handleAssetLookup(b, e, content)
			})
		case content == helpCommand:
			runTextCommand("apehelp", e, func() error {
				return handleHelp(b, e)
			})
		case strings.HasPrefix(content, topRareCommand):
			runTextCommand("toprare", e, func() error {
				return handleTopRare(b, e, strings.TrimPrefix(content, topRareCommand))
			})
		}
	})
}

func runTextCommand(name string, e *events.MessageCreate, fn func() error) {
	start := time.Now()
	err := fn()
	logger.LogCommand(name, time.Since(start), err)
	if err != nil {
		replyError(e, "Sorry, something went wrong on my end. Try again in a minute.")
	}
}

// handleAssetLookup resolves the token id from the pasted URL's trailing
// path segment and replies with the asset's price and rarity estimate.
func handleAssetLookup(b *apebot.Bot, e *events.MessageCreate, content string) error {
	tokenID := tokenIDFromURL(content)

	snap, err := refreshSnapshot(b)
	if err != nil {
		return err
	}

	asset, ok := snap.AssetByTokenID(tokenID)
	if !ok {
		replyError(e, fmt.Sprintf("Sorry, I couldn't find ape %s in my records.", tokenID))
		return nil
	}

	prices := b.Engine.TraitPrices(snap, asset)
	avg, minPrice, maxPrice := analytics.AggregateStats(analytics.Prices(prices))
	mvt := analytics.MostValuableTrait(prices)
	score := b.Engine.RarityIndex(snap).Score(asset)

	embed := discord.Embed{
		Title: fmt.Sprintf("🤑 %s 🤑", asset.Name),
		URL:   asset.Permalink,
		Color: utils.InfoColor,
		Fields: []discord.EmbedField{
			{Name: "**Average Price** 💸", Value: utils.FormatEth(avg), Inline: utils.Ptr(false)},
			{Name: "**Min Price**", Value: utils.FormatEth(minPrice), Inline: utils.Ptr(true)},
			{Name: "**Max Price**", Value: utils.FormatEth(maxPrice), Inline: utils.Ptr(true)},
			{Name: "**Most Valuable Trait** 🚀", Value: mvt, Inline: utils.Ptr(false)},
		},
		Image: &discord.EmbedResource{URL: asset.ImageURL},
		Footer: &discord.EmbedFooter{
			Text: b.Cfg.Collection.EmbedFooter + "\nDisclaimer: No guarantees on prices. Estimates are based on value of traits from historical listing data.",
		},
	}
	if score != -1 {
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name:   "**Rarity Score**",
			Value:  fmt.Sprintf("%d/100", score),
			Inline: utils.Ptr(false),
		})
	}
	if iq, ok := snap.PseudoScore(tokenID); ok {
		percentile := analytics.PercentileOf(snap.PseudoPopulation(), iq)
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name:   fmt.Sprintf("**%s Percentile**", b.Cfg.Collection.PseudoTrait),
			Value:  utils.FormatPercentile(percentile),
			Inline: utils.Ptr(false),
		})
	}

	return reply(e, discord.NewMessageCreateBuilder().SetEmbeds(embed).Build())
}

func handleHelp(b *apebot.Bot, e *events.MessageCreate) error {
	embed := discord.Embed{
		Title: fmt.Sprintf("%s Bot", b.Cfg.Collection.Name),
		Color: utils.InfoColor,
		Description: fmt.Sprintf(
			"Paste an asset link starting with %s to get a price and rarity estimate.\n"+
				"`%s` shows this help.\n"+
				"`%sN` lists the N rarest apes (default %d).",
			b.Cfg.Collection.AssetURLPrefix, helpCommand, topRareCommand, defaultTopRareCount),
	}
	return reply(e, discord.NewMessageCreateBuilder().SetEmbeds(embed).Build())
}

// handleTopRare lists the N rarest assets. The count rides directly on
// the command word, "!toprare5".
func handleTopRare(b *apebot.Bot, e *events.MessageCreate, suffix string) error {
	count := parseTopRareCount(suffix)

	snap, err := refreshSnapshot(b)
	if err != nil {
		return err
	}

	ranked := b.Engine.RankByRarity(snap)
	if count > len(ranked) {
		count = len(ranked)
	}

	var description strings.Builder
	for i, entry := range ranked[:count] {
		description.WriteString(fmt.Sprintf("**%d.** [%s](%s) · score %s\n",
			i+1, entry.Asset.Name, entry.Asset.Permalink, utils.FormatScore(entry.Score)))
	}

	embed := discord.Embed{
		Title:       fmt.Sprintf("Top %d rarest %s", count, b.Cfg.Collection.Name),
		Description: description.String(),
		Color:       utils.InfoColor,
	}
	return reply(e, discord.NewMessageCreateBuilder().SetEmbeds(embed).Build())
}

// tokenIDFromURL takes the trailing path segment, tolerating a trailing
// slash.
func tokenIDFromURL(url string) string {
	url = strings.TrimSuffix(url, "/")
	return url[strings.LastIndex(url, "/")+1:]
}

// parseTopRareCount falls back to the default on anything that is not a
// positive integer, and caps runaway requests.
func parseTopRareCount(suffix string) int {
	suffix = strings.TrimSpace(suffix)
	if suffix == "" {
		return defaultTopRareCount
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n <= 0 {
		return defaultTopRareCount
	}
	if n > maxTopRareCount {
		return maxTopRareCount
	}
	return n
}

func refreshSnapshot(b *apebot.Bot) (*snapshot.Snapshot, error) {
	snap, err := b.Cache.RefreshIfStale()
	if err != nil {
		slog.Error("Snapshot refresh failed, serving previous data",
			slog.String("type", "error"),
			slog.Any("error", err))
	}
	if snap == nil {
		return nil, fmt.Errorf("snapshot not loaded")
	}
	return snap, nil
}

func reply(e *events.MessageCreate, message discord.MessageCreate) error {
	_, err := e.Client().Rest().CreateMessage(e.ChannelID, message)
	return err
}

func replyError(e *events.MessageCreate, text string) {
	_, err := e.Client().Rest().CreateMessage(e.ChannelID, discord.MessageCreate{
		Embeds: []discord.Embed{{Description: text, Color: utils.ErrorColor}},
	})
	if err != nil {
		slog.Error("Failed to send error reply",
			slog.String("type", "error"),
			slog.String("channel_id", e.ChannelID.String()),
			slog.Any("error", err))
	}
}
