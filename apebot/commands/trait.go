package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/sahilm/fuzzy"

	"github.com/greatapesociety/apebot/apebot"
	"github.com/greatapesociety/apebot/apebot/utils"
)

const maxTraitMatches = 10

var Trait = discord.SlashCommandCreate{
	Name:        "trait",
	Description: "Look up the median listing price of a trait",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "query",
			Description: "Trait to search for, e.g. \"laser eyes\"",
			Required:    true,
		},
	},
}

func TraitHandler(b *apebot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		query := strings.TrimSpace(e.SlashCommandInteractionData().String("query"))
		if query == "" {
			return utils.EH.CreateErrorEmbed(e, "Give me a trait to search for")
		}

		snap, err := b.Cache.RefreshIfStale()
		if err != nil {
			slog.Error("Snapshot refresh failed, serving previous data",
				slog.String("type", "error"),
				slog.Any("error", err))
		}
		if snap == nil {
			return utils.EH.CreateErrorEmbed(e, "Collection data is not loaded yet, try again in a minute")
		}

		prices := b.Engine.AllTraitPrices(snap)
		labels := make([]string, len(prices))
		for i, p := range prices {
			labels[i] = p.Label
		}

		matches := fuzzy.Find(query, labels)
		if len(matches) == 0 {
			return utils.EH.CreateErrorEmbed(e, fmt.Sprintf("No trait matches: %s", query))
		}
		if len(matches) > maxTraitMatches {
			matches = matches[:maxTraitMatches]
		}

		var description strings.Builder
		for _, m := range matches {
			p := prices[m.Index]
			description.WriteString(fmt.Sprintf("**%s** · %s\n", p.Label, utils.FormatEth(p.Price)))
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "Trait prices",
				Description: description.String(),
				Color:       utils.InfoColor,
			}},
		})
	}
}
