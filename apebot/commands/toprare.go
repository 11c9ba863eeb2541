package commands

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/greatapesociety/apebot/apebot"
	"github.com/greatapesociety/apebot/apebot/utils"
)

const apesPerPage = 10

var TopRare = discord.SlashCommandCreate{
	Name:        "toprare",
	Description: "Browse the collection ranked by rarity",
}

func TopRareHandler(b *apebot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		snap, err := b.Cache.RefreshIfStale()
		if err != nil {
			slog.Error("Snapshot refresh failed, serving previous data",
				slog.String("type", "error"),
				slog.Any("error", err))
		}
		if snap == nil {
			return utils.EH.CreateErrorEmbed(e, "Collection data is not loaded yet, try again in a minute")
		}

		ranked := b.Engine.RankByRarity(snap)
		if len(ranked) == 0 {
			return utils.EH.CreateErrorEmbed(e, "The collection snapshot is empty")
		}

		totalPages := int(math.Ceil(float64(len(ranked)) / float64(apesPerPage)))

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				startIdx := page * apesPerPage
				endIdx := min(startIdx+apesPerPage, len(ranked))

				var description strings.Builder
				for i, entry := range ranked[startIdx:endIdx] {
					description.WriteString(fmt.Sprintf("**%d.** [%s](%s) · score %s\n",
						startIdx+i+1,
						entry.Asset.Name,
						entry.Asset.Permalink,
						utils.FormatScore(entry.Score),
					))
				}

				embed.
					SetTitle(fmt.Sprintf("Rarest %s", b.Cfg.Collection.Name)).
					SetDescription(description.String()).
					SetColor(utils.InfoColor).
					SetFooter(fmt.Sprintf("Page %d/%d • %d apes ranked", page+1, totalPages, len(ranked)), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}
