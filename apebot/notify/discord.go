package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"

	"github.com/greatapesociety/apebot/apebot/sales"
)

// MessageSender is the slice of the Discord REST API the notifier needs.
type MessageSender interface {
	CreateMessage(channelID snowflake.ID, message discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// DiscordNotifier posts sale embeds to a fixed channel.
type DiscordNotifier struct {
	rest           MessageSender
	channelID      snowflake.ID
	collectionName string
	footer         string
	logger         *slog.Logger
}

func NewDiscordNotifier(rest MessageSender, channelID snowflake.ID, collectionName, footer string, logger *slog.Logger) *DiscordNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscordNotifier{
		rest:           rest,
		channelID:      channelID,
		collectionName: collectionName,
		footer:         footer,
		logger:         logger,
	}
}

func (n *DiscordNotifier) Name() string { return "discord" }

func (n *DiscordNotifier) NotifySale(ctx context.Context, sale sales.Sale) error {
	embed := SaleEmbed(sale, n.collectionName, n.footer)

	_, err := n.rest.CreateMessage(n.channelID, discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("post sale embed: %w", err)
	}

	n.logger.Info("Sale posted to Discord",
		slog.String("type", "poll"),
		slog.Int64("sale_id", sale.ID),
		slog.String("channel_id", n.channelID.String()))
	return nil
}
