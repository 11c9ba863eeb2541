package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"

	"github.com/greatapesociety/apebot/apebot"
	"github.com/greatapesociety/apebot/apebot/analytics"
	"github.com/greatapesociety/apebot/apebot/commands"
	"github.com/greatapesociety/apebot/apebot/handlers"
	"github.com/greatapesociety/apebot/apebot/logger"
	"github.com/greatapesociety/apebot/apebot/marketplace"
	"github.com/greatapesociety/apebot/apebot/notify"
	"github.com/greatapesociety/apebot/apebot/oracle"
	"github.com/greatapesociety/apebot/apebot/sales"
	"github.com/greatapesociety/apebot/apebot/snapshot"
)

var (
	version = "dev"
	commit  = "unknown"
)

const (
	snapshotPageSize  = 50
	snapshotMaxOffset = 10000
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	logger.LogSystem("Starting Ape Bot",
		slog.String("version", version),
		slog.String("commit", commit))

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	shouldRefreshSnapshot := flag.Bool("refresh-snapshot", false, "Fetch the full collection, write the snapshot file and exit")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := apebot.LoadConfig(*path)
	if err != nil {
		logger.LogError("Failed to load configuration", err)
		os.Exit(-1)
	}
	logger.LogSystem("Configuration loaded successfully")

	marketOpts := []marketplace.ClientOption{
		marketplace.WithLogger(slog.Default()),
	}
	if cfg.Marketplace.BaseURL != "" {
		marketOpts = append(marketOpts, marketplace.WithBaseURL(cfg.Marketplace.BaseURL))
	}
	if cfg.Marketplace.APIKey != "" {
		marketOpts = append(marketOpts, marketplace.WithAPIKey(cfg.Marketplace.APIKey))
	}
	if cfg.Marketplace.TimeoutSeconds > 0 {
		marketOpts = append(marketOpts, marketplace.WithTimeout(time.Duration(cfg.Marketplace.TimeoutSeconds)*time.Second))
	}
	if cfg.Marketplace.MaxRetries > 0 {
		marketOpts = append(marketOpts, marketplace.WithRetries(cfg.Marketplace.MaxRetries, 500*time.Millisecond))
	}
	market := marketplace.NewClient(cfg.Collection.Contract, marketOpts...)

	if *shouldRefreshSnapshot {
		refreshSnapshot(market, cfg)
		return
	}

	cache := snapshot.NewMarketCache(cfg.Collection.SnapshotPath, cfg.Collection.PseudoTrait, slog.Default())
	if err := cache.Load(); err != nil {
		logger.LogError("Failed to load collection snapshot, run with -refresh-snapshot to rebuild it", err,
			slog.String("path", cfg.Collection.SnapshotPath))
		os.Exit(-1)
	}

	oracleOpts := []oracle.Option{oracle.WithLogger(slog.Default())}
	if cfg.Oracle.BaseURL != "" {
		oracleOpts = append(oracleOpts, oracle.WithBaseURL(cfg.Oracle.BaseURL))
	}
	rates := oracle.NewClient(oracleOpts...)

	b := apebot.New(*cfg, version, commit)
	b.Market = market
	b.Cache = cache
	b.Engine = analytics.NewEngine()
	b.Oracle = rates

	h := handler.New()
	h.Command("/version", commands.VersionHandler(b))
	h.Command("/toprare", handlers.WrapWithLogging("toprare", commands.TopRareHandler(b)))
	h.Command("/trait", handlers.WrapWithLogging("trait", commands.TraitHandler(b)))

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady), handlers.MessageHandler(b)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds),
		)
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"),
			)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = b.Client.OpenGateway(ctx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("component", "gateway"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	notifiers := buildNotifiers(b)
	parser := sales.NewParser(rates, slog.Default())
	poller := sales.New(sales.Config{
		Interval: time.Duration(cfg.Poller.IntervalSeconds) * time.Second,
		Window:   cfg.Poller.Window,
	}, market, parser, notifiers, slog.Default())
	b.Poller = poller

	startCtx, startCancel := context.WithTimeout(context.Background(), time.Minute)
	err = poller.Start(startCtx)
	startCancel()
	if err != nil {
		logger.LogError("Failed to start sales poller", err)
		os.Exit(-1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := poller.Stop(ctx); err != nil {
			logger.LogError("Sales poller did not stop cleanly", err)
		}
	}()

	logger.LogSystem("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	logger.LogSystem("Shutting down bot...")
}

func buildNotifiers(b *apebot.Bot) []sales.Notifier {
	cfg := b.Cfg
	notifiers := []sales.Notifier{
		notify.NewDiscordNotifier(
			b.Client.Rest(),
			cfg.Bot.SalesChannelID,
			cfg.Collection.Name,
			cfg.Collection.EmbedFooter,
			slog.Default(),
		),
	}

	if cfg.Twitter.Enabled {
		notifiers = append(notifiers, notify.NewTwitterNotifier(
			cfg.Twitter.TwitterCredentials,
			cfg.Collection.Name,
			cfg.Collection.Hashtags,
			slog.Default(),
		))
	}
	return notifiers
}

// refreshSnapshot pulls the whole collection from the marketplace and
// writes it to the snapshot file.
func refreshSnapshot(market *marketplace.Client, cfg *apebot.Config) {
	logger.LogSystem("Refreshing collection snapshot",
		slog.String("contract", cfg.Collection.Contract),
		slog.String("path", cfg.Collection.SnapshotPath))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	start := time.Now()
	assets, err := snapshot.FetchAll(ctx, market, snapshotPageSize, snapshotMaxOffset)
	if err != nil {
		logger.LogError("Collection fetch failed", err)
		os.Exit(-1)
	}

	if err := snapshot.Save(assets, cfg.Collection.SnapshotPath); err != nil {
		logger.LogError("Failed to write snapshot file", err)
		os.Exit(-1)
	}

	logger.LogSystem("Snapshot refreshed",
		slog.Int("assets", len(assets)),
		slog.Duration("took", time.Since(start)))
}
