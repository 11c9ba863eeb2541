package sales

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greatapesociety/apebot/apebot/marketplace"
)

// EventSource provides recent marketplace events, newest first.
type EventSource interface {
	GetEvents(ctx context.Context, offset, limit int, eventType string) ([]marketplace.AssetEvent, error)
}

// Notifier delivers an announced sale to one channel. Implementations
// live in the notify package.
type Notifier interface {
	Name() string
	NotifySale(ctx context.Context, sale Sale) error
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // time between cycles (default: 60s)
	Window   int           // recent events fetched per cycle (default: 10)
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Interval: time.Minute,
		Window:   10,
	}
}

// Poller repeatedly fetches the most recent successful sales and
// announces only the ones not seen in the previous cycle. Dedup state is
// in-memory only: a fresh process baselines on its first fetch, so sales
// completed at or before startup are never announced.
type Poller struct {
	cfg       Config
	source    EventSource
	parser    *Parser
	notifiers []Notifier
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	prevIDs map[int64]struct{}
}

// New creates a Poller.
func New(cfg Config, source EventSource, parser *Parser, notifiers []Notifier, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:       cfg,
		source:    source,
		parser:    parser,
		notifiers: notifiers,
		logger:    logger,
		prevIDs:   make(map[int64]struct{}),
	}
}

// Start fetches the baseline and begins the polling loop. A failed
// baseline fetch is returned to the caller; at startup that is fatal.
func (p *Poller) Start(ctx context.Context) error {
	baseline, err := p.fetchSales(ctx)
	if err != nil {
		return fmt.Errorf("baseline fetch: %w", err)
	}
	p.prevIDs = saleIDs(baseline)

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.run()

	p.logger.Info("Sales poller started",
		slog.String("type", "poll"),
		slog.Duration("interval", p.cfg.Interval),
		slog.Int("window", p.cfg.Window),
		slog.Int("baseline_sales", len(baseline)))
	return nil
}

// Stop shuts down the polling loop. No in-flight cancellation beyond
// the context: shutdown simply stops scheduling further cycles.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Sales poller stopped", slog.String("type", "poll"))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.cycle(p.ctx)
		}
	}
}

// cycle runs one fetch → diff → dispatch pass. Nothing in here may kill
// the loop: a failed fetch keeps the previous state and an empty new-ID
// set so no sale is duplicated or invented.
func (p *Poller) cycle(ctx context.Context) {
	start := time.Now()
	cycleID := uuid.NewString()

	current, err := p.fetchSales(ctx)
	if err != nil {
		p.logger.Error("Sales fetch failed, keeping previous state",
			slog.String("type", "poll"),
			slog.String("cycle_id", cycleID),
			slog.Any("error", err))
		return
	}

	// An empty window when history exists is indistinguishable from a
	// truncated marketplace response. Advancing state here would rebuild
	// the baseline from nothing and re-announce the whole window next
	// cycle, so keep the previous ID set instead.
	if len(current) == 0 && len(p.prevIDs) > 0 {
		p.logger.Warn("Empty sales window, keeping previous state",
			slog.String("type", "poll"),
			slog.String("cycle_id", cycleID))
		return
	}

	var announced int
	for _, sale := range current {
		if _, seen := p.prevIDs[sale.ID]; seen {
			continue
		}
		p.logger.Info("New sale",
			slog.String("type", "poll"),
			slog.String("cycle_id", cycleID),
			slog.Int64("sale_id", sale.ID))
		p.dispatch(ctx, sale)
		announced++
	}

	if announced == 0 {
		p.logger.Info("No new sales",
			slog.String("type", "poll"),
			slog.String("cycle_id", cycleID),
			slog.Duration("took", time.Since(start)))
	} else {
		p.logger.Info("Poll cycle complete",
			slog.String("type", "poll"),
			slog.String("cycle_id", cycleID),
			slog.Int("announced", announced),
			slog.Duration("took", time.Since(start)))
	}

	p.prevIDs = saleIDs(current)
}

// dispatch hands one sale to every notifier. One channel's failure never
// blocks delivery to the others.
func (p *Poller) dispatch(ctx context.Context, sale Sale) {
	for _, n := range p.notifiers {
		if err := n.NotifySale(ctx, sale); err != nil {
			p.logger.Error("Notification failed",
				slog.String("type", "error"),
				slog.String("notifier", n.Name()),
				slog.Int64("sale_id", sale.ID),
				slog.Any("error", err))
		}
	}
}

func (p *Poller) fetchSales(ctx context.Context) ([]Sale, error) {
	events, err := p.source.GetEvents(ctx, 0, p.cfg.Window, marketplace.EventSuccessful)
	if err != nil {
		return nil, err
	}
	return p.parser.ParseEvents(ctx, events), nil
}

func saleIDs(sales []Sale) map[int64]struct{} {
	ids := make(map[int64]struct{}, len(sales))
	for _, s := range sales {
		ids[s.ID] = struct{}{}
	}
	return ids
}
