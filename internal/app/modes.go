package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/apexfx/brokerd/internal/archive"
	"github.com/apexfx/brokerd/internal/feed"
	"github.com/apexfx/brokerd/internal/notify"
	"github.com/apexfx/brokerd/internal/server"
	"github.com/apexfx/brokerd/internal/server/handler"
	"github.com/apexfx/brokerd/internal/server/ws"
	"github.com/apexfx/brokerd/internal/service"
	"github.com/apexfx/brokerd/internal/worker"
)

// ServeMode runs the HTTP + WebSocket API only. Market orders still execute
// inline; resting orders accumulate until a worker instance picks them up.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	exec, routing := a.buildExecution(deps)
	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		if err := hub.Run(ctx); ctx.Err() == nil {
			return err
		}
		return nil
	})

	a.startHTTPServer(ctx, g, deps, exec, routing, hub)

	return g.Wait()
}

// WorkerMode runs the market-data feed, pending-order processing, liquidation
// sweeps, and audit archival without the HTTP API.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting worker mode")

	g, ctx := errgroup.WithContext(ctx)

	exec, _ := a.buildExecution(deps)
	a.startWorker(ctx, g, deps, exec, nil)
	a.startArchiver(ctx, g, deps)

	return g.Wait()
}

// FullMode runs every subsystem in one process: the API, the feed-driven
// worker, and audit archival. Price ticks and execution events are also
// fanned out to WebSocket subscribers.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	exec, routing := a.buildExecution(deps)
	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		if err := hub.Run(ctx); ctx.Err() == nil {
			return err
		}
		return nil
	})

	a.startHTTPServer(ctx, g, deps, exec, routing, hub)
	a.startWorker(ctx, g, deps, exec, hub)
	a.startArchiver(ctx, g, deps)

	return g.Wait()
}

// buildExecution constructs the routing service and the execution
// orchestrator. The routing toggle is read once here; runtime changes go
// through the routing service's own UpdateConfig.
func (a *App) buildExecution(deps *Dependencies) (*service.Executor, *service.RoutingService) {
	routing := service.NewRoutingService(deps.PositionStore, service.RoutingConfig{
		Enabled:               a.cfg.Routing.Enabled,
		SizeThresholdUSD:      decimal.NewFromFloat(a.cfg.Routing.SizeThresholdUSD),
		ExposureLimitPerInstr: decimal.NewFromFloat(a.cfg.Routing.ExposureLimitPerInstrUSD),
		ExposureLimitTotal:    decimal.NewFromFloat(a.cfg.Routing.ExposureLimitTotalUSD),
		PrimaryProvider:       a.cfg.Routing.PrimaryProvider,
		FallbackProvider:      a.cfg.Routing.FallbackProvider,
	})

	exec := service.NewExecutor(service.ExecutorConfig{
		Pool:           deps.Pool.Pool(),
		Routing:        routing,
		RoutingEnabled: a.cfg.Routing.Enabled,
		Providers:      deps.Providers,
		Audit:          deps.AuditStore,
		Logger:         a.logger,
	})

	return exec, routing
}

// startHTTPServer registers all handlers and runs the API server until ctx
// is cancelled.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	exec *service.Executor,
	routing *service.RoutingService,
	hub *ws.Hub,
) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "http server disabled by config")
		return
	}

	orderSvc := service.NewOrderService(
		deps.OrderStore, deps.PendingStore, deps.InstrumentStore,
		deps.PriceCache, exec, a.logger,
	)
	marginSvc := service.NewMarginService(deps.BalanceStore, deps.PositionStore, deps.PriceCache)

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.OrderRateLimit,
			RateWindow:  time.Minute,
		},
		server.Handlers{
			Health:    handler.NewHealthHandler(a.logger),
			Orders:    handler.NewOrderHandler(orderSvc, a.logger),
			Positions: handler.NewPositionHandler(deps.PositionStore, a.logger),
			Accounts:  handler.NewAccountHandler(marginSvc, a.logger),
			Routing:   handler.NewRoutingHandler(routing, a.logger),
		},
		hub,
		deps.RateLimiter,
		a.logger,
	)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// startWorker runs the price feed and the order processor. When hub is
// non-nil, price ticks and execution events are also broadcast to WebSocket
// subscribers.
func (a *App) startWorker(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	exec *service.Executor,
	hub *ws.Hub,
) {
	liquidation := service.NewLiquidationMonitor(deps.Pool.Pool(), a.logger)

	var notifier worker.EventNotifier = deps.Notifier
	if hub != nil {
		notifier = &hubNotifier{next: deps.Notifier, hub: hub}
	}

	processor := worker.NewProcessor(
		exec, liquidation,
		deps.PendingStore, deps.OrderStore, deps.PriceCache,
		notifier, a.logger,
	)

	onPrice := func(ctx context.Context, u feed.PriceUpdate) {
		processor.HandlePrice(ctx, u)
		if hub != nil {
			hub.Broadcast(ws.ChannelPrices, map[string]any{
				"symbol": u.Symbol,
				"price":  u.Price,
				"at":     u.At.UTC(),
			})
		}
	}
	marketFeed := feed.NewMarketFeed(a.cfg.Feed.WsURL, a.cfg.Feed.Symbols, onPrice, a.logger)

	g.Go(func() error {
		if err := processor.Run(ctx); ctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer marketFeed.Close()
		if err := marketFeed.Run(ctx); ctx.Err() == nil {
			return err
		}
		return nil
	})
}

// startArchiver runs the periodic audit export when enabled.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Archive.Enabled || deps.BlobWriter == nil {
		return
	}

	interval := time.Duration(a.cfg.Archive.IntervalMinutes) * time.Minute
	archiver := archive.NewArchiver(deps.BlobWriter, deps.AuditStore, deps.LockManager, a.logger)

	g.Go(func() error {
		if err := archiver.Run(ctx, interval); ctx.Err() == nil {
			return err
		}
		return nil
	})

	a.logger.InfoContext(ctx, "audit archiver started",
		slog.Duration("interval", interval),
	)
}

// hubNotifier forwards execution events to the operator notifier and mirrors
// them onto the WebSocket event stream.
type hubNotifier struct {
	next *notify.Notifier
	hub  *ws.Hub
}

func (n *hubNotifier) Notify(ctx context.Context, event, title, message string) error {
	channel := ws.ChannelOrders
	if event == notify.EventLiquidation {
		channel = ws.ChannelLiquidations
	}
	n.hub.Broadcast(channel, map[string]string{
		"event":   event,
		"title":   title,
		"message": message,
	})
	return n.next.Notify(ctx, event, title, message)
}
