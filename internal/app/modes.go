package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LavaaC/ArbiSport/internal/archive"
	"github.com/LavaaC/ArbiSport/internal/normalize"
	"github.com/LavaaC/ArbiSport/internal/oddsapi"
	"github.com/LavaaC/ArbiSport/internal/scan"
	"github.com/LavaaC/ArbiSport/internal/server"
	"github.com/LavaaC/ArbiSport/internal/server/handler"
	"github.com/LavaaC/ArbiSport/internal/server/ws"
	"github.com/LavaaC/ArbiSport/internal/usage"
)

// ScanMode runs the configured scan loops plus the retention archiver, with
// no API surface.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	g, ctx := errgroup.WithContext(ctx)

	controller, err := a.startScanning(ctx, g, deps)
	if err != nil {
		return fmt.Errorf("scan mode: %w", err)
	}
	defer controller.Close()

	a.startArchiver(ctx, g, deps)

	return g.Wait()
}

// ServeMode runs the HTTP and WebSocket API against already persisted data,
// without fetching odds.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	// An idle controller so /api/status reports an empty scan list instead
	// of 404s.
	controller := scan.NewController(nil, scan.MultiSink{}, a.logger)
	defer controller.Close()

	a.startHTTPServer(ctx, g, deps, controller)

	return g.Wait()
}

// FullMode runs scanning, archiving, and the API together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	controller, err := a.startScanning(ctx, g, deps)
	if err != nil {
		return fmt.Errorf("full mode: %w", err)
	}
	defer controller.Close()

	a.startArchiver(ctx, g, deps)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, controller)
	}

	return g.Wait()
}

// startScanning builds the fetch-normalize-solve pipeline and launches one
// controller loop per configured scan.
func (a *App) startScanning(ctx context.Context, g *errgroup.Group, deps *Dependencies) (*scan.Controller, error) {
	client, err := oddsapi.New(oddsapi.Config{
		APIKey:            a.cfg.OddsAPI.APIKey,
		BaseURL:           a.cfg.OddsAPI.BaseURL,
		Timeout:           a.cfg.OddsAPI.Timeout.Duration,
		RequestsPerSecond: a.cfg.OddsAPI.RequestsPerSecond,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("odds client: %w", err)
	}

	normalizer := normalize.New(normalize.NewNameNormalizer(nil), a.logger)
	tracker := usage.New(nil, a.logger)
	runner := scan.NewRunner(client, normalizer, tracker, nil, a.logger)

	sinks := scan.MultiSink{
		scan.NewPersistenceSink(deps.EventStore, deps.QuoteStore, deps.ArbStore, deps.UsageStore, a.logger),
		scan.NewPublishSink(deps.QuoteCache, deps.SignalBus, a.logger),
		scan.NewMetricsSink(deps.Metrics),
		scan.NewNotifySink(deps.Notifier, a.logger),
	}

	controller := scan.NewController(runner, sinks, a.logger)

	now := time.Now().UTC()
	for _, sc := range a.cfg.Scans {
		spec := sc.ToSpec(now)
		if err := controller.Start(ctx, spec); err != nil {
			controller.Close()
			return nil, fmt.Errorf("start scan %s: %w", spec.Name, err)
		}
		a.logger.InfoContext(ctx, "scan started",
			slog.String("scan", spec.Name),
			slog.String("mode", string(spec.Mode)),
			slog.Duration("interval", spec.Interval),
		)
	}

	// Hold the group open until shutdown; the loops themselves are owned by
	// the controller.
	g.Go(func() error {
		<-ctx.Done()
		controller.Close()
		return ctx.Err()
	})

	return controller, nil
}

// startArchiver launches the retention pass when archiving is configured.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Archive.Enabled || deps.ArchiveWriter == nil {
		return
	}

	archiver := archive.New(
		deps.ArbStore,
		deps.ArchiveWriter,
		deps.ArchiveVerifier,
		archiveConfig(a.cfg.Archive),
		nil,
		a.logger,
	)
	g.Go(func() error {
		err := archiver.Run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	})
}

// startHTTPServer adds the API server, and the WebSocket hub when the signal
// bus is available, to the given errgroup.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, controller *scan.Controller) {
	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger)
		g.Go(func() error {
			err := hub.Run(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		})
	}

	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(a.logger),
		Scans:         handler.NewScanHandler(controller, a.logger),
		Opportunities: handler.NewOpportunityHandler(deps.ArbStore, a.logger),
		Quotes:        handler.NewQuoteHandler(deps.QuoteCache, a.logger),
		Usage:         handler.NewUsageHandler(deps.UsageStore, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
	}, handlers, hub, deps.Metrics.Registry(), a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
