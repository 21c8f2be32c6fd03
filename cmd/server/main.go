package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/deal-hub/deal-hub/internal/api/http"
	appDeal "github.com/deal-hub/deal-hub/internal/application/deal"
	"github.com/deal-hub/deal-hub/internal/application/gateway"
	"github.com/deal-hub/deal-hub/internal/application/normalizer"
	"github.com/deal-hub/deal-hub/internal/application/reconciler"
	"github.com/deal-hub/deal-hub/internal/application/timeline"
	"github.com/deal-hub/deal-hub/internal/application/watch"
	"github.com/deal-hub/deal-hub/internal/config"
	"github.com/deal-hub/deal-hub/internal/infrastructure/marketplace"
	"github.com/deal-hub/deal-hub/internal/infrastructure/postgres"
	"github.com/deal-hub/deal-hub/internal/infrastructure/push"
	"github.com/deal-hub/deal-hub/internal/infrastructure/sse"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, "internal/migrations"); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	dealRepo := postgres.NewDealRepository(pool)
	archiveRepo := postgres.NewArchiveRepository(pool)

	// infrastructure
	sseHub := sse.NewHub()
	mpClient := marketplace.NewClient(cfg.MarketplaceURL, cfg.MarketplaceToken, nil)

	// core
	norm := normalizer.NewService(cfg.DedupWindow, logger)
	store := timeline.NewStore(cfg.DedupWindow, logger)
	store.SetArchiver(archiveRepo)

	if err := hydrate(ctx, store, archiveRepo); err != nil {
		log.Fatalf("hydration error: %v", err)
	}

	// services
	dealSvc := appDeal.NewService(dealRepo, store, logger)
	coord := reconciler.NewCoordinator(mpClient, norm, store, dealSvc, cfg.SyncDebounce, logger)
	gatewaySvc := gateway.NewService(store, norm, mpClient, logger)
	watchSvc := watch.NewService(store, sseHub, logger)

	store.AddNotifier(sse.NewTimelineNotifier(sseHub))
	store.AddNotifier(dealSvc)
	store.AddNotifier(watchSvc)

	for _, dealID := range store.DealIDs() {
		coord.Track(dealID)
	}

	// API server
	apiServer := httpapi.NewServer(dealSvc, gatewaySvc, coord, watchSvc, store, sseHub)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	// background loops
	if cfg.PushWSURL != "" {
		listener := push.NewListener(cfg.PushWSURL, cfg.MarketplaceToken, store, norm, coord.SyncTracked, logger)
		go listener.Run(runCtx)
	}

	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				coord.SyncTracked(runCtx)
			case <-runCtx.Done():
				return
			}
		}
	}()

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stop()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
	sseHub.Stop()
}

// hydrate replays archived events into the in-memory timelines so restarts
// do not lose optimistic events or force a full re-sync.
func hydrate(ctx context.Context, store *timeline.Store, repo *postgres.ArchiveRepository) error {
	dealIDs, err := repo.ListDealIDs(ctx)
	if err != nil {
		return err
	}
	for _, dealID := range dealIDs {
		events, err := repo.ListByDeal(ctx, dealID)
		if err != nil {
			return err
		}
		for _, e := range events {
			if _, err := store.Hydrate(e); err != nil {
				return err
			}
		}
	}
	return nil
}
