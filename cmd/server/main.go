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

	httpapi "github.com/carnegotiate/carnegotiate/internal/api/http"
	appNegotiation "github.com/carnegotiate/carnegotiate/internal/application/negotiation"
	appNotification "github.com/carnegotiate/carnegotiate/internal/application/notification"
	"github.com/carnegotiate/carnegotiate/internal/application/sweeper"
	"github.com/carnegotiate/carnegotiate/internal/config"
	"github.com/carnegotiate/carnegotiate/internal/infrastructure/postgres"
	"github.com/carnegotiate/carnegotiate/internal/infrastructure/sse"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, "internal/migrations"); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	db := postgres.NewDB(pool)
	negotiationRepo := postgres.NewNegotiationRepository(db)
	vehicleCatalog := postgres.NewVehicleRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	// infrastructure
	sseHub := sse.NewHub()

	// services
	floor, err := appNegotiation.NewOfferFloor(cfg.OfferFloorExpr)
	if err != nil {
		log.Fatalf("offer floor error: %v", err)
	}
	notifierSvc := appNotification.NewService(notificationRepo, logger)
	negotiationSvc := appNegotiation.NewService(db, negotiationRepo, vehicleCatalog, notifierSvc, floor, cfg.ExpiryWindow, logger)
	dispatcher := appNotification.NewDispatcher(notificationRepo, sseHub, logger)

	// API server
	apiServer := httpapi.NewServer(negotiationSvc, sseHub)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// background loops
	sweep := sweeper.New(negotiationSvc, cfg.ExpirySweepInterval, cfg.WarnSweepInterval, cfg.WarnLeadTime, logger)
	go sweep.Run(ctx)

	go func() {
		ticker := time.NewTicker(cfg.OutboxInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := dispatcher.Dispatch(context.Background()); err != nil {
					logger.Error().Err(err).Msg("outbox dispatch failed")
				}
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
	cancel()
	sseHub.Stop()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
}
