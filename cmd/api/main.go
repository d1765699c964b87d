package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/escrow"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/notify"
	"server/migrations"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "escrow-api")

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := infra.Migrate(ctx, dbpool, migrations.FS, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	campaigns := repo.NewCampaignRepository(dbpool)
	milestones := repo.NewMilestoneRepository(dbpool)
	donations := repo.NewDonationRepository(dbpool)
	organizations := repo.NewOrganizationRepository(dbpool)
	notifications := repo.NewNotificationRepository(dbpool)

	formatter := notify.NewFormatter(cfg.Locale, cfg.CurrencyCode)

	var dispatcher domain.Dispatcher = notify.NewStoreDispatcher(notifications)
	if cfg.AMQPURL != "" {
		amqpDispatcher, err := notify.NewAMQPDispatcher(cfg.AMQPURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect rabbitmq")
		}
		defer amqpDispatcher.Close()
		dispatcher = notify.NewFanout(dispatcher, amqpDispatcher)
	}

	aggregator := escrow.NewAggregator(campaigns, milestones, donations)
	lifecycle := escrow.NewLifecycle(campaigns, milestones, aggregator, dispatcher, formatter, logger,
		escrow.WithProofWindow(cfg.ProofWindow))
	reviewer := escrow.NewReviewer(campaigns, milestones, lifecycle, dispatcher, formatter, logger, cfg.AdminUserID)
	sweeper := escrow.NewSweeper(campaigns, milestones, organizations, dispatcher, formatter, logger)
	if cfg.RedisAddr != "" {
		rdb := infra.NewRedisClient(cfg.RedisAddr)
		defer rdb.Close()
		sweeper.WithLock(infra.NewSweepLock(rdb, cfg.SweepInterval))
	}

	app := &handlers.App{
		Logger:        logger,
		Service:       cfg.ServiceName,
		Campaigns:     campaigns,
		Milestones:    milestones,
		Donations:     donations,
		Organizations: organizations,
		Aggregator:    aggregator,
		Lifecycle:     lifecycle,
		Reviewer:      reviewer,
		Sweeper:       sweeper,
	}

	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
