package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/escrow"
	"server/internal/infra"
	"server/internal/notify"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "escrow-sweeper")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweeper: db connection failed")
	}
	defer pool.Close()

	campaigns := repo.NewCampaignRepository(pool)
	milestones := repo.NewMilestoneRepository(pool)
	organizations := repo.NewOrganizationRepository(pool)
	notifications := repo.NewNotificationRepository(pool)

	formatter := notify.NewFormatter(cfg.Locale, cfg.CurrencyCode)

	var dispatcher domain.Dispatcher = notify.NewStoreDispatcher(notifications)
	if cfg.AMQPURL != "" {
		amqpDispatcher, err := notify.NewAMQPDispatcher(cfg.AMQPURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("sweeper: rabbitmq connection failed")
		}
		defer amqpDispatcher.Close()
		dispatcher = notify.NewFanout(dispatcher, amqpDispatcher)
	}

	sweeper := escrow.NewSweeper(campaigns, milestones, organizations, dispatcher, formatter, logger)
	if cfg.RedisAddr != "" {
		rdb := infra.NewRedisClient(cfg.RedisAddr)
		defer rdb.Close()
		sweeper.WithLock(infra.NewSweepLock(rdb, cfg.SweepInterval))
	}

	if *once {
		blocked, err := sweeper.Run(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("sweeper: run failed")
		}
		logger.Info().Int("blocked", blocked).Msg("sweeper: done")
		return
	}

	logger.Info().Dur("interval", cfg.SweepInterval).Msg("sweeper: started")
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		if _, err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("sweeper: run failed")
		}
		select {
		case <-ctx.Done():
			logger.Info().Msg("sweeper: stopped")
			return
		case <-ticker.C:
		}
	}
}
