package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/escrow"
	"server/internal/infra"
	"server/internal/signer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "escrow-settler")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("settler: db connection failed")
	}
	defer pool.Close()

	signerClient, err := signer.NewClient(signer.Options{
		BaseURL:    cfg.SignerBaseURL,
		APIKey:     cfg.SignerAPIKey,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("settler: signer client configuration failed")
	}

	settler := escrow.NewSettler(
		repo.NewCampaignRepository(pool),
		repo.NewMilestoneRepository(pool),
		signerClient,
		logger,
		cfg.SettlePollInterval,
	)

	if err := settler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("settler: stopped with error")
	}
	logger.Info().Msg("settler: stopped")
}
