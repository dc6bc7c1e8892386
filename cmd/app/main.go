package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales-tracker-bot/internal/config"
	"sales-tracker-bot/internal/domain/ports/repository"
	"sales-tracker-bot/internal/infra/drive"
	"sales-tracker-bot/internal/infra/logging"
	"sales-tracker-bot/internal/infra/memstate"
	"sales-tracker-bot/internal/infra/metrics"
	red "sales-tracker-bot/internal/infra/redis"
	"sales-tracker-bot/internal/infra/sheets"
	tele "sales-tracker-bot/internal/infra/telegram"
	"sales-tracker-bot/internal/infra/web"
	"sales-tracker-bot/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "console logging and verbose output")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Google Sheets ----
	api, err := sheets.NewGoogleAPI(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID)
	if err != nil {
		logger.Fatal().Err(err).Msg("sheets client")
	}
	store := sheets.NewStore(api, logger, cfg.Sheets.RetryAttempts, cfg.Sheets.RetryBackoff)
	workerRepo := sheets.NewWorkerRepo(store)
	clientRepo := sheets.NewClientRepo(store)
	withdrawalRepo := sheets.NewWithdrawalRepo(store)

	// ---- Google Drive (receipts) ----
	receipts, err := drive.NewReceiptStore(ctx, cfg.Sheets.CredentialsFile, cfg.Drive.Folder, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("drive client")
	}

	// ---- Conversation state ----
	var sessions repository.SessionRepository
	switch cfg.State.Backend {
	case "redis":
		client, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer client.Close()
		sessions = red.NewSessionRepo(client, cfg.State.TTL)
		logger.Info().Str("backend", "redis").Msg("session state")
	default:
		sessions = memstate.NewSessionRepo()
		logger.Info().Str("backend", "memory").Msg("session state")
	}

	// ---- Telegram ----
	bot, err := tele.NewBot(&cfg.Bot, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram")
	}

	// ---- Use cases ----
	registrationUC := usecase.NewRegistrationUseCase(workerRepo, bot, cfg.Bot.AdminIDs, logger)
	intakeUC := usecase.NewIntakeUseCase(sessions, workerRepo, clientRepo, receipts, bot, cfg.Bot.AdminIDs, logger)
	withdrawalUC := usecase.NewWithdrawalUseCase(sessions, workerRepo, withdrawalRepo, bot, cfg.Bot.AdminIDs, logger)
	adminUC := usecase.NewAdminUseCase(workerRepo, withdrawalRepo, cfg.Bot.AdminIDs, logger)

	bot.Wire(sessions, registrationUC, intakeUC, withdrawalUC, adminUC)

	go func() {
		if err := bot.StartPolling(ctx); err != nil {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Ops endpoints ----
	ops := web.NewServer(cfg.Ops.Port, logger)
	go func() {
		if err := ops.Start(); err != nil {
			logger.Error().Err(err).Msg("ops server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	cancel()
	bot.StopPolling()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ops shutdown")
	}
}
