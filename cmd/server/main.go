// Package main is the entry point for the Meridian scoring and
// strategy engine. It wires the configuration, ledger database, the
// evaluation pipeline and the strategy engine together, then serves
// the HTTP API until interrupted.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridianlabs/meridian/internal/backup"
	"github.com/meridianlabs/meridian/internal/clients/feed"
	"github.com/meridianlabs/meridian/internal/config"
	"github.com/meridianlabs/meridian/internal/database"
	"github.com/meridianlabs/meridian/internal/evaluation"
	"github.com/meridianlabs/meridian/internal/events"
	"github.com/meridianlabs/meridian/internal/modules/features"
	"github.com/meridianlabs/meridian/internal/modules/ledger"
	"github.com/meridianlabs/meridian/internal/modules/prediction"
	"github.com/meridianlabs/meridian/internal/modules/risk"
	"github.com/meridianlabs/meridian/internal/modules/scoring"
	"github.com/meridianlabs/meridian/internal/modules/strategy"
	"github.com/meridianlabs/meridian/internal/modules/watchlist"
	"github.com/meridianlabs/meridian/internal/scheduler"
	"github.com/meridianlabs/meridian/internal/server"
	"github.com/meridianlabs/meridian/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	log.Info().Str("profile", cfg.ProfileName).Msg("Starting Meridian")

	engineCfg, err := config.LoadEngineConfig(cfg.EngineFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load engine configuration")
	}

	// Ledger database. Maximum durability; every closed trade lands
	// here before the position slot is reused.
	ledgerDB, err := database.New(database.Config{
		Path:    cfg.LedgerPath(),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	ledgerRepo, err := ledger.NewRepository(ledgerDB.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger repository")
	}

	bus := events.NewBus(log)
	eventManager := events.NewManager(bus, log)

	profile, err := strategy.ProfileByName(cfg.ProfileName)
	if err != nil {
		log.Fatal().Err(err).Msg("Unknown strategy profile")
	}
	account, err := strategy.NewAccount(cfg.InitialCash)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create account")
	}
	engine, err := strategy.NewEngine(profile, account, ledgerRepo, eventManager, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create strategy engine")
	}

	builder, err := features.NewBuilder(engineCfg.Features, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create feature builder")
	}
	scorer, err := scoring.NewScorer(engineCfg.Scoring, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scorer")
	}
	assessor, err := risk.NewAssessor(engineCfg.Risk, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create risk assessor")
	}

	// The model is optional. Scoring degrades to indicator-only when
	// no artifact is configured or it fails to load.
	var model *prediction.Model
	if cfg.ModelPath != "" {
		artifact, err := prediction.LoadArtifact(cfg.ModelPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.ModelPath).Msg("Model artifact unavailable, scoring degraded")
		} else if model, err = prediction.NewModel(artifact, log); err != nil {
			log.Warn().Err(err).Msg("Model rejected, scoring degraded")
			model = nil
		} else {
			log.Info().Str("version", artifact.ModelVersion).Msg("Model loaded")
		}
	}

	wl := watchlist.New(eventManager, log)
	for _, symbol := range cfg.Watchlist {
		if err := wl.Add(symbol, nil); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("Skipping watchlist symbol")
		}
	}

	service := evaluation.NewService(builder, model, scorer, assessor, engine, wl, eventManager, log)

	// Price feed. Without a feed URL the engine still serves scores
	// over seeded histories, it just never sees live bars.
	var feedClient *feed.Client
	if cfg.FeedURL != "" {
		feedClient = feed.NewClient(cfg.FeedURL, cfg.Watchlist, feed.Handlers{
			OnBar:  service.HandleBar,
			OnTick: service.HandleTick,
		}, log)
		if err := feedClient.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start price feed")
		}
		log.Info().Str("url", cfg.FeedURL).Msg("Price feed connected")
	}

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.EvalSchedule, scheduler.NewEvaluationJob(service, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register evaluation job")
	}
	if err := sched.AddJob("@hourly", scheduler.NewCheckpointJob(ledgerDB, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register checkpoint job")
	}

	if cfg.BackupEnabled {
		s3Client, err := backup.NewS3Client(context.Background(), backup.S3Config{
			Bucket:    cfg.BackupBucket,
			Region:    cfg.BackupRegion,
			Endpoint:  cfg.BackupEndpoint,
			AccessKey: cfg.BackupKey,
			SecretKey: cfg.BackupSecret,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup client")
		}
		backupSvc := backup.NewService(s3Client, ledgerDB, cfg.LedgerPath(), log)
		if err := sched.AddJob(cfg.BackupSchedule, backupSvc); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}

	sched.Start()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		LedgerDB:  ledgerDB,
		Ledger:    ledgerRepo,
		Service:   service,
		Engine:    engine,
		Account:   account,
		Watchlist: wl,
		EventBus:  bus,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	sched.Stop()
	if feedClient != nil {
		if err := feedClient.Stop(); err != nil {
			log.Error().Err(err).Msg("Error stopping price feed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server stopped")
}
