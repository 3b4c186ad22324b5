package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/dimasfr/gudangbot/internal/config"
	"github.com/dimasfr/gudangbot/internal/domain/schema"
	driverepo "github.com/dimasfr/gudangbot/internal/repository/drive"
	"github.com/dimasfr/gudangbot/internal/repository/mongodb"
	"github.com/dimasfr/gudangbot/internal/repository/sheets"
	"github.com/dimasfr/gudangbot/internal/scheduler"
	"github.com/dimasfr/gudangbot/internal/server/handlers"
	"github.com/dimasfr/gudangbot/internal/server/router"
	auditsvc "github.com/dimasfr/gudangbot/internal/service/audit"
	ledgersvc "github.com/dimasfr/gudangbot/internal/service/ledger"
	recapsvc "github.com/dimasfr/gudangbot/internal/service/recap"
	"github.com/dimasfr/gudangbot/internal/service/wizard"
	"github.com/dimasfr/gudangbot/pkg/clients/telegram"
	"github.com/dimasfr/gudangbot/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	registry, err := schema.Builtin()
	if err != nil {
		baseLogger.Fatal("invalid item type schemas", zap.Error(err))
	}

	sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
	if err != nil {
		baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
	}

	driveRepo, err := driverepo.NewRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.drive"))
	if err != nil {
		baseLogger.Fatal("failed to init drive repository", zap.Error(err))
	}

	var archive auditsvc.Archive
	if cfg.MongoDB.URI != "" {
		mongoRepo, err := mongodb.NewMongoDBArchive(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb archive", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		archive = mongoRepo
		baseLogger.Info("mongodb audit archive enabled")
	} else {
		baseLogger.Warn("mongodb uri missing, audit archiving disabled")
	}

	ledgerService := ledgersvc.NewService(sheetsRepo, baseLogger.Named("svc.ledger"))
	recorder := auditsvc.NewRecorder(sheetsRepo, archive, baseLogger.Named("svc.audit"))
	recapService := recapsvc.NewService(ledgerService, registry, baseLogger.Named("svc.recap"))

	botClient := telegram.NewClient(cfg.Telegram)
	engine := wizard.NewEngine(registry, ledgerService, driveRepo, botClient, recorder, recapService, cfg.Drive, baseLogger.Named("svc.wizard"))

	webhookHandler := handlers.NewWebhookHandler(engine, botClient, cfg.Telegram.WebhookSecret, baseLogger.Named("handlers.telegram"))
	ginEngine := router.New(webhookHandler, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Recap, recapService, botClient, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      ginEngine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
