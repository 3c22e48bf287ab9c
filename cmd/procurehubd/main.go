package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/procurehub/backend/internal/common"
	"github.com/procurehub/backend/internal/doctext"
	"github.com/procurehub/backend/internal/export"
	"github.com/procurehub/backend/internal/llm"
	"github.com/procurehub/backend/internal/llm/openai"
	"github.com/procurehub/backend/internal/repository"
	"github.com/procurehub/backend/internal/server"
	"github.com/procurehub/backend/internal/services/offers"
	"github.com/procurehub/backend/internal/services/requests"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, 5*time.Second, logger); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	requestRepo := repository.NewRequestRepository(pool, logger)
	groupRepo := repository.NewCommodityGroupRepository(pool, logger)
	historyRepo := repository.NewStatusHistoryRepository(pool, logger)

	openaiClient := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		VisionModel: cfg.LLM.VisionModel,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	docExtractor := doctext.NewExtractor(doctext.Config{
		Pdftotext: cfg.Tools.Pdftotext,
		Pdftoppm:  cfg.Tools.Pdftoppm,
		Tesseract: cfg.Tools.Tesseract,
		DPI:       cfg.Tools.DPI,
		MaxPages:  cfg.Tools.MaxPages,
	}, logger)

	engine := llm.NewEngine(openaiClient, llm.EngineConfig{
		MaxInputChars: cfg.LLM.MaxInputLen,
		Temperature:   cfg.LLM.Temperature,
	}, logger).WithVisionFallback(openaiClient, docExtractor)

	classifier := llm.NewClassifier(openaiClient, cfg.LLM.Temperature, logger)

	requestService := requests.NewService(requestRepo, groupRepo, historyRepo, classifier, cfg.LLM.Timeout, logger)
	offerService := offers.NewService(docExtractor, engine, 2*cfg.LLM.Timeout, logger)
	exportService := export.NewService(requestRepo, groupRepo, logger)

	srv := server.New(server.Config{
		Addr:           cfg.Server.HTTPAddr,
		UploadDir:      cfg.Upload.Dir,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	}, server.Deps{
		Requests: requestService,
		Offers:   offerService,
		Export:   exportService,
	}, logger)

	if err := srv.Run(ctx); err != nil {
		logger.Error("http server error", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
