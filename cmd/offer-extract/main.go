package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/procurehub/backend/internal/common"
	"github.com/procurehub/backend/internal/doctext"
	"github.com/procurehub/backend/internal/llm"
	"github.com/procurehub/backend/internal/llm/openai"
	"github.com/procurehub/backend/internal/services/offers"
)

// One-shot extraction over a local PDF, result as JSON on stdout. Useful for
// prompt tuning and debugging without the full server.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: offer-extract <offer.pdf>")
		os.Exit(2)
	}
	path := os.Args[1]
	if _, err := os.Stat(path); err != nil {
		logger.Error("cannot read input file", "path", path, "error", err)
		os.Exit(2)
	}
	if os.Getenv("OPENAI_API_KEY") == "" {
		logger.Error("OPENAI_API_KEY env var is required")
		os.Exit(2)
	}

	cfg := common.LoadConfig()

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

	svc := offers.NewService(docExtractor, engine, 2*cfg.LLM.Timeout, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	result, err := svc.ExtractFromPDF(ctx, path)
	if err != nil {
		logger.Error("extraction failed", "path", path, "error", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
