package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/common"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/document"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/invoice"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/llm/openai"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/ocr"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/pdftext"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/pipeline"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/raster"
)

const defaultSample = "testdata/factura-sample.pdf"

// diagnose runs the pipeline once over a sample document and prints the
// raw result to stdout. Meant for checking a local tesseract/pdftoppm
// install and credentials before wiring the extractor anywhere.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	source := defaultSample
	if len(os.Args) > 2 {
		logger.Error("usage", "cmd", "diagnose [source]")
		os.Exit(2)
	}
	if len(os.Args) == 2 {
		source = os.Args[1]
	}

	_ = godotenv.Load()
	cfg := common.LoadConfig()

	runner := ocr.NewExecRunner()
	orch := pipeline.NewOrchestrator(
		document.NewMaterializer(document.Config{
			Timeout: cfg.HTTP.Timeout,
			TempDir: cfg.HTTP.TempDir,
		}, logger),
		pdftext.NewExtractor(logger),
		raster.NewRasterizer(raster.Config{
			Pdftoppm: cfg.Raster.Pdftoppm,
			MaxPages: cfg.Raster.MaxPages,
			Scale:    cfg.Raster.Scale,
		}, runner, logger),
		ocr.NewRecognizer(ocr.Config{
			Tesseract:     cfg.OCR.Tesseract,
			Language:      cfg.OCR.Language,
			CharWhitelist: cfg.OCR.CharWhitelist,
		}, runner, logger),
		openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger),
		cfg.Pipeline,
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	inv, err := orch.Extract(ctx, source, pipeline.Options{
		Strategy: invoice.StrategyTextFirst,
		Method:   invoice.MethodAuto,
	})
	if err != nil {
		logger.Error("diagnose.failed", "source", source, "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(data))

	logger.Info("diagnose.ok",
		"source", source,
		"metodo", string(inv.Metodo),
		"confianza", inv.Confianza,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
