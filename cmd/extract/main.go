package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/common"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/document"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/export"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/invoice"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/llm/openai"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/ocr"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/pdftext"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/pipeline"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/raster"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: extract [-xlsx file.xlsx] <source> <output.json> [strategy(1|2)] [method(auto|text|vision|rules)]")
	os.Exit(2)
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	xlsxPath := flag.String("xlsx", "", "also write an XLSX rendition to this path")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 || len(args) > 4 {
		usage()
	}
	source, outPath := args[0], args[1]

	opts := pipeline.Options{Strategy: invoice.StrategyTextFirst, Method: invoice.MethodAuto}
	if len(args) >= 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil || (n != int(invoice.StrategyVisionFirst) && n != int(invoice.StrategyTextFirst)) {
			logger.Error("invalid strategy, expected 1 or 2", "arg", args[2])
			os.Exit(2)
		}
		opts.Strategy = invoice.Strategy(n)
	}
	if len(args) == 4 {
		m, err := invoice.ParseMethod(args[3])
		if err != nil {
			logger.Error("invalid method", "arg", args[3], "error", err)
			os.Exit(2)
		}
		opts.Method = m
	}

	_ = godotenv.Load()
	cfg := common.LoadConfig()

	orch := buildOrchestrator(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	inv, err := orch.Extract(ctx, source, opts)
	if err != nil {
		logger.Error("extract.failed", "source", source, "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
		logger.Error("write result", "path", outPath, "error", err)
		os.Exit(1)
	}

	if *xlsxPath != "" {
		buf, err := export.NewRenderer(logger).RenderInvoiceXLSX(inv)
		if err != nil {
			logger.Error("render xlsx", "path", *xlsxPath, "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxPath, buf, 0o644); err != nil {
			logger.Error("write xlsx", "path", *xlsxPath, "error", err)
			os.Exit(1)
		}
	}

	logger.Info("extract.ok",
		"source", source,
		"output", outPath,
		"metodo", string(inv.Metodo),
		"confianza", inv.Confianza,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func buildOrchestrator(cfg *common.Config, logger *slog.Logger) *pipeline.Orchestrator {
	runner := ocr.NewExecRunner()
	return pipeline.NewOrchestrator(
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
}
