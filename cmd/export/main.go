package main

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/export"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/invoice"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 3 {
		logger.Error("usage", "cmd", "export <result.json> <out.xlsx>")
		os.Exit(2)
	}
	inPath, outPath := os.Args[1], os.Args[2]

	data, err := os.ReadFile(inPath)
	if err != nil {
		logger.Error("read result", "path", inPath, "error", err)
		os.Exit(1)
	}

	var inv invoice.ExtractedInvoice
	if err := json.Unmarshal(data, &inv); err != nil {
		logger.Error("decode result", "path", inPath, "error", err)
		os.Exit(1)
	}
	inv.Sanitize()

	buf, err := export.NewRenderer(logger).RenderInvoiceXLSX(inv)
	if err != nil {
		logger.Error("render xlsx", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, buf, 0o644); err != nil {
		logger.Error("write xlsx", "path", outPath, "error", err)
		os.Exit(1)
	}

	logger.Info("export.ok", "input", inPath, "output", outPath)
}
