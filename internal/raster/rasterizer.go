// Package raster renders PDF pages to PNG images for visual analysis.
// Rendering goes through poppler's pdftoppm; the PDF container itself is
// validated first with pdfcpu so a corrupt file fails as a parse error
// instead of an opaque subprocess failure.
package raster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/common"
)

const (
	// DefaultMaxPages bounds rendering cost: invoices are overwhelmingly
	// single or few-page documents.
	DefaultMaxPages = 3
	// DefaultScale is the render scale factor over the 72dpi PDF baseline.
	DefaultScale = 2.0
	baseDPI      = 72
)

// Runner executes an external command. Satisfied by ocr.NewExecRunner.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// Config for the poppler-backed rasterizer.
type Config struct {
	Pdftoppm string  // binary name or absolute path; if empty -> "pdftoppm"
	MaxPages int     // default DefaultMaxPages
	Scale    float64 // default DefaultScale
}

// Rasterizer renders up to MaxPages pages of a PDF as PNG buffers,
// page order preserved. Works headless.
type Rasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRasterizer(cfg Config, runner Runner, logger *slog.Logger) *Rasterizer {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.Scale <= 0 {
		cfg.Scale = DefaultScale
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Rasterizer{cfg: cfg, runner: runner, logger: logger}
}

// Render validates the PDF, renders the first pages and returns their PNG
// bytes in page order.
func (r *Rasterizer) Render(ctx context.Context, path string) ([][]byte, error) {
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, common.NewDocumentParseError(path+" is not a valid PDF", err)
	}
	pages := pageCount
	if pages > r.cfg.MaxPages {
		pages = r.cfg.MaxPages
	}

	tmpDir, err := os.MkdirTemp("", "sub002-raster-*")
	if err != nil {
		return nil, fmt.Errorf("create raster dir: %w", err)
	}
	defer func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			r.logger.Warn("raster.cleanup_error", "dir", tmpDir, "error", rerr)
		}
	}()

	dpi := int(r.cfg.Scale * baseDPI)
	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png -f 1 -l <pages> <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm,
		"-r", fmt.Sprintf("%d", dpi),
		"-png",
		"-f", "1",
		"-l", fmt.Sprintf("%d", pages),
		path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (%s)", err, truncate(string(errb), 512))
	}

	// pdftoppm names pages prefix-1.png, prefix-2.png, ...
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, common.NewDocumentParseError("pdftoppm rendered no pages for "+path, nil)
	}
	if len(matches) > pages {
		matches = matches[:pages]
	}

	images := make([][]byte, 0, len(matches))
	for _, m := range matches {
		b, rerr := os.ReadFile(m)
		if rerr != nil {
			return nil, fmt.Errorf("read rendered page %s: %w", m, rerr)
		}
		images = append(images, b)
	}

	r.logger.Debug("raster.rendered", "path", path, "pages", len(images), "dpi", dpi)
	return images, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
