package raster

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/common"
)

type noopRunner struct{}

func (noopRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return nil, nil, errors.New("should not be reached")
}

func TestRenderRejectsInvalidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("esto no es un PDF"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRasterizer(Config{}, noopRunner{}, nil)
	_, err := r.Render(context.Background(), path)
	if !errors.Is(err, common.ErrDocumentParse) {
		t.Fatalf("err = %v, want a document parse error", err)
	}
}

func TestRenderMissingFile(t *testing.T) {
	r := NewRasterizer(Config{}, noopRunner{}, nil)
	_, err := r.Render(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	if !errors.Is(err, common.ErrDocumentParse) {
		t.Fatalf("err = %v, want a document parse error", err)
	}
}

func TestNewRasterizerDefaults(t *testing.T) {
	r := NewRasterizer(Config{}, noopRunner{}, nil)
	if r.cfg.Pdftoppm != "pdftoppm" {
		t.Errorf("Pdftoppm = %q", r.cfg.Pdftoppm)
	}
	if r.cfg.MaxPages != DefaultMaxPages {
		t.Errorf("MaxPages = %d", r.cfg.MaxPages)
	}
	if r.cfg.Scale != DefaultScale {
		t.Errorf("Scale = %v", r.cfg.Scale)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc...(truncated)" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("ab", 3); got != "ab" {
		t.Errorf("truncate = %q", got)
	}
}
