// Package ocr runs tesseract over page images and aggregates the recognized
// text with a confidence estimate.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// DefaultConfidence is assumed when tesseract reports no usable per-word
// confidence for an image.
const DefaultConfidence = 0.5

// Config for the recognizer.
type Config struct {
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	Language      string // tesseract language profile, default "spa"
	CharWhitelist string // optional tessedit_char_whitelist value
}

// Result is the aggregated recognition output.
type Result struct {
	Text       string
	Confidence float64
	Warnings   []string
}

// Recognizer wraps the tesseract binary behind the Runner seam.
type Recognizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRecognizer(cfg Config, runner Runner, logger *slog.Logger) *Recognizer {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "spa"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{cfg: cfg, runner: runner, logger: logger}
}

// Recognize runs OCR per image and concatenates the recognized text with
// blank-line separators. The confidence is the mean of per-image
// confidences. No images is not an error: it returns an empty result.
func (r *Recognizer) Recognize(ctx context.Context, images [][]byte) (Result, error) {
	if len(images) == 0 {
		return Result{}, nil
	}

	var b strings.Builder
	var confSum float64
	var confN int
	var warns []string

	for i, img := range images {
		path, cleanup, err := r.writeTemp(img)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		txt, conf, w, err := r.recognizeOne(ctx, path)
		cleanup()
		warns = append(warns, w...)
		if err != nil {
			// One bad page contributes nothing; keep going.
			r.logger.Warn("ocr.page_failed", "page", i+1, "error", err)
			warns = append(warns, err.Error())
			continue
		}
		if b.Len() > 0 && txt != "" {
			b.WriteString("\n\n")
		}
		b.WriteString(txt)
		confSum += conf
		confN++
	}

	res := Result{Text: Normalize(b.String()), Warnings: warns}
	if confN > 0 {
		res.Confidence = confSum / float64(confN)
	}
	r.logger.Debug("ocr.recognized", "pages", len(images), "bytes", len(res.Text), "confidence", res.Confidence)
	return res, nil
}

// RecognizeFile runs OCR over a raster image already on disk.
func (r *Recognizer) RecognizeFile(ctx context.Context, path string) (Result, error) {
	txt, conf, warns, err := r.recognizeOne(ctx, path)
	if err != nil {
		return Result{Warnings: warns}, err
	}
	return Result{Text: Normalize(txt), Confidence: conf, Warnings: warns}, nil
}

func (r *Recognizer) writeTemp(img []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "sub002-ocr-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("create ocr temp: %w", err)
	}
	name := f.Name()
	cleanup := func() { _ = os.Remove(name) }
	if _, err := f.Write(img); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write ocr temp: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close ocr temp: %w", err)
	}
	return name, cleanup, nil
}

func (r *Recognizer) recognizeOne(ctx context.Context, path string) (string, float64, []string, error) {
	args := r.baseArgs(path)
	// tesseract <file> stdout -l <lang>
	out, errb, err := r.runner.Run(ctx, r.cfg.Tesseract, args...)
	if err != nil {
		return "", 0, []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	txt := reBoxNoise.ReplaceAllString(string(out), "")

	conf, warns := r.tsvConfidence(ctx, path)
	return txt, conf, warns, nil
}

func (r *Recognizer) baseArgs(path string) []string {
	args := []string{path, "stdout", "-l", r.cfg.Language}
	if r.cfg.CharWhitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+r.cfg.CharWhitelist)
	}
	return args
}

// tsvConfidence reruns tesseract in TSV mode and returns the mean word
// confidence in 0..1, or DefaultConfidence when none is available.
func (r *Recognizer) tsvConfidence(ctx context.Context, path string) (float64, []string) {
	args := append(r.baseArgs(path), "tsv")
	out, errb, err := r.runner.Run(ctx, r.cfg.Tesseract, args...)
	if err != nil {
		return DefaultConfidence, []string{string(errb)}
	}

	lines := strings.Split(string(out), "\n")
	var sum float64
	var n int
	for i, ln := range lines {
		if i == 0 || ln == "" {
			continue // header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, perr := strconv.ParseFloat(confStr, 64); perr == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return DefaultConfidence, nil
	}
	return sum / float64(n) / 100.0, nil
}
