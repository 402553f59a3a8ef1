// Package pipeline coordinates the extraction chain: source materialization,
// text acquisition (embedded layer, OCR), rule-based and inference-based
// extraction, and the final merge.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/common"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/document"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/invoice"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/llm"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/ocr"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/rules"
)

// Confidence floors per contributing technique. The merger takes the max of
// the floor, the rule confidence and any observed OCR confidence.
const (
	floorTextLLM   = 0.85
	floorVisionLLM = 0.90
)

// Orchestrator states. Transitions are decided by the guard functions below
// so the fallback order can be tested without running any extractor.
type state string

const (
	stateResolveMethod state = "resolve-method"
	stateVisionPath    state = "vision-path"
	stateClassicalPath state = "classical-path"
	stateMerge         state = "merge"
	stateCleanup       state = "cleanup"
)

// Sourcer materializes a source reference into a local temp file.
type Sourcer interface {
	Materialize(ctx context.Context, source string) (document.Materialized, error)
}

// TextLayerExtractor reads the embedded text layer of a PDF.
type TextLayerExtractor interface {
	ExtractText(path string) (string, error)
}

// PageRasterizer renders PDF pages as image buffers.
type PageRasterizer interface {
	Render(ctx context.Context, path string) ([][]byte, error)
}

// Recognizer runs optical recognition over images.
type Recognizer interface {
	Recognize(ctx context.Context, images [][]byte) (ocr.Result, error)
	RecognizeFile(ctx context.Context, path string) (ocr.Result, error)
}

// Options selects strategy and method for one extraction call.
type Options struct {
	Strategy invoice.Strategy
	Method   invoice.Method
}

// Orchestrator is stateless across calls; every Extract call builds a fresh
// intermediate and owns exactly one temp file, released on every exit path.
type Orchestrator struct {
	sources    Sourcer
	textLayer  TextLayerExtractor
	rasterizer PageRasterizer
	recognizer Recognizer
	inference  llm.InferenceClient
	cfg        common.PipelineConfig
	logger     *slog.Logger
}

func NewOrchestrator(
	sources Sourcer,
	textLayer TextLayerExtractor,
	rasterizer PageRasterizer,
	recognizer Recognizer,
	inference llm.InferenceClient,
	cfg common.PipelineConfig,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		sources:    sources,
		textLayer:  textLayer,
		rasterizer: rasterizer,
		recognizer: recognizer,
		inference:  inference,
		cfg:        cfg,
		logger:     logger,
	}
}

// Extract runs the full pipeline for one source document.
func (o *Orchestrator) Extract(ctx context.Context, source string, opts Options) (invoice.ExtractedInvoice, error) {
	rid := uuid.New().String()
	log := o.logger.With("req_id", rid, "source", source)
	log.Info("pipeline.extract.start", "strategy", int(opts.Strategy), "method", opts.Method)

	if opts.Strategy == 0 {
		opts.Strategy = invoice.StrategyTextFirst
	}
	if opts.Method == "" {
		opts.Method = invoice.MethodAuto
	}

	mat, err := o.sources.Materialize(ctx, source)
	if err != nil {
		return invoice.ExtractedInvoice{}, err
	}
	defer func() {
		log.Debug("pipeline.state", "state", stateCleanup)
		mat.Cleanup()
	}()

	if opts.Strategy == invoice.StrategyVisionFirst {
		// No credential means no vision path at all; this entry point has
		// nothing to degrade to.
		if !o.inference.Configured() {
			return invoice.ExtractedInvoice{}, common.NewConfigurationError(
				"vision-first strategy requires an inference credential")
		}
		log.Debug("pipeline.state", "state", stateVisionPath)
		inv, verr := o.visionPath(ctx, log, mat)
		if verr == nil {
			log.Info("pipeline.extract.ok", "method", inv.Metodo, "confidence", inv.Confianza)
			return inv, nil
		}
		log.Warn("pipeline.vision_first.fallback", "error", verr)
	}

	log.Debug("pipeline.state", "state", stateClassicalPath)
	inv, err := o.classicalPath(ctx, log, mat, opts.Method)
	if err != nil {
		return invoice.ExtractedInvoice{}, err
	}
	log.Info("pipeline.extract.ok", "method", inv.Metodo, "confidence", inv.Confianza)
	return inv, nil
}

// visionPath sends page images straight to the multimodal extractor. When the
// returned text signal is short, an opportunistic OCR pass enriches the
// retained raw text without touching structured fields.
func (o *Orchestrator) visionPath(ctx context.Context, log *slog.Logger, mat document.Materialized) (invoice.ExtractedInvoice, error) {
	images, err := o.pageImages(ctx, mat)
	if err != nil {
		return invoice.ExtractedInvoice{}, err
	}

	inv, err := o.inference.ExtractFromImages(ctx, images)
	if err != nil {
		return invoice.ExtractedInvoice{}, err
	}

	ocrConf := 0.0
	if visionTextTooShort(inv.TextoExtraido) {
		if res, oerr := o.recognizer.Recognize(ctx, images); oerr == nil && strings.TrimSpace(res.Text) != "" {
			inv.TextoExtraido = res.Text
			ocrConf = res.Confidence
		} else if oerr != nil {
			log.Warn("pipeline.vision.ocr_enrich_absorbed", "error", oerr)
		}
	}

	log.Debug("pipeline.state", "state", stateMerge)
	// Structured fields come from vision alone; the merger only finalizes.
	return Merge(invoice.ExtractedInvoice{}, inv, Defaults{
		Text:            inv.TextoExtraido,
		Metodo:          invoice.MethodVision,
		FloorConfidence: floorVisionLLM,
		OCRConfidence:   ocrConf,
	}), nil
}

// classicalPath is the text/OCR/rules/LLM chain.
func (o *Orchestrator) classicalPath(ctx context.Context, log *slog.Logger, mat document.Materialized, method invoice.Method) (invoice.ExtractedInvoice, error) {
	text := ""
	if mat.IsPDF() {
		layer, err := o.textLayer.ExtractText(mat.Path)
		if err != nil {
			return invoice.ExtractedInvoice{}, err
		}
		text = layer
	}

	log.Debug("pipeline.state", "state", stateResolveMethod)
	effective := resolveMethod(method, text)
	log.Debug("pipeline.method_resolved", "requested", method, "effective", effective, "text_len", len(text))

	ocrConf := 0.0
	if effective == invoice.MethodVision || isWeakText(text) {
		res, err := o.runOCR(ctx, mat)
		if err != nil {
			// OCR never kills the pipeline on its own; the weak text may
			// still carry enough for rules.
			log.Warn("pipeline.ocr.absorbed", "error", err)
		} else if preferOCRText(text, res.Text) {
			text = res.Text
			effective = invoice.MethodVision
			ocrConf = res.Confidence
			log.Debug("pipeline.ocr.adopted", "confidence", res.Confidence, "text_len", len(text))
		}
	}

	// Some scanned PDFs carry a thin, unreliable text layer before the
	// visual content; a supplementary pass recovers the rest.
	if mat.IsPDF() && o.cfg.SupplementOCR && ocrConf == 0 &&
		strings.TrimSpace(text) != "" && looksIncomplete(text) {
		if res, err := o.runOCR(ctx, mat); err != nil {
			log.Warn("pipeline.ocr.supplement_absorbed", "error", err)
		} else if strings.TrimSpace(res.Text) != "" {
			if preferOCRText(text, res.Text) {
				text = res.Text
			} else {
				text = text + "\n\n" + res.Text
			}
			ocrConf = res.Confidence
			log.Debug("pipeline.ocr.supplemented", "text_len", len(text))
		}
	}

	if strings.TrimSpace(text) == "" {
		return invoice.ExtractedInvoice{}, common.NewNoTextExtractedError(
			"no text recovered from any extraction avenue")
	}

	ruleRes := rules.Extract(text)

	var infRes invoice.ExtractedInvoice
	llmContributed := false
	if method != invoice.MethodRules {
		inv, err := o.inference.ExtractFromText(ctx, text)
		switch {
		case err != nil:
			// Documented fallback: the inference stage contributed nothing.
			log.Warn("pipeline.llm_text.absorbed", "error", err)
		case !inv.IsZero():
			infRes = inv
			llmContributed = true
		}
	}

	metodo := effective
	if method == invoice.MethodRules {
		metodo = invoice.MethodRules
	}
	floor := rules.BaselineConfidence
	if llmContributed {
		floor = floorTextLLM
		if metodo == invoice.MethodVision {
			floor = floorVisionLLM
		}
	}

	log.Debug("pipeline.state", "state", stateMerge)
	return Merge(ruleRes, infRes, Defaults{
		Text:            text,
		Metodo:          metodo,
		FloorConfidence: floor,
		OCRConfidence:   ocrConf,
	}), nil
}

func (o *Orchestrator) pageImages(ctx context.Context, mat document.Materialized) ([][]byte, error) {
	if mat.IsPDF() {
		return o.rasterizer.Render(ctx, mat.Path)
	}
	b, err := os.ReadFile(mat.Path)
	if err != nil {
		return nil, fmt.Errorf("read image source: %w", err)
	}
	return [][]byte{b}, nil
}

func (o *Orchestrator) runOCR(ctx context.Context, mat document.Materialized) (ocr.Result, error) {
	if mat.IsPDF() {
		images, err := o.rasterizer.Render(ctx, mat.Path)
		if err != nil {
			return ocr.Result{}, err
		}
		return o.recognizer.Recognize(ctx, images)
	}
	return o.recognizer.RecognizeFile(ctx, mat.Path)
}
