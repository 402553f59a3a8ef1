package pipeline

import (
	"regexp"
	"strings"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/invoice"
)

// Transition guards for the orchestrator state machine. All pure functions
// over the text in hand.

const (
	// minUsefulLines / minUsefulLineLen: auto resolves to text when the
	// embedded layer has real content.
	minUsefulLines   = 5
	minUsefulLineLen = 6

	// weakTextLen: under this, the layer is considered too thin to trust.
	weakTextLen = 400

	// minVisionTextLen: below this the vision result's own text signal is
	// considered too short and OCR enrichment kicks in.
	minVisionTextLen = 120
)

var reHeaderLine = regexp.MustCompile(`(?i)^\s*(FACTURA|NOTA\s+DE\s+(CR[EÉ]DITO|D[EÉ]BITO)|RECIBO|TICKET)\b`)

// resolveMethod computes the effective method: an explicit choice is
// honored; auto picks text when the extracted layer has more than
// minUsefulLines lines of non-trivial length, vision otherwise.
func resolveMethod(explicit invoice.Method, text string) invoice.Method {
	if explicit != invoice.MethodAuto && explicit != "" {
		return explicit
	}
	useful := 0
	for _, ln := range strings.Split(text, "\n") {
		if len(strings.TrimSpace(ln)) > minUsefulLineLen {
			useful++
		}
	}
	if useful > minUsefulLines {
		return invoice.MethodText
	}
	return invoice.MethodVision
}

// isWeakText reports whether the extracted layer should trigger OCR anyway:
// empty, too short, or missing the obvious invoice markers.
func isWeakText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || len(trimmed) < weakTextLen {
		return true
	}
	upper := strings.ToUpper(trimmed)
	return !strings.Contains(upper, "FACTURA") && !strings.Contains(upper, "TOTAL")
}

// preferOCRText decides whether recognized text replaces the existing text:
// when there is nothing yet, when OCR saw more, or when the existing text
// lacks a CAE marker (the authenticity code a complete capture would have).
func preferOCRText(existing, ocrText string) bool {
	if strings.TrimSpace(ocrText) == "" {
		return false
	}
	trimmed := strings.TrimSpace(existing)
	if trimmed == "" {
		return true
	}
	if len(ocrText) > len(existing) {
		return true
	}
	return !strings.Contains(strings.ToUpper(existing), "CAE")
}

// looksIncomplete flags a PDF text layer that does not open with an
// invoice-type header line — the usual shape of a thin layer (often starting
// mid-totals) sitting in front of scanned content. Known to fire on some
// clean documents too, which is why the supplement pass is a config switch.
func looksIncomplete(text string) bool {
	for _, ln := range strings.Split(text, "\n") {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		return !reHeaderLine.MatchString(ln)
	}
	return true
}

// visionTextTooShort reports whether the text echoed by the vision extractor
// is too short to serve as the retained raw text.
func visionTextTooShort(text string) bool {
	if strings.HasPrefix(text, "Documento analizado visualmente") {
		return true
	}
	return len(strings.TrimSpace(text)) < minVisionTextLen
}
