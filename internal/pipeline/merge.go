package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/invoice"
)

// Defaults are the merge fallbacks for one extraction call: the finalized
// raw text, the method label, and the confidence floor for that method plus
// any OCR confidence observed along the way.
type Defaults struct {
	Text            string
	Metodo          invoice.Method
	FloorConfidence float64
	OCRConfidence   float64
}

// Merge reconciles the rule-based and inference-based partials into the
// final invoice. Inference wins over rules, which win over defaults, field
// by field — except where rules are the more trustworthy source:
//
//  1. total: a larger rule-based total wins (inference routinely under-reads
//     grand totals on noisy scans);
//  2. subtotal: backfilled from rules when merged value is zero;
//  3. tax lines: the inference list is kept when non-empty, otherwise the
//     rule-based list and its sum are adopted; total_impuestos is backfilled
//     from rules when zero;
//  4. line items: rule-based list adopted only when the merged list is empty.
//
// Confidence is the max of the method floor, the rule confidence, the
// inference confidence and the OCR confidence.
func Merge(ruleRes, infRes invoice.ExtractedInvoice, d Defaults) invoice.ExtractedInvoice {
	out := invoice.ExtractedInvoice{
		Numero:            firstNonEmpty(infRes.Numero, ruleRes.Numero),
		PuntoVenta:        firstNonEmpty(infRes.PuntoVenta, ruleRes.PuntoVenta),
		TipoComprobante:   firstNonEmpty(infRes.TipoComprobante, ruleRes.TipoComprobante),
		FechaEmision:      firstNonEmpty(infRes.FechaEmision, ruleRes.FechaEmision),
		FechaVencimiento:  firstNonEmpty(infRes.FechaVencimiento, ruleRes.FechaVencimiento),
		EmisorNombre:      firstNonEmpty(infRes.EmisorNombre, ruleRes.EmisorNombre),
		EmisorCUIT:        firstNonEmpty(infRes.EmisorCUIT, ruleRes.EmisorCUIT),
		EmisorDomicilio:   firstNonEmpty(infRes.EmisorDomicilio, ruleRes.EmisorDomicilio),
		ReceptorNombre:    firstNonEmpty(infRes.ReceptorNombre, ruleRes.ReceptorNombre),
		ReceptorCUIT:      firstNonEmpty(infRes.ReceptorCUIT, ruleRes.ReceptorCUIT),
		ReceptorDomicilio: firstNonEmpty(infRes.ReceptorDomicilio, ruleRes.ReceptorDomicilio),
	}

	out.Total = infRes.Total
	if ruleRes.Total > 0 && ruleRes.Total > out.Total {
		out.Total = ruleRes.Total
	}
	out.Subtotal = infRes.Subtotal
	if out.Subtotal == 0 {
		out.Subtotal = ruleRes.Subtotal
	}

	// Lists are copied: normalization below must not mutate the inputs.
	switch {
	case len(infRes.Impuestos) > 0:
		out.Impuestos = append([]invoice.TaxLine(nil), infRes.Impuestos...)
		out.TotalImpuestos = infRes.TotalImpuestos
		if out.TotalImpuestos == 0 {
			out.TotalImpuestos = ruleRes.TotalImpuestos
		}
	case len(ruleRes.Impuestos) > 0:
		out.Impuestos = append([]invoice.TaxLine(nil), ruleRes.Impuestos...)
		out.TotalImpuestos = ruleRes.TotalImpuestos
	default:
		out.Impuestos = []invoice.TaxLine{}
		out.TotalImpuestos = firstPositive(infRes.TotalImpuestos, ruleRes.TotalImpuestos)
	}

	if len(infRes.Detalles) > 0 {
		out.Detalles = append([]invoice.LineItem(nil), infRes.Detalles...)
	} else {
		out.Detalles = append([]invoice.LineItem(nil), ruleRes.Detalles...)
	}

	out.Confianza = maxConfidence(
		d.FloorConfidence, ruleRes.Confianza, infRes.Confianza, d.OCRConfidence)
	out.Metodo = d.Metodo
	out.TextoExtraido = reorderHeaderBlock(d.Text)

	normalizeTaxLabels(out.Impuestos)
	cleanItemDescriptions(out.Detalles)

	out.Sanitize()
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func maxConfidence(values ...float64) float64 {
	out := 0.0
	for _, v := range values {
		if v > out {
			out = v
		}
	}
	if out > 1 {
		out = 1
	}
	return out
}

// normalizeTaxLabels relabels generic "IVA" entries with their percentage
// for display consistency.
func normalizeTaxLabels(lines []invoice.TaxLine) {
	for i := range lines {
		tipo := strings.TrimSpace(lines[i].Tipo)
		if strings.EqualFold(tipo, "IVA") && lines[i].Porcentaje > 0 {
			lines[i].Tipo = "IVA " + strconv.FormatFloat(lines[i].Porcentaje, 'f', -1, 64) + "%"
		}
	}
}

var (
	reBracketCode = regexp.MustCompile(`\s*\[([^\[\]]+)\]\s*`)
	reSpaces      = regexp.MustCompile(`\s{2,}`)
)

// cleanItemDescriptions pulls bracketed internal product codes out of the
// description and prefixes them, deduplicating a leading repeated token:
// "Tornillo [A42] galvanizado" -> "A42 Tornillo galvanizado".
func cleanItemDescriptions(items []invoice.LineItem) {
	for i := range items {
		items[i].Descripcion = cleanDescription(items[i].Descripcion)
	}
}

func cleanDescription(s string) string {
	m := reBracketCode.FindStringSubmatch(s)
	if m == nil {
		return strings.TrimSpace(s)
	}
	code := strings.TrimSpace(m[1])
	rest := strings.TrimSpace(reBracketCode.ReplaceAllString(s, " "))
	rest = reSpaces.ReplaceAllString(rest, " ")
	if code == "" || rest == code || strings.HasPrefix(rest, code+" ") {
		return rest
	}
	return strings.TrimSpace(code + " " + rest)
}

// reorderHeaderBlock moves the invoice-type header block (and the contiguous
// non-blank lines around it) to the front when unrelated boilerplate
// precedes it. Presentation normalization only.
func reorderHeaderBlock(text string) string {
	lines := strings.Split(text, "\n")
	idx := -1
	for i, ln := range lines {
		if reHeaderLine.MatchString(ln) {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return text
	}

	start := idx
	for start > 0 && strings.TrimSpace(lines[start-1]) != "" {
		start--
	}
	if start == 0 {
		return text
	}
	end := idx
	for end+1 < len(lines) && strings.TrimSpace(lines[end+1]) != "" {
		end++
	}

	out := make([]string, 0, len(lines))
	out = append(out, lines[start:end+1]...)
	out = append(out, lines[:start]...)
	out = append(out, lines[end+1:]...)
	return strings.Join(out, "\n")
}
