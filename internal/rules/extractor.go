// Package rules recovers invoice fields from raw text with locale-specific
// pattern matching. It needs no network, never fails, and always returns a
// partial result tagged with a fixed heuristic confidence.
package rules

import (
	"regexp"
	"strings"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/invoice"
)

// BaselineConfidence signals "heuristic, unverified".
const BaselineConfidence = 0.35

// Ordered candidates for punto de venta + comprobante number; first match wins.
var reComprobante = []*regexp.Regexp{
	regexp.MustCompile(`(?i)punto\s*de\s*venta\s*:?\s*(\d{1,5})\s*(?:comp(?:\.|robante)?\s*)?(?:n(?:ro|[°ºo])?\.?\s*:?\s*)?(\d{1,8})\b`),
	regexp.MustCompile(`(?i)(?:factura|nota\s+de\s+(?:cr[eé]dito|d[eé]bito)|comprobante|comp\.)\s*(?:electr[oó]nica\s*)?(?:[ABCEM]\b\s*)?(?:n(?:ro|[°ºo])?\.?\s*:?\s*)?(\d{1,5})\s*-\s*(\d{1,8})\b`),
	regexp.MustCompile(`\b(\d{4,5})\s*-\s*(\d{6,8})\b`),
}

// Tax id: two digits, hyphen, eight digits, hyphen, one digit; hyphens optional.
var reCUIT = regexp.MustCompile(`\b(\d{2})-?(\d{8})-?(\d)\b`)

// Ordered label-anchored amount candidates; first match wins.
var reTotal = []*regexp.Regexp{
	regexp.MustCompile(`(?i)importe\s+total\s*:?\s*\$?\s*([\d.,]+)`),
	regexp.MustCompile(`(?i)\btotal\b\s*:?\s*\$?\s*([\d.,]+)`),
	regexp.MustCompile(`\$\s*([\d.,]+)`),
	regexp.MustCompile(`([\d.,]+)\s*$`),
}

var reSubtotal = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsubtotal\b\s*:?\s*\$?\s*([\d.,]+)`),
	regexp.MustCompile(`(?i)importe\s+neto\s+gravado\s*:?\s*\$?\s*([\d.,]+)`),
	regexp.MustCompile(`(?i)\bneto\s+gravado\b\s*:?\s*\$?\s*([\d.,]+)`),
	regexp.MustCompile(`(?i)importe\s+neto\s*:?\s*\$?\s*([\d.,]+)`),
}

var (
	reIVALine     = regexp.MustCompile(`(?i)\bIVA\s*:?\s*\(?(\d{1,2}(?:[.,]5)?)\s*%\)?\s*:?\s*\$?\s*([\d.,]+)`)
	reOtherLevies = regexp.MustCompile(`(?i)(?:percepci[oó]n(?:es)?(?:\s+(?:iibb|ingresos\s+brutos))?|otros\s+tributos|imp(?:\.|uestos)?\s+internos)\s*:?\s*\$?\s*([\d.,]+)`)
)

var (
	reRazonSocial = regexp.MustCompile(`(?i)raz[oó]n\s+social\s*:?\s*(\S.*)`)
	reCliente     = regexp.MustCompile(`(?i)(?:se[ñn]or(?:es)?|cliente)\s*:?\s*(\S.*)`)
	reDomicilio   = regexp.MustCompile(`(?i)domicilio\s*(?:comercial)?\s*:?\s*(\S.*)`)
	reVencimiento = regexp.MustCompile(`(?i)(?:fecha\s+de\s+)?(?:vencimiento|vto\.?)\D{0,20}?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)
)

// Lines that cannot be an issuer name while scanning below "FACTURA".
var (
	reSkipCUIT   = regexp.MustCompile(`(?i)c\.?\s*u\.?\s*i\.?\s*t`)
	reSkipAddr   = regexp.MustCompile(`(?i)domicilio|direcci[oó]n|\bcalle\b|\bav\.|avenida`)
	reSkipHeader = regexp.MustCompile(`(?i)punto\s+de\s+venta|comp\.?\s*nro|\bfecha\b|original|duplicado|codigo|c[oó]d\.`)
	reSkipMonto  = regexp.MustCompile(`(?i)\btotal\b|\biva\b|subtotal|importe|\bcae\b|[$%]`)
	reHasLetter  = regexp.MustCompile(`[A-Za-zÁÉÍÓÚÑáéíóúñ]{3,}`)
	reMostDigits = regexp.MustCompile(`^[\d\s./-]+$`)
)

// Ordered keyword lookup for document type; first containment wins.
var tipoComprobanteTable = []struct {
	keyword string
	tipo    string
}{
	{"FACTURA A", "A"},
	{"FACTURA B", "B"},
	{"FACTURA C", "C"},
	{"FACTURA E", "E"},
	{"FACTURA M", "M"},
	{"NOTA DE CREDITO", "NC"},
	{"NOTA DE CRÉDITO", "NC"},
	{"NOTA DE DEBITO", "ND"},
	{"NOTA DE DÉBITO", "ND"},
	{"RECIBO", "R"},
	{"TICKET", "T"},
}

// Extract applies the heuristics over raw text and returns a partial
// invoice. It is deterministic: identical text yields identical output.
func Extract(text string) invoice.ExtractedInvoice {
	inv := invoice.ExtractedInvoice{
		Detalles:  []invoice.LineItem{},
		Impuestos: []invoice.TaxLine{},
		Confianza: BaselineConfidence,
		Metodo:    invoice.MethodRules,
	}
	if strings.TrimSpace(text) == "" {
		return inv
	}

	inv.PuntoVenta, inv.Numero = findComprobante(text)
	inv.EmisorCUIT, inv.ReceptorCUIT = findCUITs(text)

	if fecha, ok := NormalizeDate(text); ok {
		inv.FechaEmision = fecha
	}
	if m := reVencimiento.FindStringSubmatch(text); m != nil {
		if fecha, ok := NormalizeDate(m[1]); ok {
			inv.FechaVencimiento = fecha
		}
	}

	inv.Total = firstAmount(reTotal, text)
	inv.Subtotal = firstAmount(reSubtotal, text)
	inv.Impuestos, inv.TotalImpuestos = findTaxLines(text)
	inv.TipoComprobante = classifyTipo(text)
	inv.EmisorNombre = findEmisorNombre(text)

	if m := reCliente.FindStringSubmatch(text); m != nil {
		inv.ReceptorNombre = strings.TrimSpace(m[1])
	}
	if m := reDomicilio.FindStringSubmatch(text); m != nil {
		inv.EmisorDomicilio = strings.TrimSpace(m[1])
	}

	inv.Sanitize()
	return inv
}

func findComprobante(text string) (puntoVenta, numero string) {
	for _, re := range reComprobante {
		if m := re.FindStringSubmatch(text); m != nil {
			return PadPuntoVenta(m[1]), PadComprobante(m[2])
		}
	}
	return "", ""
}

func findCUITs(text string) (emisor, receptor string) {
	for _, m := range reCUIT.FindAllStringSubmatch(text, -1) {
		cuit := m[1] + "-" + m[2] + "-" + m[3]
		if emisor == "" {
			emisor = cuit
			continue
		}
		if cuit != emisor {
			return emisor, cuit
		}
	}
	return emisor, ""
}

func firstAmount(candidates []*regexp.Regexp, text string) float64 {
	trimmed := strings.TrimRight(text, " \n\t")
	for _, re := range candidates {
		if m := re.FindStringSubmatch(trimmed); m != nil {
			if v := ParseImporte(m[1]); v > 0 {
				return v
			}
		}
	}
	return 0
}

func findTaxLines(text string) ([]invoice.TaxLine, float64) {
	lines := []invoice.TaxLine{}
	var total float64
	for _, m := range reIVALine.FindAllStringSubmatch(text, -1) {
		pct := ParseImporte(m[1])
		amount := ParseImporte(m[2])
		if amount == 0 {
			continue
		}
		lines = append(lines, invoice.TaxLine{
			Tipo:       "IVA " + strings.ReplaceAll(m[1], ",", ".") + "%",
			Porcentaje: pct,
			Importe:    amount,
		})
		total += amount
	}
	if m := reOtherLevies.FindStringSubmatch(text); m != nil {
		if amount := ParseImporte(m[1]); amount > 0 {
			lines = append(lines, invoice.TaxLine{Tipo: "Otros Tributos", Importe: amount})
			total += amount
		}
	}
	return lines, total
}

func classifyTipo(text string) string {
	upper := strings.ToUpper(text)
	for _, entry := range tipoComprobanteTable {
		if strings.Contains(upper, entry.keyword) {
			return entry.tipo
		}
	}
	return ""
}

// findEmisorNombre prefers an explicit "Razón social" label; otherwise it
// scans the lines after the first FACTURA occurrence, skipping everything
// that looks like a tax-id, address or header line.
func findEmisorNombre(text string) string {
	if m := reRazonSocial.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	lines := strings.Split(text, "\n")
	start := -1
	for i, ln := range lines {
		if strings.Contains(strings.ToUpper(ln), "FACTURA") {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}
	for i := start + 1; i < len(lines) && i <= start+6; i++ {
		ln := strings.TrimSpace(lines[i])
		if len(ln) < 4 {
			continue
		}
		if reSkipCUIT.MatchString(ln) || reSkipAddr.MatchString(ln) ||
			reSkipHeader.MatchString(ln) || reSkipMonto.MatchString(ln) {
			continue
		}
		if reMostDigits.MatchString(ln) || !reHasLetter.MatchString(ln) {
			continue
		}
		return ln
	}
	return ""
}
