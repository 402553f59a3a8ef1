package llm

import (
	"encoding/json"
	"strings"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/invoice"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/rules"
)

// StripCodeFences removes markdown fencing some models wrap around JSON.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodeInvoice turns a raw inference response into a partial invoice.
// It validates against the schema first, then coerces loosely-typed fields:
// amounts arriving as locale strings, percentages as "21%", null lists.
func DecodeInvoice(raw []byte) (invoice.ExtractedInvoice, error) {
	raw = []byte(StripCodeFences(string(raw)))
	if err := ValidateInvoiceJSON(raw); err != nil {
		return invoice.ExtractedInvoice{}, err
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return invoice.ExtractedInvoice{}, err
	}

	inv := invoice.ExtractedInvoice{
		Numero:            asString(m["numero"]),
		PuntoVenta:        asString(m["punto_venta"]),
		TipoComprobante:   asString(m["tipo_comprobante"]),
		FechaEmision:      asString(m["fecha_emision"]),
		FechaVencimiento:  asString(m["fecha_vencimiento"]),
		EmisorNombre:      asString(m["emisor_nombre"]),
		EmisorCUIT:        asString(m["emisor_cuit"]),
		EmisorDomicilio:   asString(m["emisor_domicilio"]),
		ReceptorNombre:    asString(m["receptor_nombre"]),
		ReceptorCUIT:      asString(m["receptor_cuit"]),
		ReceptorDomicilio: asString(m["receptor_domicilio"]),
		Subtotal:          asAmount(m["subtotal"]),
		TotalImpuestos:    asAmount(m["total_impuestos"]),
		Total:             asAmount(m["total"]),
		Detalles:          asLineItems(m["detalles"]),
		Impuestos:         asTaxLines(m["impuestos"]),
		Confianza:         asAmount(m["confianza_extraccion"]),
		TextoExtraido:     asString(m["texto_extraido"]),
	}
	inv.Sanitize()
	return inv, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asAmount(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		return rules.ParseImporte(t)
	default:
		return 0
	}
}

func asLineItems(v any) []invoice.LineItem {
	items := []invoice.LineItem{}
	list, ok := v.([]any)
	if !ok {
		return items
	}
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, invoice.LineItem{
			Descripcion:    asString(m["descripcion"]),
			Cantidad:       asAmount(m["cantidad"]),
			PrecioUnitario: asAmount(m["precio_unitario"]),
			Subtotal:       asAmount(m["subtotal"]),
		})
	}
	return items
}

func asTaxLines(v any) []invoice.TaxLine {
	lines := []invoice.TaxLine{}
	list, ok := v.([]any)
	if !ok {
		return lines
	}
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		lines = append(lines, invoice.TaxLine{
			Tipo:       asString(m["tipo"]),
			Porcentaje: asAmount(m["porcentaje"]),
			Importe:    asAmount(m["importe"]),
		})
	}
	return lines
}
