package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PromptVersion identifies the extraction prompt template in logs.
const PromptVersion = "v3-afip"

const maxPromptText = 6000

// BuildSystemPrompt returns the fixed instruction set for both text and
// vision mode. It enumerates every target field and pins the output schema.
func BuildSystemPrompt() string {
	parts := []string{
		"Sos un experto en facturas y comprobantes fiscales de Argentina (AFIP).",
		"Extraé los datos del comprobante y devolvé SOLO un objeto JSON válido que cumpla el esquema provisto, sin markdown ni comentarios.",
		"Campos de cabecera: numero (8 dígitos, completá con ceros a la izquierda), punto_venta (4 dígitos), tipo_comprobante (A, B, C, E, M, NC, ND), fecha_emision y fecha_vencimiento en formato YYYY-MM-DD.",
		"Partes: emisor_nombre, emisor_cuit (formato XX-XXXXXXXX-X), emisor_domicilio, receptor_nombre, receptor_cuit, receptor_domicilio. Usá null si un dato no aparece.",
		"Montos: subtotal, total_impuestos y total como números decimales con punto decimal (1234.56), nunca con separador de miles.",
		"detalles: lista de items con descripcion, cantidad, precio_unitario y subtotal.",
		"impuestos: lista con tipo (por ejemplo \"IVA 21%\"), porcentaje (número) e importe.",
		"NUNCA inventes datos: usá null para strings y 0 para números que no puedas leer.",
		"El total es el importe final a pagar, normalmente el número más grande al final del comprobante.",
	}
	return strings.Join(parts, " ")
}

// BuildTextUserPrompt wraps the extracted text (capped) with the schema.
func BuildTextUserPrompt(text string) string {
	if len(text) > maxPromptText {
		text = text[:maxPromptText]
	}
	var b strings.Builder
	b.WriteString("Texto extraído del comprobante:\n\n")
	b.WriteString(text)
	b.WriteString("\n\nEsquema JSON de salida:\n")
	b.WriteString(mustJSON(BuildInvoiceJSONSchema()))
	b.WriteString("\n\nDevolvé ÚNICAMENTE el JSON.")
	return b.String()
}

// BuildVisionUserPrompt is the instruction paired with the page images.
func BuildVisionUserPrompt(pages int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analizá las %d página(s) adjuntas del comprobante y extraé los datos.\n\n", pages)
	b.WriteString("Si podés, incluí en texto_extraido el texto completo que leas del documento.\n\n")
	b.WriteString("Esquema JSON de salida:\n")
	b.WriteString(mustJSON(BuildInvoiceJSONSchema()))
	b.WriteString("\n\nDevolvé ÚNICAMENTE el JSON.")
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
