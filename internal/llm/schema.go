package llm

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildInvoiceJSONSchema returns the output schema (draft 2020-12 subset) as
// a generic map. It is sent to the inference service as the contract and
// used locally to validate what comes back. Numeric fields accept strings:
// models, like invoices, format amounts in any locale they please — the
// lenient decoder normalizes afterwards.
func BuildInvoiceJSONSchema() map[string]any {
	amount := map[string]any{"type": []string{"number", "string", "null"}}
	optString := map[string]any{"type": []string{"string", "null"}}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties": map[string]any{
			"numero":            optString,
			"punto_venta":       optString,
			"tipo_comprobante":  optString,
			"fecha_emision":     optString,
			"fecha_vencimiento": optString,
			"emisor_nombre":     optString,
			"emisor_cuit":       optString,
			"emisor_domicilio":  optString,
			"receptor_nombre":   optString,
			"receptor_cuit":     optString,
			"receptor_domicilio": optString,
			"subtotal":          amount,
			"total_impuestos":   amount,
			"total":             amount,
			"detalles": map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"descripcion":     optString,
						"cantidad":        amount,
						"precio_unitario": amount,
						"subtotal":        amount,
					},
				},
			},
			"impuestos": map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"tipo":       optString,
						"porcentaje": amount,
						"importe":    amount,
					},
				},
			},
			"confianza_extraccion": amount,
			"texto_extraido":       optString,
		},
	}
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := json.Marshal(BuildInvoiceJSONSchema())
		if err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = jsonschema.CompileString("invoice.schema.json", string(raw))
	})
	return compiledSchema, schemaErr
}

// ValidateInvoiceJSON checks a raw inference response against the schema.
func ValidateInvoiceJSON(doc []byte) error {
	sch, err := compiled()
	if err != nil {
		return fmt.Errorf("compile invoice schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
