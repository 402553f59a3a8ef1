package invoice

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		input    string
		expected Method
		wantErr  bool
	}{
		{"text", MethodText, false},
		{"vision", MethodVision, false},
		{"rules", MethodRules, false},
		{"auto", MethodAuto, false},
		{"", MethodAuto, false},
		{"magia", "", true},
		{"TEXT", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMethod(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseMethod(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSanitize(t *testing.T) {
	inv := ExtractedInvoice{
		Subtotal:  math.NaN(),
		Total:     math.Inf(1),
		Confianza: -0.5,
		Detalles:  []LineItem{{Cantidad: -1, Subtotal: math.NaN()}},
		Impuestos: []TaxLine{{Porcentaje: math.Inf(-1), Importe: -10}},
	}
	inv.Sanitize()

	if inv.Subtotal != 0 || inv.Total != 0 {
		t.Errorf("amounts = %v/%v, want 0", inv.Subtotal, inv.Total)
	}
	if inv.Confianza != 0 {
		t.Errorf("Confianza = %v, want 0", inv.Confianza)
	}
	if inv.Detalles[0].Cantidad != 0 || inv.Detalles[0].Subtotal != 0 {
		t.Errorf("line item = %+v", inv.Detalles[0])
	}
	if inv.Impuestos[0].Porcentaje != 0 || inv.Impuestos[0].Importe != 0 {
		t.Errorf("tax = %+v", inv.Impuestos[0])
	}

	var nilLists ExtractedInvoice
	nilLists.Sanitize()
	if nilLists.Detalles == nil || nilLists.Impuestos == nil {
		t.Error("Sanitize must materialize empty lists")
	}

	over := ExtractedInvoice{Confianza: 1.3}
	over.Sanitize()
	if over.Confianza != 1 {
		t.Errorf("Confianza = %v, want clamped to 1", over.Confianza)
	}
}

func TestIsZero(t *testing.T) {
	var empty ExtractedInvoice
	if !empty.IsZero() {
		t.Error("zero value must be zero")
	}
	if (ExtractedInvoice{Numero: "1"}).IsZero() {
		t.Error("numero makes it non-zero")
	}
	if (ExtractedInvoice{Total: 1}).IsZero() {
		t.Error("total makes it non-zero")
	}
	// Method and raw text alone do not count as content.
	if !(ExtractedInvoice{Metodo: MethodVision, TextoExtraido: "x", Confianza: 0.9}).IsZero() {
		t.Error("metadata alone must still be zero")
	}
}

func TestWireNames(t *testing.T) {
	inv := ExtractedInvoice{
		Numero:     "00000123",
		PuntoVenta: "0001",
		Confianza:  0.35,
		Metodo:     MethodText,
		Detalles:   []LineItem{},
		Impuestos:  []TaxLine{},
	}
	data, err := json.Marshal(inv)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, field := range []string{
		`"numero"`, `"punto_venta"`, `"tipo_comprobante"`,
		`"confianza_extraccion":0.35`, `"metodo_extraccion":"text"`,
		`"texto_extraido"`, `"detalles"`, `"impuestos"`,
	} {
		if !strings.Contains(s, field) {
			t.Errorf("marshaled JSON missing %s: %s", field, s)
		}
	}
	if strings.Contains(s, `"fecha_emision"`) {
		t.Error("empty optional fields must be omitted")
	}
}
