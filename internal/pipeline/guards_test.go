package pipeline

import (
	"strings"
	"testing"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/invoice"
)

func TestResolveMethod(t *testing.T) {
	rich := strings.Repeat("una línea con contenido real\n", 10)

	tests := []struct {
		name     string
		explicit invoice.Method
		text     string
		expected invoice.Method
	}{
		{"explicit text honored", invoice.MethodText, "", invoice.MethodText},
		{"explicit vision honored", invoice.MethodVision, rich, invoice.MethodVision},
		{"explicit rules honored", invoice.MethodRules, rich, invoice.MethodRules},
		{"auto rich text resolves text", invoice.MethodAuto, rich, invoice.MethodText},
		{"auto empty resolves vision", invoice.MethodAuto, "", invoice.MethodVision},
		{"auto short lines resolve vision", invoice.MethodAuto, "a\nb\nc\nd\ne\nf\ng", invoice.MethodVision},
		{"blank method treated as auto", "", rich, invoice.MethodText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveMethod(tt.explicit, tt.text); got != tt.expected {
				t.Errorf("resolveMethod(%q, ...) = %q, want %q", tt.explicit, got, tt.expected)
			}
		})
	}
}

func TestIsWeakText(t *testing.T) {
	strong := "FACTURA A\n" + strings.Repeat("detalle de la operación con texto suficiente\n", 12)

	tests := []struct {
		name string
		text string
		weak bool
	}{
		{"empty", "", true},
		{"whitespace only", "  \n\t ", true},
		{"short", "FACTURA A TOTAL $100", true},
		{"long without markers", strings.Repeat("texto administrativo cualquiera\n", 20), true},
		{"long with factura marker", strong, false},
		{"long with total marker", strings.Repeat("renglón de relleno del documento\n", 16) + "TOTAL: $ 1,00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isWeakText(tt.text); got != tt.weak {
				t.Errorf("isWeakText = %v, want %v", got, tt.weak)
			}
		})
	}
}

func TestPreferOCRText(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		ocr      string
		expected bool
	}{
		{"empty ocr never adopted", "algo", "", false},
		{"empty existing adopts", "", "FACTURA A", true},
		{"longer ocr adopts", "corto", "texto reconocido bastante más largo", true},
		{"existing without cae replaced", strings.Repeat("x", 100), "corto", true},
		{"existing with cae kept", "FACTURA CAE 74123456789012 " + strings.Repeat("x", 80), "corto", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preferOCRText(tt.existing, tt.ocr); got != tt.expected {
				t.Errorf("preferOCRText = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLooksIncomplete(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{"opens with factura header", "FACTURA A\nresto", false},
		{"opens with nota de credito", "\n  NOTA DE CRÉDITO 0001-00000042\n", false},
		{"opens mid totals", "TOTAL: $ 1.234,56\nCAE 123", true},
		{"empty", "", true},
		{"blank lines then header", "\n\n\nRECIBO X\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksIncomplete(tt.text); got != tt.expected {
				t.Errorf("looksIncomplete(%q) = %v, want %v", tt.text, got, tt.expected)
			}
		})
	}
}

func TestVisionTextTooShort(t *testing.T) {
	long := strings.Repeat("texto visual reconocido por el modelo ", 5)

	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{"placeholder always short", "Documento analizado visualmente (2 página(s))", true},
		{"short real text", "FACTURA A 0001-00000123", true},
		{"long real text", long, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := visionTextTooShort(tt.text); got != tt.expected {
				t.Errorf("visionTextTooShort = %v, want %v", got, tt.expected)
			}
		})
	}
}
