package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/invoice"
)

func sampleInvoice() invoice.ExtractedInvoice {
	return invoice.ExtractedInvoice{
		Numero:          "00000123",
		PuntoVenta:      "0001",
		TipoComprobante: "A",
		FechaEmision:    "2024-03-15",
		EmisorNombre:    "Ferretería San Martín S.R.L.",
		Subtotal:        1020.56,
		TotalImpuestos:  214,
		Total:           1234.56,
		Detalles: []invoice.LineItem{
			{Descripcion: "Hierro del 8", Cantidad: 2, PrecioUnitario: 510.28, Subtotal: 1020.56},
		},
		Impuestos: []invoice.TaxLine{
			{Tipo: "IVA 21%", Porcentaje: 21, Importe: 214},
		},
		Confianza: 0.92,
		Metodo:    invoice.MethodText,
	}
}

func TestRenderInvoiceXLSX(t *testing.T) {
	buf, err := NewRenderer(nil).RenderInvoiceXLSX(sampleInvoice())
	if err != nil {
		t.Fatalf("RenderInvoiceXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("workbook does not open: %v", err)
	}
	defer func() { _ = f.Close() }()

	for _, sheet := range []string{"Factura", "Detalles", "Impuestos"} {
		if idx, _ := f.GetSheetIndex(sheet); idx == -1 {
			t.Errorf("missing sheet %q", sheet)
		}
	}

	if v, _ := f.GetCellValue("Factura", "A3"); v != "Número" {
		t.Errorf("A3 = %q", v)
	}
	if v, _ := f.GetCellValue("Factura", "B3"); v != "00000123" {
		t.Errorf("B3 = %q", v)
	}
	if v, _ := f.GetCellValue("Detalles", "A2"); v != "Hierro del 8" {
		t.Errorf("Detalles A2 = %q", v)
	}
	if v, _ := f.GetCellValue("Impuestos", "A2"); v != "IVA 21%" {
		t.Errorf("Impuestos A2 = %q", v)
	}
}

func TestRenderInvoiceXLSXWithoutLists(t *testing.T) {
	inv := sampleInvoice()
	inv.Detalles = nil
	inv.Impuestos = nil

	buf, err := NewRenderer(nil).RenderInvoiceXLSX(inv)
	if err != nil {
		t.Fatalf("RenderInvoiceXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("workbook does not open: %v", err)
	}
	defer func() { _ = f.Close() }()

	for _, sheet := range []string{"Detalles", "Impuestos"} {
		if idx, _ := f.GetSheetIndex(sheet); idx != -1 {
			t.Errorf("sheet %q should not exist for an empty list", sheet)
		}
	}
}
