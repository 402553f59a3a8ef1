package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/invoice"
)

// Renderer produces XLSX workbooks from extraction results.
type Renderer struct {
	logger *slog.Logger
}

func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{logger: logger}
}

// RenderInvoiceXLSX returns an XLSX workbook (as bytes) with one summary
// sheet, plus Detalles/Impuestos sheets when the invoice carries them.
func (r *Renderer) RenderInvoiceXLSX(inv invoice.ExtractedInvoice) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Factura"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	summary := []struct {
		label string
		value any
	}{
		{"Tipo de comprobante", inv.TipoComprobante},
		{"Punto de venta", inv.PuntoVenta},
		{"Número", inv.Numero},
		{"Fecha de emisión", inv.FechaEmision},
		{"Fecha de vencimiento", inv.FechaVencimiento},
		{"Emisor", inv.EmisorNombre},
		{"CUIT emisor", inv.EmisorCUIT},
		{"Receptor", inv.ReceptorNombre},
		{"CUIT receptor", inv.ReceptorCUIT},
		{"Subtotal", inv.Subtotal},
		{"Total impuestos", inv.TotalImpuestos},
		{"Total", inv.Total},
		{"Confianza", inv.Confianza},
		{"Método", string(inv.Metodo)},
	}
	for i, kv := range summary {
		write(1, i+1, kv.label)
		write(2, i+1, kv.value)
	}
	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "B", 40)

	if len(inv.Detalles) > 0 {
		if err := r.writeDetalles(f, inv.Detalles); err != nil {
			return nil, err
		}
	}
	if len(inv.Impuestos) > 0 {
		if err := r.writeImpuestos(f, inv.Impuestos); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	r.logger.Info("export.xlsx.ok",
		"items", len(inv.Detalles),
		"taxes", len(inv.Impuestos),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (r *Renderer) writeDetalles(f *excelize.File, items []invoice.LineItem) error {
	const sheet = "Detalles"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	headers := []string{"Descripción", "Cantidad", "Precio unitario", "Subtotal"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, it := range items {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, truncate(it.Descripcion, 140))
		write(2, it.Cantidad)
		write(3, it.PrecioUnitario)
		write(4, it.Subtotal)
	}
	_ = f.SetColWidth(sheet, "A", "A", 48)
	_ = f.SetColWidth(sheet, "B", "D", 16)
	return nil
}

func (r *Renderer) writeImpuestos(f *excelize.File, taxes []invoice.TaxLine) error {
	const sheet = "Impuestos"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	headers := []string{"Tipo", "Porcentaje", "Importe"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, t := range taxes {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, t.Tipo)
		write(2, t.Porcentaje)
		write(3, t.Importe)
	}
	_ = f.SetColWidth(sheet, "A", "A", 22)
	_ = f.SetColWidth(sheet, "B", "C", 14)
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if cut := strings.ToValidUTF8(s[:n], ""); cut != "" {
		return cut + "…"
	}
	return s[:n]
}
