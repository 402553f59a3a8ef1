package invoice

import (
	"fmt"
	"math"
)

// Method is the technique family requested or selected for an extraction.
type Method string

const (
	MethodAuto   Method = "auto"
	MethodText   Method = "text"
	MethodVision Method = "vision"
	MethodRules  Method = "rules"
)

// ParseMethod maps a CLI/user string to a Method. Empty input means auto;
// anything else unrecognized is an error.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodAuto, MethodText, MethodVision, MethodRules:
		return Method(s), nil
	case "":
		return MethodAuto, nil
	default:
		return "", fmt.Errorf("unknown extraction method %q", s)
	}
}

// Strategy is the macro ordering of extraction attempts.
type Strategy int

const (
	// StrategyVisionFirst tries multimodal extraction before anything else.
	StrategyVisionFirst Strategy = 1
	// StrategyTextFirst runs the classical text/OCR/rules/LLM chain, escalating
	// to vision only on signs of failure.
	StrategyTextFirst Strategy = 2
)

// LineItem is a single detail row of an invoice.
type LineItem struct {
	Descripcion    string  `json:"descripcion"`
	Cantidad       float64 `json:"cantidad"`
	PrecioUnitario float64 `json:"precio_unitario"`
	Subtotal       float64 `json:"subtotal"`
}

// TaxLine is a single tax row (kind label, percentage, amount).
type TaxLine struct {
	Tipo       string  `json:"tipo"`
	Porcentaje float64 `json:"porcentaje"`
	Importe    float64 `json:"importe"`
}

// ExtractedInvoice is the structured result of an extraction. Partial
// instances flow out of each stage; the merger finalizes one before return.
// JSON names match the wire format of the surrounding system.
type ExtractedInvoice struct {
	Numero           string `json:"numero"`
	PuntoVenta       string `json:"punto_venta"`
	TipoComprobante  string `json:"tipo_comprobante"`
	FechaEmision     string `json:"fecha_emision,omitempty"`
	FechaVencimiento string `json:"fecha_vencimiento,omitempty"`

	EmisorNombre      string `json:"emisor_nombre,omitempty"`
	EmisorCUIT        string `json:"emisor_cuit,omitempty"`
	EmisorDomicilio   string `json:"emisor_domicilio,omitempty"`
	ReceptorNombre    string `json:"receptor_nombre,omitempty"`
	ReceptorCUIT      string `json:"receptor_cuit,omitempty"`
	ReceptorDomicilio string `json:"receptor_domicilio,omitempty"`

	Subtotal       float64 `json:"subtotal"`
	TotalImpuestos float64 `json:"total_impuestos"`
	Total          float64 `json:"total"`

	Detalles  []LineItem `json:"detalles"`
	Impuestos []TaxLine  `json:"impuestos"`

	Confianza     float64 `json:"confianza_extraccion"`
	Metodo        Method  `json:"metodo_extraccion"`
	TextoExtraido string  `json:"texto_extraido"`
}

// IsZero reports whether the invoice carries no extracted content at all.
func (e ExtractedInvoice) IsZero() bool {
	return e.Numero == "" && e.PuntoVenta == "" && e.TipoComprobante == "" &&
		e.FechaEmision == "" && e.EmisorNombre == "" && e.EmisorCUIT == "" &&
		e.Total == 0 && e.Subtotal == 0 && len(e.Detalles) == 0 && len(e.Impuestos) == 0
}

// Sanitize enforces the model invariants: monetary fields are finite and
// non-negative, list fields are never nil, confidence stays in [0,1].
func (e *ExtractedInvoice) Sanitize() {
	e.Subtotal = cleanAmount(e.Subtotal)
	e.TotalImpuestos = cleanAmount(e.TotalImpuestos)
	e.Total = cleanAmount(e.Total)
	if e.Detalles == nil {
		e.Detalles = []LineItem{}
	}
	for i := range e.Detalles {
		e.Detalles[i].Cantidad = cleanAmount(e.Detalles[i].Cantidad)
		e.Detalles[i].PrecioUnitario = cleanAmount(e.Detalles[i].PrecioUnitario)
		e.Detalles[i].Subtotal = cleanAmount(e.Detalles[i].Subtotal)
	}
	if e.Impuestos == nil {
		e.Impuestos = []TaxLine{}
	}
	for i := range e.Impuestos {
		e.Impuestos[i].Porcentaje = cleanAmount(e.Impuestos[i].Porcentaje)
		e.Impuestos[i].Importe = cleanAmount(e.Impuestos[i].Importe)
	}
	if math.IsNaN(e.Confianza) || e.Confianza < 0 {
		e.Confianza = 0
	}
	if e.Confianza > 1 {
		e.Confianza = 1
	}
}

func cleanAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
