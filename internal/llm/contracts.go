package llm

import (
	"context"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/invoice"
)

// InferenceClient is the boundary the pipeline depends on for structured
// extraction through an inference service.
//
// ExtractFromText degrades: transport or output failures come back as an
// error the caller absorbs into an empty partial. ExtractFromImages is
// strict about configuration: without a credential it returns a
// ConfigurationError, since vision has no text-only fallback of its own.
type InferenceClient interface {
	Configured() bool
	ExtractFromText(ctx context.Context, text string) (invoice.ExtractedInvoice, error)
	ExtractFromImages(ctx context.Context, images [][]byte) (invoice.ExtractedInvoice, error)
}
