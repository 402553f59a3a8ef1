// Package pdftext extracts the embedded text layer of a PDF, page by page.
// Scanned PDFs legitimately yield an empty result; the caller escalates to
// OCR in that case.
package pdftext

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/common"
)

const pageSeparator = "\n\f\n"

// Extractor reads the vector text layer of PDF documents.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// ExtractText concatenates the text runs of every page, separated by a page
// break marker. Returns DocumentParseError if the file is not a valid PDF
// container; a valid PDF with no text layer returns "".
func (e *Extractor) ExtractText(path string) (text string, err error) {
	// ledongthuc/pdf panics on some malformed xref tables; treat those the
	// same as an open error.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = common.NewDocumentParseError(path+" is not a readable PDF", fmt.Errorf("%v", r))
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", common.NewDocumentParseError(path+" is not a valid PDF", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("pdftext.close_error", "path", path, "error", cerr)
		}
	}()

	var b strings.Builder
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, perr := page.GetPlainText(nil)
		if perr != nil {
			// A single broken page contributes nothing; the rest still count.
			e.logger.Warn("pdftext.page_error", "path", path, "page", i, "error", perr)
			continue
		}
		if b.Len() > 0 {
			b.WriteString(pageSeparator)
		}
		b.WriteString(pageText)
	}

	out := Normalize(b.String())
	e.logger.Debug("pdftext.extracted", "path", path, "pages", total, "bytes", len(out))
	return out, nil
}

// Normalize unifies line endings, replaces non-breaking spaces and trims.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, " ", " ")
	return strings.TrimSpace(s)
}
