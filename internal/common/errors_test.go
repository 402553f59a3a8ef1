package common

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
		code string
	}{
		{"fetch", NewFetchError("GET fallo", errors.New("timeout")), ErrFetch, "FETCH_ERROR"},
		{"parse", NewDocumentParseError("no es PDF", nil), ErrDocumentParse, "DOCUMENT_PARSE_ERROR"},
		{"configuration", NewConfigurationError("falta credencial"), ErrConfiguration, "CONFIGURATION_ERROR"},
		{"no text", NewNoTextExtractedError("documento vacío"), ErrNoTextExtracted, "NO_TEXT_EXTRACTED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.kind) {
				t.Errorf("errors.Is(%v, kind) = false", tt.err)
			}
			if !strings.Contains(tt.err.Error(), tt.code) {
				t.Errorf("Error() = %q, want the %s code", tt.err.Error(), tt.code)
			}
		})
	}
}

func TestErrorCausePreserved(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewFetchError("no se pudo descargar", cause)

	if !errors.Is(err, cause) {
		t.Error("cause must survive unwrapping")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q, cause missing", err.Error())
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "contexto") != nil {
		t.Error("wrapping nil must stay nil")
	}
	base := errors.New("base")
	wrapped := WrapError(base, "contexto")
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error must unwrap to the base")
	}
}
