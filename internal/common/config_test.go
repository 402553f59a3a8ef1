package common

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_TIMEOUT", "MAX_PAGES", "RASTER_SCALE",
		"TESSERACT_LANG", "OPENAI_MODEL", "OCR_SUPPLEMENT"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("HTTP.Timeout = %v", cfg.HTTP.Timeout)
	}
	if cfg.Raster.MaxPages != 3 || cfg.Raster.Scale != 2.0 {
		t.Errorf("Raster = %+v", cfg.Raster)
	}
	if cfg.OCR.Language != "spa" || cfg.OCR.Tesseract != "tesseract" {
		t.Errorf("OCR = %+v", cfg.OCR)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.Timeout != 45*time.Second {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if !cfg.Pipeline.SupplementOCR {
		t.Error("SupplementOCR should default on")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("MAX_PAGES", "1")
	t.Setenv("RASTER_SCALE", "3.5")
	t.Setenv("TESSERACT_LANG", "spa+eng")
	t.Setenv("OPENAI_TEMPERATURE", "0.2")
	t.Setenv("OCR_SUPPLEMENT", "false")

	cfg := LoadConfig()

	if cfg.HTTP.Timeout != 5*time.Second {
		t.Errorf("HTTP.Timeout = %v", cfg.HTTP.Timeout)
	}
	if cfg.Raster.MaxPages != 1 || cfg.Raster.Scale != 3.5 {
		t.Errorf("Raster = %+v", cfg.Raster)
	}
	if cfg.OCR.Language != "spa+eng" {
		t.Errorf("Language = %q", cfg.OCR.Language)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("Temperature = %v", cfg.LLM.Temperature)
	}
	if cfg.Pipeline.SupplementOCR {
		t.Error("SupplementOCR should be off")
	}
}

func TestLoadConfigIgnoresMalformed(t *testing.T) {
	t.Setenv("MAX_PAGES", "muchas")
	t.Setenv("HTTP_TIMEOUT", "pronto")

	cfg := LoadConfig()
	if cfg.Raster.MaxPages != 3 {
		t.Errorf("MaxPages = %d, want the default", cfg.Raster.MaxPages)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want the default", cfg.HTTP.Timeout)
	}
}
