// Package openai implements llm.InferenceClient against an OpenAI-compatible
// chat/completions endpoint, in text and vision mode.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/common"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/invoice"
	"github.com/gustavo2866/sistemika-dev-sub002/internal/llm"
)

// Config for the client.
type Config struct {
	APIKey      string        // empty = inference disabled
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g. "gpt-4o-mini"
	Temperature float32       // 0..2
	Timeout     time.Duration // http client timeout
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

// Configured reports whether a credential for the inference service exists.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// ExtractFromText requests a structured invoice from the text-only endpoint.
// Without a credential it contributes nothing, by contract: the classical
// path must keep working on rules alone.
func (c *Client) ExtractFromText(ctx context.Context, text string) (invoice.ExtractedInvoice, error) {
	if !c.Configured() {
		c.log.Debug("llm.extract.skipped", "reason", "no api key")
		return emptyPartial(), nil
	}

	rid := uuid.New().String()
	start := time.Now()
	c.log.Info("llm.extract.start",
		"req_id", rid,
		"mode", "text",
		"model", c.cfg.Model,
		"prompt_version", llm.PromptVersion,
		"text_len", len(text),
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": llm.BuildTextUserPrompt(text)},
		},
	}

	inv, err := c.complete(ctx, rid, body)
	if err != nil {
		c.log.Warn("llm.extract.failed",
			"req_id", rid, "mode", "text", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return emptyPartial(), err
	}

	inv.Metodo = invoice.MethodText
	c.log.Info("llm.extract.ok",
		"req_id", rid, "mode", "text",
		"numero", inv.Numero, "total", inv.Total,
		"elapsed_ms", time.Since(start).Milliseconds())
	return inv, nil
}

// ExtractFromImages requests a structured invoice from the multimodal
// endpoint with the rasterized pages attached as data URLs. Missing
// credential is a hard ConfigurationError here: vision mode has no
// text-only fallback of its own.
func (c *Client) ExtractFromImages(ctx context.Context, images [][]byte) (invoice.ExtractedInvoice, error) {
	if !c.Configured() {
		return invoice.ExtractedInvoice{}, common.NewConfigurationError(
			"vision extraction requires an inference credential (OPENAI_API_KEY)")
	}

	rid := uuid.New().String()
	start := time.Now()
	c.log.Info("llm.extract.start",
		"req_id", rid,
		"mode", "vision",
		"model", c.cfg.Model,
		"prompt_version", llm.PromptVersion,
		"pages", len(images),
	)

	content := []map[string]any{
		{"type": "text", "text": llm.BuildVisionUserPrompt(len(images))},
	}
	for _, img := range images {
		content = append(content, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": pngDataURL(img)},
		})
	}

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": content},
		},
	}

	inv, err := c.complete(ctx, rid, body)
	if err != nil {
		c.log.Warn("llm.extract.failed",
			"req_id", rid, "mode", "vision", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return invoice.ExtractedInvoice{}, err
	}

	inv.Metodo = invoice.MethodVision
	if strings.TrimSpace(inv.TextoExtraido) == "" {
		inv.TextoExtraido = fmt.Sprintf("Documento analizado visualmente (%d página(s))", len(images))
	}
	c.log.Info("llm.extract.ok",
		"req_id", rid, "mode", "vision",
		"numero", inv.Numero, "total", inv.Total,
		"elapsed_ms", time.Since(start).Milliseconds())
	return inv, nil
}

func (c *Client) complete(ctx context.Context, rid string, body map[string]any) (invoice.ExtractedInvoice, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		return invoice.ExtractedInvoice{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return invoice.ExtractedInvoice{}, fmt.Errorf("decode completion response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return invoice.ExtractedInvoice{}, fmt.Errorf("no choices in completion response")
	}

	inv, err := llm.DecodeInvoice([]byte(cc.Choices[0].Message.Content))
	if err != nil {
		c.log.Warn("llm.extract.invalid_output", "req_id", rid, "error", err)
		return invoice.ExtractedInvoice{}, err
	}
	return inv, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.log.Warn("inference response body close error", "error", cerr)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("inference status %d: %s", resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}

func pngDataURL(img []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img)
}

func emptyPartial() invoice.ExtractedInvoice {
	inv := invoice.ExtractedInvoice{}
	inv.Sanitize()
	return inv
}
