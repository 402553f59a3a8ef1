package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/gustavo2866/sistemika-dev-sub002/internal/common"
)

// Config for the materializer.
type Config struct {
	Timeout time.Duration // http client timeout
	TempDir string        // directory for temp files; "" = os.TempDir()
}

// Materializer resolves a local path, file:// URI or HTTP(S) URL into a
// local temporary file the rest of the pipeline can read.
type Materializer struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// Materialized describes the temp copy of a source document. Cleanup removes
// the temp file; the orchestrator owns calling it on every exit path.
type Materialized struct {
	Path         string
	MIMEType     string
	OriginalName string
	Cleanup      func()
}

// IsPDF reports whether the materialized document is a PDF container.
func (m Materialized) IsPDF() bool {
	if strings.Contains(m.MIMEType, "pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(m.Path), ".pdf")
}

func NewMaterializer(cfg Config, logger *slog.Logger) *Materializer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

var reDriveLetter = regexp.MustCompile(`^[A-Za-z]:[\\/]`)

// isRemote decides locality by scheme/shape: drive-letter and plain path
// forms are local, file:// is local, http(s):// is remote.
func isRemote(source string) bool {
	if reDriveLetter.MatchString(source) {
		return false
	}
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Materialize copies the source document into a uniquely-named temp file and
// returns its path plus the detected MIME type and original filename.
func (m *Materializer) Materialize(ctx context.Context, source string) (Materialized, error) {
	if isRemote(source) {
		return m.fetchRemote(ctx, source)
	}
	local := source
	if strings.HasPrefix(source, "file://") {
		u, err := url.Parse(source)
		if err != nil {
			return Materialized{}, common.NewFetchError("invalid file URI: "+source, err)
		}
		local = u.Path
	}
	return m.copyLocal(local)
}

func (m *Materializer) copyLocal(src string) (Materialized, error) {
	f, err := os.Open(src)
	if err != nil {
		return Materialized{}, common.NewFetchError("cannot open local document: "+src, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			m.logger.Warn("document.close_error", "path", src, "error", cerr)
		}
	}()

	name := filepath.Base(src)
	out, err := m.createTemp(filepath.Ext(name))
	if err != nil {
		return Materialized{}, err
	}
	if _, err := io.Copy(out, f); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return Materialized{}, common.NewFetchError("cannot copy local document", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return Materialized{}, common.NewFetchError("cannot finish temp copy", err)
	}

	mt := mime.TypeByExtension(filepath.Ext(name))
	if mt == "" {
		if detected, derr := mimetype.DetectFile(out.Name()); derr == nil {
			mt = detected.String()
		} else {
			mt = "application/octet-stream"
		}
	}

	m.logger.Debug("document.materialized", "source", src, "temp", out.Name(), "mime", mt)
	return Materialized{
		Path:         out.Name(),
		MIMEType:     mt,
		OriginalName: name,
		Cleanup:      cleanupFunc(out.Name(), m.logger),
	}, nil
}

func (m *Materializer) fetchRemote(ctx context.Context, rawURL string) (Materialized, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Materialized{}, common.NewFetchError("invalid URL: "+rawURL, err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return Materialized{}, common.NewFetchError("cannot reach "+rawURL, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			m.logger.Warn("document.body_close_error", "url", rawURL, "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Materialized{}, common.NewFetchError(
			fmt.Sprintf("GET %s returned status %d", rawURL, resp.StatusCode), nil)
	}

	name := remoteFilename(resp.Header.Get("Content-Disposition"), rawURL)
	out, err := m.createTemp(filepath.Ext(name))
	if err != nil {
		return Materialized{}, err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return Materialized{}, common.NewFetchError("download interrupted", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return Materialized{}, common.NewFetchError("cannot finish download", err)
	}

	mt := resp.Header.Get("Content-Type")
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "" || mt == "application/octet-stream" {
		if detected, derr := mimetype.DetectFile(out.Name()); derr == nil {
			mt = detected.String()
		}
	}

	m.logger.Debug("document.materialized", "source", rawURL, "temp", out.Name(), "mime", mt)
	return Materialized{
		Path:         out.Name(),
		MIMEType:     mt,
		OriginalName: name,
		Cleanup:      cleanupFunc(out.Name(), m.logger),
	}, nil
}

func (m *Materializer) createTemp(ext string) (*os.File, error) {
	pattern := "sub002-" + uuid.New().String() + "-*" + ext
	out, err := os.CreateTemp(m.cfg.TempDir, pattern)
	if err != nil {
		return nil, common.NewFetchError("cannot create temp file", err)
	}
	return out, nil
}

// remoteFilename derives a name from the Content-Disposition header, falling
// back to the URL tail.
func remoteFilename(disposition, rawURL string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if fn := params["filename"]; fn != "" {
				return filepath.Base(fn)
			}
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			return base
		}
	}
	return "documento"
}

// cleanupFunc removes the temp file, best effort.
func cleanupFunc(path string, logger *slog.Logger) func() {
	return func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("document.cleanup_error", "path", path, "error", err)
		}
	}
}
