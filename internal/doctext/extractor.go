// Package doctext turns an uploaded offer document into raw text. It is the
// seam at which the parsing technology is swappable: everything behind the
// Runner interface is external tooling, everything in front is plumbing.
package doctext

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/procurehub/backend/internal/common"
)

// Config selects the external binaries and their knobs.
type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "deu+eng": vendor offers are mostly German
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit
}

// Result is the outcome of text extraction for one document.
type Result struct {
	Text     string
	Pages    int
	Method   string // "pdf-text" | "pdf-ocr"
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "deu+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Extract converts a PDF at path into page texts joined by a single newline.
// The text layer is tried first; scanned documents without one fall back to
// rasterize-and-OCR. Fails with UNREADABLE_DOCUMENT when the tooling cannot
// parse the file or the extracted text is empty after trimming.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	e.logger.Debug("doctext.extract.start", "path", path)

	text, pages, warns, err := e.pdfToText(ctx, path)
	if err != nil {
		e.logger.Error("doctext.pdftotext.failed", "path", path, "error", err)
		return Result{Warnings: warns}, common.NewAppError(common.CodeUnreadableDocument,
			fmt.Sprintf("cannot read document %q", filepath.Base(path)), err)
	}

	method := "pdf-text"
	if strings.TrimSpace(text) == "" {
		// no text layer; rasterize and OCR
		e.logger.Info("doctext.no_text_layer", "path", path, "pages", pages)
		var ocrWarns []string
		text, pages, ocrWarns, err = e.pdfToOCR(ctx, path)
		warns = append(warns, ocrWarns...)
		if err != nil {
			return Result{Warnings: warns}, common.NewAppError(common.CodeUnreadableDocument,
				fmt.Sprintf("cannot OCR document %q", filepath.Base(path)), err)
		}
		method = "pdf-ocr"
	}

	text = joinPages(text)
	if strings.TrimSpace(text) == "" {
		return Result{Warnings: warns}, common.NewAppError(common.CodeUnreadableDocument,
			fmt.Sprintf("document %q contains no extractable text", filepath.Base(path)), nil)
	}

	res := Result{
		Text:     text,
		Pages:    pages,
		Method:   method,
		Duration: time.Since(start),
		Warnings: warns,
	}
	e.logger.Info("doctext.extract.ok",
		"path", path, "method", method, "pages", pages,
		"text_bytes", len(text), "elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}
	text = string(out)
	// A form-feed \f is used as page separator by default
	pages = 1 + strings.Count(text, "\f")
	return text, pages, nil, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	images, cleanup, err := e.RenderPages(ctx, path, e.cfg.MaxPages)
	if err != nil {
		return "", 0, nil, err
	}
	defer cleanup()

	var b strings.Builder
	var warns []string
	for _, img := range images {
		txt, w, err := e.tesseractOCR(ctx, img)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n") // keep a clear page break marker
		}
		b.WriteString(txt)
		warns = append(warns, w...)
	}
	return b.String(), len(images), warns, nil
}

// RenderPages rasterizes up to maxPages pages of a PDF to PNG files and
// returns their paths in page order. Call cleanup() to remove them. Also used
// by the vision fallback of the extraction engine.
func (e *Extractor) RenderPages(ctx context.Context, path string, maxPages int) ([]string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "ph-render-*")
	if err != nil {
		return nil, func() {}, err
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("doctext.render.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix); err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("pdftoppm: %s: %w", truncate(string(errb), 1<<10), err)
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if maxPages > 0 && len(matches) > maxPages {
		matches = matches[:maxPages]
	}
	if len(matches) == 0 {
		cleanup()
		return nil, func() {}, fmt.Errorf("pdftoppm produced no images")
	}
	return matches, cleanup, nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.TesseractLang)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil, nil
}

// joinPages normalizes pdftotext/OCR page separators to the single newline
// the extraction engine expects between pages.
func joinPages(text string) string {
	pages := strings.Split(text, "\f")
	trimmed := make([]string, 0, len(pages))
	for _, p := range pages {
		p = strings.TrimSpace(p)
		if p != "" {
			trimmed = append(trimmed, p)
		}
	}
	return strings.Join(trimmed, "\n")
}
