// Package ocr wraps the Tesseract engine behind a small collaborator
// interface. Workers are cached per language set with an explicit
// acquire/release lifecycle, so concurrent batches do not contend on a shared
// global and the cache can be torn down at end of batch.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Page is the recognized text of one page plus the engine's best-effort
// confidence signal.
type Page struct {
	Text       string
	Confidence float64
}

// Engine owns a cache of Tesseract workers keyed by language set. The zero
// value is not usable; construct with NewEngine and Close when the batch is
// done.
type Engine struct {
	logger *slog.Logger

	mu      sync.Mutex
	workers map[string]*worker
}

type worker struct {
	mu     sync.Mutex
	client *gosseract.Client
	langs  []string
}

// NewEngine creates an engine. logger may not be nil.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{
		logger:  logger,
		workers: make(map[string]*worker),
	}
}

// Recognize runs OCR over one preprocessed page. If the requested language
// combination is unsupported the engine degrades to English rather than
// failing the page. The context is honored before any engine work starts;
// callers processing multi-page documents get prompt cancellation between
// pages.
func (e *Engine) Recognize(ctx context.Context, img *image.Gray, langs []string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if len(langs) == 0 {
		langs = []string{"eng"}
	}

	buf, err := encodePNG(img)
	if err != nil {
		return Page{}, fmt.Errorf("encoding page for ocr: %w", err)
	}

	page, err := e.recognizeWith(langs, buf)
	if err != nil && len(langs) > 1 {
		// Requested combination unsupported on this host: fall back to a
		// reduced language set.
		e.logger.Warn("ocr language set unavailable, degrading to eng",
			slog.String("requested", strings.Join(langs, "+")),
			slog.Any("error", err),
		)
		page, err = e.recognizeWith([]string{"eng"}, buf)
	}
	if err != nil {
		return Page{}, fmt.Errorf("ocr failed: %w", err)
	}
	return page, nil
}

// RecognizeAll runs OCR page by page, checking for cancellation between
// pages, never only at document boundaries.
func (e *Engine) RecognizeAll(ctx context.Context, imgs []*image.Gray, langs []string) ([]Page, error) {
	pages := make([]Page, 0, len(imgs))
	for _, img := range imgs {
		page, err := e.Recognize(ctx, img, langs)
		if err != nil {
			return pages, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func (e *Engine) recognizeWith(langs []string, buf []byte) (Page, error) {
	w, err := e.acquire(langs)
	if err != nil {
		return Page{}, err
	}
	defer e.release(w)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.client.SetImageFromBytes(buf); err != nil {
		return Page{}, err
	}
	text, err := w.client.Text()
	if err != nil {
		return Page{}, err
	}

	return Page{Text: text, Confidence: meanConfidence(w.client)}, nil
}

// acquire returns the cached worker for the language set, creating it on
// first use.
func (e *Engine) acquire(langs []string) (*worker, error) {
	key := strings.Join(langs, "+")

	e.mu.Lock()
	defer e.mu.Unlock()

	if w, ok := e.workers[key]; ok {
		return w, nil
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(langs...); err != nil {
		client.Close()
		return nil, fmt.Errorf("language set %s: %w", key, err)
	}
	// PSM 6: assume a single uniform block of text, which fits the cropped
	// transaction table region.
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, err
	}

	w := &worker{client: client, langs: langs}
	e.workers[key] = w
	return w, nil
}

func (e *Engine) release(_ *worker) {
	// Workers stay cached for the lifetime of the engine; Close tears the
	// cache down at end of batch.
}

// Close releases every cached worker. The engine must not be used after.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for key, w := range e.workers {
		w.mu.Lock()
		if err := w.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		w.mu.Unlock()
		delete(e.workers, key)
	}
	return firstErr
}

// meanConfidence averages Tesseract's per-line confidences. Returns 0 when no
// lines were recognized.
func meanConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes)) / 100
}

func encodePNG(img *image.Gray) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
