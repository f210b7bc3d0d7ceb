// Package service orchestrates the extraction pipeline: document text in,
// normalized deduplicated transactions plus a confidence report out. Each
// stage is a collaborator owned by the service; row-level failures are
// collected and reported, only document-level failures abort.
package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement/dedupe"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement/fields"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement/layout"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement/normalizer"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement/quality"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement/rows"
	"github.com/FACorreiaa/statement-pipeline/internal/extractor/ocr"
	"github.com/FACorreiaa/statement-pipeline/internal/extractor/pdftext"
	"github.com/FACorreiaa/statement-pipeline/internal/extractor/preprocess"
	"github.com/FACorreiaa/statement-pipeline/pkg/metrics"
)

// ErrScannedDocument is returned by ProcessPDF when the document has no
// readable text layer. The caller should rasterize the pages and retry
// through ProcessImages.
var ErrScannedDocument = errors.New("document is image-based, needs ocr")

// DocumentError wraps a failure with the document it belongs to and the
// pipeline stage that produced it. One bad document never poisons a batch;
// callers match on this type to attribute the failure.
type DocumentError struct {
	DocumentID uuid.UUID
	Stage      string
	Err        error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %s: stage %s: %v", e.DocumentID, e.Stage, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// Extraction is the full result for one document.
type Extraction struct {
	DocumentID    uuid.UUID
	StatementType statement.Type
	Bounds        statement.TableBounds
	Transactions  []*statement.Transaction
	Failures      []fields.Failure
	Quality       quality.Report
	Pages         int
	UsedOCR       bool
}

// Recognizer is the OCR collaborator. *ocr.Engine satisfies it.
type Recognizer interface {
	Recognize(ctx context.Context, img *image.Gray, langs []string) (ocr.Page, error)
}

// Config tunes the pipeline.
type Config struct {
	// Languages passed to the OCR engine, e.g. ["ara", "eng"].
	Languages []string
	// Crop trims page margins before OCR; nil disables cropping.
	Crop *preprocess.CropRegion
	// ExpectedRowsPerPage feeds the confidence assessor's shortfall check.
	ExpectedRowsPerPage int
	// ParserOptions configures field parsing. Zero value uses defaults.
	ParserOptions fields.Options
}

// Service runs the pipeline.
type Service struct {
	cfg        Config
	recognizer Recognizer
	parser     *fields.Parser
	sanitizer  *normalizer.Sanitizer
	assessor   *quality.Assessor
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// New creates the pipeline service. recognizer may be nil when only
// text-layer documents will be processed.
func New(cfg Config, recognizer Recognizer, logger *slog.Logger, m *metrics.Metrics) *Service {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"ara", "eng"}
	}
	if cfg.ExpectedRowsPerPage <= 0 {
		cfg.ExpectedRowsPerPage = 25
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Service{
		cfg:        cfg,
		recognizer: recognizer,
		parser:     fields.NewParser(cfg.ParserOptions),
		sanitizer:  normalizer.NewSanitizer(),
		assessor:   quality.NewAssessor(),
		logger:     logger,
		metrics:    m,
	}
}

// ProcessPDF extracts from a PDF's embedded text layer. Returns
// ErrScannedDocument (wrapped in a DocumentError) when no readable text layer
// exists.
func (s *Service) ProcessPDF(ctx context.Context, docID uuid.UUID, path string) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, s.fail(docID, "pdftext", err)
	}

	start := time.Now()
	pages, err := pdftext.ExtractPages(path)
	s.observe("pdftext", start)
	if err != nil {
		if errors.Is(err, pdftext.ErrNoTextLayer) {
			return nil, s.fail(docID, "pdftext", ErrScannedDocument)
		}
		return nil, s.fail(docID, "pdftext", err)
	}

	return s.ExtractText(ctx, docID, pages, false)
}

// ProcessImages runs scanned pages through preprocessing and OCR, then
// extracts from the recognized text. Cancellation is checked between pages.
func (s *Service) ProcessImages(ctx context.Context, docID uuid.UUID, imgs []image.Image) (*Extraction, error) {
	if s.recognizer == nil {
		return nil, s.fail(docID, "ocr", errors.New("no ocr engine configured"))
	}
	s.metrics.OCRFallbacks.Inc()

	pages := make([]string, 0, len(imgs))
	for i, img := range imgs {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(docID, "ocr", err)
		}

		start := time.Now()
		gray, err := preprocess.Run(img, s.cfg.Crop)
		s.observe("preprocess", start)
		if err != nil {
			return nil, s.fail(docID, "preprocess", fmt.Errorf("page %d: %w", i+1, err))
		}

		start = time.Now()
		page, err := s.recognizer.Recognize(ctx, gray, s.cfg.Languages)
		s.observe("ocr", start)
		if err != nil {
			return nil, s.fail(docID, "ocr", fmt.Errorf("page %d: %w", i+1, err))
		}
		s.logger.Debug("page recognized",
			slog.String("document_id", docID.String()),
			slog.Int("page", i+1),
			slog.Float64("confidence", page.Confidence),
		)
		pages = append(pages, page.Text)
	}

	return s.ExtractText(ctx, docID, pages, true)
}

// ExtractText runs layout detection through quality assessment over
// already-extracted page text.
func (s *Service) ExtractText(ctx context.Context, docID uuid.UUID, pages []string, usedOCR bool) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, s.fail(docID, "extract", err)
	}

	lines := splitLines(pages)
	for i := range lines {
		lines[i] = repairOCRNoise(lines[i])
	}

	start := time.Now()
	typ := layout.DetectType(strings.Join(lines, "\n"))
	bounds := layout.LocateTableBounds(lines, typ)
	s.observe("layout", start)

	start = time.Now()
	rec := rows.NewReconstructor(typ)
	tableRows := rec.Reconstruct(lines[bounds.Start:bounds.End], bounds.Start)
	s.observe("rows", start)

	start = time.Now()
	txs := make([]*statement.Transaction, 0, len(tableRows))
	var failures []fields.Failure
	for _, row := range tableRows {
		tx, failure := s.parser.ParseRow(row, typ)
		if failure != nil {
			failures = append(failures, *failure)
			s.metrics.RowsDropped.WithLabelValues(string(failure.Reason)).Inc()
			continue
		}
		tx.DocumentID = docID

		info := s.sanitizer.Normalize(tx.Description, tx.Amount)
		tx.Merchant = info.NormalizedName
		tx.Category = info.Category
		tx.Kind = info.Kind
		txs = append(txs, tx)
	}
	s.observe("fields", start)

	txs = dedupe.Dedupe(txs)

	report := s.assessor.Assess(txs, len(tableRows), s.cfg.ExpectedRowsPerPage, len(pages))
	s.metrics.QualityScore.Observe(report.Score)
	s.metrics.TransactionsExtracted.Add(float64(len(txs)))
	s.metrics.DocumentsProcessed.WithLabelValues("ok").Inc()

	s.logger.Info("document extracted",
		slog.String("document_id", docID.String()),
		slog.String("layout", string(typ)),
		slog.Int("pages", len(pages)),
		slog.Int("rows", len(tableRows)),
		slog.Int("transactions", len(txs)),
		slog.Int("dropped", len(failures)),
		slog.Float64("quality", report.Score),
		slog.String("band", string(report.Band)),
	)

	return &Extraction{
		DocumentID:    docID,
		StatementType: typ,
		Bounds:        bounds,
		Transactions:  txs,
		Failures:      failures,
		Quality:       report,
		Pages:         len(pages),
		UsedOCR:       usedOCR,
	}, nil
}

// ShouldSkipOCR reports whether a text-layer extraction is trustworthy enough
// to not bother with the OCR fallback, with human-readable reasons when it is
// not.
func (s *Service) ShouldSkipOCR(ex *Extraction) (bool, []string) {
	return s.assessor.IsGoodEnoughToSkipOCR(ex.Transactions)
}

func (s *Service) fail(docID uuid.UUID, stage string, err error) error {
	outcome := "failed"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		outcome = "canceled"
	}
	s.metrics.DocumentsProcessed.WithLabelValues(outcome).Inc()
	s.logger.Error("document processing stopped",
		slog.String("document_id", docID.String()),
		slog.String("stage", stage),
		slog.Any("error", err),
	)
	return &DocumentError{DocumentID: docID, Stage: stage, Err: err}
}

func (s *Service) observe(stage string, start time.Time) {
	s.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func splitLines(pages []string) []string {
	var lines []string
	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			lines = append(lines, strings.TrimRight(line, " \t\r"))
		}
	}
	return lines
}

// Tesseract habitually misreads the decimal period as a semicolon or colon.
var (
	semiAsPeriodRe  = regexp.MustCompile(`(\d);(\s*)(\d{2}\b)`)
	colonAsPeriodRe = regexp.MustCompile(`(\d):(\d{2}\b)`)
	trailingMarkRe  = regexp.MustCompile(`(\d)[:;](\s|$)`)
)

func repairOCRNoise(line string) string {
	line = semiAsPeriodRe.ReplaceAllString(line, "$1.$3")
	line = colonAsPeriodRe.ReplaceAllString(line, "$1.$2")
	line = trailingMarkRe.ReplaceAllString(line, "$1$2")
	return line
}
