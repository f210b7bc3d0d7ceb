// Package ingest imports structured statement exports (CSV, XLSX) and runs
// them through the same enrichment stages as extracted documents, so every
// transaction reaches consumers in identical shape no matter how it arrived.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/ingest/parser"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement/dedupe"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement/normalizer"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement/quality"
)

// Outcome is the result of importing one export file.
type Outcome struct {
	DocumentID   uuid.UUID
	Transactions []*statement.Transaction
	RowErrors    []parser.RowError
	Quality      quality.Report
}

// Service orchestrates export imports.
type Service struct {
	sanitizer *normalizer.Sanitizer
	assessor  *quality.Assessor
	logger    *slog.Logger
}

// NewService creates the import service.
func NewService(logger *slog.Logger) *Service {
	return &Service{
		sanitizer: normalizer.NewSanitizer(),
		assessor:  quality.NewAssessor(),
		logger:    logger,
	}
}

// ImportCSV parses a CSV export and enriches the result.
func (s *Service) ImportCSV(ctx context.Context, docID uuid.UUID, r io.Reader, cfg parser.Config) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := parser.New(cfg).Parse(r)
	if err != nil {
		return nil, fmt.Errorf("import csv: %w", err)
	}
	return s.finish(docID, result), nil
}

// ImportExcel parses an XLSX export and enriches the result.
func (s *Service) ImportExcel(ctx context.Context, docID uuid.UUID, r io.Reader, cfg parser.Config) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := parser.NewExcel(cfg).Parse(r)
	if err != nil {
		return nil, fmt.Errorf("import excel: %w", err)
	}
	return s.finish(docID, result), nil
}

func (s *Service) finish(docID uuid.UUID, result *parser.Result) *Outcome {
	for _, tx := range result.Transactions {
		tx.DocumentID = docID
		info := s.sanitizer.Normalize(tx.Description, tx.Amount)
		tx.Merchant = info.NormalizedName
		tx.Category = info.Category
		tx.Kind = info.Kind
	}

	txs := dedupe.Dedupe(result.Transactions)
	report := s.assessor.Assess(txs, result.TotalRows, result.TotalRows, 1)

	s.logger.Info("export imported",
		slog.String("document_id", docID.String()),
		slog.Int("rows", result.TotalRows),
		slog.Int("transactions", len(txs)),
		slog.Int("row_errors", len(result.Errors)),
		slog.Float64("quality", report.Score),
	)

	return &Outcome{
		DocumentID:   docID,
		Transactions: txs,
		RowErrors:    result.Errors,
		Quality:      report,
	}
}
