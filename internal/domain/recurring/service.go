package recurring

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TransactionSource supplies the detector's input snapshot.
type TransactionSource interface {
	ListSince(ctx context.Context, since time.Time) ([]Transaction, error)
}

// GroupSink persists scan results.
type GroupSink interface {
	ReplaceAll(ctx context.Context, groups []Group) error
}

// lookbackMonths bounds the scan window: a yearly pattern needs at least two
// observations to exist, so anything older than two years cannot form a new
// group.
const lookbackMonths = 24

// Service runs full recurring re-scans over the stored transaction set.
type Service struct {
	source   TransactionSource
	sink     GroupSink
	detector *Detector
	logger   *slog.Logger
}

// NewService wires the scan.
func NewService(source TransactionSource, sink GroupSink, logger *slog.Logger) *Service {
	return &Service{
		source:   source,
		sink:     sink,
		detector: NewDetector(),
		logger:   logger,
	}
}

// Rescan loads the snapshot, detects groups and anomalies, and replaces the
// stored group set. Returns the detected groups and anomalies.
func (s *Service) Rescan(ctx context.Context) ([]Group, []Anomaly, error) {
	since := s.detector.Now().AddDate(0, -lookbackMonths, 0)

	txs, err := s.source.ListSince(ctx, since)
	if err != nil {
		return nil, nil, fmt.Errorf("loading transactions: %w", err)
	}

	groups := s.detector.Detect(txs)
	anomalies := s.detector.FlagAnomalies(groups, txs)

	if err := s.sink.ReplaceAll(ctx, groups); err != nil {
		return nil, nil, fmt.Errorf("storing groups: %w", err)
	}

	s.logger.Info("recurring rescan complete",
		slog.Int("transactions", len(txs)),
		slog.Int("groups", len(groups)),
		slog.Int("anomalies", len(anomalies)),
	)
	return groups, anomalies, nil
}
