package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/ingest"
	ingestparser "github.com/FACorreiaa/statement-pipeline/internal/domain/ingest/parser"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/ingest/sniffer"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/recurring"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement"
	statementrepo "github.com/FACorreiaa/statement-pipeline/internal/domain/statement/repository"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement/service"
	"github.com/FACorreiaa/statement-pipeline/pkg/config"
	"github.com/FACorreiaa/statement-pipeline/pkg/notify"
	"github.com/FACorreiaa/statement-pipeline/pkg/storage"
)

func main() {
	var (
		daemon  = flag.Bool("daemon", false, "run the recurring rescan scheduler and metrics endpoint")
		rescan  = flag.Bool("rescan", false, "run one recurring rescan and exit")
		verbose = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(logger, *daemon, *rescan, flag.Args()); err != nil {
		logger.Error("extract failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, daemon, rescan bool, files []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := InitDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	switch {
	case rescan:
		return runRescan(ctx, deps)
	case daemon:
		return runDaemon(ctx, deps)
	case len(files) == 0:
		return errors.New("no input files; pass statement files or use -daemon / -rescan")
	default:
		return processFiles(ctx, deps, files)
	}
}

func runRescan(ctx context.Context, deps *Dependencies) error {
	groups, anomalies, err := deps.Recurring.Rescan(ctx)
	if err != nil {
		return fmt.Errorf("rescan: %w", err)
	}
	deps.Logger.Info("rescan finished",
		slog.Int("groups", len(groups)),
		slog.Int("anomalies", len(anomalies)))
	notifyRescan(ctx, deps, groups, anomalies)
	return nil
}

func runDaemon(ctx context.Context, deps *Dependencies) error {
	deps.Scheduler.OnRescanResult(func(ctx context.Context, groups []recurring.Group, anomalies []recurring.Anomaly) {
		notifyRescan(ctx, deps, groups, anomalies)
	})
	if err := deps.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	var srv *http.Server
	if deps.Config.Observability.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", deps.Config.Observability.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			deps.Logger.Info("metrics endpoint listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				deps.Logger.Error("metrics server failed", slog.Any("error", err))
			}
		}()
	}

	<-ctx.Done()
	deps.Logger.Info("shutting down")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
	}
	return nil
}

// processFiles dispatches each input by extension. Image files are collected
// and processed together as the pages of a single scanned document.
func processFiles(ctx context.Context, deps *Dependencies, files []string) error {
	var (
		scanned []string
		failed  int
	)
	for _, path := range files {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp":
			scanned = append(scanned, path)
		case ".csv", ".txt":
			if err := importExport(ctx, deps, path, false); err != nil {
				deps.Logger.Error("csv import failed", slog.String("file", path), slog.Any("error", err))
				failed++
			}
		case ".xlsx", ".xls":
			if err := importExport(ctx, deps, path, true); err != nil {
				deps.Logger.Error("excel import failed", slog.String("file", path), slog.Any("error", err))
				failed++
			}
		case ".pdf":
			if err := extractPDF(ctx, deps, path); err != nil {
				deps.Logger.Error("pdf extraction failed", slog.String("file", path), slog.Any("error", err))
				failed++
			}
		default:
			deps.Logger.Error("unsupported file type", slog.String("file", path))
			failed++
		}
	}

	if len(scanned) > 0 {
		if err := extractImages(ctx, deps, scanned); err != nil {
			deps.Logger.Error("image extraction failed", slog.Any("error", err))
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d input(s) failed", failed)
	}
	return nil
}

func extractPDF(ctx context.Context, deps *Dependencies, path string) error {
	docID := uuid.New()
	ex, err := deps.Statements.ProcessPDF(ctx, docID, path)
	if err != nil {
		if errors.Is(err, service.ErrScannedDocument) {
			return fmt.Errorf("%s has no text layer; rasterize its pages and pass the images instead: %w", path, err)
		}
		return err
	}
	return persistExtraction(ctx, deps, path, ex)
}

func extractImages(ctx context.Context, deps *Dependencies, paths []string) error {
	imgs := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		img, err := imaging.Open(p)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", p, err)
		}
		imgs = append(imgs, img)
	}

	docID := uuid.New()
	ex, err := deps.Statements.ProcessImages(ctx, docID, imgs)
	if err != nil {
		return err
	}
	// Page scans cannot be archived as one file, so only a lone scan is kept.
	archivePath := ""
	if len(paths) == 1 {
		archivePath = paths[0]
	}
	return persist(ctx, deps, statementrepo.DocumentRecord{
		ID:            ex.DocumentID,
		SourceName:    filepath.Base(paths[0]),
		StatementType: ex.StatementType,
		PageCount:     ex.Pages,
		UsedOCR:       ex.UsedOCR,
		QualityScore:  ex.Quality.Score,
		QualityBand:   string(ex.Quality.Band),
	}, ex.Transactions, len(ex.Failures), archivePath)
}

func importExport(ctx context.Context, deps *Dependencies, path string, excel bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	docID := uuid.New()
	cfg := ingestparser.Config{DefaultCurrency: deps.Config.Pipeline.DefaultCurrency}

	var outcome *ingest.Outcome
	if excel {
		outcome, err = deps.Ingest.ImportExcel(ctx, docID, bytes.NewReader(data), cfg)
	} else {
		if fc, derr := sniffer.DetectConfig(data); derr == nil {
			cfg.Delimiter = fc.Delimiter
			cfg.SkipLines = fc.SkipLines
		}
		outcome, err = deps.Ingest.ImportCSV(ctx, docID, bytes.NewReader(data), cfg)
	}
	if err != nil {
		return err
	}

	doc := statementrepo.DocumentRecord{
		ID:           docID,
		SourceName:   filepath.Base(path),
		PageCount:    1,
		QualityScore: outcome.Quality.Score,
		QualityBand:  string(outcome.Quality.Band),
	}
	return persist(ctx, deps, doc, outcome.Transactions, len(outcome.RowErrors), path)
}

func persistExtraction(ctx context.Context, deps *Dependencies, path string, ex *service.Extraction) error {
	doc := statementrepo.DocumentRecord{
		ID:            ex.DocumentID,
		SourceName:    filepath.Base(path),
		StatementType: ex.StatementType,
		PageCount:     ex.Pages,
		UsedOCR:       ex.UsedOCR,
		QualityScore:  ex.Quality.Score,
		QualityBand:   string(ex.Quality.Band),
	}
	return persist(ctx, deps, doc, ex.Transactions, len(ex.Failures), path)
}

func persist(ctx context.Context, deps *Dependencies, doc statementrepo.DocumentRecord, txs []*statement.Transaction, rowErrors int, archivePath string) error {
	if err := deps.TxStore.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	saved, err := deps.TxStore.SaveBatch(ctx, txs)
	if err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}
	deps.Logger.Info("document persisted",
		slog.String("document_id", doc.ID.String()),
		slog.String("source", doc.SourceName),
		slog.Int("transactions", len(txs)),
		slog.Int("saved", saved),
		slog.Int("row_errors", rowErrors),
		slog.Float64("quality_score", doc.QualityScore),
		slog.String("quality_band", doc.QualityBand))

	if deps.Archive != nil && archivePath != "" {
		if err := archiveSource(ctx, deps, doc, archivePath); err != nil {
			deps.Logger.Warn("failed to archive source file",
				slog.String("file", archivePath), slog.Any("error", err))
		}
	}
	if deps.Notifier != nil {
		event := notify.Event{
			Type:  notify.EventExtractionComplete,
			Title: fmt.Sprintf("Extracted %s", doc.SourceName),
			Body:  fmt.Sprintf("%d transactions saved, %s quality", saved, doc.QualityBand),
			Data: map[string]any{
				"document_id":  doc.ID.String(),
				"transactions": saved,
				"row_errors":   rowErrors,
			},
		}
		if err := deps.Notifier.Send(ctx, event); err != nil {
			deps.Logger.Warn("failed to send extraction event", slog.Any("error", err))
		}
	}
	return nil
}

func archiveSource(ctx context.Context, deps *Dependencies, doc statementrepo.DocumentRecord, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = deps.Archive.Archive(ctx, storage.DocumentFile{
		DocumentID:    doc.ID,
		SourceName:    doc.SourceName,
		StatementType: string(doc.StatementType),
		QualityBand:   doc.QualityBand,
	}, f)
	return err
}

func notifyRescan(ctx context.Context, deps *Dependencies, groups []recurring.Group, anomalies []recurring.Anomaly) {
	if deps.Notifier == nil {
		return
	}

	events := make([]notify.Event, 0, len(anomalies)+1)
	events = append(events, notify.Event{
		Type:  notify.EventRescanComplete,
		Title: "Recurring rescan complete",
		Body:  fmt.Sprintf("%d groups detected, %d anomalies flagged", len(groups), len(anomalies)),
	})
	for _, a := range anomalies {
		events = append(events, notify.Event{
			Type:  notify.EventRecurringAnomaly,
			Title: fmt.Sprintf("Unusual charge for %s", a.MerchantKey),
			Body:  fmt.Sprintf("%s against a usual %s", a.Amount.StringFixed(2), a.GroupAverage.StringFixed(2)),
			Data: map[string]any{
				"transaction_id": a.TransactionID.String(),
				"merchant_key":   a.MerchantKey,
				"deviation_pct":  a.DeviationPct,
			},
		})
	}
	if err := deps.Notifier.SendBatch(ctx, events); err != nil {
		deps.Logger.Warn("failed to deliver rescan events", slog.Any("error", err))
	}
}
