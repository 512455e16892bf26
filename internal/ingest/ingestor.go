package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/classify"
	"github.com/jonp69/DL-Homework-Garden/internal/models"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

type batchStore interface {
	BatchByPath(path string) (models.Batch, bool)
	UpsertBatch(ctx context.Context, b models.Batch) error
	Batches() []models.Batch
}

type urlClassifier interface {
	ClassifyURL(ctx context.Context, rawURL string, source models.LinkSource, sourceFile string) (classify.Result, error)
}

type captureStorage interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
}

// Report summarises one ingestion run over a single source.
type Report struct {
	Path       string             `json:"path"`
	Status     models.BatchStatus `json:"status"`
	LinksFound int                `json:"links_found"`
	Classified int                `json:"classified"`
	Skipped    bool               `json:"skipped"`
}

// Config wires the ingestor's collaborators.
type Config struct {
	Store      batchStore
	Classifier urlClassifier
	Captures   captureStorage
	Logger     *zap.Logger
}

// Ingestor extracts links from text sources and feeds them to the
// classifier, one tracked batch per file.
type Ingestor struct {
	store      batchStore
	classifier urlClassifier
	captures   captureStorage
	logger     *zap.Logger
}

// New builds an ingestor instance.
func New(cfg Config) *Ingestor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		store:      cfg.Store,
		classifier: cfg.Classifier,
		captures:   cfg.Captures,
		logger:     logger,
	}
}

// ProcessFile ingests one link file. Files already recorded as fully
// processed are skipped unless force is set; halted files always resume.
func (ing *Ingestor) ProcessFile(ctx context.Context, path string, force bool) (Report, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	if !force {
		if batch, ok := ing.store.BatchByPath(abs); ok && !batch.Resumable() {
			ing.logger.Sugar().Debugw("batch already processed", "file", abs, "status", batch.Status)
			return Report{Path: abs, Status: batch.Status, Skipped: true}, nil
		}
	}

	var size int64
	if info, statErr := os.Stat(abs); statErr == nil {
		size = info.Size()
	}

	content, err := ReadFileText(abs)
	if err != nil {
		if upErr := ing.store.UpsertBatch(ctx, models.Batch{
			Path:        abs,
			Source:      models.SourceFile,
			Status:      models.BatchError,
			SizeBytes:   size,
			ProcessedAt: time.Now().UTC(),
		}); upErr != nil {
			ing.logger.Sugar().Errorw("failed to record batch error", "file", abs, "error", upErr)
		}
		return Report{Path: abs, Status: models.BatchError}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable link file")
	}

	return ing.processContent(ctx, abs, models.SourceFile, content, size)
}

// ProcessClipboard saves the capture verbatim to Clipboard_<epoch>.txt before
// any tokenization, then ingests it like a file batch. Unconsumed input is
// never lost even when the run halts.
func (ing *Ingestor) ProcessClipboard(ctx context.Context, content string) (Report, error) {
	filename := fmt.Sprintf("Clipboard_%d.txt", time.Now().Unix())
	if _, err := ing.captures.Save(filename, []byte(content)); err != nil {
		return Report{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist clipboard capture")
	}
	path := ing.captures.Path(filename)
	ing.logger.Sugar().Infow("clipboard captured", "file", path, "bytes", len(content))

	return ing.processContent(ctx, path, models.SourceClipboard, content, int64(len(content)))
}

func (ing *Ingestor) processContent(ctx context.Context, path string, source models.LinkSource, content string, size int64) (Report, error) {
	urls := ExtractURLs(content)
	report := Report{Path: path, LinksFound: len(urls)}

	record := func(status models.BatchStatus) error {
		report.Status = status
		return ing.store.UpsertBatch(ctx, models.Batch{
			Path:        path,
			Source:      source,
			Status:      status,
			SizeBytes:   size,
			LinksFound:  len(urls),
			ProcessedAt: time.Now().UTC(),
		})
	}

	for _, url := range urls {
		res, err := ing.classifier.ClassifyURL(ctx, url, source, path)
		if err != nil {
			// A canceled context halts the batch so it can resume later;
			// anything else is a real ingestion error.
			status := models.BatchError
			if ctx.Err() != nil {
				status = models.BatchProcessedHalted
			}
			if recErr := record(status); recErr != nil {
				ing.logger.Sugar().Errorw("failed to record batch status", "file", path, "error", recErr)
			}
			return report, err
		}
		if res.Outcome == classify.OutcomeHalted {
			ing.logger.Sugar().Infow("ingestion halted pending new filter", "file", path, "url", url)
			return report, record(models.BatchProcessedHalted)
		}
		report.Classified++
	}

	if err := record(models.BatchProcessed); err != nil {
		return report, err
	}
	ing.logger.Sugar().Infow("batch processed", "file", path, "links", len(urls))
	return report, nil
}

// ScanDirectory walks a directory tree and ingests every regular file.
// Individual file failures are reported in their batch records and do not
// stop the scan; a halt stops it, leaving the rest for the next scan.
func (ing *Ingestor) ScanDirectory(ctx context.Context, dir string) ([]Report, error) {
	var reports []Report
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		report, err := ing.ProcessFile(ctx, path, false)
		if err != nil {
			ing.logger.Sugar().Warnw("file ingestion failed", "file", path, "error", err)
			reports = append(reports, report)
			return nil
		}
		if !report.Skipped {
			reports = append(reports, report)
		}
		if report.Status == models.BatchProcessedHalted && !report.Skipped {
			return errHaltScan
		}
		return nil
	})
	if err == errHaltScan {
		return reports, nil
	}
	return reports, err
}

var errHaltScan = fmt.Errorf("ingestion scan halted")

// ResumeHalted re-runs every batch recorded as halted.
func (ing *Ingestor) ResumeHalted(ctx context.Context) ([]Report, error) {
	var reports []Report
	for _, batch := range ing.store.Batches() {
		if !batch.Resumable() {
			continue
		}
		report, err := ing.ProcessFile(ctx, batch.Path, false)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
		if report.Status == models.BatchProcessedHalted {
			break
		}
	}
	return reports, nil
}
