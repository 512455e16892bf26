package service

import (
	"context"
	"fmt"
	"iter"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
	"github.com/jonp69/DL-Homework-Garden/pkg/export"
	"github.com/jonp69/DL-Homework-Garden/pkg/storage"
)

type exportCatalog interface {
	Query(pred func(models.Link) bool) iter.Seq[models.Link]
	LinksByStatus(status models.LinkStatus) []models.Link
	Filters() []models.Filter
	Stats() models.LinkStats
	Batches() []models.Batch
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportRequest selects a collection view and output format.
type ExportRequest struct {
	Kind   string `json:"kind" validate:"required"`
	Format string `json:"format" validate:"required"`
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string              `json:"relative_path"`
	Token        string              `json:"token"`
	URL          string              `json:"url"`
	Kind         models.ExportKind   `json:"kind"`
	Format       models.ExportFormat `json:"format"`
	ExpiresAt    time.Time           `json:"expires_at"`
}

// ExportDownload resolves a signed token to a stored file.
type ExportDownload struct {
	File      *os.File
	Filename  string
	ExpiresAt time.Time
}

// ExportService renders collection views to CSV or PDF files on disk and
// hands out signed download urls. Generation is synchronous: every view is
// built from the in-memory store, so there is nothing to queue.
type ExportService struct {
	catalog   exportCatalog
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(catalog exportCatalog, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		catalog:   catalog,
		storage:   files,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		signer:    signer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate renders the requested view and stores the file.
func (s *ExportService) Generate(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}
	kind := models.ExportKind(req.Kind)
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown export kind %s", req.Kind))
	}
	format := models.ExportFormat(req.Format)
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", req.Format))
	}

	dataset, title := s.buildDataset(kind)

	var payload []byte
	var err error
	switch format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("%s_%s.%s", kind, time.Now().UTC().Format("20060102_150405"), format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(uuid.NewString(), relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Sugar().Infow("export generated", "kind", kind, "format", format, "file", relPath, "rows", len(dataset.Rows))

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Kind:         kind,
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ResolveDownload validates a signed token and opens the stored file.
func (s *ExportService) ResolveDownload(token string) (*ExportDownload, error) {
	_, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "download link is invalid or expired")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
	}
	return &ExportDownload{File: file, Filename: relPath, ExpiresAt: expiresAt}, nil
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL
// when ttl <= 0) and returns the removed paths.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	removed, err := s.storage.CleanupOlderThan(ttl)
	if err == nil && len(removed) > 0 {
		s.logger.Sugar().Infow("stale exports removed", "count", len(removed))
	}
	return removed, err
}

func (s *ExportService) buildDataset(kind models.ExportKind) (export.Dataset, string) {
	switch kind {
	case models.ExportFilters:
		return s.buildFilterDataset(), "Filter Set"
	case models.ExportReview:
		return s.buildReviewDataset(), "Limit Review Queue"
	case models.ExportSummary:
		return s.buildSummaryDataset(), "Collection Summary"
	default:
		return s.buildLinkDataset(), "Link Collection"
	}
}

func (s *ExportService) buildLinkDataset() export.Dataset {
	headers := []string{"URL", "Status", "Filter", "Source", "Items", "Size MB", "Error", "Updated"}
	rows := make([]map[string]string, 0)
	for link := range s.catalog.Query(nil) {
		filterID := ""
		if link.FilterMatchedID != nil {
			filterID = strconv.FormatInt(*link.FilterMatchedID, 10)
		}
		rows = append(rows, map[string]string{
			"URL":     link.URL,
			"Status":  string(link.Status),
			"Filter":  filterID,
			"Source":  string(link.Source),
			"Items":   strconv.Itoa(link.ItemsCount),
			"Size MB": formatSize(link.SizeMB),
			"Error":   deref(link.ErrorMessage),
			"Updated": link.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func (s *ExportService) buildFilterDataset() export.Dataset {
	headers := []string{"ID", "Priority", "Name", "Action", "Rules", "Updated"}
	rows := make([]map[string]string, 0)
	for _, f := range s.catalog.Filters() {
		rows = append(rows, map[string]string{
			"ID":       strconv.FormatInt(f.NumericID, 10),
			"Priority": strconv.Itoa(f.PriorityRank),
			"Name":     f.DisplayName(),
			"Action":   string(f.Action),
			"Rules":    ruleSummary(f.Rules),
			"Updated":  f.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func (s *ExportService) buildReviewDataset() export.Dataset {
	headers := []string{"URL", "Limit", "Items", "Size MB", "Parked At"}
	rows := make([]map[string]string, 0)
	for _, link := range s.catalog.LinksByStatus(models.StatusToSkipLimit) {
		rows = append(rows, map[string]string{
			"URL":       link.URL,
			"Limit":     deref(link.LimitReason),
			"Items":     strconv.Itoa(link.ItemsCount),
			"Size MB":   formatSize(link.SizeMB),
			"Parked At": link.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func (s *ExportService) buildSummaryDataset() export.Dataset {
	stats := s.catalog.Stats()
	headers := []string{"Metric", "Value"}
	rows := []map[string]string{
		{"Metric": "Total links", "Value": strconv.Itoa(stats.Total)},
		{"Metric": "Deleted links", "Value": strconv.Itoa(stats.Deleted)},
	}

	statuses := make([]string, 0, len(stats.ByStatus))
	for status := range stats.ByStatus {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		rows = append(rows, map[string]string{
			"Metric": fmt.Sprintf("Links %s", status),
			"Value":  strconv.Itoa(stats.ByStatus[models.LinkStatus(status)]),
		})
	}

	rows = append(rows,
		map[string]string{"Metric": "Filters", "Value": strconv.Itoa(len(s.catalog.Filters()))},
		map[string]string{"Metric": "Batches", "Value": strconv.Itoa(len(s.catalog.Batches()))},
	)
	return export.Dataset{Headers: headers, Rows: rows}
}

func ruleSummary(rules []models.Rule) string {
	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		pos := "any"
		if r.Position != models.AnyPosition {
			pos = strconv.Itoa(r.Position)
		}
		parts = append(parts, fmt.Sprintf("%s@%s=%s", r.Mode, pos, r.Expression))
	}
	return strings.Join(parts, "; ")
}

func formatSize(mb float64) string {
	return strconv.FormatFloat(mb, 'f', 2, 64)
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
