package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkowalczyk/pantry-tracker/internal/llm"
)

// TextExtractor is the narrow OCR boundary the service depends on.
type TextExtractor interface {
	ExtractFile(ctx context.Context, path string) (string, error)
}

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// FileNamer generates unique names for stored receipt files.
type FileNamer interface {
	Generate() string
}

type uuidFileNamer struct{}

func (uuidFileNamer) Generate() string {
	return uuid.NewString()
}

// Service drives the receipt reconciliation workflow: upload and OCR, pending
// review, LLM analysis, and the final commit into the inventory store.
type Service struct {
	db         DB
	texts      TextExtractor
	extractor  llm.Extractor
	storage    Storage
	timeSource TimeSource
	fileNamer  FileNamer
}

// NewService creates a Service with the default time source and file namer.
func NewService(db DB, texts TextExtractor, extractor llm.Extractor, storage Storage) *Service {
	return NewServiceWithDeps(db, texts, extractor, storage, defaultTimeSource{}, uuidFileNamer{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing.
func NewServiceWithDeps(db DB, texts TextExtractor, extractor llm.Extractor, storage Storage, timeSource TimeSource, fileNamer FileNamer) *Service {
	return &Service{
		db:         db,
		texts:      texts,
		extractor:  extractor,
		storage:    storage,
		timeSource: timeSource,
		fileNamer:  fileNamer,
	}
}

var filenameSanitizeRe = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizeFilename strips special characters from phone-generated filenames,
// keeping the extension intact.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	base = filenameSanitizeRe.ReplaceAllString(base, "")
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + strings.ToLower(ext)
}

// UploadReceipt stores the file, runs OCR on it, and records a pending
// receipt. The stored file is removed again when any later step fails.
func (s *Service) UploadReceipt(ctx context.Context, filename string, data []byte, store string) (*PendingReceipt, error) {
	name := fmt.Sprintf("%s_%s", s.fileNamer.Generate(), sanitizeFilename(filename))
	path, err := s.storage.Save(name, data)
	if err != nil {
		return nil, fmt.Errorf("saving receipt file: %w", err)
	}

	text, err := s.texts.ExtractFile(ctx, path)
	if err != nil {
		slog.Error("text extraction failed", "filename", filename, "error", err)
		s.storage.Delete(path)
		return nil, err
	}

	id, err := s.db.AddPending(filename, path, store, text)
	if err != nil {
		s.storage.Delete(path)
		return nil, fmt.Errorf("recording pending receipt: %w", err)
	}

	return s.db.GetPending(id)
}

// ListPending returns all pending receipts.
func (s *Service) ListPending() ([]*PendingReceipt, error) {
	return s.db.ListPending()
}

// UpdatePendingText replaces the OCR text of a pending receipt, so the user
// can correct recognition mistakes before analysis.
func (s *Service) UpdatePendingText(id uint, text string) error {
	return s.db.UpdatePendingText(id, text)
}

// DeletePending removes a pending receipt and its backing file.
func (s *Service) DeletePending(id uint) error {
	receipt, err := s.db.GetPending(id)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(receipt.Path); err != nil {
		slog.Warn("failed to delete receipt file", "path", receipt.Path, "error", err)
	}

	return s.db.DeletePending(id)
}

// RejectedItem is a raw line item the normalizer refused, together with every
// violation found in it.
type RejectedItem struct {
	Raw        llm.RawItem `json:"raw"`
	Violations []Violation `json:"violations"`
}

// AnalysisResult is the outcome of running a pending receipt through the
// language model and the normalizer.
type AnalysisResult struct {
	Items    []Item         `json:"items"`
	Rejected []RejectedItem `json:"rejected"`
}

// AnalyzePending sends the receipt's OCR text to the extraction backend and
// normalizes the returned line items. Records that fail validation are
// returned alongside the accepted ones, each with its full violation list.
func (s *Service) AnalyzePending(ctx context.Context, id uint) (*AnalysisResult, error) {
	receipt, err := s.db.GetPending(id)
	if err != nil {
		return nil, err
	}

	rawItems, err := s.extractor.ExtractLineItems(ctx, receipt.OCRText, receipt.Store)
	if err != nil {
		return nil, err
	}

	result := &AnalysisResult{Items: []Item{}, Rejected: []RejectedItem{}}
	for _, raw := range rawItems {
		item, err := ValidateAndNormalize(raw)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				result.Rejected = append(result.Rejected, RejectedItem{Raw: raw, Violations: verr.Violations})
				continue
			}
			return nil, err
		}
		result.Items = append(result.Items, item)
	}

	return result, nil
}

// CommitPending aggregates the reviewed items, inserts them into the
// inventory, and destroys the pending receipt together with its backing file.
// All items are validated up front so a violation fails the commit before
// anything is written.
func (s *Service) CommitPending(id uint, items []Item) ([]uint, error) {
	receipt, err := s.db.GetPending(id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no items to commit")
	}

	aggregated := Aggregate(items)
	for i := range aggregated {
		if err := validateStored(&aggregated[i]); err != nil {
			return nil, err
		}
	}

	ids := make([]uint, 0, len(aggregated))
	for i := range aggregated {
		itemID, err := s.db.InsertItem(&aggregated[i])
		if err != nil {
			return nil, fmt.Errorf("inserting item %q: %w", aggregated[i].Name, err)
		}
		ids = append(ids, itemID)
	}

	if err := s.storage.Delete(receipt.Path); err != nil {
		slog.Warn("failed to delete receipt file", "path", receipt.Path, "error", err)
	}
	if err := s.db.DeletePending(id); err != nil {
		return nil, fmt.Errorf("deleting pending receipt: %w", err)
	}

	return ids, nil
}

// ListItems returns the full inventory.
func (s *Service) ListItems() ([]*Item, error) {
	return s.db.ListItems()
}

// AddItem validates and inserts a manually created item.
func (s *Service) AddItem(item *Item) (uint, error) {
	return s.db.InsertItem(item)
}

// UpdateItem replaces an item by id.
func (s *Service) UpdateItem(id uint, item *Item) error {
	return s.db.UpdateItem(id, item)
}

// DeleteItem removes an item by id.
func (s *Service) DeleteItem(id uint) error {
	return s.db.DeleteItem(id)
}

// Stats is the dashboard summary.
type Stats struct {
	TotalItems   int64   `json:"total_items"`
	Expired      int64   `json:"expired"`
	ExpiringSoon int64   `json:"expiring_soon"`
	MonthSpend   float64 `json:"month_spend"`
}

// Stats computes the dashboard numbers as of now. days sets the
// expiring-soon window.
func (s *Service) Stats(days int) (*Stats, error) {
	now := s.timeSource.Now()

	total, err := s.db.CountItems()
	if err != nil {
		return nil, err
	}
	expired, err := s.db.CountExpired(now)
	if err != nil {
		return nil, err
	}
	expiring, err := s.db.CountExpiringWithin(days, now)
	if err != nil {
		return nil, err
	}
	spend, err := s.db.SumSpendInMonth(now)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalItems:   total,
		Expired:      expired,
		ExpiringSoon: expiring,
		MonthSpend:   spend,
	}, nil
}
