package inventory

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB defines the persistence operations for inventory items and pending
// receipts. Each call is a single transactional unit: it either fully applies
// or leaves the store untouched.
type DB interface {
	// InsertItem validates required fields, assigns a new id, and stores the
	// item. Returns ValidationError on violation.
	InsertItem(item *Item) (uint, error)

	// GetItem retrieves an item by id. Returns NotFoundError if absent.
	GetItem(id uint) (*Item, error)

	// UpdateItem replaces the full record. Returns NotFoundError if the id
	// does not exist and ValidationError on violation.
	UpdateItem(id uint, item *Item) error

	// DeleteItem removes an item; a no-op if the id is absent.
	DeleteItem(id uint) error

	// ListItems returns all items in insertion order.
	ListItems() ([]*Item, error)

	// CountItems returns the total number of items.
	CountItems() (int64, error)

	// CountExpired counts items whose expiry date is set and strictly before
	// asOf.
	CountExpired(asOf time.Time) (int64, error)

	// CountExpiringWithin counts items whose expiry date falls in the closed
	// interval [asOf, asOf+days].
	CountExpiringWithin(days int, asOf time.Time) (int64, error)

	// SumSpendInMonth sums total prices of items purchased between the first
	// day of asOf's month and asOf inclusive. No matching rows sums to zero.
	SumSpendInMonth(asOf time.Time) (float64, error)

	// AddPending stores a pending receipt and returns its id.
	AddPending(filename, path, store, ocrText string) (uint, error)

	// GetPending retrieves a pending receipt by id. Returns NotFoundError if
	// absent.
	GetPending(id uint) (*PendingReceipt, error)

	// UpdatePendingText replaces the OCR text of a pending receipt. Returns
	// NotFoundError if absent.
	UpdatePendingText(id uint, text string) error

	// ListPending returns all pending receipts in insertion order.
	ListPending() ([]*PendingReceipt, error)

	// DeletePending removes the pending receipt metadata; the caller owns
	// removal of the backing file.
	DeletePending(id uint) error

	// Close closes the database connection.
	Close() error
}

// GormDB implements DB on sqlite via gorm.
type GormDB struct {
	db *gorm.DB
}

// NewGormDB opens (or creates) the sqlite database at path and brings the
// schema up to date. Migration is additive only: missing tables and columns
// are created, nothing is dropped or renamed.
func NewGormDB(path string) (*GormDB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.AutoMigrate(&Item{}, &PendingReceipt{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &GormDB{db: db}, nil
}

// validateStored re-runs the required-field and numeric checks before any
// write. The normalizer already enforces these; this is the second line of
// defense between UI-level editing and persistence.
func validateStored(item *Item) error {
	var violations []Violation
	require := func(field, value string) {
		if value == "" {
			violations = append(violations, Violation{Field: field, Reason: "required"})
		}
	}
	nonNegative := func(field string, value float64) {
		if value < 0 {
			violations = append(violations, Violation{Field: field, Reason: "must not be negative"})
		}
	}

	require("name", item.Name)
	require("normalized_name", item.NormalizedName)
	require("category", item.Category)
	require("store", item.Store)
	require("purchase_date", item.PurchaseDate)
	nonNegative("quantity", item.Quantity)
	nonNegative("unit_price", item.UnitPrice)
	nonNegative("total_price", item.TotalPrice)
	nonNegative("discount", item.Discount)

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// InsertItem validates and stores a new item, returning the assigned id.
func (g *GormDB) InsertItem(item *Item) (uint, error) {
	if err := validateStored(item); err != nil {
		return 0, err
	}

	item.ID = 0
	if err := g.db.Create(item).Error; err != nil {
		return 0, fmt.Errorf("inserting item: %w", err)
	}
	return item.ID, nil
}

// GetItem retrieves an item by id.
func (g *GormDB) GetItem(id uint) (*Item, error) {
	var item Item
	if err := g.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Kind: "item", ID: id}
		}
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return &item, nil
}

// UpdateItem replaces the full record at id.
func (g *GormDB) UpdateItem(id uint, item *Item) error {
	if err := validateStored(item); err != nil {
		return err
	}

	return g.db.Transaction(func(tx *gorm.DB) error {
		var existing Item
		if err := tx.First(&existing, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Kind: "item", ID: id}
			}
			return fmt.Errorf("getting item for update: %w", err)
		}

		item.ID = id
		if err := tx.Save(item).Error; err != nil {
			return fmt.Errorf("updating item: %w", err)
		}
		return nil
	})
}

// DeleteItem removes an item; absent ids are a no-op.
func (g *GormDB) DeleteItem(id uint) error {
	if err := g.db.Delete(&Item{}, id).Error; err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// ListItems returns all items in insertion order.
func (g *GormDB) ListItems() ([]*Item, error) {
	items := make([]*Item, 0)
	if err := g.db.Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// CountItems returns the total item count.
func (g *GormDB) CountItems() (int64, error) {
	var count int64
	if err := g.db.Model(&Item{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return count, nil
}

// CountExpired counts items expired strictly before asOf.
func (g *GormDB) CountExpired(asOf time.Time) (int64, error) {
	var count int64
	err := g.db.Model(&Item{}).
		Where("expiry_date IS NOT NULL AND expiry_date <> '' AND expiry_date < ?", isoDate(asOf)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting expired items: %w", err)
	}
	return count, nil
}

// CountExpiringWithin counts items expiring in [asOf, asOf+days].
func (g *GormDB) CountExpiringWithin(days int, asOf time.Time) (int64, error) {
	var count int64
	until := asOf.AddDate(0, 0, days)
	err := g.db.Model(&Item{}).
		Where("expiry_date IS NOT NULL AND expiry_date <> '' AND expiry_date >= ? AND expiry_date <= ?",
			isoDate(asOf), isoDate(until)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting expiring items: %w", err)
	}
	return count, nil
}

// SumSpendInMonth sums total prices from the first of asOf's month through
// asOf inclusive.
func (g *GormDB) SumSpendInMonth(asOf time.Time) (float64, error) {
	monthStart := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, asOf.Location())

	var total float64
	err := g.db.Model(&Item{}).
		Select("COALESCE(SUM(total_price), 0)").
		Where("purchase_date >= ? AND purchase_date <= ?", isoDate(monthStart), isoDate(asOf)).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("summing month spend: %w", err)
	}
	return total, nil
}

// AddPending stores a new pending receipt.
func (g *GormDB) AddPending(filename, path, store, ocrText string) (uint, error) {
	receipt := PendingReceipt{
		Filename:  filename,
		Path:      path,
		Store:     store,
		OCRText:   ocrText,
		CreatedAt: time.Now(),
	}
	if err := g.db.Create(&receipt).Error; err != nil {
		return 0, fmt.Errorf("adding pending receipt: %w", err)
	}
	return receipt.ID, nil
}

// GetPending retrieves a pending receipt by id.
func (g *GormDB) GetPending(id uint) (*PendingReceipt, error) {
	var receipt PendingReceipt
	if err := g.db.First(&receipt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Kind: "pending receipt", ID: id}
		}
		return nil, fmt.Errorf("getting pending receipt: %w", err)
	}
	return &receipt, nil
}

// UpdatePendingText replaces the OCR text of a pending receipt.
func (g *GormDB) UpdatePendingText(id uint, text string) error {
	result := g.db.Model(&PendingReceipt{}).Where("id = ?", id).Update("ocr_text", text)
	if result.Error != nil {
		return fmt.Errorf("updating pending receipt text: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Kind: "pending receipt", ID: id}
	}
	return nil
}

// ListPending returns all pending receipts in insertion order.
func (g *GormDB) ListPending() ([]*PendingReceipt, error) {
	receipts := make([]*PendingReceipt, 0)
	if err := g.db.Order("id").Find(&receipts).Error; err != nil {
		return nil, fmt.Errorf("listing pending receipts: %w", err)
	}
	return receipts, nil
}

// DeletePending removes the pending receipt metadata.
func (g *GormDB) DeletePending(id uint) error {
	if err := g.db.Delete(&PendingReceipt{}, id).Error; err != nil {
		return fmt.Errorf("deleting pending receipt: %w", err)
	}
	return nil
}

// Close closes the underlying sql connection.
func (g *GormDB) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isoDate(t time.Time) string {
	return t.Format("2006-01-02")
}
