package inventory

import "time"

// Item is a validated, normalized inventory record. Only the normalizer and
// the store produce these; raw backend output never leaves the llm package
// untyped.
type Item struct {
	ID             uint    `json:"id" gorm:"primaryKey"`
	Name           string  `json:"name" gorm:"index"`
	NormalizedName string  `json:"normalized_name" gorm:"index"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	Category       string  `json:"category" gorm:"index"`
	ExpiryDate     *string `json:"expiry_date" gorm:"index"` // ISO YYYY-MM-DD
	Store          string  `json:"store" gorm:"index"`
	UnitPrice      float64 `json:"unit_price"` // post-discount
	TotalPrice     float64 `json:"total_price"`
	Discount       float64 `json:"discount"`
	PurchaseDate   string  `json:"purchase_date" gorm:"index"` // ISO YYYY-MM-DD
	Status         string  `json:"status" gorm:"index"`
	TaxCategory    *string `json:"tax_category"`
	Frozen         bool    `json:"frozen"`
	Confidence     float64 `json:"confidence"`
}

// TableName keeps the table name stable across gorm naming strategies.
func (Item) TableName() string {
	return "inventory_items"
}

// PendingReceipt is an uploaded receipt awaiting review, analysis, and commit.
// It owns its backing file: deleting or committing the receipt deletes the
// file too.
type PendingReceipt struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Store     string    `json:"store"`
	OCRText   string    `json:"ocr_text" gorm:"column:ocr_text"`
	CreatedAt time.Time `json:"created_at"`
}

func (PendingReceipt) TableName() string {
	return "pending_receipts"
}
