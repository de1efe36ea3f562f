package inventory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mkowalczyk/pantry-tracker/internal/llm"
)

// Raw records carry Polish keys (the prompt schema) with English synonyms
// tolerated. First matching key wins.
var (
	nameKeys       = []string{"nazwa", "produkt", "name"}
	normalizedKeys = []string{"nazwa_znormalizowana", "normalized_name"}
	quantityKeys   = []string{"ilosc", "quantity"}
	unitKeys       = []string{"jednostka", "unit"}
	categoryKeys   = []string{"kategoria", "category"}
	unitPriceKeys  = []string{"cena_jednostkowa", "unit_price"}
	afterPriceKeys = []string{"cena_po_rabacie", "unit_price_after_discount"}
	totalKeys      = []string{"cena_laczna", "total_price"}
	discountKeys   = []string{"rabat", "discount"}
	expiryKeys     = []string{"data_waznosci", "expiry_date"}
	purchaseKeys   = []string{"data_zakupu", "purchase_date"}
	storeKeys      = []string{"sklep", "store"}
	taxKeys        = []string{"kategoria_podatkowa", "tax_category"}
	frozenKeys     = []string{"zamrozony", "frozen"}
	confidenceKeys = []string{"pewnosc", "confidence"}
)

// dateLayouts are the accepted input date formats, tried in order. The stored
// value is always rewritten to ISO YYYY-MM-DD.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02-01-2006",
	"02/01/2006",
	"2006.01.02",
	"2006/01/02",
}

// ValidateAndNormalize converts one raw line item into a typed Item. It
// accumulates every violation instead of stopping at the first, so the caller
// can report all problems at once. On any violation no Item is produced.
//
// Negative numbers are violations here, never silently clamped; clamping is an
// edit-UI concern and happens before this validator runs. The derived prices
// do clamp at zero: a discount larger than the unit price means a free item,
// not a negative one.
func ValidateAndNormalize(raw llm.RawItem) (Item, error) {
	var violations []Violation
	fail := func(field, reason string) {
		violations = append(violations, Violation{Field: field, Reason: reason})
	}

	name := strings.TrimSpace(rawString(raw, nameKeys))
	if name == "" {
		fail("name", "required")
	}

	normalized := strings.TrimSpace(rawString(raw, normalizedKeys))
	if normalized == "" {
		normalized = name
	}

	quantity := requireNumber(raw, quantityKeys, "quantity", true, fail)
	unitPrice := requireNumber(raw, unitPriceKeys, "unit_price", false, fail)
	discount := requireNumber(raw, discountKeys, "discount", false, fail)

	total, totalSupplied := 0.0, false
	if _, ok := rawValue(raw, totalKeys); ok {
		total = requireNumber(raw, totalKeys, "total_price", true, fail)
		totalSupplied = true
	}

	category := strings.TrimSpace(rawString(raw, categoryKeys))
	if category == "" {
		fail("category", "required")
	}

	store := strings.TrimSpace(rawString(raw, storeKeys))
	if store == "" {
		fail("store", "required")
	}

	purchaseDate := ""
	if s := strings.TrimSpace(rawString(raw, purchaseKeys)); s == "" {
		fail("purchase_date", "required")
	} else if normalizedDate, err := normalizeDate(s); err != nil {
		fail("purchase_date", err.Error())
	} else {
		purchaseDate = normalizedDate
	}

	var expiryDate *string
	if s := strings.TrimSpace(rawString(raw, expiryKeys)); s != "" && s != "null" {
		if normalizedDate, err := normalizeDate(s); err != nil {
			fail("expiry_date", err.Error())
		} else {
			expiryDate = &normalizedDate
		}
	}
	if expiryDate != nil && purchaseDate != "" && *expiryDate < purchaseDate {
		fail("expiry_date", "must not precede purchase_date")
	}

	if len(violations) > 0 {
		return Item{}, &ValidationError{Violations: violations}
	}

	// Derived prices. A separately supplied post-discount unit price wins over
	// the computed one.
	unitAfter := unitPrice - discount
	if v, ok := rawValue(raw, afterPriceKeys); ok {
		if n, err := toNumber(v); err == nil {
			unitAfter = n
		}
	}
	if unitAfter < 0 {
		unitAfter = 0
	}
	if !totalSupplied {
		total = unitAfter * quantity
	}
	if total < 0 {
		total = 0
	}

	status := strings.TrimSpace(rawString(raw, []string{"status"}))
	if status == "" {
		status = "available"
	}

	var taxCategory *string
	if s := strings.TrimSpace(rawString(raw, taxKeys)); s != "" && s != "null" {
		taxCategory = &s
	}

	confidence := 0.0
	if v, ok := rawValue(raw, confidenceKeys); ok {
		if n, err := toNumber(v); err == nil {
			confidence = n
		}
	}

	return Item{
		Name:           name,
		NormalizedName: strings.ToLower(normalized),
		Quantity:       quantity,
		Unit:           strings.TrimSpace(rawString(raw, unitKeys)),
		Category:       category,
		ExpiryDate:     expiryDate,
		Store:          store,
		UnitPrice:      unitAfter,
		TotalPrice:     total,
		Discount:       discount,
		PurchaseDate:   purchaseDate,
		Status:         status,
		TaxCategory:    taxCategory,
		Frozen:         rawBool(raw, frozenKeys),
		Confidence:     confidence,
	}, nil
}

// normalizeDate parses s against the accepted layouts, first match wins, and
// returns the canonical ISO form.
func normalizeDate(s string) (string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}

// requireNumber coerces the field to a number, reporting violations via fail.
// When required is false an absent field defaults to zero without violation.
func requireNumber(raw llm.RawItem, keys []string, field string, required bool, fail func(field, reason string)) float64 {
	v, ok := rawValue(raw, keys)
	if !ok {
		if required {
			fail(field, "required")
		}
		return 0
	}

	n, err := toNumber(v)
	if err != nil {
		fail(field, "not a number")
		return 0
	}
	if n < 0 {
		fail(field, "must not be negative")
	}
	return n
}

func rawValue(raw llm.RawItem, keys []string) (any, bool) {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func rawString(raw llm.RawItem, keys []string) string {
	v, ok := rawValue(raw, keys)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func rawBool(raw llm.RawItem, keys []string) bool {
	v, ok := rawValue(raw, keys)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case string:
		return strings.EqualFold(strings.TrimSpace(b), "true")
	default:
		return false
	}
}

// toNumber accepts JSON numbers and numeric strings; strings may use a comma
// decimal separator as printed on Polish receipts.
func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", ".")
		return strconv.ParseFloat(s, 64)
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
