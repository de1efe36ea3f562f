package llm

import (
	"strings"
	"time"
)

// Terms that mark a line as a discount/coupon/promotion rather than a product.
// Discounts are a modifier on a product line; letting one through as its own
// item corrupts counts and spend totals.
var discountTerms = []string{
	"rabat", "kupon", "zniżka", "upust", "promocja",
	"voucher", "bon", "obniżka", "zniż", "discount", "coupon",
}

// itemName picks the name used for discount matching: the normalized name when
// present, otherwise the display name.
func itemName(item RawItem) string {
	for _, key := range []string{"nazwa_znormalizowana", "normalized_name", "nazwa", "produkt", "name"} {
		if v, ok := item[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// filterDiscountLines drops every item whose name contains a discount term,
// case-insensitively. All other items pass through unchanged.
func filterDiscountLines(items []RawItem) []RawItem {
	kept := make([]RawItem, 0, len(items))
	for _, item := range items {
		name := strings.ToLower(itemName(item))
		discount := false
		for _, term := range discountTerms {
			if strings.Contains(name, term) {
				discount = true
				break
			}
		}
		if !discount {
			kept = append(kept, item)
		}
	}
	return kept
}

// applyDefaults fills the optional fields a backend commonly omits. The
// confidence default is backend-specific. Empty or literal "null" dates are
// treated as absent; an absent expiry date stays absent.
func applyDefaults(items []RawItem, storeHint string, confidence float64) {
	today := time.Now().Format("2006-01-02")
	store := storeHint
	if strings.TrimSpace(store) == "" {
		store = "unknown"
	}

	for _, item := range items {
		if isBlank(item["data_zakupu"]) && isBlank(item["purchase_date"]) {
			item["data_zakupu"] = today
		}
		if isBlank(item["data_waznosci"]) {
			delete(item, "data_waznosci")
		}
		if isBlank(item["sklep"]) && isBlank(item["store"]) {
			item["sklep"] = store
		}
		if isBlank(item["status"]) {
			item["status"] = "available"
		}
		if _, ok := item["zamrozony"]; !ok {
			if _, ok := item["frozen"]; !ok {
				item["zamrozony"] = false
			}
		}
		if isBlank(item["pewnosc"]) && isBlank(item["confidence"]) {
			item["pewnosc"] = confidence
		}
	}
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		return s == "" || s == "null"
	}
	return false
}
