package inventory

import "strings"

type aggregateKey struct {
	name string
	unit string
}

// Aggregate merges items referring to the same product and unit into one
// record. The key is the trimmed, lowercased (normalized name, unit) pair;
// quantity, discount, and total price are summed, every other field comes from
// the first-seen record. Output preserves first-seen order, so aggregating an
// already-aggregated list returns it unchanged.
func Aggregate(items []Item) []Item {
	index := make(map[aggregateKey]int, len(items))
	out := make([]Item, 0, len(items))

	for _, item := range items {
		key := aggregateKey{
			name: strings.ToLower(strings.TrimSpace(item.NormalizedName)),
			unit: strings.ToLower(strings.TrimSpace(item.Unit)),
		}
		if i, ok := index[key]; ok {
			out[i].Quantity += item.Quantity
			out[i].Discount += item.Discount
			out[i].TotalPrice += item.TotalPrice
			continue
		}
		index[key] = len(out)
		out = append(out, item)
	}

	return out
}
