package llm

import "context"

// RawItem is one line item as returned by a backend: an untrusted, loosely
// typed mapping. Field names follow the prompt schema (Polish keys); the
// normalizer downstream also accepts English synonyms. Nothing here is
// validated beyond being JSON.
type RawItem map[string]any

// Extractor converts receipt text into raw line items.
type Extractor interface {
	// ExtractLineItems sends the receipt text to the backend and returns the
	// parsed, default-filled, discount-filtered line items. storeHint may be
	// empty.
	ExtractLineItems(ctx context.Context, text, storeHint string) ([]RawItem, error)
	// Close releases backend resources.
	Close() error
}

// Recorder receives every raw backend response together with the repair steps
// that were applied to it. A nil Recorder disables recording.
type Recorder interface {
	Record(backend, response string, repairs []string) error
}
