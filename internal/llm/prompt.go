package llm

import "fmt"

// lineItemPrompt is the shared instruction block used by all backends. The
// field names are Polish because the receipts and the local model are; the
// normalizer downstream accepts English synonyms as well.
const lineItemPrompt = `You are analyzing the OCR text of a grocery store receipt. Extract every
purchased product as one JSON object with these fields:

{
  "nazwa": "name exactly as printed on the receipt",
  "nazwa_znormalizowana": "readable, normalized product name",
  "ilosc": number,
  "jednostka": "pcs/kg/l/g/...",
  "kategoria": "product category, e.g. Dairy/Meat/Vegetables/Bakery",
  "cena_jednostkowa": number (unit price before discount),
  "cena_laczna": number (line total),
  "rabat": number (discount applied to this line, 0 if none),
  "data_waznosci": "YYYY-MM-DD or null",
  "data_zakupu": "YYYY-MM-DD",
  "sklep": "store name",
  "status": "available",
  "kategoria_podatkowa": "A/B/C/D/E or null",
  "zamrozony": false,
  "pewnosc": number from 0 to 100 (how confident you are in this line)
}

Rules:
- Handle store-specific quirks (Lidl, Kaufland, Biedronka): promo codes, tax
  letters, weighed products, quantity formats like "2x1,79" or "0.365 x 3,69".
- Normalize terse names (e.g. "PomKroNaszSpiz240g" -> "Pomidory krojone 240g").
- A discount, coupon, or promotion is NEVER a standalone product. Attach the
  discount amount to the product line it modifies.
- Return ONLY a JSON array of these objects. No markdown, no commentary.`

// buildUserPrompt wraps the receipt text and the optional store hint for a
// single-message backend such as Gemini.
func buildUserPrompt(text, storeHint string) string {
	prompt := lineItemPrompt
	if storeHint != "" {
		prompt += fmt.Sprintf("\n\nThe receipt is from the store: %s.", storeHint)
	}
	return prompt + "\n\nReceipt text:\n" + text
}

// systemPrompt is the system message for chat-style backends; the receipt text
// goes into the user message.
func systemPrompt(storeHint string) string {
	prompt := lineItemPrompt
	if storeHint != "" {
		prompt += fmt.Sprintf("\n\nThe receipt is from the store: %s.", storeHint)
	}
	return prompt
}
