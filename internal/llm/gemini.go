package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiDefaultConfidence is filled in when the model omits "pewnosc". The
// Gemini prompt asks for a 0-100 scale.
const geminiDefaultConfidence = 80

// Gemini implements Extractor using the hosted Google Gemini API.
type Gemini struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	recorder Recorder
	timeout  time.Duration
}

// NewGemini creates a Gemini-backed extractor. recorder may be nil.
func NewGemini(apiKey, modelName string, recorder Recorder) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash-lite"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.2)

	return &Gemini{
		client:   client,
		model:    model,
		recorder: recorder,
		timeout:  60 * time.Second,
	}, nil
}

// ExtractLineItems sends the receipt text to Gemini and returns the parsed
// line items.
func (g *Gemini) ExtractLineItems(ctx context.Context, text, storeHint string) ([]RawItem, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx, genai.Text(buildUserPrompt(text, storeHint)))
	if err != nil {
		return nil, &BackendError{Backend: "gemini", Err: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &MalformedResponseError{Raw: "", Err: fmt.Errorf("no candidates in gemini response")}
	}

	var raw strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			raw.WriteString(string(t))
		}
	}

	return finishExtraction(g.recorder, "gemini", raw.String(), storeHint, geminiDefaultConfidence)
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// finishExtraction is the shared tail of every backend: log and record the raw
// response, repair and parse it, fill defaults, drop discount lines.
func finishExtraction(recorder Recorder, backend, raw, storeHint string, confidence float64) ([]RawItem, error) {
	items, repairs, err := decodeItems(raw)

	slog.Debug("backend response", "backend", backend, "raw", raw, "repairs", repairs)
	if recorder != nil {
		if rerr := recorder.Record(backend, raw, repairs); rerr != nil {
			slog.Warn("recording backend response failed", "backend", backend, "error", rerr)
		}
	}

	if err != nil {
		return nil, err
	}

	applyDefaults(items, storeHint, confidence)
	return filterDiscountLines(items), nil
}
