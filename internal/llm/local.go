package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// localDefaultConfidence is filled in when the local model omits "pewnosc".
// Kept on the 0-1 scale the local models tend to use.
const localDefaultConfidence = 0.8

// Local implements Extractor against an OpenAI-compatible chat endpoint such
// as LM Studio or llama.cpp serving a local model.
type Local struct {
	client   *openai.Client
	model    string
	recorder Recorder
	timeout  time.Duration
}

// NewLocal creates a local-endpoint extractor. The endpoint needs no real API
// key. recorder may be nil.
func NewLocal(baseURL, modelName string, recorder Recorder) *Local {
	if baseURL == "" {
		baseURL = "http://localhost:1234/v1"
	}

	cfg := openai.DefaultConfig("not-needed")
	cfg.BaseURL = baseURL

	return &Local{
		client:   openai.NewClientWithConfig(cfg),
		model:    modelName,
		recorder: recorder,
		timeout:  120 * time.Second,
	}
}

// ExtractLineItems sends the receipt text to the local model and returns the
// parsed line items.
func (l *Local) ExtractLineItems(ctx context.Context, text, storeHint string) ([]RawItem, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(storeHint)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return nil, &BackendError{Backend: "local", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &MalformedResponseError{Raw: "", Err: fmt.Errorf("no choices in completion response")}
	}

	return finishExtraction(l.recorder, "local", resp.Choices[0].Message.Content, storeHint, localDefaultConfidence)
}

// Close is a no-op for the HTTP-based client.
func (l *Local) Close() error {
	return nil
}
