package embedding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	geminiModel    = "text-embedding-004"
	geminiEndpoint = "https://generativelanguage.googleapis.com/v1/models/%s:embedContent"
)

// GeminiProvider embeds through the hosted Gemini API. text-embedding-004
// returns 768-dim vectors, matching the note_embeddings column.
type GeminiProvider struct {
	apiKey string
	client *http.Client
}

func NewGeminiProvider(apiKey string) EmbeddingProvider {
	return &GeminiProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *GeminiProvider) Generate(text string, taskType string) (*EmbeddingResponse, error) {
	payload, err := json.Marshal(EmbeddingRequest{
		Model: geminiModel,
		Content: EmbeddingRequestContent{
			Parts: []EmbeddingRequestContentPart{{Text: text}},
		},
		TaskType: taskType,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", fmt.Sprintf(geminiEndpoint, geminiModel), bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini embedding: status %d: %s", res.StatusCode, string(body))
	}

	var embeddingRes EmbeddingResponse
	if err := json.Unmarshal(body, &embeddingRes); err != nil {
		return nil, fmt.Errorf("gemini embedding: decode response: %w", err)
	}
	return &embeddingRes, nil
}
