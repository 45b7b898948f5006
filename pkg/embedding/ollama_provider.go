package embedding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "nomic-embed-text"
)

// OllamaProvider embeds through a local Ollama server so a clinic can run
// the whole pipeline without sending note text to a hosted API.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaProvider(baseURL string, model string) EmbeddingProvider {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Generate ignores taskType: nomic-embed-text has no document/query split.
func (p *OllamaProvider) Generate(text string, taskType string) (*EmbeddingResponse, error) {
	payload, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, err
	}

	res, err := p.client.Post(p.baseURL+"/api/embeddings", "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama embedding request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embedding: status %d: %s", res.StatusCode, string(body))
	}

	var embedRes ollamaEmbedResponse
	if err := json.Unmarshal(body, &embedRes); err != nil {
		return nil, fmt.Errorf("ollama embedding: decode response: %w", err)
	}

	values := make([]float32, len(embedRes.Embedding))
	for i, v := range embedRes.Embedding {
		values[i] = float32(v)
	}

	// Cosine search assumes unit vectors; ollama does not normalize.
	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{Values: normalizeVector(values)},
	}, nil
}

func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
