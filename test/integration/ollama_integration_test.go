// Exercises the Ollama providers against a locally running server.
// Skips when Ollama is not reachable, so CI without a GPU box stays green.

package integration

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"clinical-scribe-be/pkg/embedding"
	"clinical-scribe-be/pkg/llm"
	"clinical-scribe-be/pkg/llm/ollama"
)

func ollamaBaseURL() string {
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:11434"
}

func requireOllama(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ollamaBaseURL(), nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		t.Skipf("Skipping integration test: Ollama not running at %s: %v", ollamaBaseURL(), err)
	}
	res.Body.Close()
}

func TestOllamaChatCompletion(t *testing.T) {
	requireOllama(t)

	model := os.Getenv("OLLAMA_LLM_MODEL")
	if model == "" {
		model = "gemma:2b"
	}

	provider := ollama.NewOllamaProvider(ollamaBaseURL(), model)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	response, err := provider.Chat(ctx, []llm.Message{
		{Role: "user", Content: "Say 'Ollama works!' in one short sentence."},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if response == "" {
		t.Error("Response should not be empty")
	}
	t.Logf("Response: %s", response)
}

func TestOllamaMultiTurnConversation(t *testing.T) {
	requireOllama(t)

	model := os.Getenv("OLLAMA_LLM_MODEL")
	if model == "" {
		model = "gemma:2b"
	}

	provider := ollama.NewOllamaProvider(ollamaBaseURL(), model)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	response, err := provider.Chat(ctx, []llm.Message{
		{Role: "user", Content: "My name is John"},
		{Role: "assistant", Content: "Nice to meet you, John!"},
		{Role: "user", Content: "What is my name?"},
	})
	if err != nil {
		t.Fatalf("Multi-turn conversation failed: %v", err)
	}
	t.Logf("Response: %s", response)

	if !strings.Contains(response, "John") {
		t.Logf("Response may not correctly remember the name: %s", response)
	}
}

func TestOllamaEmbedding(t *testing.T) {
	requireOllama(t)

	model := os.Getenv("OLLAMA_EMBED_MODEL")
	provider := embedding.NewOllamaProvider(ollamaBaseURL(), model)

	res, err := provider.Generate("Patient reports mild headache since yesterday.", "RETRIEVAL_DOCUMENT")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(res.Embedding.Values) == 0 {
		t.Fatal("Embedding should not be empty")
	}
	t.Logf("Embedding dimensions: %d", len(res.Embedding.Values))
}
