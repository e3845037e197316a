package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nearline/leadtriage/internal/domain"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaAdapter classifies notes against a self-hosted Ollama-style
// endpoint. Self-hosted models can be considerably slower than a hosted
// API, so this adapter defaults to a longer timeout than OpenAIAdapter.
type OllamaAdapter struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaAdapter constructs an adapter using pool for its HTTP client.
func NewOllamaAdapter(pool *ConnectionPool, baseURL, model string, timeout time.Duration) *OllamaAdapter {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if model == "" {
		model = "llama3"
	}
	if timeout == 0 {
		timeout = 300 * time.Second
	}
	return &OllamaAdapter{
		baseURL: baseURL,
		model:   model,
		client:  pool.GetClient("ollama", timeout),
	}
}

func (a *OllamaAdapter) Name() string { return "ollama" }

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

func (a *OllamaAdapter) Triage(ctx context.Context, note string) (domain.Classification, error) {
	prompt := triageSystemPrompt + "\n\nNote: " + note

	reqBody, err := json.Marshal(ollamaGenerateRequest{
		Model:  a.model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classifier: marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classifier: build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classifier: ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Classification{}, fmt.Errorf("classifier: ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.Classification{}, fmt.Errorf("classifier: decode ollama response: %w", err)
	}

	var c domain.Classification
	if err := json.Unmarshal([]byte(parsed.Response), &c); err != nil {
		return domain.Classification{}, fmt.Errorf("classifier: ollama response was not valid triage JSON: %w", err)
	}
	if !c.Valid() {
		return domain.Classification{}, fmt.Errorf("classifier: ollama response failed validation: %+v", c)
	}
	return c, nil
}

func (a *OllamaAdapter) HealthCheck(ctx context.Context) HealthStatus {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tags", nil)
	if err != nil {
		return HealthStatus{Healthy: false, Error: err.Error(), LastCheck: time.Now()}
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return HealthStatus{Healthy: false, Error: err.Error(), LastCheck: time.Now(), Latency: time.Since(start)}
	}
	defer resp.Body.Close()

	return HealthStatus{
		Healthy:   resp.StatusCode == http.StatusOK,
		Latency:   time.Since(start),
		LastCheck: time.Now(),
	}
}
