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

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

const triageSystemPrompt = `You triage inbound sales leads. Given a note, respond with a single ` +
	`JSON object with exactly these fields: intent (one of buy, support, spam, job, other), ` +
	`priority (one of P0, P1, P2, P3), next_action (one of call, email, ignore, qualify), ` +
	`confidence (a number from 0 to 1), and tags (an array of short strings). Respond with ` +
	`JSON only, no surrounding text.`

// OpenAIAdapter classifies notes by asking an OpenAI-compatible chat
// completions endpoint for the triage fields (intent, priority,
// next_action, confidence, tags) as JSON.
type OpenAIAdapter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAIAdapter constructs an adapter using pool for its HTTP client.
func NewOpenAIAdapter(pool *ConnectionPool, baseURL, apiKey, model string, timeout time.Duration) *OpenAIAdapter {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  pool.GetClient("openai", timeout),
	}
}

func (a *OpenAIAdapter) Name() string { return "openai" }

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (a *OpenAIAdapter) Triage(ctx context.Context, note string) (domain.Classification, error) {
	reqBody, err := json.Marshal(chatCompletionRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: triageSystemPrompt},
			{Role: "user", Content: note},
		},
	})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classifier: marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classifier: build openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classifier: openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Classification{}, fmt.Errorf("classifier: openai returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.Classification{}, fmt.Errorf("classifier: decode openai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return domain.Classification{}, fmt.Errorf("classifier: openai response had no choices")
	}

	var c domain.Classification
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &c); err != nil {
		return domain.Classification{}, fmt.Errorf("classifier: openai response was not valid triage JSON: %w", err)
	}
	if !c.Valid() {
		return domain.Classification{}, fmt.Errorf("classifier: openai response failed validation: %+v", c)
	}
	return c, nil
}

func (a *OpenAIAdapter) HealthCheck(ctx context.Context) HealthStatus {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/models", nil)
	if err != nil {
		return HealthStatus{Healthy: false, Error: err.Error(), LastCheck: time.Now()}
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

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
