package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hjonck/leadscout/internal/domain"
)

// OpenAICompatProvider classifies names through any chat-completions
// endpoint compatible with the OpenAI wire format. It exists as the
// secondary/failover provider: unlike Anthropic, there is no SDK anywhere
// in the example pack for this family of APIs, so it is a direct
// net/http+encoding/json client in the same shape as every other hand-rolled
// HTTP adapter the pack uses for providers without an SDK.
type OpenAICompatProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	tag        string
}

func NewOpenAICompatProvider(httpClient *http.Client, baseURL, apiKey, model, tag string) *OpenAICompatProvider {
	return &OpenAICompatProvider{httpClient: httpClient, baseURL: baseURL, apiKey: apiKey, model: model, tag: tag}
}

func (p *OpenAICompatProvider) ProviderTag() string { return p.tag }

type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatMessage       `json:"messages"`
	Temperature float64             `json:"temperature"`
	ResponseFmt *chatResponseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenAICompatProvider) Classify(ctx context.Context, n domain.NormalisedName) (domain.LLMAnswer, error) {
	reqBody := chatCompletionRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "user", Content: classifyPrompt(n)},
		},
		Temperature: 0.1,
		ResponseFmt: &chatResponseFormat{Type: "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return domain.LLMAnswer{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return domain.LLMAnswer{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.LLMAnswer{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.LLMAnswer{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.LLMAnswer{}, fmt.Errorf("%w: rate limit exceeded (429)", errRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.LLMAnswer{}, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.LLMAnswer{}, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return domain.LLMAnswer{}, fmt.Errorf("api error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return domain.LLMAnswer{}, fmt.Errorf("no completion returned")
	}

	jsonStr, err := extractJSON(parsed.Choices[0].Message.Content)
	if err != nil {
		return domain.LLMAnswer{}, err
	}
	var answer parsedAnswer
	if err := json.Unmarshal([]byte(jsonStr), &answer); err != nil {
		return domain.LLMAnswer{}, fmt.Errorf("decode classification: %w", err)
	}
	return answer.toLLMAnswer(p.tag)
}
