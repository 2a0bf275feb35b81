package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OpenAIClient is a minimal OpenAI-compatible chat-completions client. Any
// provider exposing the same request/response shape (including local
// OpenAI-compatible gateways) can reuse it by pointing baseURL elsewhere.
type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// NewOpenAIClient builds a client against the public OpenAI API.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.openai.com/v1/chat/completions",
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL overrides the endpoint, for OpenAI-compatible gateways.
func (c *OpenAIClient) WithBaseURL(url string) *OpenAIClient {
	c.baseURL = url
	return c
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Seed        int64     `json:"seed,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat implements Client.
func (c *OpenAIClient) Chat(ctx context.Context, msgs []Message, options *SamplingOptions) (*Response, error) {
	reqBody := openAIRequest{Model: c.model, Messages: msgs}
	if options != nil {
		reqBody.Temperature = options.Temperature
		reqBody.TopP = options.TopP
		reqBody.Seed = options.Seed
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai: unexpected status %d", resp.StatusCode)
	}

	var oaiResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaiResp); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(oaiResp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}
	return &Response{Content: oaiResp.Choices[0].Message.Content}, nil
}
