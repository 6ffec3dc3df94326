package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"campus-assistant/internal/domain"
)

type remoteChatRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Seed        int              `json:"seed,omitempty"`
}

type remoteChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// RemoteClient sends prompts to a hosted OpenAI-compatible chat completions
// API (DeepSeek, OpenAI, or any compatible service).
type RemoteClient struct {
	APIBase string
	APIKey  string
	Model   string
	Client  *http.Client
}

// NewRemoteClient constructs a client for a hosted chat completions API.
func NewRemoteClient(apiBase, apiKey, model string, client *http.Client) *RemoteClient {
	return &RemoteClient{
		APIBase: strings.TrimRight(apiBase, "/"),
		APIKey:  apiKey,
		Model:   model,
		Client:  client,
	}
}

// Chat sends the messages to the hosted API and returns the first choice.
func (c *RemoteClient) Chat(ctx context.Context, messages []domain.Message, opts domain.GenerateOptions) (*domain.LLMResponse, error) {
	reqBody := remoteChatRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Seed:        opts.Seed,
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.APIBase)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call chat completions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &apiError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var chatResp remoteChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode chat completions response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("chat completions returned no choices")
	}

	return &domain.LLMResponse{
		Text: strings.TrimSpace(chatResp.Choices[0].Message.Content),
		Done: chatResp.Choices[0].FinishReason != "length",
	}, nil
}

// Version returns the remote model name.
func (c *RemoteClient) Version() string {
	return c.Model
}

var _ domain.LLMClient = (*RemoteClient)(nil)
