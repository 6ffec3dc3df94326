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

type localChatRequest struct {
	Model     string                 `json:"model"`
	Messages  []domain.Message       `json:"messages"`
	Stream    bool                   `json:"stream"`
	KeepAlive int                    `json:"keep_alive"`
	Options   map[string]interface{} `json:"options,omitempty"`
	Adapters  []string               `json:"adapters,omitempty"`
}

type localChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// LocalClient sends prompts to an in-house model server (llama-server /
// Ollama chat API) loaded with the fine-tuned campus weights. The adapters
// field carries the optional LoRA checkpoint path.
type LocalClient struct {
	BaseURL   string
	ModelPath string
	LoraPath  string
	Client    *http.Client
}

// NewLocalClient constructs a client for the local inference endpoint.
func NewLocalClient(baseURL, modelPath, loraPath string, client *http.Client) *LocalClient {
	return &LocalClient{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ModelPath: modelPath,
		LoraPath:  loraPath,
		Client:    client,
	}
}

// Chat sends the messages to the local server and returns the assistant
// message.
func (c *LocalClient) Chat(ctx context.Context, messages []domain.Message, opts domain.GenerateOptions) (*domain.LLMResponse, error) {
	reqBody := localChatRequest{
		Model:     c.ModelPath,
		Messages:  messages,
		Stream:    false,
		KeepAlive: -1,
		Options: map[string]interface{}{
			"temperature": opts.Temperature,
		},
	}
	if opts.MaxTokens > 0 {
		reqBody.Options["num_predict"] = opts.MaxTokens
	}
	if opts.Seed != 0 {
		reqBody.Options["seed"] = opts.Seed
	}
	if c.LoraPath != "" {
		reqBody.Adapters = []string{c.LoraPath}
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call local model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &apiError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var chatResp localChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode local model response: %w", err)
	}

	return &domain.LLMResponse{
		Text: strings.TrimSpace(chatResp.Message.Content),
		Done: chatResp.Done,
	}, nil
}

// Version returns the served model path.
func (c *LocalClient) Version() string {
	return c.ModelPath
}

var _ domain.LLMClient = (*LocalClient)(nil)
