package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultOllamaHost = "http://localhost:11434"

// OllamaClient talks to a local Ollama daemon over its chat API.
type OllamaClient struct {
	BaseURL     string
	Model       string
	Temperature float64
	HTTPClient  *http.Client
}

func NewOllamaClient(opts Options) *OllamaClient {
	baseURL := opts.Host
	if baseURL == "" {
		baseURL = defaultOllamaHost
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &OllamaClient{
		BaseURL:     baseURL,
		Model:       opts.Model,
		Temperature: opts.Temperature,
		HTTPClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Options  map[string]any `json:"options,omitempty"`
	Stream   bool           `json:"stream"`
}

type ollamaChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

// Chat sends the conversation to /api/chat and returns the reply text.
func (c *OllamaClient) Chat(ctx context.Context, messages []Message) (string, error) {
	req := ollamaChatRequest{
		Model:    c.Model,
		Messages: messages,
		Stream:   false,
	}
	if c.Temperature > 0 {
		req.Options = map[string]any{"temperature": c.Temperature}
	}

	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/api/chat", c.BaseURL)
	hreq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(data))
	if err != nil {
		return "", err
	}
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(hreq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", err
	}

	return chatResp.Message.Content, nil
}

func (c *OllamaClient) Name() string {
	return "ollama/" + c.Model
}
