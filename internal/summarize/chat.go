package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 2000
	defaultTimeout     = 60 * time.Second
	pingTimeout        = 10 * time.Second

	systemPrompt = "You are a terminal session summarizer. Create a concise bullet-point summary " +
		"of what was done. Use action verbs without subjects (e.g., 'Cloned repository', " +
		"'Installed dependencies'). Focus on key steps and outcomes only."
	userPromptTemplate = "Summarize this terminal session as bullet points:\n\n%s\n\n" +
		"Format: Simple bullet list with action verbs, no subject pronouns."
)

// ChatClient calls an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	apiURL      string
	apiKey      string
	model       string
	Temperature float64
	MaxTokens   int
	http        *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewChatClient creates a client for the endpoint at apiURL.
func NewChatClient(apiURL, apiKey, model string) *ChatClient {
	return &ChatClient{
		apiURL:      apiURL,
		apiKey:      apiKey,
		model:       model,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		http:        &http.Client{Timeout: defaultTimeout},
	}
}

// Summarize sends text to the model and returns its reply. It satisfies Func.
func (c *ChatClient) Summarize(ctx context.Context, text string) (string, error) {
	payload, err := c.complete(ctx, c.http, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPromptTemplate, text)},
		},
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}
	msg := payload.Choices[0].Message
	// Reasoning models can leave content empty and answer in reasoning_content.
	if content := strings.TrimSpace(msg.Content); content != "" {
		return content, nil
	}
	if reasoning := strings.TrimSpace(msg.ReasoningContent); reasoning != "" {
		return reasoning, nil
	}
	return "", fmt.Errorf("chat API returned an empty message")
}

// Ping sends a tiny completion to check that the endpoint accepts the
// credential and model. Any 2xx answer counts as reachable.
func (c *ChatClient) Ping(ctx context.Context) error {
	client := c.http
	if client == nil || client.Timeout == 0 || client.Timeout > pingTimeout {
		client = &http.Client{Timeout: pingTimeout}
	}
	_, err := c.complete(ctx, client, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful assistant."},
			{Role: "user", Content: "Say 'ok'"},
		},
		Temperature: 0,
		MaxTokens:   5,
	})
	return err
}

func (c *ChatClient) complete(ctx context.Context, client *http.Client, in chatRequest) (*chatResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("API token not set")
	}

	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr chatError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("chat API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("chat API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var payload chatResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &payload, nil
}
