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
	hfTimeout   = 30 * time.Second
	hfMaxLength = 200

	// DefaultHFModel is used when no model is configured for huggingface.
	DefaultHFModel = "sshleifer/distilbart-cnn-12-6"

	hfPromptTemplate = "The following are terminal session entries. Write a concise, plain-language " +
		"summary of the user's workflow, goals, and important outputs.\n\n" +
		"Session entries:\n%s\n\nSummary:"
)

// HFClient calls a Hugging Face inference endpoint for summarization models.
type HFClient struct {
	apiURL string
	apiKey string
	http   *http.Client
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxLength int  `json:"max_length"`
	DoSample  bool `json:"do_sample"`
}

type hfResult struct {
	GeneratedText string `json:"generated_text"`
	SummaryText   string `json:"summary_text"`
	Text          string `json:"text"`
}

func (r hfResult) best() string {
	for _, s := range []string{r.GeneratedText, r.SummaryText, r.Text} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// HFModelURL fills the {model} placeholder of a router URL template.
func HFModelURL(template, model string) string {
	return strings.ReplaceAll(template, "{model}", model)
}

// NewHFClient creates a client for the model endpoint at apiURL.
func NewHFClient(apiURL, apiKey string) *HFClient {
	return &HFClient{
		apiURL: apiURL,
		apiKey: apiKey,
		http:   &http.Client{Timeout: hfTimeout},
	}
}

// Summarize sends text to the model and returns its summary. It satisfies Func.
func (c *HFClient) Summarize(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs:     fmt.Sprintf(hfPromptTemplate, text),
		Parameters: hfParameters{MaxLength: hfMaxLength},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("huggingface API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	// Pipelines answer with either a list of results or a single object.
	var list []hfResult
	if err := json.Unmarshal(respBody, &list); err == nil {
		if len(list) > 0 {
			if s := list[0].best(); s != "" {
				return s, nil
			}
		}
		return "", fmt.Errorf("huggingface API returned no summary")
	}
	var single hfResult
	if err := json.Unmarshal(respBody, &single); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if s := single.best(); s != "" {
		return s, nil
	}
	return "", fmt.Errorf("huggingface API returned no summary")
}
