package summarize

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Trailing entry caps per provider family. Long batches are cut to their
// most recent entries before rendering.
const (
	MaxEntriesHF   = 60
	MaxEntriesChat = 80
)

// HFRouterURL is the Hugging Face inference router template.
const HFRouterURL = "https://router.huggingface.co/hf-inference/models/{model}"

// Settings select and configure the backend for a session.
type Settings struct {
	Enabled     bool   // false always yields Markdown
	Provider    string // "openai", "github", "huggingface" or "custom"
	APIURL      string // required for "custom", overrides the preset otherwise
	Model       string
	APIKey      string // opaque credential; empty degrades to Markdown
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Resolve picks the backend once, at construction. Missing credentials, an
// unknown provider or a chat endpoint that fails its connection check degrade
// to Markdown instead of failing the session.
func Resolve(ctx context.Context, s Settings, logger *slog.Logger) Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if !s.Enabled {
		return Markdown{}
	}
	if strings.TrimSpace(s.APIKey) == "" {
		logger.Warn("no API credential for summarization provider; using markdown digests", "provider", s.Provider)
		return Markdown{}
	}

	provider := strings.ToLower(strings.TrimSpace(s.Provider))
	preset, ok := presets[provider]
	if !ok {
		logger.Warn("unknown summarization provider; using markdown digests", "provider", s.Provider)
		return Markdown{}
	}
	url := preset.url
	if s.APIURL != "" {
		url = s.APIURL
	}
	if url == "" {
		logger.Warn("summarization provider has no API URL; using markdown digests", "provider", s.Provider)
		return Markdown{}
	}
	model := preset.model
	if s.Model != "" {
		model = s.Model
	}

	if provider == "huggingface" {
		client := NewHFClient(HFModelURL(url, model), s.APIKey)
		if s.Timeout > 0 {
			client.http = &http.Client{Timeout: s.Timeout}
		}
		logger.Info("using huggingface summarizer", "model", model)
		return Delegate{Fn: client.Summarize, MaxEntries: MaxEntriesHF}
	}

	client := NewChatClient(url, s.APIKey, model)
	if s.Temperature > 0 {
		client.Temperature = s.Temperature
	}
	if s.MaxTokens > 0 {
		client.MaxTokens = s.MaxTokens
	}
	if s.Timeout > 0 {
		client.http = &http.Client{Timeout: s.Timeout}
	}
	if err := client.Ping(ctx); err != nil {
		logger.Warn("summarization provider connection check failed; using markdown digests",
			"provider", s.Provider, "model", model, "error", err)
		return Markdown{}
	}
	logger.Info("using chat summarizer", "provider", s.Provider, "model", model)
	return Delegate{Fn: client.Summarize, MaxEntries: MaxEntriesChat}
}

type preset struct {
	url   string
	model string
}

var presets = map[string]preset{
	"openai":      {url: "https://api.openai.com/v1/chat/completions", model: "gpt-3.5-turbo"},
	"github":      {url: "https://models.github.ai/inference/chat/completions", model: "xai/grok-3-mini"},
	"huggingface": {url: HFRouterURL, model: DefaultHFModel},
	"custom":      {},
}
