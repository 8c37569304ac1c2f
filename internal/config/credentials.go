package config

import "strings"

// Credentials are the secrets a session may use. They come from the
// environment and are never read from config files.
type Credentials struct {
	OpenAIKey        string // OPENAI_API_KEY
	GitHubToken      string // GITHUB_TOKEN
	HuggingFaceToken string // HUGGINGFACE_TOKEN
	CustomKey        string // TERMTRACE_API_KEY
	DocToken         string // TERMTRACE_DOC_TOKEN
}

// CredentialsFromEnv reads the credential variables through getenv.
func CredentialsFromEnv(getenv func(string) string) Credentials {
	return Credentials{
		OpenAIKey:        getenv("OPENAI_API_KEY"),
		GitHubToken:      getenv("GITHUB_TOKEN"),
		HuggingFaceToken: getenv("HUGGINGFACE_TOKEN"),
		CustomKey:        getenv("TERMTRACE_API_KEY"),
		DocToken:         getenv("TERMTRACE_DOC_TOKEN"),
	}
}

// APIKey returns the key for a summarization provider, or "" if unknown.
func (c Credentials) APIKey(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "openai":
		return c.OpenAIKey
	case "github":
		return c.GitHubToken
	case "huggingface":
		return c.HuggingFaceToken
	case "custom":
		return c.CustomKey
	}
	return ""
}
