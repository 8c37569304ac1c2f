package docsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultBaseURL   = "https://docs.googleapis.com"
	defaultUserAgent = "termtrace/0.1"
	requestTimeout   = 30 * time.Second
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed access token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(t)) == "" {
		return "", fmt.Errorf("%w: empty access token", ErrUnavailable)
	}
	return string(t), nil
}

// Ensure HTTPService implements Service at compile time.
var _ Service = (*HTTPService)(nil)

// HTTPService talks to the Google Docs REST API for a single document.
type HTTPService struct {
	baseURL   *url.URL
	docID     string
	tokens    TokenSource
	http      *http.Client
	userAgent string
}

// NewHTTPService builds a client for docID. An empty baseURL uses the public
// endpoint. docID may be empty when Create is called before first use.
func NewHTTPService(baseURL, docID string, tokens TokenSource, timeout time.Duration) (*HTTPService, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse document service url %q: %w", baseURL, err)
	}
	if timeout <= 0 {
		timeout = requestTimeout
	}
	return &HTTPService{
		baseURL:   base,
		docID:     strings.TrimSpace(docID),
		tokens:    tokens,
		http:      &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
	}, nil
}

// DocumentID returns the bound document id.
func (c *HTTPService) DocumentID() string { return c.docID }

// URL returns the browser link for the bound document.
func (c *HTTPService) URL() string {
	return "https://docs.google.com/document/d/" + c.docID + "/edit"
}

// Create makes a new empty document titled title and binds the client to it.
func (c *HTTPService) Create(ctx context.Context, title string) error {
	var created struct {
		DocumentID string `json:"documentId"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/documents", map[string]string{"title": title}, &created); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	if created.DocumentID == "" {
		return errors.New("create document: empty document id in response")
	}
	c.docID = created.DocumentID
	return nil
}

// Get fetches the document body.
func (c *HTTPService) Get(ctx context.Context) (*Document, error) {
	if c.docID == "" {
		return nil, fmt.Errorf("%w: no document id", ErrUnavailable)
	}
	var payload apiDocument
	if err := c.do(ctx, http.MethodGet, "/v1/documents/"+url.PathEscape(c.docID), nil, &payload); err != nil {
		return nil, err
	}
	return payload.toDocument(), nil
}

// BatchUpdate applies requests in one call.
func (c *HTTPService) BatchUpdate(ctx context.Context, requests []Request) error {
	if c.docID == "" {
		return fmt.Errorf("%w: no document id", ErrUnavailable)
	}
	if len(requests) == 0 {
		return nil
	}
	body := struct {
		Requests []Request `json:"requests"`
	}{requests}
	return c.do(ctx, http.MethodPost, "/v1/documents/"+url.PathEscape(c.docID)+":batchUpdate", body, nil)
}

func (c *HTTPService) do(ctx context.Context, method, path string, in, dest any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("access token: %w", err)
	}

	var reader io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	// Concatenated rather than resolved: the ":batchUpdate" suffix must not
	// be read as a URL scheme.
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		msg := apiErrorMessage(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%w: %s returned status %d: %s", ErrUnavailable, path, resp.StatusCode, msg)
		}
		return fmt.Errorf("api %s returned status %d: %s", path, resp.StatusCode, msg)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiErrorMessage(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 64<<10))
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return strings.TrimSpace(string(body))
}

type apiDocument struct {
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
	Body       struct {
		Content []apiElement `json:"content"`
	} `json:"body"`
}

type apiElement struct {
	StartIndex int64         `json:"startIndex"`
	EndIndex   int64         `json:"endIndex"`
	Paragraph  *apiParagraph `json:"paragraph"`
}

type apiParagraph struct {
	Elements []struct {
		TextRun *struct {
			Content string `json:"content"`
		} `json:"textRun"`
		PageBreak *struct{} `json:"pageBreak"`
	} `json:"elements"`
	ParagraphStyle struct {
		NamedStyleType string `json:"namedStyleType"`
	} `json:"paragraphStyle"`
}

func (d apiDocument) toDocument() *Document {
	doc := &Document{ID: d.DocumentID, Title: d.Title}
	for _, el := range d.Body.Content {
		if el.EndIndex > doc.EndIndex {
			doc.EndIndex = el.EndIndex
		}
		if el.Paragraph == nil {
			continue
		}
		p := Paragraph{StartIndex: el.StartIndex, EndIndex: el.EndIndex, Style: el.Paragraph.ParagraphStyle.NamedStyleType}
		var text strings.Builder
		for _, pe := range el.Paragraph.Elements {
			if pe.PageBreak != nil {
				p.PageBreak = true
			}
			if pe.TextRun != nil {
				text.WriteString(pe.TextRun.Content)
			}
		}
		p.Text = strings.ReplaceAll(text.String(), "\f", "")
		if p.Style == "" {
			p.Style = StyleNormal
		}
		doc.Paragraphs = append(doc.Paragraphs, p)
	}
	return doc
}
