package docsync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleDocument = `{
  "documentId": "doc-1",
  "title": "term-trace: demo",
  "body": {"content": [
    {"endIndex": 1, "sectionBreak": {}},
    {"startIndex": 1, "endIndex": 9, "paragraph": {
      "elements": [{"textRun": {"content": "Summary\n"}}],
      "paragraphStyle": {"namedStyleType": "HEADING_1"}}},
    {"startIndex": 9, "endIndex": 13, "paragraph": {
      "elements": [{"textRun": {"content": "abc\n"}}],
      "paragraphStyle": {"namedStyleType": "NORMAL_TEXT"}}},
    {"startIndex": 13, "endIndex": 15, "paragraph": {
      "elements": [{"pageBreak": {}}, {"textRun": {"content": "\n"}}],
      "paragraphStyle": {"namedStyleType": "NORMAL_TEXT"}}},
    {"startIndex": 15, "endIndex": 24, "paragraph": {
      "elements": [{"textRun": {"content": "Full Log\n"}}],
      "paragraphStyle": {"namedStyleType": "HEADING_1"}}}
  ]}
}`

func TestHTTPServiceGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/documents/doc-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("missing request id")
		}
		_, _ = w.Write([]byte(sampleDocument))
	}))
	defer srv.Close()

	svc, err := NewHTTPService(srv.URL, "doc-1", StaticToken("secret"), 0)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.End() != 24 || len(doc.Paragraphs) != 4 {
		t.Fatalf("doc = %+v", doc)
	}
	if !doc.Paragraphs[2].PageBreak || doc.Paragraphs[2].Text != "\n" {
		t.Errorf("page break paragraph = %+v", doc.Paragraphs[2])
	}
	sec, ok := FindSection(doc, "summary")
	if !ok || sec.Start != 9 || sec.End != 12 {
		t.Errorf("FindSection(summary) = %+v, %v; want [9, 12)", sec, ok)
	}
	if !HasExpectedSections(doc) {
		t.Error("HasExpectedSections() = false")
	}
}

func TestHTTPServiceBatchUpdate(t *testing.T) {
	var got struct {
		Requests []Request `json:"requests"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/documents/doc-1:batchUpdate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"documentId":"doc-1"}`))
	}))
	defer srv.Close()

	svc, _ := NewHTTPService(srv.URL, "doc-1", StaticToken("secret"), 0)
	reqs := []Request{insertText(5, "hi\n"), setStyle(1, 4, StyleHeading1), pageBreak(2), deleteRange(3, 4)}
	if err := svc.BatchUpdate(context.Background(), reqs); err != nil {
		t.Fatalf("BatchUpdate() error = %v", err)
	}
	if len(got.Requests) != 4 {
		t.Fatalf("sent %d requests, want 4", len(got.Requests))
	}
	if got.Requests[0].InsertText == nil || got.Requests[0].InsertText.Text != "hi\n" || got.Requests[0].InsertText.Location.Index != 5 {
		t.Errorf("insertText = %+v", got.Requests[0].InsertText)
	}
	if got.Requests[1].UpdateParagraphStyle == nil || got.Requests[1].UpdateParagraphStyle.Fields != "namedStyleType" {
		t.Errorf("updateParagraphStyle = %+v", got.Requests[1].UpdateParagraphStyle)
	}
}

func TestHTTPServiceCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Path != "/v1/documents" || body["title"] != "term-trace: demo" {
			t.Errorf("unexpected create %s %v", r.URL.Path, body)
		}
		_, _ = w.Write([]byte(`{"documentId":"new-doc"}`))
	}))
	defer srv.Close()

	svc, _ := NewHTTPService(srv.URL, "", StaticToken("secret"), 0)
	if _, err := svc.Get(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Get() without id error = %v, want ErrUnavailable", err)
	}
	if err := svc.Create(context.Background(), "term-trace: demo"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if svc.DocumentID() != "new-doc" {
		t.Errorf("DocumentID() = %q", svc.DocumentID())
	}
	if svc.URL() != "https://docs.google.com/document/d/new-doc/edit" {
		t.Errorf("URL() = %q", svc.URL())
	}
}

func TestHTTPServiceErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		unavailable bool
	}{
		{"forbidden", http.StatusForbidden, true},
		{"unauthorized", http.StatusUnauthorized, true},
		{"not found", http.StatusNotFound, true},
		{"server error", http.StatusInternalServerError, false},
		{"rate limited", http.StatusTooManyRequests, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer srv.Close()

			svc, _ := NewHTTPService(srv.URL, "doc-1", StaticToken("secret"), 0)
			_, err := svc.Get(context.Background())
			if err == nil {
				t.Fatal("Get() error = nil")
			}
			if errors.Is(err, ErrUnavailable) != tt.unavailable {
				t.Errorf("errors.Is(%v, ErrUnavailable) = %v, want %v", err, !tt.unavailable, tt.unavailable)
			}
		})
	}
}

func TestStaticTokenEmpty(t *testing.T) {
	svc, _ := NewHTTPService("http://127.0.0.1:1", "doc-1", StaticToken(""), 0)
	if _, err := svc.Get(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Get() error = %v, want ErrUnavailable", err)
	}
}
