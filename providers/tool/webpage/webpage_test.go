package webpage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchConvertsToMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><h1>Release Notes</h1><p>Now with <strong>fewer</strong> bugs.</p></body></html>`))
	}))
	defer server.Close()

	fetcher := New(WithHTTPClient(server.Client()))

	output, err := fetcher.Function(context.Background(), Input{URL: server.URL})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if output.URL != server.URL {
		t.Errorf("url = %q", output.URL)
	}
	if !strings.Contains(output.Markdown, "# Release Notes") {
		t.Errorf("heading not converted: %q", output.Markdown)
	}
	if !strings.Contains(output.Markdown, "**fewer**") {
		t.Errorf("bold not converted: %q", output.Markdown)
	}
}

func TestFetchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := New(WithHTTPClient(server.Client()))

	if _, err := fetcher.Function(context.Background(), Input{URL: server.URL}); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestToolAdvertisesURLParameter(t *testing.T) {
	info := New().Info()
	if info.Name != "fetch_webpage" {
		t.Errorf("name = %q", info.Name)
	}
	if _, exists := info.Parameters.Properties["url"]; !exists {
		t.Error("missing url parameter in schema")
	}
}
