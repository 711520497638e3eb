// Package webpage provides a ready-made tool that fetches a URL and returns
// its content converted to Markdown, a compact representation that models
// handle better than raw HTML.
package webpage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/leofalp/aigo/providers/tool"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 2 << 20

// Input is the tool's argument payload.
type Input struct {
	URL string `json:"url" jsonschema:"description=Absolute URL of the page to fetch"`
}

// Output is the tool's result payload.
type Output struct {
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
}

type config struct {
	client *http.Client
}

// WithHTTPClient overrides the HTTP client used for fetching.
func WithHTTPClient(client *http.Client) func(*config) {
	return func(c *config) {
		c.client = client
	}
}

// New builds the fetch-webpage tool.
func New(options ...func(*config)) *tool.Tool[Input, Output] {
	cfg := &config{client: &http.Client{Timeout: 30 * time.Second}}
	for _, option := range options {
		option(cfg)
	}

	return tool.New("fetch_webpage",
		func(ctx context.Context, input Input) (Output, error) {
			markdown, err := fetch(ctx, cfg.client, input.URL)
			if err != nil {
				return Output{}, err
			}
			return Output{URL: input.URL, Markdown: markdown}, nil
		},
		tool.WithDescription("Fetches a web page and returns its content converted to Markdown."),
	)
}

func fetch(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", url, err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to fetch %q: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", url, err)
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("failed to convert %q to markdown: %w", url, err)
	}
	return markdown, nil
}
