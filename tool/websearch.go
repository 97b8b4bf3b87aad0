package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// WebSearchOptions configure the remote search tool.
type WebSearchOptions struct {
	// Endpoint is the search service URL; the query is appended as ?q=.
	Endpoint string
	Client   *http.Client
	// MaxBodyBytes bounds the response size handed back to the model.
	MaxBodyBytes int64
}

// WebSearch is a remote search capability exposed to models as a callable
// tool. The runtime treats it as opaque; it exists so research-style agents
// can reach beyond their training data without a local knowledge index.
type WebSearch struct {
	opts WebSearchOptions
}

// NewWebSearch constructs the remote search tool.
func NewWebSearch(endpoint string, optFns ...func(o *WebSearchOptions)) *WebSearch {
	opts := WebSearchOptions{
		Endpoint:     endpoint,
		Client:       &http.Client{Timeout: 30 * time.Second},
		MaxBodyBytes: 64 * 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &WebSearch{opts: opts}
}

// Name implements Tool.
func (w *WebSearch) Name() string { return "web_search" }

// Description implements Tool.
func (w *WebSearch) Description() string {
	return "Search the web for up-to-date information. Provide a concise query string."
}

// Parameters implements Tool.
func (w *WebSearch) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The search query",
			},
		},
		"required": []string{"query"},
	}
}

// Call implements Tool by issuing the remote search request.
func (w *WebSearch) Call(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, NewToolError(w.Name(), "query must be a non-empty string", "VALIDATION_ERROR")
	}

	u, err := url.Parse(w.opts.Endpoint)
	if err != nil {
		return nil, NewToolError(w.Name(), fmt.Sprintf("invalid endpoint: %v", err), "EXECUTION_ERROR")
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, NewToolError(w.Name(), err.Error(), "EXECUTION_ERROR")
	}

	resp, err := w.opts.Client.Do(req)
	if err != nil {
		return nil, NewToolError(w.Name(), err.Error(), "EXECUTION_ERROR")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewToolError(w.Name(), fmt.Sprintf("search service returned %s", resp.Status), "EXECUTION_ERROR")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, w.opts.MaxBodyBytes))
	if err != nil {
		return nil, NewToolError(w.Name(), err.Error(), "EXECUTION_ERROR")
	}
	return string(body), nil
}
