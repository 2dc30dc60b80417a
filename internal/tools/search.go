package tools

import (
	"context"
	"log/slog"
)

// SearchResult is the uniform shape every provider normalizes to.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Provider runs a web search and normalizes the results.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// webSearch looks up the query with the configured provider. An unconfigured
// or failing provider yields an empty result set with an explanatory error;
// the turn itself never fails.
func (e *Executor) webSearch(ctx context.Context, params map[string]any) Result {
	if e.search == nil {
		return Result{Error: "web search is not configured", Results: []SearchResult{}}
	}

	query := stringParam(params, "query")
	maxResults := intParam(params, "max_results", 5)

	results, err := e.search.Search(ctx, query, maxResults)
	if err != nil {
		slog.Error("web search failed", "error", err)
		return Result{Error: err.Error(), Results: []SearchResult{}}
	}
	if results == nil {
		results = []SearchResult{}
	}
	return Result{Success: true, Results: results}
}
