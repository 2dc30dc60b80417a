package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cloudwego/eino-ext/components/tool/bingsearch"
	duckduckgo "github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino-ext/components/tool/googlesearch"
	"github.com/cloudwego/eino/components/tool"

	"github.com/mentorkit/mentor/internal/config"
)

const defaultSearchTimeout = 30 * time.Second

const (
	tavilyEndpoint = "https://api.tavily.com/search"
	braveEndpoint  = "https://api.search.brave.com/res/v1/web/search"
	jinaEndpoint   = "https://s.jina.ai"
)

// NewProvider builds the search provider selected in config. Returns
// (nil, nil) when no provider is configured; the executor treats a nil
// provider as search-disabled.
func NewProvider(ctx context.Context, cfg config.SearchConfig) (Provider, error) {
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = defaultSearchTimeout
	}
	client := &http.Client{Timeout: timeout}

	switch cfg.Provider {
	case "":
		return nil, nil
	case "tavily":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("tavily provider requires api_key")
		}
		return &tavilyProvider{client: client, apiKey: cfg.APIKey, endpoint: tavilyEndpoint}, nil
	case "brave":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("brave provider requires api_key")
		}
		return &braveProvider{client: client, apiKey: cfg.APIKey, endpoint: braveEndpoint}, nil
	case "jina":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("jina provider requires api_key")
		}
		return &jinaProvider{client: client, apiKey: cfg.APIKey, endpoint: jinaEndpoint}, nil
	case "duckduckgo":
		inner, err := duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
			ToolName:   NameWebSearch,
			ToolDesc:   "Search the web using DuckDuckGo.",
			MaxResults: cfg.MaxResults,
			Timeout:    timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init duckduckgo: %w", err)
		}
		return &einoProvider{inner: inner}, nil
	case "google":
		if cfg.APIKey == "" || cfg.GoogleCX == "" {
			return nil, fmt.Errorf("google provider requires api_key and google_cx")
		}
		inner, err := googlesearch.NewTool(ctx, &googlesearch.Config{
			APIKey:         cfg.APIKey,
			SearchEngineID: cfg.GoogleCX,
			Num:            cfg.MaxResults,
			ToolName:       NameWebSearch,
			ToolDesc:       "Search the web using Google.",
		})
		if err != nil {
			return nil, fmt.Errorf("init google: %w", err)
		}
		return &einoProvider{inner: inner}, nil
	case "bing":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("bing provider requires api_key")
		}
		inner, err := bingsearch.NewTool(ctx, &bingsearch.Config{
			APIKey:     cfg.APIKey,
			MaxResults: cfg.MaxResults,
			Timeout:    timeout,
			ToolName:   NameWebSearch,
			ToolDesc:   "Search the web using Bing.",
		})
		if err != nil {
			return nil, fmt.Errorf("init bing: %w", err)
		}
		return &einoProvider{inner: inner}, nil
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", cfg.Provider)
	}
}

// ---------------------------------------------------------------------------
// Native HTTP providers
// ---------------------------------------------------------------------------

type tavilyProvider struct {
	client   *http.Client
	apiKey   string
	endpoint string
}

func (p *tavilyProvider) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	body, err := json.Marshal(map[string]any{
		"api_key":      p.apiKey,
		"query":        query,
		"max_results":  maxResults,
		"search_depth": "basic",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily API error: %d", resp.StatusCode)
	}

	var payload struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	results := make([]SearchResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Content: r.Content})
	}
	return results, nil
}

type braveProvider struct {
	client   *http.Client
	apiKey   string
	endpoint string
}

func (p *braveProvider) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	u := fmt.Sprintf("%s?q=%s&count=%d", p.endpoint, url.QueryEscape(query), maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave API error: %d", resp.StatusCode)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("brave: decode response: %w", err)
	}

	results := make([]SearchResult, 0, len(payload.Web.Results))
	for _, r := range payload.Web.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Content: r.Description})
	}
	return results, nil
}

// jinaProvider uses the s.jina.ai reader endpoint, which returns one text
// document rather than a result list.
type jinaProvider struct {
	client   *http.Client
	apiKey   string
	endpoint string
}

const jinaContentLimit = 2000

func (p *jinaProvider) Search(ctx context.Context, query string, _ int) ([]SearchResult, error) {
	u := p.endpoint + "/" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jina: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jina API error: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("jina: read response: %w", err)
	}

	content := string(body)
	if len(content) > jinaContentLimit {
		content = content[:jinaContentLimit]
	}
	return []SearchResult{{Title: "Search result", Content: content}}, nil
}

// ---------------------------------------------------------------------------
// eino-ext providers (duckduckgo, google, bing)
// ---------------------------------------------------------------------------

// einoProvider adapts an eino-ext search tool to the Provider interface. The
// eino tools return their results as a JSON document; we renormalize it.
type einoProvider struct {
	inner tool.InvokableTool
}

func (p *einoProvider) Search(ctx context.Context, query string, _ int) ([]SearchResult, error) {
	args, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}

	out, err := p.inner.InvokableRun(ctx, string(args))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Results []struct {
			Title       string `json:"title"`
			Link        string `json:"link"`
			URL         string `json:"url"`
			Summary     string `json:"summary"`
			Snippet     string `json:"snippet"`
			Description string `json:"description"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil || len(payload.Results) == 0 {
		// Some providers answer with plain text. Pass it through as one result.
		content := out
		if len(content) > jinaContentLimit {
			content = content[:jinaContentLimit]
		}
		return []SearchResult{{Title: "Search result", Content: content}}, nil
	}

	results := make([]SearchResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		link := r.URL
		if link == "" {
			link = r.Link
		}
		content := r.Summary
		if content == "" {
			content = r.Snippet
		}
		if content == "" {
			content = r.Description
		}
		results = append(results, SearchResult{Title: r.Title, URL: link, Content: content})
	}
	return results, nil
}
