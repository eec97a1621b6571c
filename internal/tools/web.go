package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	searchEndpoint  = "https://html.duckduckgo.com/html/"
	defaultResults  = 5
	maxContentChars = 4000
	userAgent       = "Mozilla/5.0 (compatible; vishva/1.0)"
)

// SearchResult is one entry from a web search, with optionally fetched page
// content.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
	Source  string
	Content string
}

// WebSearcher performs web searches and page-content extraction. Search
// results are cached in-memory with a TTL so repeated queries inside one
// task graph don't refetch.
type WebSearcher struct {
	client     *http.Client
	cache      *expirable.LRU[string, []SearchResult]
	endpoint   string
	results    int
	fetchPages bool
}

// WebSearcherConfig tunes the searcher; zero values get sane defaults.
type WebSearcherConfig struct {
	Timeout    time.Duration
	CacheSize  int
	CacheTTL   time.Duration
	Endpoint   string // overridable for tests
	HTTPClient *http.Client

	// Results is how many hits a search returns when the caller doesn't
	// ask for a specific count.
	Results int
	// FetchContent controls whether result pages are downloaded by
	// default.
	FetchContent bool
}

// NewWebSearcher creates a searcher with an LRU+TTL result cache.
func NewWebSearcher(cfg WebSearcherConfig) *WebSearcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	size := cfg.CacheSize
	if size == 0 {
		size = 256
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = searchEndpoint
	}
	results := cfg.Results
	if results <= 0 {
		results = defaultResults
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		}
	}

	return &WebSearcher{
		client:     client,
		cache:      expirable.NewLRU[string, []SearchResult](size, nil, ttl),
		endpoint:   endpoint,
		results:    results,
		fetchPages: cfg.FetchContent,
	}
}

// Search runs the query and returns up to numResults entries. When
// fetchContent is set, each result page is fetched and its paragraph text
// extracted.
func (w *WebSearcher) Search(ctx context.Context, query string, numResults int, fetchContent bool) ([]SearchResult, error) {
	if numResults <= 0 {
		numResults = w.results
	}

	cacheKey := fmt.Sprintf("%s|%d|%t", query, numResults, fetchContent)
	if cached, ok := w.cache.Get(cacheKey); ok {
		return cached, nil
	}

	results, err := w.search(ctx, query, numResults)
	if err != nil {
		return nil, err
	}

	if fetchContent {
		for i := range results {
			content, err := w.FetchContent(ctx, results[i].URL)
			if err != nil {
				// Content is best-effort; the search hit still stands.
				continue
			}
			results[i].Content = content
			if results[i].Snippet == "" && content != "" {
				results[i].Snippet = truncate(content, 200)
			}
		}
	}

	w.cache.Add(cacheKey, results)
	return results, nil
}

func (w *WebSearcher) search(ctx context.Context, query string, numResults int) ([]SearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	var results []SearchResult
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find(".result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		results = append(results, SearchResult{
			Title:   strings.TrimSpace(link.Text()),
			URL:     resolveRedirect(href),
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
			Source:  hostOf(resolveRedirect(href)),
		})
		return len(results) < numResults
	})

	return results, nil
}

// FetchContent downloads a page and extracts its paragraph text, capped at
// maxContentChars.
func (w *WebSearcher) FetchContent(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", pageURL, err)
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	return truncate(strings.Join(paragraphs, "\n"), maxContentChars), nil
}

// RegisterWebSearch adds the web_search tool backed by the given searcher.
func RegisterWebSearch(r *Registry, searcher *WebSearcher) {
	r.Register(&Descriptor{
		Name:        "web_search",
		Description: "Perform a web search and retrieve content from results",
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query string",
				},
				"num_results": map[string]any{
					"type":        "integer",
					"description": "Number of results to return (default 5)",
				},
				"fetch_content": map[string]any{
					"type":        "boolean",
					"description": "Whether to fetch and parse content from result URLs",
				},
			},
			Required: []string{"query"},
		},
		Invoke: func(ctx context.Context, args map[string]any) (map[string]string, error) {
			query := stringArg(args, "query")
			if query == "" {
				return nil, fmt.Errorf("web_search requires a query")
			}

			results, err := searcher.Search(ctx,
				query,
				intArg(args, "num_results", searcher.results),
				boolArg(args, "fetch_content", searcher.fetchPages),
			)
			if err != nil {
				return nil, err
			}

			out := map[string]string{
				"query":         query,
				"total_results": fmt.Sprintf("%d", len(results)),
			}
			for i, res := range results {
				prefix := fmt.Sprintf("result_%d_", i+1)
				out[prefix+"title"] = res.Title
				out[prefix+"url"] = res.URL
				out[prefix+"snippet"] = res.Snippet
				out[prefix+"source"] = res.Source
				if res.Content != "" {
					out[prefix+"content"] = res.Content
				}
			}
			return out, nil
		},
	})
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect URLs.
func resolveRedirect(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Scheme == "" {
		return "https:" + href
	}
	return href
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}

// truncate caps s at max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
