// Package newsapi is a client of the https://newsapi.org "everything" endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/allocation/fetch"
)

const defaultBaseURL = "https://newsapi.org/v2/everything"

// MaxPageSize is the largest page the API serves.
const MaxPageSize = 100

// APIError is the error reported by a response whose status is not "ok".
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Article is a news article.
type Article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// Client is an HTTP client for the NewsAPI.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithHTTPClient sets the http client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// NewClient creates a new NewsAPI client.
func NewClient(apiKey string, options ...Option) *Client {
	c := &Client{apiKey: apiKey, baseURL: defaultBaseURL, httpClient: fetch.NewClient()}
	for _, option := range options {
		option(c)
	}
	return c
}

// Everything returns the most recent english articles about query, at most pageSize of them.
func (c *Client) Everything(ctx context.Context, query string, pageSize int) ([]Article, error) {
	pageSize = max(1, min(pageSize, MaxPageSize))
	params := url.Values{}
	params.Set("q", query)
	params.Set("apiKey", c.apiKey)
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	params.Set("pageSize", strconv.Itoa(pageSize))

	// NewsAPI reports errors with a non 200 status and a JSON status payload:
	// read the payload whatever the status.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := fetch.Do(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("newsapi %q: %w", query, err)
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("newsapi %q: %v: %w", query, resp.Status, err)
	}
	if err := payloadError(raw); err != nil {
		return nil, err
	}
	var page struct {
		Articles []Article `json:"articles"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("newsapi %q: %w", query, err)
	}
	if len(page.Articles) > pageSize {
		page.Articles = page.Articles[:pageSize]
	}
	return page.Articles, nil
}

// payloadError returns the APIError of a payload whose status is not "ok".
func payloadError(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	status, _ := jsonpath.Get("$.status", doc)
	if status == "ok" {
		return nil
	}
	e := &APIError{Message: "Unknown error"}
	if code, err := jsonpath.Get("$.code", doc); err == nil {
		e.Code, _ = code.(string)
	}
	if msg, err := jsonpath.Get("$.message", doc); err == nil {
		if s, ok := msg.(string); ok && s != "" {
			e.Message = s
		}
	}
	return e
}

// Cacheable returns true for an "ok" payload. It is meant for fetch.WithCacheFilter.
func Cacheable(body []byte) bool { return payloadError(body) == nil }
