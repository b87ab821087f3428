// Package alphavantage is a client of the Alpha Vantage stock API.
//
// It is a subscription service, but provides free API access (with a low rate
// limit) https://www.alphavantage.co/documentation/
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/allocation/fetch"
)

const defaultBaseURL = "https://www.alphavantage.co/query"

// ErrNoData is returned when a response holds no usable series.
var ErrNoData = errors.New("No data available")

// APIError is an error reported in the payload of a successful response.
type APIError struct {
	Key     string // payload key that carried the message
	Message string
}

func (e *APIError) Error() string { return e.Message }

// RateLimited returns true if the error is the API call frequency notice.
func (e *APIError) RateLimited() bool { return e.Key != "Error Message" }

// payload keys Alpha Vantage uses to carry an error instead of data.
var errorKeys = []string{"Error Message", "Note", "Information"}

// Client is an HTTP client for the Alpha Vantage API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithHTTPClient sets the http client, for instance one returned by fetch.NewClient.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// NewClient creates a new Alpha Vantage client.
func NewClient(apiKey string, options ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: fetch.NewClient(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// query calls function with params and returns the raw payload, or the
// APIError it carries.
func (c *Client) query(ctx context.Context, function string, params url.Values) (json.RawMessage, error) {
	params.Set("function", function)
	params.Set("apikey", c.apiKey)
	addr := c.baseURL + "?" + params.Encode()

	var raw json.RawMessage
	if err := fetch.GetJSON(ctx, c.httpClient, addr, &raw); err != nil {
		return nil, fmt.Errorf("alphavantage %s: %w", function, err)
	}
	if err := payloadError(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// payloadError returns the APIError carried by a payload, if any.
func payloadError(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil
	}
	for _, key := range errorKeys {
		// jsonpath fails on unknown keys, that is the common case.
		v, err := jsonpath.Get(fmt.Sprintf("$[%q]", key), doc)
		if err != nil {
			continue
		}
		if msg, ok := v.(string); ok && msg != "" {
			return &APIError{Key: key, Message: msg}
		}
	}
	return nil
}

// Cacheable returns true if the payload carries data and not an error. It is
// meant for fetch.WithCacheFilter.
func Cacheable(body []byte) bool { return payloadError(body) == nil }
