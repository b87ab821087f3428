// Package fetch contains http utils to deal with remote market data services.
package fetch

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// diskCache implements a simple disk cache for HTTP responses.
//
// Entries are keyed per day, so the cache expires every day.
type diskCache struct {
	base  http.RoundTripper
	dir   string
	log   logrus.FieldLogger
	now   func() time.Time
	allow func(body []byte) bool // nil caches every successful response
}

// RoundTrip implements the http.RoundTripper interface. It checks for a cached
// response on disk first. If none is found, it proceeds with the actual HTTP
// request and caches the new response if it's successful.
func (c *diskCache) RoundTrip(req *http.Request) (*http.Response, error) {
	key := c.key(req)
	if req.Method == http.MethodGet {
		if resp, err := c.get(key, req); err == nil {
			c.log.WithField("url", redact(req)).Debug("cache hit")
			return resp, nil
		}
	}

	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"method": req.Method,
		"host":   req.URL.Host,
		"path":   req.URL.Path,
		"status": resp.StatusCode,
	}).Debug("http request")
	if req.Method != http.MethodGet || resp.StatusCode >= 300 {
		return resp, nil
	}

	// read the body to decide if it should be cached, then hand it back.
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if c.allow != nil && !c.allow(body) {
		return resp, nil
	}
	if err := c.put(key, resp, body); err != nil {
		c.log.WithError(err).Warn("cache write failed (ignored)")
	}
	// DumpResponse consumed the body.
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

func (c *diskCache) key(req *http.Request) string {
	key := fmt.Sprintf("%s %s %s", c.now().Format(time.DateOnly), req.Method, req.URL.String())
	return fmt.Sprintf("%x", sha1.Sum([]byte(key)))
}

// get retrieves a cached response from disk
func (c *diskCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req)
}

// put stores a response to disk cache
func (c *diskCache) put(key string, resp *http.Response, body []byte) error {
	resp.Body = io.NopCloser(bytes.NewReader(body))
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, key), content, 0o644)
}

// redact returns the request URL without its query, that usually holds the api key.
func redact(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}
