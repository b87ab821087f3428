package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// Option configures NewClient.
type Option func(*options)

type options struct {
	timeout  time.Duration
	cacheDir string
	log      logrus.FieldLogger
	now      func() time.Time
	allow    func([]byte) bool
	base     http.RoundTripper
}

// WithTimeout sets the timeout of every request made by the client.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithCache enables the daily disk cache in dir. An empty dir disables it.
func WithCache(dir string) Option { return func(o *options) { o.cacheDir = dir } }

// WithCacheFilter restricts the cache to response bodies for which allow returns true.
func WithCacheFilter(allow func(body []byte) bool) Option {
	return func(o *options) { o.allow = allow }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option { return func(o *options) { o.log = log } }

// WithClock sets the clock used to compute the cache day.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithTransport sets the underlying transport, http.DefaultTransport by default.
func WithTransport(base http.RoundTripper) Option { return func(o *options) { o.base = base } }

// NewClient returns an http.Client for remote services, optionally backed by
// a disk cache where entries expire daily.
func NewClient(opts ...Option) *http.Client {
	o := options{
		timeout: 15 * time.Second,
		now:     time.Now,
		base:    http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.log = l
	}

	client := &http.Client{Timeout: o.timeout, Transport: o.base}
	if o.cacheDir != "" {
		client.Transport = &diskCache{
			base:  o.base,
			dir:   o.cacheDir,
			log:   o.log,
			now:   o.now,
			allow: o.allow,
		}
	}
	return client
}

// GetJSON performs an HTTP GET request to the given address and unmarshals the
// JSON response body into data.
func GetJSON(ctx context.Context, client *http.Client, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := Do(client, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Host: req.URL.Host, Path: req.URL.Path, Status: resp.Status, Code: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, data); err != nil {
		return fmt.Errorf("cannot decode %v%v response: %w", req.URL.Host, req.URL.Path, err)
	}
	return nil
}

// Do sends req with client. A transport error does not carry the query of
// the request URL, where the api keys are.
func Do(client *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = redact(req)
		}
		return nil, err
	}
	return resp, nil
}

// StatusError is returned by GetJSON for a non 200 response.
type StatusError struct {
	Host, Path string
	Status     string
	Code       int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cannot http GET %v%v: %v", e.Host, e.Path, e.Status)
}

// Temporary returns true if retrying later may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}
