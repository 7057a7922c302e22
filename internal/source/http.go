package source

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/samber/lo"
)

// DefaultHTTPTimeout bounds one collection request.
const DefaultHTTPTimeout = 30 * time.Second

var defaultHeaders = map[string]string{
	"User-Agent": "fastexcel/1.0",
}

// HTTPConfig configures an HTTPSource.
type HTTPConfig struct {
	URL     string
	As      string
	Headers map[string]string
	Auth    *BasicAuth
	Timeout time.Duration
}

type BasicAuth struct {
	Username string
	Password string
}

// HTTPSource collects the body of one GET request.
type HTTPSource struct {
	url     *url.URL
	as      string
	headers map[string]string
	client  *http.Client
}

// HTTPOption customizes an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default pooled client, typically in tests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.client = client
	}
}

func NewHTTPSource(cfg HTTPConfig, opts ...HTTPOption) (*HTTPSource, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if cfg.As == "" {
		return nil, fmt.Errorf("http input requires an entry name")
	}

	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url %q: %w", cfg.URL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("url must use http or https scheme, got: %s", parsed.Scheme)
	}

	headers := lo.Assign(defaultHeaders, cfg.Headers)
	if cfg.Auth != nil {
		headers["Authorization"] = "Basic " +
			base64.StdEncoding.EncodeToString([]byte(cfg.Auth.Username+":"+cfg.Auth.Password))
	}

	s := &HTTPSource{
		url:     parsed,
		as:      cfg.As,
		headers: headers,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultHTTPTimeout
		}
		s.client = &http.Client{
			Transport: cleanhttp.DefaultPooledTransport(),
			Timeout:   timeout,
		}
	}

	return s, nil
}

func (s *HTTPSource) Name() string {
	return fmt.Sprintf("http(%s)", s.url.Host)
}

func (s *HTTPSource) Collect(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(snippet))
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return []Item{{Name: s.as, Content: content}}, nil
}
