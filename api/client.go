// Package api is the client of the remote catalog service.
//
// Read endpoints return JSON documents that the cache stores as raw bytes, the
// typed getters decode them into domain models. Scraping endpoints trigger a
// backend refresh and have no response contract beyond their status.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tfkr-ae/explorer/domain"
	"github.com/tfkr-ae/explorer/httpdump"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:3001"
	// DefaultTimeout bounds every request.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "explorer"

	maxErrorBody = 64 << 10
)

// Client talks to the remote catalog service.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
}

// New creates a Client for baseURL.
func New(baseURL string, options ...func(*Client) error) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url %s : %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base url %s must use http or https", baseURL)
	}

	client := &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: newDecodingTransport(nil),
		},
		logger:    slog.Default(),
		userAgent: DefaultUserAgent,
	}

	for _, option := range options {
		if err := option(client); err != nil {
			return nil, fmt.Errorf("applying option on api client : %w", err)
		}
	}
	return client, nil
}

// WithHTTPClient replaces the underlying http.Client. Its transport is wrapped
// so compressed responses are still decoded.
func WithHTTPClient(httpClient *http.Client) func(*Client) error {
	return func(client *Client) error {
		if httpClient == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		wrapped := *httpClient
		wrapped.Transport = newDecodingTransport(httpClient.Transport)
		client.httpClient = &wrapped
		return nil
	}
}

// WithTimeout sets the upper bound of every request.
func WithTimeout(timeout time.Duration) func(*Client) error {
	return func(client *Client) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", timeout)
		}
		client.httpClient.Timeout = timeout
		return nil
	}
}

// WithLogger sets the client logger. At debug level requests and failed responses are dumped.
func WithLogger(logger *slog.Logger) func(*Client) error {
	return func(client *Client) error {
		if logger != nil {
			client.logger = logger
		}
		return nil
	}
}

// WithUserAgent sets the User-Agent header. An empty value leaves the net/http default.
func WithUserAgent(userAgent string) func(*Client) error {
	return func(client *Client) error {
		client.userAgent = userAgent
		return nil
	}
}

// BaseURL returns the base URL requests are sent to.
func (client *Client) BaseURL() string {
	return client.baseURL.String()
}

// GetJSON fetches path and returns the raw JSON document.
func (client *Client) GetJSON(ctx context.Context, path string) ([]byte, error) {
	body, err := client.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("GET %s : response is not valid JSON", path)
	}
	return body, nil
}

// Fetch implements the cache fetcher contract: the cache key is the request path.
func (client *Client) Fetch(ctx context.Context, key string) ([]byte, error) {
	return client.GetJSON(ctx, key)
}

// Navigation returns the top-level categories.
func (client *Client) Navigation(ctx context.Context) ([]domain.NavigationItem, error) {
	var items []domain.NavigationItem
	if err := client.getInto(ctx, NavigationPath, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CategoryBySlug returns the category identified by slug with its children and products.
func (client *Client) CategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	var category domain.Category
	if err := client.getInto(ctx, CategoryPath(slug), &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// Product returns the product identified by id.
func (client *Client) Product(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	if err := client.getInto(ctx, ProductPath(id), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ScrapeNavigation asks the backend to refresh the top-level categories.
func (client *Client) ScrapeNavigation(ctx context.Context) error {
	return client.post(ctx, ScrapeNavigationPath, struct{}{})
}

// ScrapeCategoryProducts asks the backend to refresh the products of a category.
func (client *Client) ScrapeCategoryProducts(ctx context.Context, categoryID string) error {
	return client.post(ctx, ScrapeCategoryProductsPath(categoryID), struct{}{})
}

// ScrapeProductDetail asks the backend to refresh the detail and reviews of a product.
func (client *Client) ScrapeProductDetail(ctx context.Context, productID string) error {
	return client.post(ctx, ScrapeProductDetailPath(productID), struct{}{})
}

// PostViewHistory sends one activity record to the remote store. The response body is ignored.
func (client *Client) PostViewHistory(ctx context.Context, payload domain.ViewHistoryPayload) error {
	return client.post(ctx, ViewHistoryPath, payload)
}

func (client *Client) getInto(ctx context.Context, path string, target any) error {
	body, err := client.GetJSON(ctx, path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decoding %s : %w", path, err)
	}
	return nil
}

func (client *Client) post(ctx context.Context, path string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding body for %s : %w", path, err)
	}

	_, err = client.do(ctx, http.MethodPost, path, encoded)
	return err
}

func (client *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	// Paths are escaped by their builders.
	target := client.baseURL.String() + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("creating %s %s : %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if client.userAgent != "" {
		req.Header.Set("User-Agent", client.userAgent)
	}

	if client.logger.Enabled(ctx, slog.LevelDebug) {
		if _, dump, err := httpdump.DumpRequest(req); err == nil && dump != "" {
			client.logger.Debug("api request", "method", method, "path", path, "dump", dump)
		}
	}

	start := time.Now()
	res, err := client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s : %w", method, path, err)
	}
	defer res.Body.Close()

	if client.logger.Enabled(ctx, slog.LevelDebug) {
		attrs := []any{"method", method, "path", path, "status", res.StatusCode, "duration", time.Since(start)}
		if _, dump, err := httpdump.DumpResponse(res); err == nil && dump != "" {
			attrs = append(attrs, "dump", dump)
		}
		client.logger.Debug("api response", attrs...)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		errorBody, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: res.StatusCode,
			Body:       httpdump.Excerpt(errorBody, 0),
		}
	}

	responseBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response : %w", method, path, err)
	}
	return responseBody, nil
}
