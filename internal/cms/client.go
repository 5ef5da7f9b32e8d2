package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when the CMS has no entry for a slug.
var ErrNotFound = errors.New("cms entry not found")

// Client talks to the headless CMS that publishes reader content.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      RetryPolicy
}

// RetryPolicy bounds FetchWithRetry.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
}

// DefaultRetryPolicy retries three times starting at 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		MaxRetries:      3,
	}
}

func NewClient(baseURL, apiKey string, timeout time.Duration, retry RetryPolicy) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retry: retry,
	}
}

// Entry is one published content entry. Body holds the source document in
// the format named by DocumentType.
type Entry struct {
	Slug            string         `json:"slug"`
	Title           string         `json:"title"`
	DocumentType    string         `json:"document_type"`
	PublicationType string         `json:"publication_type,omitempty"`
	Body            string         `json:"body"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// EntrySummary is a listing row without the body.
type EntrySummary struct {
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	DocumentType string    `json:"document_type"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable cms error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable reports whether err, or anything it wraps, is a RetryableError.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// GetEntry fetches a single entry by slug.
func (c *Client) GetEntry(ctx context.Context, slug string) (*Entry, error) {
	var entry Entry
	if err := c.getJSON(ctx, "/entries/"+url.PathEscape(slug), &entry); err != nil {
		return nil, fmt.Errorf("get entry %s: %w", slug, err)
	}
	return &entry, nil
}

// ListEntries returns up to limit entry summaries. A limit of zero lets the
// CMS pick its page size.
func (c *Client) ListEntries(ctx context.Context, limit int) ([]EntrySummary, error) {
	path := "/entries"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var result struct {
		Entries []EntrySummary `json:"entries"`
	}
	if err := c.getJSON(ctx, path, &result); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return result.Entries, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &RetryableError{StatusCode: resp.StatusCode, Message: string(body)}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
