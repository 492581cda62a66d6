// Package apiclient provides an HTTP gateway session: it speaks to the
// chat gateway's REST API to page channel history and expand threads.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/chanhound/chanhound/internal/domain"
	"github.com/chanhound/chanhound/internal/source"
)

const (
	// DefaultBaseURL is the default base URL for the gateway API.
	DefaultBaseURL = "http://localhost:8081/api/v1"
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second
)

// Client is an HTTP session against the gateway API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ source.Session = (*Client)(nil)

// Option is a function that configures a Client.
type Option func(*Client)

// WithBaseURL sets the base URL for the gateway API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the timeout for API requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new gateway API client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// historyResponse is the wire envelope for a history page.
type historyResponse struct {
	Messages []domain.Message `json:"messages"`
}

// FetchHistory pages a channel's history through the gateway. Messages
// arrive oldest-first or newest-first as requested; after, when
// non-nil, is an exclusive lower bound on message id.
func (c *Client) FetchHistory(
	ctx context.Context,
	channelID int64,
	limit int,
	after *int64,
	oldestFirst bool,
) ([]domain.Message, error) {
	historyURL, err := url.JoinPath(c.baseURL, "channels", strconv.FormatInt(channelID, 10), "messages")
	if err != nil {
		return nil, fmt.Errorf("failed to construct URL: %w", err)
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if oldestFirst {
		query.Set("order", "asc")
	} else {
		query.Set("order", "desc")
	}
	if after != nil {
		query.Set("after", strconv.FormatInt(*after, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, historyURL+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var response historyResponse
	if doErr := c.doRequest(req, &response); doErr != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", doErr)
	}

	return response.Messages, nil
}

// Thread eagerly reads the full thread hanging off a parent message.
// A parent without a thread yields nil.
func (c *Client) Thread(ctx context.Context, channelID, parentID int64) (*domain.Thread, error) {
	threadURL, err := url.JoinPath(
		c.baseURL, "channels", strconv.FormatInt(channelID, 10),
		"messages", strconv.FormatInt(parentID, 10), "thread",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to construct URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, threadURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var thread domain.Thread
	doErr := c.doRequest(req, &thread)
	if doErr != nil {
		var statusErr *statusError
		if errors.As(doErr, &statusErr) && statusErr.code == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch thread: %w", doErr)
	}

	return &thread, nil
}

// doRequest executes the request and decodes the JSON response into
// out. Connectivity failures and server-side errors are marked
// transient so the harvest loops retry instead of advancing.
func (c *Client) doRequest(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return source.Transient(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode >= http.StatusInternalServerError {
		return source.Transient(&statusError{code: resp.StatusCode})
	}
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}

	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	return nil
}
