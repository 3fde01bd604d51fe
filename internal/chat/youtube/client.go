// Package youtube implements chat.Source and chat.Resolver on top of the
// YouTube Data API v3 live chat endpoints.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/livechat-tts/internal/chat"
)

const (
	// DefaultBaseURL is the YouTube Data API v3 root.
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

	// DefaultTimeout bounds every request.
	DefaultTimeout = 10 * time.Second

	maxBodySize = 4 << 20
)

var (
	// ErrMissingAPIKey is returned by NewClient when no key is configured.
	ErrMissingAPIKey = errors.New("youtube: API key is required (set YOUTUBE_API_KEY or youtube.api_key)")

	errInvalidResponse = errors.New("invalid API response")
)

// Client talks to the YouTube Data API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds each request. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRequestsPerMinute limits outgoing requests to protect the API quota.
// Zero disables the limiter.
func WithRequestsPerMinute(n int) Option {
	return func(c *Client) {
		if n <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a YouTube API client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/120), 1),
		logger:     log.WithPrefix("youtube"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// apiError is the error envelope returned by Google APIs.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

func (e apiError) reason() string {
	if len(e.Error.Errors) > 0 {
		return e.Error.Errors[0].Reason
	}
	return ""
}

// getJSON performs a GET on path with params and decodes the body into out.
// Failures are classified into chat.TransientFetchError and
// chat.FatalFetchError. A liveChatEnded reason yields chat.ErrStreamEnded.
func (c *Client) getJSON(ctx context.Context, op, path string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &chat.TransientFetchError{Op: op, Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params.Set("key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &chat.FatalFetchError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &chat.TransientFetchError{Op: op, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &chat.TransientFetchError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(op, resp.StatusCode, body)
	}

	if err := sonic.Unmarshal(body, out); err != nil {
		return &chat.TransientFetchError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", errInvalidResponse, err)}
	}
	return nil
}

// classifyStatus maps a non-2xx response onto the fetch error taxonomy.
func classifyStatus(op string, status int, body []byte) error {
	var envelope apiError
	_ = sonic.Unmarshal(body, &envelope)
	reason := envelope.reason()

	msg := envelope.Error.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	if reason != "" {
		msg = reason + ": " + msg
	}
	cause := errors.New(msg)

	switch reason {
	case "liveChatEnded":
		return chat.ErrStreamEnded
	case "rateLimitExceeded", "userRateLimitExceeded", "backendError":
		return &chat.TransientFetchError{Op: op, Status: status, Err: cause}
	}

	switch {
	case status == http.StatusTooManyRequests, status >= 500:
		return &chat.TransientFetchError{Op: op, Status: status, Err: cause}
	case status == http.StatusRequestTimeout:
		return &chat.TransientFetchError{Op: op, Status: status, Err: cause}
	default:
		return &chat.FatalFetchError{Op: op, Status: status, Err: cause}
	}
}
