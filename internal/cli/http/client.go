package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const userAgent = "stackit-cli"

// ResponseInfo carries response details.
type ResponseInfo struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	RequestID  string
}

// Envelope is the JSON wrapper every forum response uses.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
	TraceID string          `json:"trace_id,omitempty"`
}

// Decode parses the response body as an envelope.
func (r ResponseInfo) Decode() (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return env, fmt.Errorf("decode response failed: %w", err)
	}
	return env, nil
}

// Client sends forum API requests on behalf of the CLI.
type Client struct {
	baseURL       string
	http          *http.Client
	tokenProvider func() string
}

func New(baseURL string, timeout time.Duration, tokenProvider func() string) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{Timeout: timeout},
		tokenProvider: tokenProvider,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.http.Timeout = timeout
	}
}

// Do sends one request. Each call gets a fresh X-Request-ID so server logs can be matched.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (ResponseInfo, error) {
	var info ResponseInfo

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return info, fmt.Errorf("build request failed: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	info.RequestID = uuid.NewString()
	req.Header.Set("X-Request-ID", info.RequestID)
	if c.tokenProvider != nil {
		if token := c.tokenProvider(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	info.Duration = time.Since(start)
	if err != nil {
		return info, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	info.StatusCode = resp.StatusCode
	info.Headers = resp.Header
	info.Body, err = io.ReadAll(resp.Body)
	if err != nil {
		return info, fmt.Errorf("read response body failed: %w", err)
	}
	return info, nil
}
