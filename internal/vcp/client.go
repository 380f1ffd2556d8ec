// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Configuration constants for the VCP client.
const (
	// DefaultTimeout bounds single-shot requests.
	DefaultTimeout = 120 * time.Second

	// DefaultMaxRetries is the number of attempts for transient failures.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed single-shot response body size.
	MaxResponseSize = 10 * 1024 * 1024

	// userAgent identifies the client to the server.
	userAgent = "vcpchat/0.1.0"
)

// Error variables for common server errors.
var (
	// ErrNotConfigured indicates the server URL or API key is missing.
	ErrNotConfigured = errors.New("VCP server URL or API key not configured")

	// ErrAuthFailed indicates the API key was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")

	// ErrInsufficientCredits indicates the account has insufficient credits.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// APIError is an error response from the server.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("VCP error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("VCP error (HTTP %d): %s", e.Status, e.Message)
}

// Is maps well-known statuses to the package sentinels.
func (e *APIError) Is(target error) bool {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return target == ErrAuthFailed
	case http.StatusPaymentRequired:
		return target == ErrInsufficientCredits
	case http.StatusNotFound:
		return target == ErrModelNotFound
	case http.StatusTooManyRequests:
		return target == ErrRateLimited
	}
	return false
}

// apiErrorResponse is the error body shape used by OpenAI-compatible servers.
type apiErrorResponse struct {
	Error struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to a VCP chat completions endpoint.
//
// Streaming requests return as soon as the server accepts them. The body is
// then read on a background goroutine that reports through the
// StreamHandler. Close cancels every live stream and waits for them.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	transport    *http.Transport
	limiter      *rate.Limiter
	maxRetries   int
	handler      StreamHandler
	logger       *zap.Logger

	mu      sync.Mutex
	streams map[string]context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

// NewClient creates a client. A nil logger disables logging.
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		httpClient:   &http.Client{Transport: transport, Timeout: DefaultTimeout},
		streamClient: &http.Client{Transport: transport}, // context-controlled
		transport:    transport,
		limiter:      rate.NewLimiter(rate.Every(250*time.Millisecond), 4),
		maxRetries:   DefaultMaxRetries,
		logger:       logger.Named("vcp"),
		streams:      make(map[string]context.CancelFunc),
	}
}

// WithHandler sets the receiver for streamed events.
func (c *Client) WithHandler(h StreamHandler) *Client {
	c.handler = h
	return c
}

// WithMaxRetries sets the maximum number of attempts.
func (c *Client) WithMaxRetries(n int) *Client {
	if n < 1 {
		n = 1
	}
	c.maxRetries = n
	return c
}

// WithRateLimit sets the request throttle.
func (c *Client) WithRateLimit(every time.Duration, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Every(every), burst)
	return c
}

// WithTimeout sets the single-shot request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.httpClient.Timeout = d
	return c
}

// SendToVCP sends one completion request.
//
// Server-reported failures come back in the Result (StreamError or Error).
// The returned error is reserved for configuration and transport failures.
func (c *Client) SendToVCP(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.ServerURL) == "" || strings.TrimSpace(req.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if req.Stream && req.CorrelationID == "" {
		return nil, errors.New("streaming request requires a correlation id")
	}

	body, err := json.Marshal(chatRequest{
		Messages:    req.Messages,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	c.logger.Debug("sending request",
		zap.String("correlation_id", req.CorrelationID),
		zap.String("model", req.Model),
		zap.Bool("stream", req.Stream),
		zap.Int("messages", len(req.Messages)))

	if req.Stream {
		return c.startStream(ctx, req, body)
	}
	return c.complete(ctx, req, body)
}

// complete performs a single-shot request.
func (c *Client) complete(ctx context.Context, req Request, body []byte) (*Result, error) {
	resp, err := c.doWithRetry(ctx, c.httpClient, req, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := handleErrorResponse(resp.StatusCode, data)
		c.logger.Warn("request rejected", zap.Int("status", resp.StatusCode), zap.Error(apiErr))
		return &Result{Error: apiErr.Error()}, nil
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &Result{Choices: parsed.Choices}, nil
}

// startStream opens a streaming request and hands the body to a goroutine.
func (c *Client) startStream(ctx context.Context, req Request, body []byte) (*Result, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("client closed")
	}
	if _, busy := c.streams[req.CorrelationID]; busy {
		c.mu.Unlock()
		return &Result{StreamError: fmt.Sprintf("stream %s already running", req.CorrelationID)}, nil
	}
	// The stream outlives ctx once accepted. Cancel and Close end it early.
	streamCtx, cancel := context.WithCancel(context.Background())
	c.streams[req.CorrelationID] = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, cancel)
	resp, err := c.doWithRetry(streamCtx, c.streamClient, req, body)
	stop()
	if err != nil {
		c.forget(req.CorrelationID)
		cancel()
		c.wg.Done()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &Result{StreamError: err.Error()}, nil
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := readResponse(resp)
		resp.Body.Close()
		c.forget(req.CorrelationID)
		cancel()
		c.wg.Done()
		apiErr := handleErrorResponse(resp.StatusCode, data)
		c.logger.Warn("stream rejected", zap.Int("status", resp.StatusCode), zap.Error(apiErr))
		return &Result{StreamError: apiErr.Error()}, nil
	}

	go func() {
		defer c.wg.Done()
		defer resp.Body.Close()
		defer cancel()
		defer c.forget(req.CorrelationID)

		reason, err := processStream(streamCtx, req.CorrelationID, resp.Body, c.handler)
		switch {
		case err == nil:
			c.logger.Debug("stream finished",
				zap.String("correlation_id", req.CorrelationID), zap.String("reason", reason))
			if c.handler.OnEnd != nil {
				c.handler.OnEnd(req.CorrelationID, reason)
			}
		case errors.Is(err, context.Canceled):
			c.logger.Debug("stream cancelled", zap.String("correlation_id", req.CorrelationID))
		default:
			c.logger.Warn("stream failed",
				zap.String("correlation_id", req.CorrelationID), zap.Error(err))
			if c.handler.OnError != nil {
				c.handler.OnError(req.CorrelationID, err)
			}
		}
	}()

	return &Result{StreamingStarted: true}, nil
}

// Cancel aborts the stream with the given correlation id and reports whether
// one was running.
func (c *Client) Cancel(correlationID string) bool {
	c.mu.Lock()
	cancel, ok := c.streams[correlationID]
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Active reports whether a stream with the given id is running.
func (c *Client) Active(correlationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.streams[correlationID]
	return ok
}

// Close cancels every stream, waits for their goroutines and releases idle
// connections.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	for _, cancel := range c.streams {
		cancel()
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.transport.CloseIdleConnections()
	return nil
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.streams, id)
	c.mu.Unlock()
}

// =============================================================================
// RETRY LOGIC
// =============================================================================

// doWithRetry posts body and retries connection errors and 5xx responses with
// exponential backoff. Other statuses are returned to the caller.
func (c *Client) doWithRetry(ctx context.Context, hc *http.Client, req Request, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(calculateBackoff(attempt)):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.ServerURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		setHeaders(httpReq, req.APIKey, req.Stream)

		start := time.Now()
		resp, err := hc.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.logger.Debug("request attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}
		c.logger.Debug("response",
			zap.Int("status", resp.StatusCode), zap.Duration("duration", time.Since(start)))

		if resp.StatusCode >= 500 && attempt < c.maxRetries-1 {
			data, _ := readResponse(resp)
			resp.Body.Close()
			lastErr = handleErrorResponse(resp.StatusCode, data)
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// setHeaders sets the headers for a completion request. The API key never
// reaches the logs.
func setHeaders(req *http.Request, apiKey string, stream bool) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
	}
}

// calculateBackoff returns the delay to wait before the given attempt.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// readResponse reads a response body up to MaxResponseSize.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts an error body into an *APIError.
func handleErrorResponse(status int, body []byte) error {
	var parsed apiErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		code := ""
		if parsed.Error.Code != nil {
			code = fmt.Sprint(parsed.Error.Code)
		}
		return &APIError{Code: code, Message: parsed.Error.Message, Status: status}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Message: msg, Status: status}
}
