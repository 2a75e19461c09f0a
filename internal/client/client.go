// Package client talks to the transaction-analysis backend over HTTP and
// Server-Sent Events.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/txray-labs/txray/internal/payment"
	"github.com/txray-labs/txray/internal/sse"
)

// Request is one analysis request. ConversationID is empty for fresh
// conversations; the server answers with a session event carrying the
// durable id. PaymentProof is set only when retrying after a 402.
type Request struct {
	Message        string
	ConversationID string
	PaymentProof   string
}

type chatBody struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

// StatusError is a non-2xx, non-402 backend response.
type StatusError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("backend status %d", e.Code)
}

// Client is the analysis backend API client.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	adminToken string
	authToken  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimiter throttles sends client-side.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithAdminToken sets the admin bypass header on every request.
func WithAdminToken(token string) Option {
	return func(c *Client) { c.adminToken = token }
}

// WithAuthToken sets the bearer token on every request.
func WithAuthToken(token string) Option {
	return func(c *Client) { c.authToken = token }
}

// New creates a client for the given backend endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		// No timeout here: streams are open-ended and cancellation comes
		// from the caller's context.
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stream POSTs an analysis request and invokes fn for every decoded event in
// arrival order until the stream ends. A 402 response returns
// *payment.RequiredError without invoking fn; other non-2xx responses return
// *StatusError. The context cancels the underlying network read.
func (c *Client) Stream(ctx context.Context, req Request, fn func(sse.Event)) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	body, err := json.Marshal(chatBody{
		Message:        req.Message,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := c.endpoint + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	if c.adminToken != "" {
		httpReq.Header.Set("X-Admin-Token", c.adminToken)
	}
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if req.PaymentProof != "" {
		httpReq.Header.Set("X-PAYMENT", req.PaymentProof)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		payload, _ := io.ReadAll(resp.Body)
		required := payment.Parse(payload)
		log.Info().Str("amount", required.Amount).Str("recipient", required.Recipient).Msg("payment required")
		return &payment.RequiredError{Required: required}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}

	return c.consume(ctx, resp.Body, fn)
}

// statusError decodes the optional {message} body of a failed response.
func (c *Client) statusError(resp *http.Response) error {
	serr := &StatusError{Code: resp.StatusCode}

	payload, _ := io.ReadAll(resp.Body)
	var decoded struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &decoded); err == nil {
		serr.Message = decoded.Message
	}
	return serr
}

// consume reads the SSE stream to completion, honoring ctx between reads.
func (c *Client) consume(ctx context.Context, body io.Reader, fn func(sse.Event)) error {
	reader := sse.NewReader(body)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ev, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// The http client surfaces context cancellation as a read error.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read stream: %w", err)
		}

		fn(ev)
	}
}
