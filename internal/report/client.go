// Package report dispatches analysis requests to the remote report
// services and classifies their outcomes.
//
// The services are opaque: they accept a natural-language query and
// return a free-text analysis blob. One user submission maps to exactly
// one outbound call — retries are the user's decision, never the
// client's.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/adlens/adlens/internal/category"
)

// ErrNoCredential is returned when dispatch is attempted without a
// bearer token. No network call is made in that case.
var ErrNoCredential = errors.New("no bearer credential configured")

// ErrEmptyAnalysis is returned when the service reports success but
// carries no analysis text.
var ErrEmptyAnalysis = errors.New("service returned an empty analysis")

// StatusError is a non-2xx HTTP response from the service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("service returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("service returned %d", e.Code)
}

// RejectedError is a well-formed response in which the service itself
// declined the query: an explicit error field, or success=false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// Client dispatches analysis requests to the report services.
type Client struct {
	baseURL     string
	single      bool
	requireAuth bool
	httpc       *http.Client
	tracer      trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default 60s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpc.Timeout = d
		}
	}
}

// WithSingleEndpoint targets the legacy wire variant that serves
// /api/analyze without a category path segment.
func WithSingleEndpoint(single bool) Option {
	return func(c *Client) { c.single = single }
}

// WithoutAuth disables the credential precondition for deployments
// whose backends accept anonymous queries.
func WithoutAuth() Option {
	return func(c *Client) { c.requireAuth = false }
}

// WithHTTPClient swaps the underlying transport (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// NewClient creates a dispatcher for the services rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		requireAuth: true,
		httpc:       &http.Client{Timeout: 60 * time.Second},
		tracer:      otel.Tracer("adlens/report"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// analyzeRequest is the wire request body.
type analyzeRequest struct {
	Query string `json:"query"`
}

// analyzeResponse is the wire response body. An explicit Error wins
// over the Success flag; Success without analysis text is a soft
// failure.
type analyzeResponse struct {
	Success  bool   `json:"success"`
	Analysis string `json:"analysis"`
	Error    string `json:"error,omitempty"`
}

// Analyze sends one query to the category's endpoint and returns the
// raw analysis text. Failures are classified:
//
//   - ErrNoCredential: no token and auth is required; nothing was sent
//   - wrapped transport error: the request never completed
//   - *StatusError: non-2xx response
//   - *RejectedError: the service declined (error field or success=false)
//   - ErrEmptyAnalysis: success with no payload
func (c *Client) Analyze(ctx context.Context, credential string, cat category.Category, query string) (string, error) {
	if c.requireAuth && credential == "" {
		return "", ErrNoCredential
	}

	ctx, span := c.tracer.Start(ctx, "report.analyze",
		trace.WithAttributes(attribute.String("report.category", string(cat))))
	defer span.End()

	body, err := json.Marshal(analyzeRequest{Query: query})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.analyzeURL(cat), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	log.Debug().Str("category", string(cat)).Str("url", req.URL.String()).Msg("dispatching analysis request")

	resp, err := c.httpc.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		return "", fmt.Errorf("analysis request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	var parsed analyzeResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, "server rejected")
		return "", &StatusError{Code: resp.StatusCode, Message: parsed.Error}
	}
	if decodeErr != nil {
		span.RecordError(decodeErr)
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}

	// An explicit error field wins over the success flag.
	if parsed.Error != "" {
		span.SetStatus(codes.Error, "server rejected")
		return "", &RejectedError{Message: parsed.Error}
	}
	if !parsed.Success {
		span.SetStatus(codes.Error, "server rejected")
		return "", &RejectedError{Message: "analysis request failed"}
	}
	if parsed.Analysis == "" {
		span.SetStatus(codes.Error, "empty payload")
		return "", ErrEmptyAnalysis
	}

	log.Debug().Str("category", string(cat)).Int("chars", len(parsed.Analysis)).Msg("analysis received")
	return parsed.Analysis, nil
}

// analyzeURL resolves the endpoint for a category, honoring the
// single-endpoint variant.
func (c *Client) analyzeURL(cat category.Category) string {
	if c.single {
		return c.baseURL + "/api/analyze"
	}
	return c.baseURL + "/api/" + cat.PathSegment() + "/analyze"
}
