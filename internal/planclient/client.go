// Package planclient requests weekly meal plans from the plan-generation
// endpoint and refuses anything that does not match the plan shape.
package planclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"diet-planner/internal/models"
	"diet-planner/pkg/logger"
)

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 4 << 20

// ConfigurationCode is the "code" the endpoint sets when its credential is missing.
const ConfigurationCode = "configuration"

// Request is the body sent to the endpoint.
type Request struct {
	UserProfile    models.UserProfile `json:"userProfile"`
	TargetCalories int                `json:"targetCalories"`
	// Seed only nudges the generator away from repeating itself.
	Seed int `json:"seed,omitempty"`
}

// ErrorResponse is the body of a non-success response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type Client struct {
	endpoint   string
	fallback   string
	httpClient *http.Client
	timeout    time.Duration
	logger     *logger.Logger
	seed       func() int
}

type Option func(*Client)

// WithFallbackEndpoint sets the address used for the single retry after a
// connectivity failure. Without it the retry targets the primary endpoint.
func WithFallbackEndpoint(url string) Option {
	return func(c *Client) {
		c.fallback = url
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each HTTP attempt. It is applied to a copy of the
// HTTP client, so a shared client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithSeedSource replaces the random seed generator.
func WithSeedSource(fn func() int) Option {
	return func(c *Client) {
		c.seed = fn
	}
}

func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger.NewNop(),
		seed:   func() int { return rand.Intn(10_000_000) },
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.fallback == "" {
		c.fallback = c.endpoint
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	return c
}

// RequestPlan asks the endpoint for a 7-day plan around calorieTarget.
// Connectivity failures get exactly one more attempt against the fallback
// endpoint; rate limiting, configuration and invalid responses are returned
// immediately. On error the returned plan is always nil.
func (c *Client) RequestPlan(ctx context.Context, profile models.UserProfile, calorieTarget int) (*models.WeeklyPlan, error) {
	body, err := json.Marshal(Request{
		UserProfile:    profile,
		TargetCalories: calorieTarget,
		Seed:           c.seed(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan request: %w", err)
	}

	plan, err := c.post(ctx, c.endpoint, body)
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, ErrConnectivity) || ctx.Err() != nil {
		return nil, err
	}

	c.logger.Warnw("Plan request failed, retrying with fallback endpoint",
		"endpoint", c.endpoint, "fallback", c.fallback, "error", err)

	plan, err = c.post(ctx, c.fallback, body)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) (*models.WeeklyPlan, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, newError(ErrConnectivity, 0, "", fmt.Errorf("failed to create HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError(ErrConnectivity, 0, "", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, newError(ErrConnectivity, resp.StatusCode, "", fmt.Errorf("failed to read response: %w", err))
	}

	c.logger.Debugw("Plan endpoint responded",
		"url", url, "status", resp.StatusCode, "bytes", len(data), "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyStatus(resp.StatusCode, data)
	}

	plan, err := DecodePlan(data)
	if err != nil {
		return nil, newError(ErrInvalidResponse, resp.StatusCode, "", err)
	}
	return plan, nil
}

func classifyStatus(status int, body []byte) error {
	var er ErrorResponse
	_ = json.Unmarshal(body, &er)

	switch {
	case status == http.StatusTooManyRequests:
		return newError(ErrRateLimited, status, er.Error, nil)
	case er.Code == ConfigurationCode:
		return newError(ErrConfiguration, status, er.Error, nil)
	default:
		return newError(ErrConnectivity, status, er.Error, nil)
	}
}
