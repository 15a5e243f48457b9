// Package ingest submits source-page URLs to the remote ingestion function,
// which scrapes the page and creates the work record.
package ingest

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/metrics"
	"github.com/shareboard/shareboard/internal/ratelimit"
	"github.com/shareboard/shareboard/internal/sse"
	"github.com/shareboard/shareboard/internal/validation"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Invalidator drops a view's fetched ordering.
type Invalidator interface {
	Invalidate(v domain.View)
}

// Config configures the client.
type Config struct {
	FunctionURL   string
	AllowedHost   string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// Request is one submission.
type Request struct {
	URL string `json:"url" validate:"required,http_url"`
}

type envelope struct {
	Data any `json:"data"`
}

type response struct {
	Data *struct {
		Message string `json:"message"`
	} `json:"data"`
	Error string `json:"error"`
}

// Client calls the ingestion function behind a circuit breaker and a
// per-client rate limit.
type Client struct {
	cfg         Config
	http        *http.Client
	breaker     *gobreaker.CircuitBreaker
	limiter     *ratelimit.KeyedRateLimiter
	validator   *validation.Validator
	invalidator Invalidator
	emitter     sse.Emitter
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New creates a Client. invalidator is told to drop the "new" ordering after
// every accepted submission.
func New(cfg Config, invalidator Invalidator, emitter sse.Emitter, m *metrics.Metrics, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 0.5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 3
	}
	if emitter == nil {
		emitter = sse.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Client{
		cfg:         cfg,
		http:        &http.Client{Timeout: cfg.Timeout},
		limiter:     ratelimit.New(cfg.RatePerSecond, cfg.Burst),
		validator:   validation.New(),
		invalidator: invalidator,
		emitter:     emitter,
		metrics:     m,
		logger:      logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ingest",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// Rejections by the function are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || domainerrors.Is(err, domainerrors.ErrValidation)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return c
}

// Close releases the rate limiter.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Submit sends rawURL for ingestion on behalf of clientID and returns the
// function's message.
func (c *Client) Submit(ctx context.Context, clientID, rawURL string) (string, error) {
	req := Request{URL: strings.TrimSpace(rawURL)}
	if err := c.validator.Validate(req); err != nil {
		c.metrics.Ingest("rejected")
		return "", err
	}
	if c.cfg.AllowedHost != "" && !strings.Contains(req.URL, c.cfg.AllowedHost) {
		c.metrics.Ingest("rejected")
		return "", domainerrors.ValidationWithDetails("unsupported URL",
			map[string]string{"url": "must be a " + c.cfg.AllowedHost + " page"})
	}
	if c.cfg.FunctionURL == "" {
		return "", domainerrors.Internal("ingestion is not configured")
	}
	if !c.limiter.Allow(clientID) {
		c.metrics.Ingest("rate_limited")
		return "", domainerrors.RateLimited("too many submissions, try again shortly")
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, req)
	})
	if err != nil {
		return "", c.failed(clientID, err)
	}

	message, _ := result.(string)
	c.metrics.Ingest("accepted")
	c.logger.Info("work submitted", slog.String("url", req.URL))
	c.emitter.Emit(sse.NewNotificationEvent("", sse.LevelSuccess, message))
	if c.invalidator != nil {
		c.invalidator.Invalidate(domain.ViewNew)
	}
	return message, nil
}

func (c *Client) failed(clientID string, err error) error {
	var out error
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.Ingest("unavailable")
		out = domainerrors.Transient(err, "ingestion is temporarily unavailable")
	case domainerrors.Is(err, domainerrors.ErrValidation):
		c.metrics.Ingest("refused")
		out = err
	default:
		c.metrics.Ingest("failed")
		out = domainerrors.Transient(err, "failed to submit work")
	}

	c.logger.Warn("ingestion failed", slog.String("client_id", clientID), slog.String("error", err.Error()))
	var domainErr *domainerrors.Error
	msg := err.Error()
	if errors.As(out, &domainErr) {
		msg = domainErr.Message
	}
	c.emitter.Emit(sse.NewNotificationEvent("", sse.LevelError, msg))
	return out
}

func (c *Client) post(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(envelope{Data: req})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.FunctionURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out response
	decodeErr := json.Unmarshal(data, &out)

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("ingestion function returned %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Error
		if decodeErr != nil || msg == "" {
			msg = "unknown error"
		}
		return "", domainerrors.Validation(msg)
	}
	if decodeErr != nil || out.Data == nil {
		return "", fmt.Errorf("unexpected ingestion response: %s", bytes.TrimSpace(data))
	}
	return out.Data.Message, nil
}
