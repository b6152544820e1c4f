// Package inference sends conversation history to a remote generative model and returns one reply.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aryan-manish-vaidya/Aurora/internal/transcript"
	"github.com/aryan-manish-vaidya/Aurora/internal/version"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const maxErrorBody = 4 << 10

// Config controls endpoint, model, and request hardening.
type Config struct {
	Endpoint        string
	Model           string
	Persona         string
	Timeout         time.Duration
	MaxHistoryTurns int
}

// Client calls the generateContent endpoint once per Complete.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	duration   metric.Float64Histogram
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger routes client logs to log instead of slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.logger = log
		}
	}
}

// NewClient builds a client for cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	duration, err := meter.Float64Histogram(
		"aurora.inference.duration",
		metric.WithDescription("Inference request duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		c.logger.Debug("inference histogram unavailable", "error", err.Error())
	}
	c.duration = duration
	return c
}

// Complete sends history and returns the model's reply text.
func (c *Client) Complete(ctx context.Context, history []transcript.Turn, credential string) (string, error) {
	if strings.TrimSpace(credential) == "" {
		return "", ErrMissingCredential
	}

	ctx, span := tracer.Start(ctx, "inference complete")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", c.cfg.Model))

	reqBody := buildRequest(history, c.cfg.Persona, c.cfg.MaxHistoryTurns)
	span.SetAttributes(attribute.Int("request.turns", len(reqBody.Contents)))
	if len(reqBody.Contents) == 0 {
		err := &UpstreamError{Err: errors.New("no user turns to send")}
		span.RecordError(err)
		return "", err
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		err = &UpstreamError{Err: fmt.Errorf("marshal request: %w", err)}
		span.RecordError(err)
		return "", err
	}

	endpoint := c.cfg.Endpoint + "/models/" + url.PathEscape(c.cfg.Model) + ":generateContent"

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		err = &UpstreamError{Err: fmt.Errorf("create request: %w", err)}
		span.RecordError(err)
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("x-goog-api-key", credential)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	c.observe(ctx, started, resp)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		err = &UpstreamError{Err: fmt.Errorf("send request: %w", err)}
		span.RecordError(err)
		return "", err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := &UpstreamError{Status: resp.StatusCode, Err: fmt.Errorf("non-OK HTTP status: %s", resp.Status)}
		span.RecordError(err)
		span.SetAttributes(attribute.String("response.error", string(body)))
		c.logger.Warn("inference request rejected", "status", resp.StatusCode, "body", string(body))
		return "", err
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		err = &UpstreamError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		span.RecordError(err)
		return "", err
	}

	reply, ok := decoded.replyText()
	if !ok {
		err := &UpstreamError{Status: resp.StatusCode, Err: errors.New("response has no reply text")}
		span.RecordError(err)
		return "", err
	}

	span.SetAttributes(attribute.Int("response.chars", len(reply)))
	c.logger.Debug("inference reply", "turns", len(reqBody.Contents), "duration_ms", time.Since(started).Milliseconds())
	return reply, nil
}

func (c *Client) observe(ctx context.Context, started time.Time, resp *http.Response) {
	if c.duration == nil {
		return
	}
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.duration.Record(ctx, time.Since(started).Seconds(), metric.WithAttributes(
		attribute.String("model", c.cfg.Model),
		attribute.Int("status", status),
	))
}
