// Package capture adapts single-utterance speech recognizers into tagged capture events.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Capability starts one recognition attempt.
type Capability interface {
	Begin(ctx context.Context, locale string) (Listener, error)
}

// Listener is one in-flight recognition attempt.
type Listener interface {
	// Result blocks until one finalized utterance or an error.
	Result(ctx context.Context) (string, error)
	Close() error
}

// EventType identifies a capture event.
type EventType string

const (
	EventStarted EventType = "started"
	EventResult  EventType = "result"
	EventError   EventType = "error"
	EventEnded   EventType = "ended"
)

// Event is one notification about a capture attempt.
type Event struct {
	Attempt uint64
	Type    EventType
	Text    string
	Err     *Error
}

// Sink receives capture events. It is called from attempt goroutines and must not block.
type Sink func(Event)

// Attempt identifies a started recognition attempt.
type Attempt struct {
	ID uint64
}

// startTimeout bounds how long Start waits for a backend to open its
// device or socket. Start runs on the caller's goroutine.
const startTimeout = 3 * time.Second

// Adapter runs at most one recognition attempt at a time.
type Adapter struct {
	capability   Capability
	locale       string
	sink         Sink
	logger       *slog.Logger
	startTimeout time.Duration

	mu      sync.Mutex
	nextID  uint64
	current uint64
	cancel  context.CancelFunc

	attempts metric.Int64Counter
}

// NewAdapter wires a capability to sink. A nil capability makes every Start fail with ErrUnavailable.
func NewAdapter(capability Capability, locale string, sink Sink, log *slog.Logger) *Adapter {
	if sink == nil {
		sink = func(Event) {}
	}
	if log == nil {
		log = slog.Default()
	}
	attempts, err := meter.Int64Counter(
		"aurora.capture.attempts",
		metric.WithDescription("Recognition attempts by outcome"),
	)
	if err != nil {
		log.Debug("capture counter unavailable", "error", err.Error())
	}
	return &Adapter{
		capability:   capability,
		locale:       locale,
		sink:         sink,
		logger:       log,
		startTimeout: startTimeout,
		attempts:     attempts,
	}
}

// Start begins a recognition attempt, stopping any attempt already in flight.
func (a *Adapter) Start(ctx context.Context) (Attempt, error) {
	if a.capability == nil {
		return Attempt{}, ErrUnavailable
	}
	a.Stop()

	attemptCtx, cancel := context.WithCancel(ctx)
	listener, err := a.begin(attemptCtx)
	if err != nil {
		cancel()
		a.record(ctx, "start-failed")
		if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrStartFailed) {
			return Attempt{}, err
		}
		return Attempt{}, fmt.Errorf("%w: %w", ErrStartFailed, err)
	}

	a.mu.Lock()
	a.nextID++
	id := a.nextID
	a.current = id
	a.cancel = cancel
	a.mu.Unlock()

	go a.run(attemptCtx, id, listener)
	return Attempt{ID: id}, nil
}

// begin opens the backend, giving up after startTimeout. A listener that
// opens after the caller gave up is closed unused.
func (a *Adapter) begin(ctx context.Context) (Listener, error) {
	type opened struct {
		listener Listener
		err      error
	}
	done := make(chan opened, 1)
	go func() {
		listener, err := a.capability.Begin(ctx, a.locale)
		done <- opened{listener: listener, err: err}
	}()

	timer := time.NewTimer(a.startTimeout)
	defer timer.Stop()

	var err error
	select {
	case o := <-done:
		return o.listener, o.err
	case <-timer.C:
		err = fmt.Errorf("capture did not open within %s", a.startTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	go func() {
		if o := <-done; o.listener != nil {
			_ = o.listener.Close()
		}
	}()
	return nil, err
}

// Stop cancels the in-flight attempt. It is safe to call when nothing is running.
func (a *Adapter) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.current = 0
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Active reports whether an attempt is in flight.
func (a *Adapter) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != 0
}

func (a *Adapter) run(ctx context.Context, id uint64, listener Listener) {
	ctx, span := tracer.Start(ctx, "capture attempt")
	defer span.End()
	span.SetAttributes(attribute.Int64("capture.attempt", int64(id)))

	started := time.Now()
	a.sink(Event{Attempt: id, Type: EventStarted})
	defer func() {
		a.finish(id)
		a.sink(Event{Attempt: id, Type: EventEnded})
	}()
	defer func() {
		if err := listener.Close(); err != nil {
			a.logger.Debug("capture listener close failed", "attempt", id, "error", err.Error())
		}
	}()

	text, err := listener.Result(ctx)
	if ctx.Err() != nil {
		span.AddEvent("stopped")
		a.record(ctx, "stopped")
		return
	}
	if err == nil {
		text = cleanSegment(text)
		if text == "" {
			err = &Error{Kind: KindNoSpeech}
		}
	}
	if err != nil {
		ce := classify(err)
		span.RecordError(ce)
		span.SetAttributes(attribute.String("capture.error_kind", string(ce.Kind)))
		a.logger.Info("capture failed",
			"attempt", id,
			"kind", string(ce.Kind),
			"error", ce.Error(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
		a.record(ctx, string(ce.Kind))
		a.sink(Event{Attempt: id, Type: EventError, Err: ce})
		return
	}

	a.logger.Debug("capture result",
		"attempt", id,
		"chars", len(text),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	a.record(ctx, "result")
	a.sink(Event{Attempt: id, Type: EventResult, Text: text})
}

func (a *Adapter) finish(id uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == id {
		a.current = 0
		if a.cancel != nil {
			a.cancel()
			a.cancel = nil
		}
	}
}

func (a *Adapter) record(ctx context.Context, outcome string) {
	if a.attempts == nil {
		return
	}
	a.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
