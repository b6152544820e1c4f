// Package playback speaks assistant replies through a synthesizer, one utterance at a time.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrNothingToSpeak is returned by Speak for blank text.
var ErrNothingToSpeak = errors.New("nothing to speak")

// Voice is one synthesizer voice.
type Voice struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default,omitempty"`
}

// Options tunes one Speak call. An empty Voice leaves the choice to the synthesizer.
type Options struct {
	Voice string
	Pitch float64
	Rate  float64
}

// Synthesizer turns text into audible speech.
type Synthesizer interface {
	Voices(ctx context.Context) ([]Voice, error)
	// Speak blocks until audio finishes or ctx is cancelled.
	Speak(ctx context.Context, text string, opts Options) error
}

// EventType identifies a playback event.
type EventType string

const (
	EventStarted EventType = "started"
	EventEnded   EventType = "ended"
)

// Event is one notification about an utterance. Err is set on an Ended event when playback failed.
type Event struct {
	Utterance uint64
	Type      EventType
	Err       error
}

// Sink receives playback events. It is called from utterance goroutines and must not block.
type Sink func(Event)

// Utterance identifies a started Speak call.
type Utterance struct {
	ID uint64
}

// Config holds voice preferences and prosody.
type Config struct {
	Preferences []string
	Pitch       float64
	Rate        float64
}

// Adapter runs at most one utterance at a time.
type Adapter struct {
	synth  Synthesizer
	cfg    Config
	sink   Sink
	logger *slog.Logger

	mu       sync.Mutex
	nextID   uint64
	current  uint64
	cancel   context.CancelFunc
	voice    string
	resolved bool

	utterances metric.Int64Counter
}

// NewAdapter wires synth to sink.
func NewAdapter(synth Synthesizer, cfg Config, sink Sink, log *slog.Logger) *Adapter {
	if sink == nil {
		sink = func(Event) {}
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.Pitch <= 0 {
		cfg.Pitch = 1.0
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 0.9
	}
	utterances, err := meter.Int64Counter(
		"aurora.playback.utterances",
		metric.WithDescription("Utterances by outcome"),
	)
	if err != nil {
		log.Debug("playback counter unavailable", "error", err.Error())
	}
	return &Adapter{
		synth:      synth,
		cfg:        cfg,
		sink:       sink,
		logger:     log,
		utterances: utterances,
	}
}

// Speak cancels the current utterance and starts speaking text.
func (a *Adapter) Speak(ctx context.Context, text string) (Utterance, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Utterance{}, ErrNothingToSpeak
	}
	a.Cancel()

	speakCtx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.nextID++
	id := a.nextID
	a.current = id
	a.cancel = cancel
	a.mu.Unlock()

	go a.run(speakCtx, id, text)
	return Utterance{ID: id}, nil
}

// Cancel stops the current utterance. A cancelled utterance emits no Ended event.
func (a *Adapter) Cancel() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.current = 0
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Speaking reports whether an utterance is in flight.
func (a *Adapter) Speaking() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != 0
}

// Voices lists the synthesizer voices and the one the preferences select.
func (a *Adapter) Voices(ctx context.Context) ([]Voice, string, error) {
	voices, err := a.synth.Voices(ctx)
	if err != nil {
		return nil, "", err
	}
	return voices, SelectVoice(voices, a.cfg.Preferences), nil
}

func (a *Adapter) run(ctx context.Context, id uint64, text string) {
	ctx, span := tracer.Start(ctx, "playback utterance")
	defer span.End()
	span.SetAttributes(attribute.Int64("playback.utterance", int64(id)), attribute.Int("playback.chars", len(text)))

	if !a.emit(id, Event{Utterance: id, Type: EventStarted}) {
		a.record(ctx, "preempted")
		return
	}

	opts := Options{Voice: a.selectedVoice(ctx), Pitch: a.cfg.Pitch, Rate: a.cfg.Rate}
	span.SetAttributes(attribute.String("playback.voice", opts.Voice))

	started := time.Now()
	err := a.synth.Speak(ctx, text, opts)
	if ctx.Err() != nil {
		span.AddEvent("cancelled")
		a.record(ctx, "cancelled")
		return
	}
	if err != nil {
		span.RecordError(err)
		a.logger.Warn("playback failed", "utterance", id, "error", err.Error())
		a.record(ctx, "failed")
	} else {
		a.logger.Debug("playback finished", "utterance", id, "duration_ms", time.Since(started).Milliseconds())
		a.record(ctx, "spoken")
	}

	a.finish(id, Event{Utterance: id, Type: EventEnded, Err: err})
}

// emit delivers event only while id is the current utterance.
func (a *Adapter) emit(id uint64, event Event) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != id {
		return false
	}
	a.sink(event)
	return true
}

func (a *Adapter) finish(id uint64, event Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != id {
		return
	}
	a.current = 0
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.sink(event)
}

// selectedVoice resolves the preferred voice once; a failed lookup is retried on the next utterance.
func (a *Adapter) selectedVoice(ctx context.Context) string {
	a.mu.Lock()
	if a.resolved {
		voice := a.voice
		a.mu.Unlock()
		return voice
	}
	a.mu.Unlock()

	voices, err := a.synth.Voices(ctx)
	if err != nil {
		a.logger.Debug("voice lookup failed", "error", err.Error())
		return ""
	}
	voice := SelectVoice(voices, a.cfg.Preferences)

	a.mu.Lock()
	a.voice = voice
	a.resolved = true
	a.mu.Unlock()
	return voice
}

func (a *Adapter) record(ctx context.Context, outcome string) {
	if a.utterances == nil {
		return
	}
	a.utterances.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
