package playback

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
	"strconv"
	"strings"

	"github.com/aryan-manish-vaidya/Aurora/internal/audio"
	"github.com/aryan-manish-vaidya/Aurora/internal/version"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultDeepgramURL is the Deepgram text-to-speech endpoint.
const DefaultDeepgramURL = "https://api.deepgram.com/v1/speak"

// ErrMissingAPIKey is returned by Speak when the Deepgram key is unset.
var ErrMissingAPIKey = errors.New("deepgram api key is missing")

const defaultDeepgramVoice = "aura-2-thalia-en"

var deepgramVoices = []Voice{
	{Name: "aura-2-thalia-en", Description: "Thalia, clear confident feminine, American English", Default: true},
	{Name: "aura-2-andromeda-en", Description: "Andromeda, casual expressive feminine, American English"},
	{Name: "aura-2-helena-en", Description: "Helena, caring natural feminine, American English"},
	{Name: "aura-2-apollo-en", Description: "Apollo, confident casual masculine, American English"},
	{Name: "aura-2-arcas-en", Description: "Arcas, natural smooth masculine, American English"},
	{Name: "aura-2-aries-en", Description: "Aries, warm energetic masculine, American English"},
	{Name: "aura-2-draco-en", Description: "Draco, warm trustworthy masculine, British English"},
	{Name: "aura-2-pandora-en", Description: "Pandora, smooth calm feminine, British English"},
	{Name: "aura-asteria-en", Description: "Asteria, clear feminine, American English"},
	{Name: "aura-orion-en", Description: "Orion, approachable masculine, American English"},
}

// Player plays mono s16 samples and blocks until done.
type Player func(ctx context.Context, samples []int16, sampleRate int, mediaName string) error

// DeepgramConfig controls the Deepgram speak backend.
type DeepgramConfig struct {
	URL        string
	APIKey     string
	SampleRate int
}

// Deepgram synthesizes speech with Deepgram Aura and plays it locally.
type Deepgram struct {
	cfg        DeepgramConfig
	httpClient *http.Client
	play       Player
	logger     *slog.Logger
}

// DeepgramOption customizes a Deepgram synthesizer.
type DeepgramOption func(*Deepgram)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(httpClient *http.Client) DeepgramOption {
	return func(d *Deepgram) { d.httpClient = httpClient }
}

// WithPlayer replaces PulseAudio playback.
func WithPlayer(play Player) DeepgramOption {
	return func(d *Deepgram) { d.play = play }
}

// NewDeepgram builds a Deepgram synthesizer.
func NewDeepgram(cfg DeepgramConfig, log *slog.Logger, opts ...DeepgramOption) *Deepgram {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultDeepgramURL
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	if log == nil {
		log = slog.Default()
	}
	d := &Deepgram{
		cfg: cfg,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
		play:   audio.Play,
		logger: log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Voices returns the static Aura catalogue.
func (d *Deepgram) Voices(context.Context) ([]Voice, error) {
	out := make([]Voice, len(deepgramVoices))
	copy(out, deepgramVoices)
	return out, nil
}

// Speak fetches linear16 audio for text and plays it. Pitch and Rate are not applied.
func (d *Deepgram) Speak(ctx context.Context, text string, opts Options) error {
	if strings.TrimSpace(d.cfg.APIKey) == "" {
		return ErrMissingAPIKey
	}

	pcm, err := d.synthesize(ctx, text, opts)
	if err != nil {
		return err
	}
	return d.play(ctx, audio.DecodeLinear16(pcm), d.cfg.SampleRate, "aurora speaking")
}

func (d *Deepgram) synthesize(ctx context.Context, text string, opts Options) ([]byte, error) {
	voice := strings.TrimSpace(opts.Voice)
	if voice == "" {
		voice = defaultDeepgramVoice
	}

	endpoint, err := url.Parse(d.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse speak url: %w", err)
	}
	query := endpoint.Query()
	query.Set("model", voice)
	query.Set("encoding", "linear16")
	query.Set("sample_rate", strconv.Itoa(d.cfg.SampleRate))
	query.Set("container", "none")
	endpoint.RawQuery = query.Encode()

	body, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal speak request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create speak request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send speak request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		d.logger.Warn("deepgram speak rejected", "status", resp.StatusCode, "body", string(detail))
		return nil, fmt.Errorf("deepgram speak status %d", resp.StatusCode)
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speak audio: %w", err)
	}
	return pcm, nil
}
