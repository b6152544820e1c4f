package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
)

// DefaultDeepgramURL is the Deepgram streaming listen endpoint.
const DefaultDeepgramURL = "wss://api.deepgram.com/v1/listen"

// DeepgramConfig controls the Deepgram listen backend.
type DeepgramConfig struct {
	URL             string
	APIKey          string
	Model           string
	EndpointingMS   int
	UtteranceEndMS  int
	NoSpeechTimeout time.Duration
}

// Deepgram streams microphone audio to a Deepgram listen websocket until one utterance completes.
type Deepgram struct {
	cfg    DeepgramConfig
	open   MicrophoneOpener
	dialer *websocket.Dialer
	logger *slog.Logger
}

// NewDeepgram builds a Deepgram capability over the given microphone opener.
func NewDeepgram(cfg DeepgramConfig, open MicrophoneOpener, log *slog.Logger) *Deepgram {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultDeepgramURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "nova-3"
	}
	if cfg.NoSpeechTimeout <= 0 {
		cfg.NoSpeechTimeout = 8 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Deepgram{
		cfg:    cfg,
		open:   open,
		dialer: websocket.DefaultDialer,
		logger: log,
	}
}

// Begin opens the microphone. The socket is dialed lazily by Result so dial failures
// surface as classified asynchronous errors.
func (d *Deepgram) Begin(ctx context.Context, locale string) (Listener, error) {
	if strings.TrimSpace(d.cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: deepgram api key is not configured", ErrUnavailable)
	}
	if d.open == nil {
		return nil, fmt.Errorf("%w: no microphone", ErrUnavailable)
	}

	mic, err := d.open(ctx)
	if err != nil {
		return nil, err
	}

	return &deepgramListener{
		cfg:    d.cfg,
		locale: locale,
		mic:    mic,
		dialer: d.dialer,
		logger: d.logger,
	}, nil
}

func buildListenURL(cfg DeepgramConfig, locale string) (string, error) {
	listenURL, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse deepgram url: %w", err)
	}

	query := listenURL.Query()
	query.Set("encoding", "linear16")
	query.Set("sample_rate", "16000")
	query.Set("channels", "1")
	query.Set("model", cfg.Model)
	if strings.TrimSpace(locale) != "" {
		query.Set("language", locale)
	}
	query.Set("smart_format", "true")
	query.Set("interim_results", "true")
	query.Set("vad_events", "true")
	if cfg.EndpointingMS > 0 {
		query.Set("endpointing", strconv.Itoa(cfg.EndpointingMS))
	}
	if cfg.UtteranceEndMS > 0 {
		query.Set("utterance_end_ms", strconv.Itoa(cfg.UtteranceEndMS))
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}

type deepgramListener struct {
	cfg    DeepgramConfig
	locale string
	mic    Microphone
	dialer *websocket.Dialer
	logger *slog.Logger

	closeOnce sync.Once
	writeMu   sync.Mutex
}

type socketRead struct {
	payload []byte
	err     error
}

func (l *deepgramListener) Result(ctx context.Context) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	listenURL, err := buildListenURL(l.cfg, l.locale)
	if err != nil {
		return "", &Error{Kind: KindOther, Err: err}
	}

	conn, resp, err := l.dialer.DialContext(ctx, listenURL, http.Header{"Authorization": {"Token " + l.cfg.APIKey}})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return "", &Error{Kind: KindPermissionDenied, Err: fmt.Errorf("deepgram rejected credentials: %s", resp.Status)}
		}
		return "", &Error{Kind: KindNetwork, Err: fmt.Errorf("open deepgram socket: %w", err)}
	}

	var pumpWG sync.WaitGroup
	pumpWG.Add(1)
	go func() {
		defer pumpWG.Done()
		l.pump(ctx, conn)
	}()
	defer func() {
		cancel()
		_ = conn.Close()
		pumpWG.Wait()
	}()

	reads := make(chan socketRead, 16)
	go func() {
		defer close(reads)
		for {
			msgType, payload, err := conn.ReadMessage()
			if err != nil {
				select {
				case reads <- socketRead{err: err}:
				case <-ctx.Done():
				}
				return
			}
			if msgType == websocket.BinaryMessage {
				continue
			}
			select {
			case reads <- socketRead{payload: payload}:
			case <-ctx.Done():
				return
			}
		}
	}()

	noSpeech := time.NewTimer(l.cfg.NoSpeechTimeout)
	defer noSpeech.Stop()

	var state utteranceState
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-noSpeech.C:
			if !state.heard {
				return "", &Error{Kind: KindNoSpeech}
			}
		case read, ok := <-reads:
			if !ok {
				return "", ctx.Err()
			}
			if read.err != nil {
				if text := state.flush(); text != "" {
					return text, nil
				}
				if websocket.IsCloseError(read.err, websocket.CloseNormalClosure) {
					return "", &Error{Kind: KindNoSpeech}
				}
				return "", &Error{Kind: KindNetwork, Err: fmt.Errorf("read deepgram socket: %w", read.err)}
			}
			text, done, err := state.apply(read.payload)
			if err != nil {
				l.logger.Debug("deepgram message ignored", "error", err.Error())
				continue
			}
			if done {
				return text, nil
			}
		}
	}
}

// pump forwards microphone chunks and asks Deepgram to flush once the microphone stops.
func (l *deepgramListener) pump(ctx context.Context, conn *websocket.Conn) {
	chunks := l.mic.Chunks()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				l.writeMu.Lock()
				err := conn.WriteJSON(struct {
					Type string `json:"type"`
				}{Type: string(api.TypeCloseStreamResponse)})
				l.writeMu.Unlock()
				if err != nil {
					l.logger.Debug("deepgram close stream failed", "error", err.Error())
				}
				return
			}
			l.writeMu.Lock()
			err := conn.WriteMessage(websocket.BinaryMessage, chunk)
			l.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (l *deepgramListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.mic.Stop()
	})
	return err
}

// utteranceState accumulates Deepgram results into one utterance.
type utteranceState struct {
	segments    []string
	lastInterim string
	heard       bool
}

var errUnknownMessage = errors.New("unknown deepgram message")

// apply folds one socket message into the state and reports whether the utterance is complete.
func (s *utteranceState) apply(payload []byte) (string, bool, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return "", false, fmt.Errorf("decode deepgram message: %w", err)
	}

	switch api.TypeResponse(envelope.Type) {
	case api.TypeMessageResponse:
		var msg api.MessageResponse
		if err := json.Unmarshal(payload, &msg); err != nil {
			return "", false, fmt.Errorf("decode deepgram result: %w", err)
		}
		transcript := ""
		if len(msg.Channel.Alternatives) > 0 {
			transcript = cleanSegment(msg.Channel.Alternatives[0].Transcript)
		}
		if transcript != "" {
			s.heard = true
		}
		if msg.IsFinal {
			s.segments = appendSegment(s.segments, transcript)
			s.lastInterim = ""
		} else if transcript != "" {
			s.lastInterim = transcript
		}
		if msg.SpeechFinal && len(s.segments) > 0 {
			return s.flush(), true, nil
		}
		return "", false, nil

	case api.TypeUtteranceEndResponse:
		if text := s.flush(); text != "" {
			return text, true, nil
		}
		return "", false, nil

	case api.TypeSpeechStartedResponse:
		s.heard = true
		return "", false, nil

	default:
		return "", false, fmt.Errorf("%w: %q", errUnknownMessage, envelope.Type)
	}
}

// flush returns the accumulated utterance including a trailing interim.
func (s *utteranceState) flush() string {
	return joinSegments(collectSegments(s.segments, s.lastInterim))
}
