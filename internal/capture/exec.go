package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

const execSampleRate = 16000

// ExecConfig controls the command-driven recognizer backend.
type ExecConfig struct {
	Argv   []string
	Window time.Duration
	TmpDir string
}

// Runner executes a recognizer command and returns its stdout.
type Runner func(ctx context.Context, argv []string) ([]byte, error)

// Exec records a fixed window of audio, writes it as WAV, and hands it to a recognizer command
// that prints {"text": ..., "confidence": ...}.
type Exec struct {
	cfg    ExecConfig
	open   MicrophoneOpener
	fs     afero.Fs
	run    Runner
	logger *slog.Logger
}

// ExecOption customizes an Exec backend.
type ExecOption func(*Exec)

// WithFs overrides the filesystem used for the temporary WAV file.
func WithFs(fs afero.Fs) ExecOption {
	return func(e *Exec) { e.fs = fs }
}

// WithRunner overrides how the recognizer command is executed.
func WithRunner(run Runner) ExecOption {
	return func(e *Exec) { e.run = run }
}

// NewExec builds a command-driven capability.
func NewExec(cfg ExecConfig, open MicrophoneOpener, log *slog.Logger, opts ...ExecOption) *Exec {
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	e := &Exec{
		cfg:    cfg,
		open:   open,
		fs:     afero.NewOsFs(),
		run:    runCommand,
		logger: log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Begin opens the microphone and starts the recording window.
func (e *Exec) Begin(ctx context.Context, locale string) (Listener, error) {
	if len(e.cfg.Argv) == 0 {
		return nil, fmt.Errorf("%w: recognizer command is empty", ErrUnavailable)
	}
	if e.open == nil {
		return nil, fmt.Errorf("%w: no microphone", ErrUnavailable)
	}
	mic, err := e.open(ctx)
	if err != nil {
		return nil, err
	}
	return &execListener{exec: e, locale: locale, mic: mic}, nil
}

type execListener struct {
	exec   *Exec
	locale string
	mic    Microphone

	closeOnce sync.Once
}

type execResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func (l *execListener) Result(ctx context.Context) (string, error) {
	pcm, err := l.record(ctx)
	if err != nil {
		return "", err
	}
	if len(pcm) == 0 {
		return "", &Error{Kind: KindNoSpeech}
	}

	path, cleanup, err := l.exec.writeWAV(pcm)
	if err != nil {
		return "", &Error{Kind: KindOther, Err: err}
	}
	defer cleanup()

	argv := append([]string{}, l.exec.cfg.Argv...)
	argv = append(argv, "--audio", path)
	if strings.TrimSpace(l.locale) != "" {
		argv = append(argv, "--language", l.locale)
	}

	out, err := l.exec.run(ctx, argv)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &Error{Kind: KindOther, Err: err}
	}

	var resp execResult
	if err := json.Unmarshal(bytes.TrimSpace(out), &resp); err != nil {
		return "", &Error{Kind: KindOther, Err: fmt.Errorf("decode recognizer response: %w", err)}
	}
	l.exec.logger.Debug("recognizer result", "confidence", resp.Confidence, "chars", len(resp.Text))
	return resp.Text, nil
}

// record drains microphone chunks until the window elapses or the microphone stops.
func (l *execListener) record(ctx context.Context) ([]byte, error) {
	window := time.NewTimer(l.exec.cfg.Window)
	defer window.Stop()

	chunks := l.mic.Chunks()
	var pcm []byte
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-window.C:
			_ = l.Close()
			// Drain the residual flush from Stop.
			for chunk := range chunks {
				pcm = append(pcm, chunk...)
			}
			return pcm, nil
		case chunk, ok := <-chunks:
			if !ok {
				return pcm, nil
			}
			pcm = append(pcm, chunk...)
		}
	}
}

func (l *execListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.mic.Stop()
	})
	return err
}

// writeWAV stores pcm as a 16-bit mono WAV temp file and returns its path.
func (e *Exec) writeWAV(pcm []byte) (string, func(), error) {
	file, err := afero.TempFile(e.fs, e.cfg.TmpDir, "aurora_capture_*.wav")
	if err != nil {
		return "", nil, fmt.Errorf("temp file: %w", err)
	}
	path := file.Name()
	cleanup := func() { _ = e.fs.Remove(path) }

	if err := encodeWAV(file, pcm, execSampleRate); err != nil {
		_ = file.Close()
		cleanup()
		return "", nil, err
	}
	if err := file.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close wav: %w", err)
	}
	return path, cleanup, nil
}

func encodeWAV(w io.WriteSeeker, pcm []byte, sampleRate int) error {
	if len(pcm)%2 != 0 {
		return fmt.Errorf("pcm payload not aligned")
	}
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buffer := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}

	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

func runCommand(ctx context.Context, argv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("recognizer command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
