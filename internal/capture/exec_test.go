package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestExecWritesWAVAndParsesRecognizerOutput(t *testing.T) {
	fs := afero.NewMemMapFs()
	var (
		gotArgv []string
		gotWAV  []byte
	)
	runner := func(_ context.Context, argv []string) ([]byte, error) {
		gotArgv = argv
		data, err := afero.ReadFile(fs, argv[len(argv)-3])
		require.NoError(t, err)
		gotWAV = data
		return []byte(`{"text":"  turn on the lights ","confidence":0.91}` + "\n"), nil
	}

	mic := newFakeMic(make([]byte, 640), make([]byte, 640))
	backend := NewExec(ExecConfig{
		Argv:   []string{"whisper-cli", "--model", "base.en"},
		Window: 30 * time.Millisecond,
		TmpDir: "/tmp",
	}, openerFor(mic), nil, WithFs(fs), WithRunner(runner))

	listener, err := backend.Begin(context.Background(), "en-US")
	require.NoError(t, err)
	defer listener.Close()

	text, err := listener.Result(context.Background())
	require.NoError(t, err)
	require.Equal(t, "  turn on the lights ", text)

	require.Equal(t, "whisper-cli", gotArgv[0])
	require.Equal(t, []string{"--model", "base.en", "--audio"}, gotArgv[1:4])
	require.Equal(t, []string{"--language", "en-US"}, gotArgv[len(gotArgv)-2:])
	require.Equal(t, "RIFF", string(gotWAV[:4]))
	require.Equal(t, "WAVE", string(gotWAV[8:12]))

	leftovers, err := afero.Glob(fs, "/tmp/aurora_capture_*.wav")
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestExecSilentWindowIsNoSpeech(t *testing.T) {
	mic := newFakeMic()
	require.NoError(t, mic.Stop())

	backend := NewExec(ExecConfig{Argv: []string{"stt"}}, openerFor(mic), nil,
		WithFs(afero.NewMemMapFs()),
		WithRunner(func(context.Context, []string) ([]byte, error) {
			t.Fatal("recognizer must not run without audio")
			return nil, nil
		}),
	)
	listener, err := backend.Begin(context.Background(), "en-US")
	require.NoError(t, err)

	_, err = listener.Result(context.Background())
	var ce *Error
	require.True(t, errors.As(err, &ce))
	require.Equal(t, KindNoSpeech, ce.Kind)
}

func TestExecRecognizerFailureIsOther(t *testing.T) {
	mic := newFakeMic(make([]byte, 640))
	backend := NewExec(ExecConfig{Argv: []string{"stt"}, Window: 10 * time.Millisecond}, openerFor(mic), nil,
		WithFs(afero.NewMemMapFs()),
		WithRunner(func(context.Context, []string) ([]byte, error) {
			return []byte("not json"), nil
		}),
	)
	listener, err := backend.Begin(context.Background(), "en-US")
	require.NoError(t, err)

	_, err = listener.Result(context.Background())
	var ce *Error
	require.True(t, errors.As(err, &ce))
	require.Equal(t, KindOther, ce.Kind)
	require.Contains(t, ce.Error(), "decode recognizer response")
}

func TestExecCancelledWhileRecording(t *testing.T) {
	mic := newFakeMic()
	backend := NewExec(ExecConfig{Argv: []string{"stt"}, Window: time.Minute}, openerFor(mic), nil, WithFs(afero.NewMemMapFs()))
	listener, err := backend.Begin(context.Background(), "en-US")
	require.NoError(t, err)
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = listener.Result(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExecBeginRequiresCommand(t *testing.T) {
	backend := NewExec(ExecConfig{}, openerFor(newFakeMic()), nil)
	_, err := backend.Begin(context.Background(), "en-US")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestExecRunsRealCommand(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "stt")
	require.NoError(t, os.WriteFile(script, []byte("#!/usr/bin/env sh\nprintf '{\"text\":\"hello\",\"confidence\":1}'\n"), 0o755))

	mic := newFakeMic(make([]byte, 640))
	backend := NewExec(ExecConfig{Argv: []string{script}, Window: 10 * time.Millisecond, TmpDir: dir}, openerFor(mic), nil)
	listener, err := backend.Begin(context.Background(), "en-US")
	require.NoError(t, err)

	text, err := listener.Result(context.Background())
	require.NoError(t, err)
	require.Equal(t, "hello", text)
}
