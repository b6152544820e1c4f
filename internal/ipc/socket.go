package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// SocketName is the socket file created under XDG_RUNTIME_DIR.
const SocketName = "aurora.sock"

// ErrAlreadyRunning means another assistant answers on the socket.
var ErrAlreadyRunning = errors.New("aurora already running")

// RuntimeSocketPath returns $XDG_RUNTIME_DIR/aurora.sock.
func RuntimeSocketPath() (string, error) {
	dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if dir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(dir, SocketName), nil
}

// Acquire makes this process the single owner of the socket at path.
//
// An existing socket that answers a status probe yields ErrAlreadyRunning.
// One that is dead is unlinked and the listen retried, up to retries times;
// rescue, when set, runs after each unlink. A probe that neither answers nor
// fails cleanly leaves the file in place.
func Acquire(
	ctx context.Context,
	path string,
	probeTimeout time.Duration,
	retries int,
	rescue func(context.Context) error,
) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := listenOwned(path)
		if err == nil {
			return listener, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}
		if err := reclaim(ctx, path, probeTimeout); err != nil {
			return nil, err
		}
		if rescue != nil {
			_ = rescue(ctx)
		}
		if attempt >= retries {
			return nil, fmt.Errorf("failed to acquire socket %s after %d retries", path, retries)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 25 * time.Millisecond):
		}
	}
}

func listenOwned(path string) (net.Listener, error) {
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	_ = os.Chmod(path, 0o600)
	return listener, nil
}

// reclaim removes path when no live assistant owns it.
func reclaim(ctx context.Context, path string, probeTimeout time.Duration) error {
	alive, err := Probe(ctx, path, probeTimeout)
	switch {
	case alive:
		return ErrAlreadyRunning
	case err != nil:
		return fmt.Errorf("probe existing socket %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}
