package capture

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aryan-manish-vaidya/Aurora/internal/audio"
)

// Microphone streams 16kHz mono s16 PCM chunks until stopped.
type Microphone interface {
	Chunks() <-chan []byte
	Stop() error
}

// MicrophoneOpener opens a microphone for one attempt.
type MicrophoneOpener func(ctx context.Context) (Microphone, error)

// PulseMicrophone opens the Pulse source selected by input/fallback preferences.
//
// Device selection failures map to ErrUnavailable; stream failures map to ErrStartFailed.
func PulseMicrophone(input string, fallback string, log *slog.Logger) MicrophoneOpener {
	return func(ctx context.Context) (Microphone, error) {
		selection, err := audio.SelectDevice(ctx, input, fallback)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		if selection.Warning != "" && log != nil {
			log.Warn(selection.Warning, "device", selection.Device.ID)
		}

		mic, err := audio.OpenMicrophone(ctx, selection.Device)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStartFailed, err)
		}
		return mic, nil
	}
}
