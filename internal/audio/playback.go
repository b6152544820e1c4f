package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
)

// Play streams mono s16 samples to the default Pulse sink and blocks until drained.
//
// Cancelling ctx stops feeding samples; the call returns ctx.Err() once the
// already-buffered tail has drained.
func Play(ctx context.Context, samples []int16, sampleRate int, mediaName string) error {
	if len(samples) == 0 {
		return nil
	}
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	client, err := newClient("audio-speakers")
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	feed := &sampleFeed{ctx: ctx, samples: samples}
	stream, err := client.NewPlayback(
		pulse.Int16Reader(feed.read),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.05),
		pulse.PlaybackMediaName(mediaName),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play stream: %w", err)
	}
	return nil
}

// sampleFeed hands samples to Pulse until exhausted or cancelled.
type sampleFeed struct {
	ctx     context.Context
	samples []int16

	mu     sync.Mutex
	cursor int
}

func (f *sampleFeed) read(buf []int16) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ctx.Err() != nil || f.cursor >= len(f.samples) {
		return 0, pulse.EndOfData
	}

	n := copy(buf, f.samples[f.cursor:])
	f.cursor += n
	if f.cursor >= len(f.samples) {
		return n, pulse.EndOfData
	}
	return n, nil
}

// DecodeLinear16 converts little-endian s16 PCM bytes to samples. A trailing odd byte is dropped.
func DecodeLinear16(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return out
}

// EncodeLinear16 converts samples to little-endian s16 PCM bytes.
func EncodeLinear16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}
