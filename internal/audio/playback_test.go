package audio

import (
	"context"
	"testing"

	"github.com/jfreymuth/pulse"
	"github.com/stretchr/testify/require"
)

func TestLinear16RoundTripPreservesSamples(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 1234}
	require.Equal(t, samples, DecodeLinear16(EncodeLinear16(samples)))
	require.Len(t, DecodeLinear16([]byte{1, 2, 3}), 1)
}

func TestSampleFeedStopsAtEndAndOnCancel(t *testing.T) {
	feed := &sampleFeed{ctx: context.Background(), samples: []int16{1, 2, 3}}
	buf := make([]int16, 2)

	n, err := feed.read(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = feed.read(buf)
	require.ErrorIs(t, err, pulse.EndOfData)
	require.Equal(t, 1, n)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cancelled := &sampleFeed{ctx: ctx, samples: []int16{1, 2, 3}}
	n, err = cancelled.read(buf)
	require.ErrorIs(t, err, pulse.EndOfData)
	require.Zero(t, n)
}

func TestPlayWithoutSamplesIsNoop(t *testing.T) {
	require.NoError(t, Play(context.Background(), nil, 24000, "empty"))
	require.Error(t, Play(context.Background(), []int16{1}, 0, "bad rate"))
}
