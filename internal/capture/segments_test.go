package capture

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollectSegmentsAppendsTrailingInterim(t *testing.T) {
	got := collectSegments([]string{"what time is it"}, "in tokyo")
	require.Equal(t, []string{"what time is it", "in tokyo"}, got)
}

func TestCollectSegmentsFallsBackToInterim(t *testing.T) {
	got := collectSegments(nil, "  tentative words  ")
	require.Equal(t, []string{"tentative words"}, got)
}

func TestCollectSegmentsMergesTrailingInterimWithCommittedSegments(t *testing.T) {
	got := collectSegments([]string{"hello world"}, "hello world and beyond")
	require.Equal(t, []string{"hello world and beyond"}, got)

	got = collectSegments([]string{"hello world"}, "hello")
	require.Equal(t, []string{"hello world"}, got)
}

func TestAppendSegmentDedupAndPrefixMerge(t *testing.T) {
	segments := appendSegment(nil, "  ")
	require.Empty(t, segments)

	segments = appendSegment(segments, "turn on")
	segments = appendSegment(segments, "turn on")
	require.Equal(t, []string{"turn on"}, segments)

	segments = appendSegment(segments, "turn on the lights")
	require.Equal(t, []string{"turn on the lights"}, segments)

	segments = appendSegment(segments, "please")
	require.Equal(t, []string{"turn on the lights", "please"}, segments)
}

func TestJoinSegmentsNormalizesWhitespace(t *testing.T) {
	require.Equal(t, "a b c", joinSegments([]string{" a ", "b  c"}))
	require.Empty(t, joinSegments(nil))
}
