package indicator

import (
	"context"
	"math"
	"time"
)

type cueKind int

const (
	cueListen cueKind = iota + 1
	cueThinking
	cueError
)

const (
	cueSampleRate = 16000
	cueGap        = 22 * time.Millisecond
	cueRamp       = 5 * time.Millisecond
)

// note is one sine tone in a cue.
type note struct {
	hz   float64
	dur  time.Duration
	gain float64
}

// Rising pair for listening, falling pairs for thinking and errors.
var cues = map[cueKind][]int16{
	cueListen:   renderCue(note{880, 70 * time.Millisecond, 0.18}, note{1175, 70 * time.Millisecond, 0.18}),
	cueThinking: renderCue(note{740, 65 * time.Millisecond, 0.16}, note{620, 90 * time.Millisecond, 0.16}),
	cueError:    renderCue(note{480, 75 * time.Millisecond, 0.18}, note{360, 90 * time.Millisecond, 0.18}),
}

func emitCue(ctx context.Context, play CuePlayer, kind cueKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	samples := cues[kind]
	if len(samples) == 0 || play == nil {
		return nil
	}
	return play(ctx, samples, cueSampleRate, "aurora indicator cue")
}

// renderCue concatenates notes separated by cueGap of silence.
func renderCue(notes ...note) []int16 {
	var pcm []int16
	for i, n := range notes {
		if i > 0 {
			pcm = append(pcm, make([]int16, sampleCount(cueGap))...)
		}
		pcm = append(pcm, n.render()...)
	}
	return pcm
}

// render synthesizes the note with a raised-cosine fade at both ends.
func (n note) render() []int16 {
	count := sampleCount(n.dur)
	if count == 0 || n.hz <= 0 || n.gain <= 0 {
		return nil
	}
	ramp := max(min(count/10, sampleCount(cueRamp)), 1)

	pcm := make([]int16, count)
	for i := range pcm {
		edge := min(i, count-1-i)
		envelope := 1.0
		if edge < ramp {
			envelope = 0.5 - 0.5*math.Cos(math.Pi*float64(edge)/float64(ramp))
		}
		phase := 2 * math.Pi * n.hz * float64(i) / cueSampleRate
		pcm[i] = int16(math.Round(math.Sin(phase) * n.gain * envelope * math.MaxInt16))
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
