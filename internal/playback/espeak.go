package playback

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// espeak-ng speaks at 175 words per minute at rate 1.0.
const espeakBaseWPM = 175

// Espeak drives an espeak-ng compatible command.
type Espeak struct {
	argv []string
}

// NewEspeak builds a synthesizer over argv, for example ["espeak-ng"].
func NewEspeak(argv []string) (*Espeak, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("espeak command is empty")
	}
	return &Espeak{argv: append([]string(nil), argv...)}, nil
}

// Voices parses the `--voices` table.
func (e *Espeak) Voices(ctx context.Context) ([]Voice, error) {
	args := append(append([]string(nil), e.argv[1:]...), "--voices")
	out, err := exec.CommandContext(ctx, e.argv[0], args...).Output()
	if err != nil {
		return nil, fmt.Errorf("list espeak voices: %w", err)
	}
	return parseEspeakVoices(out), nil
}

// Speak runs the command until speech finishes or ctx is cancelled.
func (e *Espeak) Speak(ctx context.Context, text string, opts Options) error {
	cmd := exec.CommandContext(ctx, e.argv[0], espeakArgs(e.argv[1:], text, opts)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("run %s: %w: %s", e.argv[0], err, detail)
		}
		return fmt.Errorf("run %s: %w", e.argv[0], err)
	}
	return nil
}

func espeakArgs(base []string, text string, opts Options) []string {
	args := append([]string(nil), base...)
	if voice := strings.TrimSpace(opts.Voice); voice != "" {
		args = append(args, "-v", voice)
	}
	if opts.Pitch > 0 {
		args = append(args, "-p", strconv.Itoa(int(math.Round(clamp(opts.Pitch*50, 0, 99)))))
	}
	if opts.Rate > 0 {
		args = append(args, "-s", strconv.Itoa(int(math.Round(espeakBaseWPM*opts.Rate))))
	}
	return append(args, "--", text)
}

// parseEspeakVoices reads rows of "Pty Language Age/Gender VoiceName File Other".
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			continue
		}
		lang := fields[1]
		description := strings.ReplaceAll(fields[3], "_", " ")
		if len(fields) > 4 {
			description += " (" + fields[4] + ")"
		}
		voices = append(voices, Voice{
			Name:        lang,
			Description: description,
			Default:     lang == "en",
		})
	}
	return voices
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
