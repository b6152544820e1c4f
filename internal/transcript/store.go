// Package transcript holds the ordered conversation log shared by the orchestrator and its views.
package transcript

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvariantViolation signals an orchestrator bug against the transcript rules.
var ErrInvariantViolation = errors.New("transcript invariant violation")

// Speaker identifies who authored a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one conversation entry.
type Turn struct {
	ID        string
	Speaker   Speaker
	Text      string
	Pending   bool
	CreatedAt time.Time
}

// Store is an append-only transcript with one allowed mutation: finalizing the pending turn.
type Store struct {
	mu    sync.RWMutex
	turns []Turn
	now   func() time.Time
}

// New creates a store seeded with the assistant greeting.
func New(greeting string) *Store {
	s := &Store{now: time.Now}
	s.turns = append(s.turns, s.stamp(Turn{Speaker: SpeakerAssistant, Text: greeting}))
	return s
}

// Append adds turn to the end of the transcript.
func (s *Store) Append(turn Turn) (Turn, error) {
	if turn.Speaker != SpeakerUser && turn.Speaker != SpeakerAssistant {
		return Turn{}, fmt.Errorf("%w: unknown speaker %q", ErrInvariantViolation, turn.Speaker)
	}
	if turn.Pending && turn.Speaker != SpeakerAssistant {
		return Turn{}, fmt.Errorf("%w: only assistant turns may be pending", ErrInvariantViolation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.turns); n > 0 && s.turns[n-1].Pending {
		return Turn{}, fmt.Errorf("%w: turn %s is still pending", ErrInvariantViolation, s.turns[n-1].ID)
	}

	turn = s.stamp(turn)
	s.turns = append(s.turns, turn)
	return turn, nil
}

// ReplacePending finalizes the trailing pending turn with text.
func (s *Store) ReplacePending(text string) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.turns)
	if n == 0 || !s.turns[n-1].Pending {
		return Turn{}, fmt.Errorf("%w: no pending turn to replace", ErrInvariantViolation)
	}

	s.turns[n-1].Text = text
	s.turns[n-1].Pending = false
	return s.turns[n-1], nil
}

// Snapshot returns a copy of the ordered turns.
func (s *Store) Snapshot() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Pending returns the trailing pending turn when one exists.
func (s *Store) Pending() (Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.turns)
	if n == 0 || !s.turns[n-1].Pending {
		return Turn{}, false
	}
	return s.turns[n-1], true
}

func (s *Store) stamp(turn Turn) Turn {
	if strings.TrimSpace(turn.ID) == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}
	return turn
}
