package audio

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	// CaptureSampleRate is the microphone rate in Hz.
	CaptureSampleRate = 16000
	// FrameBytes is 20ms of 16kHz mono s16 audio.
	FrameBytes = 640
)

// Microphone is a running record stream that emits FrameBytes-sized PCM frames.
type Microphone struct {
	device Device
	client *pulse.Client
	stream *pulse.RecordStream

	frames chan []byte
	done   chan struct{}

	mu      sync.Mutex
	partial []byte
	closed  bool
	writers sync.WaitGroup
}

// OpenMicrophone starts recording from device. The stream stops when ctx ends
// or Stop is called.
func OpenMicrophone(ctx context.Context, device Device) (*Microphone, error) {
	client, err := newClient("audio-input-microphone")
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", device.ID, err)
	}

	m := newMicrophone(device)
	m.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(pcmWriter(m.write), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(CaptureSampleRate),
		pulse.RecordBufferFragmentSize(FrameBytes),
		pulse.RecordMediaName("aurora listening"),
	)
	if err != nil {
		_ = m.Stop()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	m.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = m.Stop()
		case <-m.done:
		}
	}()
	return m, nil
}

func newMicrophone(device Device) *Microphone {
	return &Microphone{
		device: device,
		frames: make(chan []byte, 128),
		done:   make(chan struct{}),
	}
}

// Device reports the source being recorded.
func (m *Microphone) Device() Device { return m.device }

// Chunks yields PCM frames; it is closed after Stop.
func (m *Microphone) Chunks() <-chan []byte { return m.frames }

// Stop ends the stream, emits any short trailing frame, and closes Chunks.
// Repeated calls are no-ops.
func (m *Microphone) Stop() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()

	if m.stream != nil {
		m.stream.Stop()
		m.stream.Close()
	}
	if m.client != nil {
		m.client.Close()
	}
	m.writers.Wait()

	m.mu.Lock()
	tail := m.partial
	m.partial = nil
	m.mu.Unlock()

	if len(tail) > 0 {
		select {
		case m.frames <- tail:
		default:
		}
	}
	close(m.frames)
	return nil
}

// write is the record stream sink. It splits incoming PCM into frames and
// keeps the remainder for the next call.
func (m *Microphone) write(pcm []byte) (int, error) {
	if len(pcm) == 0 {
		return 0, nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, io.EOF
	}
	// Add under mu so Stop cannot Wait before a late writer registers.
	m.writers.Add(1)
	defer m.writers.Done()

	m.partial = append(m.partial, pcm...)
	var ready [][]byte
	for len(m.partial) >= FrameBytes {
		frame := make([]byte, FrameBytes)
		copy(frame, m.partial)
		ready = append(ready, frame)
		m.partial = m.partial[FrameBytes:]
	}
	if len(m.partial) == 0 {
		m.partial = nil
	} else {
		m.partial = append([]byte(nil), m.partial...)
	}
	m.mu.Unlock()

	for _, frame := range ready {
		select {
		case m.frames <- frame:
		case <-m.done:
			return 0, io.EOF
		}
	}
	return len(pcm), nil
}

// pcmWriter adapts a function to the io.Writer pulse.NewWriter expects.
type pcmWriter func([]byte) (int, error)

func (f pcmWriter) Write(b []byte) (int, error) { return f(b) }
