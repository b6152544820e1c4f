// Package audio talks to PulseAudio: source discovery, microphone streams, and PCM playback.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Device is one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// usable returns why the device cannot record, or "" when it can.
func (d Device) usable() string {
	switch {
	case !d.Available:
		return "unavailable"
	case d.Muted:
		return "muted"
	default:
		return ""
	}
}

// Selection is the source chosen for capture. Warning is set when the
// preferred source was skipped.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns the server's input sources, marking the default one.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient("audio-input-microphone")
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	return listSources(client)
}

func listSources(client *pulse.Client) ([]Device, error) {
	fallback, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var reply pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &reply); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	out := make([]Device, 0, len(reply))
	for _, info := range reply {
		if info == nil {
			continue
		}
		out = append(out, Device{
			ID:          info.SourceName,
			Description: info.Device,
			State:       stateName(info.State),
			Available:   activePortAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == fallback.ID(),
		})
	}
	return out, nil
}

// SelectDevice resolves the capture.input and capture.fallback preferences
// against the live source list.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return pickDevice(devices, input, fallback)
}

// pickDevice prefers input, then fallback. A blank or "default" preference
// names the server default source.
func pickDevice(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	primary, err := resolvePreference(devices, input)
	if err != nil {
		return Selection{}, fmt.Errorf("capture.input: %w", err)
	}
	reason := primary.usable()
	if reason == "" {
		return Selection{Device: primary}, nil
	}

	alternate, err := resolvePreference(devices, fallback)
	if err != nil {
		return Selection{}, fmt.Errorf("capture.input %q is %s and capture.fallback failed: %w", primary.ID, reason, err)
	}
	if altReason := alternate.usable(); altReason != "" {
		return Selection{}, fmt.Errorf("capture.input %q is %s and fallback %q is %s", primary.ID, reason, alternate.ID, altReason)
	}

	return Selection{
		Device:   alternate,
		Warning:  fmt.Sprintf("capture.input %q is %s; using %q", primary.ID, reason, alternate.ID),
		Fallback: alternate.ID != primary.ID,
	}, nil
}

func resolvePreference(devices []Device, preference string) (Device, error) {
	term := strings.ToLower(strings.TrimSpace(preference))
	if term == "" || term == "default" {
		for _, d := range devices {
			if d.Default {
				return d, nil
			}
		}
		return Device{}, errors.New("default audio source is unavailable")
	}
	for _, d := range devices {
		if matchesTerm(d, term) {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%q did not match any device", preference)
}

// matchesTerm does a case-insensitive substring match on id and description.
func matchesTerm(d Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(d.ID), term) ||
		strings.Contains(strings.ToLower(d.Description), term)
}

func stateName(state uint32) string {
	names := [...]string{"running", "idle", "suspended"}
	if int(state) < len(names) {
		return names[state]
	}
	return fmt.Sprintf("unknown(%d)", state)
}

// activePortAvailable treats sources without ports, or whose active port
// availability is unknown, as available.
func activePortAvailable(info *pulseproto.GetSourceInfoReply) bool {
	if info == nil {
		return false
	}
	for _, port := range info.Ports {
		if port.Name == info.ActivePortName {
			// 0 unknown, 1 no, 2 yes
			return port.Available != 1
		}
	}
	return true
}

func newClient(icon string) (*pulse.Client, error) {
	return pulse.NewClient(
		pulse.ClientApplicationName("aurora"),
		pulse.ClientApplicationIconName(icon),
	)
}
