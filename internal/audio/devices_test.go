package audio

import (
	"context"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestPickDevice(t *testing.T) {
	headset := Device{ID: "alsa_input.usb-jabra", Description: "Jabra Evolve2", Available: true, Default: true}
	webcam := Device{ID: "alsa_input.usb-logitech", Description: "Logitech C920", Available: true}
	muted := headset
	muted.Muted = true
	unplugged := webcam
	unplugged.Available = false

	tests := []struct {
		name         string
		devices      []Device
		input        string
		fallback     string
		wantID       string
		wantFallback bool
		wantErr      string
	}{
		{name: "default", devices: []Device{headset, webcam}, input: "default", fallback: "", wantID: headset.ID},
		{name: "blank means default", devices: []Device{headset, webcam}, wantID: headset.ID},
		{name: "match description", devices: []Device{headset, webcam}, input: "C920", wantID: webcam.ID},
		{name: "muted primary uses fallback", devices: []Device{muted, webcam}, input: "jabra", fallback: "logitech", wantID: webcam.ID, wantFallback: true},
		{name: "unknown input", devices: []Device{headset}, input: "missing", wantErr: "did not match"},
		{name: "muted default twice", devices: []Device{muted}, input: "default", fallback: "default", wantErr: "muted"},
		{name: "fallback unplugged", devices: []Device{muted, unplugged}, input: "jabra", fallback: "logitech", wantErr: "unavailable"},
		{name: "fallback missing", devices: []Device{muted}, input: "jabra", fallback: "nope", wantErr: "capture.fallback"},
		{name: "empty", wantErr: "no audio input devices"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			selection, err := pickDevice(tc.devices, tc.input, tc.fallback)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantID, selection.Device.ID)
			require.Equal(t, tc.wantFallback, selection.Fallback)
			if tc.wantFallback {
				require.Contains(t, selection.Warning, "muted")
			} else {
				require.Empty(t, selection.Warning)
			}
		})
	}
}

func TestMatchesTerm(t *testing.T) {
	d := Device{ID: "alsa_input.usb-jabra", Description: "Jabra Evolve2"}
	require.True(t, matchesTerm(d, "usb-jabra"))
	require.True(t, matchesTerm(d, "evolve2"))
	require.False(t, matchesTerm(d, ""))
	require.False(t, matchesTerm(d, "logitech"))
}

func TestStateName(t *testing.T) {
	require.Equal(t, "running", stateName(0))
	require.Equal(t, "idle", stateName(1))
	require.Equal(t, "suspended", stateName(2))
	require.Equal(t, "unknown(7)", stateName(7))
}

func TestActivePortAvailable(t *testing.T) {
	require.False(t, activePortAvailable(nil))
	require.True(t, activePortAvailable(&pulseproto.GetSourceInfoReply{}))

	reply := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setPorts(t, reply, map[string]uint32{"mic": 1, "line": 2})
	require.False(t, activePortAvailable(reply))

	reply.ActivePortName = "line"
	require.True(t, activePortAvailable(reply))

	reply.ActivePortName = "gone"
	require.True(t, activePortAvailable(reply))
}

// setPorts fills the reply's anonymous port slice by field name.
func setPorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports map[string]uint32) {
	t.Helper()
	field := reflect.ValueOf(reply).Elem().FieldByName("Ports")
	slice := reflect.MakeSlice(field.Type(), 0, len(ports))
	for name, available := range ports {
		item := reflect.New(field.Type().Elem()).Elem()
		item.FieldByName("Name").SetString(name)
		item.FieldByName("Available").SetUint(uint64(available))
		slice = reflect.Append(slice, item)
	}
	field.Set(slice)
}

func TestListAndSelectFailWithoutPulse(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/aurora-missing-pulse-server")

	_, err := ListDevices(context.Background())
	require.Error(t, err)

	_, err = SelectDevice(context.Background(), "default", "")
	require.Error(t, err)
}
