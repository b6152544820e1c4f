package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Freedesktop urgency levels carried in the "urgency" hint.
const (
	urgencyNormal   = 1
	urgencyCritical = 2
)

// busNotifications calls a method on the session notification daemon
// through busctl and returns its trimmed reply.
func busNotifications(ctx context.Context, method string, signature string, args ...string) (string, error) {
	argv := append([]string{
		"--user", "call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		method, signature,
	}, args...)

	out, err := exec.CommandContext(ctx, "busctl", argv...).CombinedOutput()
	reply := strings.TrimSpace(string(out))
	if err != nil {
		if reply != "" {
			return "", fmt.Errorf("busctl %s: %w (%s)", method, err, reply)
		}
		return "", fmt.Errorf("busctl %s: %w", method, err)
	}
	return reply, nil
}

// desktopNotify shows or replaces a notification and returns the id the
// daemon assigned to it.
func desktopNotify(ctx context.Context, appName string, replaceID uint32, summary string, urgency int, timeoutMS int) (uint32, error) {
	reply, err := busNotifications(ctx, "Notify", "susssasa{sv}i",
		appName,
		strconv.FormatUint(uint64(replaceID), 10),
		"", // icon
		summary,
		"", // body
		"0",
		"1", "urgency", "y", strconv.Itoa(urgency),
		strconv.Itoa(timeoutMS),
	)
	if err != nil {
		return 0, err
	}

	kind, value, ok := strings.Cut(reply, " ")
	if !ok || kind != "u" {
		return 0, fmt.Errorf("unexpected Notify reply %q", reply)
	}
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse notification id %q: %w", value, err)
	}
	return uint32(id), nil
}

func desktopDismiss(ctx context.Context, id uint32) error {
	_, err := busNotifications(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10))
	return err
}
