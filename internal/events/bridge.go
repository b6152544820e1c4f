// Package events mirrors the assistant onto a NATS subject tree.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aryan-manish-vaidya/Aurora/internal/config"
	"github.com/aryan-manish-vaidya/Aurora/internal/ipc"
	"github.com/aryan-manish-vaidya/Aurora/internal/session"
	"github.com/nats-io/nats.go"
)

const connectTimeout = 2 * time.Second

// Bridge publishes view snapshots and answers remote commands.
type Bridge struct {
	conn    *nats.Conn
	subject string
	log     *slog.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// Connect dials the configured NATS server. A blank URL disables the bridge
// and returns nil without error.
func Connect(ctx context.Context, cfg config.EventsConfig, log *slog.Logger) (*Bridge, error) {
	url := strings.TrimSpace(cfg.NATSURL)
	if url == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(cfg.Subject)
	if subject == "" {
		return nil, errors.New("events subject is required")
	}
	if log == nil {
		log = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("aurora"),
		nats.Timeout(connectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info("connected to NATS", slog.String("url", url), slog.String("subject", subject))
	return &Bridge{conn: conn, subject: subject, log: log}, nil
}

// ViewSubject carries JSON view snapshots.
func (b *Bridge) ViewSubject() string { return b.subject + ".view" }

// CommandSubject accepts JSON ipc requests and replies with ipc responses.
func (b *Bridge) CommandSubject() string { return b.subject + ".cmd" }

// PublishView sends one snapshot of the controller view.
func (b *Bridge) PublishView(view session.View) error {
	if b == nil {
		return nil
	}
	turns, err := session.WireTurns(view.Transcript)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ipc.Response{
		OK:           true,
		State:        string(view.State),
		Status:       view.Status,
		ErrorMessage: view.ErrorMessage,
		InputLocked:  view.InputLocked,
		Turns:        turns,
	})
	if err != nil {
		return fmt.Errorf("encode view: %w", err)
	}
	if err := b.conn.Publish(b.ViewSubject(), payload); err != nil {
		return fmt.Errorf("publish view: %w", err)
	}
	return nil
}

// Serve answers requests on the command subject until ctx is done or the
// bridge is closed.
func (b *Bridge) Serve(ctx context.Context, handler ipc.Handler) error {
	if b == nil {
		return nil
	}
	sub, err := b.conn.Subscribe(b.CommandSubject(), func(msg *nats.Msg) {
		resp := b.handle(ctx, handler, msg.Data)
		data, err := json.Marshal(resp)
		if err != nil {
			b.log.Error("encode nats response failed", "error", err)
			return
		}
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(data); err != nil {
			b.log.Debug("nats respond failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.CommandSubject(), err)
	}
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("flush subscription: %w", err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

func (b *Bridge) handle(ctx context.Context, handler ipc.Handler, data []byte) ipc.Response {
	var req ipc.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return ipc.Response{OK: false, Error: fmt.Sprintf("invalid request: %v", err)}
	}
	return handler.Handle(ctx, req)
}

// Healthy reports whether the NATS connection is up.
func (b *Bridge) Healthy() bool {
	return b != nil && b.conn != nil && b.conn.Status() == nats.CONNECTED
}

// Close drains subscriptions and closes the connection.
func (b *Bridge) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()
	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}

	b.log.Info("closing NATS connection")
	_ = b.conn.Drain()
	b.conn.Close()
}
