package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// requestTimeout bounds how long a client may take to send its request line.
const requestTimeout = 2 * time.Second

// Handler answers one command.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve answers one request per connection until ctx is cancelled or the
// listener is closed. It returns after in-flight connections finish.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var active sync.WaitGroup
	defer active.Wait()

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		active.Add(1)
		go func() {
			defer active.Done()
			serveConn(ctx, conn, handler)
		}()
	}
}

func serveConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(requestTimeout))
	var req Request
	if err := readMessage(conn, &req); err != nil {
		reason := "read request"
		if errors.Is(err, errMalformed) {
			reason = "decode request"
		}
		_ = writeMessage(conn, Response{Error: fmt.Sprintf("%s: %v", reason, err)})
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	_ = writeMessage(conn, handler.Handle(ctx, req))
}
