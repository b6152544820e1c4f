package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// maxMessageBytes bounds one JSON line. Transcript replies are the largest
// messages on the socket.
const maxMessageBytes = 4 << 20

// writeMessage encodes v as a single newline-terminated JSON line.
func writeMessage(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// readMessage decodes the next JSON line from r into v. A line is complete
// only once its newline arrives; a deadline or EOF mid-line is a read error.
func readMessage(r io.Reader, v any) error {
	reader := bufio.NewReader(io.LimitReader(r, maxMessageBytes+1))
	line, err := reader.ReadBytes('\n')
	if err != nil {
		switch {
		case len(line) > maxMessageBytes:
			return fmt.Errorf("message exceeds %d bytes", maxMessageBytes)
		case errors.Is(err, io.EOF):
			return io.ErrUnexpectedEOF
		default:
			return err
		}
	}
	if err := json.Unmarshal(line, v); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("%w: %w", errMalformed, err)
		}
		return err
	}
	return nil
}

var errMalformed = errors.New("malformed message")
