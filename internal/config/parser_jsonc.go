package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	plain, err := stripJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(plain))
	decoder.DisallowUnknownFields()

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, locate(plain, err)
	}
	if err := expectEOF(decoder); err != nil {
		return Config{}, nil, locate(plain, err)
	}
	return finish(payload, base)
}

// stripJSONC turns JSONC into plain JSON in one pass. Comments become
// spaces and trailing commas are blanked, so byte offsets in decode errors
// still point at the original text.
func stripJSONC(content string) (string, error) {
	out := []byte(content)
	comma := -1

	for i := 0; i < len(out); i++ {
		switch c := out[i]; {
		case c == '"':
			end, ok := skipString(out, i)
			if !ok {
				// let the decoder report the unterminated string
				return string(out), nil
			}
			comma = -1
			i = end
		case c == '/' && i+1 < len(out) && out[i+1] == '/':
			for i < len(out) && out[i] != '\n' && out[i] != '\r' {
				out[i] = ' '
				i++
			}
		case c == '/' && i+1 < len(out) && out[i+1] == '*':
			end := strings.Index(string(out[i+2:]), "*/")
			if end < 0 {
				return "", errors.New("unterminated block comment in JSONC")
			}
			blank(out[i : i+2+end+2])
			i += 2 + end + 1
		case c == ',':
			comma = i
		case c == '}' || c == ']':
			if comma >= 0 {
				out[comma] = ' '
			}
			comma = -1
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		default:
			comma = -1
		}
	}
	return string(out), nil
}

// skipString returns the index of the quote closing the string opened at start.
func skipString(b []byte, start int) (int, bool) {
	for i := start + 1; i < len(b); i++ {
		switch b[i] {
		case '\\':
			i++
		case '"':
			return i, true
		}
	}
	return 0, false
}

// blank replaces comment bytes with spaces, keeping line breaks.
func blank(b []byte) {
	for i, c := range b {
		if c != '\n' && c != '\r' {
			b[i] = ' '
		}
	}
}

func expectEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	switch err := decoder.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return errors.New("multiple JSON values are not allowed")
	default:
		return err
	}
}

// locate prefixes syntax and type errors with a line and column.
func locate(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := lineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// lineCol maps a 1-based decoder offset to a 1-based line and column.
func lineCol(content string, offset int64) (int, int) {
	end := max(int(min(offset, int64(len(content))))-1, 0)
	prefix := content[:end]
	return strings.Count(prefix, "\n") + 1, len(prefix) - strings.LastIndexByte(prefix, '\n')
}
