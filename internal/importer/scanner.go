package importer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// arrayScanner walks a byte stream looking for the top-level JSON array of
// conversation objects (either the document root, or the value of a
// "conversations" key at the document root) and yields each element's raw
// bytes as soon as its closing brace is seen, without holding the whole
// file in memory.
//
// Unlike a naive brace counter, arrayScanner tracks string-literal and
// backslash-escape state, so a '{' or '}' inside a quoted string never
// perturbs the nesting depth.
type arrayScanner struct {
	r   *bufio.Reader
	buf []byte

	inString bool
	escaped  bool
	depth    int

	foundArray bool
}

func newArrayScanner(r io.Reader) *arrayScanner {
	return &arrayScanner{r: bufio.NewReaderSize(r, 64*1024)}
}

// next returns the raw bytes of the next top-level object in the array, or
// io.EOF when the stream is exhausted. Malformed trailing bytes after the
// array closes are ignored.
func (s *arrayScanner) next() ([]byte, error) {
	if !s.foundArray {
		if err := s.seekToArray(); err != nil {
			return nil, err
		}
		s.foundArray = true
	}

	s.buf = s.buf[:0]
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}

		if s.depth == 0 {
			// Outside any object: skip whitespace, commas, the closing
			// array bracket, and anything else until the next object
			// opens.
			if b == '{' {
				s.depth = 1
				s.buf = append(s.buf, b)
				continue
			}
			if b == ']' {
				return nil, io.EOF
			}
			continue
		}

		s.buf = append(s.buf, b)

		if s.escaped {
			s.escaped = false
			continue
		}
		switch b {
		case '\\':
			if s.inString {
				s.escaped = true
			}
		case '"':
			s.inString = !s.inString
		case '{':
			if !s.inString {
				s.depth++
			}
		case '}':
			if !s.inString {
				s.depth--
				if s.depth == 0 {
					out := make([]byte, len(s.buf))
					copy(out, s.buf)
					return out, nil
				}
			}
		}
	}
}

// seekToArray advances the reader past any bytes preceding the first
// top-level '[', whether the document root is the array itself or an
// object wrapping it under a root-level "conversations" key. It
// is string/escape aware so a literal '[' inside a title or content field
// before the real array is never mistaken for it.
func (s *arrayScanner) seekToArray() error {
	inString := false
	escaped := false
	depth := 0
	var str []byte
	lastString := ""

	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return fmt.Errorf("importer: no top-level array found: %w", err)
		}

		if escaped {
			escaped = false
			str = append(str, b)
			continue
		}
		if inString && b != '"' && b != '\\' {
			str = append(str, b)
		}
		switch b {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			if inString {
				lastString = string(str)
			}
			str = str[:0]
			inString = !inString
		case '[':
			if !inString && (depth == 0 || (depth == 1 && lastString == "conversations")) {
				return nil
			}
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
			}
		}
	}
}

// decodeObject parses raw into a generic map for shape inspection by a
// provider parser.
func decodeObject(raw []byte) (map[string]any, error) {
	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
