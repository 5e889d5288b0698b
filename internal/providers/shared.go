package providers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/convoarchive/convoarchive/internal/canonical"
	"github.com/convoarchive/convoarchive/internal/normalize"
)

// FileFormatError signals that a file's root JSON shape is neither object
// nor array, or otherwise cannot be classified as Bulk/Single/Wrapped.
type FileFormatError struct {
	File string
	Err  error
}

func (e *FileFormatError) Error() string {
	return fmt.Sprintf("providers: %s: %v", e.File, e.Err)
}

func (e *FileFormatError) Unwrap() error { return e.Err }

// classifyRoot dispatches a parsed JSON root into the ordered list of raw
// conversation objects it contains, per spec §4.3:
//
//   - Bulk: the root is a JSON array of conversations.
//   - Single: the root is a JSON object that is itself one conversation.
//   - Wrapped: the root is a JSON object with a conversations (or
//     vendor-specific alias) array.
//
// wrappedKeys lists the vendor-specific aliases to probe, in order,
// before falling back to treating the object as a Single conversation.
func classifyRoot(root any, wrappedKeys ...string) ([]any, error) {
	switch v := root.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, key := range wrappedKeys {
			if arr, ok := v[key].([]any); ok {
				return arr, nil
			}
		}
		return []any{v}, nil
	default:
		return nil, fmt.Errorf("root is neither object nor array")
	}
}

// decodeInto round-trips a generic map[string]any through JSON into a
// concrete struct type, the cheapest way to reuse encoding/json's tag
// matching after classifyRoot has already produced an any.
func decodeInto[T any](obj map[string]any) (T, error) {
	var out T
	data, err := json.Marshal(obj)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

// firstNonEmpty returns the first non-empty string among candidates.
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// resolveTimestamp parses raw with normalize.ParseTimestamp. When raw is
// empty or unparseable, it falls back to prev plus a monotonic 1µs offset,
// or to base when prev is the zero time.
func resolveTimestamp(raw any, prev, base time.Time) (time.Time, error) {
	if !isEmptyTimestamp(raw) {
		if ts, err := normalize.ParseTimestamp(raw); err == nil {
			return ts, nil
		}
	}
	if !prev.IsZero() {
		return canonical.NextMonotonicTimestamp(prev), nil
	}
	if !base.IsZero() {
		return base, nil
	}
	return time.Time{}, normalize.ErrInvalidTimestamp
}

func isEmptyTimestamp(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case float64:
		return v == 0
	default:
		return false
	}
}

// itoa is a tiny indirection so callers needn't import strconv directly.
func itoa(i int) string { return strconv.Itoa(i) }
