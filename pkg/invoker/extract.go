package invoker

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONObject is returned when a response contains no well-formed
// JSON object at all.
var ErrNoJSONObject = errors.New("no JSON object found in response")

// ExtractJSONObject returns the first well-formed JSON object embedded
// in text. Oracle responses routinely wrap the object in markdown
// fences or explanatory prose; everything outside the object is noise.
func ExtractJSONObject(text string) (json.RawMessage, error) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		end := matchBrace(text, start)
		if end > start {
			raw := json.RawMessage(text[start : end+1])
			if json.Valid(raw) {
				return raw, nil
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += 1 + next
	}
	return nil, ErrNoJSONObject
}

// matchBrace returns the index of the brace closing the object opened
// at start, or -1. String literals and escapes are respected so braces
// inside values do not terminate the scan early.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
