package smconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// KeyDelimiter separates the segments of a hierarchical configuration key.
const KeyDelimiter = ":"

// Entry is one flattened configuration key/value pair.
type Entry struct {
	Key   string
	Value string
}

// IsStructured reports whether raw looks like a JSON object or array, i.e.
// its first non-whitespace character is '{' or '['.
func IsStructured(raw string) bool {
	trimmed := strings.TrimLeftFunc(raw, unicode.IsSpace)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// Flatten converts a secret's string value into configuration entries rooted
// at root. Values that are not structured, or that look structured but are
// not valid JSON or not valid UTF-8, produce a single entry holding raw unchanged.
//
// Structured values yield one entry per leaf in document order. Object
// members extend the key with ":name", array elements with ":index".
// Numbers keep their literal text and booleans render as "true"/"false".
// A null leaf fails with *UnsupportedLeafError.
func Flatten(root, raw string) ([]Entry, error) {
	if !IsStructured(raw) || !utf8.ValidString(raw) || !json.Valid([]byte(raw)) {
		return []Entry{{Key: root, Value: raw}}, nil
	}
	return walk(root, raw)
}

// frame is one open container on the walk stack.
type frame struct {
	path   string
	array  bool
	index  int
	member string
}

// walk streams tokens instead of decoding into maps so member order survives
// and nesting depth costs heap, not call stack.
func walk(root, raw string) ([]Entry, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var (
		stack     []*frame
		entries   []Entry
		expectKey bool
	)

	nextKey := func() string {
		if len(stack) == 0 {
			return root
		}
		top := stack[len(stack)-1]
		if top.array {
			key := top.path + KeyDelimiter + strconv.Itoa(top.index)
			top.index++
			return key
		}
		return top.member
	}
	inObject := func() bool {
		return len(stack) > 0 && !stack[len(stack)-1].array
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("walk structured value at %q: %w", root, err)
		}

		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{', '[':
				stack = append(stack, &frame{path: nextKey(), array: delim == '['})
				expectKey = delim == '{'
			case '}', ']':
				stack = stack[:len(stack)-1]
				expectKey = inObject()
			}
			continue
		}

		if expectKey {
			name, _ := tok.(string)
			top := stack[len(stack)-1]
			top.member = top.path + KeyDelimiter + name
			expectKey = false
			continue
		}

		key := nextKey()
		switch v := tok.(type) {
		case string:
			entries = append(entries, Entry{Key: key, Value: v})
		case json.Number:
			entries = append(entries, Entry{Key: key, Value: v.String()})
		case bool:
			entries = append(entries, Entry{Key: key, Value: strconv.FormatBool(v)})
		case nil:
			return nil, &UnsupportedLeafError{Key: key, Kind: "null"}
		default:
			return nil, &UnsupportedLeafError{Key: key, Kind: fmt.Sprintf("%T", v)}
		}
		expectKey = inObject()
	}

	return entries, nil
}
