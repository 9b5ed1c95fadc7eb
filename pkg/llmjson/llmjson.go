// Package llmjson parses JSON objects out of language model replies.
//
// Models asked for "strictly valid JSON" still wrap objects in prose or code
// fences, quote with apostrophes and emit Python literals. Parsing is split
// into two stages that can be tested on their own:
//
//   - Strict: the trimmed reply must be a JSON object.
//   - Lenient: Extract the first balanced object, Normalize its quoting,
//     then parse.
//
// Object runs Strict and falls back to Lenient.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoObject is returned when the text holds no balanced {...} object.
	ErrNoObject = errors.New("llmjson: no JSON object found")

	// ErrNotObject is returned when the text is valid JSON but not an object.
	ErrNotObject = errors.New("llmjson: JSON value is not an object")
)

// Strict parses the trimmed text as a JSON object.
func Strict(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoObject
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("llmjson: strict parse: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// Lenient extracts the first balanced object, normalizes it, and parses it.
func Lenient(text string) (map[string]any, error) {
	raw, err := Extract(text)
	if err != nil {
		return nil, err
	}
	obj, err := Strict(Normalize(raw))
	if err != nil {
		return nil, fmt.Errorf("llmjson: lenient parse: %w", err)
	}
	return obj, nil
}

// Object tries Strict first and falls back to Lenient.
func Object(text string) (map[string]any, error) {
	if obj, err := Strict(text); err == nil {
		return obj, nil
	}
	return Lenient(text)
}

// Extract returns the first balanced {...} substring of text.
// Braces inside single- or double-quoted strings are not counted.
func Extract(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoObject
	}

	depth := 0
	var quote byte
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", ErrNoObject
}

// Normalize rewrites common model mistakes into JSON:
// single-quoted strings become double-quoted, the Python literals
// None, True and False become null, true and false, and trailing commas
// before a closing bracket are dropped.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 8)

	var quote byte
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		switch quote {
		case '"':
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				quote = 0
			}
			continue

		case '\'':
			switch {
			case escaped:
				escaped = false
				if c == '\'' {
					b.WriteByte('\'')
				} else {
					b.WriteByte('\\')
					b.WriteByte(c)
				}
			case c == '\\':
				escaped = true
			case c == '\'':
				b.WriteByte('"')
				quote = 0
			case c == '"':
				b.WriteString(`\"`)
			default:
				b.WriteByte(c)
			}
			continue
		}

		switch {
		case c == '"':
			quote = '"'
			b.WriteByte(c)
		case c == '\'':
			quote = '\''
			b.WriteByte('"')
		case c == ',' && closesNext(text[i+1:]):
			// trailing comma
		case isIdentStart(c) && (i == 0 || !isIdent(text[i-1])):
			word := identAt(text[i:])
			if lit, ok := pythonLiterals[word]; ok {
				b.WriteString(lit)
			} else {
				b.WriteString(word)
			}
			i += len(word) - 1
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

var pythonLiterals = map[string]string{
	"None":  "null",
	"True":  "true",
	"False": "false",
}

// closesNext reports whether the next non-space byte closes an object or array.
func closesNext(s string) bool {
	s = strings.TrimLeft(s, " \t\r\n")
	return s != "" && (s[0] == '}' || s[0] == ']')
}

func identAt(s string) string {
	n := 0
	for n < len(s) && isIdent(s[n]) {
		n++
	}
	return s[:n]
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdent(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
