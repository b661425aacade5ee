package llmjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`^[-+]?\d[\d,]*(?:\.\d+)?`)

// Value wraps a decoded JSON value of unknown shape. Accessors never panic;
// reading a missing or mistyped field yields the zero Value.
type Value struct {
	raw any
}

// Decode parses repaired JSON text. The top level must be an object.
func Decode(text string) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if _, ok := raw.(map[string]any); !ok {
		return Value{}, fmt.Errorf("failed to decode JSON: top level is %s, not an object", kindOf(raw))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("failed to decode JSON: unexpected data after the top-level object")
	}
	return Value{raw: raw}, nil
}

// Of wraps an already decoded value.
func Of(v any) Value {
	return Value{raw: v}
}

// IsMissing reports whether the value is absent or JSON null.
func (v Value) IsMissing() bool {
	return v.raw == nil
}

// Field returns the first present member among keys. Aliases let callers
// accept the spellings models drift between ("exercises" vs "items").
func (v Value) Field(keys ...string) Value {
	obj, ok := v.raw.(map[string]any)
	if !ok {
		return Value{}
	}
	for _, k := range keys {
		if member, ok := obj[k]; ok && member != nil {
			return Value{raw: member}
		}
	}
	return Value{}
}

// List returns array elements. A lone object is treated as a one-element list.
func (v Value) List() []Value {
	switch t := v.raw.(type) {
	case []any:
		out := make([]Value, 0, len(t))
		for _, item := range t {
			out = append(out, Value{raw: item})
		}
		return out
	case map[string]any:
		return []Value{v}
	default:
		return nil
	}
}

// Strings returns the value as a list of strings. A string is split on
// commas, semicolons and slashes; non-string scalars are formatted.
func (v Value) Strings() []string {
	return v.SplitStrings(",;/،")
}

// SplitStrings is Strings with the given separator runes.
func (v Value) SplitStrings(separators string) []string {
	switch t := v.raw.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := Of(item).Text(); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.FieldsFunc(t, func(r rune) bool { return strings.ContainsRune(separators, r) }) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		if s, ok := v.Text(); ok && s != "" {
			return []string{s}
		}
		return nil
	}
}

// Text returns a scalar as trimmed text.
func (v Value) Text() (string, bool) {
	switch t := v.raw.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// Number returns the numeric reading of the value. The second result reports
// whether a number was found; the third whether it had to be read out of text.
func (v Value) Number() (float64, bool, bool) {
	switch t := v.raw.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil, false
	case float64:
		return t, true, false
	case string:
		m := leadingNumber.FindString(strings.TrimSpace(t))
		if m == "" {
			return 0, false, true
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		return f, err == nil, true
	default:
		return 0, false, false
	}
}

// IsNumber reports whether the value is a JSON number.
func (v Value) IsNumber() bool {
	switch v.raw.(type) {
	case json.Number, float64:
		return true
	default:
		return false
	}
}

// Raw returns the underlying decoded value.
func (v Value) Raw() any {
	return v.raw
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case json.Number, float64:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
