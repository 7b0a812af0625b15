package typeahead

import (
	"fmt"
	"strconv"
	"strings"
)

// Candidate is one searchable record. Its shape depends on the field it
// belongs to; the selector never interprets it beyond text matching, only
// renderers and sinks know which keys exist.
type Candidate map[string]any

// Text returns the text form of a field. Missing and null fields read as "".
func (c Candidate) Text(field string) string {
	v, ok := c[field]
	if !ok {
		return ""
	}
	return textOf(v)
}

// TextOr returns the text form of a field, or fallback when the value is
// missing, null, empty, zero or false.
func (c Candidate) TextOr(field, fallback string) string {
	v, ok := c[field]
	if !ok || !truthy(v) {
		return fallback
	}
	return textOf(v)
}

// Float returns a field as a number. Numeric strings are parsed; anything
// else (missing, null, non-numeric) is 0.
func (c Candidate) Float(field string) float64 {
	switch v := c[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Matches reports whether any field's text form contains query,
// case-insensitively. An empty query matches everything.
func (c Candidate) Matches(query string) bool {
	q := strings.ToLower(query)
	for _, v := range c {
		if v == nil {
			continue
		}
		if strings.Contains(strings.ToLower(textOf(v)), q) {
			return true
		}
	}
	return false
}

// Filter returns the candidates matching query, in dataset order.
func Filter(dataset []Candidate, query string) []Candidate {
	out := make([]Candidate, 0, len(dataset))
	for _, c := range dataset {
		if c.Matches(query) {
			out = append(out, c)
		}
	}
	return out
}

// Normalize turns a decoded JSON value into a candidate list: arrays keep
// their object elements, a single object becomes a one-element list and
// everything else is empty. skipped counts non-object array elements, or 1
// for a truthy scalar.
func Normalize(data any) (out []Candidate, skipped int) {
	switch v := data.(type) {
	case []any:
		out = make([]Candidate, 0, len(v))
		for _, el := range v {
			obj, ok := el.(map[string]any)
			if !ok {
				skipped++
				continue
			}
			out = append(out, Candidate(obj))
		}
		return out, skipped
	case map[string]any:
		return []Candidate{Candidate(v)}, 0
	default:
		if truthy(v) {
			return nil, 1
		}
		return nil, 0
	}
}

func textOf(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case float64:
		return v != 0
	case float32:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case bool:
		return v
	default:
		return true
	}
}
