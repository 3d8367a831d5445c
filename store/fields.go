package store

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Fields holds JSON-encoded values keyed by field name, as received from a
// client or read back from storage. A key mapped to JSON null counts as
// absent.
type Fields map[string]json.RawMessage

// DecodeFields parses a JSON object. Anything other than an object is a
// ValidationError.
func DecodeFields(data []byte) (Fields, error) {
	var f Fields
	if err := json.Unmarshal(data, &f); err != nil || f == nil {
		return nil, invalid("body", "must be an object")
	}
	return f, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Has reports whether key is present with a non-null value.
func (f Fields) Has(key string) bool {
	raw, ok := f[key]
	return ok && !isNull(raw)
}

// String returns the value of key as a string. Numbers are accepted and
// returned as their literal text; any other JSON type is rejected.
func (f Fields) String(key string) (string, bool, error) {
	if !f.Has(key) {
		return "", false, nil
	}
	raw := f[key]
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true, nil
	}
	return "", false, invalid(key, "must be a string")
}

// Float returns the value of key as a finite float. Numeric strings are
// parsed.
func (f Fields) Float(key string) (float64, bool, error) {
	if !f.Has(key) {
		return 0, false, nil
	}
	raw := f[key]
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false, invalid(key, "must be a number")
		}
		v, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false, invalid(key, "must be a number")
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, invalid(key, "must be a number")
	}
	return v, true, nil
}

// Int is Float truncated toward zero. Values outside the int32 range are
// rejected.
func (f Fields) Int(key string) (int, bool, error) {
	v, ok, err := f.Float(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	v = math.Trunc(v)
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false, invalid(key, "out of range")
	}
	return int(v), true, nil
}

// text, number and whole are the lenient readers used when loading stored records:
// a value of the wrong type reads as the zero value.
func (f Fields) text(key string) string {
	s, _, _ := f.String(key)
	return s
}

func (f Fields) number(key string) float64 {
	v, _, _ := f.Float(key)
	return v
}

func (f Fields) whole(key string) int {
	n, _, _ := f.Int(key)
	return n
}

// rest returns the entries whose keys are not listed in known, or nil.
func (f Fields) rest(known []string) map[string]json.RawMessage {
	var out map[string]json.RawMessage
	for k, v := range f {
		if containsKey(known, k) {
			continue
		}
		if out == nil {
			out = make(map[string]json.RawMessage)
		}
		out[k] = v
	}
	return out
}

func containsKey(keys []string, k string) bool {
	for _, key := range keys {
		if key == k {
			return true
		}
	}
	return false
}

type fieldSetter func(Fields) error

func str(key string, dst *string) fieldSetter {
	return func(f Fields) error {
		v, ok, err := f.String(key)
		if ok {
			*dst = v
		}
		return err
	}
}

func num(key string, dst *float64) fieldSetter {
	return func(f Fields) error {
		v, ok, err := f.Float(key)
		if ok {
			*dst = v
		}
		return err
	}
}

func integer(key string, dst *int) fieldSetter {
	return func(f Fields) error {
		v, ok, err := f.Int(key)
		if ok {
			*dst = v
		}
		return err
	}
}

// apply runs every setter against f, stopping at the first error. Callers
// apply onto a copy of the record so a failure leaves nothing half-written.
func apply(f Fields, setters ...fieldSetter) error {
	for _, s := range setters {
		if err := s(f); err != nil {
			return err
		}
	}
	return nil
}

// required returns a non-empty string value for key.
func required(f Fields, key string) (string, error) {
	v, _, err := f.String(key)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", invalid(key, "is required")
	}
	return v, nil
}
