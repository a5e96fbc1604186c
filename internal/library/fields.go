package library

import (
	"math"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

// FieldIssue records a field that fell back to its default while decoding.
type FieldIssue struct {
	Field  string `json:"field" yaml:"field"`
	Reason string `json:"reason" yaml:"reason"`
}

const (
	reasonMissing   = "missing"
	reasonWrongType = "wrong type"
	reasonFraction  = "not an integer"
	reasonRange     = "out of range"
	reasonInvalid   = "invalid value"
)

// Fields reads values out of a decoded JSON object. A value that is absent,
// of the wrong JSON type, or otherwise unusable yields the caller's default
// and an issue is noted. Fields never fails.
type Fields struct {
	root   jsoniter.Any
	issues []FieldIssue
}

func newFields(root jsoniter.Any) *Fields {
	return &Fields{root: root}
}

// Issues returns the fields that were defaulted, in the order they were read.
func (f *Fields) Issues() []FieldIssue { return f.issues }

func (f *Fields) note(key, reason string) {
	f.issues = append(f.issues, FieldIssue{Field: key, Reason: reason})
}

func (f *Fields) lookup(key string, want jsoniter.ValueType) (jsoniter.Any, bool) {
	v := f.root.Get(key)
	switch v.ValueType() {
	case jsoniter.InvalidValue:
		f.note(key, reasonMissing)
		return nil, false
	case want:
		return v, true
	default:
		f.note(key, reasonWrongType)
		return nil, false
	}
}

// Int reads an integral number. Fractional numbers and numbers that do not
// fit in an int default.
func (f *Fields) Int(key string, def int) int {
	v, ok := f.lookup(key, jsoniter.NumberValue)
	if !ok {
		return def
	}
	text := strings.TrimSpace(v.ToString())
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		if n > math.MaxInt || n < math.MinInt {
			f.note(key, reasonRange)
			return def
		}
		return int(n)
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(n, 0) {
		f.note(key, reasonRange)
		return def
	}
	if n != math.Trunc(n) {
		f.note(key, reasonFraction)
		return def
	}
	if n >= math.MaxInt64 || n < math.MinInt64 {
		f.note(key, reasonRange)
		return def
	}
	return int(n)
}

func (f *Fields) String(key, def string) string {
	v, ok := f.lookup(key, jsoniter.StringValue)
	if !ok {
		return def
	}
	return v.ToString()
}

func (f *Fields) Bool(key string, def bool) bool {
	v, ok := f.lookup(key, jsoniter.BoolValue)
	if !ok {
		return def
	}
	return v.ToBool()
}

// Color reads a color string in any form ParseColor accepts.
func (f *Fields) Color(key string, def stimulus.Color) stimulus.Color {
	s, ok := f.lookup(key, jsoniter.StringValue)
	if !ok {
		return def
	}
	c, err := stimulus.ParseColor(s.ToString())
	if err != nil {
		f.note(key, reasonInvalid)
		return def
	}
	return c
}

// Key reads a numeric key code.
func (f *Fields) Key(key string, def stimulus.Key) stimulus.Key {
	n := f.Int(key, int(def))
	if n <= 0 {
		f.note(key, reasonInvalid)
		return def
	}
	return stimulus.Key(n)
}
