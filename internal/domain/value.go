package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Value is a caller-supplied number kept exactly as it was received: a JSON
// number, a numeric string, or a Go number. It is parsed only at the pricing
// boundary, so malformed text surfaces there as a validation error.
// The zero Value is empty and never parses.
type Value struct {
	raw    string
	quoted bool
}

// Num wraps a float64 using its shortest exact decimal representation.
// NaN and infinities are kept and rejected at parse time.
func Num(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{raw: strconv.FormatFloat(f, 'f', -1, 64), quoted: true}
	}
	return Value{raw: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Int wraps an integer.
func Int(i int64) Value {
	return Value{raw: strconv.FormatInt(i, 10)}
}

// Str wraps a string as received, e.g. "65.00".
func Str(s string) Value {
	return Value{raw: s, quoted: true}
}

// Dec wraps an already exact decimal.
func Dec(d decimal.Decimal) Value {
	return Value{raw: d.String()}
}

// Raw returns the text as received.
func (v Value) Raw() string {
	return v.raw
}

// IsZero reports whether nothing was supplied.
func (v Value) IsZero() bool {
	return v.raw == ""
}

func (v Value) String() string {
	return v.raw
}

// MarshalJSON writes numbers back as numbers and strings back as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.raw == "" {
		return []byte("null"), nil
	}
	if v.quoted {
		return json.Marshal(v.raw)
	}
	return []byte(v.raw), nil
}

// UnmarshalJSON accepts any JSON scalar. Non-numeric content is retained and
// rejected later by the parser with a message naming it.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Str(s)
		return nil
	}
	*v = Value{raw: string(b)}
	return nil
}

// UnmarshalYAML accepts any scalar node; quoted scalars keep their quoting.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		*v = Value{}
		return nil
	}
	*v = Value{raw: node.Value, quoted: node.Tag == "!!str"}
	return nil
}
