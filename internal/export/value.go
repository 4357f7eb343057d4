// Package export converts remote history items into flat, JSON-safe
// records and streams them into tabular sinks.
package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind discriminates the closed set of shapes a normalized value can take.
type Kind uint8

// Value kinds. Every remote value maps to exactly one of these.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindTimestamp
	KindSequence
	KindMapping
	KindOpaque
)

// Field is one named slot of a Mapping. Mappings carry their fields as
// an ordered slice because order is significant to consumers even when
// it is not semantically load-bearing.
type Field struct {
	Key   string
	Value Value
}

// Value is the normalized form of any value a remote record can
// contain. Exactly one payload field is meaningful, selected by Kind;
// Text holds the payload for String, Bytes (hex), Timestamp (RFC 3339)
// and Opaque.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Text  string
	Seq   []Value
	Map   []Field
}

// Null returns the null value.
func Null() Value { return Value{Kind: KindNull} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// IntValue wraps a signed integer.
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }

// FloatValue wraps a float.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// StringValue wraps text.
func StringValue(s string) Value { return Value{Kind: KindString, Text: s} }

// OpaqueValue wraps the textual representation of an undecomposable value.
func OpaqueValue(s string) Value { return Value{Kind: KindOpaque, Text: s} }

// SequenceValue wraps an ordered list of values.
func SequenceValue(elems []Value) Value { return Value{Kind: KindSequence, Seq: elems} }

// MappingValue wraps an ordered field list.
func MappingValue(fields []Field) Value { return Value{Kind: KindMapping, Map: fields} }

// IsNull reports whether the value is the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// JSONText renders the value as compact JSON. Mapping field order is
// preserved and non-ASCII characters pass through unescaped, which
// encoding/json cannot promise for either.
func (v Value) JSONText() string {
	var b strings.Builder
	v.appendJSON(&b)
	return b.String()
}

func (v Value) appendJSON(b *strings.Builder) {
	switch v.Kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.Bool))
	case KindInt:
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case KindFloat:
		if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
			// Not representable as a JSON number.
			b.WriteString("null")
			return
		}
		b.WriteString(strconv.FormatFloat(v.Float, 'g', -1, 64))
	case KindString, KindBytes, KindTimestamp, KindOpaque:
		quoteJSON(b, v.Text)
	case KindSequence:
		b.WriteByte('[')
		for i, elem := range v.Seq {
			if i > 0 {
				b.WriteByte(',')
			}
			elem.appendJSON(b)
		}
		b.WriteByte(']')
	case KindMapping:
		b.WriteByte('{')
		for i, f := range v.Map {
			if i > 0 {
				b.WriteByte(',')
			}
			quoteJSON(b, f.Key)
			b.WriteByte(':')
			f.Value.appendJSON(b)
		}
		b.WriteByte('}')
	}
}

func quoteJSON(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}

// CellText renders the value for a single tabular cell. Text kinds have
// carriage returns and line feeds replaced by the two-character escapes
// \r and \n so a record always occupies one physical output line;
// sequences and mappings are embedded as compact JSON.
func (v Value) CellText() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString, KindBytes, KindTimestamp, KindOpaque:
		return escapeLineBreaks(v.Text)
	case KindSequence, KindMapping:
		return escapeLineBreaks(v.JSONText())
	}
	return ""
}

var lineBreaks = strings.NewReplacer("\r", `\r`, "\n", `\n`)

func escapeLineBreaks(s string) string {
	return lineBreaks.Replace(s)
}
