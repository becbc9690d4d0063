package logger

import (
	"fmt"

	"github.com/andrepuel/tapelog/tape"
)

// Field constructors mirror spec.md §4.2's source-type mapping. Names and
// string-valued fields are always passed through as literals here; caching
// is stringcache.Cache's job further downstream.

// FloatField attaches a floating-point attribute.
func FloatField(name string, v float64) tape.FieldValue {
	return field(name, tape.FloatValue(v))
}

// IntegerField attaches a signed integer attribute.
func IntegerField(name string, v int64) tape.FieldValue {
	return field(name, tape.IntegerValue(v))
}

// UnsignedField attaches an unsigned integer attribute.
func UnsignedField(name string, v uint64) tape.FieldValue {
	return field(name, tape.UnsignedValue(v))
}

// BoolField attaches a boolean attribute.
func BoolField(name string, v bool) tape.FieldValue {
	return field(name, tape.BoolValue(v))
}

// BytesField attaches a raw byte-sequence attribute.
func BytesField(name string, v []byte) tape.FieldValue {
	return field(name, tape.BytesValue(v))
}

// StringField attaches a string attribute, eligible for caching downstream.
func StringField(name, v string) tape.FieldValue {
	return field(name, tape.StringValue(tape.Literal(v)))
}

// DebugField attaches an opaque debug rendering of v, the generic fallback
// for values that aren't one of the other source types.
func DebugField(name string, v interface{}) tape.FieldValue {
	return field(name, tape.DebugValue(tape.Literal(fmt.Sprintf("%+v", v))))
}

// Int128Field attaches a 128-bit integer as its little-endian 16-byte form.
func Int128Field(name string, v [16]byte) tape.FieldValue {
	return field(name, tape.BytesValue(v[:]))
}

// ErrorField attaches an error's text rendering.
func ErrorField(name string, err error) tape.FieldValue {
	return field(name, tape.StringValue(tape.Literal(err.Error())))
}

func field(name string, v tape.Value) tape.FieldValue {
	return tape.FieldValue{Name: tape.Literal(name), Value: v}
}
