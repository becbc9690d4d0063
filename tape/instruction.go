// Package tape defines the instruction stream shared by every link in the
// tape machine pipeline: the opcode enum, the tagged instruction type, and
// the small value/string shapes that travel inside it.
package tape

import (
	"fmt"
	"time"
)

// SpanID identifies a span for the lifetime of the producing process. Zero
// means "no span" on the wire and in every in-memory representation.
type SpanID uint64

// Priority orders event severity, TRACE being the least severe.
type Priority int

const (
	PriorityTrace Priority = iota
	PriorityDebug
	PriorityInfo
	PriorityWarn
	PriorityError
)

func (p Priority) String() string {
	switch p {
	case PriorityTrace:
		return "TRACE"
	case PriorityDebug:
		return "DEBUG"
	case PriorityInfo:
		return "INFO"
	case PriorityWarn:
		return "WARN"
	case PriorityError:
		return "ERROR"
	default:
		return "ERROR"
	}
}

// PriorityFromUint decodes the on-wire priority number. Unknown values clamp
// to ERROR per spec, matching the teacher's own "unknown level degrades to
// the loudest" convention.
func PriorityFromUint(v uint64) Priority {
	switch v {
	case uint64(PriorityTrace):
		return PriorityTrace
	case uint64(PriorityDebug):
		return PriorityDebug
	case uint64(PriorityInfo):
		return PriorityInfo
	case uint64(PriorityWarn):
		return PriorityWarn
	case uint64(PriorityError):
		return PriorityError
	default:
		return PriorityError
	}
}

// CacheString is a string-valued field carried either as a literal or as an
// index into a previously declared NewString. The same type serves both the
// uncached and cached views of the stream; StringCache/StringUncache flip
// instructions between the two in place instead of duplicating every
// instruction variant.
type CacheString struct {
	literal string
	cached  bool
	index   uint64
}

// Literal wraps a raw string as an uncached CacheString.
func Literal(s string) CacheString {
	return CacheString{literal: s}
}

// CachedIndex wraps a cache index as a cached CacheString.
func CachedIndex(i uint64) CacheString {
	return CacheString{cached: true, index: i}
}

// IsCached reports whether this CacheString carries an index rather than a
// literal.
func (c CacheString) IsCached() bool { return c.cached }

// Index returns the cache index. Only meaningful when IsCached is true.
func (c CacheString) Index() uint64 { return c.index }

// Str returns the literal string. Only meaningful when IsCached is false.
func (c CacheString) Str() string { return c.literal }

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	ValueDebug ValueKind = iota
	ValueString
	ValueFloat
	ValueInteger
	ValueUnsigned
	ValueBool
	ValueBytes
)

// Value is a tagged value attached to a FieldValue. Only the field matching
// Kind is populated.
type Value struct {
	Kind  ValueKind
	Str   CacheString
	Float float64
	Int   int64
	Uint  uint64
	Bool  bool
	Bytes []byte
}

func DebugValue(s CacheString) Value    { return Value{Kind: ValueDebug, Str: s} }
func StringValue(s CacheString) Value   { return Value{Kind: ValueString, Str: s} }
func FloatValue(f float64) Value        { return Value{Kind: ValueFloat, Float: f} }
func IntegerValue(i int64) Value        { return Value{Kind: ValueInteger, Int: i} }
func UnsignedValue(u uint64) Value      { return Value{Kind: ValueUnsigned, Uint: u} }
func BoolValue(b bool) Value            { return Value{Kind: ValueBool, Bool: b} }
func BytesValue(b []byte) Value         { return Value{Kind: ValueBytes, Bytes: b} }

// FieldValue pairs a field name with its value. Both the name and, when the
// value is a string, the value participate in string caching.
type FieldValue struct {
	Name  CacheString
	Value Value
}

// SpanRecords is the accumulated state of a live span: its parent, its name,
// and its attributes in insertion order. Late records append.
type SpanRecords struct {
	Parent  SpanID
	Name    CacheString
	Records []FieldValue
}

// InstructionID enumerates opcodes. The byte values are part of the wire
// contract (spec.md §4.1) and must never change.
type InstructionID uint8

const (
	IDDeleteSpan      InstructionID = 0
	IDNewString       InstructionID = 1
	IDNewSpan         InstructionID = 2
	IDFinishedSpan    InstructionID = 4
	IDNewRecord       InstructionID = 8
	IDFinishedRecord  InstructionID = 16
	IDStartEvent      InstructionID = 32
	IDFinishedEvent   InstructionID = 64
	IDAddValue        InstructionID = 128
	IDRestart         InstructionID = 255
)

// Byte returns the on-wire opcode byte.
func (id InstructionID) Byte() byte { return byte(id) }

// InstructionIDFromByte inverts Byte, failing on any value that isn't one of
// the ten defined opcodes.
func InstructionIDFromByte(b byte) (InstructionID, error) {
	switch InstructionID(b) {
	case IDDeleteSpan, IDNewString, IDNewSpan, IDFinishedSpan, IDNewRecord,
		IDFinishedRecord, IDStartEvent, IDFinishedEvent, IDAddValue, IDRestart:
		return InstructionID(b), nil
	default:
		return 0, fmt.Errorf("%w: opcode %#02x", ErrBadOpcode, b)
	}
}

// Instruction is the pipeline's unit of work: a tagged variant over the ten
// opcodes in spec.md §3. Only the fields relevant to ID are meaningful.
type Instruction struct {
	ID InstructionID

	// NewString
	Literal string

	// NewSpan, NewRecord, DeleteSpan, StartEvent (span reference)
	Parent SpanID
	Span   SpanID
	Name   CacheString

	// StartEvent
	Time     time.Time
	Target   CacheString
	Priority Priority

	// AddValue
	Field FieldValue
}

func Restart() Instruction { return Instruction{ID: IDRestart} }

func NewStringInstruction(literal string) Instruction {
	return Instruction{ID: IDNewString, Literal: literal}
}

func NewSpanInstruction(parent, span SpanID, name CacheString) Instruction {
	return Instruction{ID: IDNewSpan, Parent: parent, Span: span, Name: name}
}

func FinishedSpanInstruction() Instruction { return Instruction{ID: IDFinishedSpan} }

func NewRecordInstruction(span SpanID) Instruction {
	return Instruction{ID: IDNewRecord, Span: span}
}

func FinishedRecordInstruction() Instruction { return Instruction{ID: IDFinishedRecord} }

func StartEventInstruction(t time.Time, span SpanID, target CacheString, priority Priority) Instruction {
	return Instruction{ID: IDStartEvent, Span: span, Time: t, Target: target, Priority: priority}
}

func FinishedEventInstruction() Instruction { return Instruction{ID: IDFinishedEvent} }

func AddValueInstruction(fv FieldValue) Instruction {
	return Instruction{ID: IDAddValue, Field: fv}
}

func DeleteSpanInstruction(span SpanID) Instruction {
	return Instruction{ID: IDDeleteSpan, Span: span}
}

// Machine is a stateful consumer of the instruction stream that forwards
// (possibly transformed) instructions to a downstream Machine. Composition
// is strictly linear.
type Machine interface {
	// NeedsRestart asks the machine (and transitively its downstream chain)
	// whether the caller should emit a Restart before the next instruction
	// batch. Only sinks answer true; pure transducers delegate downstream.
	NeedsRestart() bool
	Handle(Instruction)
}
