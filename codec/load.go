package codec

import (
	"errors"
	"io"
	"time"

	"github.com/andrepuel/tapelog/tape"
	"github.com/tinylib/msgp/msgp"
)

// Load is the read half of the binary codec. It decodes one self-describing
// record at a time; cache-index references are handed back as-is
// (tape.CachedIndex) for stringcache.Uncache to resolve further downstream.
//
// There is exactly one buffering layer over the input: mr.R, the *fwd.Reader
// msgp.Reader wraps internally. Opcode bytes, marker peeks, and raw
// cache-index payload bytes are all read straight off mr.R; the typed
// MessagePack field reads (ReadString, ReadUint64, ...) go through mr
// itself, which reads from that same R. A second, independent bufio.Reader
// in front of mr would let mr's own read-ahead drain bytes a sibling reader
// never sees — every raw read here has to go through the one reader msgp
// actually uses.
type Load struct {
	mr      *msgp.Reader
	started bool

	// newStrings counts NewString instructions seen since the last Restart,
	// so a decoded cache index can be checked against spec.md §3 invariant 5
	// (every Cached(i) satisfies i < newStrings) before it reaches a
	// downstream StringUncache/Printer that would otherwise index a slice
	// out of range.
	newStrings uint64
}

// NewLoad wraps in with a buffered MessagePack reader. Decoding silently
// discards bytes until the first Restart opcode, so Load can be pointed at
// an arbitrary offset into a tape (e.g. a tailed file) and still find a
// record boundary.
func NewLoad(in io.Reader) *Load {
	return &Load{mr: msgp.NewReader(in)}
}

// Next decodes and returns the next instruction, or io.EOF once the input is
// exhausted. A malformed record returns a wrapped sentinel from tape's error
// taxonomy; callers that want to keep reading past it should call Resync.
func (l *Load) Next() (tape.Instruction, error) {
	opcode, err := l.nextOpcodeByte()
	if err != nil {
		return tape.Instruction{}, err
	}

	id, err := tape.InstructionIDFromByte(opcode)
	if err != nil {
		return tape.Instruction{}, err
	}

	switch id {
	case tape.IDRestart:
		l.newStrings = 0
		return tape.Restart(), nil
	case tape.IDFinishedSpan:
		return tape.FinishedSpanInstruction(), nil
	case tape.IDFinishedRecord:
		return tape.FinishedRecordInstruction(), nil
	case tape.IDFinishedEvent:
		return tape.FinishedEventInstruction(), nil
	case tape.IDNewString:
		s, err := l.mr.ReadString()
		if err != nil {
			return tape.Instruction{}, errTruncated(err)
		}
		l.newStrings++
		return tape.NewStringInstruction(s), nil
	case tape.IDNewSpan:
		parent, err := l.mr.ReadUint64()
		if err != nil {
			return tape.Instruction{}, errTruncated(err)
		}
		span, err := l.mr.ReadUint64()
		if err != nil {
			return tape.Instruction{}, errTruncated(err)
		}
		if span == 0 {
			return tape.Instruction{}, errZeroSpan()
		}
		name, err := l.readCacheString()
		if err != nil {
			return tape.Instruction{}, err
		}
		return tape.NewSpanInstruction(tape.SpanID(parent), tape.SpanID(span), name), nil
	case tape.IDNewRecord:
		span, err := l.mr.ReadUint64()
		if err != nil {
			return tape.Instruction{}, errTruncated(err)
		}
		if span == 0 {
			return tape.Instruction{}, errZeroSpan()
		}
		return tape.NewRecordInstruction(tape.SpanID(span)), nil
	case tape.IDStartEvent:
		sec, err := l.mr.ReadUint64()
		if err != nil {
			return tape.Instruction{}, errTruncated(err)
		}
		nsec, err := l.mr.ReadUint64()
		if err != nil {
			return tape.Instruction{}, errTruncated(err)
		}
		span, err := l.mr.ReadUint64()
		if err != nil {
			return tape.Instruction{}, errTruncated(err)
		}
		target, err := l.readCacheString()
		if err != nil {
			return tape.Instruction{}, err
		}
		priority, err := l.mr.ReadUint64()
		if err != nil {
			return tape.Instruction{}, errTruncated(err)
		}
		t := time.Unix(int64(sec), int64(nsec)).UTC()
		return tape.StartEventInstruction(t, tape.SpanID(span), target, tape.PriorityFromUint(priority)), nil
	case tape.IDAddValue:
		name, err := l.readCacheString()
		if err != nil {
			return tape.Instruction{}, err
		}
		value, err := l.readValue()
		if err != nil {
			return tape.Instruction{}, err
		}
		return tape.AddValueInstruction(tape.FieldValue{Name: name, Value: value}), nil
	case tape.IDDeleteSpan:
		span, err := l.mr.ReadUint64()
		if err != nil {
			return tape.Instruction{}, errTruncated(err)
		}
		if span == 0 {
			return tape.Instruction{}, errZeroSpan()
		}
		return tape.DeleteSpanInstruction(tape.SpanID(span)), nil
	default:
		return tape.Instruction{}, errUnexpectedOpcode(id)
	}
}

// Resync discards bytes until the next Restart opcode and returns the
// Restart instruction itself, ready to forward. Use after Next returns an
// error to recover a record boundary instead of aborting the whole stream.
func (l *Load) Resync() (tape.Instruction, error) {
	l.started = false
	if _, err := l.nextOpcodeByte(); err != nil {
		return tape.Instruction{}, err
	}
	l.newStrings = 0
	return tape.Restart(), nil
}

func (l *Load) nextOpcodeByte() (byte, error) {
	if l.started {
		return l.readByte()
	}
	for {
		b, err := l.readByte()
		if err != nil {
			return 0, err
		}
		if b == tape.IDRestart.Byte() {
			l.started = true
			return b, nil
		}
	}
}

func (l *Load) readByte() (byte, error) {
	b, err := l.mr.R.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, io.EOF
		}
		return 0, err
	}
	return b, nil
}

func (l *Load) peekMarker() (byte, error) {
	b, err := l.mr.R.Peek(1)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, io.EOF
		}
		return 0, err
	}
	return b[0], nil
}

// readCacheString decodes a field that's always one of literal-string or
// cache-index shape (span names, event targets, field names).
func (l *Load) readCacheString() (tape.CacheString, error) {
	marker, err := l.peekMarker()
	if err != nil {
		return tape.CacheString{}, errTruncated(err)
	}

	if n := cacheIndexPayloadLen(marker); n >= 0 {
		// buf holds the marker byte (still unconsumed after the peek above)
		// plus the n payload bytes that follow it.
		buf, err := l.mr.R.Next(n + 1)
		if err != nil {
			return tape.CacheString{}, errTruncated(err)
		}
		idx, err := decodeCacheIndex(marker, buf[1:])
		if err != nil {
			return tape.CacheString{}, err
		}
		if idx >= l.newStrings {
			return tape.CacheString{}, errUnexpectedCached()
		}
		return tape.CachedIndex(idx), nil
	}

	if isStringMarker(marker) {
		s, err := l.mr.ReadString()
		if err != nil {
			return tape.CacheString{}, errTruncated(err)
		}
		return tape.Literal(s), nil
	}

	return tape.CacheString{}, errUnexpectedMarkerByte(marker)
}

// readValue decodes an AddValue payload, whose MessagePack shape alone
// determines its tape.ValueKind.
func (l *Load) readValue() (tape.Value, error) {
	marker, err := l.peekMarker()
	if err != nil {
		return tape.Value{}, errTruncated(err)
	}

	switch {
	case marker == 0x91: // fixarray, length 1: Debug value wrapper
		if _, err := l.mr.R.Next(1); err != nil {
			return tape.Value{}, errTruncated(err)
		}
		str, err := l.readCacheString()
		if err != nil {
			return tape.Value{}, err
		}
		return tape.DebugValue(str), nil
	case isSignedIntMarker(marker):
		v, err := l.mr.ReadInt64()
		if err != nil {
			return tape.Value{}, errTruncated(err)
		}
		return tape.IntegerValue(v), nil
	case isUnsignedIntMarker(marker):
		v, err := l.mr.ReadUint64()
		if err != nil {
			return tape.Value{}, errTruncated(err)
		}
		return tape.UnsignedValue(v), nil
	case cacheIndexPayloadLen(marker) >= 0 || isStringMarker(marker):
		str, err := l.readCacheString()
		if err != nil {
			return tape.Value{}, err
		}
		return tape.StringValue(str), nil
	case marker == 0xc2 || marker == 0xc3:
		v, err := l.mr.ReadBool()
		if err != nil {
			return tape.Value{}, errTruncated(err)
		}
		return tape.BoolValue(v), nil
	case marker == 0xc4 || marker == 0xc5 || marker == 0xc6:
		v, err := l.mr.ReadBytes(nil)
		if err != nil {
			return tape.Value{}, errTruncated(err)
		}
		return tape.BytesValue(v), nil
	case marker == 0xca:
		v, err := l.mr.ReadFloat32()
		if err != nil {
			return tape.Value{}, errTruncated(err)
		}
		return tape.FloatValue(float64(v)), nil
	case marker == 0xcb:
		v, err := l.mr.ReadFloat64()
		if err != nil {
			return tape.Value{}, errTruncated(err)
		}
		return tape.FloatValue(v), nil
	default:
		return tape.Value{}, errUnexpectedMarkerByte(marker)
	}
}

func isSignedIntMarker(m byte) bool {
	return m <= 0x7f || m >= 0xe0 || m == 0xd0 || m == 0xd1 || m == 0xd2 || m == 0xd3
}

func isUnsignedIntMarker(m byte) bool {
	return m == 0xcc || m == 0xcd || m == 0xce || m == 0xcf
}

func isStringMarker(m byte) bool {
	return (m >= 0xa0 && m <= 0xbf) || m == 0xd9 || m == 0xda || m == 0xdb
}
