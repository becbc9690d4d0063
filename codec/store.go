package codec

import (
	"io"

	"github.com/andrepuel/tapelog/tape"
	"github.com/tinylib/msgp/msgp"
)

// Store is the write half of the binary codec: one Instruction in, one
// self-describing record out. It never returns NeedsRestart-true itself —
// rotation is the concern of rotate.Rotate, which wraps a Store.
type Store struct {
	w *msgp.Writer
}

// NewStore wraps out with a buffered MessagePack writer.
func NewStore(out io.Writer) *Store {
	return &Store{w: msgp.NewWriter(out)}
}

func (s *Store) NeedsRestart() bool { return false }

// Handle encodes instr and flushes. Encoding errors are swallowed here,
// matching the original sink's `let _ = do_handle(...)`; callers have no
// way to observe I/O failures through it. rotate.Rotate forwards to Handle
// and does not inspect write errors either.
func (s *Store) Handle(instr tape.Instruction) {
	_ = s.encode(instr)
	_ = s.w.Flush()
}

func (s *Store) encode(instr tape.Instruction) error {
	if _, err := s.w.Write([]byte{instr.ID.Byte()}); err != nil {
		return err
	}

	switch instr.ID {
	case tape.IDRestart, tape.IDFinishedSpan, tape.IDFinishedRecord, tape.IDFinishedEvent:
		return nil
	case tape.IDNewString:
		return s.w.WriteString(instr.Literal)
	case tape.IDNewSpan:
		if err := s.w.WriteUint64(uint64(instr.Parent)); err != nil {
			return err
		}
		if err := s.w.WriteUint64(uint64(instr.Span)); err != nil {
			return err
		}
		return s.writeCacheString(instr.Name)
	case tape.IDNewRecord:
		return s.w.WriteUint64(uint64(instr.Span))
	case tape.IDStartEvent:
		if err := s.w.WriteUint64(uint64(instr.Time.Unix())); err != nil {
			return err
		}
		if err := s.w.WriteUint64(uint64(instr.Time.Nanosecond())); err != nil {
			return err
		}
		if err := s.w.WriteUint64(uint64(instr.Span)); err != nil {
			return err
		}
		if err := s.writeCacheString(instr.Target); err != nil {
			return err
		}
		return s.w.WriteUint64(uint64(instr.Priority))
	case tape.IDAddValue:
		if err := s.writeCacheString(instr.Field.Name); err != nil {
			return err
		}
		return s.writeValue(instr.Field.Value)
	case tape.IDDeleteSpan:
		return s.w.WriteUint64(uint64(instr.Span))
	default:
		return errUnexpectedOpcode(instr.ID)
	}
}

func (s *Store) writeCacheString(cs tape.CacheString) error {
	if !cs.IsCached() {
		return s.w.WriteString(cs.Str())
	}
	raw := encodeCacheIndex(cs.Index())
	_, err := s.w.Write(raw)
	return err
}

func (s *Store) writeValue(v tape.Value) error {
	switch v.Kind {
	case tape.ValueDebug:
		if err := s.w.WriteArrayHeader(1); err != nil {
			return err
		}
		return s.writeCacheString(v.Str)
	case tape.ValueString:
		return s.writeCacheString(v.Str)
	case tape.ValueFloat:
		return s.w.WriteFloat64(v.Float)
	case tape.ValueInteger:
		return s.w.WriteInt64(v.Int)
	case tape.ValueUnsigned:
		return s.w.WriteUint64(v.Uint)
	case tape.ValueBool:
		return s.w.WriteBool(v.Bool)
	case tape.ValueBytes:
		return s.w.WriteBytes(v.Bytes)
	default:
		return errUnexpectedOpcode(tape.IDAddValue)
	}
}
