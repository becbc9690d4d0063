package stringcache

import "github.com/andrepuel/tapelog/tape"

// Uncache inverts Cache: it remembers every NewString in arrival order and
// replaces cache-index references with the literal they refer to, so
// everything downstream only ever sees literals. Restart clears the table,
// mirroring Cache's own reset, since cache indices are only meaningful
// relative to the NewStrings seen since the last Restart (spec.md §3
// invariant 5) — two tape segments concatenated in one stream (e.g. after a
// resync) each restart their indices from 0.
type Uncache struct {
	forward tape.Machine
	strings []string
}

// NewUncache wraps forward, resolving cache indices before passing
// instructions on.
func NewUncache(forward tape.Machine) *Uncache {
	return &Uncache{forward: forward}
}

func (u *Uncache) NeedsRestart() bool { return u.forward.NeedsRestart() }

func (u *Uncache) Handle(instr tape.Instruction) {
	switch instr.ID {
	case tape.IDRestart:
		u.strings = nil
	case tape.IDNewString:
		u.strings = append(u.strings, instr.Literal)
		return
	case tape.IDNewSpan:
		instr.Name = u.resolve(instr.Name)
	case tape.IDStartEvent:
		instr.Target = u.resolve(instr.Target)
	case tape.IDAddValue:
		instr.Field.Name = u.resolve(instr.Field.Name)
		instr.Field.Value = u.resolveValue(instr.Field.Value)
	}
	u.forward.Handle(instr)
}

func (u *Uncache) resolveValue(v tape.Value) tape.Value {
	if v.Kind != tape.ValueString {
		return v
	}
	return tape.StringValue(u.resolve(v.Str))
}

// resolve returns a literal CacheString regardless of the input shape.
// codec.Load rejects any cache index past every NewString it has seen since
// the last Restart (tape.ErrUnexpectedCached) before handing the
// instruction downstream, so by the time it reaches here the index is
// assumed valid.
func (u *Uncache) resolve(s tape.CacheString) tape.CacheString {
	if !s.IsCached() {
		return s
	}
	return tape.Literal(u.strings[s.Index()])
}
