// Package stringcache holds the three transducers that intern, carry across
// restarts, and invert string interning in the instruction stream: Cache,
// Restartable, and Uncache.
package stringcache

import "github.com/andrepuel/tapelog/tape"

// Cache interns repeated strings behind NewString/cache-index pairs. Only
// strings judged "not small" by isSmall earn a NewString; everything else is
// passed through as a literal, matching the original's per-string cost
// heuristic rather than caching unconditionally.
type Cache struct {
	forward tape.Machine
	strings map[string]uint64
}

// NewCache wraps forward, interning strings before passing instructions on.
func NewCache(forward tape.Machine) *Cache {
	return &Cache{forward: forward, strings: map[string]uint64{}}
}

func (c *Cache) NeedsRestart() bool { return c.forward.NeedsRestart() }

func (c *Cache) Handle(instr tape.Instruction) {
	switch instr.ID {
	case tape.IDRestart:
		c.strings = map[string]uint64{}
		c.forward.Handle(instr)
	case tape.IDNewString:
		c.strings[instr.Literal] = uint64(len(c.strings))
		c.forward.Handle(instr)
	case tape.IDNewSpan:
		instr.Name = c.internCacheString(instr.Name)
		c.forward.Handle(instr)
	case tape.IDStartEvent:
		instr.Target = c.internCacheString(instr.Target)
		c.forward.Handle(instr)
	case tape.IDAddValue:
		instr.Field.Name = c.internCacheString(instr.Field.Name)
		instr.Field.Value = c.internValue(instr.Field.Value)
		c.forward.Handle(instr)
	default:
		c.forward.Handle(instr)
	}
}

func (c *Cache) internValue(v tape.Value) tape.Value {
	if v.Kind != tape.ValueString {
		return v
	}
	return tape.StringValue(c.internCacheString(v.Str))
}

// internCacheString interns the literal carried by s, emitting a NewString
// to forward when the string is judged worth caching. Strings already
// cached (from an upstream transducer) pass through untouched.
func (c *Cache) internCacheString(s tape.CacheString) tape.CacheString {
	if s.IsCached() {
		return s
	}
	return c.internString(s.Str())
}

func (c *Cache) internString(s string) tape.CacheString {
	if id, ok := c.strings[s]; ok {
		return tape.CachedIndex(id)
	}

	id := uint64(len(c.strings))
	if isSmall(id, len(s)) {
		return tape.Literal(s)
	}

	c.forward.Handle(tape.NewStringInstruction(s))
	c.strings[s] = id
	return tape.CachedIndex(id)
}

// isSmall reports whether a string at the given would-be cache index and
// byte length costs more to reference by index than to repeat literally. The
// thresholds are the exact marker-width boundaries of the cache-index wire
// encoding: fixext1 (index <= 0xffff) pays off from 4 bytes up, fixext2
// (index <= 0xff_ffff) from 5, fixext4 (index <= 0xff_ffff_ffff) from 7, and
// fixext8 (any larger index) from 11.
func isSmall(id uint64, length int) bool {
	worthCaching := (id <= 0xffff && length >= 4) ||
		(id > 0xffff && id <= 0xff_ffff && length >= 5) ||
		(id > 0xff_ffff && id <= 0xff_ffff_ffff && length >= 7) ||
		length >= 11
	return !worthCaching
}
