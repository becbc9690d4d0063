package stringcache

import (
	"testing"

	"github.com/andrepuel/tapelog/tape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMachine struct {
	instrs  []tape.Instruction
	restart bool
}

func (r *recordingMachine) NeedsRestart() bool { return r.restart }
func (r *recordingMachine) Handle(i tape.Instruction) {
	r.instrs = append(r.instrs, i)
}

func TestIsSmallThresholds(t *testing.T) {
	assert.True(t, isSmall(0, 3), "short string under the fixext1 threshold stays literal")
	assert.False(t, isSmall(0, 4), "string at the fixext1 threshold gets cached")
	assert.True(t, isSmall(0x1_0000, 4), "fixext2-range index needs 5 bytes, not 4, to pay off")
	assert.False(t, isSmall(0x1_0000, 5))
	assert.False(t, isSmall(0xff_ffff_ffff+1, 11), "any index pays off past the fixext8 threshold")
	assert.True(t, isSmall(0xff_ffff_ffff+1, 10))
}

func TestCacheKeepsShortStringsLiteral(t *testing.T) {
	rec := &recordingMachine{}
	c := NewCache(rec)

	c.Handle(tape.NewSpanInstruction(0, 1, tape.Literal("ab")))

	require.Len(t, rec.instrs, 1)
	assert.Equal(t, tape.IDNewSpan, rec.instrs[0].ID)
	assert.False(t, rec.instrs[0].Name.IsCached())
	assert.Equal(t, "ab", rec.instrs[0].Name.Str())
}

func TestCacheInternsRepeatedLongStrings(t *testing.T) {
	rec := &recordingMachine{}
	c := NewCache(rec)

	long := "a-reasonably-long-span-name"
	c.Handle(tape.NewSpanInstruction(0, 1, tape.Literal(long)))
	c.Handle(tape.FinishedSpanInstruction())
	c.Handle(tape.NewSpanInstruction(1, 2, tape.Literal(long)))

	// First occurrence: NewString, then NewSpan referencing index 0.
	require.Len(t, rec.instrs, 4)
	assert.Equal(t, tape.IDNewString, rec.instrs[0].ID)
	assert.Equal(t, long, rec.instrs[0].Literal)
	assert.Equal(t, tape.IDNewSpan, rec.instrs[1].ID)
	assert.True(t, rec.instrs[1].Name.IsCached())
	assert.Equal(t, uint64(0), rec.instrs[1].Name.Index())

	// Second occurrence reuses the same index without a new NewString.
	assert.Equal(t, tape.IDNewSpan, rec.instrs[3].ID)
	assert.True(t, rec.instrs[3].Name.IsCached())
	assert.Equal(t, uint64(0), rec.instrs[3].Name.Index())
}

func TestCacheClearsTableOnRestart(t *testing.T) {
	rec := &recordingMachine{}
	c := NewCache(rec)

	long := "a-reasonably-long-span-name"
	c.Handle(tape.NewSpanInstruction(0, 1, tape.Literal(long)))
	c.Handle(tape.Restart())
	c.Handle(tape.NewSpanInstruction(0, 2, tape.Literal(long)))

	// After Restart, the same string must be re-announced via NewString.
	last := rec.instrs[len(rec.instrs)-2]
	assert.Equal(t, tape.IDNewString, last.ID)
}

func TestCacheDelegatesNeedsRestart(t *testing.T) {
	rec := &recordingMachine{restart: true}
	c := NewCache(rec)
	assert.True(t, c.NeedsRestart())
}
