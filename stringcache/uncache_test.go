package stringcache

import (
	"testing"

	"github.com/andrepuel/tapelog/tape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUncacheResolvesCachedIndices(t *testing.T) {
	rec := &recordingMachine{}
	u := NewUncache(rec)

	u.Handle(tape.NewStringInstruction("hello"))
	u.Handle(tape.NewSpanInstruction(0, 1, tape.CachedIndex(0)))

	require.Len(t, rec.instrs, 1)
	assert.Equal(t, tape.IDNewSpan, rec.instrs[0].ID)
	assert.False(t, rec.instrs[0].Name.IsCached())
	assert.Equal(t, "hello", rec.instrs[0].Name.Str())
}

func TestUncacheLeavesLiteralsUntouched(t *testing.T) {
	rec := &recordingMachine{}
	u := NewUncache(rec)

	u.Handle(tape.NewSpanInstruction(0, 1, tape.Literal("direct")))

	require.Len(t, rec.instrs, 1)
	assert.Equal(t, "direct", rec.instrs[0].Name.Str())
}

func TestUncacheResolvesStringValues(t *testing.T) {
	rec := &recordingMachine{}
	u := NewUncache(rec)

	u.Handle(tape.NewStringInstruction("val"))
	u.Handle(tape.AddValueInstruction(tape.FieldValue{
		Name:  tape.Literal("field"),
		Value: tape.StringValue(tape.CachedIndex(0)),
	}))

	require.Len(t, rec.instrs, 1)
	assert.Equal(t, "val", rec.instrs[0].Field.Value.Str.Str())
}

func TestUncacheClearsTableOnRestart(t *testing.T) {
	rec := &recordingMachine{}
	u := NewUncache(rec)

	u.Handle(tape.NewStringInstruction("before"))
	u.Handle(tape.Restart())
	u.Handle(tape.NewStringInstruction("after"))
	u.Handle(tape.NewSpanInstruction(0, 1, tape.CachedIndex(0)))

	require.Len(t, rec.instrs, 2)
	assert.Equal(t, tape.IDRestart, rec.instrs[0].ID)
	assert.Equal(t, "after", rec.instrs[1].Name.Str())
}
