package replay_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrepuel/tapelog/codec"
	"github.com/andrepuel/tapelog/replay"
	"github.com/andrepuel/tapelog/tape"
)

type recordingMachine struct {
	instrs []tape.Instruction
}

func (r *recordingMachine) NeedsRestart() bool { return false }

func (r *recordingMachine) Handle(instr tape.Instruction) {
	r.instrs = append(r.instrs, instr)
}

func TestRunForwardsEntireTape(t *testing.T) {
	var buf bytes.Buffer
	store := codec.NewStore(&buf)
	store.Handle(tape.Restart())
	store.Handle(tape.NewSpanInstruction(0, 1, tape.Literal("s")))
	store.Handle(tape.FinishedSpanInstruction())
	store.Handle(tape.DeleteSpanInstruction(1))

	rec := &recordingMachine{}
	err := replay.Run(codec.NewLoad(&buf), rec)
	require.NoError(t, err)

	require.Len(t, rec.instrs, 4)
	assert.Equal(t, tape.IDRestart, rec.instrs[0].ID)
	assert.Equal(t, tape.IDNewSpan, rec.instrs[1].ID)
	assert.Equal(t, tape.IDFinishedSpan, rec.instrs[2].ID)
	assert.Equal(t, tape.IDDeleteSpan, rec.instrs[3].ID)
}

func TestRunResyncsPastGarbageBetweenTapes(t *testing.T) {
	var first, second bytes.Buffer

	storeFirst := codec.NewStore(&first)
	storeFirst.Handle(tape.Restart())
	storeFirst.Handle(tape.NewSpanInstruction(0, 1, tape.Literal("first")))
	storeFirst.Handle(tape.FinishedSpanInstruction())

	storeSecond := codec.NewStore(&second)
	storeSecond.Handle(tape.Restart())
	storeSecond.Handle(tape.NewSpanInstruction(0, 2, tape.Literal("second")))
	storeSecond.Handle(tape.FinishedSpanInstruction())

	var combined bytes.Buffer
	combined.Write(first.Bytes())
	combined.Write([]byte{0xc1, 0xc1, 0xc1}) // garbage: not a valid opcode byte
	combined.Write(second.Bytes())

	rec := &recordingMachine{}
	err := replay.Run(codec.NewLoad(&combined), rec)
	require.NoError(t, err)

	// Both Restarts forward (the first tape's, and the resynchronized one
	// from Resync); the garbage bytes produce no instruction at all.
	var spanNames []tape.SpanID
	for _, instr := range rec.instrs {
		if instr.ID == tape.IDNewSpan {
			spanNames = append(spanNames, instr.Span)
		}
	}
	assert.Equal(t, []tape.SpanID{1, 2}, spanNames)
}

func TestRunCleanEOFOnEmptyInput(t *testing.T) {
	rec := &recordingMachine{}
	err := replay.Run(codec.NewLoad(&bytes.Buffer{}), rec)
	require.NoError(t, err)
	assert.Empty(t, rec.instrs)
}
