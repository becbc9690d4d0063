package stringcache

import "github.com/andrepuel/tapelog/tape"

// Restartable remembers every span still open (NewSpan seen, FinishedSpan
// seen, but no DeleteSpan yet) so that a Restart can replay them as a fresh
// NewSpan/AddValue*/FinishedSpan sequence, making a rotated file
// self-contained without reopening the old one. It sits upstream of Cache
// in the write chain, so everything it buffers and replays is still in
// literal form; caching the replay is Cache's job for the new file segment.
type Restartable struct {
	forward tape.Machine
	spans   map[tape.SpanID]tape.SpanRecords
	current *openSpan
}

type openSpan struct {
	id      tape.SpanID
	records tape.SpanRecords
}

// NewRestartable wraps forward, tracking live spans for restart replay.
func NewRestartable(forward tape.Machine) *Restartable {
	return &Restartable{forward: forward, spans: map[tape.SpanID]tape.SpanRecords{}}
}

func (r *Restartable) NeedsRestart() bool { return r.forward.NeedsRestart() }

func (r *Restartable) Handle(instr tape.Instruction) {
	switch instr.ID {
	case tape.IDRestart:
		r.forward.Handle(instr)
		for span, records := range r.spans {
			r.forward.Handle(tape.NewSpanInstruction(records.Parent, span, records.Name))
			for _, field := range records.Records {
				r.forward.Handle(tape.AddValueInstruction(field))
			}
			r.forward.Handle(tape.FinishedSpanInstruction())
		}
		return
	case tape.IDNewSpan:
		if r.current != nil {
			panic("stringcache: NewSpan while another span record is open")
		}
		r.current = &openSpan{
			id:      instr.Span,
			records: tape.SpanRecords{Parent: instr.Parent, Name: instr.Name},
		}
	case tape.IDFinishedSpan:
		r.commitCurrent()
	case tape.IDNewRecord:
		if r.current != nil {
			panic("stringcache: NewRecord while another span record is open")
		}
		records, ok := r.spans[instr.Span]
		if ok {
			delete(r.spans, instr.Span)
		}
		r.current = &openSpan{id: instr.Span, records: records}
	case tape.IDFinishedRecord:
		r.commitCurrent()
	case tape.IDAddValue:
		if r.current != nil {
			r.current.records.Records = append(r.current.records.Records, instr.Field)
		}
	case tape.IDDeleteSpan:
		delete(r.spans, instr.Span)
	}
	r.forward.Handle(instr)
}

func (r *Restartable) commitCurrent() {
	if r.current == nil {
		panic("stringcache: FinishedSpan/FinishedRecord without an open span")
	}
	r.spans[r.current.id] = r.current.records
	r.current = nil
}
