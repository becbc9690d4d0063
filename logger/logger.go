// Package logger bridges the tracing front-end's producer surface (span
// open/record/close, event) into the tape machine instruction stream,
// serializing every call through a single mutex as spec.md §5 requires:
// the whole downstream chain is walked while the caller's goroutine holds
// the lock, so there is never more than one writer in flight.
package logger

import (
	"time"

	"github.com/andrepuel/tapelog/tape"

	"sync"
)

// Logger is the producer-facing front end: OnSpanOpen, OnSpanRecord, OnEvent
// and OnSpanClose are the four operations spec.md §6.2 exposes to whatever
// instrumentation front-end drives this pipeline.
type Logger struct {
	mu      sync.Mutex
	machine tape.Machine
	closer  interface{ Close() error }
}

// New wraps machine, emitting an initial Restart so any downstream replay
// (stringcache.Restartable) has a clean boundary to hang re-announced spans
// off of, even before the first real event.
func New(machine tape.Machine) *Logger {
	l := &Logger{machine: machine}
	l.machine.Handle(tape.Restart())
	return l
}

// OnSpanOpen emits NewSpan, one AddValue per initial attribute, then
// FinishedSpan.
func (l *Logger) OnSpanOpen(span, parent tape.SpanID, name string, attrs []tape.FieldValue) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeRestart()
	l.machine.Handle(tape.NewSpanInstruction(parent, span, tape.Literal(name)))
	for _, attr := range attrs {
		l.machine.Handle(tape.AddValueInstruction(attr))
	}
	l.machine.Handle(tape.FinishedSpanInstruction())
}

// OnSpanRecord emits NewRecord(span), one AddValue per attribute, then
// FinishedRecord — the late-record, open-close-reopen pattern of spec.md §3.
func (l *Logger) OnSpanRecord(span tape.SpanID, attrs []tape.FieldValue) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeRestart()
	l.machine.Handle(tape.NewRecordInstruction(span))
	for _, attr := range attrs {
		l.machine.Handle(tape.AddValueInstruction(attr))
	}
	l.machine.Handle(tape.FinishedRecordInstruction())
}

// OnEvent emits StartEvent, one AddValue per attribute, then FinishedEvent.
// span may be zero for an event with no parent.
func (l *Logger) OnEvent(span tape.SpanID, target string, priority tape.Priority, when time.Time, attrs []tape.FieldValue) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeRestart()
	l.machine.Handle(tape.StartEventInstruction(when, span, tape.Literal(target), priority))
	for _, attr := range attrs {
		l.machine.Handle(tape.AddValueInstruction(attr))
	}
	l.machine.Handle(tape.FinishedEventInstruction())
}

// OnSpanClose emits DeleteSpan(span). It is a single instruction, not a
// batch, so unlike the other three operations it does not itself trigger a
// restart check.
func (l *Logger) OnSpanClose(span tape.SpanID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.machine.Handle(tape.DeleteSpanInstruction(span))
}

// maybeRestart asks the downstream chain whether a Restart should precede
// the batch about to be emitted, per spec.md §4.2. Must be called with mu
// held.
func (l *Logger) maybeRestart() {
	if l.machine.NeedsRestart() {
		l.machine.Handle(tape.Restart())
	}
}

// Close flushes and releases the underlying sink, when the installed chain
// has one (InstallRotating's file handle; Install's caller-owned io.Writer
// does not). The original CLI never shut its logger down explicitly; a
// long-lived service embedding this one needs a graceful-shutdown hook.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
