// Package printer renders the read-side instruction stream as a
// human-readable, optionally colored line stream, mirroring the write
// side's span/event structure back into something a terminal can show.
package printer

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/vmihailenco/bufpool"

	"github.com/andrepuel/tapelog/tape"
)

// linePool supplies the scratch *bytes.Buffer each rendered line is
// assembled into before a single Write to the underlying io.Writer.
// bufpool.Pool is instance-based (unlike a package-level Get/Put), so one
// shared pool is enough for every Printer in the process.
var linePool = bufpool.New()

// Printer is a tape.Machine sink: it never forwards (NeedsRestart is always
// false) and instead accumulates span/event state to render one line per
// FinishedEvent.
//
// It keeps its own NewString table rather than relying on an upstream
// stringcache.Uncache, so it can be pointed directly at a cached-view
// stream as well as an already-uncached one — whichever the caller's read
// chain produces.
type Printer struct {
	out     io.Writer
	strings []string
	spans   map[tape.SpanID]spanRecords

	pendingSpan  *pendingSpan
	pendingEvent *pendingEvent

	dim, bold, italic                    *color.Color
	trace, debug, info, warn, errorColor *color.Color
}

type spanRecords struct {
	parent  tape.SpanID
	name    tape.CacheString
	records []tape.FieldValue
}

type pendingSpan struct {
	id      tape.SpanID
	records spanRecords
}

type pendingEvent struct {
	event tape.Instruction
	attrs []tape.FieldValue
}

// New creates a Printer writing rendered lines to out. When colorEnabled is
// false, no ANSI escape sequences are ever produced, regardless of the
// process-wide color.NoColor setting — each Printer carries its own
// color.Color instances with color forced on or off, so a colored and an
// uncolored Printer can coexist in the same process.
func New(out io.Writer, colorEnabled bool) *Printer {
	return &Printer{
		out:   out,
		spans: map[tape.SpanID]spanRecords{},

		dim:    newColor(colorEnabled, color.Faint),
		bold:   newColor(colorEnabled, color.Bold),
		italic: newColor(colorEnabled, color.Italic),

		trace:      newColor(colorEnabled, color.FgMagenta),
		debug:      newColor(colorEnabled, color.FgBlue),
		info:       newColor(colorEnabled, color.FgGreen),
		warn:       newColor(colorEnabled, color.FgYellow),
		errorColor: newColor(colorEnabled, color.FgRed),
	}
}

func newColor(enabled bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// NeedsRestart is always false: Printer is a terminal sink, never a
// restart-imposing one.
func (p *Printer) NeedsRestart() bool { return false }

// Handle advances the printer's span/event state machine and, on
// FinishedEvent, renders and flushes one line.
func (p *Printer) Handle(instr tape.Instruction) {
	switch instr.ID {
	case tape.IDNewString:
		p.strings = append(p.strings, instr.Literal)
	case tape.IDNewSpan:
		if p.pendingSpan != nil {
			panic("printer: NewSpan while another span record is open")
		}
		p.pendingSpan = &pendingSpan{
			id:      instr.Span,
			records: spanRecords{parent: instr.Parent, name: instr.Name},
		}
	case tape.IDFinishedSpan, tape.IDFinishedRecord:
		if p.pendingSpan == nil {
			panic("printer: FinishedSpan/FinishedRecord without an open span")
		}
		p.spans[p.pendingSpan.id] = p.pendingSpan.records
		p.pendingSpan = nil
	case tape.IDNewRecord:
		if p.pendingSpan != nil {
			panic("printer: NewRecord while another span record is open")
		}
		records, ok := p.spans[instr.Span]
		if !ok {
			records = spanRecords{name: tape.Literal(fmt.Sprintf("lost-span-%d", instr.Span))}
		} else {
			delete(p.spans, instr.Span)
		}
		p.pendingSpan = &pendingSpan{id: instr.Span, records: records}
	case tape.IDStartEvent:
		if p.pendingEvent != nil {
			panic("printer: StartEvent while another event is open")
		}
		p.pendingEvent = &pendingEvent{event: instr}
	case tape.IDFinishedEvent:
		if p.pendingEvent == nil {
			panic("printer: FinishedEvent without a StartEvent")
		}
		p.render(*p.pendingEvent)
		p.pendingEvent = nil
	case tape.IDAddValue:
		switch {
		case p.pendingSpan != nil && p.pendingEvent == nil:
			p.pendingSpan.records.records = append(p.pendingSpan.records.records, instr.Field)
		case p.pendingEvent != nil && p.pendingSpan == nil:
			p.pendingEvent.attrs = append(p.pendingEvent.attrs, instr.Field)
		default:
			panic("printer: AddValue with no span or event open")
		}
	case tape.IDDeleteSpan:
		delete(p.spans, instr.Span)
	case tape.IDRestart:
		// A Restart downstream of stringcache.Restartable/Uncache is always
		// followed by a full re-announcement of every live span, so the
		// accumulated span state here needs no clearing. The NewString
		// table is a different matter: cache indices are only meaningful
		// relative to the NewStrings seen since the last Restart (spec.md
		// §3 invariant 5), so a Printer fed directly off codec.Load with no
		// Uncache in front of it must reset its table here or it will
		// resolve a post-restart Cached(i) against a pre-restart string.
		p.strings = nil
	}
}

// render resolves the event's span chain, formats one line, and flushes it.
func (p *Printer) render(pe pendingEvent) {
	buf := linePool.Get()
	defer linePool.Put(buf)
	buf.Reset()

	ts := pe.event.Time.UTC().Format(time.RFC3339)
	buf.WriteString(p.dim.Sprint(ts))
	buf.WriteString(" ")
	buf.WriteString(p.priorityColor(pe.event.Priority).Sprint(paddedPriority(pe.event.Priority)))
	buf.WriteString(" ")

	if pe.event.Span != 0 {
		for _, sp := range p.spanChain(pe.event.Span) {
			buf.WriteString(p.bold.Sprint(p.resolve(sp.name)))
			buf.WriteString("{")
			for i, rec := range sp.records {
				if i > 0 {
					buf.WriteString(" ")
				}
				p.writeField(buf, rec)
			}
			buf.WriteString("}")
			buf.WriteString(p.dim.Sprint(":"))
		}
		buf.WriteString(" ")
	}

	buf.WriteString(p.resolve(pe.event.Target))
	buf.WriteString(p.dim.Sprint(":"))

	for _, rec := range pe.attrs {
		buf.WriteString(" ")
		name := p.resolve(rec.Name)
		if name == "message" && rec.Value.Kind == tape.ValueDebug {
			buf.WriteString(p.renderValue(rec.Value))
			continue
		}
		p.writeField(buf, rec)
	}
	buf.WriteString("\n")

	_, _ = p.out.Write(buf.Bytes())
}

func (p *Printer) writeField(buf *bytes.Buffer, rec tape.FieldValue) {
	buf.WriteString(p.italic.Sprint(p.resolve(rec.Name)))
	buf.WriteString("=")
	buf.WriteString(p.renderValue(rec.Value))
}

// renderedSpan is one entry of a resolved span chain (lost-span placeholders
// included). Its name and record names are still CacheStrings; render
// resolves them against the NewString table when it formats the line.
type renderedSpan struct {
	name    tape.CacheString
	records []tape.FieldValue
}

// spanChain walks parent pointers from span up to the root, returning the
// chain root-first. An id with no recorded state (tape truncation, or a
// DeleteSpan racing a still-open event per spec.md §9) is synthesized as a
// parentless "lost-span-{id}" placeholder instead of aborting the render.
func (p *Printer) spanChain(span tape.SpanID) []renderedSpan {
	var chain []renderedSpan
	for span != 0 {
		records, ok := p.spans[span]
		if !ok {
			chain = append(chain, renderedSpan{name: tape.Literal(fmt.Sprintf("lost-span-%d", span))})
			break
		}
		chain = append(chain, renderedSpan{name: records.name, records: records.records})
		span = records.parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func (p *Printer) renderValue(v tape.Value) string {
	switch v.Kind {
	case tape.ValueDebug:
		return p.resolve(v.Str)
	case tape.ValueString:
		return strconv.Quote(p.resolve(v.Str))
	case tape.ValueFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case tape.ValueInteger:
		return strconv.FormatInt(v.Int, 10)
	case tape.ValueUnsigned:
		return strconv.FormatUint(v.Uint, 10)
	case tape.ValueBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case tape.ValueBytes:
		return hex.EncodeToString(v.Bytes)
	default:
		return ""
	}
}

// resolve returns the literal a CacheString refers to, whether it's carried
// as a literal directly or as an index into strings observed via NewString.
func (p *Printer) resolve(cs tape.CacheString) string {
	if !cs.IsCached() {
		return cs.Str()
	}
	return p.strings[cs.Index()]
}

func (p *Printer) priorityColor(pr tape.Priority) *color.Color {
	switch pr {
	case tape.PriorityTrace:
		return p.trace
	case tape.PriorityDebug:
		return p.debug
	case tape.PriorityInfo:
		return p.info
	case tape.PriorityWarn:
		return p.warn
	default:
		return p.errorColor
	}
}

// paddedPriority right-aligns the priority label to 5 characters. TRACE,
// DEBUG and ERROR are already 5 characters; INFO and WARN get a leading
// space.
func paddedPriority(pr tape.Priority) string {
	s := pr.String()
	if n := 5 - len(s); n > 0 {
		return strings.Repeat(" ", n) + s
	}
	return s
}
