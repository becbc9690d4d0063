// Command tapegen is a thin wiring binary that installs a tapelog logger
// and drives it through a handful of nested spans and events, exercising
// the producer-facing API end to end. It intentionally does not reproduce
// the original demo's indefinite spam-generation loop (out of scope per
// spec.md §1) — just enough traffic to prove the pipeline, one pass.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/andrepuel/tapelog/logger"
	"github.com/andrepuel/tapelog/tape"
)

func main() {
	var rotateMaxLen int64
	for _, arg := range os.Args[1:] {
		maxLen, err := strconv.ParseInt(arg, 10, 64)
		if err == nil {
			rotateMaxLen = maxLen
			continue
		}
		if err := run(arg, rotateMaxLen); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Fprintln(os.Stderr, "usage: tapegen [max-rotate-bytes] <path>")
	os.Exit(2)
}

func run(path string, rotateMaxLen int64) error {
	var (
		l   *logger.Logger
		err error
	)
	if rotateMaxLen > 0 {
		l, err = logger.InstallRotating(path, rotateMaxLen, logger.WithStderr(true))
	} else {
		f, ferr := os.Create(path)
		if ferr != nil {
			return ferr
		}
		l, err = logger.Install(f, logger.WithStderr(true))
	}
	if err != nil {
		return err
	}
	defer l.Close()

	recurse(l, 1, 3, 0)
	return nil
}

// recurse opens a span per level, emits an event on the way in, records one
// attribute late and emits a second event on the way back out, then closes
// the span — the same shape as the
// original's demo recursion, minus its infinite outer spam loop.
func recurse(l *logger.Logger, span tape.SpanID, level, parent tape.SpanID) {
	l.OnSpanOpen(span, parent, "recursing", []tape.FieldValue{
		logger.IntegerField("level", int64(level)),
	})
	l.OnEvent(span, "tapegen", tape.PriorityInfo, time.Now(), []tape.FieldValue{
		logger.DebugField("message", "enter"),
	})

	if level > 0 {
		recurse(l, span+1, level-1, span)
	}

	l.OnSpanRecord(span, []tape.FieldValue{
		logger.StringField("level", "done"),
	})
	l.OnEvent(span, "tapegen", tape.PriorityInfo, time.Now(), []tape.FieldValue{
		logger.DebugField("message", "leave"),
	})
	l.OnSpanClose(span)
}
