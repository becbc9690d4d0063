package log

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLog(t *testing.T) {
	defer func(old Logger) { UseLogger(old) }(logger)
	rec := &RecordLogger{}
	UseLogger(rec)

	t.Run("Warn", func(t *testing.T) {
		rec.Reset()
		Warn("message %d", 1)
		assert.Equal(t, msg("WARN", "message 1"), rec.Lines()[0])
	})

	t.Run("Info", func(t *testing.T) {
		rec.Reset()
		Info("message %d", 2)
		assert.Equal(t, msg("INFO", "message 2"), rec.Lines()[0])
	})

	t.Run("Debug", func(t *testing.T) {
		rec.Reset()
		Debug("message %d", 3)
		assert.Equal(t, msg("DEBUG", "message 3"), rec.Lines()[0])
	})

	t.Run("Error", func(t *testing.T) {
		t.Run("auto", func(t *testing.T) {
			defer func(old time.Duration) { errrate = old }(errrate)
			// A long flush rate means messages sharing a format key are
			// suppressed until Flush is called explicitly.
			errrate = 10 * time.Hour

			rec.Reset()
			Error("a message %d", 1)
			Error("a message %d", 2)
			Error("a message %d", 3)
			Error("b message")

			Flush()
			assert.True(t, hasMsg("ERROR", "a message 1, 2 additional messages skipped", rec.Lines()), rec.Lines())
			assert.True(t, hasMsg("ERROR", "b message", rec.Lines()), rec.Lines())
			assert.Len(t, rec.Lines(), 2)
		})

		t.Run("flush", func(t *testing.T) {
			rec.Reset()
			Error("fourth message %d", 4)

			Flush()
			assert.True(t, hasMsg("ERROR", "fourth message 4", rec.Lines()), rec.Lines())
			assert.Len(t, rec.Lines(), 1)

			Flush()
			Flush()
			assert.Len(t, rec.Lines(), 1)
		})

		t.Run("limit", func(t *testing.T) {
			rec.Reset()
			for i := 0; i < defaultErrorLimit+1; i++ {
				Error("fifth message %d", i)
			}

			Flush()
			assert.True(t, hasMsg("ERROR", "fifth message 0, 200+ additional messages skipped", rec.Lines()), rec.Lines())
			assert.Len(t, rec.Lines(), 1)
		})

		t.Run("instant", func(t *testing.T) {
			rec.Reset()
			defer func(old time.Duration) { errrate = old }(errrate)
			SetErrorRate(0)

			Error("sixth message %d", 6)
			assert.True(t, hasMsg("ERROR", "sixth message 6", rec.Lines()), rec.Lines())
			assert.Len(t, rec.Lines(), 1)
		})
	})
}

func TestRecordLoggerIgnore(t *testing.T) {
	rec := new(RecordLogger)
	rec.Ignore("appsec")
	rec.Log("this is an appsec log")
	rec.Log("this is a tracer log")
	assert.Len(t, rec.Lines(), 1)
	assert.NotContains(t, rec.Lines()[0], "appsec")

	rec.Reset()
	rec.Log("this is an appsec log")
	assert.Len(t, rec.Lines(), 1)
	assert.Contains(t, rec.Lines()[0], "appsec")
}

func TestSetErrorRate(t *testing.T) {
	defer func(old time.Duration) { errrate = old }(errrate)
	SetErrorRate(10 * time.Second)
	assert.Equal(t, 10*time.Second, errrate)
	SetErrorRate(0)
	assert.Equal(t, time.Duration(0), errrate)
}

func TestUseLoggerRestoresPrevious(t *testing.T) {
	first := &RecordLogger{}
	second := &RecordLogger{}

	undoFirst := UseLogger(first)
	defer undoFirst()

	Info("one")
	undoSecond := UseLogger(second)
	Info("two")
	undoSecond()
	Info("three")

	assert.Equal(t, []string{msg("INFO", "one"), msg("INFO", "three")}, first.Lines())
	assert.Equal(t, []string{msg("INFO", "two")}, second.Lines())
}

func TestDiscardLogger(t *testing.T) {
	defer func(old Logger) { UseLogger(old) }(logger)
	UseLogger(DiscardLogger{})
	Info("swallowed")
}

func BenchmarkError(b *testing.B) {
	Error("k %s", "a") // warm up cache
	for i := 0; i < b.N; i++ {
		Error("k %s", "a")
	}
}

func BenchmarkLog(b *testing.B) {
	UseLogger(DiscardLogger{})
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Warn("test")
	}
}

func hasMsg(lvl, m string, lines []string) bool {
	for _, line := range lines {
		if strings.HasPrefix(line, msg(lvl, m)) {
			return true
		}
	}
	return false
}

func msg(lvl, m string) string {
	return fmt.Sprintf("%s %s: %s", prefixMsg, lvl, m)
}
