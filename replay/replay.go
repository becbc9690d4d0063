// Package replay implements the read-side driver: it iterates a codec.Load,
// forwarding every decoded instruction to a downstream tape.Machine, and
// resynchronizes past decode errors instead of aborting the whole tape.
package replay

import (
	"errors"
	"io"

	"github.com/andrepuel/tapelog/codec"
	internallog "github.com/andrepuel/tapelog/internal/log"
	"github.com/andrepuel/tapelog/tape"
)

// Run fetches one instruction at a time from load and forwards it to
// downstream. A decode error is logged and load is resynchronized to the
// next Restart opcode rather than terminating the loop. Run returns nil at
// EOF, and returns early with an error only when reading the input fails
// during that resync. This mirrors msgpack-tracing-printer's main loop: fetch, forward
// on success, diagnose and restart on error, break on EOF.
func Run(load *codec.Load, downstream tape.Machine) error {
	for {
		instr, err := load.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			internallog.Error("replay: decode error: %v", err)

			restart, err := load.Resync()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			downstream.Handle(restart)
			continue
		}
		downstream.Handle(instr)
	}
}
