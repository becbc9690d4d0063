package codec

import (
	"fmt"

	"github.com/andrepuel/tapelog/tape"
)

func errUnexpectedMarkerByte(marker byte) error {
	return fmt.Errorf("%w: marker %#02x", tape.ErrUnexpectedMarker, marker)
}

func errZeroSpan() error {
	return fmt.Errorf("%w", tape.ErrZeroSpan)
}

func errUnexpectedCached() error {
	return fmt.Errorf("%w: cache index past the NewStrings seen since the last Restart", tape.ErrUnexpectedCached)
}

func errTruncated(cause error) error {
	return fmt.Errorf("%w: %v", tape.ErrTruncatedInput, cause)
}

func errUnexpectedOpcode(id tape.InstructionID) error {
	return fmt.Errorf("%w: opcode %#02x", tape.ErrBadOpcode, id.Byte())
}
