package tape

import "errors"

// Sentinel errors from spec.md §7. Decoders wrap these with fmt.Errorf so
// errors.Is still matches while callers get a specific, contextual message.
var (
	// ErrBadOpcode is returned for an unknown opcode byte during decode.
	ErrBadOpcode = errors.New("tape: bad opcode")
	// ErrUnexpectedMarker is returned when a MessagePack marker appears where
	// none of the accepted markers for the current field is valid.
	ErrUnexpectedMarker = errors.New("tape: unexpected msgpack marker")
	// ErrZeroSpan is returned when a span id decodes to 0 where a nonzero id
	// is required.
	ErrZeroSpan = errors.New("tape: span id must not be zero")
	// ErrUnexpectedCached is returned when a cache-reference appears that
	// cannot be resolved: codec.Load returns it for a cache index that no
	// NewString since the last Restart has declared.
	ErrUnexpectedCached = errors.New("tape: cached string in uncached stream")
	// ErrTruncatedInput is returned on EOF in the middle of a record.
	ErrTruncatedInput = errors.New("tape: truncated input")
)
