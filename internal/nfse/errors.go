package nfse

import (
	"errors"
	"fmt"
)

// ErrUpstream marks every failure originating at the tax authority boundary:
// transport errors, non-success responses, malformed envelopes and
// authority-reported error text. Callers match it with errors.Is to map the
// failure to an upstream-failure response without touching local state.
var ErrUpstream = errors.New("tax authority upstream failure")

func upstreamErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUpstream, fmt.Sprintf(format, args...))
}
