package network

import (
	"errors"
	"strconv"
)

// Error kinds from §7. Packages that produce a more specific condition wrap
// one of these with fmt.Errorf("...: %w", ...) so callers can classify with
// errors.Is regardless of which layer raised it.
var (
	ErrTransportClosed     = errors.New("transport closed")
	ErrAuthenticationFailed = errors.New("authentication failure")
	ErrPeerIDMismatch      = errors.New("peer id mismatch")
	ErrMalformed           = errors.New("malformed frame or message")
	ErrNegotiationFailed   = errors.New("protocol negotiation failed")
	ErrIdentifyTimeout     = errors.New("identify did not complete before deadline")
	ErrResourceExhausted   = errors.New("resource scope reservation denied")
	ErrCancelled           = errors.New("operation cancelled")
	ErrSelfDial            = errors.New("dial to self attempted")
	ErrNoAddresses         = errors.New("no addresses available to dial")
	ErrNoGoodAddresses     = errors.New("no addresses survived capability/dedup filtering")
	ErrConnClosed          = errors.New("connection closed")
)

// DialError collates the per-address reasons for a failed dial (§4.4 step 8,
// §7 DialFailed).
type DialError struct {
	Peer     string
	Attempts []DialAttemptError
}

// DialAttemptError is one candidate address's failure reason.
type DialAttemptError struct {
	Address string
	Err     error
}

func (e *DialError) Error() string {
	if len(e.Attempts) == 0 {
		return "dial to " + e.Peer + " failed: no addresses"
	}
	msg := "dial to " + e.Peer + " failed with " + strconv.Itoa(len(e.Attempts)) + " errors:"
	for _, a := range e.Attempts {
		msg += "\n  * [" + a.Address + "] " + a.Err.Error()
	}
	return msg
}

func (e *DialError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}
