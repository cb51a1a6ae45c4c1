package rlc

import "errors"

// Sentinel errors, one per error kind described in the error handling
// design: resource exhaustion, malformed PDU, protocol violation by peer,
// window violation, and upper-layer misuse. Callers should compare with
// errors.Is; wrapped errors (MaxRetxAbort) carry additional context.
var (
	ErrPoolExhausted     = errors.New("rlc: record pool exhausted")
	ErrMalformedPDU      = errors.New("rlc: malformed PDU")
	ErrProtocolViolation = errors.New("rlc: protocol violation by peer")
	ErrWindowViolation   = errors.New("rlc: SN outside receive/transmit window")
	ErrInvalidArgument   = errors.New("rlc: invalid argument")
	ErrTxWindowFull      = errors.New("rlc: transmit window full")
	ErrNoData            = errors.New("rlc: nothing to send")
	ErrBudgetTooSmall    = errors.New("rlc: PDU budget too small for any output")
)

// MaxRetxAbort wraps the caller-supplied return code from a max-retx
// callback that requested the current PDU build be aborted.
type MaxRetxAbort struct {
	Code int
}

func (e *MaxRetxAbort) Error() string {
	return "rlc: max retransmission threshold exceeded, build aborted"
}
