package enums

import (
	"fmt"
	"slices"
)

// QuoteRequestState tracks a quote request from broadcast to closure.
type QuoteRequestState string

const (
	QuoteRequestStateOpen    QuoteRequestState = "open"
	QuoteRequestStateClosed  QuoteRequestState = "closed"
	QuoteRequestStateExpired QuoteRequestState = "expired"
)

var validQuoteRequestStates = []QuoteRequestState{
	QuoteRequestStateOpen,
	QuoteRequestStateClosed,
	QuoteRequestStateExpired,
}

// String implements fmt.Stringer.
func (s QuoteRequestState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known QuoteRequestState.
func (s QuoteRequestState) IsValid() bool {
	return slices.Contains(validQuoteRequestStates, s)
}

// ParseQuoteRequestState converts raw input into a QuoteRequestState.
func ParseQuoteRequestState(value string) (QuoteRequestState, error) {
	return parse("quote request state", validQuoteRequestStates, value)
}

// CloseReason records which actor won the race to close a request.
type CloseReason string

const (
	CloseReasonAccepted CloseReason = "accepted"
	CloseReasonExpired  CloseReason = "expired"
)

// TerminalState maps a close reason onto the request state it produces.
func (r CloseReason) TerminalState() (QuoteRequestState, error) {
	switch r {
	case CloseReasonAccepted:
		return QuoteRequestStateClosed, nil
	case CloseReasonExpired:
		return QuoteRequestStateExpired, nil
	default:
		return "", fmt.Errorf("invalid close reason %q", r)
	}
}

// ParseCloseReason converts raw input into a CloseReason.
func ParseCloseReason(value string) (CloseReason, error) {
	return parse("close reason", []CloseReason{CloseReasonAccepted, CloseReasonExpired}, value)
}
