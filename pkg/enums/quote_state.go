package enums

import "slices"

// QuoteState is the lifecycle of a provider's delivery quote.
type QuoteState string

const (
	QuoteStatePending  QuoteState = "pending"
	QuoteStateAccepted QuoteState = "accepted"
	QuoteStateRejected QuoteState = "rejected"
	QuoteStateExpired  QuoteState = "expired"
)

var validQuoteStates = []QuoteState{
	QuoteStatePending,
	QuoteStateAccepted,
	QuoteStateRejected,
	QuoteStateExpired,
}

// String implements fmt.Stringer.
func (s QuoteState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known QuoteState.
func (s QuoteState) IsValid() bool {
	return slices.Contains(validQuoteStates, s)
}

// IsTerminal reports whether no further transitions are possible.
func (s QuoteState) IsTerminal() bool {
	return s != QuoteStatePending
}

// ParseQuoteState converts raw input into a QuoteState.
func ParseQuoteState(value string) (QuoteState, error) {
	return parse("quote state", validQuoteStates, value)
}
