package sip

import "fmt"

// ParseError is returned whenever the message grammar itself cannot be
// recovered from: an unparseable start line, or a malformed CSeq integer.
// Everything else the codec tolerates and stores as a raw value (§7).
type ParseError struct {
	Context string // which grammar production failed, e.g. "start-line", "cseq"
	Reason  string
	Input   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sip: parse error in %s: %s (input: %q)", e.Context, e.Reason, e.Input)
}
