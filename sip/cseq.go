package sip

import (
	"strconv"
	"strings"
)

// CSeq is a (sequence number, method) pair (RFC 3261 §20.16).
type CSeq struct {
	Seq    uint32
	Method RequestMethod
}

func (c *CSeq) String() string {
	return strconv.FormatUint(uint64(c.Seq), 10) + " " + string(c.Method)
}

// ParseCSeq splits "314159 INVITE" into its number and method.
func ParseCSeq(s string) (*CSeq, error) {
	s = strings.TrimSpace(s)
	numStr, method, ok := strings.Cut(s, " ")
	if !ok {
		// Tolerate extra whitespace runs between the two tokens.
		fields := strings.Fields(s)
		if len(fields) != 2 {
			return nil, &ParseError{Context: "cseq", Reason: "expected \"<seq> <method>\"", Input: s}
		}
		numStr, method = fields[0], fields[1]
	}
	method = strings.TrimSpace(method)
	n, err := strconv.ParseUint(strings.TrimSpace(numStr), 10, 32)
	if err != nil {
		return nil, &ParseError{Context: "cseq", Reason: "malformed sequence integer", Input: s}
	}
	return &CSeq{Seq: uint32(n), Method: RequestMethod(method)}, nil
}
