package sip

import (
	"bytes"
	"strconv"
	"strings"
)

// ParseMessage parses a complete SIP message: start-line, folded headers,
// and body (§4.2). The boundary between headers and body is the first empty
// line; both CRLF and bare-LF framing are tolerated.
func ParseMessage(data []byte) (any, error) {
	lines, body := splitHeaderSection(data)
	if len(lines) == 0 {
		return nil, &ParseError{Context: "start-line", Reason: "empty message", Input: ""}
	}

	startLine := lines[0]
	headerLines := unfold(lines[1:])

	if strings.HasPrefix(startLine, "SIP/") {
		resp, err := parseResponseStartLine(startLine)
		if err != nil {
			return nil, err
		}
		if err := parseHeadersInto(resp.Headers, headerLines); err != nil {
			return nil, err
		}
		resp.body = body
		return resp, nil
	}

	req, err := parseRequestStartLine(startLine)
	if err != nil {
		return nil, err
	}
	if err := parseHeadersInto(req.Headers, headerLines); err != nil {
		return nil, err
	}
	req.body = body
	return req, nil
}

// splitHeaderSection splits raw message bytes into individual un-folded
// header-section lines (start-line included) and the trailing body, cutting
// at the first blank line. Accepts CRLF or bare LF.
func splitHeaderSection(data []byte) ([]string, []byte) {
	normalized := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	sep := []byte("\n\n")
	idx := bytes.Index(normalized, sep)
	var headerPart string
	var body []byte
	if idx < 0 {
		headerPart = string(normalized)
		body = nil
	} else {
		headerPart = string(normalized[:idx])
		body = normalized[idx+2:]
	}

	raw := strings.Split(headerPart, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimRight(l, "\r"))
	}
	return lines, body
}

// unfold splices any continuation line starting with SP/HTAB onto the
// previous header with a single space separator (RFC 3261 §7.3.1).
func unfold(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if (strings.HasPrefix(l, " ") || strings.HasPrefix(l, "\t")) && len(out) > 0 {
			out[len(out)-1] = out[len(out)-1] + " " + strings.TrimLeft(l, " \t")
			continue
		}
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

func parseRequestStartLine(line string) (*Request, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil, &ParseError{Context: "start-line", Reason: "malformed request line", Input: line}
	}
	uri, err := ParseURI(fields[1])
	if err != nil {
		return nil, err
	}
	req := NewRequest(RequestMethod(fields[0]), uri)
	req.SipVersion = fields[2]
	return req, nil
}

func parseResponseStartLine(line string) (*Response, error) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 2 {
		return nil, &ParseError{Context: "start-line", Reason: "malformed status line", Input: line}
	}
	code, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return nil, &ParseError{Context: "start-line", Reason: "malformed status code", Input: line}
	}
	reason := ""
	if len(fields) == 3 {
		reason = fields[2]
	}
	resp := NewResponse(code, reason)
	resp.SipVersion = fields[0]
	return resp, nil
}

// parseHeadersInto appends each header line to h, expanding compact names,
// and fanning a multi-value header's comma-joined value out into one append
// per value so Headers.Values/StringWrite round-trips it (§4.2).
func parseHeadersInto(h *Headers, lines []string) error {
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		full := ExpandCompact(name)

		if multiValueHeaders[full] {
			for _, part := range splitUnquoted(value, ',') {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				h.Append(name, part)
			}
			continue
		}
		h.Append(name, value)
	}
	return nil
}

// CopyHeaders copies every occurrence of name from src to dst, in order.
func CopyHeaders(name string, src, dst *Message) {
	for _, v := range src.Headers.Values(name) {
		dst.Headers.Append(name, v)
	}
}
