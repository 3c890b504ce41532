package sip

import "strings"

// canonicalNames maps a lower-cased header name to its canonical wire casing.
// Grounded on the fixed header-name table RFC 3261 implementations carry;
// anything missing here falls back to Title-Case.
var canonicalNames = map[string]string{
	"call-id":            "Call-ID",
	"cseq":                "CSeq",
	"www-authenticate":    "WWW-Authenticate",
	"mime-version":        "MIME-Version",
	"via":                 "Via",
	"from":                "From",
	"to":                  "To",
	"contact":             "Contact",
	"route":               "Route",
	"record-route":        "Record-Route",
	"path":                "Path",
	"content-length":      "Content-Length",
	"content-type":        "Content-Type",
	"max-forwards":        "Max-Forwards",
	"allow":               "Allow",
	"supported":           "Supported",
	"require":             "Require",
	"proxy-require":       "Proxy-Require",
	"unsupported":         "Unsupported",
	"accept":              "Accept",
	"accept-encoding":     "Accept-Encoding",
	"accept-language":     "Accept-Language",
	"warning":             "Warning",
	"user-agent":          "User-Agent",
	"server":              "Server",
	"proxy-authenticate":  "Proxy-Authenticate",
	"proxy-authorization": "Proxy-Authorization",
	"authorization":       "Authorization",
	"expires":             "Expires",
	"subject":             "Subject",
	"priority":            "Priority",
	"session-expires":     "Session-Expires",
}

// compactNames maps a single-letter compact header token (RFC 3261 §7.3.3)
// to its full lower-cased name.
var compactNames = map[string]string{
	"v": "via",
	"f": "from",
	"t": "to",
	"i": "call-id",
	"m": "contact",
	"l": "content-length",
	"c": "content-type",
	"e": "content-encoding",
	"s": "subject",
	"k": "supported",
}

// multiValueHeaders is the fixed set of headers MessageCodec splits on
// bracket/quote-aware top-level commas into several raw values sharing one
// name entry (§4.2).
var multiValueHeaders = map[string]bool{
	"via": true, "contact": true, "route": true, "record-route": true,
	"path": true, "allow": true, "supported": true, "require": true,
	"proxy-require": true, "unsupported": true, "accept": true,
	"accept-encoding": true, "accept-language": true, "warning": true,
}

// ExpandCompact resolves a possibly-compact header name to its full
// lower-cased form, case-insensitively.
func ExpandCompact(name string) string {
	lower := strings.ToLower(name)
	if len(lower) == 1 {
		if full, ok := compactNames[lower]; ok {
			return full
		}
	}
	return lower
}

// PrettifyHeaderName renders a lower-cased header name in its canonical wire
// casing, Title-Case'ing any name not in the fixed table.
func PrettifyHeaderName(lowerName string) string {
	if canon, ok := canonicalNames[lowerName]; ok {
		return canon
	}
	return titleCaseHyphenated(lowerName)
}

func titleCaseHyphenated(s string) string {
	parts := strings.Split(s, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "-")
}
