package sip

import (
	"io"
	"strconv"
	"strings"
)

// Auth holds a parsed WWW-Authenticate/Authorization-style header: a scheme
// token followed by comma-separated key=value pairs (RFC 3261 §20.7/§20.27).
type Auth struct {
	Scheme string
	Params Params
}

// quotedAuthParams marks the Digest parameters that are always rendered with
// quotes on emit, even when their value is all digits or a boolean.
var quotedAuthParams = map[string]bool{
	"realm": true, "nonce": true, "uri": true, "username": true,
	"cnonce": true, "opaque": true, "qop": false, "response": true,
}

func (a *Auth) String() string {
	var b strings.Builder
	a.StringWrite(&b)
	return b.String()
}

func (a *Auth) StringWrite(w io.StringWriter) {
	w.WriteString(a.Scheme)
	w.WriteString(" ")
	for i, kv := range a.Params {
		if i > 0 {
			w.WriteString(", ")
		}
		w.WriteString(kv.K)
		w.WriteString("=")
		if needsAuthQuote(kv.K, kv.V) {
			w.WriteString("\"")
			w.WriteString(kv.V)
			w.WriteString("\"")
		} else {
			w.WriteString(kv.V)
		}
	}
}

// needsAuthQuote reports whether a Digest-style auth param value should be
// wrapped in quotes on emit: everything except pure-digit integers (nc,
// stale) and boolean-looking tokens (stale=true) is quoted.
func needsAuthQuote(key, val string) bool {
	if quotedAuthParams[key] {
		return true
	}
	if _, err := strconv.ParseUint(val, 10, 64); err == nil {
		return false
	}
	if val == "true" || val == "false" {
		return false
	}
	return true
}

// ParseAuth parses a Digest-style auth header: "Digest key1=\"v1\", key2=v2".
// isCredentials is accepted for symmetry with the spec's parseAuth(s,
// isCredentials) signature; both Authorization and WWW-Authenticate share
// the same grammar so no branching on it is currently required.
func ParseAuth(s string, isCredentials bool) (*Auth, error) {
	_ = isCredentials
	s = strings.TrimSpace(s)
	schemeEnd := strings.IndexByte(s, ' ')
	if schemeEnd < 0 {
		return nil, &ParseError{Context: "auth", Reason: "missing scheme", Input: s}
	}
	scheme := s[:schemeEnd]
	rest := strings.TrimSpace(s[schemeEnd+1:])

	params := NewParams()
	for _, part := range splitUnquoted(rest, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			params.Add(strings.TrimSpace(part), "")
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
			v = v[1 : len(v)-1]
		}
		params.Add(k, v)
	}

	return &Auth{Scheme: scheme, Params: params}, nil
}
