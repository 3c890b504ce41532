package sip

import (
	"io"
	"slices"
	"strings"
)

// specials that force a param value to be quoted on emit.
const paramSpecials = " \t;,\"<>"

// KV is a single ordered key-value pair used for URI and header parameters.
type KV struct {
	K string
	V string
}

// Params is an ordered list of key-value pairs. Unlike a map it preserves
// insertion order and allows a bare key with no value (e.g. ";lr").
type Params []KV

// NewParams returns an empty parameter list with a small preallocation,
// matching the typical 1-4 param count seen on a Via or Route entry.
func NewParams() Params {
	return make(Params, 0, 4)
}

func (p Params) index(key string) int {
	for i, kv := range p {
		if kv.K == key {
			return i
		}
	}
	return -1
}

// Get returns the value for key and whether it was present at all.
func (p Params) Get(key string) (string, bool) {
	if i := p.index(key); i >= 0 {
		return p[i].V, true
	}
	return "", false
}

// GetOr returns the value for key, or def if key is absent.
func (p Params) GetOr(key, def string) string {
	if i := p.index(key); i >= 0 {
		return p[i].V
	}
	return def
}

// Has reports whether key is present, with or without a value.
func (p Params) Has(key string) bool {
	return p.index(key) >= 0
}

// Add sets key to val, overwriting an existing entry in place so that
// insertion order of first appearance is preserved.
func (p *Params) Add(key, val string) {
	if i := p.index(key); i >= 0 {
		(*p)[i].V = val
		return
	}
	*p = append(*p, KV{K: key, V: val})
}

// Remove deletes every entry for key.
func (p *Params) Remove(key string) {
	for {
		i := p.index(key)
		if i < 0 {
			return
		}
		*p = slices.Delete(*p, i, i+1)
	}
}

// Keys returns parameter keys in first-seen order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for _, kv := range p {
		if slices.Contains(keys, kv.K) {
			continue
		}
		keys = append(keys, kv.K)
	}
	return keys
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	return slices.Clone(p)
}

// Len returns the number of entries.
func (p Params) Len() int {
	return len(p)
}

// StringWrite renders the parameter list joined by sep, quoting any value
// that contains characters unsafe to carry unescaped.
func (p Params) StringWrite(sep byte, w io.StringWriter) {
	if len(p) == 0 {
		return
	}
	for i, kv := range p {
		if i > 0 {
			w.WriteString(string(sep))
		}
		w.WriteString(kv.K)
		if kv.V == "" {
			continue
		}
		if strings.ContainsAny(kv.V, paramSpecials) {
			w.WriteString("=\"")
			w.WriteString(kv.V)
			w.WriteString("\"")
			continue
		}
		w.WriteString("=")
		w.WriteString(kv.V)
	}
}

// String renders the parameter list joined by sep.
func (p Params) String(sep byte) string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	p.StringWrite(sep, &b)
	return b.String()
}

// ParseParams splits a ";"-joined (or "&"-joined for URI headers) parameter
// string into an ordered Params list. Keys are lowercased; values keep case.
// A bare token with no "=" becomes a flag param with an empty value.
func ParseParams(s string, sep byte) Params {
	params := NewParams()
	if s == "" {
		return params
	}
	for _, part := range splitUnquoted(s, sep) {
		if part == "" {
			continue
		}
		k, v, hasVal := strings.Cut(part, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		if hasVal {
			v = strings.TrimSpace(v)
			if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
				v = v[1 : len(v)-1]
			}
		}
		params.Add(k, v)
	}
	return params
}

// splitUnquoted splits s on sep, but never inside a "..." quoted span or a
// <...> bracketed span, matching the comma/semicolon nesting rule multi-value
// SIP headers require.
func splitUnquoted(s string, sep byte) []string {
	var parts []string
	var cur strings.Builder
	depthAngle := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == '<' && !inQuote:
			depthAngle++
			cur.WriteByte(c)
		case c == '>' && !inQuote && depthAngle > 0:
			depthAngle--
			cur.WriteByte(c)
		case c == sep && !inQuote && depthAngle == 0:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	parts = append(parts, cur.String())
	return parts
}
