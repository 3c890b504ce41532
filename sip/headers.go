package sip

import (
	"io"
	"strings"
)

// headerEntry is one raw header line as stored in the multimap: Name is the
// canonical casing of the full header name, Value is the unparsed wire value.
type headerEntry struct {
	Name  string // canonical casing
	Value string
}

// Headers is a case-insensitive multi-map of SIP headers that preserves
// insertion order (§3, §9); every name is stored in the canonical casing
// PrettifyHeaderName gives it, whatever casing it arrived in.
// It is the generalization of the teacher's ordered headerOrder slice: where
// the teacher keyed that slice on typed Header structs, this keeps raw
// strings and exposes lazy structured accessors on top, since the wire
// format itself — not a fixed Go type per header — is the source of truth.
type Headers struct {
	order []headerEntry
}

// NewHeaders returns an empty header multimap with a capacity suited to a
// typical SIP message (around a dozen headers).
func NewHeaders() *Headers {
	return &Headers{order: make([]headerEntry, 0, 12)}
}

// Append adds a new header entry, preserving insertion order. If name is
// a compact token it is expanded first.
func (h *Headers) Append(name, value string) {
	full := ExpandCompact(name)
	// Store every occurrence under the canonical casing of the full name, so
	// "via", "VIA" and compact "v" all serialize as "Via" and are found
	// together by Values("via").
	h.order = append(h.order, headerEntry{Name: PrettifyHeaderName(full), Value: value})
}

// Set replaces every existing entry named name with a single entry holding
// value, preserving the position of the first prior occurrence if any.
func (h *Headers) Set(name, value string) {
	full := ExpandCompact(name)
	display := PrettifyHeaderName(full)
	idx := -1
	out := h.order[:0:0]
	for _, e := range h.order {
		if strings.ToLower(e.Name) == full {
			if idx < 0 {
				idx = len(out)
				out = append(out, headerEntry{Name: display, Value: value})
			}
			continue
		}
		out = append(out, e)
	}
	if idx < 0 {
		out = append(out, headerEntry{Name: display, Value: value})
	}
	h.order = out
}

func (h *Headers) has(lowerName string) bool {
	for _, e := range h.order {
		if strings.ToLower(e.Name) == lowerName {
			return true
		}
	}
	return false
}

// Values returns every raw value stored under name, in insertion order.
func (h *Headers) Values(name string) []string {
	full := ExpandCompact(name)
	var vals []string
	for _, e := range h.order {
		if strings.ToLower(e.Name) == full {
			vals = append(vals, e.Value)
		}
	}
	return vals
}

// First returns the first raw value stored under name, and whether it was
// present at all.
func (h *Headers) First(name string) (string, bool) {
	full := ExpandCompact(name)
	for _, e := range h.order {
		if strings.ToLower(e.Name) == full {
			return e.Value, true
		}
	}
	return "", false
}

// Remove deletes every entry named name.
func (h *Headers) Remove(name string) {
	full := ExpandCompact(name)
	out := h.order[:0:0]
	for _, e := range h.order {
		if strings.ToLower(e.Name) != full {
			out = append(out, e)
		}
	}
	h.order = out
}

// Names returns the distinct header names in first-seen order, in their
// canonical casing.
func (h *Headers) Names() []string {
	seen := make(map[string]bool, len(h.order))
	names := make([]string, 0, len(h.order))
	for _, e := range h.order {
		lower := strings.ToLower(e.Name)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		names = append(names, e.Name)
	}
	return names
}

// Clone returns an independent deep copy.
func (h *Headers) Clone() *Headers {
	c := &Headers{order: make([]headerEntry, len(h.order))}
	copy(c.order, h.order)
	return c
}

// StringWrite emits every header as "Name: value\r\n", in insertion order,
// splitting any multi-value header's Values back onto one "Name: v1, v2"
// line per RFC 3261 §7.3.
func (h *Headers) StringWrite(w io.StringWriter) {
	written := make(map[string]bool, len(h.order))
	for _, e := range h.order {
		lower := strings.ToLower(e.Name)
		if multiValueHeaders[lower] {
			if written[lower] {
				continue
			}
			written[lower] = true
			vals := h.Values(lower)
			w.WriteString(e.Name)
			w.WriteString(": ")
			for i, v := range vals {
				if i > 0 {
					w.WriteString(", ")
				}
				w.WriteString(v)
			}
			w.WriteString("\r\n")
			continue
		}
		w.WriteString(e.Name)
		w.WriteString(": ")
		w.WriteString(e.Value)
		w.WriteString("\r\n")
	}
}
