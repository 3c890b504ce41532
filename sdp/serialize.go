package sdp

import (
	"strconv"
	"strings"
)

// String serializes the session in the fixed RFC 4566 field order: v, o, s,
// (c), (b*), t, (a*), then per media block m, (c), (b*), (a*) (§4.3). A
// trailing CRLF is always present.
func (s *Session) String() string {
	var b strings.Builder

	b.WriteString("v=")
	b.WriteString(strconv.Itoa(s.Version))
	b.WriteString("\r\n")

	b.WriteString("o=")
	b.WriteString(s.Origin.String())
	b.WriteString("\r\n")

	b.WriteString("s=")
	if s.Name == "" {
		b.WriteString("-")
	} else {
		b.WriteString(s.Name)
	}
	b.WriteString("\r\n")

	if s.Connection != nil {
		b.WriteString("c=")
		b.WriteString(s.Connection.String())
		b.WriteString("\r\n")
	}

	for _, bw := range s.Bandwidth {
		b.WriteString("b=")
		b.WriteString(bw.String())
		b.WriteString("\r\n")
	}

	b.WriteString("t=")
	if s.Timing == "" {
		b.WriteString("0 0")
	} else {
		b.WriteString(s.Timing)
	}
	b.WriteString("\r\n")

	writeAttributes(&b, s.Attributes)

	for _, m := range s.Media {
		writeMedia(&b, &m)
	}

	return b.String()
}

func writeAttributes(b *strings.Builder, attrs *Attributes) {
	if attrs == nil {
		return
	}
	for _, key := range attrs.Keys() {
		for _, val := range attrs.All(key) {
			b.WriteString("a=")
			b.WriteString(key)
			if val != "" {
				b.WriteString(":")
				b.WriteString(val)
			}
			b.WriteString("\r\n")
		}
	}
}

func writeMedia(b *strings.Builder, m *MediaDescription) {
	b.WriteString("m=")
	b.WriteString(m.Media)
	b.WriteString(" ")
	b.WriteString(strconv.Itoa(m.Port))
	if m.NumPorts > 0 {
		b.WriteString("/")
		b.WriteString(strconv.Itoa(m.NumPorts))
	}
	b.WriteString(" ")
	b.WriteString(m.Proto)
	for _, f := range m.Formats {
		b.WriteString(" ")
		b.WriteString(f)
	}
	b.WriteString("\r\n")

	if m.Connection != nil {
		b.WriteString("c=")
		b.WriteString(m.Connection.String())
		b.WriteString("\r\n")
	}

	for _, bw := range m.Bandwidth {
		b.WriteString("b=")
		b.WriteString(bw.String())
		b.WriteString("\r\n")
	}

	writeAttributes(b, m.Attributes)
}

// Bytes is a convenience wrapper for callers that want a raw SDP body.
func (s *Session) Bytes() []byte {
	return []byte(s.String())
}
