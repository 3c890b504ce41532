package sdp

import (
	"strconv"
	"strings"
)

// Parse parses a full SDP body. It is line-oriented and tolerant: a line
// whose letter is not a recognized session/media type is ignored outright,
// and a b= line at either scope never fails the parse (§4.3).
func Parse(data []byte) (*Session, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	s := &Session{Attributes: newAttributes()}
	var cur *MediaDescription

	commit := func() {
		if cur != nil {
			populateCodecs(cur)
			s.Media = append(s.Media, *cur)
		}
	}

	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		if line == "" {
			continue
		}
		if len(line) < 2 || line[1] != '=' {
			continue
		}
		letter := line[0]
		value := line[2:]

		switch letter {
		case 'v':
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				s.Version = n
			}
		case 'o':
			s.Origin = parseOrigin(value)
		case 's':
			s.Name = value
		case 'c':
			conn := parseConnection(value)
			if cur != nil {
				cur.Connection = conn
			} else {
				s.Connection = conn
			}
		case 'b':
			bw, ok := parseBandwidth(value)
			if !ok {
				continue
			}
			if cur != nil {
				cur.Bandwidth = append(cur.Bandwidth, bw)
			} else {
				s.Bandwidth = append(s.Bandwidth, bw)
			}
		case 't':
			s.Timing = value
		case 'a':
			addAttribute(attrsOf(s, cur), value)
		case 'm':
			commit()
			cur = parseMediaLine(value)
		default:
			// Unrecognized session/media letter: ignored per §4.3.
		}
	}
	commit()

	return s, nil
}

func attrsOf(s *Session, m *MediaDescription) *Attributes {
	if m != nil {
		return m.Attributes
	}
	return s.Attributes
}

func addAttribute(attrs *Attributes, value string) {
	key, val, hasVal := strings.Cut(value, ":")
	if !hasVal {
		attrs.Add(value, "")
		return
	}
	attrs.Add(key, val)
}

func parseOrigin(value string) Origin {
	f := strings.Fields(value)
	o := Origin{}
	if len(f) > 0 {
		o.Username = f[0]
	}
	if len(f) > 1 {
		o.SessionID = f[1]
	}
	if len(f) > 2 {
		o.SessionVersion = f[2]
	}
	if len(f) > 3 {
		o.NetType = f[3]
	}
	if len(f) > 4 {
		o.AddrType = f[4]
	}
	if len(f) > 5 {
		o.Address = f[5]
	}
	return o
}

func parseConnection(value string) *Connection {
	f := strings.Fields(value)
	c := &Connection{}
	if len(f) > 0 {
		c.NetType = f[0]
	}
	if len(f) > 1 {
		c.AddrType = f[1]
	}
	if len(f) > 2 {
		c.Address = f[2]
	}
	return c
}

func parseBandwidth(value string) (Bandwidth, bool) {
	typ, numStr, ok := strings.Cut(value, ":")
	if !ok {
		return Bandwidth{}, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(numStr))
	if err != nil {
		return Bandwidth{}, false
	}
	return Bandwidth{Type: strings.TrimSpace(typ), Value: n}, true
}

func parseMediaLine(value string) *MediaDescription {
	f := strings.Fields(value)
	m := &MediaDescription{Attributes: newAttributes()}
	if len(f) > 0 {
		m.Media = f[0]
	}
	if len(f) > 1 {
		portField := f[1]
		if slash := strings.IndexByte(portField, '/'); slash >= 0 {
			if p, err := strconv.Atoi(portField[:slash]); err == nil {
				m.Port = p
			}
			if n, err := strconv.Atoi(portField[slash+1:]); err == nil {
				m.NumPorts = n
			}
		} else if p, err := strconv.Atoi(portField); err == nil {
			m.Port = p
		}
	}
	if len(f) > 2 {
		m.Proto = f[2]
	}
	if len(f) > 3 {
		m.Formats = f[3:]
	}
	return m
}

// populateCodecs builds the derived, ordered Codec list for a committed
// media block: rtpmap/fmtp for each numeric format, falling back to the
// static table, else a PT-only Codec (§4.3 codec extraction).
func populateCodecs(m *MediaDescription) {
	rtpmaps := parseRtpmaps(m.Attributes)
	fmtps := parseFmtps(m.Attributes)

	for _, tok := range m.Formats {
		n, err := strconv.ParseUint(tok, 10, 8)
		if err != nil {
			continue
		}
		pt := uint8(n)

		codec := Codec{PayloadType: pt}
		if rm, ok := rtpmaps[pt]; ok {
			codec.Name = rm.Name
			codec.ClockRate = rm.ClockRate
			codec.Channels = rm.Channels
		} else if static, ok := StaticCodecTable[pt]; ok {
			codec.Name = static.Name
			codec.ClockRate = static.ClockRate
			codec.Channels = static.Channels
		}
		if fmtp, ok := fmtps[pt]; ok {
			codec.Fmtp = fmtp
		}
		m.Codecs = append(m.Codecs, codec)
	}
}

type rtpmapInfo struct {
	Name      string
	ClockRate uint32
	Channels  int
}

// parseRtpmaps parses every "a=rtpmap:<pt> ENC/RATE[/CHANNELS]" attribute.
func parseRtpmaps(attrs *Attributes) map[uint8]rtpmapInfo {
	out := make(map[uint8]rtpmapInfo)
	for _, v := range attrs.All("rtpmap") {
		ptStr, rest, ok := strings.Cut(v, " ")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(ptStr), 10, 8)
		if err != nil {
			continue
		}
		parts := strings.Split(strings.TrimSpace(rest), "/")
		info := rtpmapInfo{}
		if len(parts) > 0 {
			info.Name = parts[0]
		}
		if len(parts) > 1 {
			if rate, err := strconv.ParseUint(parts[1], 10, 32); err == nil {
				info.ClockRate = uint32(rate)
			}
		}
		if len(parts) > 2 {
			if ch, err := strconv.Atoi(parts[2]); err == nil {
				info.Channels = ch
			}
		}
		out[uint8(n)] = info
	}
	return out
}

// parseFmtps parses every "a=fmtp:<pt> <rest>" attribute into pt -> rest.
func parseFmtps(attrs *Attributes) map[uint8]string {
	out := make(map[uint8]string)
	for _, v := range attrs.All("fmtp") {
		ptStr, rest, ok := strings.Cut(v, " ")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(ptStr), 10, 8)
		if err != nil {
			continue
		}
		out[uint8(n)] = strings.TrimSpace(rest)
	}
	return out
}
