// Package sdp implements a carrier-grade-tolerant RFC 4566 SDP parser and
// serializer, plus codec extraction from rtpmap/fmtp and the static payload
// type table (§4.3).
package sdp

import (
	"strconv"
	"strings"
)

// Direction is one of the four RFC 4566/3264 media-direction attributes.
type Direction string

const (
	SendRecv Direction = "sendrecv"
	SendOnly Direction = "sendonly"
	RecvOnly Direction = "recvonly"
	Inactive Direction = "inactive"
)

// Origin is the o= line.
type Origin struct {
	Username       string
	SessionID      string
	SessionVersion string
	NetType        string // "IN"
	AddrType       string // "IP4" / "IP6"
	Address        string
}

func (o Origin) String() string {
	return strings.Join([]string{o.Username, o.SessionID, o.SessionVersion, o.NetType, o.AddrType, o.Address}, " ")
}

// Connection is a c= line.
type Connection struct {
	NetType  string
	AddrType string
	Address  string
}

func (c Connection) String() string {
	return c.NetType + " " + c.AddrType + " " + c.Address
}

// Bandwidth is a b= line: "<bwtype>:<bandwidth>".
type Bandwidth struct {
	Type  string
	Value int
}

func (b Bandwidth) String() string {
	return b.Type + ":" + strconv.Itoa(b.Value)
}

// Attributes is an ordered a=key:value multimap. a=flag (no colon) stores an
// empty-string-valued entry under key, giving it marker semantics while
// still round-tripping (§4.3).
type Attributes struct {
	keys   []string
	values map[string][]string
}

func newAttributes() *Attributes {
	return &Attributes{values: make(map[string][]string)}
}

// NewAttributes returns an empty attribute multimap, for callers building a
// Session programmatically (e.g. the negotiate package composing an answer).
func NewAttributes() *Attributes {
	return newAttributes()
}

func (a *Attributes) Add(key, value string) {
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = append(a.values[key], value)
}

func (a *Attributes) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

func (a *Attributes) Get(key string) (string, bool) {
	vs, ok := a.values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func (a *Attributes) All(key string) []string {
	return a.values[key]
}

func (a *Attributes) Keys() []string {
	return a.keys
}

// Codec is one negotiable media format: a payload type, its encoding name,
// clock rate, optional channel count, and optional fmtp string (§3).
type Codec struct {
	PayloadType uint8
	Name        string
	ClockRate   uint32
	Channels    int // 0 means unspecified
	Fmtp        string
}

// StaticCodecTable is the closed table of statically-assigned RTP payload
// types this library recognizes when no rtpmap is present (§3, §9 "static
// dispatch of codecs"). Rendered as a plain map literal: Go has no
// pattern-matchable tagged union to prefer over it for a closed table.
var StaticCodecTable = map[uint8]Codec{
	0:  {PayloadType: 0, Name: "PCMU", ClockRate: 8000, Channels: 1},
	3:  {PayloadType: 3, Name: "GSM", ClockRate: 8000, Channels: 1},
	4:  {PayloadType: 4, Name: "G723", ClockRate: 8000, Channels: 1},
	8:  {PayloadType: 8, Name: "PCMA", ClockRate: 8000, Channels: 1},
	9:  {PayloadType: 9, Name: "G722", ClockRate: 8000, Channels: 1},
	18: {PayloadType: 18, Name: "G729", ClockRate: 8000, Channels: 1},
}

// MediaDescription is one m= block and everything scoped to it.
type MediaDescription struct {
	Media    string // "audio", "video", ...
	Port     int
	NumPorts int // 0 means not specified ("m=audio 49170/2 ...")
	Proto    string
	Formats  []string // raw format tokens, in m= line order

	Connection *Connection
	Bandwidth  []Bandwidth
	Attributes *Attributes

	Codecs []Codec // derived, in Formats order
}

// Direction returns the media's direction attribute, defaulting to
// SendRecv per RFC 3264 when none of the four flags is present (§4.3).
func (m *MediaDescription) Direction() Direction {
	for _, d := range []Direction{SendRecv, SendOnly, RecvOnly, Inactive} {
		if m.Attributes.Has(string(d)) {
			return d
		}
	}
	return SendRecv
}

// CodecByPayloadType looks up a codec in this media's derived list.
func (m *MediaDescription) CodecByPayloadType(pt uint8) (Codec, bool) {
	for _, c := range m.Codecs {
		if c.PayloadType == pt {
			return c, true
		}
	}
	return Codec{}, false
}

// HasTelephoneEvent reports whether this media offers RFC 4733
// telephone-event, returning its payload type if so.
func (m *MediaDescription) HasTelephoneEvent() (uint8, bool) {
	for _, c := range m.Codecs {
		if strings.EqualFold(c.Name, "telephone-event") {
			return c.PayloadType, true
		}
	}
	return 0, false
}

// Session is a full parsed SDP message (§3).
type Session struct {
	Version    int
	Origin     Origin
	Name       string
	Connection *Connection
	Bandwidth  []Bandwidth
	Timing     string // "<start> <stop>", raw per RFC 4566 t= grammar
	Attributes *Attributes
	Media      []MediaDescription
}

// FirstAudio returns the first audio MediaDescription, if any.
func (s *Session) FirstAudio() (*MediaDescription, bool) {
	for i := range s.Media {
		if s.Media[i].Media == "audio" {
			return &s.Media[i], true
		}
	}
	return nil, false
}

// ConnectionAddress returns the connection address for media m, falling
// back to session scope, and whether one was found at either scope.
func (s *Session) ConnectionAddress(m *MediaDescription) (string, bool) {
	if m.Connection != nil {
		return m.Connection.Address, true
	}
	if s.Connection != nil {
		return s.Connection.Address, true
	}
	return "", false
}

// RTPAddress returns (address, port) for the first audio media, preferring
// its own connection data over the session-level one (§4.3 rtp_address
// derivation). ok is false if there is no audio media or no connection data
// at either scope.
func (s *Session) RTPAddress() (addr string, port int, ok bool) {
	m, found := s.FirstAudio()
	if !found {
		return "", 0, false
	}
	address, hasAddr := s.ConnectionAddress(m)
	if !hasAddr {
		return "", 0, false
	}
	return address, m.Port, true
}
