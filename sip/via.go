package sip

import (
	"io"
	"strconv"
	"strings"
)

// Via represents one hop of a Via header (RFC 3261 §20.42). Transport is
// always upper-cased; Host keeps bracket syntax for IPv6 literals intact.
type Via struct {
	Protocol string // "SIP"
	Major    string // "2"
	Minor    string // "0"

	Transport string
	Host      string
	Port      int

	Params Params
}

// Branch returns the branch parameter, or "" if absent.
func (v *Via) Branch() string {
	b, _ := v.Params.Get("branch")
	return b
}

// Received returns the received parameter, or "" if absent.
func (v *Via) Received() string {
	r, _ := v.Params.Get("received")
	return r
}

// RPort returns the rport parameter value and whether the parameter was
// present at all (a bare "rport" flag is present with an empty value).
func (v *Via) RPort() (string, bool) {
	return v.Params.Get("rport")
}

func (v *Via) String() string {
	var b strings.Builder
	v.StringWrite(&b)
	return b.String()
}

func (v *Via) StringWrite(w io.StringWriter) {
	proto, major, minor := v.Protocol, v.Major, v.Minor
	if proto == "" {
		proto = "SIP"
	}
	if major == "" {
		major = "2"
	}
	if minor == "" {
		minor = "0"
	}
	w.WriteString(proto)
	w.WriteString("/")
	w.WriteString(major)
	w.WriteString(".")
	w.WriteString(minor)
	w.WriteString("/")
	w.WriteString(v.Transport)
	w.WriteString(" ")
	w.WriteString(v.Host)
	if v.Port > 0 {
		w.WriteString(":")
		w.WriteString(strconv.Itoa(v.Port))
	}
	if v.Params.Len() > 0 {
		w.WriteString(";")
		v.Params.StringWrite(';', w)
	}
}

func (v *Via) Clone() *Via {
	if v == nil {
		return nil
	}
	c := *v
	c.Params = v.Params.Clone()
	return &c
}

// ParseVia parses "SIP/2.0/UDP host[:port][;params...]". The first
// whitespace-delimited token is "proto/version/transport"; version is then
// split on "." into Major/Minor. The transport token is upper-cased. Host
// parsing is bracket-aware, mirroring ParseURI.
func ParseVia(s string) (*Via, error) {
	s = strings.TrimSpace(s)

	spaceIdx := strings.IndexAny(s, " \t")
	if spaceIdx < 0 {
		return nil, &ParseError{Context: "via", Reason: "missing host after transport", Input: s}
	}
	sentProtocol := s[:spaceIdx]
	hostAndParams := strings.TrimSpace(s[spaceIdx+1:])

	protoParts := strings.Split(sentProtocol, "/")
	if len(protoParts) != 3 {
		return nil, &ParseError{Context: "via", Reason: "missing SIP/version/transport prefix", Input: s}
	}
	proto := protoParts[0]
	version := protoParts[1]
	transport := strings.ToUpper(protoParts[2])

	major, minor := version, "0"
	if dotIdx := strings.IndexByte(version, '.'); dotIdx >= 0 {
		major = version[:dotIdx]
		minor = version[dotIdx+1:]
	}

	hostport, paramPart := splitHostPortParams(hostAndParams)
	host, port := splitHostPort(hostport)

	v := &Via{
		Protocol:  proto,
		Major:     major,
		Minor:     minor,
		Transport: transport,
		Host:      host,
		Params:    ParseParams(paramPart, ';'),
	}
	if port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Port = p
		} else {
			v.Host = hostport
		}
	}
	return v, nil
}
