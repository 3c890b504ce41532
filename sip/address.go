package sip

import (
	"io"
	"strings"
)

// Address is a display-name + URI + parameter triple used by From/To/Contact
// (RFC 3261 §20.10, §20.39, §20.20). It is either a name-addr ("Bob" <sip:..>)
// or a bare addr-spec (sip:bob@biloxi.com;tag=abc). Address-level params
// (of which tag is the only one this library treats specially) are kept apart
// from the URI's own parameters even in addr-spec form, where the two are
// otherwise ambiguous.
type Address struct {
	DisplayName string
	URI         *URI
	Params      Params
}

// Tag returns the tag parameter, or "" if absent.
func (a *Address) Tag() string {
	t, _ := a.Params.Get("tag")
	return t
}

func (a *Address) String() string {
	var b strings.Builder
	a.StringWrite(&b)
	return b.String()
}

func (a *Address) StringWrite(w io.StringWriter) {
	if a.DisplayName != "" {
		w.WriteString("\"")
		w.WriteString(a.DisplayName)
		w.WriteString("\" ")
	}
	w.WriteString("<")
	if a.URI != nil {
		a.URI.StringWrite(w)
	}
	w.WriteString(">")
	if a.Params.Len() > 0 {
		w.WriteString(";")
		a.Params.StringWrite(';', w)
	}
}

func (a *Address) Clone() *Address {
	if a == nil {
		return nil
	}
	return &Address{
		DisplayName: a.DisplayName,
		URI:         a.URI.Clone(),
		Params:      a.Params.Clone(),
	}
}

// ParseAddress parses a From/To/Contact-style header value: either a
// name-addr ("Display" <uri>;params) or an addr-spec (uri;params), where in
// the addr-spec form address-level params (tag) are split out of the URI's
// own parameter list by key.
func ParseAddress(s string) (*Address, error) {
	s = strings.TrimSpace(s)
	addr := &Address{}

	if i := strings.IndexByte(s, '<'); i >= 0 {
		// name-addr form.
		display := strings.TrimSpace(s[:i])
		display = strings.Trim(display, "\"")
		addr.DisplayName = display

		end := strings.IndexByte(s[i:], '>')
		if end < 0 {
			return nil, &ParseError{Context: "address", Reason: "unterminated <...>", Input: s}
		}
		end += i

		uriStr := s[i+1 : end]
		uri, err := ParseURI(uriStr)
		if err != nil {
			return nil, err
		}
		addr.URI = uri

		rest := strings.TrimSpace(s[end+1:])
		rest = strings.TrimPrefix(rest, ";")
		addr.Params = ParseParams(rest, ';')
		return addr, nil
	}

	// addr-spec form: separate address-level params (tag) from URI params.
	// Parse as a URI first (this will absorb everything after the first ';'
	// into UriParams), then peel known address params back out.
	uri, err := ParseURI(s)
	if err != nil {
		return nil, err
	}
	addr.Params = NewParams()
	if tag, ok := uri.UriParams.Get("tag"); ok {
		addr.Params.Add("tag", tag)
		uri.UriParams.Remove("tag")
	}
	addr.URI = uri
	return addr, nil
}
