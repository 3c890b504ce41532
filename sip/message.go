package sip

import (
	"io"
	"strconv"
	"strings"
)

// RequestMethod is a SIP method token.
type RequestMethod string

const (
	INVITE    RequestMethod = "INVITE"
	ACK       RequestMethod = "ACK"
	CANCEL    RequestMethod = "CANCEL"
	BYE       RequestMethod = "BYE"
	REGISTER  RequestMethod = "REGISTER"
	OPTIONS   RequestMethod = "OPTIONS"
	INFO      RequestMethod = "INFO"
	SUBSCRIBE RequestMethod = "SUBSCRIBE"
	NOTIFY    RequestMethod = "NOTIFY"
	REFER     RequestMethod = "REFER"
	MESSAGE   RequestMethod = "MESSAGE"
	PRACK     RequestMethod = "PRACK"
	UPDATE    RequestMethod = "UPDATE"
	PUBLISH   RequestMethod = "PUBLISH"
)

// Message is the common read surface of a SIP request or response: the
// header multimap plus body and transport-routing metadata.
type Message struct {
	SipVersion string
	Headers    *Headers
	body       []byte

	// Routing metadata, populated by the Transport and consulted by
	// RoutingRules/Dialog; never serialized onto the wire.
	Transport   string
	Source      string
	Destination string
}

func newMessage() Message {
	return Message{SipVersion: "SIP/2.0", Headers: NewHeaders()}
}

// Body returns the raw message body.
func (m *Message) Body() []byte { return m.body }

// SetBody sets the body and recomputes Content-Length to match (§4.2). This
// always overrides a stale caller-set value, per the strict-on-output policy.
func (m *Message) SetBody(body []byte) {
	m.body = body
	m.Headers.Set("Content-Length", strconv.Itoa(len(body)))
}

// header-level structured accessors, generalized from the teacher's
// per-type getters (Via/From/To/CSeq/Contact/CallID) onto the raw multimap.

func (m *Message) ViaList() []*Via {
	vals := m.Headers.Values("via")
	vias := make([]*Via, 0, len(vals))
	for _, v := range vals {
		if parsed, err := ParseVia(v); err == nil {
			vias = append(vias, parsed)
		}
	}
	return vias
}

func (m *Message) TopVia() *Via {
	vias := m.ViaList()
	if len(vias) == 0 {
		return nil
	}
	return vias[0]
}

func (m *Message) From() *Address {
	v, ok := m.Headers.First("from")
	if !ok {
		return nil
	}
	a, err := ParseAddress(v)
	if err != nil {
		return nil
	}
	return a
}

func (m *Message) To() *Address {
	v, ok := m.Headers.First("to")
	if !ok {
		return nil
	}
	a, err := ParseAddress(v)
	if err != nil {
		return nil
	}
	return a
}

func (m *Message) Contact() *Address {
	v, ok := m.Headers.First("contact")
	if !ok {
		return nil
	}
	a, err := ParseAddress(v)
	if err != nil {
		return nil
	}
	return a
}

func (m *Message) CallID() string {
	v, _ := m.Headers.First("call-id")
	return v
}

func (m *Message) CSeq() *CSeq {
	v, ok := m.Headers.First("cseq")
	if !ok {
		return nil
	}
	c, err := ParseCSeq(v)
	if err != nil {
		return nil
	}
	return c
}

func (m *Message) RecordRouteList() []string {
	return m.Headers.Values("record-route")
}

func (m *Message) RouteList() []string {
	return m.Headers.Values("route")
}

func (m *Message) ContentType() string {
	v, _ := m.Headers.First("content-type")
	return v
}

// Request is a SIP request: a method + Request-URI + Message.
type Request struct {
	Message
	Method    RequestMethod
	Recipient *URI
}

// NewRequest creates a bare request with no headers. AppendHeader-equivalent
// (Headers.Append) must be used to populate it.
func NewRequest(method RequestMethod, recipient *URI) *Request {
	return &Request{Message: newMessage(), Method: method, Recipient: recipient}
}

func (r *Request) StartLine() string {
	var b strings.Builder
	r.StartLineWrite(&b)
	return b.String()
}

func (r *Request) StartLineWrite(w io.StringWriter) {
	w.WriteString(string(r.Method))
	w.WriteString(" ")
	if r.Recipient != nil {
		r.Recipient.StringWrite(w)
	}
	w.WriteString(" ")
	w.WriteString(r.SipVersion)
}

func (r *Request) String() string {
	var b strings.Builder
	r.StringWrite(&b)
	return b.String()
}

func (r *Request) StringWrite(w io.StringWriter) {
	r.Headers.Set("Content-Length", strconv.Itoa(len(r.body)))
	r.StartLineWrite(w)
	w.WriteString("\r\n")
	r.Headers.StringWrite(w)
	w.WriteString("\r\n")
	if r.body != nil {
		w.WriteString(string(r.body))
	}
}

func (r *Request) IsInvite() bool  { return r.Method == INVITE }
func (r *Request) IsAck() bool     { return r.Method == ACK }
func (r *Request) IsCancel() bool  { return r.Method == CANCEL }
func (r *Request) IsBye() bool     { return r.Method == BYE }
func (r *Request) IsOptions() bool { return r.Method == OPTIONS }

// Clone performs a deep copy of headers/recipient, sharing the body slice.
func (r *Request) Clone() *Request {
	return &Request{
		Message: Message{
			SipVersion:  r.SipVersion,
			Headers:     r.Headers.Clone(),
			body:        r.body,
			Transport:   r.Transport,
			Source:      r.Source,
			Destination: r.Destination,
		},
		Method:    r.Method,
		Recipient: r.Recipient.Clone(),
	}
}

// Response is a SIP response: a status code + reason phrase + Message.
type Response struct {
	Message
	StatusCode int
	Reason     string
}

// NewResponse creates a bare response with no headers.
func NewResponse(status int, reason string) *Response {
	return &Response{Message: newMessage(), StatusCode: status, Reason: reason}
}

// NewResponseFromRequest builds a response skeleton copying Via (all of
// them), From, To, Call-ID, and CSeq verbatim from req, matching
// Dialog.CreateResponse's base behavior without the dialog-tag bookkeeping.
func NewResponseFromRequest(req *Request, status int, reason string, body []byte) *Response {
	resp := NewResponse(status, reason)
	for _, v := range req.Headers.Values("via") {
		resp.Headers.Append("Via", v)
	}
	if v, ok := req.Headers.First("from"); ok {
		resp.Headers.Append("From", v)
	}
	if v, ok := req.Headers.First("to"); ok {
		resp.Headers.Append("To", v)
	}
	if v, ok := req.Headers.First("call-id"); ok {
		resp.Headers.Append("Call-ID", v)
	}
	if v, ok := req.Headers.First("cseq"); ok {
		resp.Headers.Append("CSeq", v)
	}
	if body != nil {
		resp.SetBody(body)
	}
	return resp
}

func (r *Response) IsProvisional() bool { return r.StatusCode >= 100 && r.StatusCode < 200 }
func (r *Response) IsSuccess() bool     { return r.StatusCode >= 200 && r.StatusCode < 300 }
func (r *Response) IsFinal() bool       { return r.StatusCode >= 200 }

func (r *Response) StartLine() string {
	var b strings.Builder
	r.StartLineWrite(&b)
	return b.String()
}

func (r *Response) StartLineWrite(w io.StringWriter) {
	w.WriteString(r.SipVersion)
	w.WriteString(" ")
	w.WriteString(strconv.Itoa(r.StatusCode))
	w.WriteString(" ")
	w.WriteString(r.Reason)
}

func (r *Response) String() string {
	var b strings.Builder
	r.StringWrite(&b)
	return b.String()
}

func (r *Response) StringWrite(w io.StringWriter) {
	r.Headers.Set("Content-Length", strconv.Itoa(len(r.body)))
	r.StartLineWrite(w)
	w.WriteString("\r\n")
	r.Headers.StringWrite(w)
	w.WriteString("\r\n")
	if r.body != nil {
		w.WriteString(string(r.body))
	}
}

func (r *Response) Clone() *Response {
	return &Response{
		Message: Message{
			SipVersion:  r.SipVersion,
			Headers:     r.Headers.Clone(),
			body:        r.body,
			Transport:   r.Transport,
			Source:      r.Source,
			Destination: r.Destination,
		},
		StatusCode: r.StatusCode,
		Reason:     r.Reason,
	}
}

// DefaultReasonPhrase returns the fixed reason phrase for common status
// codes (§4.5), or "" for unrecognized codes.
func DefaultReasonPhrase(status int) string {
	switch status {
	case 100:
		return "Trying"
	case 180:
		return "Ringing"
	case 183:
		return "Session Progress"
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 401:
		return "Unauthorized"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 408:
		return "Request Timeout"
	case 480:
		return "Temporarily Unavailable"
	case 481:
		return "Call/Transaction Does Not Exist"
	case 486:
		return "Busy Here"
	case 487:
		return "Request Terminated"
	case 488:
		return "Not Acceptable Here"
	case 500:
		return "Server Internal Error"
	case 503:
		return "Service Unavailable"
	case 603:
		return "Decline"
	}
	if status >= 400 && status < 500 {
		return "Request Failure"
	}
	if status >= 500 && status < 600 {
		return "Server Failure"
	}
	return ""
}
