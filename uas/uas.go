// Package uas implements the request-dispatch loop (§4.7): a UAS receives
// parsed messages from a Transport callback, classifies requests by
// method, and drives Dialog/IncomingCall lifecycle accordingly.
package uas

import (
	"net"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosipua/sipua/dialog"
	"github.com/gosipua/sipua/negotiate"
	"github.com/gosipua/sipua/sdp"
	"github.com/gosipua/sipua/sip"
	"github.com/gosipua/sipua/transport"
)

// IncomingCall is the single owner of a Dialog plus the bookkeeping a UAS
// needs to answer or tear it down (§9 "Cyclic ownership": the call table
// owns the Dialog, callbacks receive the call by reference).
type IncomingCall struct {
	mu sync.Mutex

	Dialog   *dialog.Dialog
	Invite   *sip.Request
	SDPOffer *sdp.Session
	Source   net.Addr

	uas *UAS
}

// Accept sends a 200 OK with negotiated SDP, built from answer, and the
// given Contact. Once the 200 OK is sent the dialog is Confirmed; the
// peer's ACK (§4.7 ACK handling) then leaves it Confirmed.
func (c *IncomingCall) Accept(answer *sdp.Session, contact *sip.Address) (*sip.Response, error) {
	resp := c.Dialog.CreateResponse(c.Invite, 200, "", contact)
	resp.Headers.Append("Content-Type", "application/sdp")
	resp.SetBody(answer.Bytes())
	if err := c.uas.sendReply(resp); err != nil {
		return nil, err
	}
	c.Dialog.Confirm()
	return resp, nil
}

// Reject sends a final error response, terminates the dialog and removes
// the call from the table.
func (c *IncomingCall) Reject(status int, reason string) (*sip.Response, error) {
	resp := c.Dialog.CreateResponse(c.Invite, status, reason, nil)
	if err := c.uas.sendReply(resp); err != nil {
		return nil, err
	}
	c.Dialog.Terminate()
	c.uas.removeCall(c.Invite.CallID())
	return resp, nil
}

// UASHandlers is the capability struct assigned at construction (§6.3, §9
// "Callbacks vs messages" design note), generalizing the teacher's
// RequestHandler/option pattern to this library's fixed method set.
type UASHandlers struct {
	OnInvite   func(*IncomingCall)
	OnReinvite func(*IncomingCall)
	OnBye      func(*IncomingCall, *sip.Request)
	OnCancel   func(*sip.Request, net.Addr)
	OnOptions  func(*sip.Request, net.Addr)
}

// UAS drives the single-threaded dispatch loop of §4.7/§5: one designated
// goroutine (the Transport's callback) processes every inbound message, and
// a mutex around the call table defends against accidental concurrent
// callers rather than serving as the concurrency strategy (§5).
type UAS struct {
	mu    sync.Mutex
	calls map[string]*IncomingCall // keyed by Call-ID

	tp       transport.Transport
	viaHost  string
	viaPort  int
	viaProto string
	negOpts  negotiate.Options
	handlers UASHandlers

	metrics *metrics
	log     zerolog.Logger
}

// Option configures a UAS at construction time, following the teacher's
// own ServerOption pattern (server.go).
type Option func(u *UAS) error

// WithVia records a Via host/port/transport on the UAS. The responses it
// builds itself (100 Trying, error responses) copy the request's Via headers
// and do not use these values; in-dialog requests carry whatever the
// uac.Client they're issued from is configured with.
func WithVia(host string, port int, transport string) Option {
	return func(u *UAS) error {
		u.viaHost = host
		u.viaPort = port
		u.viaProto = transport
		return nil
	}
}

// WithNegotiateOptions stores codec/DTMF/ptime settings on the UAS. The
// dispatch loop does not negotiate SDP itself and does not hand these
// settings to handlers; a handler answering an INVITE calls
// negotiate.Negotiate with its own Options.
func WithNegotiateOptions(opts negotiate.Options) Option {
	return func(u *UAS) error {
		u.negOpts = opts
		return nil
	}
}

// WithHandlers installs the capability struct invoked for each dispatched
// method.
func WithHandlers(h UASHandlers) Option {
	return func(u *UAS) error {
		u.handlers = h
		return nil
	}
}

// WithLogger overrides the default zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(u *UAS) error {
		u.log = logger
		return nil
	}
}

// New constructs a UAS wired to tp's OnMessage callback.
func New(tp transport.Transport, opts ...Option) (*UAS, error) {
	u := &UAS{
		calls:    make(map[string]*IncomingCall),
		tp:       tp,
		viaProto: "UDP",
		metrics:  newMetrics(),
		log:      log.Logger.With().Str("caller", "uas.UAS").Logger(),
	}
	for _, o := range opts {
		if err := o(u); err != nil {
			return nil, err
		}
	}
	tp.OnMessage(u.onMessage)
	return u, nil
}

func (u *UAS) onMessage(msg any, source net.Addr) {
	req, ok := msg.(*sip.Request)
	if !ok {
		// Responses are dropped here: this loop dispatches requests only,
		// and nothing in this package matches responses to requests.
		return
	}
	u.handleRequest(req, source)
}

func (u *UAS) handleRequest(req *sip.Request, source net.Addr) {
	switch req.Method {
	case sip.INVITE:
		u.handleInvite(req, source)
	case sip.ACK:
		u.handleAck(req)
	case sip.BYE:
		u.handleBye(req, source)
	case sip.CANCEL:
		u.handleCancel(req, source)
	case sip.OPTIONS:
		u.handleOptions(req, source)
	default:
		u.reject405(req)
	}
}

func (u *UAS) handleInvite(req *sip.Request, source net.Addr) {
	u.metrics.invitesReceived.Inc()
	callID := req.CallID()

	u.mu.Lock()
	existing, has := u.calls[callID]
	u.mu.Unlock()

	if has && existing.Dialog.State() == dialog.StateConfirmed {
		existing.mu.Lock()
		existing.Invite = req
		if req.ContentType() == "application/sdp" {
			if offer, err := sdp.Parse(req.Body()); err == nil {
				existing.SDPOffer = offer
			}
		}
		existing.mu.Unlock()
		if u.handlers.OnReinvite != nil {
			u.handlers.OnReinvite(existing)
		}
		return
	}

	d, err := dialog.CreateDialogFromRequest(req, "", nil)
	if err != nil {
		u.log.Warn().Err(err).Msg("cannot create dialog from INVITE")
		return
	}

	call := &IncomingCall{Dialog: d, Invite: req, Source: source, uas: u}
	if req.ContentType() == "application/sdp" {
		if offer, err := sdp.Parse(req.Body()); err == nil {
			call.SDPOffer = offer
		}
	}

	u.mu.Lock()
	u.calls[callID] = call
	u.mu.Unlock()
	u.metrics.activeDialogs.Set(float64(u.callCount()))

	trying := d.CreateResponse(req, 100, "Trying", nil)
	_ = u.sendReply(trying)

	if u.handlers.OnInvite != nil {
		u.handlers.OnInvite(call)
	}
}

func (u *UAS) handleAck(req *sip.Request) {
	call, ok := u.lookupCall(req.CallID())
	if !ok {
		return
	}
	call.Dialog.Confirm()
}

func (u *UAS) handleBye(req *sip.Request, source net.Addr) {
	call, ok := u.lookupCall(req.CallID())
	if !ok {
		u.sendErrorResponse(req, 481, sip.DefaultReasonPhrase(481))
		return
	}

	resp := call.Dialog.CreateResponse(req, 200, "", nil)
	_ = u.sendReply(resp)

	call.Dialog.Terminate()
	u.removeCall(req.CallID())

	if u.handlers.OnBye != nil {
		u.handlers.OnBye(call, req)
	}
}

func (u *UAS) handleCancel(req *sip.Request, source net.Addr) {
	call, ok := u.lookupCall(req.CallID())
	if !ok {
		u.sendErrorResponse(req, 481, sip.DefaultReasonPhrase(481))
		return
	}

	cancelOK := sip.NewResponseFromRequest(req, 200, sip.DefaultReasonPhrase(200), nil)
	_ = u.sendReply(cancelOK)

	alreadyAnswered := call.Dialog.State() == dialog.StateConfirmed
	if !alreadyAnswered {
		terminated := call.Dialog.CreateResponse(call.Invite, 487, "", nil)
		_ = u.sendReply(terminated)
	}

	u.removeCall(req.CallID())

	if u.handlers.OnCancel != nil {
		u.handlers.OnCancel(req, source)
	}
}

// handleOptions is always dispatched through the dialogless path regardless
// of whether a confirmed dialog exists for the Call-ID (§11 Open Question
// (c)).
func (u *UAS) handleOptions(req *sip.Request, source net.Addr) {
	if u.handlers.OnOptions != nil {
		u.handlers.OnOptions(req, source)
		return
	}
	resp := sip.NewResponseFromRequest(req, 200, sip.DefaultReasonPhrase(200), nil)
	resp.Headers.Append("Allow", "INVITE, ACK, BYE, CANCEL, OPTIONS")
	_ = u.sendReply(resp)
}

func (u *UAS) reject405(req *sip.Request) {
	u.metrics.callsRejected405.Inc()
	u.sendErrorResponse(req, 405, sip.DefaultReasonPhrase(405))
}

// sendErrorResponse builds a dialogless error response per §4.7: copy Via,
// From, Call-ID, CSeq; copy To and append a freshly generated tag if one is
// not already present.
func (u *UAS) sendErrorResponse(req *sip.Request, status int, reason string) {
	resp := sip.NewResponseFromRequest(req, status, reason, nil)
	toValue, _ := req.Headers.First("to")
	toAddr, err := sip.ParseAddress(toValue)
	if err == nil && toAddr.Tag() == "" {
		toAddr.Params.Add("tag", sip.GenerateTag())
		toValue = toAddr.String()
	}
	resp.Headers.Set("To", toValue)
	_ = u.sendReply(resp)
}

func (u *UAS) sendReply(resp *sip.Response) error {
	u.metrics.responsesSent.WithLabelValues(statusClass(resp.StatusCode)).Inc()
	return u.tp.SendReply(resp)
}

func (u *UAS) lookupCall(callID string) (*IncomingCall, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	c, ok := u.calls[callID]
	return c, ok
}

func (u *UAS) removeCall(callID string) {
	u.mu.Lock()
	delete(u.calls, callID)
	n := len(u.calls)
	u.mu.Unlock()
	u.metrics.activeDialogs.Set(float64(n))
}

func (u *UAS) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

// Shutdown marks every known dialog Terminated and clears the call table
// (§5 Cancellation).
func (u *UAS) Shutdown() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for id, call := range u.calls {
		call.Dialog.Terminate()
		delete(u.calls, id)
	}
	u.metrics.activeDialogs.Set(0)
}
