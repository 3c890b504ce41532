// Package dialog implements RFC 3261 §12 dialog bookkeeping: identity,
// route-set, CSeq sequencing and the Early/Confirmed/Terminated state
// machine shared by a UAS and its UAC counterpart.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"

	"github.com/gosipua/sipua/sip"
)

// State mirrors the three dialog states a Dialog ever occupies (§4.5).
type State string

const (
	StateEarly      State = "Early"
	StateConfirmed  State = "Confirmed"
	StateTerminated State = "Terminated"
)

var (
	// ErrNoContact reports an INVITE without a Contact header.
	// CreateDialogFromRequest does not return it: it accepts such an INVITE
	// and leaves RemoteTarget nil.
	ErrNoContact = errors.New("dialog: INVITE has no Contact header")
)

// Dialog is a peer-to-peer SIP relationship (§4.5). All fields except the
// exported identity/route data are mutated only through the methods below.
type Dialog struct {
	mu sync.Mutex

	CallID      string
	LocalTag    string
	RemoteTag   string
	LocalURI    *sip.URI
	RemoteURI   *sip.URI
	RemoteTarget *sip.URI
	RouteSet    []string // Record-Route values, reversed, in Route-header order

	localSeq  uint32
	remoteSeq uint32

	fsm *fsm.FSM
}

func newDialog() *Dialog {
	d := &Dialog{}
	d.fsm = fsm.NewFSM(
		string(StateEarly),
		fsm.Events{
			{Name: "confirm", Src: []string{string(StateEarly)}, Dst: string(StateConfirmed)},
			{Name: "terminate", Src: []string{string(StateEarly), string(StateConfirmed)}, Dst: string(StateTerminated)},
		},
		fsm.Callbacks{},
	)
	return d
}

// State returns the dialog's current state.
func (d *Dialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State(d.fsm.Current())
}

// Confirm transitions Early→Confirmed; a no-op in any other state (§4.5
// "confirm() Early→Confirmed (no-op otherwise)").
func (d *Dialog) Confirm() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fsm.Current() != string(StateEarly) {
		return
	}
	_ = d.fsm.Event(context.Background(), "confirm")
}

// Terminate transitions any state to Terminated. Terminated is terminal;
// calling Terminate again is a no-op.
func (d *Dialog) Terminate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fsm.Current() == string(StateTerminated) {
		return
	}
	_ = d.fsm.Event(context.Background(), "terminate")
}

// NextCSeq pre-increments the local CSeq counter and returns it (§4.5).
func (d *Dialog) NextCSeq() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.localSeq++
	return d.localSeq
}

// RemoteCSeq returns the CSeq of the last in-dialog request received from
// the peer.
func (d *Dialog) RemoteCSeq() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remoteSeq
}

// SetRemoteCSeq records the CSeq of an inbound in-dialog request.
func (d *Dialog) SetRemoteCSeq(seq uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.remoteSeq = seq
}

// CreateDialogFromRequest builds a Dialog from an INVITE request, as seen
// from the UAS side (§4.5 "Creation from INVITE (UAS side)"). localTag is
// used verbatim if non-empty, else a fresh one is generated. localURI
// overrides the default (the request's To URI) when non-nil.
func CreateDialogFromRequest(req *sip.Request, localTag string, localURI *sip.URI) (*Dialog, error) {
	from := req.From()
	if from == nil {
		return nil, fmt.Errorf("dialog: request has no From header")
	}
	to := req.To()
	if to == nil {
		return nil, fmt.Errorf("dialog: request has no To header")
	}
	cseq := req.CSeq()
	if cseq == nil {
		return nil, fmt.Errorf("dialog: request has no CSeq header")
	}

	d := newDialog()
	d.CallID = req.CallID()
	d.RemoteTag = from.Tag()
	d.RemoteURI = from.URI.Clone()
	if localTag == "" {
		localTag = sip.GenerateTag()
	}
	d.LocalTag = localTag
	if localURI != nil {
		d.LocalURI = localURI
	} else {
		d.LocalURI = to.URI.Clone()
	}

	if contact := req.Contact(); contact != nil {
		d.RemoteTarget = contact.URI.Clone()
	}

	recordRoutes := req.RecordRouteList()
	d.RouteSet = make([]string, len(recordRoutes))
	for i, rr := range recordRoutes {
		d.RouteSet[len(recordRoutes)-1-i] = rr
	}

	d.remoteSeq = cseq.Seq

	return d, nil
}

// CreateRequest builds a new in-dialog request addressed to RemoteTarget
// (falling back to RemoteURI), with Via/From/To/Call-ID/CSeq/Max-Forwards/
// Route populated per §4.5.
func (d *Dialog) CreateRequest(method sip.RequestMethod, viaHost string, viaPort int, viaTransport string) *sip.Request {
	d.mu.Lock()
	recipient := d.RemoteTarget
	if recipient == nil {
		recipient = d.RemoteURI
	}
	localURI, remoteURI := d.LocalURI, d.RemoteURI
	localTag, remoteTag := d.LocalTag, d.RemoteTag
	callID := d.CallID
	routeSet := append([]string(nil), d.RouteSet...)
	d.mu.Unlock()

	seq := d.NextCSeq()

	req := sip.NewRequest(method, recipient.Clone())

	via := &sip.Via{
		Transport: viaTransport,
		Host:      viaHost,
		Port:      viaPort,
		Params:    sip.NewParams(),
	}
	via.Params.Add("branch", sip.GenerateBranch())
	req.Headers.Append("Via", via.String())

	from := &sip.Address{URI: localURI.Clone(), Params: sip.NewParams()}
	from.Params.Add("tag", localTag)
	req.Headers.Append("From", from.String())

	to := &sip.Address{URI: remoteURI.Clone(), Params: sip.NewParams()}
	if remoteTag != "" {
		to.Params.Add("tag", remoteTag)
	}
	req.Headers.Append("To", to.String())

	req.Headers.Append("Call-ID", callID)
	req.Headers.Append("CSeq", fmt.Sprintf("%d %s", seq, method))
	req.Headers.Append("Max-Forwards", "70")

	for _, r := range routeSet {
		req.Headers.Append("Route", r)
	}

	return req
}

// CreateResponse builds a response to request, copying Via/From/Call-ID/
// CSeq verbatim and appending the dialog's local_tag to To if absent
// (§4.5). contact is optional.
func (d *Dialog) CreateResponse(req *sip.Request, status int, reason string, contact *sip.Address) *sip.Response {
	if reason == "" {
		reason = sip.DefaultReasonPhrase(status)
	}
	resp := sip.NewResponse(status, reason)

	for _, v := range req.Headers.Values("via") {
		resp.Headers.Append("Via", v)
	}
	if v, ok := req.Headers.First("from"); ok {
		resp.Headers.Append("From", v)
	}
	if v, ok := req.Headers.First("call-id"); ok {
		resp.Headers.Append("Call-ID", v)
	}
	if v, ok := req.Headers.First("cseq"); ok {
		resp.Headers.Append("CSeq", v)
	}

	d.mu.Lock()
	localTag := d.LocalTag
	d.mu.Unlock()

	toValue, _ := req.Headers.First("to")
	toAddr, err := sip.ParseAddress(toValue)
	if err == nil && localTag != "" && toAddr.Tag() == "" {
		toAddr.Params.Add("tag", localTag)
		toValue = toAddr.String()
	}
	resp.Headers.Append("To", toValue)

	if contact != nil {
		resp.Headers.Append("Contact", contact.String())
	}

	return resp
}
