// Package uac implements the §4.8 in-dialog request helpers a user agent
// client sends against an established Dialog: BYE, re-INVITE, CANCEL and
// INFO. Each checks its dialog-state precondition before building or
// sending anything, matching the teacher's own DialogClient (dialog_client.go)
// generalized from its sync.Map-keyed session store down to operating
// directly on a single *dialog.Dialog.
package uac

import (
	"fmt"

	"github.com/gosipua/sipua/dialog"
	"github.com/gosipua/sipua/routing"
	"github.com/gosipua/sipua/sdp"
	"github.com/gosipua/sipua/sip"
	"github.com/gosipua/sipua/transport"
)

// StateError is DialogStateError (§7): a UAC operation attempted on a
// dialog in the wrong state. The dialog is left untouched.
type StateError struct {
	Op       string
	Have     dialog.State
	Expected dialog.State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("uac: %s requires dialog state %s, have %s", e.Op, e.Expected, e.Have)
}

// SendError is TransportError (§7): raised when the underlying Transport
// fails to dispatch a request. The caller decides whether to tear the
// dialog down.
type SendError struct {
	Op  string
	Err error
}

func (e *SendError) Error() string { return fmt.Sprintf("uac: %s: %s", e.Op, e.Err) }
func (e *SendError) Unwrap() error { return e.Err }

// Client sends in-dialog requests for a single Dialog over a Transport,
// deriving destinations from the dialog's remote_target and route_set
// (§4.9) rather than a fixed peer address.
type Client struct {
	Transport    transport.Transport
	ViaHost      string
	ViaPort      int
	ViaTransport string
}

// destinationOf derives the socket destination for an in-dialog request
// (§4.9): the request-URI routing.ApplyRouteSet yields, which for this
// loose-routing-only core is always the dialog's remote_target regardless
// of route_set contents.
func destinationOf(d *dialog.Dialog) (string, int, error) {
	if d.RemoteTarget == nil {
		return "", 0, fmt.Errorf("uac: dialog has no remote_target")
	}
	requestURI, _ := routing.ApplyRouteSet(d.RemoteTarget, d.RouteSet)
	return requestURI.Host, requestURI.Port, nil
}

func (c *Client) sendRequest(d *dialog.Dialog, method sip.RequestMethod) (*sip.Request, error) {
	req := d.CreateRequest(method, c.ViaHost, c.ViaPort, viaTransportOr(c.ViaTransport))
	if err := c.send(d, method, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (c *Client) send(d *dialog.Dialog, op sip.RequestMethod, req *sip.Request) error {
	host, port, err := destinationOf(d)
	if err != nil {
		return &SendError{Op: string(op), Err: err}
	}
	if err := c.Transport.Send(req, &netAddr{host: host, port: port}); err != nil {
		return &SendError{Op: string(op), Err: err}
	}
	return nil
}

func viaTransportOr(v string) string {
	if v == "" {
		return "UDP"
	}
	return v
}

// SendBye tears a confirmed dialog down (§4.8): requires Confirmed state,
// never sent against an Early or already-Terminated dialog. The BYE carries
// a Contact built from ViaHost/ViaPort.
func (c *Client) SendBye(d *dialog.Dialog) error {
	if d.State() != dialog.StateConfirmed {
		return &StateError{Op: "BYE", Have: d.State(), Expected: dialog.StateConfirmed}
	}
	req := d.CreateRequest(sip.BYE, c.ViaHost, c.ViaPort, viaTransportOr(c.ViaTransport))
	req.Headers.Append("Contact", "<"+(&sip.URI{Host: c.ViaHost, Port: c.ViaPort}).String()+">")
	if err := c.send(d, sip.BYE, req); err != nil {
		return err
	}
	d.Terminate()
	return nil
}

// SendReinvite issues a re-INVITE carrying a new offer (§4.8, §11 Open
// Question (b)): requires Confirmed state. The dialog's remote_target is
// not updated here, and nothing in this package updates it from the peer's
// response.
func (c *Client) SendReinvite(d *dialog.Dialog, offer *sdp.Session) (*sip.Request, error) {
	if d.State() != dialog.StateConfirmed {
		return nil, &StateError{Op: "re-INVITE", Have: d.State(), Expected: dialog.StateConfirmed}
	}
	req := d.CreateRequest(sip.INVITE, c.ViaHost, c.ViaPort, viaTransportOr(c.ViaTransport))
	req.Headers.Append("Content-Type", "application/sdp")
	req.SetBody(offer.Bytes())

	if err := c.send(d, sip.INVITE, req); err != nil {
		return nil, err
	}
	return req, nil
}

// SendCancel cancels a not-yet-answered INVITE (§4.8): requires Early
// state, since a Confirmed dialog has already received its final response
// and must be torn down with BYE instead. Once the CANCEL is sent the dialog
// moves to Terminated.
func (c *Client) SendCancel(d *dialog.Dialog) error {
	if d.State() != dialog.StateEarly {
		return &StateError{Op: "CANCEL", Have: d.State(), Expected: dialog.StateEarly}
	}
	if _, err := c.sendRequest(d, sip.CANCEL); err != nil {
		return err
	}
	d.Terminate()
	return nil
}

// SendInfo sends a mid-dialog INFO request with an arbitrary body (§4.8):
// requires Confirmed state.
func (c *Client) SendInfo(d *dialog.Dialog, body []byte, contentType string) error {
	if d.State() != dialog.StateConfirmed {
		return &StateError{Op: "INFO", Have: d.State(), Expected: dialog.StateConfirmed}
	}
	req := d.CreateRequest(sip.INFO, c.ViaHost, c.ViaPort, viaTransportOr(c.ViaTransport))
	req.Headers.Append("Content-Type", contentType)
	req.SetBody(body)

	return c.send(d, sip.INFO, req)
}

// netAddr is a minimal net.Addr carrying the host/port a Dialog's
// remote_target resolves to, since the URI host may not yet be a dialed
// connection.
type netAddr struct {
	host string
	port int
}

func (a *netAddr) Network() string { return "sip" }
func (a *netAddr) String() string  { return fmt.Sprintf("%s:%d", a.host, a.port) }
