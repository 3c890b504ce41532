// Package transport implements the §6.1 Transport contract: UDP and TCP
// reference transports plus an additive WebSocket transport, each framing
// bytes off the wire into parsed SIP messages and handing them to a single
// registered callback.
package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/gosipua/sipua/routing"
	"github.com/gosipua/sipua/sip"
)

const (
	UDP = "UDP"
	TCP = "TCP"
	WS  = "WS"
)

// MessageHandler receives a fully parsed message (a *sip.Request or
// *sip.Response) plus the address it arrived from.
type MessageHandler func(msg any, source net.Addr)

// Transport is the capability set every concrete transport exposes (§6.1).
type Transport interface {
	// Start begins accepting connections/datagrams; it returns once bound,
	// continuing to serve in the background until Stop is called.
	Start(ctx context.Context) error

	// Send transmits msg to addr directly, bypassing Via-based routing.
	Send(msg fmt.Stringer, addr net.Addr) error

	// SendReply transmits a response to the destination derived from its
	// topmost Via header (RFC 3261 §18.2.2, via the routing package).
	SendReply(resp *sip.Response) error

	// Stop releases the underlying listener/connections.
	Stop() error

	// OnMessage registers the callback invoked for every parsed inbound
	// message. Only one callback is held at a time, matching the teacher's
	// single-handler transport layer wiring.
	OnMessage(handler MessageHandler)
}

// replyDestination resolves the (host, port) routing.ResponseDestination
// derives into a dialable "host:port" string, stripping IPv6 brackets
// before handing the host to net.Dial/net.ResolveUDPAddr (which expect
// bracketed form only inside a combined host:port string, so this
// reconstructs that form explicitly).
func replyDestination(resp *sip.Response) (string, error) {
	host, port, err := routing.ResponseDestination(resp)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(stripBrackets(host), fmt.Sprintf("%d", port)), nil
}

func stripBrackets(host string) string {
	if len(host) >= 2 && host[0] == '[' && host[len(host)-1] == ']' {
		return host[1 : len(host)-1]
	}
	return host
}
