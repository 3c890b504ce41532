package uas

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosipua/sipua/dialog"
	"github.com/gosipua/sipua/negotiate"
	"github.com/gosipua/sipua/sdp"
	"github.com/gosipua/sipua/sip"
	"github.com/gosipua/sipua/transport"
)

// fakeAddr is a minimal net.Addr for test fixtures.
type fakeAddr string

func (a fakeAddr) Network() string { return "udp" }
func (a fakeAddr) String() string  { return string(a) }

// memoryTransport is an in-process transport.Transport double: Send/
// SendReply append to sent instead of touching the network, and tests drive
// inbound traffic directly through deliver.
type memoryTransport struct {
	mu      sync.Mutex
	handler transport.MessageHandler
	sent    []*sip.Response
}

func (t *memoryTransport) Start(ctx context.Context) error { return nil }
func (t *memoryTransport) Stop() error                      { return nil }
func (t *memoryTransport) OnMessage(h transport.MessageHandler) {
	t.handler = h
}
func (t *memoryTransport) Send(msg fmt.Stringer, addr net.Addr) error { return nil }
func (t *memoryTransport) SendReply(resp *sip.Response) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, resp)
	return nil
}
func (t *memoryTransport) deliver(req *sip.Request, source net.Addr) {
	t.handler(req, source)
}
func (t *memoryTransport) last() *sip.Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sent) == 0 {
		return nil
	}
	return t.sent[len(t.sent)-1]
}
func (t *memoryTransport) statusesSent() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []int
	for _, r := range t.sent {
		out = append(out, r.StatusCode)
	}
	return out
}

const inviteFixture = "" +
	"INVITE sip:bob@biloxi.example.com SIP/2.0\r\n" +
	"Via: SIP/2.0/UDP 10.0.0.1:5060;branch=z9hG4bKnash1;rport\r\n" +
	"Max-Forwards: 70\r\n" +
	"From: \"Alice\" <sip:alice@atlanta.example.com>;tag=1928301774\r\n" +
	"To: <sip:bob@biloxi.example.com>\r\n" +
	"Call-ID: a84b4c76e66710@pc33.atlanta.example.com\r\n" +
	"CSeq: 314159 INVITE\r\n" +
	"Contact: <sip:alice@10.0.0.1:5060>\r\n" +
	"Content-Type: application/sdp\r\n" +
	"Content-Length: 0\r\n" +
	"\r\n"

func mustParseRequest(t *testing.T, raw string) *sip.Request {
	t.Helper()
	msg, err := sip.ParseMessage([]byte(raw))
	require.NoError(t, err)
	req, ok := msg.(*sip.Request)
	require.True(t, ok)
	return req
}

func byeFixture(callID string) string {
	return "" +
		"BYE sip:alice@10.0.0.1:5060 SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP biloxi.example.com:5060;branch=z9hG4bKbye1\r\n" +
		"Max-Forwards: 70\r\n" +
		"From: <sip:bob@biloxi.example.com>;tag=bobtag\r\n" +
		"To: <sip:alice@atlanta.example.com>;tag=1928301774\r\n" +
		"Call-ID: " + callID + "\r\n" +
		"CSeq: 1 BYE\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n"
}

// TestUAS_S1_InviteAcceptAckBye exercises the full scenario S1 lifecycle:
// 100 Trying on the new INVITE, application-driven 200 OK via Accept (which
// confirms the dialog), the dialog staying Confirmed on ACK, and 200 OK +
// call removal on BYE.
func TestUAS_S1_InviteAcceptAckBye(t *testing.T) {
	tp := &memoryTransport{}
	var accepted *IncomingCall

	u, err := New(tp,
		WithVia("biloxi.example.com", 5060, "UDP"),
		WithNegotiateOptions(negotiate.DefaultOptions()),
		WithHandlers(UASHandlers{
			OnInvite: func(call *IncomingCall) {
				accepted = call
				contact, addrErr := sip.ParseAddress("<sip:bob@biloxi.example.com:5060>")
				require.NoError(t, addrErr)
				answer := &sdp.Session{}
				_, acceptErr := call.Accept(answer, contact)
				require.NoError(t, acceptErr)
			},
		}),
	)
	require.NoError(t, err)

	invite := mustParseRequest(t, inviteFixture)
	tp.deliver(invite, fakeAddr("10.0.0.1:5060"))

	require.NotNil(t, accepted)
	statuses := tp.statusesSent()
	require.Len(t, statuses, 2)
	assert.Equal(t, 100, statuses[0])
	assert.Equal(t, 200, statuses[1])
	assert.Equal(t, dialog.StateConfirmed, accepted.Dialog.State())

	ack := mustParseRequest(t, ""+
		"ACK sip:bob@biloxi.example.com SIP/2.0\r\n"+
		"Via: SIP/2.0/UDP 10.0.0.1:5060;branch=z9hG4bKnash2\r\n"+
		"Max-Forwards: 70\r\n"+
		"From: <sip:alice@atlanta.example.com>;tag=1928301774\r\n"+
		"To: <sip:bob@biloxi.example.com>;tag="+accepted.Dialog.LocalTag+"\r\n"+
		"Call-ID: a84b4c76e66710@pc33.atlanta.example.com\r\n"+
		"CSeq: 314159 ACK\r\n"+
		"Content-Length: 0\r\n"+
		"\r\n")
	tp.deliver(ack, fakeAddr("10.0.0.1:5060"))
	assert.Equal(t, dialog.StateConfirmed, accepted.Dialog.State())

	bye := mustParseRequest(t, byeFixture("a84b4c76e66710@pc33.atlanta.example.com"))
	tp.deliver(bye, fakeAddr("10.0.0.1:5060"))

	statuses = tp.statusesSent()
	require.Len(t, statuses, 3)
	assert.Equal(t, 200, statuses[2])

	_, ok := u.lookupCall("a84b4c76e66710@pc33.atlanta.example.com")
	assert.False(t, ok)
}

// TestUAS_BYE_NoCallReturns481 covers the call-less BYE edge case (§4.7).
func TestUAS_BYE_NoCallReturns481(t *testing.T) {
	tp := &memoryTransport{}
	u, err := New(tp)
	require.NoError(t, err)
	_ = u

	bye := mustParseRequest(t, byeFixture("unknown-call-id"))
	tp.deliver(bye, fakeAddr("10.0.0.1:5060"))

	statuses := tp.statusesSent()
	require.Len(t, statuses, 1)
	assert.Equal(t, 481, statuses[0])
}

// TestUAS_OPTIONS_DefaultAllowHeader covers the dialogless default OPTIONS
// handler (§11 Open Question (c)).
func TestUAS_OPTIONS_DefaultAllowHeader(t *testing.T) {
	tp := &memoryTransport{}
	u, err := New(tp)
	require.NoError(t, err)
	_ = u

	options := mustParseRequest(t, ""+
		"OPTIONS sip:bob@biloxi.example.com SIP/2.0\r\n"+
		"Via: SIP/2.0/UDP 10.0.0.1:5060;branch=z9hG4bKoptions1\r\n"+
		"Max-Forwards: 70\r\n"+
		"From: <sip:alice@atlanta.example.com>;tag=opttag\r\n"+
		"To: <sip:bob@biloxi.example.com>\r\n"+
		"Call-ID: options-call@atlanta.example.com\r\n"+
		"CSeq: 1 OPTIONS\r\n"+
		"Content-Length: 0\r\n"+
		"\r\n")
	tp.deliver(options, fakeAddr("10.0.0.1:5060"))

	resp := tp.last()
	require.NotNil(t, resp)
	assert.Equal(t, 200, resp.StatusCode)
	allow, ok := resp.Headers.First("allow")
	require.True(t, ok)
	assert.Contains(t, allow, "INVITE")
}

// TestUAS_UnknownMethod_Returns405 covers the default dispatch branch.
func TestUAS_UnknownMethod_Returns405(t *testing.T) {
	tp := &memoryTransport{}
	u, err := New(tp)
	require.NoError(t, err)
	_ = u

	msg := mustParseRequest(t, ""+
		"SUBSCRIBE sip:bob@biloxi.example.com SIP/2.0\r\n"+
		"Via: SIP/2.0/UDP 10.0.0.1:5060;branch=z9hG4bKsub1\r\n"+
		"Max-Forwards: 70\r\n"+
		"From: <sip:alice@atlanta.example.com>;tag=subtag\r\n"+
		"To: <sip:bob@biloxi.example.com>\r\n"+
		"Call-ID: subscribe-call@atlanta.example.com\r\n"+
		"CSeq: 1 SUBSCRIBE\r\n"+
		"Content-Length: 0\r\n"+
		"\r\n")
	tp.deliver(msg, fakeAddr("10.0.0.1:5060"))

	resp := tp.last()
	require.NotNil(t, resp)
	assert.Equal(t, 405, resp.StatusCode)
	to, ok := resp.Headers.First("to")
	require.True(t, ok)
	assert.Contains(t, to, "tag=")
}
