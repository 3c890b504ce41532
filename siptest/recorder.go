// Package siptest adapts the teacher's connRecorder/ServerTxRecorder test
// doubles (siptest/conn_recorder.go, siptest/server_tx_recorder.go) to this
// library's simpler Transport contract: a RecordingTransport captures every
// outbound message instead of writing to a socket, and Deliver injects
// inbound traffic the way a real transport's read loop would.
package siptest

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/gosipua/sipua/sip"
	"github.com/gosipua/sipua/transport"
)

// RecordingTransport is a transport.Transport double for uas/uac tests.
type RecordingTransport struct {
	mu       sync.Mutex
	handler  transport.MessageHandler
	Sent     []*sip.Response
	SentReqs []*sip.Request
	Started  bool
	Stopped  bool
}

func NewRecordingTransport() *RecordingTransport {
	return &RecordingTransport{}
}

func (t *RecordingTransport) Start(ctx context.Context) error {
	t.Started = true
	return nil
}

func (t *RecordingTransport) Stop() error {
	t.Stopped = true
	return nil
}

func (t *RecordingTransport) OnMessage(h transport.MessageHandler) {
	t.handler = h
}

func (t *RecordingTransport) Send(msg fmt.Stringer, addr net.Addr) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if req, ok := msg.(*sip.Request); ok {
		t.SentReqs = append(t.SentReqs, req)
	}
	return nil
}

func (t *RecordingTransport) SendReply(resp *sip.Response) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Sent = append(t.Sent, resp)
	return nil
}

// Deliver hands req to the registered handler as if it had just arrived
// from source.
func (t *RecordingTransport) Deliver(req *sip.Request, source net.Addr) {
	t.handler(req, source)
}

// LastResponse returns the most recently recorded SendReply call, or nil.
func (t *RecordingTransport) LastResponse() *sip.Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.Sent) == 0 {
		return nil
	}
	return t.Sent[len(t.Sent)-1]
}

// Statuses returns the status codes of every recorded SendReply call, in
// order.
func (t *RecordingTransport) Statuses() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]int, len(t.Sent))
	for i, r := range t.Sent {
		out[i] = r.StatusCode
	}
	return out
}

// LoopbackAddr is a fixed net.Addr fixtures can use as a message source.
type LoopbackAddr string

func (a LoopbackAddr) Network() string { return "udp" }
func (a LoopbackAddr) String() string  { return string(a) }
