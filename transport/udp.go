package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosipua/sipua/sip"
)

// MTU is the read-buffer size for inbound datagrams, grounded on the
// teacher's UDPMTUSize constant (transport/udp.go). An outbound message
// larger than MTU is still sent; Send only logs a warning.
const MTU = 1500

// UDPTransport implements Transport over a single bound UDP socket: one
// datagram is one message (§6.1).
type UDPTransport struct {
	conn    *net.UDPConn
	handler MessageHandler
	log     zerolog.Logger

	laddr string
}

// NewUDPTransport constructs a transport bound to laddr once Start runs.
func NewUDPTransport(laddr string) *UDPTransport {
	return &UDPTransport{
		laddr: laddr,
		log:   log.Logger.With().Str("caller", "transport<UDP>").Logger(),
	}
}

func (t *UDPTransport) OnMessage(h MessageHandler) { t.handler = h }

func (t *UDPTransport) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", t.laddr)
	if err != nil {
		return fmt.Errorf("transport/udp: resolve %q: %w", t.laddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("transport/udp: listen %q: %w", t.laddr, err)
	}
	t.conn = conn

	go t.readLoop(ctx)
	return nil
}

func (t *UDPTransport) readLoop(ctx context.Context) {
	buf := make([]byte, MTU)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, src, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])

		msg, err := sip.ParseMessage(data)
		if err != nil {
			t.log.Warn().Err(err).Str("source", src.String()).Msg("dropping unparseable UDP datagram")
			continue
		}
		if t.handler != nil {
			t.handler(msg, src)
		}
	}
}

func (t *UDPTransport) Send(msg fmt.Stringer, addr net.Addr) error {
	data := []byte(msg.String())
	if len(data) > MTU {
		t.log.Warn().Int("size", len(data)).Msg("outbound UDP message exceeds MTU")
	}
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		var err error
		udpAddr, err = net.ResolveUDPAddr("udp", addr.String())
		if err != nil {
			return fmt.Errorf("transport/udp: resolve destination %q: %w", addr.String(), err)
		}
	}
	_, err := t.conn.WriteToUDP(data, udpAddr)
	return err
}

func (t *UDPTransport) SendReply(resp *sip.Response) error {
	dest, err := replyDestination(resp)
	if err != nil {
		return err
	}
	addr, err := net.ResolveUDPAddr("udp", dest)
	if err != nil {
		return fmt.Errorf("transport/udp: resolve reply destination %q: %w", dest, err)
	}
	return t.Send(resp, addr)
}

func (t *UDPTransport) Stop() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
