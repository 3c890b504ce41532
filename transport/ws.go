package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosipua/sipua/sip"
)

// webSocketProtocols is the Sec-WebSocket-Protocol value SIP-over-WS peers
// are expected to negotiate (RFC 7118), matching the teacher's
// WebSocketProtocols default (transport/ws.go).
var webSocketProtocols = []string{"sip"}

// WSTransport is the additive third concrete Transport (§6.1, §10.2): one
// WS text/binary frame is one SIP message, with no Content-Length-based
// re-framing needed since the WS layer already frames messages.
type WSTransport struct {
	laddr    string
	listener net.Listener
	handler  MessageHandler
	pool     *connectionPool
	log      zerolog.Logger
}

func NewWSTransport(laddr string) *WSTransport {
	return &WSTransport{
		laddr: laddr,
		pool:  newConnectionPool(),
		log:   log.Logger.With().Str("caller", "transport<WS>").Logger(),
	}
}

func (t *WSTransport) OnMessage(h MessageHandler) { t.handler = h }

func (t *WSTransport) Start(ctx context.Context) error {
	l, err := net.Listen("tcp", t.laddr)
	if err != nil {
		return fmt.Errorf("transport/ws: listen %q: %w", t.laddr, err)
	}
	t.listener = l

	go t.acceptLoop(ctx)
	return nil
}

func (t *WSTransport) acceptLoop(ctx context.Context) {
	header := ws.HandshakeHeaderHTTP(http.Header{"Sec-WebSocket-Protocol": webSocketProtocols})
	upgrader := ws.Upgrader{
		OnBeforeUpgrade: func() (ws.HandshakeHeader, error) { return header, nil },
	}

	for {
		conn, err := t.listener.Accept()
		if err != nil {
			return
		}
		if _, err := upgrader.Upgrade(conn); err != nil {
			t.log.Warn().Err(err).Msg("WS handshake failed")
			_ = conn.Close()
			continue
		}
		t.pool.put(conn.RemoteAddr().String(), conn)
		go t.serveConn(ctx, conn)
	}
}

func (t *WSTransport) serveConn(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr()
	defer func() {
		t.pool.evict(remote.String())
		_ = conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		data, _, err := wsutil.ReadClientData(conn)
		if err != nil {
			return
		}

		msg, err := sip.ParseMessage(data)
		if err != nil {
			t.log.Warn().Err(err).Str("source", remote.String()).Msg("dropping unparseable WS frame")
			continue
		}
		if t.handler != nil {
			t.handler(msg, remote)
		}
	}
}

func (t *WSTransport) Send(msg fmt.Stringer, addr net.Addr) error {
	conn, ok := t.pool.get(addr.String())
	if !ok {
		return fmt.Errorf("transport/ws: no open connection to %q", addr.String())
	}
	data := []byte(msg.String())
	if err := wsutil.WriteServerMessage(conn, ws.OpText, data); err != nil {
		t.pool.evict(addr.String())
		return fmt.Errorf("transport/ws: write to %q: %w", addr.String(), err)
	}
	return nil
}

func (t *WSTransport) SendReply(resp *sip.Response) error {
	dest, err := replyDestination(resp)
	if err != nil {
		return err
	}
	return t.Send(resp, wsAddr(dest))
}

func (t *WSTransport) Stop() error {
	t.pool.closeAll()
	if t.listener == nil {
		return nil
	}
	return t.listener.Close()
}

// wsAddr is a minimal net.Addr so SendReply can look a pooled connection up
// by "host:port" without a live socket of its own.
type wsAddr string

func (a wsAddr) Network() string { return "ws" }
func (a wsAddr) String() string  { return string(a) }
