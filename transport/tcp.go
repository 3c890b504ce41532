package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosipua/sipua/sip"
)

// TCPTransport implements Transport over TCP with explicit message framing:
// read headers until a blank line, then read exactly Content-Length bytes
// (§6.1). Connections are pooled by host:port and reused for outbound
// in-dialog requests on the assumption that the dialog's peer is still
// reachable on the same connection; a write failure evicts the pooled
// entry rather than retrying (§11 Open Question (d)).
type TCPTransport struct {
	laddr    string
	listener *net.TCPListener
	handler  MessageHandler
	pool     *connectionPool
	log      zerolog.Logger
}

func NewTCPTransport(laddr string) *TCPTransport {
	return &TCPTransport{
		laddr: laddr,
		pool:  newConnectionPool(),
		log:   log.Logger.With().Str("caller", "transport<TCP>").Logger(),
	}
}

func (t *TCPTransport) OnMessage(h MessageHandler) { t.handler = h }

func (t *TCPTransport) Start(ctx context.Context) error {
	addr, err := net.ResolveTCPAddr("tcp", t.laddr)
	if err != nil {
		return fmt.Errorf("transport/tcp: resolve %q: %w", t.laddr, err)
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("transport/tcp: listen %q: %w", t.laddr, err)
	}
	t.listener = l

	go t.acceptLoop(ctx)
	return nil
}

func (t *TCPTransport) acceptLoop(ctx context.Context) {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			return
		}
		t.pool.put(conn.RemoteAddr().String(), conn)
		go t.serveConn(ctx, conn)
	}
}

func (t *TCPTransport) serveConn(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr()
	defer func() {
		t.pool.evict(remote.String())
		_ = conn.Close()
	}()

	r := bufio.NewReader(conn)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, err := readFramedMessage(r)
		if err != nil {
			return
		}
		msg, err := sip.ParseMessage(raw)
		if err != nil {
			t.log.Warn().Err(err).Str("source", remote.String()).Msg("dropping unparseable TCP frame")
			continue
		}
		if t.handler != nil {
			t.handler(msg, remote)
		}
	}
}

// readFramedMessage reads one SIP message off r: header lines up to the
// blank-line terminator, then exactly Content-Length (or compact "l")
// bytes of body.
func readFramedMessage(r *bufio.Reader) ([]byte, error) {
	var header bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		header.WriteString(line)
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
	}

	contentLength := parseContentLength(header.String())
	body := make([]byte, contentLength)
	if contentLength > 0 {
		if _, err := readFull(r, body); err != nil {
			return nil, err
		}
	}

	full := make([]byte, 0, header.Len()+len(body))
	full = append(full, header.Bytes()...)
	full = append(full, body...)
	return full, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func parseContentLength(headerBlock string) int {
	for _, line := range strings.Split(headerBlock, "\n") {
		line = strings.TrimRight(line, "\r")
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "content-length" || name == "l" {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err == nil {
				return n
			}
		}
	}
	return 0
}

func (t *TCPTransport) Send(msg fmt.Stringer, addr net.Addr) error {
	conn, err := t.dial(addr.String())
	if err != nil {
		return err
	}
	data := []byte(msg.String())
	if _, err := conn.Write(data); err != nil {
		t.pool.evict(addr.String())
		return fmt.Errorf("transport/tcp: write to %q: %w", addr.String(), err)
	}
	return nil
}

func (t *TCPTransport) dial(addr string) (net.Conn, error) {
	if conn, ok := t.pool.get(addr); ok {
		return conn, nil
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport/tcp: dial %q: %w", addr, err)
	}
	t.pool.put(addr, conn)
	return conn, nil
}

func (t *TCPTransport) SendReply(resp *sip.Response) error {
	dest, err := replyDestination(resp)
	if err != nil {
		return err
	}
	addr, err := net.ResolveTCPAddr("tcp", dest)
	if err != nil {
		return fmt.Errorf("transport/tcp: resolve reply destination %q: %w", dest, err)
	}
	return t.Send(resp, addr)
}

func (t *TCPTransport) Stop() error {
	t.pool.closeAll()
	if t.listener == nil {
		return nil
	}
	return t.listener.Close()
}
