// Package media ships a minimal reference MediaBridge (§6.2): given a
// negotiated SDP answer, it binds a UDP RTP socket and packetizes/
// depacketizes audio with github.com/pion/rtp. It exists purely as a
// demonstrable bridge for tests/examples; the core SIP/SDP/dialog
// components never import this package (§6.2, §10.2).
package media

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosipua/sipua/negotiate"
	"github.com/gosipua/sipua/sdp"
)

// Bridge is the MediaBridge contract (§6.2): OnAudio/OnDTMF callbacks plus
// SendAudio/SendAudioPCM/SendDTMF/UpdateRemote/Close.
type Bridge interface {
	OnAudio(func(pcm []byte, timestamp uint32))
	OnDTMF(func(digit rune, durationMs int))
	SendAudio(payload []byte) error
	SendAudioPCM(pcm []byte) error
	SendDTMF(digit rune, durationMs int) error
	UpdateRemote(addr *net.UDPAddr) error
	Close() error
}

// RTPBridge is the reference Bridge implementation: one UDP socket carries
// RTP for a single negotiated audio media line.
type RTPBridge struct {
	mu     sync.Mutex
	conn   *net.UDPConn
	remote *net.UDPAddr

	pt          uint8
	clockRate   int
	dtmfPT      uint8
	ssrc        uint32
	seq         uint16
	timestamp   atomic.Uint32
	onAudio     func(pcm []byte, timestamp uint32)
	onDTMF      func(digit rune, durationMs int)

	log zerolog.Logger

	cancel context.CancelFunc
}

// NewRTPBridge negotiates offer against opts and binds a UDP socket at
// (opts.LocalIP, opts.RTPPort), returning both the bridge and the SDP
// answer the caller should send back (§6.2).
func NewRTPBridge(offer *sdp.Session, opts negotiate.Options) (*RTPBridge, *negotiate.Result, error) {
	result, err := negotiate.Negotiate(offer, opts)
	if err != nil {
		return nil, nil, err
	}

	laddr := &net.UDPAddr{IP: net.ParseIP(opts.LocalIP), Port: opts.RTPPort}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, nil, fmt.Errorf("media: bind RTP socket: %w", err)
	}

	b := &RTPBridge{
		conn:      conn,
		pt:        result.ChosenPT,
		clockRate: clockRateFor(result.ChosenPT),
		log:       log.Logger.With().Str("caller", "media.RTPBridge").Logger(),
	}
	if result.DTMFOffered {
		b.dtmfPT = opts.DTMFPayloadType
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go b.readLoop(ctx)

	return b, result, nil
}

func clockRateFor(pt uint8) int {
	switch pt {
	case 0, 8:
		return 8000
	case 9:
		return 8000
	case 4:
		return 8000
	case 18:
		return 8000
	default:
		return 8000
	}
}

func (b *RTPBridge) OnAudio(f func(pcm []byte, timestamp uint32)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onAudio = f
}

func (b *RTPBridge) OnDTMF(f func(digit rune, durationMs int)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDTMF = f
}

func (b *RTPBridge) readLoop(ctx context.Context) {
	buf := make([]byte, 1500)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, _, err := b.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			b.log.Warn().Err(err).Msg("dropping unparseable RTP packet")
			continue
		}

		if b.dtmfPT != 0 && pkt.PayloadType == b.dtmfPT {
			b.handleDTMF(pkt.Payload)
			continue
		}

		b.mu.Lock()
		cb := b.onAudio
		b.mu.Unlock()
		if cb != nil {
			cb(pkt.Payload, pkt.Timestamp)
		}
	}
}

// handleDTMF decodes an RFC 4733 telephone-event payload: 1 byte event,
// 1 byte end/volume flags, 2 bytes duration.
func (b *RTPBridge) handleDTMF(payload []byte) {
	if len(payload) < 4 {
		return
	}
	event := payload[0]
	endBit := payload[1]&0x80 != 0
	if !endBit {
		return
	}
	durationMs := int(uint16(payload[2])<<8|uint16(payload[3])) * 1000 / b.clockRate

	b.mu.Lock()
	cb := b.onDTMF
	b.mu.Unlock()
	if cb != nil {
		cb(dtmfDigit(event), durationMs)
	}
}

func dtmfDigit(event byte) rune {
	switch {
	case event <= 9:
		return rune('0' + event)
	case event == 10:
		return '*'
	case event == 11:
		return '#'
	case event >= 12 && event <= 15:
		return rune('A' + (event - 12))
	default:
		return '?'
	}
}

// SendAudio transmits a pre-encoded RTP payload at the bridge's negotiated
// payload type.
func (b *RTPBridge) SendAudio(payload []byte) error {
	b.mu.Lock()
	remote := b.remote
	b.mu.Unlock()
	if remote == nil {
		return fmt.Errorf("media: no remote address set")
	}

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    b.pt,
			SequenceNumber: b.nextSeq(),
			Timestamp:      b.timestamp.Add(uint32(len(payload))),
			SSRC:           b.ssrc,
		},
		Payload: payload,
	}
	data, err := pkt.Marshal()
	if err != nil {
		return fmt.Errorf("media: marshal RTP packet: %w", err)
	}
	_, err = b.conn.WriteToUDP(data, remote)
	return err
}

// SendAudioPCM is an alias documenting that the caller is handing over raw
// PCM rather than an already-encoded payload; this reference bridge treats
// both identically since it does not implement a codec transcoder.
func (b *RTPBridge) SendAudioPCM(pcm []byte) error { return b.SendAudio(pcm) }

// SendDTMF transmits a single RFC 4733 telephone-event, start+end packets
// collapsed into one end-marked packet for simplicity.
func (b *RTPBridge) SendDTMF(digit rune, durationMs int) error {
	if b.dtmfPT == 0 {
		return fmt.Errorf("media: DTMF not negotiated for this bridge")
	}
	event, err := dtmfEvent(digit)
	if err != nil {
		return err
	}

	durationUnits := uint16(durationMs * b.clockRate / 1000)
	payload := []byte{
		event,
		0x80, // end bit set, volume 0
		byte(durationUnits >> 8),
		byte(durationUnits),
	}

	b.mu.Lock()
	remote := b.remote
	b.mu.Unlock()
	if remote == nil {
		return fmt.Errorf("media: no remote address set")
	}

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    b.dtmfPT,
			SequenceNumber: b.nextSeq(),
			Timestamp:      b.timestamp.Load(),
			SSRC:           b.ssrc,
		},
		Payload: payload,
	}
	data, err := pkt.Marshal()
	if err != nil {
		return fmt.Errorf("media: marshal DTMF packet: %w", err)
	}
	_, err = b.conn.WriteToUDP(data, remote)
	return err
}

func dtmfEvent(digit rune) (byte, error) {
	switch {
	case digit >= '0' && digit <= '9':
		return byte(digit - '0'), nil
	case digit == '*':
		return 10, nil
	case digit == '#':
		return 11, nil
	case digit >= 'A' && digit <= 'D':
		return byte(12 + (digit - 'A')), nil
	default:
		return 0, fmt.Errorf("media: unsupported DTMF digit %q", digit)
	}
}

func (b *RTPBridge) nextSeq() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	return b.seq
}

// UpdateRemote repoints outbound RTP at addr, used after a re-INVITE moves
// the peer's media endpoint.
func (b *RTPBridge) UpdateRemote(addr *net.UDPAddr) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remote = addr
	return nil
}

func (b *RTPBridge) Close() error {
	b.cancel()
	return b.conn.Close()
}
