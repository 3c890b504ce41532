package media

import (
	"net"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosipua/sipua/negotiate"
	"github.com/gosipua/sipua/sdp"
)

func parseOffer(t *testing.T, raw string) *sdp.Session {
	t.Helper()
	s, err := sdp.Parse([]byte(raw))
	require.NoError(t, err)
	return s
}

const offerWithDTMF = "v=0\r\n" +
	"o=a 1 1 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"c=IN IP4 127.0.0.1\r\n" +
	"t=0 0\r\n" +
	"m=audio 30000 RTP/AVP 0 101\r\n" +
	"a=rtpmap:0 PCMU/8000\r\n" +
	"a=rtpmap:101 telephone-event/8000\r\n" +
	"a=fmtp:101 0-16\r\n"

func TestNewRTPBridge_BindsAndNegotiates(t *testing.T) {
	offer := parseOffer(t, offerWithDTMF)
	opts := negotiate.DefaultOptions()
	opts.LocalIP = "127.0.0.1"
	opts.RTPPort = 0
	opts.SessionID = "1"

	bridge, result, err := NewRTPBridge(offer, opts)
	require.NoError(t, err)
	defer bridge.Close()

	assert.EqualValues(t, 0, result.ChosenPT)
	assert.True(t, result.DTMFOffered)
	assert.NotZero(t, bridge.dtmfPT)
}

func TestRTPBridge_SendAudioRequiresRemote(t *testing.T) {
	offer := parseOffer(t, offerWithDTMF)
	opts := negotiate.DefaultOptions()
	opts.LocalIP = "127.0.0.1"
	opts.RTPPort = 0
	opts.SessionID = "1"

	bridge, _, err := NewRTPBridge(offer, opts)
	require.NoError(t, err)
	defer bridge.Close()

	err = bridge.SendAudio([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestRTPBridge_OnAudioCallback(t *testing.T) {
	offer := parseOffer(t, offerWithDTMF)
	opts := negotiate.DefaultOptions()
	opts.LocalIP = "127.0.0.1"
	opts.RTPPort = 0
	opts.SessionID = "1"

	bridge, _, err := NewRTPBridge(offer, opts)
	require.NoError(t, err)
	defer bridge.Close()

	received := make(chan []byte, 1)
	bridge.OnAudio(func(pcm []byte, timestamp uint32) {
		received <- pcm
	})

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    0,
			SequenceNumber: 1,
			Timestamp:      8000,
			SSRC:           0xabcd,
		},
		Payload: []byte{0xaa, 0xbb, 0xcc},
	}
	data, err := pkt.Marshal()
	require.NoError(t, err)

	sender, err := net.DialUDP("udp", nil, bridge.conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer sender.Close()
	_, err = sender.Write(data)
	require.NoError(t, err)

	select {
	case pcm := <-received:
		assert.Equal(t, []byte{0xaa, 0xbb, 0xcc}, pcm)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for OnAudio callback")
	}
}

func TestDtmfEventRoundTrip(t *testing.T) {
	cases := []rune{'0', '9', '*', '#', 'A', 'D'}
	for _, digit := range cases {
		event, err := dtmfEvent(digit)
		require.NoError(t, err)
		assert.Equal(t, digit, dtmfDigit(event))
	}
}
