package sdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const offerFixture = "v=0\r\n" +
	"o=alice 2890844526 2890844526 IN IP4 host.atlanta.example.com\r\n" +
	"s=-\r\n" +
	"c=IN IP4 host.atlanta.example.com\r\n" +
	"t=0 0\r\n" +
	"m=audio 49170 RTP/AVP 0 8 101\r\n" +
	"a=rtpmap:0 PCMU/8000\r\n" +
	"a=rtpmap:8 PCMA/8000\r\n" +
	"a=rtpmap:101 telephone-event/8000\r\n" +
	"a=fmtp:101 0-16\r\n" +
	"a=sendrecv\r\n"

func TestParse_Offer(t *testing.T) {
	s, err := Parse([]byte(offerFixture))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Version)
	assert.Equal(t, "host.atlanta.example.com", s.Origin.Address)
	require.Len(t, s.Media, 1)
	audio := s.Media[0]
	assert.Equal(t, "audio", audio.Media)
	assert.Equal(t, 49170, audio.Port)
	require.Len(t, audio.Codecs, 3)
	assert.Equal(t, "PCMU", audio.Codecs[0].Name)
	assert.EqualValues(t, 8000, audio.Codecs[0].ClockRate)
	pt, ok := audio.HasTelephoneEvent()
	assert.True(t, ok)
	assert.EqualValues(t, 101, pt)
	assert.Equal(t, SendRecv, audio.Direction())
}

func TestParse_StaticPayloadTypeFallback(t *testing.T) {
	raw := "v=0\r\no=a 1 1 IN IP4 1.2.3.4\r\ns=-\r\nc=IN IP4 1.2.3.4\r\nt=0 0\r\nm=audio 4000 RTP/AVP 0\r\n"
	s, err := Parse([]byte(raw))
	require.NoError(t, err)
	c, ok := s.Media[0].CodecByPayloadType(0)
	require.True(t, ok)
	assert.Equal(t, "PCMU", c.Name)
	assert.EqualValues(t, 8000, c.ClockRate)
}

func TestParse_BandwidthToleranceS7(t *testing.T) {
	raw := "v=0\r\n" +
		"o=a 1 1 IN IP4 1.2.3.4\r\n" +
		"s=-\r\n" +
		"c=IN IP4 1.2.3.4\r\n" +
		"b=AS:256\r\n" +
		"t=0 0\r\n" +
		"m=audio 4000 RTP/AVP 0\r\n" +
		"b=TIAS:1024000\r\n"
	s, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, s.Bandwidth, 1)
	assert.Equal(t, Bandwidth{Type: "AS", Value: 256}, s.Bandwidth[0])
	require.Len(t, s.Media[0].Bandwidth, 1)
	assert.Equal(t, Bandwidth{Type: "TIAS", Value: 1024000}, s.Media[0].Bandwidth[0])
}

func TestRoundTrip_PreservesCoreFields(t *testing.T) {
	s, err := Parse([]byte(offerFixture))
	require.NoError(t, err)

	s2, err := Parse(s.Bytes())
	require.NoError(t, err)

	assert.Equal(t, s.Version, s2.Version)
	assert.Equal(t, s.Origin, s2.Origin)
	assert.Equal(t, s.Connection, s2.Connection)
	require.Len(t, s2.Media, len(s.Media))
	for i := range s.Media {
		assert.Equal(t, s.Media[i].Port, s2.Media[i].Port)
		assert.Equal(t, s.Media[i].Proto, s2.Media[i].Proto)
		assert.Equal(t, s.Media[i].Formats, s2.Media[i].Formats)
		require.Len(t, s2.Media[i].Codecs, len(s.Media[i].Codecs))
		for j := range s.Media[i].Codecs {
			assert.Equal(t, s.Media[i].Codecs[j].PayloadType, s2.Media[i].Codecs[j].PayloadType)
			assert.Equal(t, s.Media[i].Codecs[j].Name, s2.Media[i].Codecs[j].Name)
			assert.Equal(t, s.Media[i].Codecs[j].ClockRate, s2.Media[i].Codecs[j].ClockRate)
		}
	}
}

func TestRTPAddress(t *testing.T) {
	s, err := Parse([]byte(offerFixture))
	require.NoError(t, err)
	addr, port, ok := s.RTPAddress()
	require.True(t, ok)
	assert.Equal(t, "host.atlanta.example.com", addr)
	assert.Equal(t, 49170, port)
}
