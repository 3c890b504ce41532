package sip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inviteFixture = "INVITE sip:bob@biloxi.example.com SIP/2.0\r\n" +
	"Via: SIP/2.0/UDP pc33.atlanta.example.com:5060;branch=z9hG4bK776asdhds\r\n" +
	"Max-Forwards: 70\r\n" +
	"To: Bob <sip:bob@biloxi.example.com>\r\n" +
	"From: Alice <sip:alice@atlanta.example.com>;tag=1928301774\r\n" +
	"Call-ID: a84b4c76e66710@pc33.atlanta.example.com\r\n" +
	"CSeq: 314159 INVITE\r\n" +
	"Contact: <sip:alice@pc33.atlanta.example.com>\r\n" +
	"Content-Type: application/sdp\r\n" +
	"Content-Length: 4\r\n" +
	"\r\n" +
	"test"

func TestParseMessage_Invite(t *testing.T) {
	msg, err := ParseMessage([]byte(inviteFixture))
	require.NoError(t, err)
	req, ok := msg.(*Request)
	require.True(t, ok)
	assert.Equal(t, INVITE, req.Method)
	assert.Equal(t, "bob@biloxi.example.com", req.Recipient.User+"@"+req.Recipient.Host)
	assert.Equal(t, "a84b4c76e66710@pc33.atlanta.example.com", req.CallID())
	cseq := req.CSeq()
	require.NotNil(t, cseq)
	assert.EqualValues(t, 314159, cseq.Seq)
	assert.Equal(t, INVITE, cseq.Method)
	from := req.From()
	require.NotNil(t, from)
	assert.Equal(t, "1928301774", from.Tag())
	assert.Equal(t, []byte("test"), req.Body())
}

func TestParseMessage_LineFolding(t *testing.T) {
	raw := "INVITE sip:bob@biloxi.example.com SIP/2.0\r\n" +
		"Subject: I know\r\n" +
		" you are there,\r\n" +
		"\tpick up the phone\r\n" +
		"Call-ID: 1@x\r\n" +
		"CSeq: 1 INVITE\r\n" +
		"\r\n"
	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)
	req := msg.(*Request)
	subj, ok := req.Headers.First("subject")
	require.True(t, ok)
	assert.Equal(t, "I know you are there, pick up the phone", subj)
}

func TestParseMessage_CompactHeaders(t *testing.T) {
	raw := "INVITE sip:bob@biloxi.example.com SIP/2.0\r\n" +
		"v: SIP/2.0/UDP pc33.atlanta.example.com;branch=z9hG4bK1\r\n" +
		"i: 1@x\r\n" +
		"l: 0\r\n" +
		"\r\n"
	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)
	req := msg.(*Request)
	assert.Len(t, req.ViaList(), 1)
	assert.Equal(t, "1@x", req.CallID())
}

func TestParseMessage_MultiValueRespectsBracketsAndQuotes(t *testing.T) {
	raw := "INVITE sip:bob@biloxi.example.com SIP/2.0\r\n" +
		"Contact: \"Display, Name\" <sip:a@b>;q=0.1, <sip:c@d;param=1,2>\r\n" +
		"Call-ID: 1@x\r\n" +
		"\r\n"
	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)
	req := msg.(*Request)
	vals := req.Headers.Values("contact")
	require.Len(t, vals, 2)
	assert.Contains(t, vals[0], "Display, Name")
}

func TestRequest_RoundTrip(t *testing.T) {
	msg, err := ParseMessage([]byte(inviteFixture))
	require.NoError(t, err)
	req := msg.(*Request)

	serialized := req.String()
	msg2, err := ParseMessage([]byte(serialized))
	require.NoError(t, err)
	req2 := msg2.(*Request)

	assert.Equal(t, req.Method, req2.Method)
	assert.Equal(t, req.CallID(), req2.CallID())
	assert.Equal(t, req.CSeq().String(), req2.CSeq().String())
	assert.Equal(t, req.Body(), req2.Body())
	assert.Len(t, req2.ViaList(), 1)
}

func TestSetBody_RecomputesContentLength(t *testing.T) {
	req := NewRequest(INVITE, &URI{Host: "biloxi.example.com"})
	req.Headers.Set("Content-Length", "999")
	req.SetBody([]byte("hello"))
	v, _ := req.Headers.First("content-length")
	assert.Equal(t, "5", v)
}

func TestParseMessage_ResponseStartLine(t *testing.T) {
	raw := "SIP/2.0 200 OK\r\nCall-ID: 1@x\r\n\r\n"
	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)
	resp, ok := msg.(*Response)
	require.True(t, ok)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "OK", resp.Reason)
	assert.True(t, resp.IsSuccess())
}
