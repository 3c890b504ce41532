package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosipua/sipua/sip"
)

func mustParseRequest(t *testing.T, raw string) *sip.Request {
	t.Helper()
	msg, err := sip.ParseMessage([]byte(raw))
	require.NoError(t, err)
	req, ok := msg.(*sip.Request)
	require.True(t, ok)
	return req
}

func mustParseResponse(t *testing.T, raw string) *sip.Response {
	t.Helper()
	msg, err := sip.ParseMessage([]byte(raw))
	require.NoError(t, err)
	resp, ok := msg.(*sip.Response)
	require.True(t, ok)
	return resp
}

const clientInvite = "INVITE sip:bob@biloxi.example.com SIP/2.0\r\n" +
	"Via: SIP/2.0/UDP pc33.atlanta.example.com;branch=z9hG4bKnashds8\r\n" +
	"From: Alice <sip:alice@atlanta.example.com>;tag=1928301774\r\n" +
	"To: Bob <sip:bob@biloxi.example.com>\r\n" +
	"Call-ID: a84b4c76e66710@pc33.atlanta.example.com\r\n" +
	"CSeq: 314159 INVITE\r\n" +
	"Content-Length: 0\r\n\r\n"

func responseTo(status, reason string) string {
	return "SIP/2.0 " + status + " " + reason + "\r\n" +
		"Via: SIP/2.0/UDP pc33.atlanta.example.com;branch=z9hG4bKnashds8\r\n" +
		"From: Alice <sip:alice@atlanta.example.com>;tag=1928301774\r\n" +
		"To: Bob <sip:bob@biloxi.example.com>;tag=314159-server\r\n" +
		"Call-ID: a84b4c76e66710@pc33.atlanta.example.com\r\n" +
		"CSeq: 314159 INVITE\r\n" +
		"Content-Length: 0\r\n\r\n"
}

func TestClientTransaction_ProvisionalThenSuccess(t *testing.T) {
	table := NewTable()
	req := mustParseRequest(t, clientInvite)

	entry, ok := table.CreateClient(req)
	require.True(t, ok)
	assert.Equal(t, StateTrying, entry.State())

	trying := mustParseResponse(t, responseTo("100", "Trying"))
	matched, ok := table.MatchResponse(trying)
	require.True(t, ok)
	assert.Same(t, entry, matched)
	assert.Equal(t, StateProceeding, entry.State())

	ok200 := mustParseResponse(t, responseTo("200", "OK"))
	matched, ok = table.MatchResponse(ok200)
	require.True(t, ok)
	assert.Same(t, entry, matched)
	assert.Equal(t, StateCompleted, entry.State())
}

func TestClientTransaction_NonInviteSuccessTerminatesImmediately(t *testing.T) {
	table := NewTable()
	req := mustParseRequest(t, "OPTIONS sip:bob@biloxi.example.com SIP/2.0\r\n"+
		"Via: SIP/2.0/UDP pc33.atlanta.example.com;branch=z9hG4bKoptions1\r\n"+
		"From: Alice <sip:alice@atlanta.example.com>;tag=1\r\n"+
		"To: Bob <sip:bob@biloxi.example.com>\r\n"+
		"Call-ID: opt1@pc33.atlanta.example.com\r\n"+
		"CSeq: 1 OPTIONS\r\n"+
		"Content-Length: 0\r\n\r\n")
	entry, ok := table.CreateClient(req)
	require.True(t, ok)

	resp := mustParseResponse(t, "SIP/2.0 200 OK\r\n"+
		"Via: SIP/2.0/UDP pc33.atlanta.example.com;branch=z9hG4bKoptions1\r\n"+
		"From: Alice <sip:alice@atlanta.example.com>;tag=1\r\n"+
		"To: Bob <sip:bob@biloxi.example.com>;tag=2\r\n"+
		"Call-ID: opt1@pc33.atlanta.example.com\r\n"+
		"CSeq: 1 OPTIONS\r\n"+
		"Content-Length: 0\r\n\r\n")
	_, ok = table.MatchResponse(resp)
	require.True(t, ok)
	assert.Equal(t, StateTerminated, entry.State())
}

func TestClientTransaction_ErrorResponseCompletes(t *testing.T) {
	table := NewTable()
	req := mustParseRequest(t, clientInvite)
	entry, ok := table.CreateClient(req)
	require.True(t, ok)

	resp := mustParseResponse(t, responseTo("486", "Busy Here"))
	_, ok = table.MatchResponse(resp)
	require.True(t, ok)
	assert.Equal(t, StateCompleted, entry.State())
}

func TestMatchResponse_NoMatch(t *testing.T) {
	table := NewTable()
	resp := mustParseResponse(t, responseTo("200", "OK"))
	_, ok := table.MatchResponse(resp)
	assert.False(t, ok)
}

func TestServerTransaction_RetransmissionDetection(t *testing.T) {
	table := NewTable()
	req := mustParseRequest(t, clientInvite)

	entry, ok := table.CreateServer(req)
	require.True(t, ok)

	matched, ok := table.MatchRequest(req)
	require.True(t, ok)
	assert.Same(t, entry, matched)
}

func TestPruneTerminated(t *testing.T) {
	table := NewTable()
	req := mustParseRequest(t, "OPTIONS sip:bob@biloxi.example.com SIP/2.0\r\n"+
		"Via: SIP/2.0/UDP pc33.atlanta.example.com;branch=z9hG4bKp1\r\n"+
		"From: Alice <sip:alice@atlanta.example.com>;tag=1\r\n"+
		"To: Bob <sip:bob@biloxi.example.com>\r\n"+
		"Call-ID: prune1@pc33.atlanta.example.com\r\n"+
		"CSeq: 1 OPTIONS\r\n"+
		"Content-Length: 0\r\n\r\n")
	entry, ok := table.CreateClient(req)
	require.True(t, ok)

	resp := mustParseResponse(t, "SIP/2.0 200 OK\r\n"+
		"Via: SIP/2.0/UDP pc33.atlanta.example.com;branch=z9hG4bKp1\r\n"+
		"From: Alice <sip:alice@atlanta.example.com>;tag=1\r\n"+
		"To: Bob <sip:bob@biloxi.example.com>;tag=2\r\n"+
		"Call-ID: prune1@pc33.atlanta.example.com\r\n"+
		"CSeq: 1 OPTIONS\r\n"+
		"Content-Length: 0\r\n\r\n")
	_, ok = table.MatchResponse(resp)
	require.True(t, ok)
	assert.Equal(t, StateTerminated, entry.State())

	table.PruneTerminated()
	_, stillThere := table.client.get(entry.Key)
	assert.False(t, stillThere)
}
