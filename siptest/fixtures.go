package siptest

import (
	"testing"

	"github.com/gosipua/sipua/sip"
)

// MustParseRequest parses raw as a SIP request or fails the test.
func MustParseRequest(t testing.TB, raw string) *sip.Request {
	t.Helper()
	msg, err := sip.ParseMessage([]byte(raw))
	if err != nil {
		t.Fatalf("siptest: parse request: %v", err)
	}
	req, ok := msg.(*sip.Request)
	if !ok {
		t.Fatalf("siptest: expected request, got %T", msg)
	}
	return req
}

// MustParseResponse parses raw as a SIP response or fails the test.
func MustParseResponse(t testing.TB, raw string) *sip.Response {
	t.Helper()
	msg, err := sip.ParseMessage([]byte(raw))
	if err != nil {
		t.Fatalf("siptest: parse response: %v", err)
	}
	resp, ok := msg.(*sip.Response)
	if !ok {
		t.Fatalf("siptest: expected response, got %T", msg)
	}
	return resp
}

// BasicInvite returns a minimal, RFC 3261 §24.1-style example INVITE with
// the given Call-ID, From-tag and Contact, useful as a dialog-creation
// fixture across package tests.
func BasicInvite(callID, fromTag, contact string) string {
	return "" +
		"INVITE sip:bob@biloxi.example.com SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP 10.0.0.1:5060;branch=z9hG4bKnashds8\r\n" +
		"Max-Forwards: 70\r\n" +
		"From: \"Alice\" <sip:alice@atlanta.example.com>;tag=" + fromTag + "\r\n" +
		"To: <sip:bob@biloxi.example.com>\r\n" +
		"Call-ID: " + callID + "\r\n" +
		"CSeq: 314159 INVITE\r\n" +
		"Contact: <" + contact + ">\r\n" +
		"Content-Type: application/sdp\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n"
}
