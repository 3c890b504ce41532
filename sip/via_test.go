package sip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVia_Basic(t *testing.T) {
	v, err := ParseVia("SIP/2.0/UDP pc33.atlanta.example.com:5060;branch=z9hG4bK776asdhds")
	require.NoError(t, err)
	assert.Equal(t, "UDP", v.Transport)
	assert.Equal(t, "pc33.atlanta.example.com", v.Host)
	assert.Equal(t, 5060, v.Port)
	assert.Equal(t, "z9hG4bK776asdhds", v.Branch())
}

func TestParseVia_LowercaseTransportUpperCased(t *testing.T) {
	v, err := ParseVia("SIP/2.0/tcp 10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "TCP", v.Transport)
}

func TestParseVia_ReceivedRport(t *testing.T) {
	v, err := ParseVia("SIP/2.0/UDP 10.0.0.1:5060;received=203.0.113.5;rport=54321;branch=z9hG4bK1")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.5", v.Received())
	rport, ok := v.RPort()
	assert.True(t, ok)
	assert.Equal(t, "54321", rport)
}

func TestParseVia_RportFlagNoValue(t *testing.T) {
	v, err := ParseVia("SIP/2.0/UDP 10.0.0.1:5060;rport;branch=z9hG4bK1")
	require.NoError(t, err)
	rport, ok := v.RPort()
	assert.True(t, ok)
	assert.Equal(t, "", rport)
}

func TestParseVia_BracketedIPv6Host(t *testing.T) {
	v, err := ParseVia("SIP/2.0/UDP [2001:db8::1]:5060;branch=z9hG4bK1")
	require.NoError(t, err)
	assert.Equal(t, "[2001:db8::1]", v.Host)
	assert.Equal(t, 5060, v.Port)
}
