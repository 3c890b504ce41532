package sip

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// BranchMagicCookie is the literal RFC 3261 requires at the start of every
// outbound Via branch.
const BranchMagicCookie = "z9hG4bK"

// GenerateBranch returns a fresh branch value: the magic cookie followed by
// 16 hex characters of cryptographic randomness (§6.5).
func GenerateBranch() string {
	return BranchMagicCookie + randHex(8)
}

// GenerateTag returns 16 hex characters of cryptographic randomness (§6.5).
func GenerateTag() string {
	return randHex(8)
}

// GenerateCallID returns "<uuid-v4>@<domain>" (§6.5).
func GenerateCallID(domain string) string {
	return uuid.New().String() + "@" + domain
}

func randHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
