package gateway

import (
	"crypto/rand"
	"encoding/hex"
)

// NewRandomHex returns 2*nBytes hex characters of crypto randomness.
// The gateway stamps connection ids and outbound envelope ids with it;
// those only need uniqueness, not secrecy. nBytes <= 0 falls back to
// 16 bytes (32 hex chars).
func NewRandomHex(nBytes int) string {
	if nBytes <= 0 {
		nBytes = 16
	}

	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		// An empty id is immediately visible in logs; there is nothing
		// sensible to retry when the entropy source is broken.
		return ""
	}
	return hex.EncodeToString(b)
}
