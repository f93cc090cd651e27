package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Header names carried by every authenticated request
const (
	HeaderContentType = "Content-Type"
	HeaderKey         = "X-COINEX-KEY"
	HeaderTimestamp   = "X-COINEX-TIMESTAMP"
	HeaderSign        = "X-COINEX-SIGN"
)

// Signer computes request signatures for the CoinEx v2 API.
// It holds only the secret and is safe for concurrent use.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer keyed by the raw bytes of secret
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, &SigningError{Reason: "secret must not be empty"}
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the lowercase hex HMAC-SHA256 of
// method + pathAndQuery + body + timestamp.
func (s *Signer) Sign(method, pathAndQuery, body string, timestamp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(method))
	mac.Write([]byte(pathAndQuery))
	mac.Write([]byte(body))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateTimestamp returns t in milliseconds since the Unix epoch
func GenerateTimestamp(t time.Time) int64 {
	return t.UnixMilli()
}
