package coinify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"
)

// lastNonce is shared by every Signer in the process so two clients holding
// the same key never reuse a nonce.
var lastNonce atomic.Int64

// Signer produces Coinify Authorization header values.
type Signer struct {
	apiKey    string
	apiSecret []byte
	now       func() time.Time
}

// NewSigner returns a Signer for the given credentials.
func NewSigner(apiKey, apiSecret string) *Signer {
	return &Signer{
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		now:       time.Now,
	}
}

// APIKey returns the public key the signer asserts.
func (s *Signer) APIKey() string { return s.apiKey }

// String hides the secret from fmt and loggers.
func (s *Signer) String() string {
	return fmt.Sprintf("coinify.Signer{apikey=%q}", s.apiKey)
}

// Nonce returns the current time in microseconds as a decimal string,
// strictly greater than any nonce previously issued in this process.
func (s *Signer) Nonce() string {
	ts := s.now().UnixMicro()
	for {
		prev := lastNonce.Load()
		next := ts
		if next <= prev {
			next = prev + 1
		}
		if lastNonce.CompareAndSwap(prev, next) {
			return strconv.FormatInt(next, 10)
		}
	}
}

// Sign returns lowercase hex HMAC-SHA256 of nonce||apiKey keyed by the secret.
func (s *Signer) Sign(nonce string) string {
	mac := hmac.New(sha256.New, s.apiSecret)
	mac.Write([]byte(nonce + s.apiKey))
	return hex.EncodeToString(mac.Sum(nil))
}

// HeaderFor renders the Authorization value for an explicit nonce.
func (s *Signer) HeaderFor(nonce string) string {
	return fmt.Sprintf(`Coinify apikey="%s", nonce="%s", signature="%s"`, s.apiKey, nonce, s.Sign(nonce))
}

// Header renders the Authorization value with a fresh nonce.
func (s *Signer) Header() string {
	return s.HeaderFor(s.Nonce())
}
