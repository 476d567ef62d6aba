package shopee

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signer computes the OpenAPI request signature: an HMAC-SHA256 over the
// concatenation of partner id, API path, unix timestamp and, for shop-level
// endpoints, the access token and shop id, keyed with the partner key.
type Signer struct {
	partnerID  int64
	partnerKey string
}

// NewSigner creates a signer for one partner application.
func NewSigner(partnerID int64, partnerKey string) *Signer {
	return &Signer{partnerID: partnerID, partnerKey: partnerKey}
}

// Sign signs a shop-level request. token and shopID may be empty for
// partner-level endpoints such as the token exchange.
func (s *Signer) Sign(path string, timestamp int64, token, shopID string) string {
	base := fmt.Sprintf("%d%s%d%s%s", s.partnerID, path, timestamp, token, shopID)
	mac := hmac.New(sha256.New, []byte(s.partnerKey))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

// PartnerID returns the partner application id used in query strings.
func (s *Signer) PartnerID() int64 {
	return s.partnerID
}
