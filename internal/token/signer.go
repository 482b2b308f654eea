package token

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/campuskit/access-api/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
)

// Signer seals compact claim payloads as HS256 JWS tokens and opens them
// back into normalized claims. The signing key is process-wide configuration
// loaded once at startup; Signer is safe for concurrent use.
type Signer struct {
	key   []byte
	codec *Codec
	now   func() time.Time
}

// NewSigner creates a signer over the shared secret.
func NewSigner(secret string, codec *Codec) *Signer {
	return &Signer{key: []byte(secret), codec: codec, now: time.Now}
}

// Mint encodes claims into the current compact shape, stamps issuance and
// expiry, and signs the payload. A non-positive ttl mints a token without
// an expiry claim.
func (s *Signer) Mint(claims *models.AccessClaims, ttl time.Duration) (string, error) {
	stamped := *claims
	now := s.now()
	stamped.IssuedAt = now.Unix()
	if ttl > 0 {
		stamped.ExpiresAt = now.Add(ttl).Unix()
	} else {
		stamped.ExpiresAt = 0
	}

	raw, err := json.Marshal(s.codec.Encode(&stamped))
	if err != nil {
		return "", newError(ErrCodeInternal, err)
	}
	signed, err := jws.Sign(raw, jws.WithKey(jwa.HS256, s.key))
	if err != nil {
		return "", newError(ErrCodeInternal, err)
	}
	return string(signed), nil
}

// Parse verifies the signature, decodes the payload through the shape-aware
// codec, and enforces expiry. A token whose exp equals the current instant
// is still valid; expiry takes effect strictly after exp.
func (s *Signer) Parse(tokenString string) (*models.AccessClaims, error) {
	payloadBytes, err := jws.Verify([]byte(tokenString), jws.WithKey(jwa.HS256, s.key))
	if err != nil {
		return nil, newError(ErrCodeInvalidSignature, err)
	}

	var payload map[string]any
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, newError(ErrCodeFormat, err)
	}

	claims, err := s.codec.Decode(payload)
	if err != nil {
		return nil, err
	}
	if claims.ExpiresAt > 0 && claims.ExpiresAt < s.now().Unix() {
		return nil, newError(ErrCodeExpired, fmt.Errorf("token expired at %d", claims.ExpiresAt))
	}
	return claims, nil
}
