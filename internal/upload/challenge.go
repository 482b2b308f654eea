package upload

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/campuskit/access-api/internal/models"
	"golang.org/x/crypto/scrypt"
)

const (
	// ivSize is the initialization vector length. The wire format carries a
	// 16-byte IV, so GCM runs with an extended nonce size.
	ivSize = 16
	// keySize is the derived AES-256 key length.
	keySize = 32
)

// scryptSalt is fixed: the secret is process-wide configuration, not a user
// password, so per-derivation salts would only break token compatibility
// across instances sharing the secret.
var scryptSalt = []byte("upload-challenge-v1")

// ChallengeCodec seals upload metadata into opaque single-string challenges
// and opens them back. The key is derived once at construction; the codec is
// safe for concurrent use.
type ChallengeCodec struct {
	aead cipher.AEAD
	now  func() time.Time
}

// NewChallengeCodec derives the symmetric key from the server secret and
// prepares the cipher.
func NewChallengeCodec(secret string) (*ChallengeCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("upload challenge secret is required")
	}
	key, err := scrypt.Key([]byte(secret), scryptSalt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive challenge key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &ChallengeCodec{aead: aead, now: time.Now}, nil
}

// Issue seals the challenge fields into an opaque token that expires after
// ttl. The wire format is base64url(hex(iv) + ":" + hex(ciphertext)).
func (c *ChallengeCodec) Issue(targetPath, contentType string, maxSizeBytes uint64, ttl time.Duration) (string, error) {
	challenge := models.UploadChallenge{
		TargetPath:   targetPath,
		ContentType:  contentType,
		MaxSizeBytes: maxSizeBytes,
		ExpiresAt:    c.now().Add(ttl).UnixMilli(),
	}
	plaintext, err := json.Marshal(challenge)
	if err != nil {
		return "", newError(ErrCodeInternal, err)
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", newError(ErrCodeInternal, fmt.Errorf("failed to generate iv: %w", err))
	}

	ciphertext := c.aead.Seal(nil, iv, plaintext, nil)
	token := hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext)
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

// Open reverses Issue. Every structural, decryption, or parse failure maps
// to the same invalid-token error: wrong key and corrupted token are
// deliberately indistinguishable, both fail closed.
func (c *ChallengeCodec) Open(opaque string) (*models.UploadChallenge, error) {
	raw, err := base64.RawURLEncoding.DecodeString(opaque)
	if err != nil {
		return nil, newError(ErrCodeInvalidToken, err)
	}

	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return nil, newError(ErrCodeInvalidToken, fmt.Errorf("malformed challenge envelope"))
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return nil, newError(ErrCodeInvalidToken, fmt.Errorf("malformed iv"))
	}
	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, newError(ErrCodeInvalidToken, fmt.Errorf("malformed ciphertext"))
	}

	plaintext, err := c.aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, newError(ErrCodeInvalidToken, err)
	}

	var challenge models.UploadChallenge
	if err := json.Unmarshal(plaintext, &challenge); err != nil {
		return nil, newError(ErrCodeInvalidToken, err)
	}
	if challenge.TargetPath == "" {
		return nil, newError(ErrCodeInvalidToken, fmt.Errorf("challenge missing target path"))
	}
	return &challenge, nil
}
