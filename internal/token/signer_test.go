package token

import (
	"testing"
	"time"

	"github.com/campuskit/access-api/internal/models"
)

func newTestSigner(secret string) *Signer {
	return NewSigner(secret, NewCodec(nil))
}

func TestSignerMintParse(t *testing.T) {
	t.Parallel()
	signer := newTestSigner("test-secret")

	claims := &models.AccessClaims{
		SubjectID:   "7",
		Email:       "user@example.com",
		DisplayName: "Ada",
		UserType:    models.UserTypeTeacher,
		OrganizationMemberships: []models.OrganizationMembership{
			{OrganizationID: "42", Role: models.RolePresident},
		},
	}

	minted, err := signer.Mint(claims, time.Hour)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	parsed, err := signer.Parse(minted)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed.SubjectID != "7" || parsed.Email != "user@example.com" {
		t.Errorf("parsed identity = %q/%q", parsed.SubjectID, parsed.Email)
	}
	if parsed.IssuedAt == 0 || parsed.ExpiresAt != parsed.IssuedAt+3600 {
		t.Errorf("times = %d/%d, want exp = iat + 3600", parsed.IssuedAt, parsed.ExpiresAt)
	}
	if len(parsed.OrganizationMemberships) != 1 || parsed.OrganizationMemberships[0].Role != models.RolePresident {
		t.Errorf("memberships = %+v", parsed.OrganizationMemberships)
	}
}

func TestSignerMintWithoutExpiry(t *testing.T) {
	t.Parallel()
	signer := newTestSigner("test-secret")

	minted, err := signer.Mint(&models.AccessClaims{
		SubjectID: "7",
		Email:     "user@example.com",
	}, 0)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	parsed, err := signer.Parse(minted)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed.ExpiresAt != 0 {
		t.Errorf("ExpiresAt = %d, want 0 for non-positive ttl", parsed.ExpiresAt)
	}
}

func TestSignerRejectsWrongKey(t *testing.T) {
	t.Parallel()
	signer := newTestSigner("test-secret")
	other := newTestSigner("other-secret")

	minted, err := signer.Mint(&models.AccessClaims{SubjectID: "7", Email: "a@b.c"}, time.Hour)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	_, err = other.Parse(minted)
	if err == nil {
		t.Fatal("Parse() with wrong key succeeded")
	}
	if CodeOf(err) != ErrCodeInvalidSignature {
		t.Errorf("CodeOf() = %v, want %v", CodeOf(err), ErrCodeInvalidSignature)
	}
}

func TestSignerRejectsTamperedToken(t *testing.T) {
	t.Parallel()
	signer := newTestSigner("test-secret")

	minted, err := signer.Mint(&models.AccessClaims{SubjectID: "7", Email: "a@b.c"}, time.Hour)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	tampered := []byte(minted)
	// Flip a byte in the payload segment.
	tampered[len(tampered)/2] ^= 0x01
	if _, err := signer.Parse(string(tampered)); err == nil {
		t.Fatal("Parse() accepted a tampered token")
	}
}

func TestSignerExpiryBoundary(t *testing.T) {
	t.Parallel()

	base := time.Unix(1_700_000_000, 0)
	signer := newTestSigner("test-secret")
	signer.now = func() time.Time { return base }

	minted, err := signer.Mint(&models.AccessClaims{SubjectID: "7", Email: "a@b.c"}, time.Minute)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	// At exactly exp the token is still valid.
	signer.now = func() time.Time { return base.Add(time.Minute) }
	if _, err := signer.Parse(minted); err != nil {
		t.Errorf("Parse() at exp = %v, want valid", err)
	}

	// One second past exp it is expired.
	signer.now = func() time.Time { return base.Add(time.Minute + time.Second) }
	_, err = signer.Parse(minted)
	if err == nil {
		t.Fatal("Parse() past exp succeeded")
	}
	if CodeOf(err) != ErrCodeExpired {
		t.Errorf("CodeOf() = %v, want %v", CodeOf(err), ErrCodeExpired)
	}
}
