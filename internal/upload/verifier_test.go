package upload

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campuskit/access-api/internal/blob"
)

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0, 0, 0, 0, 0}

func newTestVerifier(t *testing.T) (*Verifier, *ChallengeCodec, *blob.MemoryStore) {
	t.Helper()
	codec, err := NewChallengeCodec("test-secret")
	if err != nil {
		t.Fatalf("NewChallengeCodec() error = %v", err)
	}
	store := blob.NewMemoryStore("https://cdn.example.com/files")
	verifier := NewVerifier(codec, store, DefaultPolicies(), nil)
	return verifier, codec, store
}

func issue(t *testing.T, codec *ChallengeCodec, targetPath string, maxSize uint64) string {
	t.Helper()
	opaque, err := codec.Issue(targetPath, "application/octet-stream", maxSize, 10*time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return opaque
}

func put(t *testing.T, store *blob.MemoryStore, path string, data []byte) {
	t.Helper()
	if err := store.Put(context.Background(), path, "application/octet-stream", data); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
}

func mustExist(t *testing.T, store *blob.MemoryStore, path string) {
	t.Helper()
	ok, err := store.Exists(context.Background(), path)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !ok {
		t.Errorf("object %s missing, expected it to remain", path)
	}
}

func mustBeGone(t *testing.T, store *blob.MemoryStore, path string) {
	t.Helper()
	ok, err := store.Exists(context.Background(), path)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if ok {
		t.Errorf("object %s still present, expected it deleted", path)
	}
}

func TestVerifyPromotes(t *testing.T) {
	t.Parallel()
	verifier, codec, store := newTestVerifier(t)

	path := "images/abc.png"
	put(t, store, path, pngBytes)
	opaque := issue(t, codec, path, 1024)

	result, err := verifier.Verify(context.Background(), opaque)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Verify() rejected: %s", result.Message)
	}
	if result.PublicURL != "https://cdn.example.com/files/images/abc.png" {
		t.Errorf("PublicURL = %q", result.PublicURL)
	}
	if !store.IsPublic(path) {
		t.Error("object was not promoted to public")
	}
}

func TestVerifyReplayIsIdempotent(t *testing.T) {
	t.Parallel()
	verifier, codec, store := newTestVerifier(t)

	path := "images/abc.png"
	put(t, store, path, pngBytes)
	opaque := issue(t, codec, path, 1024)

	for i := 0; i < 2; i++ {
		result, err := verifier.Verify(context.Background(), opaque)
		if err != nil {
			t.Fatalf("Verify() #%d error = %v", i+1, err)
		}
		if !result.Success {
			t.Fatalf("Verify() #%d rejected: %s", i+1, result.Message)
		}
	}
}

func TestVerifyInvalidToken(t *testing.T) {
	t.Parallel()
	verifier, _, _ := newTestVerifier(t)

	result, err := verifier.Verify(context.Background(), "garbage")
	if err != nil {
		t.Fatalf("Verify() error = %v, invalid tokens are rejections not errors", err)
	}
	if result.Success || result.Message != "invalid-token" {
		t.Errorf("result = %+v, want invalid-token rejection", result)
	}
}

func TestVerifyExpiredChallenge(t *testing.T) {
	t.Parallel()
	verifier, codec, store := newTestVerifier(t)

	path := "images/abc.png"
	put(t, store, path, pngBytes)
	opaque := issue(t, codec, path, 1024)

	// Freeze the verifier clock at exactly the challenge expiry: validity
	// requires strictly-future expiry, so this must already reject.
	challenge, err := codec.Open(opaque)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	verifier.now = func() time.Time { return time.UnixMilli(challenge.ExpiresAt) }

	result, err := verifier.Verify(context.Background(), opaque)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result.Success || result.Message != "expired" {
		t.Errorf("result = %+v, want expired rejection", result)
	}
	// Expired challenges never touch the object.
	mustExist(t, store, path)
}

func TestVerifyObjectNotFound(t *testing.T) {
	t.Parallel()
	verifier, codec, _ := newTestVerifier(t)

	opaque := issue(t, codec, "images/never-uploaded.png", 1024)
	result, err := verifier.Verify(context.Background(), opaque)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result.Success || result.Message != "not-found" {
		t.Errorf("result = %+v, want not-found rejection", result)
	}
}

func TestVerifySizeBoundary(t *testing.T) {
	t.Parallel()

	t.Run("exactly at limit is accepted", func(t *testing.T) {
		t.Parallel()
		verifier, codec, store := newTestVerifier(t)
		path := "images/exact.png"
		data := append(bytes.Clone(pngBytes), make([]byte, 1000-len(pngBytes))...)
		put(t, store, path, data)
		opaque := issue(t, codec, path, 1000)

		result, err := verifier.Verify(context.Background(), opaque)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if !result.Success {
			t.Errorf("Verify() rejected object at exactly the limit: %s", result.Message)
		}
	})

	t.Run("one byte over is rejected and deleted", func(t *testing.T) {
		t.Parallel()
		verifier, codec, store := newTestVerifier(t)
		path := "documents/lec1/file.pdf"
		data := append([]byte("%PDF-1.7"), make([]byte, 1001-8)...)
		put(t, store, path, data)
		opaque := issue(t, codec, path, 1000)

		result, err := verifier.Verify(context.Background(), opaque)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if result.Success || result.Message != "too-large" {
			t.Errorf("result = %+v, want too-large rejection", result)
		}
		mustBeGone(t, store, path)
	})
}

func TestVerifyDoubleExtension(t *testing.T) {
	t.Parallel()
	verifier, codec, store := newTestVerifier(t)

	path := "images/report.sql.jpg"
	put(t, store, path, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	opaque := issue(t, codec, path, 1024)

	result, err := verifier.Verify(context.Background(), opaque)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result.Success || result.Message != "double-extension" {
		t.Errorf("result = %+v, want double-extension rejection", result)
	}
	mustBeGone(t, store, path)
}

func TestVerifyDisallowedExtension(t *testing.T) {
	t.Parallel()
	verifier, codec, store := newTestVerifier(t)

	tests := []struct {
		name string
		path string
	}{
		{"extension not on folder allow-list", "images/script.pdf"},
		{"unknown folder", "videos/clip.png"},
		{"no extension", "images/noext"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			put(t, store, tt.path, pngBytes)
			opaque := issue(t, codec, tt.path, 1024)

			result, err := verifier.Verify(context.Background(), opaque)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if result.Success || result.Message != "disallowed-extension" {
				t.Errorf("result = %+v, want disallowed-extension rejection", result)
			}
			mustBeGone(t, store, tt.path)
		})
	}
}

func TestVerifySignatureMismatch(t *testing.T) {
	t.Parallel()
	verifier, codec, store := newTestVerifier(t)

	path := "images/fake.png"
	put(t, store, path, []byte("#!/bin/sh\nrm -rf /"))
	opaque := issue(t, codec, path, 1024)

	result, err := verifier.Verify(context.Background(), opaque)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result.Success || result.Message != "signature-mismatch" {
		t.Errorf("result = %+v, want signature-mismatch rejection", result)
	}
	mustBeGone(t, store, path)
}

// failingStore wraps a MemoryStore, failing the configured operations.
type failingStore struct {
	*blob.MemoryStore
	failExists     bool
	failMakePublic bool
}

var errStoreDown = errors.New("store down")

func (s *failingStore) Exists(ctx context.Context, path string) (bool, error) {
	if s.failExists {
		return false, errStoreDown
	}
	return s.MemoryStore.Exists(ctx, path)
}

func (s *failingStore) MakePublic(ctx context.Context, path, cacheControl string) error {
	if s.failMakePublic {
		return errStoreDown
	}
	return s.MemoryStore.MakePublic(ctx, path, cacheControl)
}

func TestVerifyTransientStoreFailure(t *testing.T) {
	t.Parallel()
	codec, err := NewChallengeCodec("test-secret")
	if err != nil {
		t.Fatalf("NewChallengeCodec() error = %v", err)
	}

	tests := []struct {
		name  string
		setup func(*failingStore)
	}{
		{"exists fails", func(s *failingStore) { s.failExists = true }},
		{"make public fails", func(s *failingStore) { s.failMakePublic = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := &failingStore{MemoryStore: blob.NewMemoryStore("https://cdn.example.com")}
			tt.setup(store)
			path := "images/abc.png"
			put(t, store.MemoryStore, path, pngBytes)
			verifier := NewVerifier(codec, store, DefaultPolicies(), nil)

			opaque := issue(t, codec, path, 1024)
			result, err := verifier.Verify(context.Background(), opaque)
			if err == nil {
				t.Fatalf("Verify() = %+v, want transient error", result)
			}
			if !IsTransient(err) {
				t.Errorf("IsTransient() = false for %v", err)
			}
			if CodeOf(err) != ErrCodeStoreUnavailable {
				t.Errorf("CodeOf() = %v, want %v", CodeOf(err), ErrCodeStoreUnavailable)
			}
			// A transient failure never deletes the object.
			mustExist(t, store.MemoryStore, path)
		})
	}
}
