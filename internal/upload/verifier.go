package upload

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/campuskit/access-api/internal/blob"
	"github.com/campuskit/access-api/internal/models"
	"go.uber.org/zap"
)

const (
	// publicCacheControl is applied to promoted objects. Promoted paths are
	// content-addressed by generated filename, so they never change.
	publicCacheControl = "public, max-age=31536000, immutable"
	// defaultStoreCallTimeout bounds each individual blob-store call.
	defaultStoreCallTimeout = 10 * time.Second
)

// Verifier runs the post-upload verification state machine: open the
// challenge, re-validate expiry, size, extension and content signature
// against the store, and promote the object to public. Every rejection
// branch that found an object deletes it before returning; an unverified
// object is never left publicly reachable or occupying storage.
type Verifier struct {
	codec       *ChallengeCodec
	store       blob.Store
	policies    *Policies
	log         *zap.Logger
	now         func() time.Time
	callTimeout time.Duration
}

// NewVerifier creates a verifier.
func NewVerifier(codec *ChallengeCodec, store blob.Store, policies *Policies, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{
		codec:       codec,
		store:       store,
		policies:    policies,
		log:         log,
		now:         time.Now,
		callTimeout: defaultStoreCallTimeout,
	}
}

// Verify consumes an opaque challenge and either promotes the uploaded
// object or rejects it. Policy rejections come back as a result with
// Success=false and a nil error; a non-nil error means a transient store
// failure the caller may retry, never a rejection.
func (v *Verifier) Verify(ctx context.Context, opaqueChallenge string) (*models.VerificationResult, error) {
	challenge, err := v.codec.Open(opaqueChallenge)
	if err != nil {
		return reject("invalid-token"), nil
	}

	// A challenge expiring at exactly now is already expired: validity
	// requires expiresAt strictly in the future.
	if challenge.ExpiresAt <= v.now().UnixMilli() {
		return reject("expired"), nil
	}

	targetPath := challenge.TargetPath
	exists, err := v.exists(ctx, targetPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return reject("not-found"), nil
	}

	info, err := v.head(ctx, targetPath)
	if err != nil {
		return nil, err
	}
	if info == nil {
		// Deleted between the existence check and the metadata read.
		return reject("not-found"), nil
	}
	if info.Size > challenge.MaxSizeBytes {
		v.discard(ctx, targetPath, "too-large")
		return reject("too-large"), nil
	}

	filename := path.Base(targetPath)
	if HasDoubleExtension(filename) {
		v.discard(ctx, targetPath, "double-extension")
		return reject("double-extension"), nil
	}

	ext := ExtensionOf(filename)
	policy, ok := v.policies.ForPath(targetPath)
	if !ok || ext == "" || !policy.AllowsExtension(ext) {
		v.discard(ctx, targetPath, "disallowed-extension")
		return reject("disallowed-extension"), nil
	}

	head, err := v.peek(ctx, targetPath)
	if err != nil {
		return nil, err
	}
	if !MatchesMagic(ext, head) {
		v.discard(ctx, targetPath, "signature-mismatch")
		return reject("signature-mismatch"), nil
	}

	if err := v.makePublic(ctx, targetPath); err != nil {
		return nil, err
	}

	v.log.Info("upload_promoted",
		zap.String("path", targetPath),
		zap.Uint64("size", info.Size),
	)
	return &models.VerificationResult{
		Success:   true,
		PublicURL: v.store.PublicURL(targetPath),
		Message:   "promoted",
	}, nil
}

func reject(reason string) *models.VerificationResult {
	return &models.VerificationResult{Success: false, Message: reason}
}

// discard deletes a rejected object, logging failures. A failed delete is
// not surfaced: the rejection verdict stands and a retried verification
// will find the object again.
func (v *Verifier) discard(ctx context.Context, targetPath, reason string) {
	callCtx, cancel := context.WithTimeout(ctx, v.callTimeout)
	defer cancel()
	if err := v.store.Delete(callCtx, targetPath); err != nil {
		v.log.Error("failed_to_delete_rejected_upload",
			zap.String("path", targetPath),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}
	v.log.Info("upload_rejected",
		zap.String("path", targetPath),
		zap.String("reason", reason),
	)
}

func (v *Verifier) exists(ctx context.Context, targetPath string) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, v.callTimeout)
	defer cancel()
	exists, err := v.store.Exists(callCtx, targetPath)
	if err != nil {
		return false, v.transient("exists", targetPath, err)
	}
	return exists, nil
}

func (v *Verifier) head(ctx context.Context, targetPath string) (*blob.ObjectInfo, error) {
	callCtx, cancel := context.WithTimeout(ctx, v.callTimeout)
	defer cancel()
	info, err := v.store.Head(callCtx, targetPath)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, nil
		}
		return nil, v.transient("head", targetPath, err)
	}
	return info, nil
}

func (v *Verifier) peek(ctx context.Context, targetPath string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, v.callTimeout)
	defer cancel()
	head, err := v.store.Peek(callCtx, targetPath, MagicPeekSize)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, nil
		}
		return nil, v.transient("peek", targetPath, err)
	}
	return head, nil
}

func (v *Verifier) makePublic(ctx context.Context, targetPath string) error {
	callCtx, cancel := context.WithTimeout(ctx, v.callTimeout)
	defer cancel()
	if err := v.store.MakePublic(callCtx, targetPath, publicCacheControl); err != nil {
		return v.transient("make-public", targetPath, err)
	}
	return nil
}

func (v *Verifier) transient(op, targetPath string, err error) error {
	v.log.Warn("blob_store_call_failed",
		zap.String("op", op),
		zap.String("path", targetPath),
		zap.Error(err),
	)
	return newError(ErrCodeStoreUnavailable, fmt.Errorf("%s %s: %w", op, targetPath, err))
}
