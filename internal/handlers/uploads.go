package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/campuskit/access-api/internal/request"
	"github.com/campuskit/access-api/internal/upload"
	"github.com/campuskit/access-api/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// UploadHandler handles challenge minting and upload verification
type UploadHandler struct {
	challenges   *upload.ChallengeCodec
	verifier     *upload.Verifier
	policies     *upload.Policies
	challengeTTL time.Duration
	logger       *zap.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(challenges *upload.ChallengeCodec, verifier *upload.Verifier, policies *upload.Policies, challengeTTL time.Duration, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		challenges:   challenges,
		verifier:     verifier,
		policies:     policies,
		challengeTTL: challengeTTL,
		logger:       logger,
	}
}

// RegisterRoutes registers upload routes on the given router
// The router should already have the /api/v1/uploads prefix
func (h *UploadHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/challenge", h.MintChallenge).Methods("POST")
	r.HandleFunc("/verify", h.Verify).Methods("POST")
}

type mintChallengeRequest struct {
	Folder      string `json:"folder" validate:"required"`
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"contentType" validate:"required"`
}

// MintChallenge issues an opaque upload challenge for a folder the caller
// wants to upload into. The target filename is generated server-side; only
// the original extension survives.
func (h *UploadHandler) MintChallenge(w http.ResponseWriter, r *http.Request) {
	claims := request.ClaimsFromContext(r)
	if claims == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Claims not found in context")
		return
	}

	var req mintChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request", "Request body must be valid JSON")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	policy, ok := h.policies.ForFolder(req.Folder)
	if !ok {
		respondJSONError(w, http.StatusBadRequest, "Invalid request", fmt.Sprintf("Unknown upload folder %q", req.Folder))
		return
	}
	if upload.HasDoubleExtension(req.Filename) {
		respondJSONError(w, http.StatusBadRequest, "Invalid request", "File name carries a double extension")
		return
	}
	ext := upload.ExtensionOf(req.Filename)
	if ext == "" || !policy.AllowsExtension(ext) {
		respondJSONError(w, http.StatusBadRequest, "Invalid request", fmt.Sprintf("Extension %q is not allowed in folder %q", ext, req.Folder))
		return
	}

	targetPath := fmt.Sprintf("%s/%s.%s", req.Folder, uuid.New().String(), ext)
	challenge, err := h.challenges.Issue(targetPath, req.ContentType, policy.MaxSizeBytes, h.challengeTTL)
	if err != nil {
		h.logger.Error("failed_to_issue_upload_challenge", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal error", "Failed to issue challenge")
		return
	}

	h.logger.Info("upload_challenge_issued",
		zap.String("subject_id", claims.SubjectID),
		zap.String("target_path", targetPath),
		zap.Uint64("max_size_bytes", policy.MaxSizeBytes),
	)
	respondJSON(w, http.StatusCreated, map[string]any{
		"challenge":        challenge,
		"targetPath":       targetPath,
		"maxSizeBytes":     policy.MaxSizeBytes,
		"expiresInSeconds": int64(h.challengeTTL.Seconds()),
	})
}

type verifyRequest struct {
	Challenge string `json:"challenge" validate:"required"`
}

// Verify consumes an opaque challenge and reports the verification outcome.
// The response body is the raw verification result: {success, publicUrl?,
// message}. Transient blob-store failures surface as 503, never as a
// rejection.
func (h *UploadHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request", "Request body must be valid JSON")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	result, err := h.verifier.Verify(r.Context(), req.Challenge)
	if err != nil {
		h.logger.Warn("upload_verification_unavailable", zap.Error(err))
		respondJSONError(w, http.StatusServiceUnavailable, "Store unavailable", "Verification could not reach the blob store; retry later")
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("failed_to_encode_verification_result", zap.Error(err))
	}
}
