package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/campuskit/access-api/internal/access"
	"github.com/campuskit/access-api/internal/models"
	"github.com/campuskit/access-api/internal/request"
	"github.com/campuskit/access-api/internal/token"
	"github.com/campuskit/access-api/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AuthHandler handles token-related requests
type AuthHandler struct {
	signer   *token.Signer
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(signer *token.Signer, tokenTTL time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{signer: signer, tokenTTL: tokenTTL, logger: logger}
}

// RegisterRoutes registers auth routes on the given router
// The router should already have the /api/v1/auth prefix
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
	r.HandleFunc("/introspect", h.Introspect).Methods("POST")
	r.HandleFunc("/token", h.MintToken).Methods("POST")
}

// GetMe returns the normalized claims of the calling principal
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims := request.ClaimsFromContext(r)
	if claims == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Claims not found in context")
		return
	}

	respondJSON(w, http.StatusOK, claims)
}

type introspectRequest struct {
	Token string `json:"token" validate:"required"`
}

// Introspect decodes a supplied token without requiring it as the bearer.
// Useful for services that hold a token on behalf of another principal.
func (h *AuthHandler) Introspect(w http.ResponseWriter, r *http.Request) {
	var req introspectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request", "Request body must be valid JSON")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	claims, err := h.signer.Parse(req.Token)
	if err != nil {
		code := token.CodeOf(err)
		h.logger.Info("introspection_rejected", zap.String("code", string(code)))
		respondJSONError(w, http.StatusUnauthorized, string(code), "Token is not valid")
		return
	}

	respondJSON(w, http.StatusOK, claims)
}

type mintOrganizationMembership struct {
	OrganizationID string `json:"organizationId" validate:"required"`
	Role           string `json:"role" validate:"required,role_name"`
}

type mintTokenRequest struct {
	SubjectID          string                         `json:"subjectId" validate:"required"`
	Email              string                         `json:"email" validate:"omitempty,email"`
	DisplayName        string                         `json:"displayName"`
	UserType           string                         `json:"userType" validate:"omitempty,user_type"`
	IsGlobalAdmin      bool                           `json:"isGlobalAdmin"`
	Organizations      []mintOrganizationMembership   `json:"organizations" validate:"dive"`
	InstituteIDs       []string                       `json:"instituteIds"`
	AdminAccess        map[string]bool                `json:"adminAccess"`
	HierarchicalAccess map[string]map[string][]string `json:"hierarchicalAccess"`
	LinkedStudentIDs   []string                       `json:"linkedStudentIds"`
}

// MintToken issues a signed compact token for the supplied claims.
// Restricted to principals with global access.
func (h *AuthHandler) MintToken(w http.ResponseWriter, r *http.Request) {
	requester := request.ClaimsFromContext(r)
	if requester == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Claims not found in context")
		return
	}
	if !access.HasGlobalAccess(requester) {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Minting tokens requires global access")
		return
	}

	var req mintTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request", "Request body must be valid JSON")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	claims := &models.AccessClaims{
		SubjectID:          req.SubjectID,
		Email:              req.Email,
		DisplayName:        validation.SanitizeText(req.DisplayName),
		UserType:           models.UserType(req.UserType),
		IsGlobalAdmin:      req.IsGlobalAdmin,
		InstituteIDs:       req.InstituteIDs,
		AdminAccess:        req.AdminAccess,
		HierarchicalAccess: req.HierarchicalAccess,
		LinkedStudentIDs:   req.LinkedStudentIDs,
	}
	for _, m := range req.Organizations {
		claims.OrganizationMemberships = append(claims.OrganizationMemberships, models.OrganizationMembership{
			OrganizationID: m.OrganizationID,
			Role:           models.Role(m.Role),
		})
	}

	minted, err := h.signer.Mint(claims, h.tokenTTL)
	if err != nil {
		h.logger.Error("failed_to_mint_token", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal error", "Failed to mint token")
		return
	}

	h.logger.Info("token_minted",
		zap.String("minted_for", req.SubjectID),
		zap.String("minted_by", requester.SubjectID),
	)
	respondJSON(w, http.StatusCreated, map[string]any{
		"token":            minted,
		"expiresInSeconds": int64(h.tokenTTL.Seconds()),
	})
}
