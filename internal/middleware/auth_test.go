package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campuskit/access-api/internal/models"
	"github.com/campuskit/access-api/internal/request"
	"github.com/campuskit/access-api/internal/token"
	"go.uber.org/zap"
)

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()
	signer := token.NewSigner("test-secret", token.NewCodec(nil))
	other := token.NewSigner("other-secret", token.NewCodec(nil))

	minted, err := signer.Mint(&models.AccessClaims{SubjectID: "7", Email: "a@b.c"}, time.Hour)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	foreign, err := other.Mint(&models.AccessClaims{SubjectID: "7", Email: "a@b.c"}, time.Hour)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + minted, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong key", "Bearer " + foreign, http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var gotClaims *models.AccessClaims
			handler := Auth(signer, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotClaims = request.ClaimsFromContext(r)
				w.WriteHeader(http.StatusOK)
			}))

			r := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
			if tt.authHeader != "" {
				r.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if gotClaims == nil || gotClaims.SubjectID != "7" {
					t.Errorf("claims in context = %+v", gotClaims)
				}
			}
		})
	}
}
