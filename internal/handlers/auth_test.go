package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campuskit/access-api/internal/models"
	"github.com/campuskit/access-api/internal/request"
	"github.com/campuskit/access-api/internal/token"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func newAuthTestRouter(t *testing.T) (*mux.Router, *token.Signer) {
	t.Helper()
	signer := token.NewSigner("test-secret", token.NewCodec(nil))
	h := NewAuthHandler(signer, time.Hour, zap.NewNop())
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/api/v1/auth").Subrouter())
	return r, signer
}

func withClaims(r *http.Request, claims *models.AccessClaims) *http.Request {
	return r.WithContext(request.WithClaims(r.Context(), claims))
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return body
}

func TestGetMe(t *testing.T) {
	t.Parallel()
	router, _ := newAuthTestRouter(t)

	claims := &models.AccessClaims{SubjectID: "7", Email: "a@b.c", DisplayName: "Ada"}
	r := withClaims(httptest.NewRequest("GET", "/api/v1/auth/me", nil), claims)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeEnvelope(t, w)
	data, _ := body["data"].(map[string]any)
	if data["subjectId"] != "7" || data["email"] != "a@b.c" {
		t.Errorf("data = %v", data)
	}
}

func TestGetMeWithoutClaims(t *testing.T) {
	t.Parallel()
	router, _ := newAuthTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/auth/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestIntrospect(t *testing.T) {
	t.Parallel()
	router, signer := newAuthTestRouter(t)

	minted, err := signer.Mint(&models.AccessClaims{SubjectID: "7", Email: "a@b.c"}, time.Hour)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	payload, _ := json.Marshal(map[string]string{"token": minted})
	r := httptest.NewRequest("POST", "/api/v1/auth/introspect", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeEnvelope(t, w)
	data, _ := body["data"].(map[string]any)
	if data["subjectId"] != "7" {
		t.Errorf("data = %v", data)
	}
}

func TestIntrospectRejectsBadToken(t *testing.T) {
	t.Parallel()
	router, _ := newAuthTestRouter(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"garbage token", `{"token":"garbage"}`, http.StatusUnauthorized},
		{"missing token", `{}`, http.StatusBadRequest},
		{"not json", `not json`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("POST", "/api/v1/auth/introspect", bytes.NewReader([]byte(tt.body)))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestMintToken(t *testing.T) {
	t.Parallel()
	router, signer := newAuthTestRouter(t)

	admin := &models.AccessClaims{SubjectID: "root", IsGlobalAdmin: true}
	payload, _ := json.Marshal(map[string]any{
		"subjectId": "7",
		"email":     "user@example.com",
		"userType":  "TEACHER",
		"organizations": []map[string]string{
			{"organizationId": "42", "role": "PRESIDENT"},
		},
	})
	r := withClaims(httptest.NewRequest("POST", "/api/v1/auth/token", bytes.NewReader(payload)), admin)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeEnvelope(t, w)
	data, _ := body["data"].(map[string]any)
	minted, _ := data["token"].(string)
	if minted == "" {
		t.Fatal("no token in response")
	}

	claims, err := signer.Parse(minted)
	if err != nil {
		t.Fatalf("Parse() of minted token error = %v", err)
	}
	if claims.SubjectID != "7" || claims.UserType != models.UserTypeTeacher {
		t.Errorf("claims = %+v", claims)
	}
	if len(claims.OrganizationMemberships) != 1 || claims.OrganizationMemberships[0].Role != models.RolePresident {
		t.Errorf("memberships = %+v", claims.OrganizationMemberships)
	}
}

func TestMintTokenSanitizesDisplayName(t *testing.T) {
	t.Parallel()
	router, signer := newAuthTestRouter(t)

	admin := &models.AccessClaims{SubjectID: "root", IsGlobalAdmin: true}
	payload, _ := json.Marshal(map[string]any{
		"subjectId":   "7",
		"email":       "user@example.com",
		"displayName": "  Ada\x00\x1b Lovelace  ",
	})
	r := withClaims(httptest.NewRequest("POST", "/api/v1/auth/token", bytes.NewReader(payload)), admin)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeEnvelope(t, w)
	data, _ := body["data"].(map[string]any)
	minted, _ := data["token"].(string)

	claims, err := signer.Parse(minted)
	if err != nil {
		t.Fatalf("Parse() of minted token error = %v", err)
	}
	if claims.DisplayName != "Ada Lovelace" {
		t.Errorf("DisplayName = %q, want %q", claims.DisplayName, "Ada Lovelace")
	}
}

func TestMintTokenRequiresGlobalAccess(t *testing.T) {
	t.Parallel()
	router, _ := newAuthTestRouter(t)

	payload, _ := json.Marshal(map[string]any{"subjectId": "7"})
	plain := &models.AccessClaims{SubjectID: "7", UserType: models.UserTypeStudent}
	r := withClaims(httptest.NewRequest("POST", "/api/v1/auth/token", bytes.NewReader(payload)), plain)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestMintTokenValidatesInput(t *testing.T) {
	t.Parallel()
	router, _ := newAuthTestRouter(t)
	admin := &models.AccessClaims{SubjectID: "root", IsGlobalAdmin: true}

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing subject", map[string]any{"email": "a@b.c"}},
		{"bad role", map[string]any{
			"subjectId":     "7",
			"organizations": []map[string]string{{"organizationId": "42", "role": "KING"}},
		}},
		{"bad user type", map[string]any{"subjectId": "7", "userType": "WIZARD"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			payload, _ := json.Marshal(tt.body)
			r := withClaims(httptest.NewRequest("POST", "/api/v1/auth/token", bytes.NewReader(payload)), admin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}
