package request

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/campuskit/access-api/internal/models"
)

func TestClientIP(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		wantIP  string
	}{
		{"x-forwarded-for", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "", "1.2.3.4"},
		{"x-forwarded-for first", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8 "}, "", "1.2.3.4"},
		{"x-real-ip", map[string]string{"X-Real-IP": "9.9.9.9"}, "", "9.9.9.9"},
		{"remote addr", nil, "10.0.0.1:12345", "10.0.0.1:12345"},
		{"xff over xri", map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Real-IP": "9.9.9.9"}, "", "1.2.3.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}
			got := ClientIP(r)
			if got != tt.wantIP {
				t.Errorf("ClientIP() = %q, want %q", got, tt.wantIP)
			}
		})
	}
}

func TestClaimsFromContext(t *testing.T) {
	t.Parallel()
	claims := &models.AccessClaims{SubjectID: "42", Email: "a@b.c"}
	ctx := WithClaims(context.Background(), claims)
	r := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
	got := ClaimsFromContext(r)
	if got != claims {
		t.Errorf("ClaimsFromContext() = %p, want %p", got, claims)
	}
	if got != nil && got.Email != "a@b.c" {
		t.Errorf("ClaimsFromContext().Email = %q, want a@b.c", got.Email)
	}
}

func TestClaimsFromContext_NoClaims(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest("GET", "/", nil)
	got := ClaimsFromContext(r)
	if got != nil {
		t.Errorf("ClaimsFromContext() = %+v, want nil", got)
	}
}

func TestClaimsFromContext_WrongType(t *testing.T) {
	t.Parallel()
	ctx := context.WithValue(context.Background(), ClaimsContextKey(), "not claims")
	r := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
	got := ClaimsFromContext(r)
	if got != nil {
		t.Errorf("ClaimsFromContext() = %+v, want nil when wrong type", got)
	}
}
