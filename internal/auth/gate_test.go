package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
)

type staticVerifier map[string]bool

func (v staticVerifier) VerifyToken(token string) bool { return v[token] }

func TestParseAuthorization(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"bearer", "Bearer abc123", "abc123", false},
		{"lowercase scheme", "bearer abc123", "abc123", false},
		{"extra spaces", "  Bearer   abc123  ", "abc123", false},
		{"empty", "", "", true},
		{"scheme only", "Bearer", "", true},
		{"scheme and space", "Bearer ", "", true},
		{"basic", "Basic dXNlcjpwYXNz", "", true},
		{"token without scheme", "abc123", "", true},
		{"two words", "Bearer abc 123", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAuthorization(tt.header)
			if tt.wantErr {
				if !errors.Is(err, ErrNoCredential) {
					t.Errorf("ParseAuthorization(%q) error = %v, want ErrNoCredential", tt.header, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAuthorization(%q) error = %v", tt.header, err)
			}
			if got != tt.want {
				t.Errorf("ParseAuthorization(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestGate_Allow(t *testing.T) {
	gate := NewGate(staticVerifier{"good-token": true}, true)

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{"issued token", "Bearer good-token", true},
		{"unknown token", "Bearer bad-token", false},
		{"no header", "", false},
		{"token embedded in other text", "Bearer xgood-tokenx", false},
		{"wrong scheme", "Token good-token", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/status", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := gate.Allow(r); got != tt.want {
				t.Errorf("Allow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGate_NotRequired(t *testing.T) {
	gate := NewGate(staticVerifier{}, false)

	r := httptest.NewRequest("GET", "/api/status", nil)
	if !gate.Allow(r) {
		t.Error("Allow() = false with auth disabled")
	}
}

func TestGate_WithService(t *testing.T) {
	svc, _ := testService(t, []string{"482913"})
	gate := NewGate(svc, true)

	token, err := svc.Verify("482913", "A")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	r := httptest.NewRequest("GET", "/api/status", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	if !gate.Allow(r) {
		t.Error("Allow() = false for issued token")
	}

	svc.LogoutAll()
	if gate.Allow(r) {
		t.Error("Allow() = true after LogoutAll()")
	}
}
