package auth

import (
	"net/http"
	"strings"
)

// TokenVerifier checks session tokens. *Service implements it.
type TokenVerifier interface {
	VerifyToken(token string) bool
}

// Gate admits or rejects requests to protected routes.
type Gate struct {
	// Required turns the gate on. When false every request is admitted.
	Required bool

	verifier TokenVerifier
}

// NewGate returns a gate backed by verifier.
func NewGate(verifier TokenVerifier, required bool) *Gate {
	return &Gate{Required: required, verifier: verifier}
}

// Allow reports whether r carries an issued session token.
func (g *Gate) Allow(r *http.Request) bool {
	if !g.Required {
		return true
	}

	token, err := ParseAuthorization(r.Header.Get("Authorization"))
	if err != nil {
		return false
	}
	return g.verifier.VerifyToken(token)
}

// ParseAuthorization extracts the token from a "Bearer <token>" header
// value. The scheme is case-insensitive; the token must be a single
// non-empty word.
func ParseAuthorization(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrNoCredential
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrNoCredential
	}
	return token, nil
}
