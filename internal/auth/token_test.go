package auth

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		token, err := GenerateToken(32)
		if err != nil {
			t.Fatalf("GenerateToken() error = %v", err)
		}
		if len(token) != 32 {
			t.Fatalf("len(token) = %d, want 32", len(token))
		}
		if seen[token] {
			t.Fatalf("duplicate token %s", token)
		}
		seen[token] = true
	}
}

func TestGenerateToken_RejectsBiasedBytes(t *testing.T) {
	// 0xFF is above the rejection bound and must be skipped; 0 and 61 map
	// to the first and last alphabet characters.
	src := bytes.NewReader([]byte{0xFF, 0, 0xF8, 61, 0, 0, 0, 0})
	token, err := generateToken(src, 2)
	if err != nil {
		t.Fatalf("generateToken() error = %v", err)
	}
	if token != "A9" {
		t.Errorf("generateToken() = %q, want %q", token, "A9")
	}
}

func TestGenerateToken_SourceFailure(t *testing.T) {
	_, err := generateToken(strings.NewReader(""), 32)
	if !errors.Is(err, ErrTokenGeneration) {
		t.Errorf("generateToken() error = %v, want ErrTokenGeneration", err)
	}
}
