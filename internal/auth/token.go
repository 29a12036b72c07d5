package auth

import (
	"crypto/rand"
	"fmt"
	"io"
)

// tokenAlphabet is the session token character set.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// rejectAbove is the largest multiple of len(tokenAlphabet) that fits in a
// byte. Bytes at or above it are discarded so every character is equally likely.
const rejectAbove = 256 - 256%len(tokenAlphabet)

// GenerateToken returns an n-character alphanumeric token from crypto/rand.
func GenerateToken(n int) (string, error) {
	return generateToken(rand.Reader, n)
}

func generateToken(r io.Reader, n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("%w: %w", ErrTokenGeneration, err)
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
