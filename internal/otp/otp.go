package otp

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	potp "github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Defaults used for zero Key fields.
const (
	DefaultPeriod = 30 * time.Second
	DefaultDigits = 6

	// maxDigits is the longest code a 31-bit truncated HMAC can fill.
	maxDigits = 8

	// skew is how many steps either side of now Validate accepts.
	skew = 1
)

// ErrInvalidKey is returned for an empty secret or unsupported digit count.
var ErrInvalidKey = errors.New("otp: invalid key")

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Key is a shared secret plus the parameters an authenticator needs.
type Key struct {
	Secret  []byte
	Issuer  string
	Account string
	Period  time.Duration
	Digits  int
}

// SecretFromText turns the stored device secret into key bytes. Text that
// is valid unpadded base32 is decoded; anything else is used verbatim.
func SecretFromText(text string) []byte {
	if raw, err := b32.DecodeString(strings.ToUpper(text)); err == nil && len(raw) > 0 {
		return raw
	}
	return []byte(text)
}

// Base32 returns the secret as unpadded base32, the form authenticators accept.
func (k Key) Base32() string {
	return b32.EncodeToString(k.Secret)
}

// TOTP returns the code for the time step containing t.
func (k Key) TOTP(t time.Time) (string, error) {
	if err := k.check(); err != nil {
		return "", err
	}
	code, err := totp.GenerateCodeCustom(k.Base32(), t, k.totpOpts())
	if err != nil {
		return "", fmt.Errorf("generating TOTP code: %w", err)
	}
	return code, nil
}

// Validate reports whether code matches t or one step either side of it.
func (k Key) Validate(code string, t time.Time) bool {
	if k.check() != nil {
		return false
	}
	ok, err := totp.ValidateCustom(code, k.Base32(), t.UTC(), k.totpOpts())
	return err == nil && ok
}

// URI returns the otpauth://totp provisioning URI. Issuer and Account are
// both required.
func (k Key) URI() (string, error) {
	if err := k.check(); err != nil {
		return "", err
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      k.Issuer,
		AccountName: k.Account,
		Period:      uint(k.period() / time.Second),
		Secret:      k.Secret,
		Digits:      potp.Digits(k.digits()),
		Algorithm:   potp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return key.URL(), nil
}

func (k Key) check() error {
	if d := k.digits(); len(k.Secret) == 0 || d < 1 || d > maxDigits {
		return ErrInvalidKey
	}
	return nil
}

func (k Key) totpOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(k.period() / time.Second),
		Skew:      skew,
		Digits:    potp.Digits(k.digits()),
		Algorithm: potp.AlgorithmSHA1,
	}
}

func (k Key) period() time.Duration {
	if k.Period < time.Second {
		return DefaultPeriod
	}
	return k.Period
}

func (k Key) digits() int {
	if k.Digits == 0 {
		return DefaultDigits
	}
	return k.Digits
}
