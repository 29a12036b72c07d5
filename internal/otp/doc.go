// Package otp computes and checks TOTP (RFC 6238) codes over the
// device secret and builds otpauth:// provisioning URIs for authenticator
// apps. Code generation and validation come from github.com/pquerna/otp;
// this package maps the stored device secret onto its keys.
//
// This path is separate from the display PIN: codes are exposed only to
// authenticated sessions through the TOTP setup and verify endpoints.
package otp
