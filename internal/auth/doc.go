// Package auth verifies display PINs and gates protected routes with
// opaque session tokens.
//
// Service owns the per-client failure counters and the in-memory token
// set. A client that fails MaxAttempts times against one PIN is locked
// out until that PIN rotates; a rotation clears every counter. Tokens
// live until LogoutAll or process exit.
//
// Gate is the per-request check: it parses an "Authorization: Bearer"
// header and asks the Service whether the token was issued.
package auth
