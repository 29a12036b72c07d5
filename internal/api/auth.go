package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stagetwo/webgate/internal/auth"
	"github.com/stagetwo/webgate/internal/challenge"
)

// loginRequest is the request body for POST /api/auth.
type loginRequest struct {
	PIN string `json:"pin"`
}

// loginResponse is the success body for POST /api/auth.
type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// invalidPINResponse is the 401 body for a wrong PIN.
type invalidPINResponse struct {
	Error             string `json:"error"`
	Code              string `json:"code"`
	AttemptsRemaining int    `json:"attempts_remaining"`
	TimeRemaining     int    `json:"time_remaining"`
}

// lockedOutResponse is the 429 body for a locked-out client.
type lockedOutResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code"`
	TimeRemaining int    `json:"time_remaining"`
}

// handleLogin verifies a PIN and issues a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	pin := req.PIN
	if pin == "" {
		writeBadRequest(w, "PIN is required")
		return
	}
	if !challenge.IsPIN(pin) {
		writeBadRequest(w, "PIN must be 6 digits")
		return
	}

	client := clientID(r)
	token, err := s.auth.Verify(pin, client)

	var verr *auth.VerifyError
	switch {
	case err == nil:
		noStore(w)
		writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: token})

	case errors.As(err, &verr) && errors.Is(err, auth.ErrLockedOut):
		setRetryAfter(w, verr.RetryIn)
		writeJSON(w, http.StatusTooManyRequests, lockedOutResponse{
			Error:         verr.Reason,
			Code:          ErrCodeLockedOut,
			TimeRemaining: challenge.Seconds(verr.RetryIn),
		})

	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnauthorized, invalidPINResponse{
			Error:             verr.Reason,
			Code:              ErrCodeInvalidPIN,
			AttemptsRemaining: verr.AttemptsRemaining,
			TimeRemaining:     challenge.Seconds(verr.RetryIn),
		})

	default:
		s.logger.Error("issuing session token failed", "client", client, "error", err)
		writeInternalError(w, "failed to issue session token")
	}
}

// handleAuthInfo reports the current PIN window. The PIN is included only
// when security.auth.expose_pin_info is set.
func (s *Server) handleAuthInfo(w http.ResponseWriter, _ *http.Request) {
	info := s.auth.Info()
	if !s.secCfg.Auth.ExposePINInfo {
		info.PIN = ""
	}
	noStore(w)
	writeJSON(w, http.StatusOK, info)
}

// handleSession confirms the caller's token is live.
func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"auth_required": s.gate.Required,
	})
}

// handleLogoutAll revokes every session token, including the caller's.
func (s *Server) handleLogoutAll(w http.ResponseWriter, _ *http.Request) {
	n := s.auth.LogoutAll()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"revoked": n,
	})
}
