package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/stagetwo/webgate/internal/otp"
)

// totpSetupResponse carries what an authenticator app needs.
type totpSetupResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	Period     int    `json:"period"`
	Digits     int    `json:"digits"`
	Code       string `json:"code"`
}

// totpVerifyRequest is the request body for POST /api/totp/verify.
type totpVerifyRequest struct {
	Code string `json:"code"`
}

// totpVerifyResponse reports whether the submitted code matched.
type totpVerifyResponse struct {
	Valid bool `json:"valid"`
}

// otpKey builds the OTP key over the stored device secret.
func (s *Server) otpKey() otp.Key {
	return otp.Key{
		Secret:  otp.SecretFromText(s.secrets.Load().String()),
		Issuer:  s.otpCfg.Issuer,
		Account: s.otpCfg.Account,
		Period:  time.Duration(s.otpCfg.Period) * time.Second,
		Digits:  s.otpCfg.Digits,
	}
}

// handleTOTPSetup returns the provisioning URI and the current code so the
// operator can confirm the authenticator matches.
func (s *Server) handleTOTPSetup(w http.ResponseWriter, _ *http.Request) {
	key := s.otpKey()

	code, err := key.TOTP(s.now())
	if err != nil {
		s.logger.Error("computing OTP code failed", "error", err)
		writeInternalError(w, "failed to compute code")
		return
	}

	uri, err := key.URI()
	if err != nil {
		s.logger.Error("building provisioning URI failed", "error", err)
		writeInternalError(w, "failed to build provisioning URI")
		return
	}

	noStore(w)
	writeJSON(w, http.StatusOK, totpSetupResponse{
		Secret:     key.Base32(),
		OTPAuthURL: uri,
		Period:     s.otpCfg.Period,
		Digits:     s.otpCfg.Digits,
		Code:       code,
	})
}

// handleTOTPVerify checks a code from the operator's authenticator against
// the stored secret, one period either side of now.
func (s *Server) handleTOTPVerify(w http.ResponseWriter, r *http.Request) {
	var req totpVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Code == "" {
		writeBadRequest(w, "code is required")
		return
	}

	valid := s.otpKey().Validate(req.Code, s.now())
	s.logger.Info("authenticator code checked", "client", clientID(r), "valid", valid)
	writeJSON(w, http.StatusOK, totpVerifyResponse{Valid: valid})
}
