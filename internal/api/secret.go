package api

import (
	"net/http"

	"github.com/stagetwo/webgate/internal/audit"
)

// handleSecretInfo returns the secret store's diagnostic snapshot.
func (s *Server) handleSecretInfo(w http.ResponseWriter, _ *http.Request) {
	noStore(w)
	writeJSON(w, http.StatusOK, s.secrets.Info())
}

// handleSecretClear zeroes the stored secret (factory-reset hook). The
// next Load generates a fresh one.
func (s *Server) handleSecretClear(w http.ResponseWriter, r *http.Request) {
	ok := s.secrets.Clear()
	s.auditSecret(r, audit.ActionSecretClear, map[string]any{"persisted": ok})

	if !ok {
		writeError(w, http.StatusInternalServerError, ErrCodeStorage, "Failed to clear secret")
		return
	}
	s.logger.Warn("device secret cleared", "client", clientID(r))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleSecretRegenerate replaces the secret with a new random one.
func (s *Server) handleSecretRegenerate(w http.ResponseWriter, r *http.Request) {
	sec, ok := s.secrets.Regenerate()
	s.auditSecret(r, audit.ActionSecretRegenerate, map[string]any{"length": len(sec), "persisted": ok})

	if !ok {
		writeError(w, http.StatusInternalServerError, ErrCodeStorage, "Secret generated but could not be stored")
		return
	}
	s.logger.Info("device secret regenerated", "client", clientID(r), "length", len(sec))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"length":  len(sec),
	})
}

func (s *Server) auditSecret(r *http.Request, action string, details map[string]any) {
	s.recorder.Record(&audit.AuditLog{
		Action:     action,
		EntityType: audit.EntitySecret,
		ClientID:   clientID(r),
		Source:     audit.SourceAPI,
		Details:    details,
		CreatedAt:  s.now().UTC(),
	})
}
