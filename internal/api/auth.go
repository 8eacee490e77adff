package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bbellwfu/moip-manager/internal/auth"
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresAt string `json:"expires_at"`
}

// handleLogin verifies the operator credentials and returns a JWT token.
// Returns 404 when auth is disabled so clients can detect open mode.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.authCfg.Enabled {
		writeNotFound(w, "authentication is disabled")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := auth.VerifyCredentials(req.Username, req.Password, s.authCfg); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.Error("credential verification failed", "error", err)
		writeInternalError(w, "failed to verify credentials")
		return
	}

	token, expiresAt, err := auth.GenerateToken(req.Username, s.authCfg.JWTSecret, s.authCfg.AccessTokenTTL)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}
