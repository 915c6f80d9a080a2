package httpx

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/FolkodeGroup/mediapp/internal/domain"
	"github.com/FolkodeGroup/mediapp/internal/repository"
	"github.com/FolkodeGroup/mediapp/internal/service/auth"
)

type loginPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"max=50"`
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload loginPayload
	if err := decodeJSON(w, req, &payload); err != nil {
		r.recordLogin("invalid_request")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in := loginRequest{Username: strings.TrimSpace(payload.Username), Password: payload.Password}
	if in.Username == "" {
		in.Username = strings.TrimSpace(payload.Email)
	}
	if !r.validateRequest(w, in) {
		r.recordLogin("invalid_request")
		return
	}

	user, tokens, err := r.auth.Login(req.Context(), auth.LoginInput{
		Login:    in.Username,
		Password: in.Password,
		IP:       clientIP(req),
	})
	if err != nil {
		r.writeLoginError(w, req, err)
		return
	}
	r.recordLogin("")

	body := map[string]any{
		"message": "login successful",
		"user":    userPayload(user),
		"token":   tokens.AccessToken,
		"expires": tokens.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if tokens.RefreshToken != "" {
		body["refresh_token"] = tokens.RefreshToken
	}
	writeJSON(w, http.StatusOK, body)
}

func (r *Router) writeLoginError(w http.ResponseWriter, req *http.Request, err error) {
	var credErr *auth.CredentialsError
	switch {
	case errors.As(err, &credErr):
		r.recordLogin("invalid_credentials")
		body := map[string]any{"error": "invalid credentials"}
		if credErr.Remaining >= 0 {
			body["remaining_attempts"] = credErr.Remaining
		}
		writeJSON(w, http.StatusUnauthorized, body)
	case errors.Is(err, auth.ErrInvalidCredentials):
		r.recordLogin("invalid_credentials")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrAccountLocked):
		r.recordLogin("account_locked")
		writeError(w, http.StatusForbidden, "account locked: too many failed attempts")
	case errors.Is(err, auth.ErrIPBlocked):
		r.recordLogin("ip_blocked")
		writeError(w, http.StatusTooManyRequests, "too many failed attempts, try again later")
	default:
		r.recordLogin("internal")
		r.logger.Error("login failed", "error", err, "request_id", requestIDFromContext(req.Context()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var in refreshRequest
	if err := decodeJSON(w, req, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.RefreshToken = strings.TrimSpace(in.RefreshToken)
	if !r.validateRequest(w, in) {
		return
	}
	access, err := r.auth.Refresh(req.Context(), in.RefreshToken)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"access_token": access})
	case errors.Is(err, auth.ErrRefreshDisabled):
		writeError(w, http.StatusNotImplemented, "refresh tokens are not enabled")
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
	case errors.Is(err, auth.ErrAccountLocked):
		writeError(w, http.StatusForbidden, "account locked")
	default:
		r.logger.Error("refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var in registerRequest
	if err := decodeJSON(w, req, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if !r.validateRequest(w, in) {
		return
	}
	user, err := r.auth.Register(req.Context(), auth.RegisterInput{
		Username: in.Username,
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Role:     in.Role,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			writeError(w, http.StatusConflict, "username or email already registered")
			return
		}
		r.logger.Error("register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "user registered",
		"id":      user.ID,
	})
}

func (r *Router) handleProtected(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	body := map[string]any{
		"message":  "access granted",
		"user_id":  info.UserID,
		"username": info.Username,
		"role":     info.Role,
	}
	if info.Claims != nil && info.Claims.ExpiresAt != nil {
		body["expires_at"] = info.Claims.ExpiresAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, body)
}

func userPayload(user *domain.User) map[string]any {
	return map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"name":     user.DisplayName(),
		"email":    user.Email,
		"role":     user.Role,
	}
}
