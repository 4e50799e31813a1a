package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"usermgmt/internal/audit"
	"usermgmt/internal/httpjson"
	"usermgmt/internal/ratelimit"
)

// Handler serves /auth/login and /auth/logout.
type Handler struct {
	Service *Service
	Audit   *audit.Recorder
	// Limiter throttles login attempts per client address. Nil disables it.
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Limiter != nil {
		allowed, _, _ := h.Limiter.Allow("login:" + httpjson.ClientIP(r))
		if !allowed {
			h.Audit.Record(r.Context(), audit.FromRequest(r, audit.EventLoginRateLimited).WithDetail("too many attempts"))
			httpjson.Error(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
			return
		}
	}

	var req loginRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		httpjson.Error(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	acct, token, err := h.Service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.Audit.Record(r.Context(), audit.FromRequest(r, audit.EventLoginFailed).WithDetail("invalid credentials"))
			httpjson.Error(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		h.Logger.Error("authenticate", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "Internal error")
		return
	}

	h.Audit.Record(r.Context(), audit.FromRequest(r, audit.EventLoginSuccess).WithUser(acct.ID))
	httpjson.Write(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer"})
}

// Logout is best-effort: a missing or stale token still gets a 200, and the
// audit entry names the user only when the token resolves.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	entry := audit.FromRequest(r, audit.EventLogout)
	if token, ok := BearerToken(r); ok {
		if p, err := h.Service.Resolve(r.Context(), token); err == nil {
			entry = entry.WithUser(p.UserID)
		}
	}
	h.Audit.Record(r.Context(), entry)
	httpjson.Write(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
