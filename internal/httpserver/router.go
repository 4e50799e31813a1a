package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"usermgmt/internal/audit"
	"usermgmt/internal/auth"
	"usermgmt/internal/credentials"
	"usermgmt/internal/httpjson"
	"usermgmt/internal/ollama"
	"usermgmt/internal/ratelimit"
	"usermgmt/internal/users"
)

// Deps are the services the router wires into handlers.
type Deps struct {
	Logger      *slog.Logger
	Auth        *auth.Service
	Users       users.Store
	Credentials credentials.Store
	Audit       audit.Store
	Ollama      ollama.Model

	// LoginLimiter is keyed by client address, UserLimiter by user id.
	// Either may be nil to disable that limit.
	LoginLimiter *ratelimit.Limiter
	UserLimiter  *ratelimit.Limiter

	CORSOrigins []string

	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Leave it off unless a reverse proxy sets those headers.
	TrustProxyHeaders bool
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := audit.NewRecorder(d.Audit, logger)
	mux := http.NewServeMux()

	// Health and readiness
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", readyHandler(d.Users, logger))

	// Auth
	authHandler := &auth.Handler{Service: d.Auth, Audit: recorder, Limiter: d.LoginLimiter, Logger: logger}
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)

	secured := auth.JWTMiddleware(d.Auth, logger)
	admin := func(h http.HandlerFunc) http.Handler { return secured(auth.RequireAdmin(h)) }
	limited := func(h http.HandlerFunc) http.Handler { return secured(withUserLimit(d.UserLimiter, h)) }
	authed := func(h http.HandlerFunc) http.Handler { return secured(h) }

	// Users
	userHandler := &users.Handler{
		Store:  d.Users,
		Audit:  recorder,
		Logger: logger,
		AfterDelete: func(ctx context.Context, userID int64) error {
			return d.Credentials.DeleteForUser(ctx, userID)
		},
	}
	mux.Handle("GET /users", admin(userHandler.List))
	mux.Handle("POST /users", limited(userHandler.Create))
	mux.Handle("GET /users/{id}", limited(userHandler.Get))
	mux.Handle("PATCH /users/{id}", limited(userHandler.Update))
	mux.Handle("DELETE /users/{id}", limited(userHandler.Delete))
	mux.Handle("POST /users/{id}/password", admin(userHandler.SetPassword))

	// Credentials
	credHandler := &credentials.Handler{Store: d.Credentials, Users: d.Users, Audit: recorder, Logger: logger}
	mux.Handle("GET /credentials", authed(credHandler.List))
	mux.Handle("POST /credentials", limited(credHandler.Create))
	mux.Handle("POST /credentials/{id}/revoke", limited(credHandler.Revoke))

	// Audit
	auditHandler := &audit.ListHandler{Store: d.Audit, Logger: logger}
	mux.Handle("GET /audit", admin(auditHandler.ServeHTTP))

	// Model proxy
	ollamaHandler := &ollama.Handler{Upstream: d.Ollama, Logger: logger}
	mux.Handle("POST /ollama/chat", limited(ollamaHandler.Chat))
	mux.Handle("POST /ollama/embeddings", limited(ollamaHandler.Embeddings))

	var handler http.Handler = mux
	handler = withSecurityHeaders(handler)
	handler = withCORS(d.CORSOrigins)(handler)
	if d.TrustProxyHeaders {
		handler = withTrustedProxy(handler)
	}
	handler = withRequestLog(logger)(handler)
	return handler
}

// withUserLimit applies the per-user limit to an authenticated request.
func withUserLimit(l *ratelimit.Limiter, next http.HandlerFunc) http.Handler {
	if l == nil {
		return next
	}
	return l.Middleware(func(r *http.Request) string {
		p, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			return ""
		}
		return "user:" + strconv.FormatInt(p.UserID, 10)
	})(next)
}

// Pinger is anything that can report whether its backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func readyHandler(p Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			logger.Warn("readiness check failed", "err", err)
			httpjson.Write(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httpjson.Write(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
