package credentials

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"usermgmt/internal/audit"
	"usermgmt/internal/auth"
	"usermgmt/internal/httpjson"
	"usermgmt/internal/users"
)

// UserGetter is the part of the user store credential issuing needs.
type UserGetter interface {
	Get(ctx context.Context, id int64) (*users.User, error)
}

// Handler serves /credentials.
type Handler struct {
	Store  Store
	Users  UserGetter
	Audit  *audit.Recorder
	Logger *slog.Logger
}

type createRequest struct {
	UserID int64   `json:"user_id"`
	Label  *string `json:"label"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var userID *int64
	if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpjson.Error(w, http.StatusUnprocessableEntity, "user_id must be an integer")
			return
		}
		userID = &id
	}
	list, err := h.Store.List(r.Context(), userID)
	if err != nil {
		h.Logger.Error("list credentials", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "Internal error")
		return
	}
	httpjson.Write(w, http.StatusOK, list)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.UserID <= 0 {
		httpjson.Error(w, http.StatusUnprocessableEntity, "user_id must be a positive integer")
		return
	}
	if _, err := h.Users.Get(r.Context(), req.UserID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			httpjson.Error(w, http.StatusNotFound, "User not found")
			return
		}
		h.Logger.Error("lookup credential owner", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "Internal error")
		return
	}

	c := &Credential{UserID: req.UserID, Label: trimLabel(req.Label)}
	plaintext, err := Issue(c)
	if err != nil {
		h.Logger.Error("issue credential", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if err := h.Store.Create(r.Context(), c); err != nil {
		h.Logger.Error("create credential", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "Internal error")
		return
	}

	h.Audit.Record(r.Context(), h.entry(r, audit.EventCredentialCreated).WithCredential(c.ID).
		WithDetail("owner="+strconv.FormatInt(c.UserID, 10)))
	httpjson.Write(w, http.StatusCreated, Issued{CredentialID: c.ID, Plaintext: plaintext, ExpiresAt: c.ExpiresAt})
}

func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := httpjson.PathID(r, "id")
	if !ok {
		httpjson.Error(w, http.StatusUnprocessableEntity, "credential id must be a positive integer")
		return
	}
	if err := h.Store.Revoke(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpjson.Error(w, http.StatusNotFound, "Not found")
			return
		}
		h.Logger.Error("revoke credential", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "Internal error")
		return
	}
	h.Audit.Record(r.Context(), h.entry(r, audit.EventCredentialRevoked).WithCredential(id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) entry(r *http.Request, eventType audit.EventType) audit.Entry {
	e := audit.FromRequest(r, eventType)
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		e = e.WithUser(p.UserID)
	}
	return e
}

func trimLabel(label *string) *string {
	if label == nil {
		return nil
	}
	s := strings.TrimSpace(*label)
	if s == "" {
		return nil
	}
	return &s
}
