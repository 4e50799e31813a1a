package users

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"usermgmt/internal/audit"
	"usermgmt/internal/auth"
	"usermgmt/internal/httpjson"
)

// Handler serves /users. Authentication, the admin check on list and
// set-password, and per-user rate limiting are applied by the router.
type Handler struct {
	Store  Store
	Audit  *audit.Recorder
	Logger *slog.Logger
	// AfterDelete runs once a user is gone, before the response is written.
	AfterDelete func(ctx context.Context, userID int64) error
}

type createRequest struct {
	Email       string   `json:"email"`
	DisplayName *string  `json:"display_name"`
	Roles       []string `json:"roles"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Name == "" && addr.Address == email
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := httpjson.QueryInt(r, "limit", DefaultPageSize, 1, MaxPageSize)
	if err != nil {
		httpjson.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	offset, err := httpjson.QueryInt(r, "offset", 0, 0, math.MaxInt32)
	if err != nil {
		httpjson.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	list, err := h.Store.List(r.Context(), limit, offset)
	if err != nil {
		h.internal(w, "list users", err)
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
	req.Email = strings.TrimSpace(req.Email)
	if !validEmail(req.Email) {
		httpjson.Error(w, http.StatusUnprocessableEntity, "email must be a valid address")
		return
	}
	u := &User{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		IsActive:    true,
		Roles:       req.Roles,
	}
	if err := h.Store.Create(r.Context(), u); err != nil {
		if errors.Is(err, ErrExists) {
			httpjson.Error(w, http.StatusBadRequest, "User exists")
			return
		}
		h.internal(w, "create user", err)
		return
	}
	h.Audit.Record(r.Context(), h.entry(r, audit.EventUserCreated).WithDetail("target="+itoa64(u.ID)))
	httpjson.Write(w, http.StatusCreated, u)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpjson.PathID(r, "id")
	if !ok {
		httpjson.Error(w, http.StatusUnprocessableEntity, "user id must be a positive integer")
		return
	}
	u, err := h.Store.Get(r.Context(), id)
	if err != nil {
		h.storeError(w, "get user", err)
		return
	}
	httpjson.Write(w, http.StatusOK, u)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpjson.PathID(r, "id")
	if !ok {
		httpjson.Error(w, http.StatusUnprocessableEntity, "user id must be a positive integer")
		return
	}
	var p Patch
	if err := httpjson.Decode(r, &p); err != nil {
		httpjson.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	u, err := h.Store.Update(r.Context(), id, p)
	if err != nil {
		h.storeError(w, "update user", err)
		return
	}
	h.Audit.Record(r.Context(), h.entry(r, audit.EventUserUpdated).WithDetail("target="+itoa64(id)+" "+p.describe()))
	httpjson.Write(w, http.StatusOK, u)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpjson.PathID(r, "id")
	if !ok {
		httpjson.Error(w, http.StatusUnprocessableEntity, "user id must be a positive integer")
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		h.storeError(w, "delete user", err)
		return
	}
	if h.AfterDelete != nil {
		if err := h.AfterDelete(r.Context(), id); err != nil {
			h.Logger.Error("after user delete", "user_id", id, "err", err)
		}
	}
	h.Audit.Record(r.Context(), h.entry(r, audit.EventUserDeleted).WithDetail("target="+itoa64(id)))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := httpjson.PathID(r, "id")
	if !ok {
		httpjson.Error(w, http.StatusUnprocessableEntity, "user id must be a positive integer")
		return
	}
	var req passwordRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		httpjson.Error(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.internal(w, "hash password", err)
		return
	}
	if err := h.Store.SetPasswordHash(r.Context(), id, hash); err != nil {
		h.storeError(w, "set password", err)
		return
	}
	h.Audit.Record(r.Context(), h.entry(r, audit.EventPasswordSet).WithDetail("target="+itoa64(id)))
	w.WriteHeader(http.StatusNoContent)
}

// entry starts an audit entry attributed to the calling principal.
func (h *Handler) entry(r *http.Request, eventType audit.EventType) audit.Entry {
	e := audit.FromRequest(r, eventType)
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		e = e.WithUser(p.UserID)
	}
	return e
}

func (h *Handler) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		httpjson.Error(w, http.StatusNotFound, "Not found")
		return
	}
	h.internal(w, op, err)
}

func (h *Handler) internal(w http.ResponseWriter, op string, err error) {
	h.Logger.Error(op, "err", err)
	httpjson.Error(w, http.StatusInternalServerError, "Internal error")
}

func (p Patch) describe() string {
	var fields []string
	if p.DisplayName != nil {
		fields = append(fields, "display_name")
	}
	if p.IsActive != nil {
		fields = append(fields, "is_active")
	}
	if p.Roles != nil {
		fields = append(fields, "roles")
	}
	if len(fields) == 0 {
		return "fields=none"
	}
	return "fields=" + strings.Join(fields, ",")
}

func itoa64(n int64) string {
	return strconv.FormatInt(n, 10)
}
