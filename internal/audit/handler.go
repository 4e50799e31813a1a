package audit

import (
	"log/slog"
	"net/http"

	"usermgmt/internal/httpjson"
)

// ListHandler serves GET /audit. Admin checks are applied by the router.
type ListHandler struct {
	Store  Store
	Logger *slog.Logger
}

func (h *ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit, err := httpjson.QueryInt(r, "limit", DefaultLimit, 1, MaxLimit)
	if err != nil {
		httpjson.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	entries, err := h.Store.List(r.Context(), limit)
	if err != nil {
		h.Logger.Error("list audit", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "Internal error")
		return
	}
	httpjson.Write(w, http.StatusOK, entries)
}
