package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const DefaultAuditLimit = 100

// ListAudit returns audit entries in the order the backend sends them.
func (c *Client) ListAudit(ctx context.Context, sess Session, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	var entries []AuditEntry
	if err := c.expectJSON(ctx, call{
		op:     OpListAudit,
		method: http.MethodGet,
		path:   "/audit",
		query:  url.Values{"limit": []string{strconv.Itoa(limit)}},
		token:  sess.Token(),
	}, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
