package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
)

// ListCredentials lists credentials, optionally for one user. A userID of
// zero lists all of them.
func (c *Client) ListCredentials(ctx context.Context, sess Session, userID int64) ([]Credential, error) {
	var query url.Values
	if userID > 0 {
		query = url.Values{"user_id": []string{strconv.FormatInt(userID, 10)}}
	}
	var creds []Credential
	if err := c.expectJSON(ctx, call{
		op:     OpListCredentials,
		method: http.MethodGet,
		path:   "/credentials",
		query:  query,
		token:  sess.Token(),
	}, &creds); err != nil {
		return nil, err
	}
	return creds, nil
}

type createCredentialRequest struct {
	UserID int64   `json:"user_id"`
	Label  *string `json:"label,omitempty"`
}

// CreateCredential issues a credential. The returned plaintext is the only
// copy the backend will ever hand out.
func (c *Client) CreateCredential(ctx context.Context, sess Session, userID int64, label string) (CreatedCredential, error) {
	req := createCredentialRequest{UserID: userID}
	if label != "" {
		req.Label = &label
	}
	var out CreatedCredential
	if err := c.expectJSON(ctx, call{
		op:     OpCreateCredential,
		method: http.MethodPost,
		path:   "/credentials",
		token:  sess.Token(),
		body:   req,
	}, &out); err != nil {
		return CreatedCredential{}, err
	}
	if out.ID <= 0 {
		return CreatedCredential{}, &ParseError{Op: OpCreateCredential, Err: errors.New("missing credential_id")}
	}
	return out, nil
}

func (c *Client) RevokeCredential(ctx context.Context, sess Session, id int64) error {
	return c.expectOK(ctx, call{
		op:     OpRevokeCredential,
		method: http.MethodPost,
		path:   "/credentials/" + strconv.FormatInt(id, 10) + "/revoke",
		token:  sess.Token(),
	})
}
