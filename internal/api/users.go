package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const DefaultUserPageSize = 50

func (c *Client) ListUsers(ctx context.Context, sess Session, limit, offset int) ([]User, error) {
	if limit <= 0 {
		limit = DefaultUserPageSize
	}
	if offset < 0 {
		offset = 0
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var users []User
	if err := c.expectJSON(ctx, call{
		op:     OpListUsers,
		method: http.MethodGet,
		path:   "/users",
		query:  query,
		token:  sess.Token(),
	}, &users); err != nil {
		return nil, err
	}
	for i, u := range users {
		if err := u.validate(); err != nil {
			return nil, &ParseError{Op: OpListUsers, Err: fmt.Errorf("item %d: %w", i, err)}
		}
	}
	return users, nil
}

func (c *Client) GetUser(ctx context.Context, sess Session, id int64) (User, error) {
	return c.userCall(ctx, call{
		op:     OpGetUser,
		method: http.MethodGet,
		path:   userPath(id),
		token:  sess.Token(),
	})
}

// CreateUser registers a user. Roles are normalized before sending.
func (c *Client) CreateUser(ctx context.Context, sess Session, in NewUser) (User, error) {
	in.Roles = NormalizeRoles(in.Roles)
	return c.userCall(ctx, call{
		op:     OpCreateUser,
		method: http.MethodPost,
		path:   "/users",
		token:  sess.Token(),
		body:   in,
	})
}

// UpdateUser applies a partial update. When the patch carries roles they are
// normalized first, so {"a", " b ", ""} goes out as ["a","b"].
func (c *Client) UpdateUser(ctx context.Context, sess Session, id int64, patch UserPatch) (User, error) {
	patch.Roles = NormalizeRoles(patch.Roles)
	return c.userCall(ctx, call{
		op:     OpUpdateUser,
		method: http.MethodPatch,
		path:   userPath(id),
		token:  sess.Token(),
		body:   patch,
	})
}

func (c *Client) DeleteUser(ctx context.Context, sess Session, id int64) error {
	return c.expectOK(ctx, call{
		op:     OpDeleteUser,
		method: http.MethodDelete,
		path:   userPath(id),
		token:  sess.Token(),
	})
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (c *Client) SetPassword(ctx context.Context, sess Session, id int64, password string) error {
	return c.expectOK(ctx, call{
		op:     OpSetPassword,
		method: http.MethodPost,
		path:   userPath(id) + "/password",
		token:  sess.Token(),
		body:   passwordRequest{Password: password},
	})
}

func (c *Client) userCall(ctx context.Context, cl call) (User, error) {
	var u User
	if err := c.expectJSON(ctx, cl, &u); err != nil {
		return User{}, err
	}
	if err := u.validate(); err != nil {
		return User{}, &ParseError{Op: cl.op, Err: err}
	}
	return u, nil
}

func userPath(id int64) string {
	return "/users/" + strconv.FormatInt(id, 10)
}
