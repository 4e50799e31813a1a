package api

import (
	"context"
	"errors"
	"net/http"
)

// Health reports whether GET /healthz answered 200. A non-200 answer is
// (false, nil). An unreachable backend returns the transport's
// NetworkError, naming the URL, instead of false.
func (c *Client) Health(ctx context.Context) (bool, error) {
	return c.probe(ctx, OpHealth, "/healthz")
}

// Ready is Health for /readyz, which also checks storage.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	return c.probe(ctx, OpReady, "/readyz")
}

func (c *Client) probe(ctx context.Context, op Operation, path string) (bool, error) {
	resp, err := c.send(ctx, call{op: op, method: http.MethodGet, path: path})
	if err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusOK, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges a username and password for a session. Every call gets a
// fresh trace id, sent in the X-Trace-Id header and attached to the
// auth.login.request and auth.login.response log events. A 401 is reported
// as ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	traceID := c.newTraceID()
	c.logger.Info("auth.login.request",
		"trace_id", traceID, "username", username, "url", c.baseURL+"/auth/login")

	resp, err := c.send(ctx, call{
		op:     OpLogin,
		method: http.MethodPost,
		path:   "/auth/login",
		body:   loginRequest{Username: username, Password: password},
		header: http.Header{TraceHeader: []string{traceID}},
	})
	if err != nil {
		c.logger.Error("auth.login.error", "trace_id", traceID, "err", err)
		return Session{}, err
	}
	c.logger.Info("auth.login.response", "trace_id", traceID, "status", resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized {
		return Session{}, ErrInvalidCredentials
	}
	if !resp.OK() {
		return Session{}, newStatusError(OpLogin, resp)
	}

	var out loginResponse
	if err := decode(OpLogin, resp.Body, &out); err != nil {
		return Session{}, err
	}
	if out.AccessToken == "" {
		return Session{}, &ParseError{Op: OpLogin, Err: errors.New("missing access_token")}
	}
	return NewSession(out.AccessToken), nil
}

// Logout tells the backend the session is over. The token is optional. The
// result only informs the caller; the session should be dropped either way.
func (c *Client) Logout(ctx context.Context, sess Session) error {
	return c.expectOK(ctx, call{
		op:     OpLogout,
		method: http.MethodPost,
		path:   "/auth/logout",
		token:  sess.Token(),
	})
}
