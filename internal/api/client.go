// Package api is the typed client for the user-management backend. It has
// one method per backend operation. Each method builds the request, sends it
// through the retrying transport with that operation's policy, and turns the
// outcome into a typed result or a descriptive error.
//
// The client holds no session state. Protected operations take a [Session]
// argument and send its token as a bearer credential; a rejected token is
// reported through [StatusError] and it is up to the caller to drop the
// session.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"usermgmt/internal/transport"
)

// TraceHeader carries the login correlation id.
const TraceHeader = "X-Trace-Id"

// Operation names one backend call. It keys retry policies and prefixes
// error messages.
type Operation string

const (
	OpHealth           Operation = "health"
	OpReady            Operation = "ready"
	OpLogin            Operation = "login"
	OpLogout           Operation = "logout"
	OpListUsers        Operation = "list users"
	OpGetUser          Operation = "get user"
	OpCreateUser       Operation = "create user"
	OpUpdateUser       Operation = "update user"
	OpDeleteUser       Operation = "delete user"
	OpSetPassword      Operation = "set password"
	OpListCredentials  Operation = "list credentials"
	OpCreateCredential Operation = "create credential"
	OpRevokeCredential Operation = "revoke credential"
	OpListAudit        Operation = "list audit"
	OpChat             Operation = "chat"
	OpEmbeddings       Operation = "embeddings"
)

var (
	healthPolicy  = transport.Policy{MaxAttempts: 2, BaseDelay: 200 * time.Millisecond}
	loginPolicy   = transport.Policy{MaxAttempts: 3, BaseDelay: 300 * time.Millisecond}
	defaultPolicy = transport.Policy{MaxAttempts: 2, BaseDelay: 200 * time.Millisecond}
	ollamaPolicy  = transport.Policy{MaxAttempts: 2, BaseDelay: 300 * time.Millisecond}
)

// DefaultPolicies returns the per-operation retry budgets used when Config
// does not override them.
func DefaultPolicies() map[Operation]transport.Policy {
	return map[Operation]transport.Policy{
		OpHealth:           healthPolicy,
		OpReady:            healthPolicy,
		OpLogin:            loginPolicy,
		OpLogout:           defaultPolicy,
		OpListUsers:        defaultPolicy,
		OpGetUser:          defaultPolicy,
		OpCreateUser:       defaultPolicy,
		OpUpdateUser:       defaultPolicy,
		OpDeleteUser:       defaultPolicy,
		OpSetPassword:      defaultPolicy,
		OpListCredentials:  defaultPolicy,
		OpCreateCredential: defaultPolicy,
		OpRevokeCredential: defaultPolicy,
		OpListAudit:        defaultPolicy,
		OpChat:             ollamaPolicy,
		OpEmbeddings:       ollamaPolicy,
	}
}

// Sender is the transport the client sends through. *transport.Client
// satisfies it.
type Sender interface {
	Send(ctx context.Context, req transport.Request, policy transport.Policy) (*transport.Response, error)
}

type Config struct {
	// BaseURL is the backend root, e.g. "http://127.0.0.1:8080".
	BaseURL string
	// Sender overrides the transport. If nil, a transport.Client is built
	// from HTTPClient and Logger.
	Sender     Sender
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Policies overrides retry budgets per operation.
	Policies map[Operation]transport.Policy
	// NewTraceID generates login correlation ids. Defaults to random UUIDs.
	NewTraceID func() string
}

type Client struct {
	baseURL    string
	sender     Sender
	logger     *slog.Logger
	policies   map[Operation]transport.Policy
	newTraceID func() string
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api: BaseURL is required")
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("api: BaseURL %q must be http or https", cfg.BaseURL)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sender := cfg.Sender
	if sender == nil {
		sender = transport.New(transport.Config{HTTPClient: cfg.HTTPClient, Logger: logger})
	}
	policies := DefaultPolicies()
	for op, p := range cfg.Policies {
		policies[op] = p
	}
	newTraceID := cfg.NewTraceID
	if newTraceID == nil {
		newTraceID = uuid.NewString
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		sender:     sender,
		logger:     logger,
		policies:   policies,
		newTraceID: newTraceID,
	}, nil
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

type call struct {
	op     Operation
	method string
	path   string
	query  url.Values
	token  string
	body   any
	header http.Header
}

func (c *Client) send(ctx context.Context, cl call) (*transport.Response, error) {
	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	var body []byte
	if cl.body != nil {
		encoded, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request body: %w", cl.op, err)
		}
		body = encoded
		header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		header.Set("Authorization", "Bearer "+cl.token)
	}
	for k, vs := range cl.header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}

	resp, err := c.sender.Send(ctx, transport.Request{
		Method: cl.method,
		URL:    target,
		Header: header,
		Body:   body,
	}, c.policy(cl.op))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cl.op, err)
	}
	return resp, nil
}

func (c *Client) policy(op Operation) transport.Policy {
	if p, ok := c.policies[op]; ok {
		return p
	}
	return defaultPolicy
}

// expectJSON sends cl, requires a 2xx status and decodes the body into out.
func (c *Client) expectJSON(ctx context.Context, cl call, out any) error {
	resp, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return newStatusError(cl.op, resp)
	}
	return decode(cl.op, resp.Body, out)
}

// expectOK sends cl and requires a 2xx status; the body is ignored.
func (c *Client) expectOK(ctx context.Context, cl call) error {
	resp, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return newStatusError(cl.op, resp)
	}
	return nil
}

func decode(op Operation, body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return &ParseError{Op: op, Err: errors.New("empty response body")}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ParseError{Op: op, Err: err}
	}
	return nil
}
