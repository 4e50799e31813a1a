package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"usermgmt/internal/transport"
)

type fakeSender struct {
	requests []transport.Request
	policies []transport.Policy
	respond  func(transport.Request) (*transport.Response, error)
}

func (f *fakeSender) Send(_ context.Context, req transport.Request, policy transport.Policy) (*transport.Response, error) {
	f.requests = append(f.requests, req)
	f.policies = append(f.policies, policy)
	return f.respond(req)
}

func reply(status int, body string) func(transport.Request) (*transport.Response, error) {
	return func(transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: status, Header: http.Header{}, Body: []byte(body)}, nil
	}
}

func newFakeClient(t *testing.T, sender *fakeSender, logger *slog.Logger) *Client {
	t.Helper()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	client, err := New(Config{
		BaseURL:    "http://api.test/",
		Sender:     sender,
		Logger:     logger,
		NewTraceID: func() string { return "trace-1" },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, base := range []string{"", "ftp://api.test", "://nope"} {
		if _, err := New(Config{BaseURL: base}); err == nil {
			t.Fatalf("New(%q) should fail", base)
		}
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	sender := &fakeSender{respond: reply(http.StatusUnauthorized, `{"detail":"Invalid username or password"}`)}
	client := newFakeClient(t, sender, nil)

	sess, err := client.Login(context.Background(), "admin@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if !strings.Contains(strings.ToLower(err.Error()), "invalid credentials") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Fatal("invalid credentials must not be a generic status error")
	}
	if sess.Authenticated() {
		t.Fatal("failed login must not yield a session")
	}
}

func TestLoginOtherStatus(t *testing.T) {
	sender := &fakeSender{respond: reply(http.StatusInternalServerError, "upstream exploded")}
	client := newFakeClient(t, sender, nil)

	_, err := client.Login(context.Background(), "admin@example.com", "pw")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if err.Error() != "login failed: 500" {
		t.Fatalf("message = %q", err.Error())
	}
	if IsNetworkError(err) || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("status failure misclassified: %v", err)
	}
}

func TestLoginSuccessSendsTraceAndLogs(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	sender := &fakeSender{respond: reply(http.StatusOK, `{"access_token":"tok-123","token_type":"bearer"}`)}
	client := newFakeClient(t, sender, logger)

	sess, err := client.Login(context.Background(), "admin@example.com", "admin123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Token() != "tok-123" || !sess.Authenticated() {
		t.Fatalf("unexpected session %+v", sess)
	}

	req := sender.requests[0]
	if req.Method != http.MethodPost || req.URL != "http://api.test/auth/login" {
		t.Fatalf("unexpected request %s %s", req.Method, req.URL)
	}
	if got := req.Header.Get(TraceHeader); got != "trace-1" {
		t.Fatalf("trace header = %q", got)
	}
	if req.Header.Get("Authorization") != "" {
		t.Fatal("login must not send a bearer token")
	}
	var body map[string]string
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["username"] != "admin@example.com" || body["password"] != "admin123" {
		t.Fatalf("unexpected body %v", body)
	}

	want := transport.Policy{MaxAttempts: 3, BaseDelay: 300 * time.Millisecond}
	if sender.policies[0] != want {
		t.Fatalf("login policy = %+v, want %+v", sender.policies[0], want)
	}

	var sawRequest, sawResponse bool
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode log %q: %v", line, err)
		}
		if rec["trace_id"] != "trace-1" {
			continue
		}
		switch rec["msg"] {
		case "auth.login.request":
			sawRequest = true
		case "auth.login.response":
			sawResponse = rec["status"] == float64(200)
		}
	}
	if !sawRequest || !sawResponse {
		t.Fatalf("missing login log events:\n%s", logs.String())
	}
}

func TestLoginMissingToken(t *testing.T) {
	sender := &fakeSender{respond: reply(http.StatusOK, `{"token_type":"bearer"}`)}
	client := newFakeClient(t, sender, nil)

	_, err := client.Login(context.Background(), "a@example.com", "pw")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestLoginNetworkError(t *testing.T) {
	sender := &fakeSender{respond: func(req transport.Request) (*transport.Response, error) {
		return nil, &transport.NetworkError{Method: req.Method, URL: req.URL, Attempts: 3, Err: io.EOF}
	}}
	client := newFakeClient(t, sender, nil)

	_, err := client.Login(context.Background(), "a@example.com", "pw")
	if !IsNetworkError(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	if !strings.Contains(err.Error(), "http://api.test/auth/login") {
		t.Fatalf("network error should name the URL: %q", err.Error())
	}
}

func TestBearerTokenOnlyWhenAuthenticated(t *testing.T) {
	sender := &fakeSender{respond: reply(http.StatusOK, `[]`)}
	client := newFakeClient(t, sender, nil)

	if _, err := client.ListUsers(context.Background(), NewSession("tok"), 10, 20); err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if _, err := client.ListUsers(context.Background(), Session{}, 0, -1); err != nil {
		t.Fatalf("ListUsers: %v", err)
	}

	if got := sender.requests[0].Header.Get("Authorization"); got != "Bearer tok" {
		t.Fatalf("Authorization = %q", got)
	}
	if sender.requests[0].URL != "http://api.test/users?limit=10&offset=20" {
		t.Fatalf("URL = %q", sender.requests[0].URL)
	}
	if got := sender.requests[1].Header.Get("Authorization"); got != "" {
		t.Fatalf("unauthenticated call sent Authorization %q", got)
	}
	if sender.requests[1].URL != "http://api.test/users?limit=50&offset=0" {
		t.Fatalf("URL = %q", sender.requests[1].URL)
	}
}

func TestStatusErrorCarriesDetail(t *testing.T) {
	sender := &fakeSender{respond: reply(http.StatusForbidden, `{"detail":"Admin role required"}`)}
	client := newFakeClient(t, sender, nil)

	_, err := client.ListUsers(context.Background(), NewSession("tok"), 0, 0)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if err.Error() != "list users failed: 403: Admin role required" {
		t.Fatalf("message = %q", err.Error())
	}
	if !statusErr.AuthRejected() || !IsForbidden(err) || IsUnauthorized(err) {
		t.Fatalf("classification wrong for %+v", statusErr)
	}
}

func TestErrorDetail(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"detail string", `{"detail":"Not found"}`, "Not found"},
		{"detail list", `{"detail":[{"loc":["body","email"],"msg":"field required"}]}`, `[{"loc":["body","email"],"msg":"field required"}]`},
		{"error field", `{"error":"bad request"}`, "bad request"},
		{"message field", `{"message":"nope"}`, "nope"},
		{"not json", `<html>502</html>`, ""},
		{"empty", ``, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := errorDetail([]byte(tc.body)); got != tc.want {
				t.Fatalf("errorDetail(%q) = %q, want %q", tc.body, got, tc.want)
			}
		})
	}
}

func TestUpdateUserNormalizesRoles(t *testing.T) {
	sender := &fakeSender{respond: reply(http.StatusOK,
		`{"id":7,"email":"a@example.com","is_active":true,"roles":["a","b"],"created_at":"2024-01-02T03:04:05"}`)}
	client := newFakeClient(t, sender, nil)

	user, err := client.UpdateUser(context.Background(), NewSession("tok"), 7, UserPatch{Roles: []string{"a", " b ", ""}})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	req := sender.requests[0]
	if req.Method != http.MethodPatch || req.URL != "http://api.test/users/7" {
		t.Fatalf("unexpected request %s %s", req.Method, req.URL)
	}
	if string(req.Body) != `{"roles":["a","b"]}` {
		t.Fatalf("body = %s", req.Body)
	}
	if user.ID != 7 || user.CreatedAt.Year() != 2024 {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestUpdateUserPatchShapes(t *testing.T) {
	inactive := false
	name := "Ops"
	cases := []struct {
		name  string
		patch UserPatch
		want  string
	}{
		{"clear roles", UserPatch{Roles: []string{}}, `{"roles":[]}`},
		{"only blanks", UserPatch{Roles: []string{" ", ""}}, `{"roles":[]}`},
		{"deactivate", UserPatch{IsActive: &inactive}, `{"is_active":false}`},
		{"all", UserPatch{IsActive: &inactive, Roles: []string{"x", "x"}, DisplayName: &name}, `{"display_name":"Ops","is_active":false,"roles":["x"]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &fakeSender{respond: reply(http.StatusOK, `{"id":1,"email":"a@example.com"}`)}
			client := newFakeClient(t, sender, nil)
			if _, err := client.UpdateUser(context.Background(), NewSession("tok"), 1, tc.patch); err != nil {
				t.Fatalf("UpdateUser: %v", err)
			}
			if got := string(sender.requests[0].Body); got != tc.want {
				t.Fatalf("body = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestSuccessBodyMustParse(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `not json`},
		{"empty", ``},
		{"missing id", `[{"email":"a@example.com"}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newFakeClient(t, &fakeSender{respond: reply(http.StatusOK, tc.body)}, nil)
			_, err := client.ListUsers(context.Background(), NewSession("tok"), 0, 0)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
		})
	}
}

func TestCreateUserBody(t *testing.T) {
	sender := &fakeSender{respond: reply(http.StatusCreated, `{"id":3,"email":"new@example.com","is_active":true,"roles":["ops"]}`)}
	client := newFakeClient(t, sender, nil)

	user, err := client.CreateUser(context.Background(), NewSession("tok"), NewUser{Email: "new@example.com", Roles: []string{" ops", "ops"}})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if string(sender.requests[0].Body) != `{"email":"new@example.com","roles":["ops"]}` {
		t.Fatalf("body = %s", sender.requests[0].Body)
	}
	if user.ID != 3 {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestCreateCredential(t *testing.T) {
	sender := &fakeSender{respond: reply(http.StatusCreated,
		`{"credential_id":11,"plaintext":"s3cr3t","expires_at":"2030-01-01T00:00:00+00:00"}`)}
	client := newFakeClient(t, sender, nil)

	created, err := client.CreateCredential(context.Background(), NewSession("tok"), 4, "api-key")
	if err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}
	if created.ID != 11 || created.Plaintext != "s3cr3t" || created.ExpiresAt == nil || created.ExpiresAt.Year() != 2030 {
		t.Fatalf("unexpected credential %+v", created)
	}
	if string(sender.requests[0].Body) != `{"user_id":4,"label":"api-key"}` {
		t.Fatalf("body = %s", sender.requests[0].Body)
	}

	sender.respond = reply(http.StatusCreated, `{"credential_id":12,"plaintext":"x"}`)
	if _, err := client.CreateCredential(context.Background(), NewSession("tok"), 4, ""); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}
	if string(sender.requests[1].Body) != `{"user_id":4}` {
		t.Fatalf("label should be omitted, body = %s", sender.requests[1].Body)
	}
}

func TestListCredentialsQuery(t *testing.T) {
	sender := &fakeSender{respond: reply(http.StatusOK, `[{"id":1,"user_id":2,"label":null,"revoked":false}]`)}
	client := newFakeClient(t, sender, nil)

	creds, err := client.ListCredentials(context.Background(), NewSession("tok"), 2)
	if err != nil {
		t.Fatalf("ListCredentials: %v", err)
	}
	if len(creds) != 1 || creds[0].Label != nil {
		t.Fatalf("unexpected credentials %+v", creds)
	}
	if _, err := client.ListCredentials(context.Background(), NewSession("tok"), 0); err != nil {
		t.Fatalf("ListCredentials: %v", err)
	}
	if sender.requests[0].URL != "http://api.test/credentials?user_id=2" || sender.requests[1].URL != "http://api.test/credentials" {
		t.Fatalf("URLs = %q, %q", sender.requests[0].URL, sender.requests[1].URL)
	}
}

func TestRevokeAndDeletePaths(t *testing.T) {
	sender := &fakeSender{respond: reply(http.StatusNoContent, ``)}
	client := newFakeClient(t, sender, nil)
	sess := NewSession("tok")

	if err := client.RevokeCredential(context.Background(), sess, 9); err != nil {
		t.Fatalf("RevokeCredential: %v", err)
	}
	if err := client.DeleteUser(context.Background(), sess, 5); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if err := client.SetPassword(context.Background(), sess, 5, "hunter22"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}

	want := []string{
		"POST http://api.test/credentials/9/revoke",
		"DELETE http://api.test/users/5",
		"POST http://api.test/users/5/password",
	}
	for i, w := range want {
		if got := sender.requests[i].Method + " " + sender.requests[i].URL; got != w {
			t.Fatalf("request %d = %q, want %q", i, got, w)
		}
	}
}

func TestListAuditOptionalFields(t *testing.T) {
	sender := &fakeSender{respond: reply(http.StatusOK,
		`[{"id":2,"occurred_at":"2024-05-01T10:00:00Z","event_type":"login_success","user_id":1,"ip":"127.0.0.1","user_agent":"curl"},`+
			`{"id":1,"occurred_at":"2024-05-01 09:00:00","event_type":"login_failed","user_id":null,"ip":null,"user_agent":null}]`)}
	client := newFakeClient(t, sender, nil)

	entries, err := client.ListAudit(context.Background(), NewSession("tok"), 0)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if sender.requests[0].URL != "http://api.test/audit?limit=100" {
		t.Fatalf("URL = %q", sender.requests[0].URL)
	}
	if len(entries) != 2 || entries[0].UserID == nil || *entries[0].UserID != 1 || entries[1].UserID != nil || entries[1].IP != nil {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[1].OccurredAt.Hour() != 9 {
		t.Fatalf("naive timestamp misparsed: %v", entries[1].OccurredAt)
	}
}

func TestChatAndEmbeddings(t *testing.T) {
	sender := &fakeSender{respond: func(req transport.Request) (*transport.Response, error) {
		if strings.HasSuffix(req.URL, "/ollama/chat") {
			return &transport.Response{StatusCode: http.StatusOK, Body: []byte(`{"response":"hi there"}`)}, nil
		}
		return &transport.Response{StatusCode: http.StatusOK, Body: []byte(`{"embedding":[0.1,0.2,0.3]}`)}, nil
	}}
	client := newFakeClient(t, sender, nil)
	sess := NewSession("tok")

	text, err := client.Chat(context.Background(), sess, "llama3", "hello")
	if err != nil || text != "hi there" {
		t.Fatalf("Chat = %q, %v", text, err)
	}
	vec, err := client.Embeddings(context.Background(), sess, "nomic-embed-text", "hello")
	if err != nil || len(vec) != 3 {
		t.Fatalf("Embeddings = %v, %v", vec, err)
	}
	want := transport.Policy{MaxAttempts: 2, BaseDelay: 300 * time.Millisecond}
	if sender.policies[0] != want || sender.policies[1] != want {
		t.Fatalf("proxy policies = %+v", sender.policies)
	}

	sender.respond = reply(http.StatusBadGateway, `{"detail":"Ollama error: connection refused"}`)
	_, err = client.Chat(context.Background(), sess, "llama3", "hello")
	if err == nil || !strings.Contains(err.Error(), "Ollama error") {
		t.Fatalf("expected upstream detail, got %v", err)
	}
}

func TestHealthReportsStatus(t *testing.T) {
	sender := &fakeSender{respond: reply(http.StatusOK, `{"status":"ok"}`)}
	client := newFakeClient(t, sender, nil)
	ok, err := client.Health(context.Background())
	if err != nil || !ok {
		t.Fatalf("Health = %v, %v", ok, err)
	}

	sender.respond = reply(http.StatusServiceUnavailable, ``)
	ok, err = client.Ready(context.Background())
	if err != nil || ok {
		t.Fatalf("Ready = %v, %v", ok, err)
	}
	if sender.requests[1].URL != "http://api.test/readyz" {
		t.Fatalf("URL = %q", sender.requests[1].URL)
	}
	sender.respond = func(req transport.Request) (*transport.Response, error) {
		return nil, &transport.NetworkError{Method: req.Method, URL: req.URL, Attempts: 2, Err: errors.New("connection refused")}
	}
	ok, err = client.Health(context.Background())
	if ok || !IsNetworkError(err) {
		t.Fatalf("unreachable backend: Health = %v, %v; want a network error", ok, err)
	}
	if !strings.Contains(err.Error(), "http://api.test/healthz") {
		t.Fatalf("error should name the URL, got %v", err)
	}
}

func TestPolicyOverride(t *testing.T) {
	sender := &fakeSender{respond: reply(http.StatusOK, `{"status":"ok"}`)}
	custom := transport.Policy{MaxAttempts: 5, BaseDelay: time.Second}
	client, err := New(Config{
		BaseURL:  "http://api.test",
		Sender:   sender,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Policies: map[Operation]transport.Policy{OpHealth: custom},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if sender.policies[0] != custom {
		t.Fatalf("policy = %+v", sender.policies[0])
	}
}

func TestNormalizeRoles(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{nil, nil},
		{[]string{}, []string{}},
		{[]string{"a", " b ", ""}, []string{"a", "b"}},
		{[]string{"admin", "ops", "admin", " ops "}, []string{"admin", "ops"}},
	}
	for _, tc := range cases {
		got := NormalizeRoles(tc.in)
		if (got == nil) != (tc.want == nil) || strings.Join(got, ",") != strings.Join(tc.want, ",") {
			t.Fatalf("NormalizeRoles(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := ParseRoles(" admin, ,ops,admin"); strings.Join(got, ",") != "admin,ops" {
		t.Fatalf("ParseRoles = %q", got)
	}
}

func TestTimestampFormats(t *testing.T) {
	for _, raw := range []string{
		`"2024-03-04T05:06:07Z"`,
		`"2024-03-04T05:06:07.123456+00:00"`,
		`"2024-03-04T05:06:07.123456"`,
		`"2024-03-04 05:06:07"`,
	} {
		var ts Timestamp
		if err := json.Unmarshal([]byte(raw), &ts); err != nil {
			t.Fatalf("Unmarshal(%s): %v", raw, err)
		}
		if ts.Year() != 2024 || ts.Hour() != 5 {
			t.Fatalf("Unmarshal(%s) = %v", raw, ts.Time)
		}
	}
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
