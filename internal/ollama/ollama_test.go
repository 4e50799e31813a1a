package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"usermgmt/internal/logging"
	"usermgmt/internal/transport"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/api/generate":
			if body["stream"] != false {
				t.Errorf("generate must disable streaming, got %v", body["stream"])
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"response": "echo: " + body["prompt"].(string)})
		case "/api/embeddings":
			if body["prompt"] != "hello" {
				t.Errorf("embeddings input should be sent as prompt, got %v", body)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.1, 0.2, 0.3}})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientGenerateAndEmbeddings(t *testing.T) {
	srv := newUpstream(t)
	client := NewClient(Config{BaseURL: srv.URL + "/", Logger: logging.Discard()})

	text, err := client.Generate(context.Background(), "llama3", "hi")
	if err != nil || text != "echo: hi" {
		t.Fatalf("Generate = %q, %v", text, err)
	}
	vec, err := client.Embeddings(context.Background(), "nomic-embed-text", "hello")
	if err != nil || len(vec) != 3 {
		t.Fatalf("Embeddings = %v, %v", vec, err)
	}
	if client.Health(context.Background()) {
		t.Fatal("a 500 on / should report unhealthy")
	}
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(Config{BaseURL: url, Logger: logging.Discard(), Policy: &transport.Policy{MaxAttempts: 1}})
	_, err := client.Generate(context.Background(), "llama3", "hi")
	if !transport.IsNetworkError(err) {
		t.Fatalf("expected a network error, got %v", err)
	}
}

type fakeModel struct {
	err error
}

func (f fakeModel) Generate(context.Context, string, string) (string, error) {
	return "ok", f.err
}

func (f fakeModel) Embeddings(context.Context, string, string) ([]float64, error) {
	return []float64{1, 2}, f.err
}

func TestHandlers(t *testing.T) {
	cases := []struct {
		name   string
		model  Model
		path   string
		body   string
		status int
		want   string
	}{
		{"chat ok", fakeModel{}, "/ollama/chat", `{"model":"m","prompt":"p"}`, http.StatusOK, `"response":"ok"`},
		{"embed ok", fakeModel{}, "/ollama/embeddings", `{"model":"m","input":"x"}`, http.StatusOK, `"embedding":[1,2]`},
		{"chat upstream down", fakeModel{err: io.ErrUnexpectedEOF}, "/ollama/chat", `{"model":"m","prompt":"p"}`, http.StatusBadGateway, "Ollama error: "},
		{"embed upstream down", fakeModel{err: io.ErrUnexpectedEOF}, "/ollama/embeddings", `{"model":"m","input":"x"}`, http.StatusBadGateway, "Ollama error: "},
		{"missing model", fakeModel{}, "/ollama/chat", `{"prompt":"p"}`, http.StatusUnprocessableEntity, "model is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &Handler{Upstream: tc.model, Logger: logging.Discard()}
			mux := http.NewServeMux()
			mux.HandleFunc("POST /ollama/chat", h.Chat)
			mux.HandleFunc("POST /ollama/embeddings", h.Embeddings)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tc.path, bytes.NewBufferString(tc.body)))
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if !strings.Contains(rec.Body.String(), tc.want) {
				t.Fatalf("body %q does not contain %q", rec.Body.String(), tc.want)
			}
		})
	}
}
