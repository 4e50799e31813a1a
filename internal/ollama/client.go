// Package ollama talks to an Ollama model server and exposes the chat and
// embeddings proxy endpoints.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"usermgmt/internal/transport"
)

// DefaultTimeout bounds each upstream attempt.
const DefaultTimeout = 15 * time.Second

var defaultPolicy = transport.Policy{MaxAttempts: 2, BaseDelay: 200 * time.Millisecond}

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Policy     *transport.Policy
}

type Client struct {
	baseURL string
	sender  *transport.Client
	policy  transport.Policy
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	policy := defaultPolicy
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		sender:  transport.New(transport.Config{HTTPClient: httpClient, Logger: cfg.Logger}),
		policy:  policy,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type embeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingsResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Generate runs a non-streaming completion.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	var out generateResponse
	if err := c.post(ctx, "/api/generate", generateRequest{Model: model, Prompt: prompt}, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

func (c *Client) Embeddings(ctx context.Context, model, input string) ([]float64, error) {
	var out embeddingsResponse
	if err := c.post(ctx, "/api/embeddings", embeddingsRequest{Model: model, Prompt: input}, &out); err != nil {
		return nil, err
	}
	if out.Embedding == nil {
		out.Embedding = []float64{}
	}
	return out.Embedding, nil
}

// Health reports whether the server answers below 500.
func (c *Client) Health(ctx context.Context) bool {
	resp, err := c.sender.Send(ctx, transport.Request{Method: http.MethodGet, URL: c.baseURL + "/"}, c.policy)
	return err == nil && resp.StatusCode < 500
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	resp, err := c.sender.Send(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + path,
		Header: header,
		Body:   payload,
	}, c.policy)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("upstream %s returned %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode upstream %s: %w", path, err)
	}
	return nil
}
