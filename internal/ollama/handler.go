package ollama

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"usermgmt/internal/httpjson"
)

// Model is what the proxy handlers need from an upstream.
type Model interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
	Embeddings(ctx context.Context, model, input string) ([]float64, error)
}

type Handler struct {
	Upstream Model
	Logger   *slog.Logger
}

type chatRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		httpjson.Error(w, http.StatusUnprocessableEntity, "model is required")
		return
	}
	text, err := h.Upstream.Generate(r.Context(), req.Model, req.Prompt)
	if err != nil {
		h.Logger.Warn("ollama chat", "model", req.Model, "err", err)
		httpjson.Error(w, http.StatusBadGateway, "Ollama error: "+err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"response": text})
}

func (h *Handler) Embeddings(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		httpjson.Error(w, http.StatusUnprocessableEntity, "model is required")
		return
	}
	vec, err := h.Upstream.Embeddings(r.Context(), req.Model, req.Input)
	if err != nil {
		h.Logger.Warn("ollama embeddings", "model", req.Model, "err", err)
		httpjson.Error(w, http.StatusBadGateway, "Ollama error: "+err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"embedding": vec})
}
