package api

import (
	"context"
	"errors"
	"net/http"
)

type chatRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Response *string `json:"response"`
}

// Chat sends a prompt through the backend's model proxy and returns the
// generated text.
func (c *Client) Chat(ctx context.Context, sess Session, model, prompt string) (string, error) {
	var out chatResponse
	if err := c.expectJSON(ctx, call{
		op:     OpChat,
		method: http.MethodPost,
		path:   "/ollama/chat",
		token:  sess.Token(),
		body:   chatRequest{Model: model, Prompt: prompt},
	}, &out); err != nil {
		return "", err
	}
	if out.Response == nil {
		return "", &ParseError{Op: OpChat, Err: errors.New("missing response")}
	}
	return *out.Response, nil
}

type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingsResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (c *Client) Embeddings(ctx context.Context, sess Session, model, input string) ([]float64, error) {
	var out embeddingsResponse
	if err := c.expectJSON(ctx, call{
		op:     OpEmbeddings,
		method: http.MethodPost,
		path:   "/ollama/embeddings",
		token:  sess.Token(),
		body:   embeddingsRequest{Model: model, Input: input},
	}, &out); err != nil {
		return nil, err
	}
	if out.Embedding == nil {
		return nil, &ParseError{Op: OpEmbeddings, Err: errors.New("missing embedding")}
	}
	return out.Embedding, nil
}
