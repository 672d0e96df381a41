package adapter

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/ollama/ollama/api"
)

const (
	DefaultOllamaModel          = "mistral"
	DefaultOllamaEmbeddingModel = "all-minilm"
)

// Ollama talks to a local Ollama server for both chat completion and embeddings
type Ollama struct {
	client         *api.Client
	embeddingModel string
}

type OllamaOption func(*Ollama)

// WithOllamaEmbeddingModel sets the model used by Embed
func WithOllamaEmbeddingModel(model string) OllamaOption {
	return func(o *Ollama) {
		if model != "" {
			o.embeddingModel = model
		}
	}
}

// NewOllama creates a client for the server at host. An empty host reads OLLAMA_HOST.
func NewOllama(host string, opts ...OllamaOption) (*Ollama, error) {
	var client *api.Client
	if host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create ollama client from environment")
		}
		client = c
	} else {
		u, err := url.Parse(host)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid ollama host", goerr.V("host", host))
		}
		client = api.NewClient(u, http.DefaultClient)
	}

	o := &Ollama{
		client:         client,
		embeddingModel: DefaultOllamaEmbeddingModel,
	}
	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// Generate implements LLM using the /api/chat endpoint
func (o *Ollama) Generate(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = DefaultOllamaModel
	}

	stream := false
	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream: &stream,
	}

	var reply strings.Builder
	if err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	}); err != nil {
		return "", goerr.Wrap(err, "failed to chat with ollama", goerr.V("model", model))
	}

	return reply.String(), nil
}

// Embed implements Embedder using the /api/embed endpoint
func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := o.client.Embed(ctx, &api.EmbedRequest{
		Model: o.embeddingModel,
		Input: texts,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed with ollama", goerr.V("model", o.embeddingModel))
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, goerr.New("embedding count mismatch",
			goerr.V("expected", len(texts)),
			goerr.V("actual", len(resp.Embeddings)))
	}

	return resp.Embeddings, nil
}
