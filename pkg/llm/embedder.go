package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/time/rate"
)

// EmbedderConfig configures the embedding client. Delay is the mandatory gap
// between successive calls; ErrorDelay is the longer pause taken after a
// failed call before the pipeline moves on.
type EmbedderConfig struct {
	Model      string
	BaseURL    string
	Dim        int
	MaxTextLen int
	Delay      time.Duration
	ErrorDelay time.Duration
}

// Embedder wraps an Ollama embedding model with rate limiting and the
// zero-vector soft-failure policy: document embedding never returns an error,
// a failed call yields an all-zero placeholder that downstream consumers must
// treat as invalid.
type Embedder struct {
	config  EmbedderConfig
	llm     *ollama.LLM
	limiter *rate.Limiter
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Dim == 0 {
		config.Dim = 768
	}
	if config.MaxTextLen == 0 {
		config.MaxTextLen = 4000
	}
	if config.Delay == 0 {
		config.Delay = 500 * time.Millisecond
	}
	if config.ErrorDelay == 0 {
		config.ErrorDelay = time.Second
	}

	emb, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	return &Embedder{
		config:  config,
		llm:     emb,
		limiter: rate.NewLimiter(rate.Every(config.Delay), 1),
	}, nil
}

// EmbedDocument embeds one passage for storage. Failures are recovered with a
// zero-vector placeholder so a single bad chunk never aborts a volume.
func (e *Embedder) EmbedDocument(ctx context.Context, text string) []float32 {
	return e.embedSoft(ctx, text)
}

// EmbedQuery embeds a search query. Same soft-failure contract: the caller
// must check for a zero vector and short-circuit instead of searching.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) []float32 {
	return e.embedSoft(ctx, text)
}

func (e *Embedder) Dimension() int {
	return e.config.Dim
}

func (e *Embedder) embedSoft(ctx context.Context, text string) []float32 {
	if err := e.limiter.Wait(ctx); err != nil {
		return make([]float32, e.config.Dim)
	}

	vec, err := e.embed(ctx, text)
	if err != nil {
		log.Printf("embedding failed, using zero placeholder: %v", err)
		time.Sleep(e.config.ErrorDelay)
		return make([]float32, e.config.Dim)
	}
	return vec
}

func (e *Embedder) embed(ctx context.Context, text string) ([]float32, error) {
	text = truncateRunes(text, e.config.MaxTextLen)

	embeddings, err := e.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	return embeddings[0], nil
}

// IsZeroVector reports whether vec is the all-zero placeholder (or absent
// entirely). Such vectors are valid values but semantically meaningless.
func IsZeroVector(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
