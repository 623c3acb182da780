package skilltax

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const embeddingCacheTTL = 24 * time.Hour

// Embedder turns texts into vectors. The result is aligned with texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	ModelName() string
}

// NewEmbedder builds the configured provider wrapped with rate limiting and
// an in-memory cache.
func NewEmbedder(ctx context.Context, cfg EmbeddingSettings) (Embedder, error) {
	var e Embedder
	switch cfg.Provider {
	case "openai":
		if Config.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set: %w", ErrConfiguration)
		}
		e = &openAIEmbedder{
			client: openai.NewClient(option.WithAPIKey(Config.OpenAIAPIKey)),
			model:  cfg.Model,
		}
	case "gemini":
		if Config.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set: %w", ErrConfiguration)
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  Config.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		e = &geminiEmbedder{client: client, model: cfg.Model}
	default:
		return nil, fmt.Errorf("unknown embedding provider %q: %w", cfg.Provider, ErrConfiguration)
	}
	if cfg.RequestsPerSecond > 0 {
		e = WithRateLimit(e, cfg.RequestsPerSecond, 1)
	}
	return WithCache(e, cfg.CacheSize, embeddingCacheTTL), nil
}

type openAIEmbedder struct {
	client openai.Client
	model  string
}

func (o *openAIEmbedder) ModelName() string { return o.model }

func (o *openAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:          openai.EmbeddingModel(o.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(resp.Data), len(texts))
	}
	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

type geminiEmbedder struct {
	client *genai.Client
	model  string
}

func (g *geminiEmbedder) ModelName() string { return g.model }

func (g *geminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: t}}}
	}
	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		TaskType: "CLUSTERING",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call Gemini API: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	out := make([][]float64, len(texts))
	for i, e := range resp.Embeddings {
		out[i] = make([]float64, len(e.Values))
		for j, v := range e.Values {
			out[i][j] = float64(v)
		}
	}
	return out, nil
}

// WithRateLimit waits for a token before every call to next.
func WithRateLimit(next Embedder, requestsPerSecond float64, burst int) Embedder {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimitedEmbedder{next: next, limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

type rateLimitedEmbedder struct {
	next    Embedder
	limiter *rate.Limiter
}

func (r *rateLimitedEmbedder) ModelName() string { return r.next.ModelName() }

func (r *rateLimitedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.Embed(ctx, texts)
}

// WithCache serves repeated texts from an expiring LRU cache and sends only
// distinct misses to next. A non-positive size disables the cache.
func WithCache(next Embedder, size int, ttl time.Duration) Embedder {
	if size <= 0 {
		return next
	}
	return &cachedEmbedder{
		next:  next,
		cache: expirable.NewLRU[string, []float64](size, nil, ttl),
	}
}

type cachedEmbedder struct {
	next  Embedder
	cache *expirable.LRU[string, []float64]
}

func (c *cachedEmbedder) ModelName() string { return c.next.ModelName() }

func (c *cachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	keys := make([]string, len(texts))
	pending := make(map[string][]int)
	var misses []string
	for i, t := range texts {
		keys[i] = cacheKey(c.next.ModelName(), t)
		if v, ok := c.cache.Get(keys[i]); ok {
			out[i] = cloneVector(v)
			continue
		}
		if _, ok := pending[keys[i]]; !ok {
			misses = append(misses, t)
		}
		pending[keys[i]] = append(pending[keys[i]], i)
	}
	if len(misses) == 0 {
		zap.L().Debug("embedding cache hit", zap.Int("texts", len(texts)))
		return out, nil
	}

	vectors, err := c.next.Embed(ctx, misses)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(misses) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(vectors), len(misses))
	}
	for i, t := range misses {
		key := cacheKey(c.next.ModelName(), t)
		c.cache.Add(key, cloneVector(vectors[i]))
		for _, pos := range pending[key] {
			out[pos] = cloneVector(vectors[i])
		}
	}
	return out, nil
}

func cacheKey(model, text string) string {
	hash := sha256.Sum256([]byte(text))
	return model + ":" + hex.EncodeToString(hash[:])
}

func cloneVector(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
