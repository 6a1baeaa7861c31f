package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// EmbeddingConfig points the provider at an OpenAI-compatible embeddings
// endpoint (sentence-transformers server, Ollama, LM Studio, vLLM, ...).
type EmbeddingConfig struct {
	URL        string        // e.g. "http://localhost:11434"
	Model      string        // e.g. "all-minilm"
	APIKey     string        // optional bearer token
	Timeout    time.Duration // HTTP client timeout per request
	RetryCount int
	RetryDelay time.Duration
}

// EmbeddingCache stores embeddings by model and text. Implementations treat
// every failure as a miss.
type EmbeddingCache interface {
	Get(ctx context.Context, model, text string) ([]float32, bool)
	Set(ctx context.Context, model, text string, embedding []float32)
}

// EmbeddingProvider compares texts by the cosine similarity of their
// sentence embeddings.
type EmbeddingProvider struct {
	cfg    EmbeddingConfig
	client *http.Client
	cache  EmbeddingCache
	logger zerolog.Logger
}

var _ BatchProvider = (*EmbeddingProvider)(nil)

// NewEmbeddingProvider creates a provider for cfg. cache may be nil.
func NewEmbeddingProvider(cfg EmbeddingConfig, cache EmbeddingCache, logger zerolog.Logger) *EmbeddingProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &EmbeddingProvider{
		cfg:   cfg,
		cache: cache,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

func (p *EmbeddingProvider) Similarity(ctx context.Context, textA, textB string) (float64, error) {
	vectors, err := p.Embed(ctx, []string{textA, textB})
	if err != nil {
		return 0, err
	}
	return Cosine(vectors[0], vectors[1]), nil
}

func (p *EmbeddingProvider) Similarities(ctx context.Context, text string, others []string) ([]float64, error) {
	inputs := make([]string, 0, len(others)+1)
	inputs = append(inputs, text)
	inputs = append(inputs, others...)

	vectors, err := p.Embed(ctx, inputs)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(others))
	for i := range others {
		out[i] = Cosine(vectors[0], vectors[i+1])
	}
	return out, nil
}

// Embed returns one embedding per text, in order. Cached embeddings are
// reused; the rest are fetched in a single request.
func (p *EmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	var missing []string
	positions := make(map[string][]int)
	for i, text := range texts {
		if p.cache != nil {
			if vec, ok := p.cache.Get(ctx, p.cfg.Model, text); ok {
				vectors[i] = vec
				continue
			}
		}
		if _, seen := positions[text]; !seen {
			missing = append(missing, text)
		}
		positions[text] = append(positions[text], i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	fetched, err := p.fetch(ctx, missing)
	if err != nil {
		return nil, err
	}

	for i, text := range missing {
		for _, pos := range positions[text] {
			vectors[pos] = fetched[i]
		}
		if p.cache != nil {
			p.cache.Set(ctx, p.cfg.Model, text, fetched[i])
		}
	}

	// cached entries may come from an earlier model with another size
	if err := checkDimensions(vectors); err != nil {
		return nil, err
	}

	p.logger.Debug().
		Int("texts", len(texts)).
		Int("fetched", len(missing)).
		Str("model", p.cfg.Model).
		Msg("Embeddings resolved")

	return vectors, nil
}

// ============================================================================
// Embeddings endpoint
// ============================================================================

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// fetch calls the endpoint, retrying transport errors, 429 and 5xx with a
// linear back-off. Other statuses fail immediately.
func (p *EmbeddingProvider) fetch(ctx context.Context, inputs []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: p.cfg.Model, Input: inputs})
	if err != nil {
		return nil, &ProviderError{Reason: "failed to marshal request", Wrapped: err}
	}

	url := p.cfg.URL + "/v1/embeddings"

	var lastErr error
	for i := 0; i <= p.cfg.RetryCount; i++ {
		if i > 0 {
			p.logger.Warn().Int("attempt", i).Err(lastErr).Msg("Retrying embedding request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.cfg.RetryDelay * time.Duration(i)):
			}
		}

		vectors, retry, err := p.post(ctx, url, body, len(inputs))
		if err == nil {
			return vectors, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return nil, lastErr
}

func (p *EmbeddingProvider) post(ctx context.Context, url string, body []byte, want int) ([][]float32, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, &ProviderError{Reason: "failed to create request", Wrapped: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, true, &ProviderError{Reason: "embedding request failed", Wrapped: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, &ProviderError{
			Reason: fmt.Sprintf("embedding endpoint returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg)),
		}
	}

	var decoded embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, false, &ProviderError{Reason: "failed to decode response", Wrapped: err}
	}

	if len(decoded.Data) != want {
		return nil, false, &ProviderError{
			Reason: fmt.Sprintf("expected %d embeddings, got %d", want, len(decoded.Data)),
		}
	}

	vectors := make([][]float32, want)
	for _, item := range decoded.Data {
		if item.Index < 0 || item.Index >= want || vectors[item.Index] != nil {
			return nil, false, &ProviderError{Reason: fmt.Sprintf("invalid embedding index %d", item.Index)}
		}
		vectors[item.Index] = item.Embedding
	}

	if err := checkDimensions(vectors); err != nil {
		return nil, false, err
	}

	return vectors, false, nil
}

// checkDimensions requires every vector to be non-empty and of the same
// length as the first one.
func checkDimensions(vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	for i, vec := range vectors {
		if len(vec) == 0 {
			return &ProviderError{Reason: fmt.Sprintf("embedding %d is empty", i)}
		}
		if len(vec) != dim {
			return &ProviderError{
				Reason: fmt.Sprintf("embedding %d has dimension %d, expected %d", i, len(vec), dim),
			}
		}
	}
	return nil
}
