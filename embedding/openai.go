package embedding

import (
	"context"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultOpenAIBaseURL    = "https://api.siliconflow.cn/v1"
	defaultOpenAIModel      = "BAAI/bge-m3"
	defaultOpenAIDimensions = 1024
	defaultBatchSize        = 64
	defaultMaxParallel      = 4
	defaultRequestsPerSec   = 10
)

// OpenAIConfig configures an OpenAI-compatible embedding backend.
// All OpenAI-protocol providers work here: openai, siliconflow,
// dashscope, ollama.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int

	// BatchSize caps how many texts go into one API request.
	BatchSize int
	// MaxParallel caps concurrent API requests during a batch.
	MaxParallel int
	// RequestsPerSecond throttles outbound API calls. Zero disables
	// throttling.
	RequestsPerSecond int
}

// OpenAIConfigFromEnv reads EXEMPLAR_EMBEDDING_* environment variables.
func OpenAIConfigFromEnv() OpenAIConfig {
	return OpenAIConfig{
		APIKey:            getEnvOrDefault("EXEMPLAR_EMBEDDING_API_KEY", ""),
		BaseURL:           getEnvOrDefault("EXEMPLAR_EMBEDDING_BASE_URL", defaultOpenAIBaseURL),
		Model:             getEnvOrDefault("EXEMPLAR_EMBEDDING_MODEL", defaultOpenAIModel),
		Dimensions:        getEnvOrDefaultInt("EXEMPLAR_EMBEDDING_DIMENSIONS", defaultOpenAIDimensions),
		BatchSize:         getEnvOrDefaultInt("EXEMPLAR_EMBEDDING_BATCH_SIZE", defaultBatchSize),
		MaxParallel:       getEnvOrDefaultInt("EXEMPLAR_EMBEDDING_MAX_PARALLEL", defaultMaxParallel),
		RequestsPerSecond: getEnvOrDefaultInt("EXEMPLAR_EMBEDDING_REQUESTS_PER_SECOND", defaultRequestsPerSec),
	}
}

// OpenAIProvider embeds titles through an OpenAI-compatible API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	dimensions  int
	batchSize   int
	maxParallel int
	limiter     *rate.Limiter
}

// NewOpenAIProvider creates a provider for cfg. The API key is required;
// everything else falls back to defaults.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedding API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = defaultOpenAIDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = defaultMaxParallel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond)
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		dimensions:  cfg.Dimensions,
		batchSize:   cfg.BatchSize,
		maxParallel: cfg.MaxParallel,
		limiter:     limiter,
	}, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if NormalizeText(text) == "" {
		return nil, ErrEmptyText
	}
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("empty embedding result")
	}
	return vectors[0], nil
}

// EmbedBatch splits texts into chunks of BatchSize and embeds the chunks
// with at most MaxParallel requests in flight.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided for embedding")
	}

	vectors := make([][]float32, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxParallel)
	for start := 0; start < len(texts); start += p.batchSize {
		start := start
		end := start + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			chunk, err := p.embedChunk(ctx, texts[start:end])
			if err != nil {
				return errors.Wrapf(err, "texts %d-%d", start, end-1)
			}
			copy(vectors[start:end], chunk)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (p *OpenAIProvider) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}

	req := openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: p.dimensions,
	}
	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "create embeddings")
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.Errorf("embedding count mismatch: got %d, want %d", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vectors[i] = data.Embedding
	}
	return vectors, nil
}

func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
