package vector

import (
	"fmt"
	"os"
	"time"

	"github.com/armchr/imagesearch/internal/config"

	"go.uber.org/zap"
)

// NewEmbeddingModel creates an embedding model based on the provided configuration
func NewEmbeddingModel(cfg config.EmbeddingConfig, logger *zap.Logger) (EmbeddingModel, error) {
	var distance DistanceMetric
	if cfg.Distance != "" {
		d, err := ParseDistanceMetric(cfg.Distance)
		if err != nil {
			return nil, err
		}
		distance = d
	}

	switch cfg.Provider {
	case config.ProviderClip, "":
		return NewClipEmbedding(ClipEmbeddingConfig{
			APIURL:    cfg.URL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			Distance:  distance,
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		}, logger)

	case config.ProviderOpenAI:
		if distance != "" && distance != DistanceMetricCosine {
			return nil, fmt.Errorf("OpenAI embeddings only support cosine distance, got %s", distance)
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key not provided (set embedding.apikey in config or OPENAI_API_KEY env var)")
		}
		return NewOpenAIEmbedding(OpenAIEmbeddingConfig{
			APIKey:    apiKey,
			BaseURL:   cfg.URL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		}, logger)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
