package vector

import (
	"context"
	"errors"
	"fmt"
	"image"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIEmbedding implements EmbeddingModel over the OpenAI-compatible
// embeddings API. It is text-only; image inputs are rejected.
type OpenAIEmbedding struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
	logger    *zap.Logger
}

// OpenAIEmbeddingConfig holds configuration for the OpenAI embedding model
type OpenAIEmbeddingConfig struct {
	APIKey    string
	BaseURL   string // Optional, for compatible services
	Model     string // e.g., "text-embedding-3-small"
	Dimension int    // Requested output dimension; 0 uses the model default
}

var openAIModelDimensions = map[string]int{
	string(openai.SmallEmbedding3): 1536,
	string(openai.LargeEmbedding3): 3072,
	string(openai.AdaEmbeddingV2):  1536,
}

// NewOpenAIEmbedding creates a new OpenAI embedding model client
func NewOpenAIEmbedding(config OpenAIEmbeddingConfig, logger *zap.Logger) (*OpenAIEmbedding, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if config.Model == "" {
		config.Model = string(openai.SmallEmbedding3)
	}

	dimension := config.Dimension
	if dimension == 0 {
		knownDim, ok := openAIModelDimensions[config.Model]
		if !ok {
			return nil, fmt.Errorf("dimension must be set for unknown OpenAI model %q", config.Model)
		}
		dimension = knownDim
	}

	clientCfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientCfg.BaseURL = config.BaseURL
	}

	return &OpenAIEmbedding{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     openai.EmbeddingModel(config.Model),
		dimension: dimension,
		logger:    logger,
	}, nil
}

// EmbedTexts embeds all texts in one request; results are placed by their response index
func (o *OpenAIEmbedding) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          o.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	// ada-002 has a fixed output size and rejects the dimensions parameter
	if o.model != openai.AdaEmbeddingV2 {
		req.Dimensions = o.dimension
	}

	resp, err := o.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, parseOpenAIError(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d: %w", len(texts), len(resp.Data), ErrRemoteService)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(texts) || embeddings[data.Index] != nil {
			return nil, fmt.Errorf("invalid embedding index %d: %w", data.Index, ErrRemoteService)
		}
		embeddings[data.Index] = data.Embedding
	}

	o.logger.Debug("Generated OpenAI embeddings",
		zap.String("model", string(o.model)),
		zap.Int("count", len(texts)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return embeddings, nil
}

// EmbedImages is not supported by text embedding models
func (o *OpenAIEmbedding) EmbedImages(_ context.Context, images []image.Image) ([][]float32, error) {
	if len(images) == 0 {
		return [][]float32{}, nil
	}
	return nil, fmt.Errorf("model %s cannot embed images: %w", o.model, ErrUnsupportedInputKind)
}

// GetDimension returns the dimension of the embedding vectors
func (o *OpenAIEmbedding) GetDimension() int {
	return o.dimension
}

// GetDistance returns cosine; OpenAI embeddings are normalized
func (o *OpenAIEmbedding) GetDistance() DistanceMetric {
	return DistanceMetricCosine
}

// GetModelName returns the name of the embedding model being used
func (o *OpenAIEmbedding) GetModelName() string {
	return string(o.model)
}

func parseOpenAIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), ErrRemoteService)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, ErrRemoteService)
	}

	return remoteError("create embeddings", err)
}
