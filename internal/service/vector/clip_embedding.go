package vector

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ClipEmbedding implements EmbeddingModel against a CLIP inference server
type ClipEmbedding struct {
	apiURL    string
	apiKey    string
	model     string
	dimension int
	distance  DistanceMetric
	logger    *zap.Logger
	client    *http.Client
}

// ClipEmbeddingConfig holds configuration for the CLIP embedding model
type ClipEmbeddingConfig struct {
	APIURL    string // e.g., "http://localhost:8000"
	APIKey    string // Optional bearer token
	Model     string // e.g., "openai/clip-vit-base-patch32"
	Dimension int    // Dimension of the embedding vector
	Distance  DistanceMetric
	Timeout   time.Duration
}

// Common CLIP models
const (
	// ClipViTBase32 is the 512-dimensional base model
	ClipViTBase32 = "openai/clip-vit-base-patch32"

	// ClipViTBase16 is the 512-dimensional base model with 16px patches
	ClipViTBase16 = "openai/clip-vit-base-patch16"

	// ClipViTLarge14 is the 768-dimensional large model
	ClipViTLarge14 = "openai/clip-vit-large-patch14"
)

var clipModelDimensions = map[string]int{
	ClipViTBase32:  512,
	ClipViTBase16:  512,
	ClipViTLarge14: 768,
}

// NewClipEmbedding creates a new CLIP embedding model client
func NewClipEmbedding(config ClipEmbeddingConfig, logger *zap.Logger) (*ClipEmbedding, error) {
	if config.APIURL == "" {
		config.APIURL = "http://localhost:8000"
	}

	if config.Model == "" {
		config.Model = ClipViTBase32
	}

	if config.Distance == "" {
		config.Distance = DistanceMetricCosine
	}

	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	dimension := config.Dimension
	if dimension == 0 {
		knownDim, ok := clipModelDimensions[config.Model]
		if !ok {
			return nil, fmt.Errorf("dimension must be set for unknown CLIP model %q", config.Model)
		}
		dimension = knownDim
	}

	return &ClipEmbedding{
		apiURL:    config.APIURL,
		apiKey:    config.APIKey,
		model:     config.Model,
		dimension: dimension,
		distance:  config.Distance,
		logger:    logger,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

type clipTextRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type clipImageRequest struct {
	Model  string   `json:"model"`
	Images []string `json:"images"` // base64 PNG
}

type clipEmbeddingResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedTexts embeds all texts in one request
func (c *ClipEmbedding) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return c.post(ctx, "/embed/text", clipTextRequest{Model: c.model, Texts: texts}, len(texts))
}

// EmbedImages embeds all images in one request; images travel as base64 PNG
func (c *ClipEmbedding) EmbedImages(ctx context.Context, images []image.Image) ([][]float32, error) {
	if len(images) == 0 {
		return [][]float32{}, nil
	}

	encoded := make([]string, len(images))
	for i, img := range images {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode image %d: %w", i, err)
		}
		encoded[i] = base64.StdEncoding.EncodeToString(buf.Bytes())
	}

	return c.post(ctx, "/embed/image", clipImageRequest{Model: c.model, Images: encoded}, len(images))
}

func (c *ClipEmbedding) post(ctx context.Context, path string, body any, expected int) ([][]float32, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, remoteError("send embedding request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Error("CLIP embedding request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("API request failed with status %d: %s: %w", resp.StatusCode, string(respBody), ErrRemoteService)
	}

	var embeddingResp clipEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embeddingResp.Embeddings) != expected {
		return nil, fmt.Errorf("expected %d embeddings, got %d: %w", expected, len(embeddingResp.Embeddings), ErrRemoteService)
	}

	return embeddingResp.Embeddings, nil
}

// GetDimension returns the dimension of the embedding vectors
func (c *ClipEmbedding) GetDimension() int {
	return c.dimension
}

// GetDistance returns the distance metric CLIP vectors are compared with
func (c *ClipEmbedding) GetDistance() DistanceMetric {
	return c.distance
}

// GetModelName returns the name of the embedding model being used
func (c *ClipEmbedding) GetModelName() string {
	return c.model
}
