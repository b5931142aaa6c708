package vector

import (
	"context"
	"image"
)

// TextEmbeddingModel embeds a batch of texts, one vector per text in input order
type TextEmbeddingModel interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ImageEmbeddingModel embeds a batch of images, one vector per image in input order
type ImageEmbeddingModel interface {
	EmbedImages(ctx context.Context, images []image.Image) ([][]float32, error)
}

// EmbeddingModel represents a generic embedding model interface
// This abstraction allows swapping between a CLIP server, OpenAI, etc.
// Text and image vectors from one model share a single space.
type EmbeddingModel interface {
	TextEmbeddingModel
	ImageEmbeddingModel

	// GetDimension returns the dimension of the embedding vectors
	GetDimension() int

	// GetDistance returns the metric under which vectors are comparable
	GetDistance() DistanceMetric

	// GetModelName returns the name of the embedding model being used
	GetModelName() string
}
