package vector

import (
	"context"
	"fmt"
	"strings"
)

// VectorDatabase represents a generic vector database interface
// This abstraction allows swapping Qdrant for another index or an in-memory fake
type VectorDatabase interface {
	// CreateCollection creates a new collection with the specified dimension and distance metric
	CreateCollection(ctx context.Context, collectionName string, vectorDim int, distance DistanceMetric) error

	// DeleteCollection deletes a collection
	DeleteCollection(ctx context.Context, collectionName string) error

	// CollectionExists checks if a collection exists
	CollectionExists(ctx context.Context, collectionName string) (bool, error)

	// GetCollectionInfo returns the vector configuration of an existing collection
	GetCollectionInfo(ctx context.Context, collectionName string) (*CollectionInfo, error)

	// Upsert inserts or replaces points in a single call
	Upsert(ctx context.Context, collectionName string, points []*Point) error

	// SearchBatch runs one nearest-neighbor query per request in a single call.
	// Results are index-aligned with requests, each ordered by descending score.
	SearchBatch(ctx context.Context, collectionName string, requests []SearchRequest) ([][]*ScoredPoint, error)

	// Close closes the database connection
	Close() error

	// Health checks the health of the vector database
	Health(ctx context.Context) error
}

// DistanceMetric represents the distance metric used for vector similarity
type DistanceMetric string

const (
	// DistanceMetricCosine uses cosine similarity (best for normalized embeddings)
	DistanceMetricCosine DistanceMetric = "cosine"

	// DistanceMetricDot uses dot product similarity
	DistanceMetricDot DistanceMetric = "dot"

	// DistanceMetricEuclidean uses Euclidean distance
	DistanceMetricEuclidean DistanceMetric = "euclid"

	// DistanceMetricManhattan uses Manhattan distance
	DistanceMetricManhattan DistanceMetric = "manhattan"
)

// ParseDistanceMetric converts a config string to a DistanceMetric
func ParseDistanceMetric(s string) (DistanceMetric, error) {
	switch d := DistanceMetric(strings.ToLower(strings.TrimSpace(s))); d {
	case DistanceMetricCosine, DistanceMetricDot, DistanceMetricEuclidean, DistanceMetricManhattan:
		return d, nil
	case "euclidean":
		return DistanceMetricEuclidean, nil
	default:
		return "", fmt.Errorf("unsupported distance metric: %q", s)
	}
}

// Payload is the non-vector data stored alongside a point
type Payload map[string]string

// Point is one stored entry
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// SearchRequest is one sub-query of a batched search
type SearchRequest struct {
	Vector []float32
	Limit  int
}

// ScoredPoint is a search hit
type ScoredPoint struct {
	ID      string
	Score   float32
	Payload Payload
}

// CollectionInfo describes the vector configuration of a collection
type CollectionInfo struct {
	Name        string
	VectorDim   int
	Distance    DistanceMetric
	PointsCount uint64
}
