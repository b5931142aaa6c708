package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/armchr/imagesearch/internal/metrics"
	"github.com/armchr/imagesearch/internal/model"
	"github.com/armchr/imagesearch/internal/util"

	"go.uber.org/zap"
)

// Embedder turns a mixed sequence of texts and images into one vector per
// input, in input order. Dimension and distance are captured at construction
// and never change.
type Embedder struct {
	model     EmbeddingModel
	dimension int
	distance  DistanceMetric
	logger    *zap.Logger
}

// NewEmbedder wraps an embedding model
func NewEmbedder(embeddingModel EmbeddingModel, logger *zap.Logger) (*Embedder, error) {
	dimension := embeddingModel.GetDimension()
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding model %s reports invalid dimension %d", embeddingModel.GetModelName(), dimension)
	}
	distance, err := ParseDistanceMetric(string(embeddingModel.GetDistance()))
	if err != nil {
		return nil, fmt.Errorf("embedding model %s: %w", embeddingModel.GetModelName(), err)
	}

	return &Embedder{
		model:     embeddingModel,
		dimension: dimension,
		distance:  distance,
		logger:    logger,
	}, nil
}

// Dimension returns the length of every vector this embedder produces
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Distance returns the metric the vectors are comparable under
func (e *Embedder) Distance() DistanceMetric {
	return e.distance
}

// ModelName returns the underlying model name
func (e *Embedder) ModelName() string {
	return e.model.GetModelName()
}

// embedGroup is one same-kind sub-batch and the original positions of its members
type embedGroup struct {
	kind    model.ObjectKind
	indices []int
	run     func(ctx context.Context) ([][]float32, error)
}

// Embed returns output[i] = embedding(objs[i]). Unsupported objects fail the
// whole call before the model is invoked. Text and image groups are embedded
// concurrently, each in a single model call; an absent group is not called.
func (e *Embedder) Embed(ctx context.Context, objs []model.Object) ([][]float32, error) {
	if len(objs) == 0 {
		return [][]float32{}, nil
	}

	groups, err := model.GroupByKind(objs)
	if err != nil {
		return nil, err
	}

	var work []embedGroup
	if len(groups.Texts) > 0 {
		work = append(work, embedGroup{
			kind:    model.KindText,
			indices: groups.TextIndices,
			run: func(ctx context.Context) ([][]float32, error) {
				return e.model.EmbedTexts(ctx, groups.Texts)
			},
		})
	}
	if len(groups.Images) > 0 {
		work = append(work, embedGroup{
			kind:    model.KindImage,
			indices: groups.ImageIndices,
			run: func(ctx context.Context) ([][]float32, error) {
				return e.model.EmbedImages(ctx, groups.Images)
			},
		})
	}

	results, err := util.DoWorkList(ctx, work, e.runGroup)
	if err != nil {
		return nil, err
	}

	// Scatter back into input order
	output := make([][]float32, len(objs))
	for g, group := range work {
		for j, idx := range group.indices {
			output[idx] = results[g][j]
		}
	}
	return output, nil
}

func (e *Embedder) runGroup(ctx context.Context, group embedGroup) ([][]float32, error) {
	kind := group.kind.String()
	modelName := e.model.GetModelName()

	start := time.Now()
	vectors, err := group.run(ctx)
	metrics.EmbeddingRequestDuration.WithLabelValues(modelName, kind).Observe(time.Since(start).Seconds())

	if err == nil {
		err = e.validate(vectors, len(group.indices))
	}
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(modelName, kind, "error").Inc()
		e.logger.Error("Failed to embed objects",
			zap.String("kind", kind),
			zap.Int("count", len(group.indices)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to embed %d %s objects: %w", len(group.indices), kind, err)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(modelName, kind, "success").Inc()
	metrics.EmbeddedObjectsTotal.WithLabelValues(kind).Add(float64(len(vectors)))
	e.logger.Debug("Embedded objects",
		zap.String("kind", kind),
		zap.Int("count", len(vectors)),
		zap.Duration("duration", time.Since(start)))
	return vectors, nil
}

func (e *Embedder) validate(vectors [][]float32, expected int) error {
	if len(vectors) != expected {
		return fmt.Errorf("model returned %d vectors for %d inputs: %w", len(vectors), expected, ErrRemoteService)
	}
	for i, v := range vectors {
		if len(v) != e.dimension {
			return fmt.Errorf("vector %d has length %d, expected %d: %w", i, len(v), e.dimension, ErrDimensionMismatch)
		}
	}
	return nil
}
