package vector

import (
	"context"
	"fmt"

	"github.com/armchr/imagesearch/internal/metrics"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// QdrantDatabase implements VectorDatabase interface using Qdrant
type QdrantDatabase struct {
	client *qdrant.Client
	logger *zap.Logger
}

// NewQdrantDatabase creates a new Qdrant database connection
func NewQdrantDatabase(host string, port int, apiKey string, useTLS bool, logger *zap.Logger) (*QdrantDatabase, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantDatabase{
		client: client,
		logger: logger,
	}, nil
}

func toQdrantDistance(distance DistanceMetric) (qdrant.Distance, error) {
	switch distance {
	case DistanceMetricCosine:
		return qdrant.Distance_Cosine, nil
	case DistanceMetricDot:
		return qdrant.Distance_Dot, nil
	case DistanceMetricEuclidean:
		return qdrant.Distance_Euclid, nil
	case DistanceMetricManhattan:
		return qdrant.Distance_Manhattan, nil
	default:
		return qdrant.Distance_UnknownDistance, fmt.Errorf("unsupported distance metric: %q", distance)
	}
}

func fromQdrantDistance(distance qdrant.Distance) DistanceMetric {
	switch distance {
	case qdrant.Distance_Cosine:
		return DistanceMetricCosine
	case qdrant.Distance_Dot:
		return DistanceMetricDot
	case qdrant.Distance_Euclid:
		return DistanceMetricEuclidean
	case qdrant.Distance_Manhattan:
		return DistanceMetricManhattan
	default:
		return DistanceMetric(distance.String())
	}
}

// CreateCollection creates a new collection with the specified dimension and distance metric
func (q *QdrantDatabase) CreateCollection(ctx context.Context, collectionName string, vectorDim int, distance DistanceMetric) error {
	qdrantDistance, err := toQdrantDistance(distance)
	if err != nil {
		return err
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorDim),
			Distance: qdrantDistance,
		}),
	})
	metrics.ObserveStore("create_collection", err)
	if err != nil {
		return remoteError("create collection", err)
	}

	q.logger.Info("Created Qdrant collection",
		zap.String("collection", collectionName),
		zap.Int("dim", vectorDim),
		zap.String("distance", string(distance)))
	return nil
}

// DeleteCollection deletes a collection
func (q *QdrantDatabase) DeleteCollection(ctx context.Context, collectionName string) error {
	err := q.client.DeleteCollection(ctx, collectionName)
	metrics.ObserveStore("delete_collection", err)
	if err != nil {
		return remoteError("delete collection", err)
	}
	return nil
}

// CollectionExists checks if a collection exists
func (q *QdrantDatabase) CollectionExists(ctx context.Context, collectionName string) (bool, error) {
	exists, err := q.client.CollectionExists(ctx, collectionName)
	metrics.ObserveStore("collection_exists", err)
	if err != nil {
		return false, remoteError("check collection existence", err)
	}
	return exists, nil
}

// GetCollectionInfo returns the single unnamed vector config of a collection
func (q *QdrantDatabase) GetCollectionInfo(ctx context.Context, collectionName string) (*CollectionInfo, error) {
	info, err := q.client.GetCollectionInfo(ctx, collectionName)
	metrics.ObserveStore("collection_info", err)
	if err != nil {
		return nil, remoteError("get collection info", err)
	}

	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		// Named vectors are never created by this service
		return nil, fmt.Errorf("collection %q has no default vector config: %w", collectionName, ErrCollectionMismatch)
	}

	return &CollectionInfo{
		Name:        collectionName,
		VectorDim:   int(params.GetSize()),
		Distance:    fromQdrantDistance(params.GetDistance()),
		PointsCount: info.GetPointsCount(),
	}, nil
}

// Upsert inserts points and waits until they are searchable
func (q *QdrantDatabase) Upsert(ctx context.Context, collectionName string, points []*Point) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, point := range points {
		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(point.ID),
			Vectors: qdrant.NewVectors(point.Vector...),
			Payload: qdrant.NewValueMap(payloadToAny(point.Payload)),
		})
	}

	q.logger.Debug("Attempting upsert",
		zap.String("collection", collectionName),
		zap.Int("points_count", len(qdrantPoints)))

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrantPoints,
	})
	metrics.ObserveStore("upsert", err)
	if err != nil {
		q.logger.Error("Upsert failed",
			zap.String("collection", collectionName),
			zap.Error(err))
		return remoteError("upsert points", err)
	}

	q.logger.Info("Upserted points to Qdrant",
		zap.String("collection", collectionName),
		zap.Int("count", len(qdrantPoints)))
	return nil
}

// SearchBatch runs all requests through a single QueryBatch call
func (q *QdrantDatabase) SearchBatch(ctx context.Context, collectionName string, requests []SearchRequest) ([][]*ScoredPoint, error) {
	if len(requests) == 0 {
		return [][]*ScoredPoint{}, nil
	}

	queries := make([]*qdrant.QueryPoints, len(requests))
	for i, req := range requests {
		queries[i] = &qdrant.QueryPoints{
			CollectionName: collectionName,
			Query:          qdrant.NewQuery(req.Vector...),
			Limit:          qdrant.PtrOf(uint64(req.Limit)),
			WithPayload:    qdrant.NewWithPayload(true),
		}
	}

	batch, err := q.client.QueryBatch(ctx, &qdrant.QueryBatchPoints{
		CollectionName: collectionName,
		QueryPoints:    queries,
	})
	metrics.ObserveStore("search_batch", err)
	if err != nil {
		return nil, remoteError("search", err)
	}
	if len(batch) != len(requests) {
		return nil, fmt.Errorf("search returned %d result sets for %d queries: %w", len(batch), len(requests), ErrRemoteService)
	}

	results := make([][]*ScoredPoint, len(batch))
	for i, res := range batch {
		hits := res.GetResult()
		points := make([]*ScoredPoint, 0, len(hits))
		for _, hit := range hits {
			points = append(points, &ScoredPoint{
				ID:      hit.GetId().GetUuid(),
				Score:   hit.GetScore(),
				Payload: payloadFromQdrant(hit.GetPayload()),
			})
		}
		results[i] = points
	}
	return results, nil
}

// Close closes the database connection
func (q *QdrantDatabase) Close() error {
	if q.client != nil {
		return q.client.Close()
	}
	return nil
}

// Health checks the health of the vector database
func (q *QdrantDatabase) Health(ctx context.Context) error {
	_, err := q.client.HealthCheck(ctx)
	if err != nil {
		return remoteError("health check", err)
	}
	return nil
}

func payloadToAny(p Payload) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// payloadFromQdrant keeps string values only; anything else cannot have been
// written by this service and is left for the payload decoder to reject.
func payloadFromQdrant(values map[string]*qdrant.Value) Payload {
	out := make(Payload, len(values))
	for k, v := range values {
		if s, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
			out[k] = s.StringValue
		}
	}
	return out
}
