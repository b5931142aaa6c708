package vector

import (
	"context"
	"fmt"

	"github.com/armchr/imagesearch/internal/metrics"
	"github.com/armchr/imagesearch/internal/model"
	"github.com/armchr/imagesearch/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultNumSimilar is the candidate count used when a query asks for none
const DefaultNumSimilar = 5

// StoreOptions tunes a VectorStore
type StoreOptions struct {
	// ThumbnailSize bounds stored images; a zero dimension stores images as-is
	ThumbnailSize util.Size
	// DefaultNumSimilar replaces non-positive n_similar values
	DefaultNumSimilar int
	// Recreate drops an existing collection of the same name and starts empty
	Recreate bool
}

// DefaultStoreOptions returns the options used when none are given
func DefaultStoreOptions() StoreOptions {
	return StoreOptions{
		ThumbnailSize:     util.Size{Width: 256, Height: 256},
		DefaultNumSimilar: DefaultNumSimilar,
	}
}

// VectorStore binds an Embedder to one collection of a VectorDatabase.
// The collection is fixed at construction, so a VectorStore is safe for
// concurrent use.
type VectorStore struct {
	embedder   *Embedder
	db         VectorDatabase
	collection string
	opts       StoreOptions
	logger     *zap.Logger
}

// NewVectorStore adopts collection if it exists, after checking that its
// vector size and distance match the embedder. With opts.Recreate the
// existing collection is dropped instead. Otherwise it creates the
// collection, under a generated name when collection is empty.
func NewVectorStore(ctx context.Context, embedder *Embedder, db VectorDatabase, collection string, opts StoreOptions, logger *zap.Logger) (*VectorStore, error) {
	if opts.DefaultNumSimilar <= 0 {
		opts.DefaultNumSimilar = DefaultNumSimilar
	}

	s := &VectorStore{
		embedder: embedder,
		db:       db,
		opts:     opts,
		logger:   logger,
	}

	name, err := s.initializeCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	s.collection = name
	return s, nil
}

func (s *VectorStore) initializeCollection(ctx context.Context, collection string) (string, error) {
	if collection != "" {
		exists, err := s.db.CollectionExists(ctx, collection)
		if err != nil {
			return "", err
		}
		if exists && s.opts.Recreate {
			if err := s.db.DeleteCollection(ctx, collection); err != nil {
				return "", err
			}
			s.logger.Info("Dropped existing collection", zap.String("collection", collection))
		} else if exists {
			if err := s.validateCollection(ctx, collection); err != nil {
				return "", err
			}
			s.logger.Info("Adopted existing collection", zap.String("collection", collection))
			return collection, nil
		}
	} else {
		collection = uuid.NewString()
	}

	if err := s.db.CreateCollection(ctx, collection, s.embedder.Dimension(), s.embedder.Distance()); err != nil {
		return "", err
	}
	s.logger.Info("Initialized collection",
		zap.String("collection", collection),
		zap.Int("dim", s.embedder.Dimension()),
		zap.String("distance", string(s.embedder.Distance())))
	return collection, nil
}

func (s *VectorStore) validateCollection(ctx context.Context, collection string) error {
	info, err := s.db.GetCollectionInfo(ctx, collection)
	if err != nil {
		return err
	}
	if info.VectorDim != s.embedder.Dimension() || info.Distance != s.embedder.Distance() {
		return &CollectionMismatchError{
			Collection:       collection,
			ExpectedDim:      s.embedder.Dimension(),
			ActualDim:        info.VectorDim,
			ExpectedDistance: s.embedder.Distance(),
			ActualDistance:   info.Distance,
		}
	}
	return nil
}

// Collection returns the name of the collection in use
func (s *VectorStore) Collection() string {
	return s.collection
}

// Put embeds objs and stores one point per object with a fresh id, in a
// single upsert. A failed upsert is returned as-is; nothing is retried.
func (s *VectorStore) Put(ctx context.Context, objs ...model.Object) error {
	if len(objs) == 0 {
		return nil
	}

	embeddings, err := s.embedder.Embed(ctx, objs)
	if err != nil {
		return err
	}

	points := make([]*Point, len(objs))
	for i, obj := range objs {
		payload, err := encodePayload(obj, s.opts.ThumbnailSize)
		if err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		points[i] = &Point{
			ID:      uuid.NewString(),
			Vector:  embeddings[i],
			Payload: payload,
		}
	}

	if err := s.db.Upsert(ctx, s.collection, points); err != nil {
		return err
	}
	metrics.StorePointsTotal.Add(float64(len(points)))

	s.logger.Debug("Stored objects",
		zap.String("collection", s.collection),
		zap.Int("count", len(points)))
	return nil
}

// QuerySimilar embeds objs and returns, per object and in the same order, up
// to nSimilar stored candidates ranked by similarity. All sub-queries go out
// in one batched search.
func (s *VectorStore) QuerySimilar(ctx context.Context, nSimilar int, objs ...model.Object) ([][]Candidate, error) {
	if len(objs) == 0 {
		return [][]Candidate{}, nil
	}
	if nSimilar <= 0 {
		nSimilar = s.opts.DefaultNumSimilar
	}

	embeddings, err := s.embedder.Embed(ctx, objs)
	if err != nil {
		return nil, err
	}

	requests := make([]SearchRequest, len(embeddings))
	for i, embedding := range embeddings {
		requests[i] = SearchRequest{Vector: embedding, Limit: nSimilar}
	}

	hits, err := s.db.SearchBatch(ctx, s.collection, requests)
	if err != nil {
		return nil, err
	}
	if len(hits) != len(requests) {
		return nil, fmt.Errorf("search returned %d result sets for %d queries: %w", len(hits), len(requests), ErrRemoteService)
	}

	return extractCandidates(hits)
}

func extractCandidates(hits [][]*ScoredPoint) ([][]Candidate, error) {
	results := make([][]Candidate, len(hits))
	for q, points := range hits {
		candidates := make([]Candidate, 0, len(points))
		for _, point := range points {
			candidate, err := decodePayload(point.Payload)
			if err != nil {
				return nil, fmt.Errorf("query %d: point %s: %w", q, point.ID, err)
			}
			candidate.Score = point.Score
			candidates = append(candidates, candidate)
		}
		results[q] = candidates
	}
	return results, nil
}

// Health checks the underlying vector database
func (s *VectorStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}
