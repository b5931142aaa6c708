package initialize

import (
	"context"
	"errors"
	"fmt"

	"github.com/armchr/imagesearch/internal/config"
	"github.com/armchr/imagesearch/internal/controller"
	"github.com/armchr/imagesearch/internal/service/vector"
	"github.com/armchr/imagesearch/internal/util"

	"go.uber.org/zap"
)

// ServiceInitOptions selects which services a run mode needs
type ServiceInitOptions struct {
	EnableIndexing bool // IndexProcessor and, if configured, duplicate detection
}

// GetServerModeOptions returns the options for serving the HTTP API
func GetServerModeOptions(cfg *config.Config) ServiceInitOptions {
	return ServiceInitOptions{EnableIndexing: true}
}

// GetIndexingOptions returns the options for the index command
func GetIndexingOptions(cfg *config.Config) ServiceInitOptions {
	return ServiceInitOptions{EnableIndexing: true}
}

// GetQueryModeOptions returns the options for the query command
func GetQueryModeOptions(cfg *config.Config) ServiceInitOptions {
	return ServiceInitOptions{}
}

// ServiceContainer owns every long-lived service of a run
type ServiceContainer struct {
	VectorDB        *vector.QdrantDatabase
	EmbeddingModel  vector.EmbeddingModel
	Embedder        *vector.Embedder
	Store           *vector.VectorStore
	DuplicateFilter *util.DuplicateFilter
	IndexProcessor  *controller.IndexProcessor
	logger          *zap.Logger
}

// NewServiceContainer connects to Qdrant, builds the embedding model and binds
// the vector store to the configured collection
func NewServiceContainer(ctx context.Context, cfg *config.Config, opts ServiceInitOptions, logger *zap.Logger) (*ServiceContainer, error) {
	container := &ServiceContainer{logger: logger}

	vectorDB, err := vector.NewQdrantDatabase(cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.APIKey, cfg.Qdrant.UseTLS, logger)
	if err != nil {
		return nil, err
	}
	container.VectorDB = vectorDB

	if err := container.initStore(ctx, cfg); err != nil {
		container.Close()
		return nil, err
	}

	if opts.EnableIndexing {
		if cfg.Indexing.Dedup.Enabled {
			dedup, err := util.NewDuplicateFilter(cfg.Indexing.Dedup, logger)
			if err != nil {
				container.Close()
				return nil, err
			}
			container.DuplicateFilter = dedup

			// Digests recorded for the dropped collection no longer describe its contents
			if cfg.Qdrant.Recreate {
				if err := dedup.Delete(container.Store.Collection()); err != nil {
					container.Close()
					return nil, err
				}
			}
		}
		container.IndexProcessor = controller.NewIndexProcessor(container.Store, container.DuplicateFilter, cfg.Indexing, logger)
	}

	logger.Info("Services initialized",
		zap.String("collection", container.Store.Collection()),
		zap.String("model", container.Embedder.ModelName()),
		zap.Int("dim", container.Embedder.Dimension()),
		zap.Bool("indexing", opts.EnableIndexing),
		zap.Bool("dedup", container.DuplicateFilter != nil))
	return container, nil
}

func (c *ServiceContainer) initStore(ctx context.Context, cfg *config.Config) error {
	embeddingModel, err := vector.NewEmbeddingModel(cfg.Embedding, c.logger)
	if err != nil {
		return fmt.Errorf("failed to create embedding model: %w", err)
	}
	c.EmbeddingModel = embeddingModel

	embedder, err := vector.NewEmbedder(embeddingModel, c.logger)
	if err != nil {
		return err
	}
	c.Embedder = embedder

	if cfg.Qdrant.Collection == "" {
		c.logger.Warn("No collection configured, a new empty collection will be created")
	}

	opts := vector.DefaultStoreOptions()
	opts.ThumbnailSize = util.Size{Width: cfg.Thumbnail.Width, Height: cfg.Thumbnail.Height}
	opts.Recreate = cfg.Qdrant.Recreate

	store, err := vector.NewVectorStore(ctx, embedder, c.VectorDB, cfg.Qdrant.Collection, opts, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	c.Store = store
	return nil
}

// Close drains pending indexing jobs, persists duplicate filters and closes
// the Qdrant connection
func (c *ServiceContainer) Close() error {
	var errs []error
	if c.IndexProcessor != nil {
		errs = append(errs, c.IndexProcessor.Close())
	}
	if c.VectorDB != nil {
		errs = append(errs, c.VectorDB.Close())
	}
	return errors.Join(errs...)
}
