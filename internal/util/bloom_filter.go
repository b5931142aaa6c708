package util

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/armchr/imagesearch/internal/config"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"
)

// DuplicateFilter remembers content hashes per collection so identical images
// are not indexed twice. Filters are kept in memory and persisted to disk.
// A positive answer may be a false positive at the configured rate; a
// negative answer is always exact.
type DuplicateFilter struct {
	config     config.DedupConfig
	filters    map[string]*bloom.BloomFilter
	mu         sync.RWMutex
	logger     *zap.Logger
	storageDir string
}

// NewDuplicateFilter creates a duplicate filter rooted at cfg.StorageDir
func NewDuplicateFilter(cfg config.DedupConfig, logger *zap.Logger) (*DuplicateFilter, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("duplicate filter is disabled in config")
	}

	if cfg.ExpectedItems == 0 {
		cfg.ExpectedItems = 1000000
	}
	if cfg.FalsePositiveRate == 0 {
		cfg.FalsePositiveRate = 0.01
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = "./bloom_filters"
	}

	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bloom filter storage directory: %w", err)
	}

	return &DuplicateFilter{
		config:     cfg,
		filters:    make(map[string]*bloom.BloomFilter),
		logger:     logger,
		storageDir: cfg.StorageDir,
	}, nil
}

// getOrCreate returns the filter for a collection, loading it from disk on first use
func (df *DuplicateFilter) getOrCreate(collection string) *bloom.BloomFilter {
	df.mu.RLock()
	filter, exists := df.filters[collection]
	df.mu.RUnlock()
	if exists {
		return filter
	}

	df.mu.Lock()
	defer df.mu.Unlock()

	// Double-check after acquiring write lock
	if filter, exists := df.filters[collection]; exists {
		return filter
	}

	filterPath := df.filterPath(collection)
	filter, err := loadFilter(filterPath)
	if err != nil {
		df.logger.Info("Creating new duplicate filter",
			zap.String("collection", collection),
			zap.Uint("expected_items", df.config.ExpectedItems),
			zap.Float64("false_positive_rate", df.config.FalsePositiveRate))
		filter = bloom.NewWithEstimates(df.config.ExpectedItems, df.config.FalsePositiveRate)
	} else {
		df.logger.Info("Loaded duplicate filter from disk",
			zap.String("collection", collection),
			zap.String("path", filterPath))
	}

	df.filters[collection] = filter
	return filter
}

// Contains reports whether content was probably added to the collection before
func (df *DuplicateFilter) Contains(collection string, content []byte) bool {
	filter := df.getOrCreate(collection)
	sum := sha256.Sum256(content)

	df.mu.RLock()
	defer df.mu.RUnlock()
	return filter.Test(sum[:])
}

// Add records content as present in the collection
func (df *DuplicateFilter) Add(collection string, content []byte) {
	filter := df.getOrCreate(collection)
	sum := sha256.Sum256(content)

	df.mu.Lock()
	defer df.mu.Unlock()
	filter.Add(sum[:])
}

// SaveAll persists every loaded filter to disk
func (df *DuplicateFilter) SaveAll() error {
	df.mu.RLock()
	defer df.mu.RUnlock()

	for collection, filter := range df.filters {
		filterPath := df.filterPath(collection)
		if err := saveFilter(filter, filterPath); err != nil {
			df.logger.Error("Failed to save duplicate filter",
				zap.String("collection", collection),
				zap.Error(err))
			return err
		}
		df.logger.Info("Saved duplicate filter to disk",
			zap.String("collection", collection),
			zap.String("path", filterPath))
	}

	return nil
}

// Delete removes the filter for a collection from memory and disk
func (df *DuplicateFilter) Delete(collection string) error {
	df.mu.Lock()
	delete(df.filters, collection)
	df.mu.Unlock()

	if err := os.Remove(df.filterPath(collection)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete bloom filter file: %w", err)
	}

	df.logger.Info("Deleted duplicate filter", zap.String("collection", collection))
	return nil
}

func (df *DuplicateFilter) filterPath(collection string) string {
	return filepath.Join(df.storageDir, fmt.Sprintf("%s.bloom", collection))
}

func saveFilter(filter *bloom.BloomFilter, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create bloom filter file: %w", err)
	}
	defer file.Close()

	if _, err := filter.WriteTo(file); err != nil {
		return fmt.Errorf("failed to write bloom filter: %w", err)
	}
	return nil
}

func loadFilter(path string) (*bloom.BloomFilter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bloom filter file: %w", err)
	}
	defer file.Close()

	filter := &bloom.BloomFilter{}
	if _, err := filter.ReadFrom(file); err != nil {
		return nil, fmt.Errorf("failed to read bloom filter: %w", err)
	}
	return filter, nil
}
