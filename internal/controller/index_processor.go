package controller

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/armchr/imagesearch/internal/config"
	"github.com/armchr/imagesearch/internal/metrics"
	"github.com/armchr/imagesearch/internal/model"
	"github.com/armchr/imagesearch/internal/service/vector"
	"github.com/armchr/imagesearch/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

// ErrInvalidImage is returned for image data that cannot be decoded
var ErrInvalidImage = errors.New("invalid image")

// ObjectStore is the part of vector.VectorStore the controllers depend on
type ObjectStore interface {
	Collection() string
	Put(ctx context.Context, objs ...model.Object) error
	QuerySimilar(ctx context.Context, nSimilar int, objs ...model.Object) ([][]vector.Candidate, error)
	Health(ctx context.Context) error
}

// IndexStats counts the outcome of indexing a set of images
type IndexStats struct {
	Indexed    int
	Duplicates int
}

type indexTask struct {
	jobID  string
	images [][]byte
}

// IndexProcessor indexes images into an ObjectStore, either synchronously or
// as background jobs whose status can be polled. Job status is kept in memory
// only.
type IndexProcessor struct {
	store     ObjectStore
	dedup     *util.DuplicateFilter
	batchSize int
	jobs      *util.SafeMap[model.IndexingJob]
	inflight  *util.SafeMap[struct{}]
	pool      *util.ExecutorPool[indexTask]
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *zap.Logger
}

// NewIndexProcessor starts cfg.Workers background workers. dedup may be nil
// to index every image.
func NewIndexProcessor(store ObjectStore, dedup *util.DuplicateFilter, cfg config.IndexingConfig, logger *zap.Logger) *IndexProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	p := &IndexProcessor{
		store:     store,
		dedup:     dedup,
		batchSize: cfg.BatchSize,
		jobs:      util.NewSafeMap[model.IndexingJob](),
		inflight:  util.NewSafeMap[struct{}](),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}

	p.pool = util.NewExecutorPool(cfg.Workers, cfg.QueueSize, p.runJob)
	p.pool.OnPanic(func(task indexTask, err error) {
		p.logger.Error("Indexing job panicked", zap.String("job_id", task.jobID), zap.Error(err))
		p.finishJob(task.jobID, IndexStats{}, err)
	})
	return p
}

// Submit queues images for indexing and returns the pending job. It fails
// with util.ErrPoolFull instead of waiting when the queue has no room.
func (p *IndexProcessor) Submit(images [][]byte, trackingID *int) (model.IndexingJob, error) {
	job := model.IndexingJob{
		JobID:      uuid.NewString(),
		Status:     model.JobPending,
		Submitted:  len(images),
		TrackingID: trackingID,
	}
	p.jobs.Set(job.JobID, job)

	if err := p.pool.TrySubmit(indexTask{jobID: job.JobID, images: images}); err != nil {
		p.jobs.Delete(job.JobID)
		return model.IndexingJob{}, err
	}

	p.logger.Info("Submitted indexing job",
		zap.String("job_id", job.JobID),
		zap.Int("images", len(images)))
	return job, nil
}

// Status returns the current state of a job
func (p *IndexProcessor) Status(jobID string) (model.IndexingJob, bool) {
	return p.jobs.Get(jobID)
}

// Close waits for queued jobs to finish and persists duplicate filters
func (p *IndexProcessor) Close() error {
	p.pool.Close()
	p.cancel()
	if p.dedup != nil {
		return p.dedup.SaveAll()
	}
	return nil
}

func (p *IndexProcessor) runJob(task indexTask) {
	p.jobs.Update(task.jobID, func(job model.IndexingJob, _ bool) model.IndexingJob {
		job.Status = model.JobStarted
		return job
	})

	start := time.Now()
	stats, err := p.indexBatches(p.ctx, task.images, func(stats IndexStats) {
		p.jobs.Update(task.jobID, func(job model.IndexingJob, _ bool) model.IndexingJob {
			job.Indexed = stats.Indexed
			job.Duplicates = stats.Duplicates
			return job
		})
	})
	p.finishJob(task.jobID, stats, err)

	p.logger.Info("Finished indexing job",
		zap.String("job_id", task.jobID),
		zap.Int("indexed", stats.Indexed),
		zap.Int("duplicates", stats.Duplicates),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
}

func (p *IndexProcessor) finishJob(jobID string, stats IndexStats, err error) {
	status := model.JobSuccess
	if err != nil {
		status = model.JobFailure
	}
	metrics.IndexJobsTotal.WithLabelValues(string(status)).Inc()

	p.jobs.Update(jobID, func(job model.IndexingJob, _ bool) model.IndexingJob {
		job.Status = status
		job.Indexed = max(job.Indexed, stats.Indexed)
		job.Duplicates = max(job.Duplicates, stats.Duplicates)
		if err != nil {
			job.Error = err.Error()
		}
		return job
	})
}

// IndexImages indexes encoded images synchronously in batches. Batches stored
// before a failure stay stored.
func (p *IndexProcessor) IndexImages(ctx context.Context, images [][]byte) (IndexStats, error) {
	return p.indexBatches(ctx, images, nil)
}

func (p *IndexProcessor) indexBatches(ctx context.Context, images [][]byte, progress func(IndexStats)) (IndexStats, error) {
	var total IndexStats
	for batch := range util.CreateBatches(images, p.batchSize) {
		stats, err := p.indexBatch(ctx, batch)
		total.Indexed += stats.Indexed
		total.Duplicates += stats.Duplicates
		if progress != nil {
			progress(total)
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// IndexFiles reads and indexes image files, holding one batch in memory at a time
func (p *IndexProcessor) IndexFiles(ctx context.Context, paths []string) (IndexStats, error) {
	var total IndexStats
	for batch := range util.CreateBatches(paths, p.batchSize) {
		images := make([][]byte, 0, len(batch))
		for _, path := range batch {
			data, err := os.ReadFile(path)
			if err != nil {
				return total, fmt.Errorf("failed to read %s: %w", path, err)
			}
			images = append(images, data)
		}

		stats, err := p.indexBatch(ctx, images)
		total.Indexed += stats.Indexed
		total.Duplicates += stats.Duplicates
		if err != nil {
			return total, err
		}

		p.logger.Info("Indexed batch",
			zap.Int("files", len(batch)),
			zap.Int("indexed_total", total.Indexed),
			zap.Int("duplicates_total", total.Duplicates))
	}
	return total, nil
}

// indexBatch stores one batch with a single Put. Each image's digest is
// reserved while its batch is in flight, so concurrent batches carrying the
// same bytes store it once. Digests move into the duplicate filter only once
// the Put succeeds.
func (p *IndexProcessor) indexBatch(ctx context.Context, batch [][]byte) (IndexStats, error) {
	var stats IndexStats
	collection := p.store.Collection()

	objs := make([]model.Object, 0, len(batch))
	fresh := make([][]byte, 0, len(batch))

	var reserved []string
	defer func() {
		for _, key := range reserved {
			p.inflight.Delete(key)
		}
	}()

	for i, data := range batch {
		if p.dedup != nil {
			key := inflightKey(collection, data)
			// Reserve before consulting the filter: a holder that already
			// released its digest has recorded it in the filter by then.
			if !p.inflight.SetIfAbsent(key, struct{}{}) {
				stats.Duplicates++
				metrics.IndexDuplicatesTotal.Inc()
				continue
			}
			reserved = append(reserved, key)
			if p.dedup.Contains(collection, data) {
				stats.Duplicates++
				metrics.IndexDuplicatesTotal.Inc()
				continue
			}
		}

		img, err := decodeImage(data)
		if err != nil {
			return stats, fmt.Errorf("image %d: %w", i, err)
		}
		objs = append(objs, model.NewImage(img))
		fresh = append(fresh, data)
	}

	if len(objs) == 0 {
		return stats, nil
	}
	if err := p.store.Put(ctx, objs...); err != nil {
		return stats, err
	}
	stats.Indexed = len(objs)

	if p.dedup != nil {
		for _, data := range fresh {
			p.dedup.Add(collection, data)
		}
	}
	return stats, nil
}

func inflightKey(collection string, data []byte) string {
	sum := sha256.Sum256(data)
	return collection + "/" + hex.EncodeToString(sum[:])
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return img, nil
}
