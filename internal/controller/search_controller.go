package controller

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/armchr/imagesearch/internal/model"
	"github.com/armchr/imagesearch/internal/service/vector"
	"github.com/armchr/imagesearch/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SearchController struct {
	store     ObjectStore
	processor *IndexProcessor
	logger    *zap.Logger
}

func NewSearchController(store ObjectStore, processor *IndexProcessor, logger *zap.Logger) *SearchController {
	return &SearchController{
		store:     store,
		processor: processor,
		logger:    logger,
	}
}

// Index decodes the submitted images and queues them as one indexing job
func (sc *SearchController) Index(c *gin.Context) {
	var request model.IndexRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		sc.logger.Error("Invalid request payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	images := make([][]byte, len(request.Images))
	for i, encoded := range request.Images {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid image encoding",
				"details": fmt.Sprintf("image %d: %v", i, err),
			})
			return
		}
		images[i] = data
	}

	job, err := sc.processor.Submit(images, request.TrackingID)
	if err != nil {
		sc.logger.Error("Failed to submit indexing job", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, util.ErrPoolClosed) || errors.Is(err, util.ErrPoolFull) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error":   "Failed to submit indexing job",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// IndexStatus reports the state of an indexing job
func (sc *SearchController) IndexStatus(c *gin.Context) {
	jobID := c.Param("job_id")
	job, ok := sc.processor.Status(jobID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Indexing job not found",
		})
		return
	}
	c.JSON(http.StatusOK, job)
}

// Search returns the stored images and texts nearest to each query text
func (sc *SearchController) Search(c *gin.Context) {
	request := model.SearchRequest{
		NSimilar: vector.DefaultNumSimilar,
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		sc.logger.Error("Invalid request payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	sc.logger.Info("Searching",
		zap.Int("queries", len(request.Queries)),
		zap.Int("n_similar", request.NSimilar))

	candidates, err := sc.store.QuerySimilar(c.Request.Context(), request.NSimilar, model.Texts(request.Queries...)...)
	if err != nil {
		sc.logger.Error("Search failed", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, vector.ErrRemoteService) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"error":   "Search failed",
			"details": err.Error(),
		})
		return
	}

	result := model.SearchResult{
		Queries:    request.Queries,
		Images:     make([][]string, len(candidates)),
		Texts:      make([][]string, len(candidates)),
		TrackingID: request.TrackingID,
	}
	for q, hits := range candidates {
		images := []string{}
		texts := []string{}
		for _, hit := range hits {
			switch hit.Kind {
			case model.KindImage:
				images = append(images, base64.StdEncoding.EncodeToString(hit.Pixels))
			case model.KindText:
				texts = append(texts, hit.Text)
			}
		}
		result.Images[q] = images
		result.Texts[q] = texts
	}

	c.JSON(http.StatusOK, result)
}

// Health checks the vector database behind the store
func (sc *SearchController) Health(c *gin.Context) {
	if err := sc.store.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"collection": sc.store.Collection(),
	})
}
