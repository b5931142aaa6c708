package controller

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/armchr/imagesearch/internal/config"
	"github.com/armchr/imagesearch/internal/model"
	"github.com/armchr/imagesearch/internal/service/vector"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, store *fakeStore) *gin.Engine {
	t.Helper()
	sc := NewSearchController(store, newTestProcessor(t, store, nil, 4), zap.NewNop())

	router := gin.New()
	router.POST("/index", sc.Index)
	router.GET("/index/:job_id", sc.IndexStatus)
	router.POST("/search", sc.Search)
	router.GET("/health", sc.Health)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSearchController_IndexAndPoll(t *testing.T) {
	store := &fakeStore{}
	router := newTestRouter(t, store)

	images := []string{
		base64.StdEncoding.EncodeToString(pngBytes(t, 3, 3, 1)),
		base64.StdEncoding.EncodeToString(pngBytes(t, 3, 3, 2)),
	}
	w := doJSON(t, router, http.MethodPost, "/index", gin.H{"images": images, "tracking_id": 7})
	require.Equal(t, http.StatusAccepted, w.Code)

	var job model.IndexingJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.NotEmpty(t, job.JobID)
	require.NotNil(t, job.TrackingID)
	assert.Equal(t, 7, *job.TrackingID)

	assert.Eventually(t, func() bool {
		w := doJSON(t, router, http.MethodGet, "/index/"+job.JobID, nil)
		var status model.IndexingJob
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &status) != nil {
			return false
		}
		return status.Status == model.JobSuccess && status.Indexed == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSearchController_IndexBadRequests(t *testing.T) {
	router := newTestRouter(t, &fakeStore{})

	tests := []struct {
		name string
		body any
	}{
		{"missing images", gin.H{"tracking_id": 1}},
		{"invalid base64", gin.H{"images": []string{"***"}}},
		{"wrong type", gin.H{"images": "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/index", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSearchController_IndexStatusUnknown(t *testing.T) {
	router := newTestRouter(t, &fakeStore{})
	w := doJSON(t, router, http.MethodGet, "/index/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchController_Search(t *testing.T) {
	pixels := pngBytes(t, 2, 2, 9)
	store := &fakeStore{
		results: [][]vector.Candidate{
			{
				{Kind: model.KindImage, Pixels: pixels, Score: 0.9},
				{Kind: model.KindText, Text: "a cat", Score: 0.8},
			},
			{},
		},
	}
	router := newTestRouter(t, store)

	w := doJSON(t, router, http.MethodPost, "/search", gin.H{
		"queries":     []string{"cat", "dog"},
		"tracking_id": 3,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result model.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, []string{"cat", "dog"}, result.Queries)
	assert.Equal(t, [][]string{{base64.StdEncoding.EncodeToString(pixels)}, {}}, result.Images)
	assert.Equal(t, [][]string{{"a cat"}, {}}, result.Texts)
	require.NotNil(t, result.TrackingID)
	assert.Equal(t, 3, *result.TrackingID)

	// n_similar defaults to 5 and queries are embedded as texts in order
	assert.Equal(t, vector.DefaultNumSimilar, store.lastN)
	require.Len(t, store.queries, 1)
	assert.Equal(t, model.Texts("cat", "dog"), store.queries[0])
}

func TestSearchController_SearchNSimilar(t *testing.T) {
	store := &fakeStore{results: [][]vector.Candidate{{}}}
	router := newTestRouter(t, store)

	w := doJSON(t, router, http.MethodPost, "/search", gin.H{"queries": []string{"x"}, "n_similar": 12})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 12, store.lastN)
}

func TestSearchController_SearchErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"remote", fmt.Errorf("failed to search: %w", vector.ErrRemoteService), http.StatusBadGateway},
		{"payload", fmt.Errorf("query 0: %w", vector.ErrPayloadDecode), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &fakeStore{queryErr: tt.err})
			w := doJSON(t, router, http.MethodPost, "/search", gin.H{"queries": []string{"x"}})
			assert.Equal(t, tt.code, w.Code)
		})
	}

	router := newTestRouter(t, &fakeStore{})
	w := doJSON(t, router, http.MethodPost, "/search", gin.H{"n_similar": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchController_Health(t *testing.T) {
	store := &fakeStore{}
	router := newTestRouter(t, store)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test-collection")

	store.healthErr = errors.New("qdrant down")
	w = doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSearchController_IndexQueueFull(t *testing.T) {
	store := &fakeStore{putGate: make(chan struct{})}
	processor := NewIndexProcessor(store, nil, config.IndexingConfig{Workers: 1, QueueSize: 1, BatchSize: 8}, zap.NewNop())
	t.Cleanup(func() { processor.Close() })
	t.Cleanup(func() { close(store.putGate) })

	sc := NewSearchController(store, processor, zap.NewNop())
	router := gin.New()
	router.POST("/index", sc.Index)

	code := http.StatusAccepted
	for i := 0; i < 4 && code == http.StatusAccepted; i++ {
		images := []string{base64.StdEncoding.EncodeToString(pngBytes(t, 2, 2, uint8(i)))}
		code = doJSON(t, router, http.MethodPost, "/index", gin.H{"images": images}).Code
	}
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
