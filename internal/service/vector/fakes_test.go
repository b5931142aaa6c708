package vector

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"slices"
	"sync"
)

// fakeModel embeds texts by lookup and images by the red channel of their
// top-left pixel, so tests can steer similarity exactly.
type fakeModel struct {
	dim      int
	distance DistanceMetric
	textVecs map[string][]float32
	textErr  error
	// shortBy drops this many vectors from every reply
	shortBy int

	mu         sync.Mutex
	textCalls  [][]string
	imageCalls int
}

func newFakeModel(dim int) *fakeModel {
	return &fakeModel{dim: dim, distance: DistanceMetricCosine, textVecs: map[string][]float32{}}
}

func (f *fakeModel) oneHot(i int) []float32 {
	v := make([]float32, f.dim)
	v[i%f.dim] = 1
	return v
}

func (f *fakeModel) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.textCalls = append(f.textCalls, slices.Clone(texts))
	f.mu.Unlock()
	if f.textErr != nil {
		return nil, f.textErr
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if v, ok := f.textVecs[t]; ok {
			out = append(out, v)
		} else {
			out = append(out, f.oneHot(len(t)))
		}
	}
	return out[:len(out)-min(f.shortBy, len(out))], nil
}

func (f *fakeModel) EmbedImages(_ context.Context, images []image.Image) ([][]float32, error) {
	f.mu.Lock()
	f.imageCalls++
	f.mu.Unlock()
	out := make([][]float32, 0, len(images))
	for _, img := range images {
		b := img.Bounds()
		r, _, _, _ := img.At(b.Min.X, b.Min.Y).RGBA()
		out = append(out, f.oneHot(int(r>>8)))
	}
	return out[:len(out)-min(f.shortBy, len(out))], nil
}

func (f *fakeModel) GetDimension() int           { return f.dim }
func (f *fakeModel) GetDistance() DistanceMetric { return f.distance }
func (f *fakeModel) GetModelName() string        { return "fake" }

// fakeDB is an in-memory VectorDatabase ranking by dot product
type fakeDB struct {
	mu          sync.Mutex
	collections map[string]*fakeCollection
	upserts     int
	searches    int
	upsertErr   error
	searchErr   error
	healthErr   error
	// rawHits, when set, is returned verbatim from SearchBatch
	rawHits [][]*ScoredPoint
}

type fakeCollection struct {
	dim      int
	distance DistanceMetric
	points   []*Point
}

func newFakeDB() *fakeDB {
	return &fakeDB{collections: map[string]*fakeCollection{}}
}

func (f *fakeDB) CreateCollection(_ context.Context, name string, dim int, distance DistanceMetric) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[name]; ok {
		return fmt.Errorf("collection %s already exists", name)
	}
	f.collections[name] = &fakeCollection{dim: dim, distance: distance}
	return nil
}

func (f *fakeDB) DeleteCollection(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.collections, name)
	return nil
}

func (f *fakeDB) CollectionExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeDB) GetCollectionInfo(_ context.Context, name string) (*CollectionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", name)
	}
	return &CollectionInfo{Name: name, VectorDim: c.dim, Distance: c.distance, PointsCount: uint64(len(c.points))}, nil
}

func (f *fakeDB) Upsert(_ context.Context, name string, points []*Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	c, ok := f.collections[name]
	if !ok {
		return fmt.Errorf("collection %s not found", name)
	}
	c.points = append(c.points, points...)
	return nil
}

func (f *fakeDB) SearchBatch(_ context.Context, name string, requests []SearchRequest) ([][]*ScoredPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.rawHits != nil {
		return f.rawHits, nil
	}
	c, ok := f.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", name)
	}

	results := make([][]*ScoredPoint, len(requests))
	for i, req := range requests {
		hits := make([]*ScoredPoint, 0, len(c.points))
		for _, p := range c.points {
			var score float32
			for j := range p.Vector {
				score += p.Vector[j] * req.Vector[j]
			}
			hits = append(hits, &ScoredPoint{ID: p.ID, Score: score, Payload: p.Payload})
		}
		slices.SortStableFunc(hits, func(a, b *ScoredPoint) int {
			switch {
			case a.Score > b.Score:
				return -1
			case a.Score < b.Score:
				return 1
			}
			return 0
		})
		results[i] = hits[:min(req.Limit, len(hits))]
	}
	return results, nil
}

func (f *fakeDB) Close() error { return nil }

func (f *fakeDB) Health(context.Context) error { return f.healthErr }

func (f *fakeDB) points(name string) []*Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.collections[name].points)
}

// solidImage returns a w×h image filled with a single red level
func solidImage(w, h int, red uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := color.RGBA{R: red, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
