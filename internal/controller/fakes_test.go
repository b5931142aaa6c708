package controller

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/armchr/imagesearch/internal/model"
	"github.com/armchr/imagesearch/internal/service/vector"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	puts      [][]model.Object
	putErr    error
	putDelay  time.Duration
	putGate   chan struct{}
	queries   [][]model.Object
	lastN     int
	results   [][]vector.Candidate
	queryErr  error
	healthErr error
}

func (f *fakeStore) Collection() string { return "test-collection" }

func (f *fakeStore) Put(_ context.Context, objs ...model.Object) error {
	if f.putGate != nil {
		<-f.putGate
	}
	time.Sleep(f.putDelay)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.puts = append(f.puts, objs)
	return nil
}

func (f *fakeStore) QuerySimilar(_ context.Context, nSimilar int, objs ...model.Object) ([][]vector.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, objs)
	f.lastN = nSimilar
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.results, nil
}

func (f *fakeStore) Health(context.Context) error { return f.healthErr }

func (f *fakeStore) putSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	sizes := make([]int, len(f.puts))
	for i, p := range f.puts {
		sizes[i] = len(p)
	}
	return sizes
}

func (f *fakeStore) setPutErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putErr = err
}

// pngBytes encodes a w×h image whose color is derived from seed, so different
// seeds give different file contents
func pngBytes(t *testing.T, w, h int, seed uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: seed, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
