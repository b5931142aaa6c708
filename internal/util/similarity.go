package util

import (
	"fmt"
	"math"
)

// DefaultEps floors the denominator of CosineSimilarity
const DefaultEps = 1e-15

// CosineSimilarity returns the square matrix of pairwise cosine similarities.
// The denominator is floored at eps so zero vectors produce zeros instead of NaN.
func CosineSimilarity(vectors [][]float32, eps float64) ([][]float64, error) {
	n := len(vectors)
	if n == 0 {
		return [][]float64{}, nil
	}

	dim := len(vectors[0])
	squaredNorms := make([]float64, n)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
		squaredNorms[i] = dot(v, v)
	}

	result := make([][]float64, n)
	for i := range result {
		result[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			denominator := math.Max(math.Sqrt(squaredNorms[i]*squaredNorms[j]), eps)
			sim := dot(vectors[i], vectors[j]) / denominator
			result[i][j] = sim
			result[j][i] = sim
		}
	}
	return result, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for k := range a {
		sum += float64(a[k]) * float64(b[k])
	}
	return sum
}
