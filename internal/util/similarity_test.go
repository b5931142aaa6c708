package util

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	vectors := [][]float32{
		{0.6891, 0.2454, 0.7934, 0.1928, 0.2603},
		{0.6270, 0.3612, 0.9891, 0.5631, 0.5761},
		{0.7357, 0.3241, 0.0337, 0.8078, 0.5221},
		{0.8073, 0.5028, 0.7864, 0.8364, 0.8515},
		{0.9753, 0.1112, 0.6858, 0.6813, 0.3945},
		{0.3479, 0.7076, 0.2716, 0.6678, 0.8997},
		{0.3414, 0.3199, 0.5121, 0.0189, 0.8661},
	}
	expected := [][]float64{
		{1.0000, 0.9465, 0.6404, 0.8719, 0.9151, 0.6302, 0.7591},
		{0.9465, 1.0000, 0.7435, 0.9639, 0.9235, 0.7990, 0.8268},
		{0.6404, 0.7435, 1.0000, 0.8842, 0.8530, 0.8584, 0.6033},
		{0.8719, 0.9639, 0.8842, 1.0000, 0.9301, 0.9069, 0.8358},
		{0.9151, 0.9235, 0.8530, 0.9301, 1.0000, 0.7065, 0.6755},
		{0.6302, 0.7990, 0.8584, 0.9069, 0.7065, 1.0000, 0.8232},
		{0.7591, 0.8268, 0.6033, 0.8358, 0.6755, 0.8232, 1.0000},
	}

	got, err := CosineSimilarity(vectors, DefaultEps)
	if err != nil {
		t.Fatalf("CosineSimilarity() error = %v", err)
	}

	for i := range expected {
		for j := range expected[i] {
			if math.Abs(got[i][j]-expected[i][j]) > 1e-3 {
				t.Errorf("similarity[%d][%d] = %.4f, want %.4f", i, j, got[i][j], expected[i][j])
			}
			if got[i][j] != got[j][i] {
				t.Errorf("matrix not symmetric at [%d][%d]", i, j)
			}
		}
	}
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	got, err := CosineSimilarity([][]float32{{0, 0, 0}, {1, 2, 3}}, DefaultEps)
	if err != nil {
		t.Fatalf("CosineSimilarity() error = %v", err)
	}
	for i := range got {
		for j := range got[i] {
			if math.IsNaN(got[i][j]) || math.IsInf(got[i][j], 0) {
				t.Errorf("similarity[%d][%d] is not finite: %v", i, j, got[i][j])
			}
		}
	}
	if got[0][0] != 0 {
		t.Errorf("zero vector self-similarity = %v, want 0", got[0][0])
	}
	if math.Abs(got[1][1]-1) > 1e-9 {
		t.Errorf("self-similarity = %v, want 1", got[1][1])
	}
}

func TestCosineSimilarity_Errors(t *testing.T) {
	if _, err := CosineSimilarity([][]float32{{1, 2}, {1, 2, 3}}, DefaultEps); err == nil {
		t.Error("expected error for mismatched dimensions")
	}

	got, err := CosineSimilarity(nil, DefaultEps)
	if err != nil || len(got) != 0 {
		t.Errorf("CosineSimilarity(nil) = %v, %v; want empty, nil", got, err)
	}
}
