package database

import (
	"math"
	"testing"
)

func TestCosineSimilarity_IdenticalVectors(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.5, 0.5, 0.5},
		{-1, 2, -3, 4},
	}
	for _, v := range vectors {
		got := CosineSimilarity(v, v)
		if math.Abs(got-1.0) > 1e-9 {
			t.Errorf("CosineSimilarity(v, v) = %v, want 1.0 for %v", got, v)
		}
	}
}

func TestCosineSimilarity_OrthogonalVectors(t *testing.T) {
	got := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	if got != 0.0 {
		t.Errorf("orthogonal vectors scored %v, want 0.0", got)
	}
}

func TestCosineSimilarity_OppositeVectors(t *testing.T) {
	got := CosineSimilarity([]float32{1, 2, 3}, []float32{-1, -2, -3})
	if math.Abs(got-(-1.0)) > 1e-9 {
		t.Errorf("opposite vectors scored %v, want -1.0", got)
	}
}

func TestCosineSimilarity_DegenerateInputs(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
	}{
		{"both empty", nil, nil},
		{"first empty", nil, []float32{1, 2}},
		{"second empty", []float32{1, 2}, nil},
		{"mismatched lengths", []float32{1, 2}, []float32{1, 2, 3}},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 2, 3}},
		{"both zero", []float32{0, 0}, []float32{0, 0}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CosineSimilarity(tc.a, tc.b); got != 0.0 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want 0.0", tc.a, tc.b, got)
			}
		})
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	pairs := [][2][]float32{
		{{1, 2, 3}, {4, 5, 6}},
		{{1, 0}, {0, 1}},
		{nil, {1, 2}},
		{{1, 2}, {1, 2, 3}},
		{{0, 0}, {1, 1}},
	}
	for _, p := range pairs {
		ab := CosineSimilarity(p[0], p[1])
		ba := CosineSimilarity(p[1], p[0])
		if ab != ba {
			t.Errorf("similarity not symmetric: (%v, %v) gave %v and %v", p[0], p[1], ab, ba)
		}
	}
}

func TestCosineSimilarity_ClampedRange(t *testing.T) {
	// Near-parallel large vectors can accumulate rounding error past 1.0.
	a := make([]float32, 512)
	b := make([]float32, 512)
	for i := range a {
		a[i] = 0.1
		b[i] = 0.1
	}
	got := CosineSimilarity(a, b)
	if got < -1.0 || got > 1.0 {
		t.Errorf("similarity %v outside [-1, 1]", got)
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 0.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2.0},
		{"empty", nil, nil, 2.0},
		{"mismatched", []float32{1}, []float32{1, 2}, 2.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 2.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineDistance(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("CosineDistance(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
