package search

import (
	"math"
	"testing"
)

func TestNewVector_CopiesInput(t *testing.T) {
	floats := []float64{1, 2, 3}
	v := NewVector(floats)

	floats[0] = 99
	if v.Floats()[0] != 1 {
		t.Error("Vector shares memory with input slice")
	}

	got := v.Floats()
	got[1] = 99
	if v.Floats()[1] != 2 {
		t.Error("Floats() returned internal slice")
	}
}

func TestVector_Dim(t *testing.T) {
	if got := NewVector([]float64{1, 2, 3}).Dim(); got != 3 {
		t.Errorf("Dim() = %d, want 3", got)
	}
	if got := (Vector{}).Dim(); got != 0 {
		t.Errorf("zero value Dim() = %d, want 0", got)
	}
}

func TestVector_IsZero(t *testing.T) {
	if !(Vector{}).IsZero() {
		t.Error("zero value should be zero")
	}
	if !NewVector([]float64{0, 0, 0}).IsZero() {
		t.Error("all-zero vector should be zero")
	}
	if NewVector([]float64{0, 0.1, 0}).IsZero() {
		t.Error("non-zero vector reported zero")
	}
}

func TestVector_Normalize(t *testing.T) {
	v := NewVector([]float64{3, 4}).Normalize()

	want := []float64{0.6, 0.8}
	got := v.Floats()
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-10 {
			t.Errorf("Normalize()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if math.Abs(v.Norm()-1.0) > 1e-10 {
		t.Errorf("normalized Norm() = %v, want 1", v.Norm())
	}
}

func TestVector_Normalize_ZeroVector(t *testing.T) {
	v := NewVector([]float64{0, 0}).Normalize()
	if !v.IsZero() {
		t.Error("normalizing a zero vector should return it unchanged")
	}
}

func TestVector_CosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 0}, []float64{1, 0}, 0},
		{"identical scaled", []float64{1, 0}, []float64{5, 0}, 0},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 1},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewVector(tt.a).CosineDistance(NewVector(tt.b))
			if math.Abs(got-tt.want) > 1e-10 {
				t.Errorf("CosineDistance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVector_CosineDistance_ZeroVectorIsMaximal(t *testing.T) {
	got := (Vector{}).CosineDistance(NewVector([]float64{1, 0}))
	if got != 2 {
		t.Errorf("distance to zero vector = %v, want 2", got)
	}
}

func TestVector_Dot_DimensionMismatch(t *testing.T) {
	got := NewVector([]float64{1, 2}).Dot(NewVector([]float64{1, 2, 3}))
	if got != 0 {
		t.Errorf("Dot with mismatched dims = %v, want 0", got)
	}
}

func TestVector_Equal(t *testing.T) {
	a := NewVector([]float64{1, 2, 3})
	if !a.Equal(NewVector([]float64{1, 2, 3})) {
		t.Error("equal vectors reported unequal")
	}
	if a.Equal(NewVector([]float64{1, 2})) {
		t.Error("different dims reported equal")
	}
	if a.Equal(NewVector([]float64{1, 2, 4})) {
		t.Error("different components reported equal")
	}
}
