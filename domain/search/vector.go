package search

import "math"

// Vector is an embedding vector. The zero value is the empty vector.
type Vector struct {
	floats []float64
}

// NewVector creates a Vector from a float slice.
func NewVector(floats []float64) Vector {
	if floats == nil {
		return Vector{}
	}
	f := make([]float64, len(floats))
	copy(f, floats)
	return Vector{floats: f}
}

// Floats returns the vector components.
func (v Vector) Floats() []float64 {
	if v.floats == nil {
		return nil
	}
	f := make([]float64, len(v.floats))
	copy(f, v.floats)
	return f
}

// Dim returns the number of components.
func (v Vector) Dim() int { return len(v.floats) }

// IsZero reports whether the vector is empty or all components are zero.
func (v Vector) IsZero() bool {
	for _, f := range v.floats {
		if f != 0 {
			return false
		}
	}
	return true
}

// Norm returns the L2 norm.
func (v Vector) Norm() float64 {
	var sum float64
	for _, f := range v.floats {
		sum += f * f
	}
	return math.Sqrt(sum)
}

// Normalize returns the unit-length vector. Zero vectors are returned
// unchanged so a failed embedding cannot divide by zero downstream.
func (v Vector) Normalize() Vector {
	norm := v.Norm()
	if norm == 0 {
		return v
	}
	f := make([]float64, len(v.floats))
	for i, c := range v.floats {
		f[i] = c / norm
	}
	return Vector{floats: f}
}

// Dot returns the dot product with other. Dimensions must match; mismatched
// vectors yield 0.
func (v Vector) Dot(other Vector) float64 {
	if len(v.floats) != len(other.floats) {
		return 0
	}
	var sum float64
	for i, c := range v.floats {
		sum += c * other.floats[i]
	}
	return sum
}

// CosineDistance returns 1 - cosine similarity, so 0 means identical
// direction and 2 means opposite. Zero vectors are maximally distant.
func (v Vector) CosineDistance(other Vector) float64 {
	nv, no := v.Norm(), other.Norm()
	if nv == 0 || no == 0 {
		return 2
	}
	sim := v.Dot(other) / (nv * no)
	// Clamp float drift outside [-1, 1].
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return 1 - sim
}

// Equal reports whether both vectors have identical components.
func (v Vector) Equal(other Vector) bool {
	if len(v.floats) != len(other.floats) {
		return false
	}
	for i, c := range v.floats {
		if c != other.floats[i] {
			return false
		}
	}
	return true
}
