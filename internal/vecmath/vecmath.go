// Package vecmath provides small dense-vector helpers shared by the
// embedding store, the cultural transform and the agents.
package vecmath

import "math"

// Zeros returns a new zero vector of length dim.
func Zeros(dim int) []float64 {
	return make([]float64, dim)
}

// Clone returns a copy of v. A nil input yields an empty, non-nil slice.
func Clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// Scale multiplies every component of v by f in place.
func Scale(v []float64, f float64) {
	for i := range v {
		v[i] *= f
	}
}

// AddScalar adds s to every component of v in place.
func AddScalar(v []float64, s float64) {
	for i := range v {
		v[i] += s
	}
}

// AddInto adds src to dst componentwise. Extra components of the longer
// slice are ignored.
func AddInto(dst, src []float64) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
}

// Norm returns the Euclidean (L2) norm of v.
func Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Returns 0 when the lengths differ, either vector is empty, or either has
// zero magnitude.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
