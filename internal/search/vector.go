package search

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// DefaultDimensions is the embedding width produced by the configured embedding model.
const DefaultDimensions = 1536

// EncodeVector packs v as little-endian float32 values, 4 bytes per element.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector unpacks a blob written by EncodeVector. dims <= 0 skips the length check.
func DecodeVector(b []byte, dims int) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, &DecodeError{Len: len(b), Want: dims * 4, Err: errors.New("byte length is not a multiple of 4")}
	}
	n := len(b) / 4
	if dims > 0 && n != dims {
		return nil, &DecodeError{Len: n, Want: dims, Err: ErrDimensionMismatch}
	}
	v := make([]float32, n)
	for i := range v {
		f := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, &DecodeError{Len: n, Want: dims, Err: fmt.Errorf("non-finite value at index %d", i)}
		}
		v[i] = f
	}
	return v, nil
}

// CosineSimilarity returns 1 - cosine distance. A zero vector on either side yields 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &DecodeError{Len: len(b), Want: len(a), Err: ErrDimensionMismatch}
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// rounding can push identical vectors just past 1
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, nil
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}

// SimilarityFromCosineDistance converts a store-native cosine distance (lower is better).
func SimilarityFromCosineDistance(d float64) float64 {
	return 1 - d
}

// SimilarityFromNormalizedCosine converts a score of the form (1 + cos) / 2, as produced
// by Elasticsearch dense_vector fields indexed with cosine similarity.
func SimilarityFromNormalizedCosine(score float64) float64 {
	return 2*score - 1
}
