// Package vecmath converts between the native vector representation of a
// storage engine (a little-endian float32 BLOB, the layout sqlite-vec and
// libSQL's F32_BLOB both use on disk) and an in-memory []float32, and
// provides the cosine similarity/distance functions Hybrid Search scores
// candidates with.
package vecmath

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode converts a dense vector to a little-endian byte slice suitable for
// storage in a BLOB column.
func Encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode converts a little-endian byte slice back into a dense vector.
func Decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// CosineDistance returns 1 - cosine_similarity(a, b). Vectors of mismatched
// length are treated as maximally dissimilar (distance 2.0), mirroring the
// tolerant behavior the spec's dimensionality-change design note describes
// for engines that don't hard-error on a dimension mismatch.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		normA += fa * fa
		normB += fb * fb
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp for floating point drift before converting to a distance.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return 1 - sim
}

// CosineSimilarity returns 1 - CosineDistance(a, b), clamped to [0, 1] the
// way Hybrid Search's vec_sim term is defined (negative similarity is
// treated as zero rather than propagated as a negative score contribution).
func CosineSimilarity(a, b []float32) float64 {
	sim := 1 - CosineDistance(a, b)
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
