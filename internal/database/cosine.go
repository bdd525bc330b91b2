package database

import "math"

// CosineSimilarity computes the cosine similarity between two embeddings.
// Returns a value between -1 (opposite) and 1 (identical).
// Empty or mismatched-length inputs score 0.0 ("no match", not an error),
// as do zero vectors. Symmetric for all inputs, including the degenerate
// cases. Pure function, safe to call concurrently.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return similarity
}

// CosineDistance computes the cosine distance between two embeddings.
// Returns a value between 0 (identical) and 2 (opposite); degenerate
// inputs get the maximum distance. Used by the similar-face search, which
// ranks by distance rather than similarity.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}
	if isZeroVector(a) || isZeroVector(b) {
		return 2.0
	}
	return 1 - CosineSimilarity(a, b)
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
