package database

import (
	"strconv"
	"strings"
)

// Embedding serialization. Detectors deliver embeddings as comma-separated
// decimal strings; internally and in PostgreSQL they are []float32. The
// round-trip is lossless for every float32 value (strconv 'g' with bitSize 32
// prints the shortest representation that parses back exactly).

// ParseEmbedding parses a comma-separated embedding string into a vector.
// An empty string yields a nil embedding. If any component fails to parse,
// the whole embedding is treated as absent (nil) rather than an error - a
// degenerate embedding simply scores 0.0 against everything.
func ParseEmbedding(s string) []float32 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	embedding := make([]float32, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil
		}
		embedding = append(embedding, float32(v))
	}
	return embedding
}

// FormatEmbedding formats a vector as a comma-separated string.
// Returns the empty string for an empty embedding.
func FormatEmbedding(embedding []float32) string {
	if len(embedding) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, v := range embedding {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	return sb.String()
}
