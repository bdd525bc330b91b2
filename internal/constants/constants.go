// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// SimilarityThreshold is the minimum cosine similarity for two faces
	// to be considered the same person (clustering and auto-assignment)
	SimilarityThreshold = 0.6

	// SuggestionThresholdFactor relaxes the similarity threshold for person
	// suggestions, so reviewers see borderline candidates too
	SuggestionThresholdFactor = 0.7

	// AutoAssignRepresentatives is the number of faces per person compared
	// against an unassigned face during auto-assignment
	AutoAssignRepresentatives = 5

	// SuggestionRepresentatives is the number of faces per person compared
	// when building suggestions for a single face
	SuggestionRepresentatives = 3

	// MaxSuggestions is the maximum number of person suggestions returned
	MaxSuggestions = 5
)

// Similar-face search constants
const (
	// DefaultSimilarLimit is the default number of neighbors returned by
	// the similar-faces endpoint
	DefaultSimilarLimit = 20

	// MaxSimilarLimit caps the neighbor count a client may request
	MaxSimilarLimit = 200
)
