package database

import (
	"time"
)

// Face represents one detected face in one media item.
// Faces are created by the external detector and mutated only through the
// assignment engine (PersonID and Verified).
type Face struct {
	ID       int64
	MediaID  int64
	OwnerID  int64  // owner of the media item the face was detected in
	PersonID *int64 // nil while the face is unassigned

	// Bounding box in raw pixel coordinates.
	X      int
	Y      int
	Width  int
	Height int

	Confidence float64   // detection confidence, 0 when the detector gave none
	Embedding  []float32 // may be empty if the detector produced no embedding
	Verified   bool      // true only when a human confirmed the assignment
	DetectedAt time.Time
}

// Assigned reports whether the face is linked to a person.
func (f *Face) Assigned() bool {
	return f.PersonID != nil
}

// Person represents a named identity scoped to one owner.
type Person struct {
	ID            int64
	OwnerID       int64
	Name          string
	Description   string
	ThumbnailPath string

	// FaceCount is a denormalized cache of the number of faces linked to
	// this person. It is always recomputed from the face table, never
	// incremented, so it cannot drift under concurrent mutations.
	FaceCount int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PersonSuggestion is one ranked candidate identity for a face.
type PersonSuggestion struct {
	PersonID   int64   `json:"person_id"`
	PersonName string  `json:"person_name"`
	Similarity float64 `json:"similarity"`
	FaceCount  int64   `json:"face_count"`
}
