package database

import (
	"context"
	"errors"
)

// ErrMediaOwnerMismatch is returned by SaveFaces when the media item already
// holds faces of a different owner. Media ids come from the outside world;
// an owner must not be able to replace another owner's faces.
var ErrMediaOwnerMismatch = errors.New("media belongs to a different owner")

// FaceStore provides access to detected faces. Implementations must return
// (nil, nil) from GetFace when the id does not resolve, and must keep the
// ordering of GetFacesByPerson and GetUnassignedByOwner stable (by id) -
// clustering and representative selection depend on store order.
type FaceStore interface {
	// GetFace retrieves a face by id, nil if not found
	GetFace(ctx context.Context, id int64) (*Face, error)
	// GetFacesByMedia retrieves all faces detected in a media item
	GetFacesByMedia(ctx context.Context, mediaID int64) ([]Face, error)
	// GetFacesByPerson retrieves all faces assigned to a person, ordered by id
	GetFacesByPerson(ctx context.Context, personID int64) ([]Face, error)
	// GetUnassignedByOwner retrieves all unassigned faces for an owner, ordered by id
	GetUnassignedByOwner(ctx context.Context, ownerID int64) ([]Face, error)
	// CountByPerson returns the number of faces assigned to a person
	CountByPerson(ctx context.Context, personID int64) (int64, error)
	// SaveFace persists a face (insert when ID is zero, update otherwise)
	SaveFace(ctx context.Context, face *Face) error
	// SaveFaces stores the detected faces for a media item, replacing any
	// existing faces for that media item (detector ingestion path). Returns
	// ErrMediaOwnerMismatch when the media item holds another owner's faces.
	SaveFaces(ctx context.Context, mediaID, ownerID int64, faces []Face) ([]Face, error)
	// FindSimilar finds the faces nearest to the given embedding by cosine
	// distance, within the owner's faces, and returns them with distances
	FindSimilar(ctx context.Context, ownerID int64, embedding []float32, limit int) ([]Face, []float64, error)
}

// PersonStore provides access to identity records.
// GetPerson returns (nil, nil) when the id does not resolve.
type PersonStore interface {
	// GetPerson retrieves a person by id, nil if not found
	GetPerson(ctx context.Context, id int64) (*Person, error)
	// GetPeopleByOwner retrieves an owner's people ordered by face_count
	// descending (ties by id ascending)
	GetPeopleByOwner(ctx context.Context, ownerID int64) ([]Person, error)
	// SearchPeople retrieves an owner's people whose normalized name
	// contains the normalized query, same ordering as GetPeopleByOwner
	SearchPeople(ctx context.Context, ownerID int64, query string) ([]Person, error)
	// SavePerson persists a person (insert when ID is zero, update otherwise)
	SavePerson(ctx context.Context, person *Person) error
	// DeletePerson removes a person record
	DeletePerson(ctx context.Context, id int64) error
	// MergePeople re-points every face of source to target, renames target
	// when newName is non-empty, recomputes target's face count from the
	// face table and deletes source - all as one atomic unit. No partial
	// state is observable to other readers. Returns the updated target.
	MergePeople(ctx context.Context, target, source *Person, newName string) (*Person, error)
}
