// Package mock provides in-memory implementations of the store interfaces
// for testing. Each method checks an injectable error field first, so tests
// can simulate storage failures without a database.
package mock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/facematch"
)

// MockFaceStore is an in-memory implementation of database.FaceStore.
type MockFaceStore struct {
	mu     sync.RWMutex
	faces  map[int64]*database.Face
	nextID int64

	// Error injection
	GetFaceError              error
	GetFacesByMediaError      error
	GetFacesByPersonError     error
	GetUnassignedByOwnerError error
	CountByPersonError        error
	SaveFaceError             error
	SaveFacesError            error
	FindSimilarError          error
}

// NewMockFaceStore creates an empty mock face store.
func NewMockFaceStore() *MockFaceStore {
	return &MockFaceStore{
		faces:  make(map[int64]*database.Face),
		nextID: 1,
	}
}

// AddFace inserts a face, assigning an id when it has none, and returns it.
func (m *MockFaceStore) AddFace(face database.Face) database.Face {
	m.mu.Lock()
	defer m.mu.Unlock()
	if face.ID == 0 {
		face.ID = m.nextID
	}
	if face.ID >= m.nextID {
		m.nextID = face.ID + 1
	}
	if face.DetectedAt.IsZero() {
		face.DetectedAt = time.Now()
	}
	f := face
	m.faces[face.ID] = &f
	return face
}

// GetFace retrieves a face by id, nil if not found.
func (m *MockFaceStore) GetFace(ctx context.Context, id int64) (*database.Face, error) {
	if m.GetFaceError != nil {
		return nil, m.GetFaceError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	face, ok := m.faces[id]
	if !ok {
		return nil, nil
	}
	f := *face
	return &f, nil
}

// GetFacesByMedia retrieves all faces for a media item, ordered by id.
func (m *MockFaceStore) GetFacesByMedia(ctx context.Context, mediaID int64) ([]database.Face, error) {
	if m.GetFacesByMediaError != nil {
		return nil, m.GetFacesByMediaError
	}
	return m.collect(func(f *database.Face) bool { return f.MediaID == mediaID }), nil
}

// GetFacesByPerson retrieves all faces assigned to a person, ordered by id.
func (m *MockFaceStore) GetFacesByPerson(ctx context.Context, personID int64) ([]database.Face, error) {
	if m.GetFacesByPersonError != nil {
		return nil, m.GetFacesByPersonError
	}
	return m.collect(func(f *database.Face) bool {
		return f.PersonID != nil && *f.PersonID == personID
	}), nil
}

// GetUnassignedByOwner retrieves the owner's unassigned faces, ordered by id.
func (m *MockFaceStore) GetUnassignedByOwner(ctx context.Context, ownerID int64) ([]database.Face, error) {
	if m.GetUnassignedByOwnerError != nil {
		return nil, m.GetUnassignedByOwnerError
	}
	return m.collect(func(f *database.Face) bool {
		return f.OwnerID == ownerID && f.PersonID == nil
	}), nil
}

// CountByPerson returns the number of faces assigned to a person.
func (m *MockFaceStore) CountByPerson(ctx context.Context, personID int64) (int64, error) {
	if m.CountByPersonError != nil {
		return 0, m.CountByPersonError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, f := range m.faces {
		if f.PersonID != nil && *f.PersonID == personID {
			count++
		}
	}
	return count, nil
}

// SaveFace persists a face, assigning an id on insert.
func (m *MockFaceStore) SaveFace(ctx context.Context, face *database.Face) error {
	if m.SaveFaceError != nil {
		return m.SaveFaceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if face.ID == 0 {
		face.ID = m.nextID
		m.nextID++
	} else if face.ID >= m.nextID {
		m.nextID = face.ID + 1
	}
	f := *face
	m.faces[face.ID] = &f
	return nil
}

// SaveFaces replaces the faces of a media item with the given set. Fails
// with ErrMediaOwnerMismatch when the media item holds another owner's faces.
func (m *MockFaceStore) SaveFaces(ctx context.Context, mediaID, ownerID int64, faces []database.Face) ([]database.Face, error) {
	if m.SaveFacesError != nil {
		return nil, m.SaveFacesError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.faces {
		if f.MediaID == mediaID && f.OwnerID != ownerID {
			return nil, database.ErrMediaOwnerMismatch
		}
	}
	for id, f := range m.faces {
		if f.MediaID == mediaID {
			delete(m.faces, id)
		}
	}
	saved := make([]database.Face, 0, len(faces))
	for i := range faces {
		face := faces[i]
		face.ID = m.nextID
		m.nextID++
		face.MediaID = mediaID
		face.OwnerID = ownerID
		if face.DetectedAt.IsZero() {
			face.DetectedAt = time.Now()
		}
		f := face
		m.faces[face.ID] = &f
		saved = append(saved, face)
	}
	return saved, nil
}

// FindSimilar ranks the owner's faces by cosine distance to the embedding.
func (m *MockFaceStore) FindSimilar(ctx context.Context, ownerID int64, embedding []float32, limit int) ([]database.Face, []float64, error) {
	if m.FindSimilarError != nil {
		return nil, nil, m.FindSimilarError
	}
	candidates := m.collect(func(f *database.Face) bool {
		return f.OwnerID == ownerID && len(f.Embedding) > 0
	})

	type scored struct {
		face     database.Face
		distance float64
	}
	ranked := make([]scored, len(candidates))
	for i := range candidates {
		ranked[i] = scored{
			face:     candidates[i],
			distance: database.CosineDistance(embedding, candidates[i].Embedding),
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].distance < ranked[j].distance })

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	faces := make([]database.Face, len(ranked))
	distances := make([]float64, len(ranked))
	for i, s := range ranked {
		faces[i] = s.face
		distances[i] = s.distance
	}
	return faces, distances, nil
}

// collect returns copies of all faces matching the predicate, ordered by id.
func (m *MockFaceStore) collect(match func(*database.Face) bool) []database.Face {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Face
	for _, f := range m.faces {
		if match(f) {
			result = append(result, *f)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// MockPersonStore is an in-memory implementation of database.PersonStore.
// MergePeople shares the face store so the merge can re-point faces the way
// the SQL transaction does.
type MockPersonStore struct {
	mu     sync.RWMutex
	people map[int64]*database.Person
	nextID int64
	faces  *MockFaceStore

	// Error injection
	GetPersonError        error
	GetPeopleByOwnerError error
	SearchPeopleError     error
	SavePersonError       error
	DeletePersonError     error
	MergePeopleError      error
}

// NewMockPersonStore creates an empty mock person store backed by the given
// face store for merge operations.
func NewMockPersonStore(faces *MockFaceStore) *MockPersonStore {
	return &MockPersonStore{
		people: make(map[int64]*database.Person),
		nextID: 1,
		faces:  faces,
	}
}

// AddPerson inserts a person, assigning an id when it has none, and returns it.
func (m *MockPersonStore) AddPerson(person database.Person) database.Person {
	m.mu.Lock()
	defer m.mu.Unlock()
	if person.ID == 0 {
		person.ID = m.nextID
	}
	if person.ID >= m.nextID {
		m.nextID = person.ID + 1
	}
	if person.CreatedAt.IsZero() {
		person.CreatedAt = time.Now()
		person.UpdatedAt = person.CreatedAt
	}
	p := person
	m.people[person.ID] = &p
	return person
}

// GetPerson retrieves a person by id, nil if not found.
func (m *MockPersonStore) GetPerson(ctx context.Context, id int64) (*database.Person, error) {
	if m.GetPersonError != nil {
		return nil, m.GetPersonError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	person, ok := m.people[id]
	if !ok {
		return nil, nil
	}
	p := *person
	return &p, nil
}

// GetPeopleByOwner retrieves the owner's people, face_count descending.
func (m *MockPersonStore) GetPeopleByOwner(ctx context.Context, ownerID int64) ([]database.Person, error) {
	if m.GetPeopleByOwnerError != nil {
		return nil, m.GetPeopleByOwnerError
	}
	return m.collect(ownerID, ""), nil
}

// SearchPeople retrieves the owner's people whose normalized name contains
// the normalized query.
func (m *MockPersonStore) SearchPeople(ctx context.Context, ownerID int64, query string) ([]database.Person, error) {
	if m.SearchPeopleError != nil {
		return nil, m.SearchPeopleError
	}
	return m.collect(ownerID, facematch.NormalizePersonName(query)), nil
}

// SavePerson persists a person, assigning an id on insert.
func (m *MockPersonStore) SavePerson(ctx context.Context, person *database.Person) error {
	if m.SavePersonError != nil {
		return m.SavePersonError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if person.ID == 0 {
		person.ID = m.nextID
		m.nextID++
	} else if person.ID >= m.nextID {
		m.nextID = person.ID + 1
	}
	if person.CreatedAt.IsZero() {
		person.CreatedAt = time.Now()
	}
	person.UpdatedAt = time.Now()
	p := *person
	m.people[person.ID] = &p
	return nil
}

// DeletePerson removes a person record.
func (m *MockPersonStore) DeletePerson(ctx context.Context, id int64) error {
	if m.DeletePersonError != nil {
		return m.DeletePersonError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.people, id)
	return nil
}

// MergePeople atomically re-points source's faces to target, renames target
// when newName is non-empty, recomputes its face count and deletes source.
func (m *MockPersonStore) MergePeople(ctx context.Context, target, source *database.Person, newName string) (*database.Person, error) {
	if m.MergePeopleError != nil {
		return nil, m.MergePeopleError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces.mu.Lock()
	defer m.faces.mu.Unlock()

	var count int64
	for _, f := range m.faces.faces {
		if f.PersonID != nil && *f.PersonID == source.ID {
			tid := target.ID
			f.PersonID = &tid
		}
		if f.PersonID != nil && *f.PersonID == target.ID {
			count++
		}
	}

	merged, ok := m.people[target.ID]
	if !ok {
		merged = target
		m.people[target.ID] = merged
	}
	if newName != "" {
		merged.Name = newName
	}
	merged.FaceCount = count
	merged.UpdatedAt = time.Now()

	delete(m.people, source.ID)

	p := *merged
	return &p, nil
}

// collect returns copies of the owner's people, filtered by normalized name
// when query is non-empty, ordered by face count descending then id.
func (m *MockPersonStore) collect(ownerID int64, normalizedQuery string) []database.Person {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Person
	for _, p := range m.people {
		if p.OwnerID != ownerID {
			continue
		}
		if normalizedQuery != "" &&
			!strings.Contains(facematch.NormalizePersonName(p.Name), normalizedQuery) {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].FaceCount != result[j].FaceCount {
			return result[i].FaceCount > result[j].FaceCount
		}
		return result[i].ID < result[j].ID
	})
	return result
}
