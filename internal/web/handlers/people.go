package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/kozaktomas/face-tagger/internal/web/middleware"
)

// PeopleHandler serves the person (identity) endpoints.
type PeopleHandler struct {
	engine *facematch.Engine
	people database.PersonStore
	faces  database.FaceStore
}

// NewPeopleHandler creates a people handler.
func NewPeopleHandler(engine *facematch.Engine, people database.PersonStore, faces database.FaceStore) *PeopleHandler {
	return &PeopleHandler{engine: engine, people: people, faces: faces}
}

// personResponse is the wire representation of a person.
type personResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	FaceCount     int64  `json:"face_count"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toPersonResponse(p *database.Person) personResponse {
	return personResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		ThumbnailPath: p.ThumbnailPath,
		FaceCount:     p.FaceCount,
		CreatedAt:     p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:     p.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// List returns the owner's people ordered by face count. An optional ?q=
// query filters by normalized name.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerFromContext(r.Context())

	var people []database.Person
	var err error
	if q := r.URL.Query().Get("q"); q != "" {
		people, err = h.people.SearchPeople(r.Context(), ownerID, q)
	} else {
		people, err = h.people.GetPeopleByOwner(r.Context(), ownerID)
	}
	if err != nil {
		log.Printf("list people: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list people")
		return
	}

	result := make([]personResponse, 0, len(people))
	for i := range people {
		result = append(result, toPersonResponse(&people[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"people": result})
}

type personRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	ThumbnailPath string `json:"thumbnail_path"`
}

// Create creates a new person for the owner.
func (h *PeopleHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerFromContext(r.Context())

	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	person := &database.Person{
		OwnerID:       ownerID,
		Name:          req.Name,
		Description:   req.Description,
		ThumbnailPath: req.ThumbnailPath,
	}
	if err := h.people.SavePerson(r.Context(), person); err != nil {
		log.Printf("create person: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create person")
		return
	}

	respondJSON(w, http.StatusCreated, toPersonResponse(person))
}

// getOwnedPerson loads a person and verifies it belongs to the request owner.
// Writes the error response itself and returns nil when the caller should
// stop.
func (h *PeopleHandler) getOwnedPerson(w http.ResponseWriter, r *http.Request) *database.Person {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid person id")
		return nil
	}

	person, err := h.people.GetPerson(r.Context(), id)
	if err != nil {
		log.Printf("get person %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to load person")
		return nil
	}
	if person == nil || person.OwnerID != middleware.OwnerFromContext(r.Context()) {
		respondError(w, http.StatusNotFound, "person not found")
		return nil
	}
	return person
}

// Get returns one person.
func (h *PeopleHandler) Get(w http.ResponseWriter, r *http.Request) {
	person := h.getOwnedPerson(w, r)
	if person == nil {
		return
	}
	respondJSON(w, http.StatusOK, toPersonResponse(person))
}

// Update changes a person's name, description or thumbnail.
func (h *PeopleHandler) Update(w http.ResponseWriter, r *http.Request) {
	person := h.getOwnedPerson(w, r)
	if person == nil {
		return
	}

	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	person.Name = req.Name
	person.Description = req.Description
	person.ThumbnailPath = req.ThumbnailPath
	if err := h.people.SavePerson(r.Context(), person); err != nil {
		log.Printf("update person %d: %v", person.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to update person")
		return
	}

	respondJSON(w, http.StatusOK, toPersonResponse(person))
}

// Delete removes a person. Their faces fall back to unassigned.
func (h *PeopleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	person := h.getOwnedPerson(w, r)
	if person == nil {
		return
	}

	if err := h.people.DeletePerson(r.Context(), person.ID); err != nil {
		log.Printf("delete person %d: %v", person.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to delete person")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetFaces returns all faces assigned to a person.
func (h *PeopleHandler) GetFaces(w http.ResponseWriter, r *http.Request) {
	person := h.getOwnedPerson(w, r)
	if person == nil {
		return
	}

	faces, err := h.faces.GetFacesByPerson(r.Context(), person.ID)
	if err != nil {
		log.Printf("get faces of person %d: %v", person.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to load faces")
		return
	}

	result := make([]faceResponse, 0, len(faces))
	for i := range faces {
		result = append(result, toFaceResponse(&faces[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"faces": result})
}

type mergeRequest struct {
	PersonID1 int64  `json:"person_id_1"`
	PersonID2 int64  `json:"person_id_2"`
	NewName   string `json:"new_name"`
}

// Merge merges person_id_2 into person_id_1.
func (h *PeopleHandler) Merge(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerFromContext(r.Context())

	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.PersonID1 <= 0 || req.PersonID2 <= 0 {
		respondError(w, http.StatusBadRequest, "person_id_1 and person_id_2 are required")
		return
	}
	if req.PersonID1 == req.PersonID2 {
		respondError(w, http.StatusBadRequest, "cannot merge a person into itself")
		return
	}

	// The requesting owner must own the merge target; the engine rejects
	// cross-owner merges for the source.
	target, err := h.people.GetPerson(r.Context(), req.PersonID1)
	if err != nil {
		log.Printf("get person %d: %v", req.PersonID1, err)
		respondError(w, http.StatusInternalServerError, "failed to load person")
		return
	}
	if target == nil || target.OwnerID != ownerID {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}

	merged, err := h.engine.MergePeople(r.Context(), req.PersonID1, req.PersonID2, req.NewName)
	if err != nil {
		switch {
		case errors.Is(err, facematch.ErrPersonNotFound):
			respondError(w, http.StatusNotFound, "person not found")
		case errors.Is(err, facematch.ErrOwnerMismatch):
			respondError(w, http.StatusForbidden, "people belong to different owners")
		default:
			log.Printf("merge people %d and %d: %v", req.PersonID1, req.PersonID2, err)
			respondError(w, http.StatusInternalServerError, "failed to merge people")
		}
		return
	}

	respondJSON(w, http.StatusOK, toPersonResponse(merged))
}
