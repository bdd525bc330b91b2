package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kozaktomas/face-tagger/internal/constants"
	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/kozaktomas/face-tagger/internal/web/middleware"
)

// FacesHandler serves the face endpoints: assignment, suggestions,
// clustering and similarity search.
type FacesHandler struct {
	engine     *facematch.Engine
	faces      database.FaceStore
	jobManager *JobManager
}

// NewFacesHandler creates a faces handler.
func NewFacesHandler(engine *facematch.Engine, faces database.FaceStore, jobManager *JobManager) *FacesHandler {
	return &FacesHandler{engine: engine, faces: faces, jobManager: jobManager}
}

// faceResponse is the wire representation of a face.
type faceResponse struct {
	ID         int64   `json:"id"`
	MediaID    int64   `json:"media_id"`
	PersonID   *int64  `json:"person_id"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
	Verified   bool    `json:"verified"`
	DetectedAt string  `json:"detected_at"`
}

func toFaceResponse(f *database.Face) faceResponse {
	return faceResponse{
		ID:         f.ID,
		MediaID:    f.MediaID,
		PersonID:   f.PersonID,
		X:          f.X,
		Y:          f.Y,
		Width:      f.Width,
		Height:     f.Height,
		Confidence: f.Confidence,
		Verified:   f.Verified,
		DetectedAt: f.DetectedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// getOwnedFace loads a face and verifies it belongs to the request owner.
// Writes the error response itself and returns nil when the caller should
// stop.
func (h *FacesHandler) getOwnedFace(w http.ResponseWriter, r *http.Request) *database.Face {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid face id")
		return nil
	}

	face, err := h.faces.GetFace(r.Context(), id)
	if err != nil {
		log.Printf("get face %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to load face")
		return nil
	}
	if face == nil || face.OwnerID != middleware.OwnerFromContext(r.Context()) {
		respondError(w, http.StatusNotFound, "face not found")
		return nil
	}
	return face
}

// Get returns one face.
func (h *FacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	face := h.getOwnedFace(w, r)
	if face == nil {
		return
	}
	respondJSON(w, http.StatusOK, toFaceResponse(face))
}

// ListUnassigned returns the owner's unassigned faces.
func (h *FacesHandler) ListUnassigned(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerFromContext(r.Context())

	faces, err := h.faces.GetUnassignedByOwner(r.Context(), ownerID)
	if err != nil {
		log.Printf("list unassigned faces: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list faces")
		return
	}

	result := make([]faceResponse, 0, len(faces))
	for i := range faces {
		result = append(result, toFaceResponse(&faces[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"faces": result})
}

type assignRequest struct {
	PersonID int64 `json:"person_id"`
}

// Assign links a face to a person as a verified assignment.
func (h *FacesHandler) Assign(w http.ResponseWriter, r *http.Request) {
	face := h.getOwnedFace(w, r)
	if face == nil {
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.PersonID <= 0 {
		respondError(w, http.StatusBadRequest, "person_id is required")
		return
	}

	assigned, err := h.engine.AssignFace(r.Context(), face.ID, req.PersonID)
	if err != nil {
		switch {
		case errors.Is(err, facematch.ErrFaceNotFound), errors.Is(err, facematch.ErrPersonNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		default:
			log.Printf("assign face %d: %v", face.ID, err)
			respondError(w, http.StatusInternalServerError, "failed to assign face")
		}
		return
	}

	respondJSON(w, http.StatusOK, toFaceResponse(assigned))
}

// Unassign clears a face's person link.
func (h *FacesHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	face := h.getOwnedFace(w, r)
	if face == nil {
		return
	}

	cleared, err := h.engine.UnassignFace(r.Context(), face.ID)
	if err != nil {
		log.Printf("unassign face %d: %v", face.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to unassign face")
		return
	}

	respondJSON(w, http.StatusOK, toFaceResponse(cleared))
}

// Suggestions returns ranked candidate people for a face.
func (h *FacesHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	face := h.getOwnedFace(w, r)
	if face == nil {
		return
	}

	suggestions, err := h.engine.SuggestPeople(r.Context(), face.ID)
	if err != nil {
		log.Printf("suggest people for face %d: %v", face.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to compute suggestions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

// similarFaceResponse pairs a face with its distance to the query face.
type similarFaceResponse struct {
	Face     faceResponse `json:"face"`
	Distance float64      `json:"distance"`
}

// Similar returns the faces nearest to the given face by cosine distance.
func (h *FacesHandler) Similar(w http.ResponseWriter, r *http.Request) {
	face := h.getOwnedFace(w, r)
	if face == nil {
		return
	}
	if len(face.Embedding) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "face has no embedding")
		return
	}

	limit := constants.DefaultSimilarLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > constants.MaxSimilarLimit {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	// One extra so the query face itself can be dropped from the results.
	faces, distances, err := h.faces.FindSimilar(r.Context(), face.OwnerID, face.Embedding, limit+1)
	if err != nil {
		log.Printf("find similar to face %d: %v", face.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to find similar faces")
		return
	}

	result := make([]similarFaceResponse, 0, limit)
	for i := range faces {
		if faces[i].ID == face.ID {
			continue
		}
		result = append(result, similarFaceResponse{
			Face:     toFaceResponse(&faces[i]),
			Distance: distances[i],
		})
		if len(result) >= limit {
			break
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"faces": result})
}

// clusterResponse is one group of unassigned faces judged to be the same
// person.
type clusterResponse struct {
	SeedFaceID int64          `json:"seed_face_id"`
	Faces      []faceResponse `json:"faces"`
}

// Cluster partitions the owner's unassigned faces into candidate groups.
// Read-only; assigning the groups to people is up to the client.
func (h *FacesHandler) Cluster(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerFromContext(r.Context())

	clusters, err := h.engine.ClusterUnassigned(r.Context(), ownerID)
	if err != nil {
		log.Printf("cluster faces for owner %d: %v", ownerID, err)
		respondError(w, http.StatusInternalServerError, "failed to cluster faces")
		return
	}

	result := make([]clusterResponse, 0, len(clusters))
	for _, cluster := range clusters {
		faces := make([]faceResponse, 0, len(cluster.Faces))
		for i := range cluster.Faces {
			faces = append(faces, toFaceResponse(&cluster.Faces[i]))
		}
		result = append(result, clusterResponse{
			SeedFaceID: cluster.Seed.ID,
			Faces:      faces,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"clusters": result})
}

// StartAutoAssign launches a background auto-assignment pass and returns
// the job id immediately. Only one pass runs per owner at a time.
func (h *FacesHandler) StartAutoAssign(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerFromContext(r.Context())

	job, running := h.jobManager.CreateJobIfIdle(uuid.New().String(), ownerID)
	if running != nil {
		respondJSON(w, http.StatusConflict, map[string]any{
			"error":  "auto-assignment already running",
			"job_id": running.ID,
		})
		return
	}

	ctx := job.Start(context.Background())

	go func() {
		engine := h.engine.WithProgress(job.SetProgress)
		result, err := engine.AutoAssign(ctx, ownerID)
		if err != nil {
			log.Printf("auto-assign job %s: %v", job.ID, err)
			job.Fail(err)
			return
		}
		job.Complete(result)
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// GetJob returns the status of an auto-assignment job.
func (h *FacesHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job := h.getOwnedJob(w, r)
	if job == nil {
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// CancelJob stops a running auto-assignment job.
func (h *FacesHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	job := h.getOwnedJob(w, r)
	if job == nil {
		return
	}

	status := job.GetStatus()
	if status != JobStatusPending && status != JobStatusRunning {
		respondError(w, http.StatusConflict, "job is not running")
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// ListJobs returns the owner's auto-assignment jobs.
func (h *FacesHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerFromContext(r.Context())

	jobs := h.jobManager.ListJobs(ownerID)
	result := make([]JobSnapshot, 0, len(jobs))
	for _, job := range jobs {
		result = append(result, job.Snapshot())
	}
	respondJSON(w, http.StatusOK, map[string]any{"jobs": result})
}

// getOwnedJob loads a job and verifies it belongs to the request owner.
func (h *FacesHandler) getOwnedJob(w http.ResponseWriter, r *http.Request) *AutoAssignJob {
	jobID := chi.URLParam(r, "jobId")
	job := h.jobManager.GetJob(jobID)
	if job == nil || job.OwnerID != middleware.OwnerFromContext(r.Context()) {
		respondError(w, http.StatusNotFound, "job not found")
		return nil
	}
	return job
}
