package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/kozaktomas/face-tagger/internal/config"
	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/web/middleware"
)

// MediaHandler serves the detector ingestion endpoints. The external face
// detector posts its findings per media item; this service stores them and
// owns everything after that.
type MediaHandler struct {
	faces  database.FaceStore
	models *config.ModelsConfig
}

// NewMediaHandler creates a media handler.
func NewMediaHandler(faces database.FaceStore, models *config.ModelsConfig) *MediaHandler {
	return &MediaHandler{faces: faces, models: models}
}

// detectedFace is one face as the detector reports it. The embedding comes
// in as a comma-separated decimal string.
type detectedFace struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
	Embedding  string  `json:"embedding"`
	Model      string  `json:"model"`
}

type ingestRequest struct {
	Faces []detectedFace `json:"faces"`
}

// SaveFaces stores the detected faces of a media item, replacing any faces
// stored for it before. Posting an empty list clears the media item's faces.
func (h *MediaHandler) SaveFaces(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerFromContext(r.Context())

	mediaID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid media id")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	faces := make([]database.Face, 0, len(req.Faces))
	for i, df := range req.Faces {
		embedding := database.ParseEmbedding(df.Embedding)
		if df.Embedding != "" && embedding == nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("face %d: malformed embedding", i))
			return
		}
		if dim := h.models.Dim(df.Model); dim > 0 && len(embedding) > 0 && len(embedding) != dim {
			respondError(w, http.StatusBadRequest, fmt.Sprintf(
				"face %d: embedding has %d dimensions, model %q expects %d",
				i, len(embedding), df.Model, dim,
			))
			return
		}

		faces = append(faces, database.Face{
			X:          df.X,
			Y:          df.Y,
			Width:      df.Width,
			Height:     df.Height,
			Confidence: df.Confidence,
			Embedding:  embedding,
		})
	}

	saved, err := h.faces.SaveFaces(r.Context(), mediaID, ownerID, faces)
	if err != nil {
		// Foreign media looks nonexistent, same as getOwnedFace.
		if errors.Is(err, database.ErrMediaOwnerMismatch) {
			respondError(w, http.StatusNotFound, "media not found")
			return
		}
		log.Printf("save faces for media %d: %v", mediaID, err)
		respondError(w, http.StatusInternalServerError, "failed to save faces")
		return
	}

	result := make([]faceResponse, 0, len(saved))
	for i := range saved {
		result = append(result, toFaceResponse(&saved[i]))
	}
	respondJSON(w, http.StatusCreated, map[string]any{"faces": result})
}

// GetFaces returns the faces detected in a media item.
func (h *MediaHandler) GetFaces(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerFromContext(r.Context())

	mediaID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid media id")
		return
	}

	faces, err := h.faces.GetFacesByMedia(r.Context(), mediaID)
	if err != nil {
		log.Printf("get faces for media %d: %v", mediaID, err)
		respondError(w, http.StatusInternalServerError, "failed to load faces")
		return
	}

	result := make([]faceResponse, 0, len(faces))
	for i := range faces {
		if faces[i].OwnerID != ownerID {
			continue
		}
		result = append(result, toFaceResponse(&faces[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"faces": result})
}
