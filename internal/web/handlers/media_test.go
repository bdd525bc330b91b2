package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-tagger/internal/config"
	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/web/middleware"
)

func testModels() *config.ModelsConfig {
	return &config.ModelsConfig{
		Models: map[string]config.ModelInfo{
			"facenet": {Dim: 128},
		},
	}
}

func TestMediaSaveFaces(t *testing.T) {
	faces, _, _ := newTestStores()
	handler := NewMediaHandler(faces, testModels())

	body := ingestRequest{Faces: []detectedFace{
		{X: 10, Y: 20, Width: 100, Height: 120, Confidence: 0.98, Embedding: "1,0,0"},
		{X: 200, Y: 30, Width: 90, Height: 110, Confidence: 0.91, Embedding: "0,1,0"},
	}}
	req := ownerRequest(t, http.MethodPost, "/api/v1/media/7/faces", 1, body)
	req = withChiParams(req, map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	handler.SaveFaces(rec, req)

	assertStatusCode(t, rec, http.StatusCreated)
	var resp struct {
		Faces []faceResponse `json:"faces"`
	}
	parseJSONResponse(t, rec, &resp)
	if len(resp.Faces) != 2 {
		t.Fatalf("got %d faces, want 2", len(resp.Faces))
	}
	for _, f := range resp.Faces {
		if f.MediaID != 7 {
			t.Errorf("face media id = %d, want 7", f.MediaID)
		}
		if f.PersonID != nil || f.Verified {
			t.Errorf("ingested face must start unassigned, got %+v", f)
		}
	}
}

func TestMediaSaveFaces_Replaces(t *testing.T) {
	faces, _, _ := newTestStores()
	faces.AddFace(database.Face{MediaID: 7, OwnerID: 1, Embedding: []float32{1, 0}})
	faces.AddFace(database.Face{MediaID: 7, OwnerID: 1, Embedding: []float32{0, 1}})
	handler := NewMediaHandler(faces, testModels())

	body := ingestRequest{Faces: []detectedFace{
		{Confidence: 0.99, Embedding: "0.5,0.5"},
	}}
	req := ownerRequest(t, http.MethodPost, "/api/v1/media/7/faces", 1, body)
	req = withChiParams(req, map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	handler.SaveFaces(rec, req)

	assertStatusCode(t, rec, http.StatusCreated)
	stored, err := faces.GetFacesByMedia(context.Background(), 7)
	if err != nil {
		t.Fatalf("get faces: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("media has %d faces after re-ingestion, want 1", len(stored))
	}
}

func TestMediaSaveFaces_ForeignMedia(t *testing.T) {
	faces, _, _ := newTestStores()
	faces.AddFace(database.Face{MediaID: 7, OwnerID: 1, Embedding: []float32{1, 0}})
	handler := NewMediaHandler(faces, testModels())

	// Another owner re-posting media 7 must not touch owner 1's faces,
	// not even with an empty list.
	req := ownerRequest(t, http.MethodPost, "/api/v1/media/7/faces", 2, ingestRequest{})
	req = withChiParams(req, map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	handler.SaveFaces(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
	stored, err := faces.GetFacesByMedia(context.Background(), 7)
	if err != nil {
		t.Fatalf("get faces: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("owner 1 has %d faces for media 7, want 1", len(stored))
	}
}

func TestMediaSaveFaces_EmptyClears(t *testing.T) {
	faces, _, _ := newTestStores()
	faces.AddFace(database.Face{MediaID: 7, OwnerID: 1, Embedding: []float32{1, 0}})
	handler := NewMediaHandler(faces, testModels())

	req := ownerRequest(t, http.MethodPost, "/api/v1/media/7/faces", 1, ingestRequest{})
	req = withChiParams(req, map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	handler.SaveFaces(rec, req)

	assertStatusCode(t, rec, http.StatusCreated)
	stored, err := faces.GetFacesByMedia(context.Background(), 7)
	if err != nil {
		t.Fatalf("get faces: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("media has %d faces after clearing, want 0", len(stored))
	}
}

func TestMediaSaveFaces_MalformedEmbedding(t *testing.T) {
	faces, _, _ := newTestStores()
	handler := NewMediaHandler(faces, testModels())

	body := ingestRequest{Faces: []detectedFace{
		{Embedding: "1,0,0"},
		{Embedding: "0.1,banana,0.3"},
	}}
	req := ownerRequest(t, http.MethodPost, "/api/v1/media/7/faces", 1, body)
	req = withChiParams(req, map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	handler.SaveFaces(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, "face 1: malformed embedding")
}

func TestMediaSaveFaces_DimensionMismatch(t *testing.T) {
	faces, _, _ := newTestStores()
	handler := NewMediaHandler(faces, testModels())

	body := ingestRequest{Faces: []detectedFace{
		{Embedding: "1,0,0", Model: "facenet"},
	}}
	req := ownerRequest(t, http.MethodPost, "/api/v1/media/7/faces", 1, body)
	req = withChiParams(req, map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	handler.SaveFaces(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, `face 0: embedding has 3 dimensions, model "facenet" expects 128`)
}

func TestMediaSaveFaces_NoEmbedding(t *testing.T) {
	faces, _, _ := newTestStores()
	handler := NewMediaHandler(faces, testModels())

	// A detection without an embedding is legal; it just never matches.
	body := ingestRequest{Faces: []detectedFace{
		{X: 1, Y: 2, Width: 3, Height: 4, Confidence: 0.5},
	}}
	req := ownerRequest(t, http.MethodPost, "/api/v1/media/7/faces", 1, body)
	req = withChiParams(req, map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	handler.SaveFaces(rec, req)

	assertStatusCode(t, rec, http.StatusCreated)
}

func TestMediaSaveFaces_InvalidBody(t *testing.T) {
	faces, _, _ := newTestStores()
	handler := NewMediaHandler(faces, testModels())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media/7/faces", strings.NewReader("not json"))
	req = req.WithContext(middleware.SetOwnerInContext(req.Context(), 1))
	req = withChiParams(req, map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	handler.SaveFaces(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestMediaGetFaces_OwnerFilter(t *testing.T) {
	faces, _, _ := newTestStores()
	faces.AddFace(database.Face{MediaID: 7, OwnerID: 1, Embedding: []float32{1, 0}})
	faces.AddFace(database.Face{MediaID: 7, OwnerID: 2, Embedding: []float32{0, 1}})
	handler := NewMediaHandler(faces, testModels())

	req := ownerRequest(t, http.MethodGet, "/api/v1/media/7/faces", 1, nil)
	req = withChiParams(req, map[string]string{"id": "7"})
	rec := httptest.NewRecorder()
	handler.GetFaces(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp struct {
		Faces []faceResponse `json:"faces"`
	}
	parseJSONResponse(t, rec, &resp)
	if len(resp.Faces) != 1 {
		t.Fatalf("got %d faces, want 1", len(resp.Faces))
	}
	if resp.Faces[0].ID != 1 {
		t.Errorf("face id = %d, want 1", resp.Faces[0].ID)
	}
}
