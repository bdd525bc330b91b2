package database

import "testing"

func indexFaces() []Face {
	return []Face{
		{ID: 1, OwnerID: 1, Embedding: []float32{1, 0, 0}},
		{ID: 2, OwnerID: 1, Embedding: []float32{0.9, 0.1, 0}},
		{ID: 3, OwnerID: 1, Embedding: []float32{0, 1, 0}},
		{ID: 4, OwnerID: 2}, // no embedding, skipped
	}
}

func TestHNSWIndexSearch(t *testing.T) {
	index := NewHNSWIndex()
	if err := index.BuildFromFaces(indexFaces()); err != nil {
		t.Fatalf("build index: %v", err)
	}
	if index.Count() != 3 {
		t.Fatalf("index has %d faces, want 3 (no-embedding face skipped)", index.Count())
	}

	ids, distances, err := index.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d results, want 2", len(ids))
	}
	if ids[0] != 1 {
		t.Errorf("nearest face = %d, want 1", ids[0])
	}
	if ids[1] != 2 {
		t.Errorf("second face = %d, want 2", ids[1])
	}
	if distances[0] > distances[1] {
		t.Errorf("distances not ascending: %v", distances)
	}
}

func TestHNSWIndexSearchEmpty(t *testing.T) {
	index := NewHNSWIndex()
	if _, _, err := index.Search([]float32{1, 0, 0}, 1); err == nil {
		t.Error("expected error searching an unbuilt index")
	}
}

func TestHNSWIndexAddDelete(t *testing.T) {
	index := NewHNSWIndex()
	if err := index.BuildFromFaces(nil); err != nil {
		t.Fatalf("build empty index: %v", err)
	}

	index.Add(&Face{ID: 7, OwnerID: 1, Embedding: []float32{0, 0, 1}})
	if index.Count() != 1 {
		t.Fatalf("index has %d faces after add, want 1", index.Count())
	}
	if face := index.GetFace(7); face == nil || face.ID != 7 {
		t.Errorf("GetFace(7) = %v, want face 7", face)
	}

	// Faces without embeddings never enter the index.
	index.Add(&Face{ID: 8, OwnerID: 1})
	if index.Count() != 1 {
		t.Errorf("index has %d faces, want 1", index.Count())
	}

	index.Delete(7)
	if !index.IsEmpty() {
		t.Errorf("index has %d faces after delete, want 0", index.Count())
	}
	if face := index.GetFace(7); face != nil {
		t.Errorf("GetFace(7) after delete = %v, want nil", face)
	}
}
