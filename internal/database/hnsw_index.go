package database

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWIndex wraps an in-memory HNSW graph over face embeddings for
// O(log N) nearest-neighbor search. The index is an accelerator for the
// similar-face endpoint only; assignment and clustering always read the
// store directly. Built at startup and kept in sync on face writes.
type HNSWIndex struct {
	graph    *hnsw.Graph[int64]
	idToFace map[int64]*Face
	mu       sync.RWMutex
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{
		idToFace: make(map[int64]*Face),
	}
}

// BuildFromFaces builds the index from a slice of faces.
// Faces without embeddings are skipped.
func (h *HNSWIndex) BuildFromFaces(faces []Face) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(faces) == 0 {
		h.graph = nil
		h.idToFace = make(map[int64]*Face)
		return nil
	}

	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance

	h.idToFace = make(map[int64]*Face, len(faces))

	for i := range faces {
		face := &faces[i]
		if len(face.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(face.ID, face.Embedding))
		h.idToFace[face.ID] = face
	}

	h.graph = g
	return nil
}

// Search finds the k nearest neighbors to the query embedding.
// Returns face IDs and their cosine distances.
func (h *HNSWIndex) Search(query []float32, k int) ([]int64, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, nil, errors.New("index not initialized")
	}

	neighbors := h.graph.Search(query, k)

	ids := make([]int64, len(neighbors))
	distances := make([]float64, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.Key
		distances[i] = CosineDistance(query, n.Value)
	}
	return ids, distances, nil
}

// GetFace returns the face for an index node, nil if unknown.
func (h *HNSWIndex) GetFace(id int64) *Face {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.idToFace[id]
}

// Add inserts or replaces a face in the index.
func (h *HNSWIndex) Add(face *Face) {
	if len(face.Embedding) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.graph == nil {
		g := hnsw.NewGraph[int64]()
		g.M = HNSWMaxNeighbors
		g.Ml = 1.0 / float64(HNSWMaxNeighbors)
		g.Distance = hnsw.CosineDistance
		h.graph = g
	}
	h.graph.Add(hnsw.MakeNode(face.ID, face.Embedding))
	h.idToFace[face.ID] = face
}

// Delete removes a face from the index.
func (h *HNSWIndex) Delete(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.graph != nil {
		h.graph.Delete(id)
	}
	delete(h.idToFace, id)
}

// Count returns the number of faces in the index.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idToFace)
}

// IsEmpty reports whether the index holds no faces.
func (h *HNSWIndex) IsEmpty() bool {
	return h.Count() == 0
}
