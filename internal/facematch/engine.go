// Package facematch implements the face identity engine: grouping unassigned
// faces into candidate clusters, assigning faces to people, bulk
// auto-assignment, merging people and ranking person suggestions for a face.
// All state lives in the stores; the engine itself holds no mutable state and
// its methods are safe to call concurrently.
package facematch

import (
	"github.com/kozaktomas/face-tagger/internal/database"
)

// Engine decides which faces belong to which person.
type Engine struct {
	faces  database.FaceStore
	people database.PersonStore

	// Progress, when set, is invoked after each face processed by
	// AutoAssign. Used by the CLI to drive a progress bar.
	Progress func(processed, total int)
}

// NewEngine creates an engine over the given stores.
func NewEngine(faces database.FaceStore, people database.PersonStore) *Engine {
	return &Engine{faces: faces, people: people}
}

// WithProgress returns a copy of the engine using the given progress hook,
// leaving the receiver untouched. Lets concurrent callers attach their own
// hooks to one shared engine.
func (e *Engine) WithProgress(progress func(processed, total int)) *Engine {
	return &Engine{faces: e.faces, people: e.people, Progress: progress}
}
