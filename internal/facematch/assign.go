package facematch

import (
	"context"
	"fmt"
	"log"

	"github.com/kozaktomas/face-tagger/internal/constants"
	"github.com/kozaktomas/face-tagger/internal/database"
)

// AssignFace links a face to a person as a human-confirmed assignment and
// refreshes the person's face count. There is no owner cross-check between
// face and person here; merge is the only operation that enforces owner
// equality.
func (e *Engine) AssignFace(ctx context.Context, faceID, personID int64) (*database.Face, error) {
	face, err := e.faces.GetFace(ctx, faceID)
	if err != nil {
		return nil, fmt.Errorf("load face %d: %w", faceID, err)
	}
	if face == nil {
		return nil, fmt.Errorf("face %d: %w", faceID, ErrFaceNotFound)
	}

	person, err := e.people.GetPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("load person %d: %w", personID, err)
	}
	if person == nil {
		return nil, fmt.Errorf("person %d: %w", personID, ErrPersonNotFound)
	}

	pid := person.ID
	face.PersonID = &pid
	face.Verified = true
	if err := e.faces.SaveFace(ctx, face); err != nil {
		return nil, fmt.Errorf("save face %d: %w", faceID, err)
	}

	if err := e.refreshFaceCount(ctx, person); err != nil {
		return nil, err
	}

	log.Printf("assigned face %d to person %d", faceID, personID)
	return face, nil
}

// UnassignFace clears a face's person link and verified flag. If the face
// had a person, that person's face count is refreshed; unassigning an
// already-unassigned face is a no-op apart from the save.
func (e *Engine) UnassignFace(ctx context.Context, faceID int64) (*database.Face, error) {
	face, err := e.faces.GetFace(ctx, faceID)
	if err != nil {
		return nil, fmt.Errorf("load face %d: %w", faceID, err)
	}
	if face == nil {
		return nil, fmt.Errorf("face %d: %w", faceID, ErrFaceNotFound)
	}

	previousPersonID := face.PersonID

	face.PersonID = nil
	face.Verified = false
	if err := e.faces.SaveFace(ctx, face); err != nil {
		return nil, fmt.Errorf("save face %d: %w", faceID, err)
	}

	if previousPersonID != nil {
		person, err := e.people.GetPerson(ctx, *previousPersonID)
		if err != nil {
			return nil, fmt.Errorf("load person %d: %w", *previousPersonID, err)
		}
		if person != nil {
			if err := e.refreshFaceCount(ctx, person); err != nil {
				return nil, err
			}
		}
	}

	log.Printf("unassigned face %d", faceID)
	return face, nil
}

// AutoAssignResult summarizes one auto-assignment pass.
type AutoAssignResult struct {
	Attempted int `json:"attempted"`
	Assigned  int `json:"assigned"`
}

// AutoAssign matches every unassigned face of the owner against the owner's
// people and assigns each face to its best-scoring person when the score
// reaches the similarity threshold. Auto-assignments are never
// self-verifying. People are considered in face_count order (largest first)
// and each contributes up to AutoAssignRepresentatives faces in store order;
// ties go to the person encountered first (strictly-greater comparison).
//
// Per-face errors are logged and skipped so one bad face cannot abort the
// pass. Afterwards every person's face count is recomputed from the face
// table in one sweep, which keeps the count invariant even if two passes
// overlapped. Cancellable between faces via ctx.
func (e *Engine) AutoAssign(ctx context.Context, ownerID int64) (AutoAssignResult, error) {
	var result AutoAssignResult

	log.Printf("starting auto-assignment for owner %d", ownerID)

	unassigned, err := e.faces.GetUnassignedByOwner(ctx, ownerID)
	if err != nil {
		return result, fmt.Errorf("load unassigned faces: %w", err)
	}
	people, err := e.people.GetPeopleByOwner(ctx, ownerID)
	if err != nil {
		return result, fmt.Errorf("load people: %w", err)
	}

	if len(unassigned) == 0 || len(people) == 0 {
		log.Printf("no unassigned faces or people for owner %d, nothing to do", ownerID)
		return result, nil
	}

	for i := range unassigned {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		face := &unassigned[i]
		result.Attempted++

		bestPerson, bestScore := e.bestMatch(ctx, face, people)

		if bestPerson != nil && bestScore >= constants.SimilarityThreshold {
			pid := bestPerson.ID
			face.PersonID = &pid
			face.Verified = false // auto-assigned, not human-confirmed
			if err := e.faces.SaveFace(ctx, face); err != nil {
				log.Printf("auto-assign: save face %d: %v", face.ID, err)
			} else {
				result.Assigned++
			}
		}

		if e.Progress != nil {
			e.Progress(i+1, len(unassigned))
		}
	}

	// Recompute every person's count from the face table, not incrementally.
	for i := range people {
		if err := e.refreshFaceCount(ctx, &people[i]); err != nil {
			log.Printf("auto-assign: refresh face count for person %d: %v", people[i].ID, err)
		}
	}

	log.Printf("auto-assigned %d of %d faces for owner %d", result.Assigned, result.Attempted, ownerID)
	return result, nil
}

// bestMatch scores the face against each person's representatives and
// returns the single best-scoring person. Scoring errors for one person are
// logged and that person skipped.
func (e *Engine) bestMatch(ctx context.Context, face *database.Face, people []database.Person) (*database.Person, float64) {
	var bestPerson *database.Person
	bestScore := 0.0

	for i := range people {
		person := &people[i]
		score, err := e.personScore(ctx, face, person, constants.AutoAssignRepresentatives)
		if err != nil {
			log.Printf("auto-assign: score face %d against person %d: %v", face.ID, person.ID, err)
			continue
		}
		if score > bestScore {
			bestScore = score
			bestPerson = person
		}
	}

	return bestPerson, bestScore
}

// personScore is the maximum similarity between the face and up to maxReps
// of the person's faces, in store order.
func (e *Engine) personScore(ctx context.Context, face *database.Face, person *database.Person, maxReps int) (float64, error) {
	personFaces, err := e.faces.GetFacesByPerson(ctx, person.ID)
	if err != nil {
		return 0, err
	}
	if len(personFaces) > maxReps {
		personFaces = personFaces[:maxReps]
	}

	score := 0.0
	for j := range personFaces {
		similarity := database.CosineSimilarity(face.Embedding, personFaces[j].Embedding)
		if similarity > score {
			score = similarity
		}
	}
	return score, nil
}

// refreshFaceCount recomputes the person's face count from the face table
// and persists it.
func (e *Engine) refreshFaceCount(ctx context.Context, person *database.Person) error {
	count, err := e.faces.CountByPerson(ctx, person.ID)
	if err != nil {
		return fmt.Errorf("count faces for person %d: %w", person.ID, err)
	}
	person.FaceCount = count
	if err := e.people.SavePerson(ctx, person); err != nil {
		return fmt.Errorf("save person %d: %w", person.ID, err)
	}
	return nil
}
