package facematch

import (
	"context"
	"fmt"
	"sort"

	"github.com/kozaktomas/face-tagger/internal/constants"
	"github.com/kozaktomas/face-tagger/internal/database"
)

// SuggestPeople ranks the owner's people as candidate identities for a face.
// Each person is scored by the maximum similarity between the face and up to
// SuggestionRepresentatives of their faces; people below the relaxed cutoff
// (threshold x factor) are excluded. Sorted by descending score with a
// stable sort, so equal scores keep the face_count ordering, and truncated
// to MaxSuggestions.
func (e *Engine) SuggestPeople(ctx context.Context, faceID int64) ([]database.PersonSuggestion, error) {
	face, err := e.faces.GetFace(ctx, faceID)
	if err != nil {
		return nil, fmt.Errorf("load face %d: %w", faceID, err)
	}
	if face == nil {
		return nil, fmt.Errorf("face %d: %w", faceID, ErrFaceNotFound)
	}

	people, err := e.people.GetPeopleByOwner(ctx, face.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("load people: %w", err)
	}

	cutoff := constants.SimilarityThreshold * constants.SuggestionThresholdFactor

	suggestions := make([]database.PersonSuggestion, 0)
	for i := range people {
		person := &people[i]
		score, err := e.personScore(ctx, face, person, constants.SuggestionRepresentatives)
		if err != nil {
			return nil, fmt.Errorf("score person %d: %w", person.ID, err)
		}
		if score >= cutoff {
			suggestions = append(suggestions, database.PersonSuggestion{
				PersonID:   person.ID,
				PersonName: person.Name,
				Similarity: score,
				FaceCount:  person.FaceCount,
			})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Similarity > suggestions[j].Similarity
	})

	if len(suggestions) > constants.MaxSuggestions {
		suggestions = suggestions[:constants.MaxSuggestions]
	}
	return suggestions, nil
}
