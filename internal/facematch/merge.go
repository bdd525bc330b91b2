package facematch

import (
	"context"
	"fmt"
	"log"

	"github.com/kozaktomas/face-tagger/internal/database"
)

// MergePeople merges person2 into person1: every face of person2 is
// re-pointed to person1, person1 is renamed when newName is non-empty, its
// face count recomputed, and person2 deleted. Both people must belong to the
// same owner. The store performs the merge as one atomic unit, so no partial
// state is observable. Returns the updated person1.
func (e *Engine) MergePeople(ctx context.Context, personID1, personID2 int64, newName string) (*database.Person, error) {
	person1, err := e.people.GetPerson(ctx, personID1)
	if err != nil {
		return nil, fmt.Errorf("load person %d: %w", personID1, err)
	}
	if person1 == nil {
		return nil, fmt.Errorf("person %d: %w", personID1, ErrPersonNotFound)
	}

	person2, err := e.people.GetPerson(ctx, personID2)
	if err != nil {
		return nil, fmt.Errorf("load person %d: %w", personID2, err)
	}
	if person2 == nil {
		return nil, fmt.Errorf("person %d: %w", personID2, ErrPersonNotFound)
	}

	if person1.OwnerID != person2.OwnerID {
		return nil, fmt.Errorf("merge people %d and %d: %w", personID1, personID2, ErrOwnerMismatch)
	}

	merged, err := e.people.MergePeople(ctx, person1, person2, newName)
	if err != nil {
		return nil, fmt.Errorf("merge person %d into %d: %w", personID2, personID1, err)
	}

	log.Printf("merged person %d into person %d", personID2, personID1)
	return merged, nil
}
