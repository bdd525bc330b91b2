package facematch

import (
	"context"
	"fmt"
	"log"

	"github.com/kozaktomas/face-tagger/internal/constants"
	"github.com/kozaktomas/face-tagger/internal/database"
)

// Cluster is a group of unassigned faces judged similar enough to belong to
// the same person. Membership is decided only against the seed face, never
// against other members (star clustering, not single-linkage), so the seed
// is kept explicit.
type Cluster struct {
	Seed  database.Face
	Faces []database.Face // seed first, then matches in store order
}

// ClusterUnassigned partitions the owner's unassigned faces into candidate
// groups without consulting any existing person. Single pass in store order:
// each not-yet-placed face opens a group and claims every later unplaced face
// whose similarity to it reaches the threshold. Groups that stay singletons
// are dropped; their faces remain unassigned and absent from the result.
//
// Read-only. Deterministic for a given store order; a different order can
// seed different groups from the same embeddings.
func (e *Engine) ClusterUnassigned(ctx context.Context, ownerID int64) ([]Cluster, error) {
	unassigned, err := e.faces.GetUnassignedByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load unassigned faces: %w", err)
	}

	if len(unassigned) == 0 {
		return []Cluster{}, nil
	}

	log.Printf("clustering %d unassigned faces for owner %d", len(unassigned), ownerID)

	clusters := make([]Cluster, 0)
	placed := make(map[int64]bool, len(unassigned))

	for i := range unassigned {
		seed := &unassigned[i]
		if placed[seed.ID] {
			continue
		}

		cluster := Cluster{
			Seed:  *seed,
			Faces: []database.Face{*seed},
		}
		placed[seed.ID] = true

		for j := range unassigned {
			other := &unassigned[j]
			if placed[other.ID] {
				continue
			}
			if database.CosineSimilarity(seed.Embedding, other.Embedding) >= constants.SimilarityThreshold {
				cluster.Faces = append(cluster.Faces, *other)
				placed[other.ID] = true
			}
		}

		if len(cluster.Faces) >= 2 {
			clusters = append(clusters, cluster)
		}
	}

	log.Printf("created %d face clusters", len(clusters))
	return clusters, nil
}
