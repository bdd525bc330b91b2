package facematch_test

import (
	"context"
	"testing"

	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/database/mock"
	"github.com/kozaktomas/face-tagger/internal/facematch"
)

func newTestEngine() (*facematch.Engine, *mock.MockFaceStore, *mock.MockPersonStore) {
	faces := mock.NewMockFaceStore()
	people := mock.NewMockPersonStore(faces)
	return facematch.NewEngine(faces, people), faces, people
}

func addUnassigned(faces *mock.MockFaceStore, ownerID int64, embedding []float32) database.Face {
	return faces.AddFace(database.Face{
		OwnerID:   ownerID,
		Embedding: embedding,
	})
}

func TestClusterUnassigned_IdenticalEmbeddingsGroup(t *testing.T) {
	engine, faces, _ := newTestEngine()
	f1 := addUnassigned(faces, 1, []float32{1, 0, 0})
	f2 := addUnassigned(faces, 1, []float32{1, 0, 0})

	clusters, err := engine.ClusterUnassigned(context.Background(), 1)
	if err != nil {
		t.Fatalf("ClusterUnassigned: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	if len(clusters[0].Faces) != 2 {
		t.Fatalf("cluster has %d faces, want 2", len(clusters[0].Faces))
	}
	if clusters[0].Seed.ID != f1.ID {
		t.Errorf("seed is face %d, want %d (lowest id opens the group)", clusters[0].Seed.ID, f1.ID)
	}
	if clusters[0].Faces[0].ID != f1.ID || clusters[0].Faces[1].ID != f2.ID {
		t.Errorf("cluster members %d, %d, want %d, %d", clusters[0].Faces[0].ID, clusters[0].Faces[1].ID, f1.ID, f2.ID)
	}
}

func TestClusterUnassigned_OrthogonalEmbeddingsNeverGroup(t *testing.T) {
	engine, faces, _ := newTestEngine()
	addUnassigned(faces, 1, []float32{1, 0, 0})
	addUnassigned(faces, 1, []float32{0, 1, 0})
	addUnassigned(faces, 1, []float32{0, 0, 1})

	clusters, err := engine.ClusterUnassigned(context.Background(), 1)
	if err != nil {
		t.Fatalf("ClusterUnassigned: %v", err)
	}
	if len(clusters) != 0 {
		t.Fatalf("got %d clusters, want 0 (all singletons dropped)", len(clusters))
	}
}

func TestClusterUnassigned_NoClusterSmallerThanTwo(t *testing.T) {
	engine, faces, _ := newTestEngine()
	// Two near-identical pairs plus one loner.
	addUnassigned(faces, 1, []float32{1, 0, 0})
	addUnassigned(faces, 1, []float32{0.99, 0.01, 0})
	addUnassigned(faces, 1, []float32{0, 1, 0})
	addUnassigned(faces, 1, []float32{0, 0.99, 0.01})
	addUnassigned(faces, 1, []float32{0, 0, 1})

	clusters, err := engine.ClusterUnassigned(context.Background(), 1)
	if err != nil {
		t.Fatalf("ClusterUnassigned: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}
	for _, c := range clusters {
		if len(c.Faces) < 2 {
			t.Errorf("cluster seeded by face %d has %d faces, want at least 2", c.Seed.ID, len(c.Faces))
		}
	}
}

func TestClusterUnassigned_MembershipAgainstSeedOnly(t *testing.T) {
	engine, faces, _ := newTestEngine()
	// A chain: a~b and b~c, but a and c fall below the threshold against
	// each other. The first face seeds the group and claims only b; c
	// stays out even though it matches a member.
	a := addUnassigned(faces, 1, []float32{1, 0, 0})
	addUnassigned(faces, 1, []float32{0.76, 0.65, 0}) // sim(a,b) ~ 0.76
	c := addUnassigned(faces, 1, []float32{0.2, 0.98, 0}) // sim(a,c) ~ 0.2, sim(b,c) ~ 0.79

	clusters, err := engine.ClusterUnassigned(context.Background(), 1)
	if err != nil {
		t.Fatalf("ClusterUnassigned: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	if clusters[0].Seed.ID != a.ID {
		t.Fatalf("seed is face %d, want %d", clusters[0].Seed.ID, a.ID)
	}
	if len(clusters[0].Faces) != 2 {
		t.Fatalf("cluster has %d faces, want 2 (chained face must not join)", len(clusters[0].Faces))
	}
	for _, f := range clusters[0].Faces {
		if f.ID == c.ID {
			t.Errorf("face %d joined via a non-seed member", c.ID)
		}
	}
}

func TestClusterUnassigned_StoreOrderMatters(t *testing.T) {
	// Grouping depends on which face seeds first, so the same embeddings
	// in a different store order can produce different groups. Documented
	// here so nobody mistakes order-independence for a guarantee.
	a := []float32{1, 0, 0}
	b := []float32{0.76, 0.65, 0} // sim(a,b) ~ 0.76, sim(b,c) ~ 0.79
	c := []float32{0.2, 0.98, 0}  // sim(a,c) ~ 0.2

	clusterSizes := func(order [][]float32) []int {
		engine, faces, _ := newTestEngine()
		for _, embedding := range order {
			addUnassigned(faces, 1, embedding)
		}
		clusters, err := engine.ClusterUnassigned(context.Background(), 1)
		if err != nil {
			t.Fatalf("ClusterUnassigned: %v", err)
		}
		sizes := make([]int, 0, len(clusters))
		for _, cluster := range clusters {
			sizes = append(sizes, len(cluster.Faces))
		}
		return sizes
	}

	// Seeded by a: only b joins, c stays a singleton and is dropped.
	first := clusterSizes([][]float32{a, b, c})
	if len(first) != 1 || first[0] != 2 {
		t.Fatalf("a-first order produced cluster sizes %v, want [2]", first)
	}

	// Seeded by b: both a and c join.
	second := clusterSizes([][]float32{b, a, c})
	if len(second) != 1 || second[0] != 3 {
		t.Fatalf("b-first order produced cluster sizes %v, want [3]", second)
	}
}

func TestClusterUnassigned_IgnoresAssignedAndForeignFaces(t *testing.T) {
	engine, faces, people := newTestEngine()
	person := people.AddPerson(database.Person{OwnerID: 1, Name: "Alice"})

	pid := person.ID
	faces.AddFace(database.Face{OwnerID: 1, PersonID: &pid, Embedding: []float32{1, 0, 0}})
	addUnassigned(faces, 2, []float32{1, 0, 0}) // other owner
	addUnassigned(faces, 1, []float32{1, 0, 0})

	clusters, err := engine.ClusterUnassigned(context.Background(), 1)
	if err != nil {
		t.Fatalf("ClusterUnassigned: %v", err)
	}
	if len(clusters) != 0 {
		t.Fatalf("got %d clusters, want 0 (assigned and foreign faces excluded)", len(clusters))
	}
}

func TestClusterUnassigned_EmptyOwner(t *testing.T) {
	engine, _, _ := newTestEngine()
	clusters, err := engine.ClusterUnassigned(context.Background(), 42)
	if err != nil {
		t.Fatalf("ClusterUnassigned: %v", err)
	}
	if clusters == nil || len(clusters) != 0 {
		t.Fatalf("got %v, want empty non-nil slice", clusters)
	}
}

func TestClusterUnassigned_StoreError(t *testing.T) {
	engine, faces, _ := newTestEngine()
	faces.GetUnassignedByOwnerError = context.DeadlineExceeded

	if _, err := engine.ClusterUnassigned(context.Background(), 1); err == nil {
		t.Fatal("expected error when the store fails")
	}
}
