package facematch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/database/mock"
	"github.com/kozaktomas/face-tagger/internal/facematch"
)

func addPersonWithFaces(faces *mock.MockFaceStore, people *mock.MockPersonStore, ownerID int64, name string, n int) database.Person {
	person := people.AddPerson(database.Person{OwnerID: ownerID, Name: name})
	pid := person.ID
	for i := 0; i < n; i++ {
		faces.AddFace(database.Face{OwnerID: ownerID, PersonID: &pid, Embedding: []float32{1, 0, 0}})
	}
	person.FaceCount = int64(n)
	return people.AddPerson(person)
}

func TestMergePeople(t *testing.T) {
	engine, faces, people := newTestEngine()
	p1 := addPersonWithFaces(faces, people, 1, "Alice", 3)
	p2 := addPersonWithFaces(faces, people, 1, "Alicia", 2)

	merged, err := engine.MergePeople(context.Background(), p1.ID, p2.ID, "Alice")
	if err != nil {
		t.Fatalf("MergePeople: %v", err)
	}
	if merged.ID != p1.ID {
		t.Errorf("merged id = %d, want %d", merged.ID, p1.ID)
	}
	if merged.Name != "Alice" {
		t.Errorf("merged name = %q, want %q", merged.Name, "Alice")
	}
	if merged.FaceCount != 5 {
		t.Errorf("merged face count = %d, want 5", merged.FaceCount)
	}

	// Every face of person2 now points at person1.
	p2Faces, _ := faces.GetFacesByPerson(context.Background(), p2.ID)
	if len(p2Faces) != 0 {
		t.Errorf("person %d still has %d faces after merge", p2.ID, len(p2Faces))
	}
	p1Faces, _ := faces.GetFacesByPerson(context.Background(), p1.ID)
	if len(p1Faces) != 5 {
		t.Errorf("person %d has %d faces, want 5", p1.ID, len(p1Faces))
	}

	// Person2 is gone.
	gone, _ := people.GetPerson(context.Background(), p2.ID)
	if gone != nil {
		t.Errorf("person %d still exists after merge", p2.ID)
	}
}

func TestMergePeople_EmptyNameKeepsTargetName(t *testing.T) {
	engine, faces, people := newTestEngine()
	p1 := addPersonWithFaces(faces, people, 1, "Alice", 1)
	p2 := addPersonWithFaces(faces, people, 1, "Alicia", 1)

	merged, err := engine.MergePeople(context.Background(), p1.ID, p2.ID, "")
	if err != nil {
		t.Fatalf("MergePeople: %v", err)
	}
	if merged.Name != "Alice" {
		t.Errorf("merged name = %q, want target's original %q", merged.Name, "Alice")
	}
}

func TestMergePeople_OwnerMismatch(t *testing.T) {
	engine, faces, people := newTestEngine()
	p1 := addPersonWithFaces(faces, people, 1, "Alice", 1)
	p2 := addPersonWithFaces(faces, people, 2, "Alicia", 1)

	if _, err := engine.MergePeople(context.Background(), p1.ID, p2.ID, ""); !errors.Is(err, facematch.ErrOwnerMismatch) {
		t.Fatalf("got %v, want ErrOwnerMismatch", err)
	}

	// Nothing changed.
	survivor, _ := people.GetPerson(context.Background(), p2.ID)
	if survivor == nil {
		t.Error("person deleted despite rejected merge")
	}
}

func TestMergePeople_NotFound(t *testing.T) {
	engine, faces, people := newTestEngine()
	p1 := addPersonWithFaces(faces, people, 1, "Alice", 1)

	if _, err := engine.MergePeople(context.Background(), 999, p1.ID, ""); !errors.Is(err, facematch.ErrPersonNotFound) {
		t.Errorf("missing target: got %v, want ErrPersonNotFound", err)
	}
	if _, err := engine.MergePeople(context.Background(), p1.ID, 999, ""); !errors.Is(err, facematch.ErrPersonNotFound) {
		t.Errorf("missing source: got %v, want ErrPersonNotFound", err)
	}
}

func TestMergePeople_StoreError(t *testing.T) {
	engine, faces, people := newTestEngine()
	p1 := addPersonWithFaces(faces, people, 1, "Alice", 1)
	p2 := addPersonWithFaces(faces, people, 1, "Alicia", 1)

	people.MergePeopleError = errors.New("deadlock")

	if _, err := engine.MergePeople(context.Background(), p1.ID, p2.ID, ""); err == nil {
		t.Fatal("expected error when the store merge fails")
	}
}
