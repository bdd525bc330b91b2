package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/facematch"
)

const personColumns = `id, owner_id, name, description, thumbnail_path,
	       face_count, created_at, updated_at`

// PersonRepository provides PostgreSQL-backed identity storage.
type PersonRepository struct {
	pool *Pool
}

// NewPersonRepository creates a new PostgreSQL person repository.
func NewPersonRepository(pool *Pool) *PersonRepository {
	return &PersonRepository{pool: pool}
}

// GetPerson retrieves a person by id. Returns (nil, nil) when the id does
// not resolve.
func (r *PersonRepository) GetPerson(ctx context.Context, id int64) (*database.Person, error) {
	query := fmt.Sprintf("SELECT %s FROM people WHERE id = $1", personColumns)

	person, err := scanPersonRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query person %d: %w", id, err)
	}
	return &person, nil
}

// GetPeopleByOwner retrieves the owner's people ordered by face count
// descending, ties by id. Auto-assignment and suggestions depend on this
// ordering.
func (r *PersonRepository) GetPeopleByOwner(ctx context.Context, ownerID int64) ([]database.Person, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM people WHERE owner_id = $1 ORDER BY face_count DESC, id", personColumns,
	)

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query people by owner: %w", err)
	}
	defer rows.Close()

	return scanPeople(rows)
}

// SearchPeople retrieves the owner's people whose normalized name contains
// the normalized query. Normalization matches facematch.NormalizePersonName
// (lowercase, no diacritics, dashes to spaces), done with unaccent on the
// database side.
func (r *PersonRepository) SearchPeople(ctx context.Context, ownerID int64, query string) ([]database.Person, error) {
	normalized := facematch.NormalizePersonName(query)

	stmt := fmt.Sprintf(`
		SELECT %s FROM people
		WHERE owner_id = $1
		AND LOWER(REPLACE(unaccent(name), '-', ' ')) LIKE '%%' || $2 || '%%'
		ORDER BY face_count DESC, id
	`, personColumns)

	rows, err := r.pool.Query(ctx, stmt, ownerID, normalized)
	if err != nil {
		return nil, fmt.Errorf("search people: %w", err)
	}
	defer rows.Close()

	return scanPeople(rows)
}

// SavePerson persists a person: insert when the id is zero, update otherwise.
func (r *PersonRepository) SavePerson(ctx context.Context, person *database.Person) error {
	if person.ID == 0 {
		err := r.pool.QueryRow(ctx, `
			INSERT INTO people (owner_id, name, description, thumbnail_path, face_count)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`,
			person.OwnerID, person.Name, person.Description,
			person.ThumbnailPath, person.FaceCount,
		).Scan(&person.ID, &person.CreatedAt, &person.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert person: %w", err)
		}
		return nil
	}

	err := r.pool.QueryRow(ctx, `
		UPDATE people SET
			owner_id = $1, name = $2, description = $3,
			thumbnail_path = $4, face_count = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`,
		person.OwnerID, person.Name, person.Description,
		person.ThumbnailPath, person.FaceCount, person.ID,
	).Scan(&person.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update person %d: %w", person.ID, err)
	}
	return nil
}

// DeletePerson removes a person record. Assigned faces fall back to
// unassigned via the foreign key's ON DELETE SET NULL.
func (r *PersonRepository) DeletePerson(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM people WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete person %d: %w", id, err)
	}
	return nil
}

// MergePeople re-points every face of source to target, renames target when
// newName is non-empty, recomputes its face count from the face table and
// deletes source. Runs in one transaction so no partial state is observable.
func (r *PersonRepository) MergePeople(
	ctx context.Context, target, source *database.Person, newName string,
) (*database.Person, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE faces SET person_id = $1 WHERE person_id = $2", target.ID, source.ID,
	); err != nil {
		return nil, fmt.Errorf("repoint faces of person %d: %w", source.ID, err)
	}

	name := target.Name
	if newName != "" {
		name = newName
	}

	query := fmt.Sprintf(`
		UPDATE people SET
			name = $1,
			face_count = (SELECT COUNT(*) FROM faces WHERE person_id = $2),
			updated_at = NOW()
		WHERE id = $2
		RETURNING %s
	`, personColumns)

	merged, err := scanPersonRow(tx.QueryRowContext(ctx, query, name, target.ID))
	if err != nil {
		return nil, fmt.Errorf("update merged person %d: %w", target.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM people WHERE id = $1", source.ID); err != nil {
		return nil, fmt.Errorf("delete person %d: %w", source.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &merged, nil
}

// scanPersonRow scans a single row into a Person.
func scanPersonRow(scanner interface{ Scan(...any) error }) (database.Person, error) {
	var person database.Person
	err := scanner.Scan(
		&person.ID,
		&person.OwnerID,
		&person.Name,
		&person.Description,
		&person.ThumbnailPath,
		&person.FaceCount,
		&person.CreatedAt,
		&person.UpdatedAt,
	)
	return person, err
}

func scanPeople(rows *sql.Rows) ([]database.Person, error) {
	var people []database.Person
	for rows.Next() {
		person, err := scanPersonRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, person)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}
	return people, nil
}

// Verify interface compliance.
var _ database.PersonStore = (*PersonRepository)(nil)
