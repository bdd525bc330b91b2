package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/pgvector/pgvector-go"
)

const faceColumns = `id, media_id, owner_id, person_id, x, y, width, height,
	       confidence, embedding, verified, detected_at`

// FaceRepository provides PostgreSQL-backed face storage with an optional
// in-memory HNSW index for similarity search.
type FaceRepository struct {
	pool        *Pool
	hnswIndex   *database.HNSWIndex
	hnswEnabled bool
	hnswMu      sync.RWMutex
}

// NewFaceRepository creates a new PostgreSQL face repository.
func NewFaceRepository(pool *Pool) *FaceRepository {
	return &FaceRepository{pool: pool}
}

// GetFace retrieves a face by id. Returns (nil, nil) when the id does not
// resolve.
func (r *FaceRepository) GetFace(ctx context.Context, id int64) (*database.Face, error) {
	query := fmt.Sprintf("SELECT %s FROM faces WHERE id = $1", faceColumns)

	face, err := scanFaceRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query face %d: %w", id, err)
	}
	return &face, nil
}

// GetFacesByMedia retrieves all faces detected in a media item, ordered by id.
func (r *FaceRepository) GetFacesByMedia(ctx context.Context, mediaID int64) ([]database.Face, error) {
	query := fmt.Sprintf("SELECT %s FROM faces WHERE media_id = $1 ORDER BY id", faceColumns)

	rows, err := r.pool.Query(ctx, query, mediaID)
	if err != nil {
		return nil, fmt.Errorf("query faces by media: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// GetFacesByPerson retrieves all faces assigned to a person, ordered by id.
func (r *FaceRepository) GetFacesByPerson(ctx context.Context, personID int64) ([]database.Face, error) {
	query := fmt.Sprintf("SELECT %s FROM faces WHERE person_id = $1 ORDER BY id", faceColumns)

	rows, err := r.pool.Query(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("query faces by person: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// GetUnassignedByOwner retrieves the owner's unassigned faces, ordered by id.
func (r *FaceRepository) GetUnassignedByOwner(ctx context.Context, ownerID int64) ([]database.Face, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM faces WHERE owner_id = $1 AND person_id IS NULL ORDER BY id", faceColumns,
	)

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query unassigned faces: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// CountByPerson returns the number of faces assigned to a person.
func (r *FaceRepository) CountByPerson(ctx context.Context, personID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM faces WHERE person_id = $1", personID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faces by person: %w", err)
	}
	return count, nil
}

// SaveFace persists a face: insert when the id is zero, update otherwise.
// Keeps the HNSW index in sync when enabled.
func (r *FaceRepository) SaveFace(ctx context.Context, face *database.Face) error {
	vec := embeddingValue(face.Embedding)
	personID := personIDValue(face.PersonID)

	if face.ID == 0 {
		err := r.pool.QueryRow(ctx, `
			INSERT INTO faces (media_id, owner_id, person_id, x, y, width, height,
			                   confidence, embedding, verified, detected_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
			RETURNING id, detected_at
		`,
			face.MediaID, face.OwnerID, personID,
			face.X, face.Y, face.Width, face.Height,
			face.Confidence, vec, face.Verified,
		).Scan(&face.ID, &face.DetectedAt)
		if err != nil {
			return fmt.Errorf("insert face: %w", err)
		}
	} else {
		_, err := r.pool.Exec(ctx, `
			UPDATE faces SET
				media_id = $1, owner_id = $2, person_id = $3,
				x = $4, y = $5, width = $6, height = $7,
				confidence = $8, embedding = $9, verified = $10
			WHERE id = $11
		`,
			face.MediaID, face.OwnerID, personID,
			face.X, face.Y, face.Width, face.Height,
			face.Confidence, vec, face.Verified, face.ID,
		)
		if err != nil {
			return fmt.Errorf("update face %d: %w", face.ID, err)
		}
	}

	r.updateHNSWFaces(r.isHNSWEnabled(), []int64{face.ID}, []database.Face{*face})
	return nil
}

// SaveFaces stores the detected faces of a media item, replacing any
// existing faces for that media item. This is the detector ingestion path,
// so replaced faces lose their assignments too. Fails with
// ErrMediaOwnerMismatch when the media item holds another owner's faces.
func (r *FaceRepository) SaveFaces(
	ctx context.Context, mediaID, ownerID int64, faces []database.Face,
) ([]database.Face, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var foreign bool
	err = tx.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM faces WHERE media_id = $1 AND owner_id <> $2)",
		mediaID, ownerID,
	).Scan(&foreign)
	if err != nil {
		return nil, fmt.Errorf("check media ownership: %w", err)
	}
	if foreign {
		return nil, database.ErrMediaOwnerMismatch
	}

	hnswEnabled := r.isHNSWEnabled()

	var oldFaceIDs []int64
	if hnswEnabled {
		oldFaceIDs, err = scanMediaFaceIDs(ctx, tx, mediaID)
		if err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM faces WHERE media_id = $1 AND owner_id = $2", mediaID, ownerID,
	); err != nil {
		return nil, fmt.Errorf("delete existing faces: %w", err)
	}

	saved := make([]database.Face, 0, len(faces))
	for i := range faces {
		face := faces[i]
		face.MediaID = mediaID
		face.OwnerID = ownerID
		face.PersonID = nil
		face.Verified = false

		err := tx.QueryRowContext(ctx, `
			INSERT INTO faces (media_id, owner_id, x, y, width, height,
			                   confidence, embedding, verified, detected_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, NOW())
			RETURNING id, detected_at
		`,
			mediaID, ownerID,
			face.X, face.Y, face.Width, face.Height,
			face.Confidence, embeddingValue(face.Embedding),
		).Scan(&face.ID, &face.DetectedAt)
		if err != nil {
			return nil, fmt.Errorf("insert face %d of media %d: %w", i, mediaID, err)
		}
		saved = append(saved, face)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	r.updateHNSWFaces(hnswEnabled, oldFaceIDs, saved)
	return saved, nil
}

// FindSimilar finds the owner's faces nearest to the embedding by cosine
// distance. Uses the in-memory HNSW index when enabled, otherwise pgvector.
func (r *FaceRepository) FindSimilar(
	ctx context.Context, ownerID int64, embedding []float32, limit int,
) ([]database.Face, []float64, error) {
	r.hnswMu.RLock()
	hnswEnabled := r.hnswEnabled && r.hnswIndex != nil
	r.hnswMu.RUnlock()

	if hnswEnabled {
		return r.findSimilarHNSW(ownerID, embedding, limit)
	}
	return r.findSimilarPostgres(ctx, ownerID, embedding, limit)
}

// findSimilarHNSW searches the in-memory index. The index spans all owners,
// so it over-fetches and filters; a busy owner may get fewer than limit
// results in pathological cases, which the exact pgvector path does not.
func (r *FaceRepository) findSimilarHNSW(
	ownerID int64, embedding []float32, limit int,
) ([]database.Face, []float64, error) {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()

	searchK := max(limit*database.HNSWSearchMultiplier, 100)

	ids, distances, err := r.hnswIndex.Search(embedding, searchK)
	if err != nil {
		return nil, nil, fmt.Errorf("HNSW search: %w", err)
	}

	faces := make([]database.Face, 0, limit)
	distancesOut := make([]float64, 0, limit)
	for i, id := range ids {
		face := r.hnswIndex.GetFace(id)
		if face == nil || face.OwnerID != ownerID {
			continue
		}
		faces = append(faces, *face)
		distancesOut = append(distancesOut, distances[i])
		if len(faces) >= limit {
			break
		}
	}
	return faces, distancesOut, nil
}

// findSimilarPostgres runs an exact pgvector similarity scan.
func (r *FaceRepository) findSimilarPostgres(
	ctx context.Context, ownerID int64, embedding []float32, limit int,
) ([]database.Face, []float64, error) {
	query := fmt.Sprintf(`
		SELECT %s, embedding <=> $2::vector AS distance
		FROM faces
		WHERE owner_id = $1 AND embedding IS NOT NULL
		ORDER BY distance
		LIMIT $3
	`, faceColumns)

	rows, err := r.pool.Query(ctx, query, ownerID, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query similar faces: %w", err)
	}
	defer rows.Close()

	var faces []database.Face
	var distances []float64
	for rows.Next() {
		var dist float64
		face, err := scanFaceRow(rows, &dist)
		if err != nil {
			return nil, nil, err
		}
		faces = append(faces, face)
		distances = append(distances, dist)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate similar faces: %w", err)
	}
	return faces, distances, nil
}

// EnableHNSW builds the in-memory HNSW index from all stored faces.
// Should be called once at startup.
func (r *FaceRepository) EnableHNSW(ctx context.Context) error {
	query := fmt.Sprintf("SELECT %s FROM faces WHERE embedding IS NOT NULL ORDER BY id", faceColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("query faces for index: %w", err)
	}
	defer rows.Close()

	faces, err := scanFaces(rows)
	if err != nil {
		return err
	}

	index := database.NewHNSWIndex()
	if err := index.BuildFromFaces(faces); err != nil {
		return fmt.Errorf("build HNSW index: %w", err)
	}

	r.hnswMu.Lock()
	r.hnswIndex = index
	r.hnswEnabled = true
	r.hnswMu.Unlock()
	return nil
}

// HNSWCount reports how many faces the in-memory index holds.
func (r *FaceRepository) HNSWCount() int {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	if r.hnswIndex == nil {
		return 0
	}
	return r.hnswIndex.Count()
}

// DisableHNSW disables the in-memory index, falling back to pgvector queries.
func (r *FaceRepository) DisableHNSW() {
	r.hnswMu.Lock()
	defer r.hnswMu.Unlock()
	r.hnswEnabled = false
	r.hnswIndex = nil
}

// isHNSWEnabled checks whether the HNSW index is active.
func (r *FaceRepository) isHNSWEnabled() bool {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	return r.hnswEnabled && r.hnswIndex != nil
}

// updateHNSWFaces removes old face ids and adds new faces to the HNSW index.
func (r *FaceRepository) updateHNSWFaces(hnswEnabled bool, oldIDs []int64, newFaces []database.Face) {
	if !hnswEnabled {
		return
	}
	r.hnswMu.Lock()
	for _, id := range oldIDs {
		r.hnswIndex.Delete(id)
	}
	for i := range newFaces {
		r.hnswIndex.Add(&newFaces[i])
	}
	r.hnswMu.Unlock()
}

// embeddingValue converts an embedding to its SQL parameter, NULL when empty.
func embeddingValue(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

// personIDValue converts an optional person id to its SQL parameter.
func personIDValue(personID *int64) sql.NullInt64 {
	if personID == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *personID, Valid: true}
}

// nullVector scans a nullable pgvector column.
type nullVector struct {
	vec   pgvector.Vector
	valid bool
}

func (n *nullVector) Scan(src any) error {
	if src == nil {
		n.valid = false
		return nil
	}
	n.valid = true
	return n.vec.Scan(src)
}

// scanFaceRow scans a single row into a Face, with optional extra scan
// destinations appended after the standard face columns (e.g., a distance).
func scanFaceRow(scanner interface{ Scan(...any) error }, extraDest ...any) (database.Face, error) {
	var face database.Face
	var personID sql.NullInt64
	var vec nullVector

	dest := make([]any, 0, 12+len(extraDest))
	dest = append(dest,
		&face.ID,
		&face.MediaID,
		&face.OwnerID,
		&personID,
		&face.X,
		&face.Y,
		&face.Width,
		&face.Height,
		&face.Confidence,
		&vec,
		&face.Verified,
		&face.DetectedAt,
	)
	dest = append(dest, extraDest...)

	if err := scanner.Scan(dest...); err != nil {
		return face, err
	}

	if personID.Valid {
		pid := personID.Int64
		face.PersonID = &pid
	}
	if vec.valid {
		face.Embedding = vec.vec.Slice()
	}
	return face, nil
}

func scanFaces(rows *sql.Rows) ([]database.Face, error) {
	var faces []database.Face
	for rows.Next() {
		face, err := scanFaceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		faces = append(faces, face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

// scanMediaFaceIDs reads the face ids of a media item inside a transaction.
func scanMediaFaceIDs(ctx context.Context, tx *sql.Tx, mediaID int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM faces WHERE media_id = $1", mediaID)
	if err != nil {
		return nil, fmt.Errorf("query face ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan face id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face ids: %w", err)
	}
	return ids, nil
}

// Verify interface compliance.
var _ database.FaceStore = (*FaceRepository)(nil)
