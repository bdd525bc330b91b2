package cmd

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-tagger/internal/config"
	"github.com/kozaktomas/face-tagger/internal/database/postgres"
)

// openStores connects to PostgreSQL and returns the face and person
// repositories. The caller owns the pool and must close it.
func openStores() (*postgres.Pool, *postgres.FaceRepository, *postgres.PersonRepository, error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, nil, nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	return pool, postgres.NewFaceRepository(pool), postgres.NewPersonRepository(pool), nil
}
