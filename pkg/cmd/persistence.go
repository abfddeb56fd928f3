// Package cmd provides common initialization for the command-line entry
// points.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thomasdavis/generous/pkg/persistence"
	"github.com/thomasdavis/generous/pkg/persistence/file"
	"github.com/thomasdavis/generous/pkg/persistence/postgresql"
)

// NewPersistence selects a storage backend from the database URL scheme.
// "postgres://" and "postgresql://" connect to PostgreSQL; anything else is
// treated as a file path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize PostgreSQL persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgresql"
	default:
		return "file"
	}
}
