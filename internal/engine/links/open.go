package links

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"qrlink/internal/platform/database"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverPebble = "pebble"
)

// OpenStore opens the backend named by driver at path. SQLite stores are migrated on open.
func OpenStore(ctx context.Context, driver, path string) (Store, error) {
	switch driver {
	case DriverFile, "":
		return NewFileStore(path), nil
	case DriverSQLite:
		db, err := database.Open(path, database.Options{})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		applied, err := database.Migrate(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		if len(applied) > 0 {
			log.Info().Strs("migrations", applied).Msg("Link store schema updated")
		}
		return NewSQLiteStore(db), nil
	case DriverPebble:
		return OpenPebbleStore(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
