package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"qrlink/internal/engine/links"
	"qrlink/internal/pkg/logger"
	"qrlink/internal/platform/config"
	"qrlink/internal/platform/database"
)

// endpoint names a link store as driver:path, e.g. file:data/shortlinks.json.
type endpoint struct {
	Driver string
	Path   string
}

func parseEndpoint(s string) (endpoint, error) {
	driver, path, ok := strings.Cut(s, ":")
	if !ok || path == "" {
		return endpoint{}, fmt.Errorf("invalid store %q: want driver:path", s)
	}
	switch driver {
	case links.DriverFile, links.DriverSQLite, links.DriverPebble:
	default:
		return endpoint{}, fmt.Errorf("unknown driver %q", driver)
	}
	return endpoint{Driver: driver, Path: path}, nil
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to config file")
	from := flag.String("from", "", "Source store as driver:path (default: the configured store)")
	to := flag.String("to", "", "Destination store as driver:path")
	schema := flag.String("schema", "", "Only apply the SQLite schema to this database file")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.Logging)

	ctx := context.Background()

	if *schema != "" {
		applied, err := applySchema(ctx, *schema)
		if err != nil {
			log.Fatal().Err(err).Msg("Schema migration failed")
		}
		log.Info().Strs("applied", applied).Str("db", *schema).Msg("Migration completed successfully")
		return
	}

	src := endpoint{Driver: cfg.Store.Driver, Path: cfg.Store.Path}
	if *from != "" {
		if src, err = parseEndpoint(*from); err != nil {
			log.Fatal().Err(err).Msg("Invalid -from")
		}
	}
	if *to == "" {
		log.Fatal().Msg("-to flag required")
	}
	dst, err := parseEndpoint(*to)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -to")
	}
	if src == dst {
		log.Fatal().Msg("-from and -to name the same store")
	}

	read, written, err := copyLinks(ctx, src, dst, cfg.Store.CodeLength)
	if err != nil {
		log.Fatal().Err(err).Msg("Link migration failed")
	}
	log.Info().
		Str("from", src.Driver+":"+src.Path).
		Str("to", dst.Driver+":"+dst.Path).
		Int("read", read).
		Int("written", written).
		Msg("Migration completed successfully")
}

func applySchema(ctx context.Context, path string) ([]string, error) {
	db, err := database.Open(path, database.Options{})
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return database.Migrate(ctx, db)
}

// copyLinks copies every link from src into dst, keeping codes and timestamps.
// Codes already present in dst are left alone.
func copyLinks(ctx context.Context, src, dst endpoint, codeLength int) (read, written int, err error) {
	srcStore, err := links.OpenStore(ctx, src.Driver, src.Path)
	if err != nil {
		return 0, 0, fmt.Errorf("open source: %w", err)
	}
	source := links.NewService(srcStore, codeLength)
	defer source.Close()

	dstStore, err := links.OpenStore(ctx, dst.Driver, dst.Path)
	if err != nil {
		return 0, 0, fmt.Errorf("open destination: %w", err)
	}
	target := links.NewService(dstStore, codeLength)
	defer target.Close()

	all, err := source.List(ctx)
	if err != nil {
		return 0, 0, err
	}
	written, err = target.Import(ctx, all)
	return len(all), written, err
}
