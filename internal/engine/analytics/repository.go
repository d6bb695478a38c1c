package analytics

import (
	"qrlink/internal/pkg/errors"
	"qrlink/internal/pkg/fileutil"
)

// DailyStat holds one day's counters. Unique holds salted IP hashes.
type DailyStat struct {
	Visits    int      `json:"visits"`
	Unique    []string `json:"unique"`
	Downloads int      `json:"downloads"`
	Uploads   int      `json:"uploads"`
}

// Repository persists the per-day counters as one JSON snapshot keyed by YYYY-MM-DD.
type Repository struct {
	path string
}

func NewRepository(path string) *Repository {
	return &Repository{path: path}
}

func (r *Repository) Load() (map[string]*DailyStat, error) {
	db := map[string]*DailyStat{}
	if _, err := fileutil.ReadJSON(r.path, &db); err != nil {
		return nil, errors.E(errors.StoreIOFailure, "analytics.Load", err)
	}
	for day, stat := range db {
		if stat == nil {
			delete(db, day)
		}
	}
	return db, nil
}

func (r *Repository) Save(db map[string]*DailyStat) error {
	if err := fileutil.WriteJSONAtomic(r.path, db); err != nil {
		return errors.E(errors.StoreIOFailure, "analytics.Save", err)
	}
	return nil
}
