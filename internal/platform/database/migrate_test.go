package database

import (
	"context"
	"testing"
)

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := Open(":memory:", Options{})
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	applied, err := Migrate(ctx, db)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("expected at least one migration to be applied")
	}

	again, err := Migrate(ctx, db)
	if err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected no migrations on second run, got %v", again)
	}

	if _, err := db.Exec("INSERT INTO short_links (code, url, created_at) VALUES ('abc123', 'https://a.test', 1)"); err != nil {
		t.Errorf("short_links table not usable: %v", err)
	}
}
