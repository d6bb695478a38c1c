package links

import (
	"context"
	"database/sql"
	stderrors "errors"

	"qrlink/internal/pkg/errors"
)

// SQLiteStore keeps links in the short_links table. The url column is indexed but
// not unique; create-or-get dedupes through FindByURL.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) View(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, "links.SQLiteStore.View", fn, false)
}

func (s *SQLiteStore) Update(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, "links.SQLiteStore.Update", fn, true)
}

func (s *SQLiteStore) run(ctx context.Context, op string, fn func(Tx) error, commit bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.E(errors.StoreIOFailure, op, err)
	}

	if err := fn(&sqlTx{ctx: ctx, tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if !commit {
		if err := tx.Rollback(); err != nil {
			return errors.E(errors.StoreIOFailure, op, err)
		}
		return nil
	}
	if err := tx.Commit(); err != nil {
		return errors.E(errors.StoreIOFailure, op, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqlTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *sqlTx) Get(code string) (*Link, error) {
	query := "SELECT code, url, created_at FROM short_links WHERE code = ?"
	return t.one("links.SQLiteStore.Get", query, code)
}

func (t *sqlTx) FindByURL(url string) (*Link, error) {
	query := `
		SELECT code, url, created_at FROM short_links
		WHERE url = ?
		ORDER BY created_at ASC, code ASC
		LIMIT 1
	`
	return t.one("links.SQLiteStore.FindByURL", query, url)
}

func (t *sqlTx) Insert(link *Link) error {
	query := "INSERT INTO short_links (code, url, created_at) VALUES (?, ?, ?)"
	if _, err := t.tx.ExecContext(t.ctx, query, link.Code, link.URL, link.CreatedAt); err != nil {
		return errors.E(errors.StoreIOFailure, "links.SQLiteStore.Insert", err)
	}
	return nil
}

func (t *sqlTx) List() ([]*Link, error) {
	query := `
		SELECT code, url, created_at FROM short_links
		ORDER BY created_at DESC, code ASC
	`
	rows, err := t.tx.QueryContext(t.ctx, query)
	if err != nil {
		return nil, errors.E(errors.StoreIOFailure, "links.SQLiteStore.List", err)
	}
	defer rows.Close()

	var links []*Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, errors.E(errors.StoreIOFailure, "links.SQLiteStore.List", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.E(errors.StoreIOFailure, "links.SQLiteStore.List", err)
	}
	return links, nil
}

func (t *sqlTx) one(op, query string, arg interface{}) (*Link, error) {
	link, err := scanLink(t.tx.QueryRowContext(t.ctx, query, arg))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.E(errors.StoreIOFailure, op, err)
	}
	return link, nil
}

func scanLink(s interface {
	Scan(dest ...interface{}) error
}) (*Link, error) {
	var link Link
	if err := s.Scan(&link.Code, &link.URL, &link.CreatedAt); err != nil {
		return nil, err
	}
	return &link, nil
}
