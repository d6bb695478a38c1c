package links

import (
	"context"
	"sort"

	"qrlink/internal/pkg/errors"
	"qrlink/internal/pkg/fileutil"
)

// FileStore keeps every link in one JSON snapshot. Each call re-reads the file;
// Update rewrites it through a temp file and rename.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap, err := s.load()
	if err != nil {
		return err
	}
	return fn(&fileTx{links: snap})
}

func (s *FileStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap, err := s.load()
	if err != nil {
		return err
	}

	tx := &fileTx{links: snap}
	if err := fn(tx); err != nil {
		return err
	}
	if !tx.dirty {
		return nil
	}

	if err := fileutil.WriteJSONAtomic(s.path, snap); err != nil {
		return errors.E(errors.StoreIOFailure, "links.FileStore.Update", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) load() (map[string]*Link, error) {
	raw := map[string]*Link{}
	if _, err := fileutil.ReadJSON(s.path, &raw); err != nil {
		return nil, errors.E(errors.StoreIOFailure, "links.FileStore.load", err)
	}

	snap := make(map[string]*Link, len(raw))
	for code, link := range raw {
		if link == nil {
			continue
		}
		link.Code = code
		snap[code] = link
	}
	return snap, nil
}

type fileTx struct {
	links map[string]*Link
	dirty bool
}

func (t *fileTx) Get(code string) (*Link, error) {
	return t.links[code], nil
}

// FindByURL returns the oldest matching link so legacy duplicates resolve consistently.
func (t *fileTx) FindByURL(url string) (*Link, error) {
	var found *Link
	for _, link := range t.links {
		if link.URL != url {
			continue
		}
		if found == nil || link.CreatedAt < found.CreatedAt ||
			(link.CreatedAt == found.CreatedAt && link.Code < found.Code) {
			found = link
		}
	}
	return found, nil
}

func (t *fileTx) Insert(link *Link) error {
	if _, exists := t.links[link.Code]; exists {
		return errors.Newf(errors.Internal, "links.FileStore.Insert", "code already exists")
	}
	t.links[link.Code] = link
	t.dirty = true
	return nil
}

func (t *fileTx) List() ([]*Link, error) {
	out := make([]*Link, 0, len(t.links))
	for _, link := range t.links {
		out = append(out, link)
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(links []*Link) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].CreatedAt != links[j].CreatedAt {
			return links[i].CreatedAt > links[j].CreatedAt
		}
		return links[i].Code < links[j].Code
	})
}
