package links

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/cockroachdb/pebble"
	"qrlink/internal/pkg/errors"
)

const (
	codePrefix = "c/"
	urlPrefix  = "u/"
)

// PebbleStore keeps links in an embedded Pebble database:
// c/<code> holds the record and u/<url> points back at its code.
type PebbleStore struct {
	db *pebble.DB
}

func OpenPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.E(errors.StoreIOFailure, "links.OpenPebbleStore", err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.db.NewSnapshot()
	defer snap.Close()
	return fn(&pebbleTx{reader: snap})
}

func (s *PebbleStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := s.db.NewIndexedBatch()
	defer batch.Close()

	if err := fn(&pebbleTx{reader: batch, batch: batch}); err != nil {
		return err
	}
	if batch.Empty() {
		return nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return errors.E(errors.StoreIOFailure, "links.PebbleStore.Update", err)
	}
	return nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}

type pebbleTx struct {
	reader pebble.Reader
	batch  *pebble.Batch
}

func (t *pebbleTx) Get(code string) (*Link, error) {
	val, err := t.get(codePrefix + code)
	if val == nil || err != nil {
		return nil, err
	}
	link := &Link{Code: code}
	if err := json.Unmarshal(val, link); err != nil {
		return nil, errors.E(errors.StoreIOFailure, "links.PebbleStore.Get", err)
	}
	return link, nil
}

func (t *pebbleTx) FindByURL(url string) (*Link, error) {
	code, err := t.get(urlPrefix + url)
	if code == nil || err != nil {
		return nil, err
	}
	return t.Get(string(code))
}

func (t *pebbleTx) Insert(link *Link) error {
	const op = "links.PebbleStore.Insert"
	if t.batch == nil {
		return errors.Newf(errors.Internal, op, "read-only transaction")
	}

	val, err := json.Marshal(link)
	if err != nil {
		return errors.E(errors.Internal, op, err)
	}
	if err := t.batch.Set([]byte(codePrefix+link.Code), val, nil); err != nil {
		return errors.E(errors.StoreIOFailure, op, err)
	}

	// Keep the first code issued for a url as its canonical one.
	existing, err := t.get(urlPrefix + link.URL)
	if err != nil {
		return err
	}
	if existing == nil {
		if err := t.batch.Set([]byte(urlPrefix+link.URL), []byte(link.Code), nil); err != nil {
			return errors.E(errors.StoreIOFailure, op, err)
		}
	}
	return nil
}

func (t *pebbleTx) List() ([]*Link, error) {
	const op = "links.PebbleStore.List"

	iter, err := t.reader.NewIter(&pebble.IterOptions{
		LowerBound: []byte(codePrefix),
		UpperBound: prefixEnd(codePrefix),
	})
	if err != nil {
		return nil, errors.E(errors.StoreIOFailure, op, err)
	}

	var links []*Link
	for iter.First(); iter.Valid(); iter.Next() {
		link := &Link{Code: string(iter.Key()[len(codePrefix):])}
		if err := json.Unmarshal(iter.Value(), link); err != nil {
			iter.Close()
			return nil, errors.E(errors.StoreIOFailure, op, err)
		}
		links = append(links, link)
	}
	if err := iter.Close(); err != nil {
		return nil, errors.E(errors.StoreIOFailure, op, err)
	}

	sortNewestFirst(links)
	return links, nil
}

// get returns a copy of the value at key, or nil when the key is absent.
func (t *pebbleTx) get(key string) ([]byte, error) {
	val, closer, err := t.reader.Get([]byte(key))
	if stderrors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.E(errors.StoreIOFailure, "links.PebbleStore.get", err)
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

func prefixEnd(prefix string) []byte {
	end := []byte(prefix)
	end[len(end)-1]++
	return end
}
