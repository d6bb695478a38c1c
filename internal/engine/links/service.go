package links

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"qrlink/internal/pkg/errors"
)

// Service owns the link store. Every operation runs under one mutex so a
// read-modify-write cycle never interleaves with another.
type Service struct {
	mu         sync.Mutex
	store      Store
	codeLength int
	now        func() time.Time
}

func NewService(store Store, codeLength int) *Service {
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}
	return &Service{store: store, codeLength: codeLength, now: time.Now}
}

// CreateOrGet returns the existing link for url, or issues a new code for it.
// created reports whether a new link was stored.
func (s *Service) CreateOrGet(ctx context.Context, url string) (link *Link, created bool, err error) {
	if err := ValidateURL(url); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.store.Update(ctx, func(tx Tx) error {
		existing, err := tx.FindByURL(url)
		if err != nil {
			return err
		}
		if existing != nil {
			link = existing
			return nil
		}

		code, err := GenerateShortCode(s.codeLength, txChecker{tx})
		if err != nil {
			return errors.E(errors.StoreIOFailure, "links.CreateOrGet", err)
		}

		link = &Link{Code: code, URL: url, CreatedAt: s.now().Unix()}
		if err := tx.Insert(link); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		log.Info().Str("code", link.Code).Str("url", link.URL).Msg("Short link created")
	}
	return link, created, nil
}

// Resolve returns the long URL stored under code.
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	link, err := s.Get(ctx, code)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

func (s *Service) Get(ctx context.Context, code string) (*Link, error) {
	notFound := errors.Newf(errors.NotFound, "links.Resolve", "short link not found")
	if !IsValidShortCode(code) {
		return nil, notFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var link *Link
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		link, err = tx.Get(code)
		return err
	})
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, notFound
	}
	return link, nil
}

// List returns every link, newest first.
func (s *Service) List(ctx context.Context) ([]*Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var links []*Link
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		links, err = tx.List()
		return err
	})
	return links, err
}

// Import copies links into the store, keeping their codes and timestamps.
// Codes that already exist are skipped. It returns the number of links written.
func (s *Service) Import(ctx context.Context, in []*Link) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	err := s.store.Update(ctx, func(tx Tx) error {
		for _, link := range in {
			existing, err := tx.Get(link.Code)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			if err := tx.Insert(link); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// Ping opens a read transaction to check the backend is reachable.
func (s *Service) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.View(ctx, func(Tx) error { return nil })
}

func (s *Service) Close() error {
	return s.store.Close()
}

// ShortURL joins the public origin and code into the redirect URL.
func ShortURL(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/s/" + code
}
