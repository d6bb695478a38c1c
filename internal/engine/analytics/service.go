// Package analytics counts visits, unique visitors, downloads and uploads per calendar day.
package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

const dayLayout = "2006-01-02"

// AllowedWindows are the dashboard ranges in days.
var AllowedWindows = []int{7, 14, 30, 60}

const DefaultWindow = 30

type Series struct {
	Labels    []string `json:"labels"`
	Visits    []int    `json:"visits"`
	Uniques   []int    `json:"uniques"`
	Downloads []int    `json:"downloads"`
	Uploads   []int    `json:"uploads"`
}

type Counts struct {
	Visits    int `json:"visits"`
	Uniques   int `json:"uniques"`
	Downloads int `json:"downloads"`
	Uploads   int `json:"uploads"`
}

type Totals struct {
	Days int `json:"days"`
	Counts
	Today Counts `json:"today"`
}

// Service records events into the repository. Each event is a full
// load, mutate, save cycle under the service lock.
type Service struct {
	mu   sync.Mutex
	repo *Repository
	loc  *time.Location
	salt string
	now  func() time.Time
}

func NewService(repo *Repository, loc *time.Location, salt string) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, salt: salt, now: time.Now}
}

// LoadLocation resolves an IANA zone name, falling back to a fixed UTC+7 zone
// when the tz database is unavailable.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = "Asia/Bangkok"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("UTC+7", 7*60*60)
	}
	return loc
}

// NormalizeWindow maps unsupported ranges to DefaultWindow.
func NormalizeWindow(days int) int {
	for _, w := range AllowedWindows {
		if w == days {
			return days
		}
	}
	return DefaultWindow
}

func (s *Service) TrackVisit(ip string) error {
	if ip == "" {
		ip = "unknown"
	}
	h := s.hashIP(ip)
	return s.update(func(day *DailyStat) {
		day.Visits++
		for _, u := range day.Unique {
			if u == h {
				return
			}
		}
		day.Unique = append(day.Unique, h)
	})
}

func (s *Service) TrackDownload() error {
	return s.update(func(day *DailyStat) { day.Downloads++ })
}

func (s *Service) TrackUpload() error {
	return s.update(func(day *DailyStat) { day.Uploads++ })
}

// Series returns one entry per day for the last days days, oldest first, ending today.
func (s *Service) Series(days int) (*Series, error) {
	s.mu.Lock()
	db, err := s.repo.Load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if days < 1 {
		days = 1
	}
	today := s.now().In(s.loc)
	out := &Series{
		Labels:    make([]string, 0, days),
		Visits:    make([]int, 0, days),
		Uniques:   make([]int, 0, days),
		Downloads: make([]int, 0, days),
		Uploads:   make([]int, 0, days),
	}
	for i := days - 1; i >= 0; i-- {
		key := today.AddDate(0, 0, -i).Format(dayLayout)
		row := db[key]
		if row == nil {
			row = &DailyStat{}
		}
		out.Labels = append(out.Labels, key)
		out.Visits = append(out.Visits, row.Visits)
		out.Uniques = append(out.Uniques, len(row.Unique))
		out.Downloads = append(out.Downloads, row.Downloads)
		out.Uploads = append(out.Uploads, row.Uploads)
	}
	return out, nil
}

func (s *Service) Totals(days int) (*Totals, error) {
	series, err := s.Series(days)
	if err != nil {
		return nil, err
	}

	t := &Totals{Days: len(series.Labels)}
	for i := range series.Labels {
		t.Visits += series.Visits[i]
		t.Uniques += series.Uniques[i]
		t.Downloads += series.Downloads[i]
		t.Uploads += series.Uploads[i]
	}
	last := len(series.Labels) - 1
	t.Today = Counts{
		Visits:    series.Visits[last],
		Uniques:   series.Uniques[last],
		Downloads: series.Downloads[last],
		Uploads:   series.Uploads[last],
	}
	return t, nil
}

// Prune drops days older than keepDays before today and returns how many were removed.
func (s *Service) Prune(keepDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.repo.Load()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().In(s.loc).AddDate(0, 0, -keepDays).Format(dayLayout)
	removed := 0
	for day := range db {
		// YYYY-MM-DD keys order lexically.
		if day < cutoff {
			delete(db, day)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.repo.Save(db)
}

func (s *Service) update(fn func(day *DailyStat)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.repo.Load()
	if err != nil {
		return err
	}

	key := s.now().In(s.loc).Format(dayLayout)
	day := db[key]
	if day == nil {
		day = &DailyStat{Unique: []string{}}
		db[key] = day
	}
	fn(day)
	return s.repo.Save(db)
}

func (s *Service) hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + "|" + s.salt))
	return hex.EncodeToString(sum[:])[:24]
}
