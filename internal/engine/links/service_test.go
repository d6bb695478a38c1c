package links

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"qrlink/internal/pkg/errors"
)

func openTestStore(t *testing.T, driver string) Store {
	t.Helper()
	dir := t.TempDir()

	var path string
	switch driver {
	case DriverFile:
		path = filepath.Join(dir, "shortlinks.json")
	case DriverSQLite:
		path = filepath.Join(dir, "links.db")
	case DriverPebble:
		path = filepath.Join(dir, "links.pebble")
	}

	store, err := OpenStore(context.Background(), driver, path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var drivers = []string{DriverFile, DriverSQLite, DriverPebble}

func TestServiceContract(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			svc := NewService(openTestStore(t, driver), 6)

			t.Run("create or get is idempotent", func(t *testing.T) {
				first, created, err := svc.CreateOrGet(ctx, "https://a.test/x")
				require.NoError(t, err)
				assert.True(t, created)

				second, created, err := svc.CreateOrGet(ctx, "https://a.test/x")
				require.NoError(t, err)
				assert.False(t, created)
				assert.Equal(t, first.Code, second.Code)

				all, err := svc.List(ctx)
				require.NoError(t, err)
				count := 0
				for _, l := range all {
					if l.URL == "https://a.test/x" {
						count++
					}
				}
				assert.Equal(t, 1, count)
			})

			t.Run("round trip", func(t *testing.T) {
				link, _, err := svc.CreateOrGet(ctx, "https://b.test/path?q=1")
				require.NoError(t, err)
				url, err := svc.Resolve(ctx, link.Code)
				require.NoError(t, err)
				assert.Equal(t, "https://b.test/path?q=1", url)
			})

			t.Run("unknown code", func(t *testing.T) {
				_, err := svc.Resolve(ctx, "doesnotexist")
				assert.True(t, errors.IsKind(err, errors.NotFound))
				_, err = svc.Resolve(ctx, "../etc")
				assert.True(t, errors.IsKind(err, errors.NotFound))
			})

			t.Run("invalid url", func(t *testing.T) {
				for _, raw := range []string{"", "ftp://a.test", "not a url", "https://"} {
					_, _, err := svc.CreateOrGet(ctx, raw)
					assert.True(t, errors.IsKind(err, errors.InvalidInput), raw)
				}
			})

			t.Run("list is newest first", func(t *testing.T) {
				links, err := svc.List(ctx)
				require.NoError(t, err)
				for i := 1; i < len(links); i++ {
					assert.GreaterOrEqual(t, links[i-1].CreatedAt, links[i].CreatedAt)
				}
			})
		})
	}
}

func TestServiceConcurrentCreateOrGet(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			svc := NewService(openTestStore(t, driver), 6)

			const workers = 16
			codes := make([]string, workers)
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					link, _, err := svc.CreateOrGet(ctx, "https://same.test")
					if assert.NoError(t, err) {
						codes[i] = link.Code
					}
					_, _, err = svc.CreateOrGet(ctx, fmt.Sprintf("https://distinct.test/%d", i))
					assert.NoError(t, err)
				}(i)
			}
			wg.Wait()

			for _, c := range codes {
				assert.Equal(t, codes[0], c)
			}

			all, err := svc.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, workers+1)

			seen := map[string]bool{}
			for _, l := range all {
				assert.False(t, seen[l.Code], "duplicate code %s", l.Code)
				seen[l.Code] = true
			}
		})
	}
}

func TestServiceImport(t *testing.T) {
	ctx := context.Background()
	svc := NewService(openTestStore(t, DriverPebble), 6)

	in := []*Link{
		{Code: "abc123", URL: "https://a.test", CreatedAt: 10},
		{Code: "def456", URL: "https://b.test", CreatedAt: 20},
	}
	n, err := svc.Import(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.Import(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	link, created, err := svc.CreateOrGet(ctx, "https://b.test")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "def456", link.Code)
	assert.Equal(t, int64(20), link.CreatedAt)
}

func TestFileStoreLegacySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortlinks.json")
	legacy := `{"abc123":"https://legacy.test","def456":{"url":"https://new.test","ts":5,"clicks":9}}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	ctx := context.Background()
	svc := NewService(NewFileStore(path), 6)

	url, err := svc.Resolve(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://legacy.test", url)

	link, err := svc.Get(ctx, "def456")
	require.NoError(t, err)
	assert.Equal(t, "https://new.test", link.URL)
	assert.Equal(t, int64(5), link.CreatedAt)

	existing, created, err := svc.CreateOrGet(ctx, "https://legacy.test")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "abc123", existing.Code)
}

func TestFileStoreCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortlinks.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	svc := NewService(NewFileStore(path), 6)
	_, _, err := svc.CreateOrGet(context.Background(), "https://a.test")
	assert.True(t, errors.IsKind(err, errors.StoreIOFailure))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{broken", string(data))
}

func TestFileStoreWritesFlatMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortlinks.json")
	svc := NewService(NewFileStore(path), 6)

	link, _, err := svc.CreateOrGet(context.Background(), "https://a.test")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(`{%q:{"url":"https://a.test","ts":%d}}`, link.Code, link.CreatedAt), string(data))
}

func TestShortURL(t *testing.T) {
	assert.Equal(t, "http://localhost:5000/s/Ab12Cd", ShortURL("http://localhost:5000/", "Ab12Cd"))
	assert.Equal(t, "https://q.example/s/x", ShortURL("https://q.example", "x"))
}

func TestCreateOrGetProperties(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewFileStore(filepath.Join(t.TempDir(), "shortlinks.json")), 6)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("resolve returns the url and repeats reuse the code", prop.ForAll(
		func(path string) bool {
			url := "https://prop.test/" + path
			first, _, err := svc.CreateOrGet(ctx, url)
			if err != nil {
				return false
			}
			again, created, err := svc.CreateOrGet(ctx, url)
			if err != nil || created || again.Code != first.Code {
				return false
			}
			resolved, err := svc.Resolve(ctx, first.Code)
			return err == nil && resolved == url
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
