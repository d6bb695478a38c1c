package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"qrlink/internal/pkg/errors"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config="}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestShortenResolveList(t *testing.T) {
	for _, driver := range []string{"file", "sqlite", "pebble"} {
		t.Run(driver, func(t *testing.T) {
			store := filepath.Join(t.TempDir(), "links")
			flags := []string{"--store-driver", driver, "--store-path", store}

			out, _, err := execute(t, append([]string{"shorten", "https://a.test/x", "--base-url", "https://q.test"}, flags...)...)
			require.NoError(t, err)
			short := strings.TrimSpace(out)
			require.True(t, strings.HasPrefix(short, "https://q.test/s/"), short)

			again, stderr, err := execute(t, append([]string{"shorten", "https://a.test/x", "--base-url", "https://q.test"}, flags...)...)
			require.NoError(t, err)
			assert.Equal(t, short, strings.TrimSpace(again))
			assert.Contains(t, stderr, "already shortened")

			code := strings.TrimPrefix(short, "https://q.test/s/")
			out, _, err = execute(t, append([]string{"resolve", code}, flags...)...)
			require.NoError(t, err)
			assert.Equal(t, "https://a.test/x", strings.TrimSpace(out))

			out, _, err = execute(t, append([]string{"list", "--json"}, flags...)...)
			require.NoError(t, err)
			var snapshot map[string]map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(out), &snapshot))
			require.Len(t, snapshot, 1)
			assert.Equal(t, "https://a.test/x", snapshot[code]["url"])

			out, _, err = execute(t, append([]string{"list"}, flags...)...)
			require.NoError(t, err)
			assert.Contains(t, out, code)
		})
	}
}

func TestResolveUnknown(t *testing.T) {
	store := filepath.Join(t.TempDir(), "links.json")
	_, _, err := execute(t, "resolve", "zzzzzz", "--store-path", store)
	assert.True(t, errors.IsKind(err, errors.NotFound), "got %v", err)
}

func TestRender(t *testing.T) {
	out := filepath.Join(t.TempDir(), "qr.png")

	_, stderr, err := execute(t, "render", "https://example.com", "-o", out, "--size", "128", "--style", "linear", "--fill2", "navy")
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote "+out)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 128, img.Bounds().Dy())
}

func TestRenderSVGToStdout(t *testing.T) {
	out, _, err := execute(t, "render", "hello", "--format", "svg", "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "<svg")
}

func TestRenderRejections(t *testing.T) {
	_, _, err := execute(t, "render", "hello", "--format", "svg", "--logo", "logo.png", "-o", "-")
	assert.True(t, errors.IsKind(err, errors.UnsupportedCombination), "got %v", err)

	_, _, err = execute(t, "render", "hello", "--fill", "nope", "-o", "-")
	assert.True(t, errors.IsKind(err, errors.InvalidColor), "got %v", err)

	_, _, err = execute(t, "render", "hello", "--logo", filepath.Join(t.TempDir(), "missing.png"), "-o", "-")
	assert.True(t, errors.IsKind(err, errors.LogoUnreadable), "got %v", err)
}

func TestHashKey(t *testing.T) {
	out, _, err := execute(t, "hash-key", "s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("s3cret")))
}
