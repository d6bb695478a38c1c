// Package assets manages uploaded logos and downloadable files under the static root.
package assets

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
	"qrlink/internal/pkg/errors"
	"qrlink/internal/pkg/fileutil"
)

const (
	KindLogo  = "logo"
	KindAsset = "asset"

	TypePDF   = "pdf"
	TypeMP3   = "mp3"
	TypeImage = "image"

	logoDir  = "logo"
	filesDir = "files"
)

// AssetTypes lists the upload categories in display order.
var AssetTypes = []string{TypePDF, TypeMP3, TypeImage}

var allowedExts = map[string]map[string]bool{
	TypePDF:   {"pdf": true},
	TypeMP3:   {"mp3": true},
	TypeImage: {"png": true, "jpg": true, "jpeg": true},
}

var mimeExts = map[string]string{
	"application/pdf": "pdf",
	"audio/mpeg":      "mp3",
	"image/jpeg":      "jpg",
	"image/png":       "png",
}

var defaultMaxMB = map[string]int{TypePDF: 10, TypeMP3: 15, TypeImage: 5}

// Entry describes one stored file. RelPath is relative to the static root and uses forward slashes.
type Entry struct {
	Kind    string    `json:"kind"`
	Type    string    `json:"atype,omitempty"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
	RelPath string    `json:"path"`
}

type Store struct {
	root     string
	maxBytes map[string]int64
}

// NewStore roots the store at root. maxMB overrides the per-type size limits.
func NewStore(root string, maxMB map[string]int) *Store {
	limits := make(map[string]int64, len(defaultMaxMB))
	for t, mb := range defaultMaxMB {
		if v, ok := maxMB[t]; ok && v > 0 {
			mb = v
		}
		limits[t] = int64(mb) << 20
	}
	return &Store{root: root, maxBytes: limits}
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) MaxBytes(atype string) int64 {
	return s.maxBytes[atype]
}

// EnsureDirs creates the logo folder and one folder per asset type.
func (s *Store) EnsureDirs() error {
	dirs := []string{filepath.Join(s.root, logoDir)}
	for _, t := range AssetTypes {
		dirs = append(dirs, s.assetDir(t))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// SaveAsset stores an upload of the given type as <stem>_<ksuid>.<ext>.
// When filename has no extension it is derived from mimeType.
func (s *Store) SaveAsset(atype, filename, mimeType string, r io.Reader) (*Entry, error) {
	const op = "assets.SaveAsset"

	atype = strings.ToLower(atype)
	exts, ok := allowedExts[atype]
	if !ok {
		return nil, errors.Newf(errors.InvalidInput, op, "unsupported asset type")
	}
	if filename == "" {
		return nil, errors.Newf(errors.InvalidInput, op, "no file")
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		ext = mimeExts[strings.ToLower(strings.TrimSpace(mimeType))]
	}
	if !exts[ext] {
		return nil, errors.Newf(errors.InvalidInput, op, "invalid extension")
	}

	stem := SanitizeName(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if stem == "" {
		stem = "file"
	}

	dir := s.assetDir(atype)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.E(errors.StoreIOFailure, op, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, errors.E(errors.StoreIOFailure, op, err)
	}
	defer os.Remove(tmp.Name())

	limit := s.maxBytes[atype]
	size, err := io.Copy(tmp, io.LimitReader(r, limit+1))
	closeErr := tmp.Close()
	if err != nil {
		return nil, errors.E(errors.StoreIOFailure, op, err)
	}
	if closeErr != nil {
		return nil, errors.E(errors.StoreIOFailure, op, closeErr)
	}
	if size > limit {
		return nil, errors.Newf(errors.InvalidInput, op, fmt.Sprintf("file too large (>%d MB)", limit>>20))
	}

	name := fmt.Sprintf("%s_%s.%s", stem, ksuid.New().String(), ext)
	final := filepath.Join(dir, name)
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return nil, errors.E(errors.StoreIOFailure, op, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return nil, errors.E(errors.StoreIOFailure, op, err)
	}

	return s.entry(KindAsset, atype, final, path.Join(filesDir, atype, name))
}

// SaveLogo stores a PNG or JPEG logo under its sanitised name, replacing any logo of the same name.
func (s *Store) SaveLogo(filename string, r io.Reader) (*Entry, error) {
	const op = "assets.SaveLogo"

	if filename == "" {
		return nil, errors.Newf(errors.InvalidInput, op, "no file selected")
	}
	if !isLogoName(filename) {
		return nil, errors.Newf(errors.InvalidInput, op, "invalid file type (png/jpg/jpeg)")
	}
	name := SanitizeName(filepath.Base(filename))
	if !isLogoName(name) {
		return nil, errors.Newf(errors.InvalidInput, op, "invalid file name")
	}

	limit := s.maxBytes[TypeImage]
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.E(errors.StoreIOFailure, op, err)
	}
	if int64(len(data)) > limit {
		return nil, errors.Newf(errors.InvalidInput, op, fmt.Sprintf("file too large (>%d MB)", limit>>20))
	}

	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Newf(errors.InvalidInput, op, "corrupted or unsupported image file")
	}
	if format != "png" && format != "jpeg" {
		return nil, errors.Newf(errors.InvalidInput, op, "invalid image format (PNG/JPEG only)")
	}

	final := filepath.Join(s.root, logoDir, name)
	if err := fileutil.WriteFileAtomic(final, data, 0644); err != nil {
		return nil, errors.E(errors.StoreIOFailure, op, err)
	}
	return s.entry(KindLogo, "", final, path.Join(logoDir, name))
}

// LogoPath resolves a stored logo name to its file path.
func (s *Store) LogoPath(name string) (string, error) {
	clean := SanitizeName(filepath.Base(name))
	if clean == "" || clean != name || !isLogoName(clean) {
		return "", errors.Newf(errors.NotFound, "assets.LogoPath", "logo not found")
	}
	p := filepath.Join(s.root, logoDir, clean)
	if fi, err := os.Stat(p); err != nil || !fi.Mode().IsRegular() {
		return "", errors.Newf(errors.NotFound, "assets.LogoPath", "logo not found")
	}
	return p, nil
}

// Logos returns the names of stored logos, sorted.
func (s *Store) Logos() ([]string, error) {
	entries, err := s.listDir(KindLogo, "", filepath.Join(s.root, logoDir), logoDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if isLogoName(e.Name) {
			names = append(names, e.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// List returns logos and assets, newest first.
func (s *Store) List() ([]Entry, error) {
	all, err := s.listDir(KindLogo, "", filepath.Join(s.root, logoDir), logoDir)
	if err != nil {
		return nil, err
	}
	for _, t := range AssetTypes {
		entries, err := s.listDir(KindAsset, t, s.assetDir(t), path.Join(filesDir, t))
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].ModTime.After(all[j].ModTime)
	})
	return all, nil
}

// Delete removes a stored file. An empty atype addresses the logo folder.
func (s *Store) Delete(atype, name string) error {
	const op = "assets.Delete"

	name = strings.TrimSpace(name)
	if name == "" {
		return errors.Newf(errors.InvalidInput, op, "invalid params")
	}

	var dir string
	switch atype = strings.ToLower(atype); {
	case atype == "":
		dir = filepath.Join(s.root, logoDir)
	case allowedExts[atype] != nil:
		dir = s.assetDir(atype)
	default:
		return errors.Newf(errors.InvalidInput, op, "invalid type")
	}

	base := filepath.Base(name)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return errors.Newf(errors.NotFound, op, "not found")
	}
	p := filepath.Join(dir, base)
	fi, err := os.Stat(p)
	if err != nil || !fi.Mode().IsRegular() {
		return errors.Newf(errors.NotFound, op, "not found")
	}
	if err := os.Remove(p); err != nil {
		return errors.E(errors.StoreIOFailure, op, err)
	}
	return nil
}

// RemoveStaleTemp deletes partial uploads and unfinished atomic writes older than age.
func (s *Store) RemoveStaleTemp(age time.Duration) (int, error) {
	dirs := []string{filepath.Join(s.root, logoDir)}
	for _, t := range AssetTypes {
		dirs = append(dirs, s.assetDir(t))
	}

	cutoff := time.Now().Add(-age)
	removed := 0
	for _, dir := range dirs {
		items, err := os.ReadDir(dir)
		if stderrors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, errors.E(errors.StoreIOFailure, "assets.RemoveStaleTemp", err)
		}
		for _, item := range items {
			name := item.Name()
			if !item.Type().IsRegular() || !(strings.HasPrefix(name, ".upload-") || strings.HasSuffix(name, ".tmp")) {
				continue
			}
			info, err := item.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, name)); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
				return removed, errors.E(errors.StoreIOFailure, "assets.RemoveStaleTemp", err)
			}
			removed++
		}
	}
	return removed, nil
}

func (s *Store) assetDir(atype string) string {
	return filepath.Join(s.root, filesDir, atype)
}

func (s *Store) listDir(kind, atype, dir, rel string) ([]Entry, error) {
	items, err := os.ReadDir(dir)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.E(errors.StoreIOFailure, "assets.List", err)
	}

	var out []Entry
	for _, item := range items {
		if !item.Type().IsRegular() || strings.HasPrefix(item.Name(), ".") {
			continue
		}
		info, err := item.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Kind:    kind,
			Type:    atype,
			Name:    item.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			RelPath: path.Join(rel, item.Name()),
		})
	}
	return out, nil
}

func (s *Store) entry(kind, atype, full, rel string) (*Entry, error) {
	info, err := os.Stat(full)
	if err != nil {
		return nil, errors.E(errors.StoreIOFailure, "assets.entry", err)
	}
	return &Entry{
		Kind:    kind,
		Type:    atype,
		Name:    filepath.Base(full),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		RelPath: rel,
	}, nil
}

func isLogoName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}
