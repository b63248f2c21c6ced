package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var ErrInvalidName = errors.New("invalid file name")

// UploadStore keeps uploaded papers as flat files under one directory.
type UploadStore interface {
	Save(name string, content []byte) (string, error)
	Open(name string) (afero.File, error)
	Stat(name string) (os.FileInfo, error)
	Remove(name string) error
	List() ([]os.FileInfo, error)
}

type uploadStore struct {
	fs afero.Fs
}

// NewUploadStore roots the store at dir on the OS filesystem.
func NewUploadStore(dir string) (UploadStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("make upload dir: %w", err)
	}
	return NewUploadStoreFs(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// NewUploadStoreFs uses fs as is; tests pass afero.NewMemMapFs().
func NewUploadStoreFs(fs afero.Fs) UploadStore {
	return &uploadStore{fs: fs}
}

// Save writes content under name. When name is taken a short unique suffix
// is inserted before the extension; the stored name is returned.
func (s *uploadStore) Save(name string, content []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	stored := name
	if ok, _ := afero.Exists(s.fs, stored); ok {
		ext := filepath.Ext(name)
		stored = strings.TrimSuffix(name, ext) + "_" + uuid.New().String()[:8] + ext
	}
	if err := afero.WriteFile(s.fs, stored, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return stored, nil
}

func (s *uploadStore) Open(name string) (afero.File, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return s.fs.Open(name)
}

func (s *uploadStore) Stat(name string) (os.FileInfo, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return s.fs.Stat(name)
}

func (s *uploadStore) Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return s.fs.Remove(name)
}

// List returns regular files, newest first.
func (s *uploadStore) List() ([]os.FileInfo, error) {
	infos, err := afero.ReadDir(s.fs, "/")
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	out := infos[:0]
	for _, fi := range infos {
		if fi.IsDir() || strings.HasPrefix(fi.Name(), ".") {
			continue
		}
		out = append(out, fi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModTime().After(out[j].ModTime()) })
	return out, nil
}

// checkName only admits a bare file name.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return ErrInvalidName
	}
	return nil
}
