package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"streamscribe/internal/util"
)

// LocalStore keeps media under a single directory, named by content hash so
// duplicate uploads collapse to one file and references stay stable.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := util.EnsureDir(root); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Save(r io.Reader, filename string) (string, int64, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !AllowedExtension(filename) {
		return "", 0, fmt.Errorf("%w: %s", util.ErrUnsupportedMedia, ext)
	}
	tmp, err := os.CreateTemp(s.root, "upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("create temp upload: %w", err)
	}
	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("write upload: %w", err)
	}
	ref := hex.EncodeToString(h.Sum(nil)) + ext
	if err := os.Rename(tmp.Name(), filepath.Join(s.root, ref)); err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("store upload: %w", err)
	}
	return ref, size, nil
}

func (s *LocalStore) Resolve(ctx context.Context, storageRef string) (io.ReadCloser, error) {
	_ = ctx
	path, err := s.Path(storageRef)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open media %s: %w", storageRef, err)
	}
	return f, nil
}

// Path returns the local filesystem handle for a reference, rejecting any
// attempt to escape the media root.
func (s *LocalStore) Path(storageRef string) (string, error) {
	clean := filepath.Clean(storageRef)
	if clean == "" || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage ref: %q", storageRef)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *LocalStore) Delete(storageRef string) error {
	path, err := s.Path(storageRef)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete media %s: %w", storageRef, err)
	}
	return nil
}
