package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FSStore persists images on the local filesystem under generated/ and
// edits/ subdirectories of a root, for cmd/editcli and tests.
type FSStore struct {
	root string
}

// NewFSStore builds an FSStore rooted at dir, creating generated/ and
// edits/ subdirectories if they do not exist.
func NewFSStore(dir string) (*FSStore, error) {
	for _, sub := range []Dest{DestGenerated, DestEdits} {
		if err := os.MkdirAll(filepath.Join(dir, string(sub)), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir %s: %w", sub, err)
		}
	}
	return &FSStore{root: dir}, nil
}

func (s *FSStore) ReadByName(ctx context.Context, name string) ([]byte, string, error) {
	if !ValidName(name) {
		return nil, "", fmt.Errorf("%w: %q", ErrBadFileName, name)
	}

	path, err := s.locate(name)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return data, mimeFromExt(filepath.Ext(name)), nil
}

func (s *FSStore) SaveTo(ctx context.Context, dest Dest, data []byte, mime string) (Saved, error) {
	ext, ok := extByMIME[mime]
	if !ok {
		return Saved{}, fmt.Errorf("store: unsupported mime type %q", mime)
	}

	filename := uuid.NewString() + "." + ext
	path := filepath.Join(s.root, string(dest), filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Saved{}, fmt.Errorf("write %s: %w", path, err)
	}

	return Saved{
		Filename: filename,
		URL:      (&url.URL{Scheme: "file", Path: path}).String(),
		MIME:     mime,
	}, nil
}

// locate searches both persisted prefixes plus the store root itself,
// since ReadByName is not told which destination a name was saved
// under (base images seeded for editing live at the root).
func (s *FSStore) locate(name string) (string, error) {
	candidates := []string{
		filepath.Join(s.root, name),
		filepath.Join(s.root, string(DestGenerated), name),
		filepath.Join(s.root, string(DestEdits), name),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

func mimeFromExt(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
