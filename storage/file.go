package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	applog "github.com/CrazyForks/tiny-svg/log"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// File stores each key as <root>/<workspace>/<key>.json.
type File struct {
	dir string
	log *slog.Logger
}

// NewFile returns a file gateway for workspace under root, creating the
// workspace directory if needed.
func NewFile(root, workspace string) (*File, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("storage root is required")
	}
	if strings.TrimSpace(workspace) == "" {
		workspace = "default"
	}
	dir := filepath.Join(root, safeName(workspace))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}
	return &File{
		dir: dir,
		log: applog.WithComponent("storage").With(slog.String("backend", "file"), slog.String("dir", dir)),
	}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, safeName(key)+".json")
}

func (f *File) Read(key string) (string, bool) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.log.Warn("read blob failed", slog.String("key", key), slog.Any("err", err))
		}
		return "", false
	}
	return string(data), true
}

// Write writes to a temp file then renames it over the target.
func (f *File) Write(key, value string) error {
	target := f.path(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

func safeName(s string) string {
	s = unsafeName.ReplaceAllString(s, "_")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
