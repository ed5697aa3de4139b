package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/frontmatter"
)

// Store is the file-backed record store rooted at the data directory.
// Every mutation is a temp-file write in the destination directory followed
// by fsync and rename; readers see either the old or the new file.
type Store struct {
	root   string
	logger *slog.Logger

	rename     func(oldpath, newpath string) error
	createTemp func(dir, pattern string) (*os.File, error)
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the logger used for malformed-line warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore builds a store rooted at root. The directory is created lazily.
func NewStore(root string, opts ...Option) *Store {
	s := &Store{
		root:       root,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		rename:     os.Rename,
		createTemp: os.CreateTemp,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the data directory.
func (s *Store) Root() string { return s.root }

// Path resolves a collection-relative path inside the data directory.
func (s *Store) Path(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// Init creates the directory layout.
func (s *Store) Init() error {
	for _, dir := range layoutDirs {
		if err := os.MkdirAll(s.Path(dir), 0o755); err != nil {
			return unavailable("mkdir", dir, err)
		}
	}
	return nil
}

// Exists reports whether the collection or document at rel is present.
func (s *Store) Exists(rel string) bool {
	_, err := os.Stat(s.Path(rel))
	return err == nil
}

// MoveCollection renames a collection. It never overwrites an existing one.
func (s *Store) MoveCollection(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, dst := s.Path(from), s.Path(to)
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("move %s: %w", from, domain.ErrCollectionNotFound)
		}
		return unavailable("stat", from, err)
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("move %s to %s: %w", from, to, domain.ErrCollectionExists)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return unavailable("mkdir", filepath.Dir(to), err)
	}
	if err := s.rename(src, dst); err != nil {
		return unavailable("rename", from, err)
	}
	syncDir(filepath.Dir(dst))
	return nil
}

// RemoveCollection deletes a collection. A missing collection is not an error.
func (s *Store) RemoveCollection(ctx context.Context, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.Path(rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return unavailable("remove", rel, err)
	}
	return nil
}

// ListCollections returns the relative paths in dir whose base name matches
// pattern, sorted by name.
func (s *Store) ListCollections(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.Path(dir), pattern))
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", dir, pattern, err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		out = append(out, filepath.ToSlash(filepath.Join(dir, filepath.Base(m))))
	}
	sort.Strings(out)
	return out, nil
}

// WriteDocument atomically writes a frontmatter document.
func (s *Store) WriteDocument(ctx context.Context, rel string, header frontmatter.Header, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content, err := frontmatter.Render(header, []byte(body))
	if err != nil {
		return fmt.Errorf("render %s: %w", rel, err)
	}
	return s.writeAtomic(rel, func(w *bufio.Writer) error {
		_, err := w.Write(content)
		return err
	})
}

// ReadDocument reads back a frontmatter document.
func (s *Store) ReadDocument(rel string) (frontmatter.Header, string, error) {
	raw, err := os.ReadFile(s.Path(rel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return frontmatter.Header{}, "", fmt.Errorf("read %s: %w", rel, domain.ErrCollectionNotFound)
		}
		return frontmatter.Header{}, "", unavailable("read", rel, err)
	}
	var header frontmatter.Header
	body, err := frontmatter.Parse(raw, &header)
	if err != nil {
		return frontmatter.Header{}, "", fmt.Errorf("parse %s: %w", rel, err)
	}
	return header, string(body), nil
}

// writeAtomic streams content into a temp file next to the destination and
// renames it into place. The temp file is removed on any failure.
func (s *Store) writeAtomic(rel string, write func(w *bufio.Writer) error) error {
	path := s.Path(rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return unavailable("mkdir", filepath.Dir(rel), err)
	}

	tmp, err := s.createTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return unavailable("create temp for", rel, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		_ = tmp.Close()
		return unavailable("write", rel, err)
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return unavailable("flush", rel, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return unavailable("sync", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return unavailable("close", rel, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return unavailable("chmod", rel, err)
	}
	if err := s.rename(tmpName, path); err != nil {
		return unavailable("rename", rel, err)
	}
	committed = true
	syncDir(dir)
	return nil
}

// syncDir persists the rename. Some platforms cannot fsync a directory; the
// rename has already happened by then, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func unavailable(op, rel string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", domain.ErrStoreUnavailable, op, rel, err)
}
