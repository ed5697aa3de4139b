// Package lock serializes runs across processes with an exclusive lock file.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/ports"
)

// FileLock is held while its file exists. A lock older than staleAfter is
// assumed to belong to a crashed run and is taken over.
type FileLock struct {
	path       string
	staleAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

var _ ports.RunGuard = (*FileLock)(nil)

type owner struct {
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// New builds a lock at path. staleAfter <= 0 never takes over a held lock.
func New(path string, staleAfter time.Duration, logger *slog.Logger) *FileLock {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FileLock{path: path, staleAfter: staleAfter, logger: logger.With("component", "lock"), now: time.Now}
}

// Acquire takes the lock or fails with domain.ErrRunInProgress.
func (l *FileLock) Acquire(ctx context.Context) (func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			encErr := json.NewEncoder(f).Encode(owner{PID: os.Getpid(), AcquiredAt: l.now().UTC()})
			closeErr := f.Close()
			if err := errors.Join(encErr, closeErr); err != nil {
				_ = os.Remove(l.path)
				return nil, fmt.Errorf("write lock: %w", err)
			}
			return l.release, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create lock: %w", err)
		}

		info, statErr := os.Stat(l.path)
		if statErr != nil {
			continue
		}
		age := l.now().Sub(info.ModTime())
		if l.staleAfter > 0 && age > l.staleAfter {
			l.logger.Warn("taking over stale lock", "path", l.path, "age", age.Round(time.Second))
			if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("remove stale lock: %w", err)
			}
			continue
		}
		return nil, fmt.Errorf("%w: %s held for %s", domain.ErrRunInProgress, l.path, age.Round(time.Second))
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrRunInProgress, l.path)
}

func (l *FileLock) release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
