package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/infrastructure/storage"
)

const maxArchiveAttempts = 100

// Lifecycle moves curated day collections between active and archived and
// purges judged records from staging.
type Lifecycle struct {
	store         *storage.Store
	logger        *slog.Logger
	retentionDays int
	location      *time.Location
	now           func() time.Time
}

// NewLifecycle builds the lifecycle manager. retentionDays <= 0 keeps archives forever.
func NewLifecycle(store *storage.Store, logger *slog.Logger, retentionDays int, location *time.Location) *Lifecycle {
	if location == nil {
		location = time.UTC
	}
	return &Lifecycle{
		store:         store,
		logger:        componentLogger(logger, "lifecycle"),
		retentionDays: retentionDays,
		location:      location,
		now:           time.Now,
	}
}

// Today returns the current day key in the configured time zone.
func (l *Lifecycle) Today() string {
	return storage.DayKey(l.now(), l.location)
}

// ArchiveDay moves the day's active collection into the archive. A name
// already taken in the archive gets a -2, -3, ... suffix.
func (l *Lifecycle) ArchiveDay(ctx context.Context, day string) (string, error) {
	from := storage.CuratedPath(day)
	for attempt := 1; attempt <= maxArchiveAttempts; attempt++ {
		to := storage.ArchivePath(day, attempt)
		err := l.store.MoveCollection(ctx, from, to)
		if errors.Is(err, domain.ErrCollectionExists) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("archive %s: %w", day, err)
		}
		l.logger.Info("archived day collection", "day", day, "path", to)
		return to, nil
	}
	return "", fmt.Errorf("archive %s: %w", day, domain.ErrCollectionExists)
}

// IsArchived reports whether any archive exists for day.
func (l *Lifecycle) IsArchived(day string) (bool, error) {
	paths, err := l.store.ListCollections(storage.ArchiveDir, day+"_ranked*.jsonl")
	if err != nil {
		return false, err
	}
	return len(paths) > 0, nil
}

// PurgeStaging removes the given raw record ids from the inbox in one write.
func (l *Lifecycle) PurgeStaging(ctx context.Context, ids map[string]struct{}) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	removed, err := l.store.Inbox().Remove(ctx, func(r domain.RawRecord) bool {
		_, ok := ids[r.ID]
		return ok
	})
	if err != nil {
		return 0, fmt.Errorf("purge staging: %w", err)
	}
	return removed, nil
}

// ActiveDays lists the days with an active curated collection, oldest first.
func (l *Lifecycle) ActiveDays() ([]string, error) {
	return l.days(storage.CuratedDir)
}

// ArchivedDays lists the days with at least one archive, oldest first.
func (l *Lifecycle) ArchivedDays() ([]string, error) {
	return l.days(storage.ArchiveDir)
}

func (l *Lifecycle) days(dir string) ([]string, error) {
	paths, err := l.store.ListCollections(dir, "*_ranked*.jsonl")
	if err != nil {
		return nil, err
	}
	var out []string
	seen := map[string]bool{}
	for _, p := range paths {
		day, ok := storage.DayFromPath(p)
		if !ok || seen[day] {
			continue
		}
		seen[day] = true
		out = append(out, day)
	}
	return out, nil
}

// ArchiveStale archives every active day collection older than today, for
// days whose generation never ran.
func (l *Lifecycle) ArchiveStale(ctx context.Context) ([]string, error) {
	days, err := l.ActiveDays()
	if err != nil {
		return nil, err
	}
	today := l.Today()
	var archived []string
	for _, day := range days {
		if day >= today {
			continue
		}
		path, err := l.ArchiveDay(ctx, day)
		if err != nil {
			return archived, err
		}
		archived = append(archived, path)
	}
	return archived, nil
}

// Prune deletes archives older than the retention window.
func (l *Lifecycle) Prune(ctx context.Context) (int, error) {
	if l.retentionDays <= 0 {
		return 0, nil
	}
	cutoff := storage.DayKey(l.now().AddDate(0, 0, -l.retentionDays), l.location)
	paths, err := l.store.ListCollections(storage.ArchiveDir, "*_ranked*.jsonl")
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range paths {
		day, ok := storage.DayFromPath(p)
		if !ok || day >= cutoff {
			continue
		}
		if err := l.store.RemoveCollection(ctx, p); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		l.logger.Info("pruned archives", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}

// Archive archives stale day collections and, when prune is set, drops
// archives past the retention window.
func (l *Lifecycle) Archive(ctx context.Context, prune bool) (domain.StageReport, error) {
	report := domain.NewStageReport(StageArchive)

	archived, err := l.ArchiveStale(ctx)
	report.Attempted += len(archived)
	report.Succeeded += len(archived)
	if err != nil {
		return report, err
	}
	report.Note("archived", len(archived))

	if prune {
		removed, err := l.Prune(ctx)
		report.Attempted += removed
		report.Succeeded += removed
		if err != nil {
			return report, err
		}
		report.Note("pruned", removed)
	}
	if report.Attempted == 0 {
		report.Skipped = 1
	}
	return report, nil
}
