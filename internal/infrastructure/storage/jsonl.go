package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

const maxLineBytes = 16 << 20

// ReadReport describes what ReadAll saw besides the decoded records.
type ReadReport struct {
	Lines     int
	Malformed int
}

// UpsertResult counts how an upsert changed the collection.
type UpsertResult struct {
	Inserted int
	Replaced int
	Total    int
}

type validator interface {
	Validate() error
}

// JSONL is a typed line-delimited JSON collection. Records implementing
// Validate() error are checked on read; failing lines count as malformed.
type JSONL[T any] struct {
	store *Store
	rel   string
}

// Collection binds a typed view to the collection file at rel.
func Collection[T any](s *Store, rel string) *JSONL[T] {
	return &JSONL[T]{store: s, rel: rel}
}

// Rel returns the collection path relative to the data directory.
func (c *JSONL[T]) Rel() string { return c.rel }

// Exists reports whether the collection file is present.
func (c *JSONL[T]) Exists() bool { return c.store.Exists(c.rel) }

// ReadAll decodes every well-formed record in file order. Blank lines are
// ignored, malformed ones are skipped with a warning, and a missing file
// reads as empty.
func (c *JSONL[T]) ReadAll(ctx context.Context) ([]T, ReadReport, error) {
	var report ReadReport
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	f, err := os.Open(c.store.Path(c.rel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, report, nil
		}
		return nil, report, unavailable("open", c.rel, err)
	}
	defer f.Close()

	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		report.Lines++

		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			report.Malformed++
			c.store.logger.Warn("skipping malformed line", "collection", c.rel, "line", report.Lines, "error", err)
			continue
		}
		if v, ok := any(rec).(validator); ok {
			if err := v.Validate(); err != nil {
				report.Malformed++
				c.store.logger.Warn("skipping invalid record", "collection", c.rel, "line", report.Lines, "error", err)
				continue
			}
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, report, unavailable("read", c.rel, err)
	}
	return out, report, nil
}

// Append adds records at the end of the collection without deduplication.
// Existing bytes are carried over verbatim.
func (c *JSONL[T]) Append(ctx context.Context, records []T) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	lines, err := encodeLines(records)
	if err != nil {
		return fmt.Errorf("append %s: %w", c.rel, err)
	}

	existing, err := os.ReadFile(c.store.Path(c.rel))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return unavailable("read", c.rel, err)
	}

	return c.store.writeAtomic(c.rel, func(w *bufio.Writer) error {
		if len(existing) > 0 {
			if _, err := w.Write(existing); err != nil {
				return err
			}
			if existing[len(existing)-1] != '\n' {
				if err := w.WriteByte('\n'); err != nil {
					return err
				}
			}
		}
		_, err := w.Write(lines)
		return err
	})
}

// Overwrite replaces the collection with exactly records.
func (c *JSONL[T]) Overwrite(ctx context.Context, records []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lines, err := encodeLines(records)
	if err != nil {
		return fmt.Errorf("overwrite %s: %w", c.rel, err)
	}
	return c.store.writeAtomic(c.rel, func(w *bufio.Writer) error {
		_, err := w.Write(lines)
		return err
	})
}

// Upsert merges incoming into the collection by key with incoming winning.
func (c *JSONL[T]) Upsert(ctx context.Context, incoming []T, key func(T) string) (UpsertResult, error) {
	return c.UpsertFunc(ctx, incoming, key, nil)
}

// UpsertFunc merges incoming by key. Existing order is kept, matching records
// are replaced in place with resolve(existing, incoming), and new keys are
// appended in incoming order. A nil resolve lets incoming win.
func (c *JSONL[T]) UpsertFunc(ctx context.Context, incoming []T, key func(T) string, resolve func(existing, incoming T) T) (UpsertResult, error) {
	existing, _, err := c.ReadAll(ctx)
	if err != nil {
		return UpsertResult{}, err
	}
	merged, result := MergeByKey(existing, incoming, key, resolve)
	if err := c.Overwrite(ctx, merged); err != nil {
		return UpsertResult{}, err
	}
	return result, nil
}

// Remove drops every record for which drop returns true and reports how many
// were removed. Malformed lines are not carried over.
func (c *JSONL[T]) Remove(ctx context.Context, drop func(T) bool) (int, error) {
	records, _, err := c.ReadAll(ctx)
	if err != nil {
		return 0, err
	}
	kept := records[:0:0]
	for _, rec := range records {
		if !drop(rec) {
			kept = append(kept, rec)
		}
	}
	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := c.Overwrite(ctx, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// MergeByKey is the in-memory half of UpsertFunc. The result is key-unique.
func MergeByKey[T any](existing, incoming []T, key func(T) string, resolve func(existing, incoming T) T) ([]T, UpsertResult) {
	var result UpsertResult
	merged := make([]T, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))

	for _, rec := range existing {
		k := key(rec)
		if pos, ok := index[k]; ok {
			merged[pos] = rec
			continue
		}
		index[k] = len(merged)
		merged = append(merged, rec)
	}

	for _, rec := range incoming {
		k := key(rec)
		if pos, ok := index[k]; ok {
			if resolve != nil {
				merged[pos] = resolve(merged[pos], rec)
			} else {
				merged[pos] = rec
			}
			result.Replaced++
			continue
		}
		index[k] = len(merged)
		merged = append(merged, rec)
		result.Inserted++
	}

	result.Total = len(merged)
	return merged, result
}

func encodeLines[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	for i, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
