package lock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthAgent/internal/domain"
)

func TestAcquireIsExclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "run.lock")
	first := New(path, time.Hour, nil)
	second := New(path, time.Hour, nil)

	release, err := first.Acquire(context.Background())
	require.NoError(t, err)

	_, err = second.Acquire(context.Background())
	require.ErrorIs(t, err, domain.ErrRunInProgress)

	require.NoError(t, release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	release, err = second.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, release())
}

func TestAcquireTakesOverStaleLock(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.lock")
	require.NoError(t, os.WriteFile(path, []byte(`{"pid":1}`), 0o644))
	old := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	l := New(path, time.Hour, nil)
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, release())

	fresh := New(path, 0, nil)
	require.NoError(t, os.WriteFile(path, []byte(`{"pid":1}`), 0o644))
	require.NoError(t, os.Chtimes(path, old, old))
	_, err = fresh.Acquire(context.Background())
	require.ErrorIs(t, err, domain.ErrRunInProgress, "without staleAfter a held lock is never taken over")
}
