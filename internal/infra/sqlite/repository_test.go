package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	job := domain.NewJob("tok-1", "https://example.com/watch?v=abc")
	require.NoError(t, repo.Create(ctx, job))

	got, err := repo.GetByID(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.JobStateStart, got.State)
	assert.Nil(t, got.CompletedAt)

	job.Title = "Song"
	job.ResolvedTier = 3
	job.Degraded = true
	job.MarkDone()
	require.NoError(t, repo.Update(ctx, job))

	got, err = repo.GetByID(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "Song", got.Title)
	assert.Equal(t, domain.JobStateDone, got.State)
	assert.Equal(t, 3, got.ResolvedTier)
	assert.True(t, got.Degraded)
	require.NotNil(t, got.CompletedAt)
}

func TestRepositoryFailedRecord(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	job := domain.NewJob("tok-2", "https://example.com")
	require.NoError(t, repo.Create(ctx, job))

	job.MarkFailed(fmt.Errorf("%w: Video unavailable", domain.ErrExtractionFailed))
	require.NoError(t, repo.Update(ctx, job))

	got, err := repo.GetByID(ctx, "tok-2")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateFailed, got.State)
	assert.Equal(t, domain.KindExtractionFailed, got.ErrorKind)
	assert.Contains(t, got.Error, "Video unavailable")
}

func TestRepositoryGetMissing(t *testing.T) {
	got, err := newTestRepository(t).GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepositoryUpdateMissing(t *testing.T) {
	err := newTestRepository(t).Update(context.Background(), domain.NewJob("nope", "u"))
	assert.Error(t, err)
}

func TestRepositoryCountByState(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	for i := 0; i < 3; i++ {
		job := domain.NewJob(fmt.Sprintf("done-%d", i), "u")
		require.NoError(t, repo.Create(ctx, job))
		job.MarkDone()
		require.NoError(t, repo.Update(ctx, job))
	}
	failed := domain.NewJob("failed", "u")
	require.NoError(t, repo.Create(ctx, failed))
	failed.MarkFailed(errors.New("boom"))
	require.NoError(t, repo.Update(ctx, failed))

	counts, err := repo.CountByState(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"done": 3, "failed": 1}, counts)
}

func TestRepositoryDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	old := domain.NewJob("old", "u")
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, domain.NewJob("new", "u")))

	n, err := repo.DeleteOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.GetByID(ctx, "new")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
