package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/codam/web-greeter/pkg/errors"
)

func newMemoryCache(t *testing.T) *MemoryCacheRepository {
	t.Helper()
	repo := NewMemoryCacheRepository()
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestMemoryCacheRepositoryRoundTripAndExpiry(t *testing.T) {
	repo := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "exams", []int{1, 2}, 50*time.Millisecond))

	var got []int
	require.NoError(t, repo.Get(ctx, "exams", &got))
	assert.Equal(t, []int{1, 2}, got)

	require.Eventually(t, func() bool {
		return errors.Is(repo.Get(ctx, "exams", &got), appErrors.ErrCacheMiss)
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return repo.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryCacheRepositoryReadsDoNotExtendTTL(t *testing.T) {
	repo := newMemoryCache(t)
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "exam-mode-hosts", []string{"f1r1s1"}, 80*time.Millisecond))

	deadline := time.Now().Add(80 * time.Millisecond)
	var got []string
	for time.Now().Before(deadline.Add(-20 * time.Millisecond)) {
		require.NoError(t, repo.Get(ctx, "exam-mode-hosts", &got))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return errors.Is(repo.Get(ctx, "exam-mode-hosts", &got), appErrors.ErrCacheMiss)
	}, 200*time.Millisecond, 5*time.Millisecond)
}

func TestMemoryCacheRepositoryCloseIsIdempotent(t *testing.T) {
	repo := NewMemoryCacheRepository()
	assert.NoError(t, repo.Close())
	assert.NoError(t, repo.Close())
}

func TestMemoryCacheRepositoryReturnsCopies(t *testing.T) {
	repo := newMemoryCache(t)
	ctx := context.Background()
	value := map[string]string{"a": "1"}
	require.NoError(t, repo.Set(ctx, "k", value, 0))
	value["a"] = "changed"

	var got map[string]string
	require.NoError(t, repo.Get(ctx, "k", &got))
	assert.Equal(t, "1", got["a"])
}

func TestMemoryCacheRepositoryDeleteByPattern(t *testing.T) {
	repo := newMemoryCache(t)
	ctx := context.Background()
	for _, key := range []string{"user-image:a", "user-image:b", "events"} {
		require.NoError(t, repo.Set(ctx, key, key, time.Minute))
	}

	require.NoError(t, repo.DeleteByPattern(ctx, "user-image:*"))
	assert.Equal(t, 1, repo.Len())

	assert.Error(t, repo.DeleteByPattern(ctx, "[bad"))
}

func TestMemoryCacheRepositoryMiss(t *testing.T) {
	var dest string
	err := newMemoryCache(t).Get(context.Background(), "nope", &dest)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}
