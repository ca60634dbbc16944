package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRequiresStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})

	_, err := q.Enqueue("events")
	assert.Error(t, err)
}

func TestQueueRunsJobs(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	q := NewQueue("test", func(_ context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.Key)
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, key := range []string{"events", "exams"} {
		ok, err := q.Enqueue(key)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"events", "exams"}, seen)
}

func TestQueueDeduplicatesPendingKeys(t *testing.T) {
	release := make(chan struct{})
	var runs atomic.Int32
	q := NewQueue("test", func(context.Context, Job) error {
		runs.Add(1)
		<-release
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	ok, err := q.Enqueue("events")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = q.Enqueue("events")
	require.NoError(t, err)
	assert.False(t, ok)

	close(release)
	require.Eventually(t, func() bool {
		ok, err := q.Enqueue("events")
		return err == nil && ok
	}, time.Second, 5*time.Millisecond)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts atomic.Int32
	q := NewQueue("test", func(_ context.Context, job Job) error {
		attempts.Add(1)
		if job.Attempt < 2 {
			return errors.New("upstream down")
		}
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue("exams")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return attempts.Load() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	q := NewQueue("test", func(context.Context, Job) error {
		attempts.Add(1)
		return errors.New("always failing")
	}, QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue("events")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return attempts.Load() == 3 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		ok, err := q.Enqueue("events")
		return err == nil && ok
	}, time.Second, 5*time.Millisecond)
}
