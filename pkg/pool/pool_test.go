package pool_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradementor/tradementor/pkg/pool"
)

func TestSubmitRunsTask(t *testing.T) {
	p, err := pool.New("test", nil)
	require.NoError(t, err)
	defer p.Release()

	done := make(chan struct{})
	require.NoError(t, p.Submit(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}

	assert.Eventually(t, func() bool {
		return p.Stats().CompletedTasks == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), p.Stats().SubmittedTasks)
}

func TestSubmittedCountsQueuedAndRejectedTasks(t *testing.T) {
	p, err := pool.New("test", &pool.Config{
		Capacity:       1,
		ExpiryDuration: time.Second,
		Nonblocking:    true,
	})
	require.NoError(t, err)
	defer p.Release()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(func() {
		close(started)
		<-release
	}))
	<-started

	err = p.Submit(func() {})
	assert.ErrorIs(t, err, pool.ErrPoolOverload)

	stats := p.Stats()
	assert.Equal(t, int64(2), stats.SubmittedTasks, "rejected submits still count as submitted")
	assert.Equal(t, int64(1), stats.RejectedTasks)

	close(release)
}

func TestSubmitAfterRelease(t *testing.T) {
	p, err := pool.New("test", nil)
	require.NoError(t, err)

	p.Release()
	assert.ErrorIs(t, p.Submit(func() {}), pool.ErrPoolClosed)
}

func TestPanicRecovered(t *testing.T) {
	p, err := pool.New("test", nil)
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.Submit(func() { panic("boom") }))

	assert.Eventually(t, func() bool {
		stats := p.Stats()
		return stats.PanicRecovered == 1 && stats.FailedTasks == 1
	}, 2*time.Second, 10*time.Millisecond)
}
