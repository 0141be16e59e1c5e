package biz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradementor/tradementor/internal/model"
)

func TestMemoryBrokerExpiry(t *testing.T) {
	now := time.Now()
	b := NewMemoryBroker()
	b.now = func() time.Time { return now }

	id := b.Submit(&model.QueryRequest{Question: "what is RSI?"})

	now = now.Add(jobTTL + time.Second)
	_, ok := b.Consume(id)
	assert.False(t, ok, "expired job must not be consumable")
}

func TestMemoryBrokerSweepOnSubmit(t *testing.T) {
	now := time.Now()
	b := NewMemoryBroker()
	b.now = func() time.Time { return now }

	stale := b.Submit(&model.QueryRequest{Question: "old"})

	now = now.Add(jobTTL + time.Second)
	fresh := b.Submit(&model.QueryRequest{Question: "new"})

	require.Len(t, b.jobs, 1)
	_, stillThere := b.jobs[stale]
	assert.False(t, stillThere)
	_, ok := b.Consume(fresh)
	assert.True(t, ok)
}

func TestMemoryBrokerConsumeJustBeforeTTL(t *testing.T) {
	now := time.Now()
	b := NewMemoryBroker()
	b.now = func() time.Time { return now }

	id := b.Submit(&model.QueryRequest{Question: "q"})

	now = now.Add(jobTTL - time.Second)
	_, ok := b.Consume(id)
	assert.True(t, ok)
}
