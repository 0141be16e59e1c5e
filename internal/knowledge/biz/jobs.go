package biz

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tradementor/tradementor/internal/knowledge/metrics"
	"github.com/tradementor/tradementor/internal/model"
)

// jobTTL bounds how long a submitted query waits for its stream to be
// opened.
const jobTTL = 300 * time.Second

// jobIDLen is the job identifier length in hex characters.
const jobIDLen = 12

// JobBroker hands a submitted query payload to exactly one stream
// consumer. Implementations must be safe for concurrent use.
type JobBroker interface {
	// Submit stores the payload and returns its job ID.
	Submit(req *model.QueryRequest) string

	// Consume returns the payload for jobID at most once. A missing,
	// expired or already consumed job reports ok=false; callers cannot
	// tell those cases apart.
	Consume(jobID string) (*model.QueryRequest, bool)
}

type jobEntry struct {
	payload   *model.QueryRequest
	createdAt time.Time
	consumed  bool
}

// MemoryBroker is the in-process JobBroker. Expiry is lazy: stale
// entries are swept on each Submit, there is no background sweeper.
type MemoryBroker struct {
	mu      sync.Mutex
	jobs    map[string]*jobEntry
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
}

var _ JobBroker = (*MemoryBroker)(nil)

// NewMemoryBroker creates an empty broker with the standard TTL.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		jobs:    make(map[string]*jobEntry),
		ttl:     jobTTL,
		now:     time.Now,
		metrics: metrics.Default(),
	}
}

func newJobID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:jobIDLen]
}

// Submit implements JobBroker.
func (b *MemoryBroker) Submit(req *model.QueryRequest) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sweepLocked()

	id := newJobID()
	for _, exists := b.jobs[id]; exists; _, exists = b.jobs[id] {
		id = newJobID()
	}
	b.jobs[id] = &jobEntry{payload: req, createdAt: b.now()}
	b.metrics.IncJobsSubmitted()
	return id
}

// Consume implements JobBroker.
func (b *MemoryBroker) Consume(jobID string) (*model.QueryRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.jobs[jobID]
	if !ok || entry.consumed {
		return nil, false
	}
	if b.now().Sub(entry.createdAt) > b.ttl {
		delete(b.jobs, jobID)
		b.metrics.AddJobsExpired(1)
		return nil, false
	}

	entry.consumed = true
	b.metrics.IncJobsConsumed()
	return entry.payload, true
}

// sweepLocked deletes entries past the TTL. Caller holds b.mu.
func (b *MemoryBroker) sweepLocked() {
	cutoff := b.now().Add(-b.ttl)
	expired := 0
	for id, entry := range b.jobs {
		if entry.createdAt.Before(cutoff) {
			delete(b.jobs, id)
			expired++
		}
	}
	if expired > 0 {
		b.metrics.AddJobsExpired(expired)
	}
}
