// Package metrics keeps in-process counters for the knowledge service,
// exposed through the /stats endpoint.
package metrics

import (
	"sync"
	"sync/atomic"
)

// Metrics holds the service counters. All methods are safe for
// concurrent use.
type Metrics struct {
	queries       atomic.Int64
	queryErrors   atomic.Int64
	cacheHits     atomic.Int64
	retrievals    atomic.Int64
	llmCalls      atomic.Int64
	llmTokens     atomic.Int64
	jobsSubmitted atomic.Int64
	jobsConsumed  atomic.Int64
	jobsExpired   atomic.Int64
}

var (
	instance *Metrics
	once     sync.Once
)

// Default returns the process-wide metrics instance.
func Default() *Metrics {
	once.Do(func() {
		instance = &Metrics{}
	})
	return instance
}

func (m *Metrics) IncQueries()     { m.queries.Add(1) }
func (m *Metrics) IncQueryErrors() { m.queryErrors.Add(1) }
func (m *Metrics) IncCacheHits()   { m.cacheHits.Add(1) }
func (m *Metrics) IncRetrievals()  { m.retrievals.Add(1) }

// IncLLMCall records one chat completion and its total token usage.
func (m *Metrics) IncLLMCall(tokens int) {
	m.llmCalls.Add(1)
	if tokens > 0 {
		m.llmTokens.Add(int64(tokens))
	}
}

func (m *Metrics) IncJobsSubmitted()    { m.jobsSubmitted.Add(1) }
func (m *Metrics) IncJobsConsumed()     { m.jobsConsumed.Add(1) }
func (m *Metrics) AddJobsExpired(n int) { m.jobsExpired.Add(int64(n)) }

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Queries       int64 `json:"queries"`
	QueryErrors   int64 `json:"query_errors"`
	CacheHits     int64 `json:"cache_hits"`
	Retrievals    int64 `json:"retrievals"`
	LLMCalls      int64 `json:"llm_calls"`
	LLMTokens     int64 `json:"llm_tokens"`
	JobsSubmitted int64 `json:"jobs_submitted"`
	JobsConsumed  int64 `json:"jobs_consumed"`
	JobsExpired   int64 `json:"jobs_expired"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Queries:       m.queries.Load(),
		QueryErrors:   m.queryErrors.Load(),
		CacheHits:     m.cacheHits.Load(),
		Retrievals:    m.retrievals.Load(),
		LLMCalls:      m.llmCalls.Load(),
		LLMTokens:     m.llmTokens.Load(),
		JobsSubmitted: m.jobsSubmitted.Load(),
		JobsConsumed:  m.jobsConsumed.Load(),
		JobsExpired:   m.jobsExpired.Load(),
	}
}
