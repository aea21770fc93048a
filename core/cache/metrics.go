package cache

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/trezcool/masomo-portal/core/cache"

// Stats is a snapshot of the cache counters.
type Stats struct {
	Hits          int64
	Misses        int64
	Invalidations int64
	FetchErrors   int64
	Evictions     int64
}

type metrics struct {
	hits, misses, invalidations, fetchErrors, evictions atomic.Int64

	hitCounter          metric.Int64Counter
	missCounter         metric.Int64Counter
	invalidationCounter metric.Int64Counter
	fetchErrorCounter   metric.Int64Counter
	evictionCounter     metric.Int64Counter
}

func newMetrics() *metrics {
	meter := otel.Meter(meterName)
	m := new(metrics)
	m.hitCounter, _ = meter.Int64Counter("masomo.cache.hits",
		metric.WithDescription("Number of cache lookups served from the cache"))
	m.missCounter, _ = meter.Int64Counter("masomo.cache.misses",
		metric.WithDescription("Number of cache lookups that found no valid entry"))
	m.invalidationCounter, _ = meter.Int64Counter("masomo.cache.invalidations",
		metric.WithDescription("Number of entries removed by invalidation"))
	m.fetchErrorCounter, _ = meter.Int64Counter("masomo.cache.fetch_errors",
		metric.WithDescription("Number of failed fetches on cache miss"))
	m.evictionCounter, _ = meter.Int64Counter("masomo.cache.evictions",
		metric.WithDescription("Number of entries evicted by the size bound"))
	return m
}

func add(c metric.Int64Counter, n int64) {
	if c != nil && n > 0 {
		c.Add(context.Background(), n)
	}
}

func (m *metrics) hit() {
	m.hits.Add(1)
	add(m.hitCounter, 1)
}

func (m *metrics) miss() {
	m.misses.Add(1)
	add(m.missCounter, 1)
}

func (m *metrics) invalidate(n int) {
	m.invalidations.Add(int64(n))
	add(m.invalidationCounter, int64(n))
}

func (m *metrics) fetchError() {
	m.fetchErrors.Add(1)
	add(m.fetchErrorCounter, 1)
}

func (m *metrics) evict() {
	m.evictions.Add(1)
	add(m.evictionCounter, 1)
}

func (m *metrics) snapshot() Stats {
	return Stats{
		Hits:          m.hits.Load(),
		Misses:        m.misses.Load(),
		Invalidations: m.invalidations.Load(),
		FetchErrors:   m.fetchErrors.Load(),
		Evictions:     m.evictions.Load(),
	}
}
