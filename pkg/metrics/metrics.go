// Package metrics implements the Rate/Errors/Duration counters the
// orchestrator exposes: task counts, cache hit/miss counts, and per-task
// latency percentiles, without an OTLP network exporter — callers that
// want OTLP wire it up themselves by passing their own *sdkmetric.MeterProvider.
package metrics

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func taskAttr(task string) attribute.KeyValue {
	return attribute.String("task", task)
}

// latencyRingSize caps the number of recent latency samples kept per task
// for percentile estimation.
const latencyRingSize = 1000

// Recorder accumulates counters and latency samples for the orchestrator
// and its specialist services. Safe for concurrent use.
type Recorder struct {
	mu sync.Mutex

	tasksTotal   map[string]int64
	tasksFailed  map[string]int64
	cacheHits    map[string]int64
	cacheMisses  map[string]int64
	latencies    map[string][]time.Duration
	latencyNext  map[string]int

	meter              metric.Meter
	otelRequestCounter metric.Int64Counter
	otelErrorCounter   metric.Int64Counter
	otelDurationHist   metric.Float64Histogram
}

// New creates a Recorder. If meter is non-nil, every recorded event is
// mirrored into the provided OpenTelemetry meter as well, so a caller
// running a real MeterProvider gets both the in-process percentiles this
// package tracks and exported time series.
func New(meter metric.Meter) (*Recorder, error) {
	r := &Recorder{
		tasksTotal:  make(map[string]int64),
		tasksFailed: make(map[string]int64),
		cacheHits:   make(map[string]int64),
		cacheMisses: make(map[string]int64),
		latencies:   make(map[string][]time.Duration),
		latencyNext: make(map[string]int),
		meter:       meter,
	}
	if meter == nil {
		return r, nil
	}

	var err error
	r.otelRequestCounter, err = meter.Int64Counter("pa_orchestrator.tasks.total",
		metric.WithDescription("Total number of orchestrator tasks processed"),
		metric.WithUnit("{task}"))
	if err != nil {
		return nil, err
	}
	r.otelErrorCounter, err = meter.Int64Counter("pa_orchestrator.tasks.failed",
		metric.WithDescription("Total number of failed orchestrator tasks"),
		metric.WithUnit("{task}"))
	if err != nil {
		return nil, err
	}
	r.otelDurationHist, err = meter.Float64Histogram("pa_orchestrator.task.duration",
		metric.WithDescription("Task duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20))
	if err != nil {
		return nil, err
	}
	return r, nil
}

// RecordTask records the completion of a named task (e.g. "get_patient_record",
// "analyze_pa_request") with its outcome and duration.
func (r *Recorder) RecordTask(ctx context.Context, task string, d time.Duration, err error) {
	r.mu.Lock()
	r.tasksTotal[task]++
	if err != nil {
		r.tasksFailed[task]++
	}
	r.appendLatencyLocked(task, d)
	r.mu.Unlock()

	if r.meter == nil {
		return
	}
	attrs := metric.WithAttributes(taskAttr(task))
	r.otelRequestCounter.Add(ctx, 1, attrs)
	if err != nil {
		r.otelErrorCounter.Add(ctx, 1, attrs)
	}
	r.otelDurationHist.Record(ctx, d.Seconds(), attrs)
}

// RecordCache records a cache lookup outcome for the named cache
// (e.g. "decision_cache", "drug_info_cache").
func (r *Recorder) RecordCache(cache string, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.cacheHits[cache]++
	} else {
		r.cacheMisses[cache]++
	}
}

func (r *Recorder) appendLatencyLocked(task string, d time.Duration) {
	buf := r.latencies[task]
	if len(buf) < latencyRingSize {
		r.latencies[task] = append(buf, d)
		return
	}
	idx := r.latencyNext[task] % latencyRingSize
	buf[idx] = d
	r.latencyNext[task] = idx + 1
}

// Snapshot is a point-in-time view of accumulated metrics for one task.
type Snapshot struct {
	Task        string
	Total       int64
	Failed      int64
	P50, P95, P99 time.Duration
}

// TaskSnapshot computes the current snapshot for a task. Percentiles are
// estimated from the most recent latencyRingSize samples.
func (r *Recorder) TaskSnapshot(task string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	samples := append([]time.Duration(nil), r.latencies[task]...)
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	return Snapshot{
		Task:   task,
		Total:  r.tasksTotal[task],
		Failed: r.tasksFailed[task],
		P50:    percentile(samples, 0.50),
		P95:    percentile(samples, 0.95),
		P99:    percentile(samples, 0.99),
	}
}

// CacheHitRate returns the hit ratio for the named cache, or 0 if no
// lookups have been recorded yet.
func (r *Recorder) CacheHitRate(cache string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	hits, misses := r.cacheHits[cache], r.cacheMisses[cache]
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
