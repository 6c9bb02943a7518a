// Package stats implements the statistics interface of spec.md §3/§10:
// non-blocking aggregation of numeric samples keyed by (stat id, item id),
// flushed periodically. Grounded on the original runtime's stats.c
// (aggregate_stat/aggregate_start_time/aggregate_end_time/
// flush_item_to_log), translated from a fixed-size C array of
// MAX_STATS=2048 samples per item into a growable slice guarded by its
// own mutex per item.
package stats

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sw1001/DeDOS/cmn/mono"
)

// StatID names a kind of statistic, mirroring the original's enum
// stat_id / stat_name table.
type StatID int

const (
	SelfTime StatID = iota
	QueueLength
	FullMSUTime
	MSUInnerTime
	ThreadLoopTime
	numStatIDs
)

func (id StatID) String() string {
	switch id {
	case SelfTime:
		return "self_time"
	case QueueLength:
		return "msu_queue_length"
	case FullMSUTime:
		return "msu_full_time"
	case MSUInnerTime:
		return "msu_inner_time"
	case ThreadLoopTime:
		return "thread_loop_time"
	default:
		return "unknown_stat"
	}
}

// Sample is one timestamped observation (spec.md §3 "Stats sample").
type Sample struct {
	Time  time.Time
	Value float64
}

// key identifies one (stat id, item id) series.
type key struct {
	stat StatID
	item uint32
}

// item is one series' in-memory buffer: an append-only log until Flush.
// Flush truncates it to empty — the original's flush_item_to_log instead
// writes item->time[0] = item->time[item->n_stats] after clearing
// n_stats, which reads one element past the samples actually gathered
// this period (n_stats indexes the *next free* slot, never itself
// written); that's not reproduced here, Flush just empties the slice.
type item struct {
	mu        sync.Mutex
	samples   []Sample
	lastFlush time.Time
}

// Tracker aggregates samples per (stat id, item id); Flush hands the
// buffered samples back to its caller, and Tracker runs no flush timer of
// its own. Add takes the tracker's map lock only to find or create the
// series (a read lock once the series exists) and then that one series'
// own mutex, so producers on different keys never share a sample buffer
// lock and never block on I/O (spec.md §10 "non-blocking aggregation").
type Tracker struct {
	mu    sync.RWMutex
	items map[key]*item
	prom  *promExporter
}

// NewTracker returns an empty Tracker. promNamespace, if non-empty,
// registers a Prometheus collector alongside the in-memory buffers
// (SPEC_FULL.md domain-stack commitment for github.com/prometheus/client_golang).
func NewTracker(promNamespace string) *Tracker {
	t := &Tracker{items: make(map[key]*item)}
	if promNamespace != "" {
		t.prom = newPromExporter(promNamespace)
	}
	return t
}

// Registry returns the Prometheus registry metrics were exported to, or
// nil if this Tracker was built without a namespace. Callers mount it
// behind promhttp.HandlerFor on the runtime's diagnostics endpoint.
func (t *Tracker) Registry() *prometheus.Registry {
	if t.prom == nil {
		return nil
	}
	return t.prom.registry
}

func (t *Tracker) entry(statID StatID, itemID uint32) *item {
	k := key{statID, itemID}
	t.mu.RLock()
	it, ok := t.items[k]
	t.mu.RUnlock()
	if ok {
		return it
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if it, ok = t.items[k]; ok {
		return it
	}
	it = &item{lastFlush: time.Now()}
	t.items[k] = it
	return it
}

// Add appends one sample, timestamped now, for (statID, itemID). This is
// the direct analogue of the original's aggregate_stat with relog=true:
// every call is recorded, no suppression of unchanged values.
func (t *Tracker) Add(statID StatID, itemID uint32, value float64) {
	it := t.entry(statID, itemID)
	it.mu.Lock()
	it.samples = append(it.samples, Sample{Time: time.Now(), Value: value})
	it.mu.Unlock()
	if t.prom != nil {
		t.prom.observe(statID, itemID, value)
	}
}

// Span returns a function that, when called, records the elapsed time
// since Span was called as a sample for (statID, itemID) — the
// aggregate_start_time/aggregate_end_time pair collapsed into one call.
func (t *Tracker) Span(statID StatID, itemID uint32) func() {
	start := mono.NanoTime()
	return func() {
		t.Add(statID, itemID, mono.Since(start).Seconds())
	}
}

// Flush drains every series with at least one sample, or only those
// whose age exceeds minAge unless force is set (a series' age counts from
// its creation or its last flush), mirroring
// flush_all_stats_to_log's "enough time has passed" gate. It returns a
// snapshot keyed by (stat, item); every flushed series is truncated to
// empty, never left holding a stray carried-over sample.
func (t *Tracker) Flush(minAge time.Duration, force bool) map[StatKey][]Sample {
	t.mu.RLock()
	snapshot := make(map[key]*item, len(t.items))
	for k, it := range t.items {
		snapshot[k] = it
	}
	t.mu.RUnlock()

	now := time.Now()
	out := make(map[StatKey][]Sample)
	for k, it := range snapshot {
		it.mu.Lock()
		due := len(it.samples) > 0 && (force || now.Sub(it.lastFlush) > minAge)
		if !due {
			it.mu.Unlock()
			continue
		}
		flushed := it.samples
		it.samples = nil
		it.lastFlush = now
		it.mu.Unlock()
		out[StatKey{StatID: k.stat, ItemID: k.item}] = flushed
	}
	return out
}

// StatKey is the exported (stat id, item id) pair used in Flush's result,
// kept distinct from the unexported key so callers outside this package
// never need to know the internal map representation.
type StatKey struct {
	StatID StatID
	ItemID uint32
}

// QueueDepthSample is the per-MSU queue-depth time series supplemented
// from control_protocol.h's msu_stats_data (SPEC_FULL.md §5): a
// current/previous pair of (items processed, memory allocated, queue
// size) the runtime reports to the controller's scheduler alongside the
// generic stat samples above.
type QueueDepthSample struct {
	MSUID           uint32
	ItemsProcessed  [2]uint64
	MemoryAllocated [2]uint64
	DataQueueSize   [2]uint64
}
