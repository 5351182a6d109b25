package scheduler

import (
	"context"
	"time"

	"github.com/joeycumines/go-microbatch"
)

// OccupancySnapshot is delivered to an OccupancyCallback: a timestamp plus
// the current per-state algorithm counts, summed across all slots.
type OccupancySnapshot struct {
	Timestamp time.Time
	Counts    map[string]int
}

// OccupancyCallback receives occupancy snapshots from RecordOccupancy.
type OccupancyCallback func(OccupancySnapshot)

// occupancyTick is the microbatch job type; it carries no payload because
// the snapshot is assembled from the scheduler's live atomic counters at
// flush time, not from the individual events that triggered submission.
type occupancyTick struct{}

// OccupancySampler batches algorithm state-change notifications through a
// microbatch.Batcher and invokes a user callback once per flush.
// intervalMs == 0 configures MaxSize: 1, so every state change flushes
// immediately; intervalMs > 0 relies on the batcher's FlushInterval to
// coalesce the notifications accumulated during that window.
type OccupancySampler struct {
	sched   *Scheduler
	batcher *microbatch.Batcher[occupancyTick]
	cb      OccupancyCallback
}

func newOccupancySampler(sched *Scheduler, intervalMs int, cb OccupancyCallback) *OccupancySampler {
	cfg := &microbatch.BatcherConfig{MaxConcurrency: 1}
	if intervalMs <= 0 {
		cfg.MaxSize = 1
		cfg.FlushInterval = -1
	} else {
		cfg.FlushInterval = time.Duration(intervalMs) * time.Millisecond
		cfg.MaxSize = 1 << 20
	}

	o := &OccupancySampler{sched: sched, cb: cb}
	o.batcher = microbatch.NewBatcher(cfg, o.flush)
	return o
}

func (o *OccupancySampler) flush(_ context.Context, ticks []occupancyTick) error {
	if o.cb == nil || len(ticks) == 0 {
		return nil
	}
	o.cb(OccupancySnapshot{
		Timestamp: time.Now(),
		Counts:    o.sched.snapshotAlgStateCounts(),
	})
	return nil
}

// notify submits one occupancy tick. Called by the activation goroutine
// once per completed algorithm (from completeTask); other state
// transitions submit no tick.
func (o *OccupancySampler) notify(ctx context.Context) {
	if o == nil {
		return
	}
	_, _ = o.batcher.Submit(ctx, occupancyTick{})
}

// Close stops the underlying batcher, waiting for any in-flight flush.
func (o *OccupancySampler) Close() error {
	if o == nil {
		return nil
	}
	return o.batcher.Close()
}
