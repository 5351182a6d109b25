package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/key4hep/avalanche-go/eventslot"
	"github.com/key4hep/avalanche-go/precedence"
	"github.com/stretchr/testify/require"
)

// fakeAlgorithm is a deterministic Algorithm used by the test pool: it
// always accepts, and optionally reports the slot it ran against.
type fakeAlgorithm struct {
	name        string
	inputs      []string
	outputs     []string
	blocking    bool
	accelerated bool
	seen        chan string
}

func (a *fakeAlgorithm) Name() string            { return a.name }
func (a *fakeAlgorithm) Cardinality() int        { return 1 }
func (a *fakeAlgorithm) IsClonable() bool        { return false }
func (a *fakeAlgorithm) IsBlocking() bool        { return a.blocking }
func (a *fakeAlgorithm) IsAsynchronous() bool    { return false }
func (a *fakeAlgorithm) InputDataIDs() []string  { return a.inputs }
func (a *fakeAlgorithm) OutputDataIDs() []string { return a.outputs }
func (a *fakeAlgorithm) Rank() uint32            { return 0 }

func (a *fakeAlgorithm) Run(_ context.Context, _ eventslot.EventContext) (RunResult, error) {
	if a.seen != nil {
		a.seen <- a.name
	}
	return Accepted, nil
}

// fakePool hands back the one instance registered per name; Release is a
// no-op, since these tests never exercise genuine resource contention.
type fakePool struct {
	algs map[string]Algorithm
}

func newFakePool(algs ...Algorithm) *fakePool {
	p := &fakePool{algs: make(map[string]Algorithm, len(algs))}
	for _, a := range algs {
		p.algs[a.Name()] = a
	}
	return p
}

func (p *fakePool) Acquire(name string) (AlgorithmHandle, Algorithm, bool) {
	a, ok := p.algs[name]
	return name, a, ok
}

func (p *fakePool) Release(AlgorithmHandle) {}

func buildChain(t *testing.T) *precedence.Graph {
	t.Helper()
	b := precedence.NewGraphBuilder("head", precedence.DecisionFlags{})
	b.AddAlgorithm(b.Head(), precedence.AlgorithmSpec{Name: "a", Outputs: []string{"x"}})
	b.AddAlgorithm(b.Head(), precedence.AlgorithmSpec{Name: "b", Inputs: []string{"x"}})
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestScheduler_linearChainRunsToCompletion(t *testing.T) {
	g := buildChain(t)
	seen := make(chan string, 8)
	pool := newFakePool(
		&fakeAlgorithm{name: "a", outputs: []string{"x"}, seen: seen},
		&fakeAlgorithm{name: "b", inputs: []string{"x"}, seen: seen},
	)

	s := New(g, pool, WithSlotCount(1), WithThreadPoolSize(2))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.NoError(t, s.PushNewEvent(ctx, eventslot.NewEventContext(uuid.Nil, 1)))

	ec, err := popFinished(t, s, time.After(2*time.Second))
	require.NoError(t, err)
	require.False(t, ec.Failed)
}

func TestScheduler_bypassArenaRunsInline(t *testing.T) {
	g := buildChain(t)
	pool := newFakePool(
		&fakeAlgorithm{name: "a", outputs: []string{"x"}},
		&fakeAlgorithm{name: "b", inputs: []string{"x"}},
	)

	s := New(g, pool, WithSlotCount(1), WithThreadPoolSize(-100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.NoError(t, s.PushNewEvent(ctx, eventslot.NewEventContext(uuid.Nil, 1)))

	ec, err := popFinished(t, s, time.After(2*time.Second))
	require.NoError(t, err)
	require.False(t, ec.Failed)
}

func TestScheduler_stallWhenDependencyNeverProduced(t *testing.T) {
	b := precedence.NewGraphBuilder("head", precedence.DecisionFlags{})
	b.AddAlgorithm(b.Head(), precedence.AlgorithmSpec{Name: "needs-y", Inputs: []string{"y"}})
	g, err := b.Build()
	require.NoError(t, err)

	pool := newFakePool(&fakeAlgorithm{name: "needs-y", inputs: []string{"y"}})
	s := New(g, pool, WithSlotCount(1), WithThreadPoolSize(-100))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.NoError(t, s.PushNewEvent(ctx, eventslot.NewEventContext(uuid.Nil, 1)))

	ec, err := popFinished(t, s, time.After(2*time.Second))
	require.NoError(t, err)
	require.True(t, ec.Failed)
}

// flakyPool fails the first acquisition of a chosen algorithm name,
// exercising the RESOURCELESS retry path: tryEnqueue sets RESOURCELESS
// on a failed Acquire, and enqueueReady's RESOURCELESS scan, later in the
// same pass, retries it (the second attempt succeeds).
type flakyPool struct {
	algs    map[string]Algorithm
	flaky   string
	attempt int
}

func (p *flakyPool) Acquire(name string) (AlgorithmHandle, Algorithm, bool) {
	if name == p.flaky {
		p.attempt++
		if p.attempt < 2 {
			return nil, nil, false
		}
	}
	a, ok := p.algs[name]
	return name, a, ok
}

func (p *flakyPool) Release(AlgorithmHandle) {}

func TestScheduler_resourcelessAlgorithmRetriesOnNextPass(t *testing.T) {
	b := precedence.NewGraphBuilder("head", precedence.DecisionFlags{Concurrent: true})
	b.AddAlgorithm(b.Head(), precedence.AlgorithmSpec{Name: "a", Outputs: []string{"x"}})
	b.AddAlgorithm(b.Head(), precedence.AlgorithmSpec{Name: "b", Inputs: []string{"x"}})
	b.AddAlgorithm(b.Head(), precedence.AlgorithmSpec{Name: "filler"})
	g, err := b.Build()
	require.NoError(t, err)

	pool := &flakyPool{
		flaky: "b",
		algs: map[string]Algorithm{
			"a":      &fakeAlgorithm{name: "a", outputs: []string{"x"}},
			"b":      &fakeAlgorithm{name: "b", inputs: []string{"x"}},
			"filler": &fakeAlgorithm{name: "filler"},
		},
	}

	s := New(g, pool, WithSlotCount(1), WithThreadPoolSize(-100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.NoError(t, s.PushNewEvent(ctx, eventslot.NewEventContext(uuid.Nil, 1)))

	ec, err := popFinished(t, s, time.After(2*time.Second))
	require.NoError(t, err)
	require.False(t, ec.Failed)
	require.GreaterOrEqual(t, pool.attempt, 2)
}

func TestScheduler_blockingAlgorithmRunsToCompletion(t *testing.T) {
	b := precedence.NewGraphBuilder("head", precedence.DecisionFlags{})
	b.AddAlgorithm(b.Head(), precedence.AlgorithmSpec{
		Name:  "locked",
		Flags: precedence.AlgorithmFlags{Blocking: true},
	})
	g, err := b.Build()
	require.NoError(t, err)

	pool := newFakePool(&fakeAlgorithm{name: "locked", blocking: true})
	s := New(g, pool, WithSlotCount(1), WithThreadPoolSize(2), WithMaxBlockingAlgosInFlight(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.NoError(t, s.PushNewEvent(ctx, eventslot.NewEventContext(uuid.Nil, 1)))

	ec, err := popFinished(t, s, time.After(2*time.Second))
	require.NoError(t, err)
	require.False(t, ec.Failed)
}

func popFinished(t *testing.T, s *Scheduler, deadline <-chan time.Time) (eventslot.EventContext, error) {
	t.Helper()
	for {
		if ec, ok := s.TryPopFinishedEvent(); ok {
			return ec, nil
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for finished event")
			return eventslot.EventContext{}, nil
		case <-time.After(time.Millisecond):
		}
	}
}
