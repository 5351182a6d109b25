package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/joeycumines/logiface"
	"github.com/key4hep/avalanche-go/algstate"
	"github.com/key4hep/avalanche-go/eventslot"
	"github.com/key4hep/avalanche-go/precedence"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	queueNormal = iota
	queueBlocking
	queueAccelerated
	numQueues
)

// State is the scheduler's own lifecycle, distinct from any individual
// algorithm's algstate.State.
type State int32

const (
	Inactive State = iota
	Active
	Failure
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "Inactive"
	case Active:
		return "Active"
	case Failure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// Scheduler is the intra-event task scheduler: a single activation
// goroutine owns every EventSlot's mutable state and drains a serialized
// actions channel; a bounded worker arena runs algorithm bodies in
// parallel and reports back only via closures posted to that same
// channel, so the slot and algorithm-state mutations it performs are
// never touched from more than one goroutine at a time.
type Scheduler struct {
	cfg   Config
	graph *precedence.Graph
	svc   *precedence.Service
	pool  AlgorithmResourcePool
	sink  *logiface.Logger[logiface.Event]

	slots        []*eventslot.EventSlot
	slotOccupied []bool
	freeSlots    atomic.Int64

	finishedEvents chan eventslot.EventContext

	// queues and seq are touched only by the activation goroutine.
	queues [numQueues]priorityQueue
	seq    uint64

	actions chan func() error

	normalSem        *semaphore.Weighted
	acceleratedSem   *semaphore.Weighted
	blockingInFlight atomic.Int64
	inFlightPerSlot  []atomic.Int64
	bypassArena      bool

	state atomic.Int32

	collector *schedulerCollector
	occupancy *OccupancySampler
	dumper    *stallDumper

	algStateGauges   []atomic.Int64 // indexed by algstate.State
	queueDepthGauges [numQueues]atomic.Int64
	stallCount       atomic.Int64
	finishedOK       atomic.Int64
	finishedFailed   atomic.Int64

	runCtx context.Context
	tasks  sync.WaitGroup // tracks in-flight algorithm-body goroutines

	closeOnce sync.Once
	done      chan struct{}
}

// New builds a Scheduler over graph, using pool to check out Algorithm
// instances by name. graph should already have passed
// GraphBuilder.Build's validators; New performs no additional topology
// validation itself.
func New(graph *precedence.Graph, pool AlgorithmResourcePool, opts ...Option) *Scheduler {
	cfg := resolveConfig(opts)

	svc := precedence.NewService(graph, precedence.WithLogSink(cfg.Logger))
	if r := cfg.Optimizer.ranker(); r != nil {
		svc.ApplyRanking(r)
	}

	s := &Scheduler{
		cfg:             cfg,
		graph:           graph,
		svc:             svc,
		pool:            pool,
		sink:            cfg.Logger,
		finishedEvents:  make(chan eventslot.EventContext, cfg.FinishedEventsBuffer),
		actions:         make(chan func() error, 256),
		inFlightPerSlot: make([]atomic.Int64, cfg.SlotCount),
		algStateGauges:  make([]atomic.Int64, algstate.NumStates()),
		done:            make(chan struct{}),
	}

	s.slots = make([]*eventslot.EventSlot, cfg.SlotCount)
	s.slotOccupied = make([]bool, cfg.SlotCount)
	for i := range s.slots {
		s.slots[i] = eventslot.New(eventslot.NewEventContext(uuid.New(), 0), graph.NumAlgorithms(), graph.NumNodes(), cfg.Logger)
	}
	s.freeSlots.Store(int64(cfg.SlotCount))

	parallelism := resolveThreadPoolSize(cfg.ThreadPoolSize)
	if parallelism == 0 {
		s.bypassArena = true
	} else {
		s.normalSem = semaphore.NewWeighted(parallelism + int64(cfg.MaxParallelismExtra) + 1)
	}
	offload := int64(cfg.NumOffloadThreads)
	if offload <= 0 {
		offload = 1
	}
	s.acceleratedSem = semaphore.NewWeighted(offload)

	if cfg.MetricsRegisterer != nil {
		s.collector = newSchedulerCollector(s)
		_ = cfg.MetricsRegisterer.Register(s.collector)
	}
	if cfg.OccupancyIntervalMs >= 0 {
		s.occupancy = newOccupancySampler(s, cfg.OccupancyIntervalMs, cfg.OccupancyCallback)
	}
	s.dumper = newStallDumper(graph, cfg.DumpWriter)

	return s
}

// resolveThreadPoolSize interprets spec.md §4.F's threadPoolSize
// encoding: -1 means "use all hardware threads", resolved against the
// cgroup CPU quota via automaxprocs rather than runtime.NumCPU(); -100
// means bypass the worker arena entirely (returns 0, every algorithm
// then runs inline on the activation goroutine).
func resolveThreadPoolSize(requested int) int64 {
	switch {
	case requested == -100:
		return 0
	case requested == -1:
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))
		return int64(runtime.GOMAXPROCS(0))
	default:
		if requested < 1 {
			return 1
		}
		return int64(requested)
	}
}

// postAction enqueues fn to run on the activation goroutine, respecting
// ctx and the scheduler's own shutdown signal.
func (s *Scheduler) postAction(ctx context.Context, fn func() error) error {
	select {
	case <-s.done:
		return ErrSchedulerShutdown
	default:
	}
	select {
	case s.actions <- fn:
		return nil
	case <-s.done:
		return ErrSchedulerShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) reserveSlots(n int64) bool {
	for {
		cur := s.freeSlots.Load()
		if cur < n {
			return false
		}
		if s.freeSlots.CompareAndSwap(cur, cur-n) {
			return true
		}
	}
}

// PushNewEvent allocates a free slot for ec, initializes it, and enqueues
// the Root activation cause.
func (s *Scheduler) PushNewEvent(ctx context.Context, ec eventslot.EventContext) error {
	if State(s.state.Load()) == Failure {
		return fmt.Errorf("%w: scheduler in Failure state", ErrSchedulerShutdown)
	}
	if !s.reserveSlots(1) {
		return ErrSlotUnavailable
	}
	return s.postAction(ctx, func() error { return s.activateNewEvent(ec) })
}

// PushNewEvents allocates slots for every context in batch, atomically:
// if fewer free slots exist than len(batch), none are allocated.
func (s *Scheduler) PushNewEvents(ctx context.Context, batch []eventslot.EventContext) error {
	if State(s.state.Load()) == Failure {
		return fmt.Errorf("%w: scheduler in Failure state", ErrSchedulerShutdown)
	}
	if len(batch) == 0 {
		return nil
	}
	if !s.reserveSlots(int64(len(batch))) {
		return ErrSlotUnavailable
	}
	for _, ec := range batch {
		ec := ec
		if err := s.postAction(ctx, func() error { return s.activateNewEvent(ec) }); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) activateNewEvent(ec eventslot.EventContext) error {
	idx := -1
	for i, occupied := range s.slotOccupied {
		if !occupied {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.freeSlots.Add(1) // reservation accounting bug guard; should not happen
		return nil
	}
	ec.SlotIndex = idx
	s.slotOccupied[idx] = true
	s.slots[idx].Reset(ec)

	if s.cfg.SimulateExecution {
		if _, err := s.svc.Simulate(s.slots[idx]); err != nil && s.sink != nil {
			s.sink.Warning().Err(err).Int(`slot`, idx).Log("pre-execution simulation failed")
		}
	}

	if err := s.svc.Iterate(s.slots[idx], precedence.Cause{Kind: precedence.CauseRoot}); err != nil {
		return err
	}
	return s.afterIterate(idx)
}

// PopFinishedEvent blocks until a finished EventContext is available.
func (s *Scheduler) PopFinishedEvent(ctx context.Context) (eventslot.EventContext, error) {
	select {
	case ec := <-s.finishedEvents:
		return ec, nil
	case <-ctx.Done():
		return eventslot.EventContext{}, ctx.Err()
	}
}

// TryPopFinishedEvent returns immediately: (ctx, true) if one was ready,
// otherwise the zero value and false.
func (s *Scheduler) TryPopFinishedEvent() (eventslot.EventContext, bool) {
	select {
	case ec := <-s.finishedEvents:
		return ec, true
	default:
		return eventslot.EventContext{}, false
	}
}

// FreeSlots returns the current free-slot count.
func (s *Scheduler) FreeSlots() int { return int(s.freeSlots.Load()) }

// ScheduleEventView creates a sub-slot of the slot currently holding
// parentID, rooted at nodeName, and activates it the same way a
// top-level event is activated.
func (s *Scheduler) ScheduleEventView(ctx context.Context, parentID uuid.UUID, nodeName string, viewCtx eventslot.EventContext) error {
	return s.postAction(ctx, func() error {
		parentIdx := -1
		for i, occ := range s.slotOccupied {
			if occ && s.slots[i].Context.ID == parentID {
				parentIdx = i
				break
			}
		}
		if parentIdx < 0 {
			return fmt.Errorf("scheduler: no slot holds event %s", parentID)
		}
		if _, ok := s.graph.NodeByName(nodeName); !ok {
			return fmt.Errorf("%w: %s", precedence.ErrUnknownNode, nodeName)
		}
		sub, _ := s.slots[parentIdx].MakeSubSlot(nodeName, viewCtx)
		if err := s.svc.Iterate(sub, precedence.Cause{Kind: precedence.CauseRoot}); err != nil {
			return err
		}
		return s.afterSlotIterate(parentIdx, sub)
	})
}

// RecordOccupancy (re)configures occupancy sampling. Passing a nil
// callback disables it.
func (s *Scheduler) RecordOccupancy(intervalMs int, cb OccupancyCallback) {
	if s.occupancy != nil {
		_ = s.occupancy.Close()
	}
	if cb == nil {
		s.occupancy = nil
		return
	}
	s.occupancy = newOccupancySampler(s, intervalMs, cb)
}

// DumpState writes every occupied slot's state to the configured dump
// writer, bypassing the stall-dump rate limit.
func (s *Scheduler) DumpState() error {
	if s.cfg.DumpWriter == nil {
		return nil
	}
	for i, occ := range s.slotOccupied {
		if !occ {
			continue
		}
		if err := precedence.DumpState(s.cfg.DumpWriter, s.graph, s.slots[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) snapshotAlgStateCounts() map[string]int {
	out := make(map[string]int, len(s.algStateGauges))
	for st := algstate.INITIAL; int(st) < algstate.NumStates(); st++ {
		out[st.String()] = int(s.algStateGauges[st].Load())
	}
	return out
}

func (s *Scheduler) updateAlgStateGauges() {
	counts := make([]int64, len(s.algStateGauges))
	for i, occ := range s.slotOccupied {
		if !occ {
			continue
		}
		for st := algstate.INITIAL; int(st) < algstate.NumStates(); st++ {
			counts[st] += int64(s.slots[i].AlgStates.Count(st))
		}
	}
	for st := range counts {
		s.algStateGauges[st].Store(counts[st])
	}
}

func classifyResult(result RunResult, err error) algstate.State {
	switch {
	case err != nil || result == RunError:
		return algstate.ERROR
	case result == Accepted:
		return algstate.EVTACCEPTED
	default:
		return algstate.EVTREJECTED
	}
}

// afterIterate enqueues newly data-ready algorithms, dispatches as much
// of the queues as current capacity allows, and checks whether the slot
// has finished or stalled. It is the single re-entry point called after
// every precedence.Service.Iterate pass against a top-level event slot.
func (s *Scheduler) afterIterate(slotIdx int) error {
	return s.afterSlotIterate(slotIdx, s.slots[slotIdx])
}

// afterSlotIterate is afterIterate generalized to event-view sub-slots: it
// enqueues and dispatches work for slot itself, then, if slot is a
// sub-slot, bubbles its EntryPoint decision into its parent (see
// precedence.Service.BubbleSubSlot) and recurses upward. Recursion bottoms
// out at the owning top-level slot, where the usual finish/stall check
// runs.
func (s *Scheduler) afterSlotIterate(rootIdx int, slot *eventslot.EventSlot) error {
	if err := s.enqueueReady(rootIdx, slot); err != nil {
		return err
	}
	if err := s.dispatch(); err != nil {
		return err
	}

	if slot.ParentSlot != nil {
		if node, ok := s.graph.NodeByName(slot.EntryPoint); ok && s.svc.CFRulesResolved(slot, node.Index) {
			slot.Complete = true
		}
		if err := s.svc.BubbleSubSlot(slot); err != nil {
			return err
		}
		return s.afterSlotIterate(rootIdx, slot.ParentSlot)
	}

	s.updateAlgStateGauges()
	return s.checkSlotProgress(rootIdx, slot)
}

func (s *Scheduler) enqueueReady(slotIdx int, slot *eventslot.EventSlot) error {
	for _, algIdx := range slot.AlgStates.IndicesIn(algstate.DATAREADY) {
		if err := s.tryEnqueue(slotIdx, slot, algIdx); err != nil {
			return err
		}
	}
	for _, algIdx := range slot.AlgStates.IndicesIn(algstate.RESOURCELESS) {
		if err := s.tryEnqueue(slotIdx, slot, algIdx); err != nil {
			return err
		}
	}
	return nil
}

// tryEnqueue acquires an Algorithm instance for algIdx and, if one is
// available, pushes a TaskSpec onto the queue matching its
// blocking/accelerated classification. An algorithm that already has a
// queued TaskSpec for slot is left as it is. If no instance is available
// it records RESOURCELESS (a no-op if already there); enqueueReady's
// RESOURCELESS scan, later in the same call and on every later pass,
// retries it.
func (s *Scheduler) tryEnqueue(slotIdx int, slot *eventslot.EventSlot, algIdx int) error {
	for i := range s.queues {
		for _, queued := range s.queues[i].items {
			if queued.Slot == slot && queued.AlgIndex == algIdx {
				return nil
			}
		}
	}
	node := s.graph.AlgorithmNode(algIdx)
	handle, impl, ok := s.pool.Acquire(node.Name)
	if !ok {
		return slot.AlgStates.Set(algIdx, algstate.RESOURCELESS)
	}

	s.seq++
	t := &TaskSpec{
		AlgPtr:      impl,
		AlgIndex:    algIdx,
		AlgName:     node.Name,
		Rank:        s.svc.Priority(algIdx),
		Blocking:    s.svc.IsBlocking(algIdx),
		Accelerated: s.svc.IsAccelerated(algIdx),
		SlotIndex:   slotIdx,
		Slot:        slot,
		Context:     slot.Context,
		Handle:      handle,
		seq:         s.seq,
	}
	switch {
	case t.Accelerated:
		s.queues[queueAccelerated].push(t)
	case t.Blocking:
		s.queues[queueBlocking].push(t)
	default:
		s.queues[queueNormal].push(t)
	}
	return nil
}

// dispatch drains the three priority queues as far as current semaphore
// and blocking-in-flight capacity allows. In bypassArena mode every task
// runs synchronously, inline, on the activation goroutine itself.
func (s *Scheduler) dispatch() error {
	for {
		t := s.queues[queueAccelerated].peek()
		if t == nil {
			break
		}
		if s.bypassArena {
			s.queues[queueAccelerated].pop()
			if err := s.runInline(t, false); err != nil {
				return err
			}
			continue
		}
		if !s.acceleratedSem.TryAcquire(1) {
			break
		}
		s.queues[queueAccelerated].pop()
		if err := s.launch(t, s.acceleratedSem); err != nil {
			return err
		}
	}

	for {
		t := s.queues[queueBlocking].peek()
		if t == nil {
			break
		}
		if s.cfg.MaxBlockingAlgosInFlight > 0 && uint32(s.blockingInFlight.Load()) >= s.cfg.MaxBlockingAlgosInFlight {
			break
		}
		if s.bypassArena {
			s.queues[queueBlocking].pop()
			s.blockingInFlight.Add(1)
			if err := s.runInline(t, true); err != nil {
				return err
			}
			continue
		}
		if !s.normalSem.TryAcquire(1) {
			break
		}
		s.queues[queueBlocking].pop()
		s.blockingInFlight.Add(1)
		if err := s.launchBlocking(t); err != nil {
			return err
		}
	}

	for {
		t := s.queues[queueNormal].peek()
		if t == nil {
			break
		}
		if s.bypassArena {
			s.queues[queueNormal].pop()
			if err := s.runInline(t, false); err != nil {
				return err
			}
			continue
		}
		if !s.normalSem.TryAcquire(1) {
			break
		}
		s.queues[queueNormal].pop()
		if err := s.launch(t, s.normalSem); err != nil {
			return err
		}
	}

	for i := range s.queues {
		s.queueDepthGauges[i].Store(int64(s.queues[i].Len()))
	}
	return nil
}

func (s *Scheduler) launch(t *TaskSpec, sem *semaphore.Weighted) error {
	if err := t.Slot.AlgStates.Set(t.AlgIndex, algstate.SCHEDULED); err != nil {
		sem.Release(1)
		return err
	}
	s.inFlightPerSlot[t.SlotIndex].Add(1)
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		defer sem.Release(1)
		s.runTask(t)
	}()
	return nil
}

func (s *Scheduler) launchBlocking(t *TaskSpec) error {
	if err := t.Slot.AlgStates.Set(t.AlgIndex, algstate.SCHEDULED); err != nil {
		s.normalSem.Release(1)
		s.blockingInFlight.Add(-1)
		return err
	}
	s.inFlightPerSlot[t.SlotIndex].Add(1)
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		defer s.normalSem.Release(1)
		defer s.blockingInFlight.Add(-1)
		s.runTask(t)
	}()
	return nil
}

// runTask executes an algorithm body off the activation goroutine and
// posts its outcome back as a serialized closure, per spec.md §5's
// hybrid concurrency model.
func (s *Scheduler) runTask(t *TaskSpec) {
	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := t.AlgPtr.Run(ctx, t.Context)
	final := classifyResult(result, err)

	fn := func() error { return s.completeTask(t, final, err) }
	select {
	case s.actions <- fn:
	case <-s.done:
	}
}

// runInline executes t synchronously on the activation goroutine, used
// only when the worker arena is bypassed (ThreadPoolSize == -100).
func (s *Scheduler) runInline(t *TaskSpec, blocking bool) error {
	if err := t.Slot.AlgStates.Set(t.AlgIndex, algstate.SCHEDULED); err != nil {
		if blocking {
			s.blockingInFlight.Add(-1)
		}
		return err
	}
	s.inFlightPerSlot[t.SlotIndex].Add(1)

	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := t.AlgPtr.Run(ctx, t.Context)
	final := classifyResult(result, err)
	if blocking {
		s.blockingInFlight.Add(-1)
	}
	return s.completeTask(t, final, err)
}

// completeTask records an algorithm's outcome, runs the consequent
// precedence pass, and checks the owning slot for completion or stall.
// Always called on the activation goroutine.
func (s *Scheduler) completeTask(t *TaskSpec, final algstate.State, runErr error) error {
	s.inFlightPerSlot[t.SlotIndex].Add(-1)
	s.pool.Release(t.Handle)

	slot := t.Slot
	if final == algstate.ERROR {
		slot.Context = slot.Context.WithFailure(t.AlgName, final)
		if s.sink != nil {
			s.sink.Err().Err(runErr).Str(`algorithm`, t.AlgName).Int(`slot`, t.SlotIndex).Log("algorithm reported an error")
		}
	}

	if err := s.svc.Iterate(slot, precedence.Cause{Kind: precedence.CauseTask, AlgIndex: t.AlgIndex, FinalState: final}); err != nil {
		return err
	}
	s.occupancy.notify(context.Background())
	return s.afterSlotIterate(t.SlotIndex, slot)
}

// checkSlotProgress signs off a slot whose head decision has resolved,
// or declares a stall if no path remains to make further progress.
func (s *Scheduler) checkSlotProgress(slotIdx int, slot *eventslot.EventSlot) error {
	if !s.slotOccupied[slotIdx] {
		return nil // already signed off by a nested pass
	}
	if slot.HeadResolved(s.graph.Head()) {
		return s.finishEvent(slotIdx, slot)
	}
	if s.hasPendingWork(slotIdx, slot) {
		return nil
	}
	return s.declareStall(slotIdx, slot)
}

func (s *Scheduler) hasPendingWork(slotIdx int, slot *eventslot.EventSlot) bool {
	if s.inFlightPerSlot[slotIdx].Load() > 0 {
		return true
	}
	for i := range s.queues {
		for _, item := range s.queues[i].items {
			if item.SlotIndex == slotIdx {
				return true
			}
		}
	}
	return slotHierarchyHasReadyWork(slot)
}

// slotHierarchyHasReadyWork reports whether slot, or any still-live
// sub-slot beneath it, has an algorithm waiting to be (re-)dispatched.
// Sub-slot algorithm states live in their own AlgStateSet, so a top-level
// slot blocked only on in-progress event-view work must not be mistaken
// for a stall.
func slotHierarchyHasReadyWork(slot *eventslot.EventSlot) bool {
	if slot.AlgStates.Contains(algstate.DATAREADY) || slot.AlgStates.Contains(algstate.RESOURCELESS) {
		return true
	}
	for _, sub := range slot.SubSlots {
		if !sub.Complete && slotHierarchyHasReadyWork(sub) {
			return true
		}
	}
	return false
}

func (s *Scheduler) declareStall(slotIdx int, slot *eventslot.EventSlot) error {
	s.stallCount.Add(1)
	stallErr := &StallError{SlotIndex: slotIdx, Stuck: s.stuckAlgorithmNames(slot)}
	if s.sink != nil {
		s.sink.Err().Err(stallErr).Int(`slot`, slotIdx).Log("scheduler detected a stall")
	}
	_ = s.dumper.dump(slotIdx, slot)

	name := ""
	if len(stallErr.Stuck) > 0 {
		name = stallErr.Stuck[0]
	}
	slot.Context = slot.Context.WithFailure(name, algstate.ERROR)
	return s.finishEvent(slotIdx, slot)
}

func (s *Scheduler) stuckAlgorithmNames(slot *eventslot.EventSlot) []string {
	var names []string
	for _, st := range [...]algstate.State{algstate.INITIAL, algstate.CONTROLREADY} {
		for _, idx := range slot.AlgStates.IndicesIn(st) {
			names = append(names, s.graph.AlgorithmNode(idx).Name)
		}
	}
	return names
}

// finishEvent frees slotIdx and publishes its EventContext. The publish
// happens off the activation goroutine so a full finishedEvents buffer
// never blocks further scheduling.
func (s *Scheduler) finishEvent(slotIdx int, slot *eventslot.EventSlot) error {
	if slot.Context.Failed {
		s.finishedFailed.Add(1)
	} else {
		s.finishedOK.Add(1)
	}
	slot.Complete = true
	ec := slot.Context
	s.slotOccupied[slotIdx] = false
	s.freeSlots.Add(1)
	s.updateAlgStateGauges()

	done := s.done
	go func() {
		select {
		case s.finishedEvents <- ec:
		case <-done:
		}
	}()
	return nil
}

// Run starts the activation loop and blocks until ctx is canceled or
// Shutdown is called.
func (s *Scheduler) Run(ctx context.Context) error {
	s.runCtx = ctx
	s.state.Store(int32(Active))
	defer s.state.CompareAndSwap(int32(Active), int32(Inactive))

	for {
		select {
		case <-ctx.Done():
			_ = s.shutdownInternal()
			return ctx.Err()

		case fn, ok := <-s.actions:
			if !ok {
				return nil
			}
			if fn == nil {
				_ = s.shutdownInternal()
				return nil
			}
			if err := fn(); err != nil {
				s.state.Store(int32(Failure))
				if s.sink != nil {
					s.sink.Err().Err(err).Log("scheduler activation action failed, entering Failure state")
				}
			}
		}
	}
}

// Shutdown posts the sentinel closure and waits for in-flight algorithm
// bodies to finish or ctx to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.done) })

	select {
	case s.actions <- nil:
	case <-ctx.Done():
		return ctx.Err()
	}

	joined := make(chan struct{})
	go func() {
		s.tasks.Wait()
		close(joined)
	}()

	var eg errgroup.Group
	eg.Go(func() error {
		select {
		case <-joined:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err := eg.Wait(); err != nil {
		return err
	}
	return s.shutdownInternal()
}

func (s *Scheduler) shutdownInternal() error {
	if s.occupancy != nil {
		return s.occupancy.Close()
	}
	return nil
}
