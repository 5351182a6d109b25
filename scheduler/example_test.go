package scheduler_test

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/key4hep/avalanche-go/eventslot"
	"github.com/key4hep/avalanche-go/precedence"
	"github.com/key4hep/avalanche-go/scheduler"
)

// printingAlgorithm reports its own name when run, so the diamond
// example below can demonstrate the scheduler's dependency-driven
// execution order without relying on timing.
type printingAlgorithm struct {
	name    string
	inputs  []string
	outputs []string
}

func (a *printingAlgorithm) Name() string            { return a.name }
func (a *printingAlgorithm) Cardinality() int        { return 1 }
func (a *printingAlgorithm) IsClonable() bool        { return false }
func (a *printingAlgorithm) IsBlocking() bool        { return false }
func (a *printingAlgorithm) IsAsynchronous() bool    { return false }
func (a *printingAlgorithm) InputDataIDs() []string  { return a.inputs }
func (a *printingAlgorithm) OutputDataIDs() []string { return a.outputs }
func (a *printingAlgorithm) Rank() uint32            { return 0 }

func (a *printingAlgorithm) Run(context.Context, eventslot.EventContext) (scheduler.RunResult, error) {
	fmt.Println(a.name)
	return scheduler.Accepted, nil
}

type exampleAlgorithmPool struct {
	algs map[string]scheduler.Algorithm
}

func (p *exampleAlgorithmPool) Acquire(name string) (scheduler.AlgorithmHandle, scheduler.Algorithm, bool) {
	a, ok := p.algs[name]
	return name, a, ok
}

func (p *exampleAlgorithmPool) Release(scheduler.AlgorithmHandle) {}

// This example schedules a diamond dependency graph: source feeds both
// left and right, which both feed join. Running the worker arena with
// ThreadPoolSize -100 bypasses the goroutine pool so the algorithms
// execute synchronously, in dependency order, on the scheduler's
// activation goroutine, giving this example deterministic output.
func ExampleScheduler_diamond() {
	b := precedence.NewGraphBuilder("head", precedence.DecisionFlags{Concurrent: true})
	b.AddAlgorithm(b.Head(), precedence.AlgorithmSpec{Name: "source", Outputs: []string{"x"}})
	b.AddAlgorithm(b.Head(), precedence.AlgorithmSpec{Name: "left", Inputs: []string{"x"}, Outputs: []string{"y"}})
	b.AddAlgorithm(b.Head(), precedence.AlgorithmSpec{Name: "right", Inputs: []string{"x"}, Outputs: []string{"z"}})
	b.AddAlgorithm(b.Head(), precedence.AlgorithmSpec{Name: "join", Inputs: []string{"y", "z"}})
	graph, err := b.Build()
	if err != nil {
		fmt.Println("build error:", err)
		return
	}

	pool := &exampleAlgorithmPool{algs: map[string]scheduler.Algorithm{
		"source": &printingAlgorithm{name: "source", outputs: []string{"x"}},
		"left":   &printingAlgorithm{name: "left", inputs: []string{"x"}, outputs: []string{"y"}},
		"right":  &printingAlgorithm{name: "right", inputs: []string{"x"}, outputs: []string{"z"}},
		"join":   &printingAlgorithm{name: "join", inputs: []string{"y", "z"}},
	}}

	sched := scheduler.New(graph, pool, scheduler.WithSlotCount(1), scheduler.WithThreadPoolSize(-100))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	if err := sched.PushNewEvent(ctx, eventslot.NewEventContext(uuid.Nil, 1)); err != nil {
		fmt.Println("push error:", err)
		return
	}

	ec, err := sched.PopFinishedEvent(ctx)
	_ = time.Millisecond
	if err != nil {
		fmt.Println("pop error:", err)
		return
	}
	fmt.Println("failed:", ec.Failed)

	// Output:
	// source
	// left
	// right
	// join
	// failed: false
}
