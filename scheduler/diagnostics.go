package scheduler

import (
	"io"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/key4hep/avalanche-go/eventslot"
	"github.com/key4hep/avalanche-go/precedence"
)

// stallDumper throttles stall-state dumps to at most one per slot per
// 10-second sliding window, so a persistently stuck slot does not flood
// the log with identical dumps every activation pass.
type stallDumper struct {
	limiter *catrate.Limiter
	graph   *precedence.Graph
	w       io.Writer
}

func newStallDumper(graph *precedence.Graph, w io.Writer) *stallDumper {
	return &stallDumper{
		limiter: catrate.NewLimiter(map[time.Duration]int{10 * time.Second: 1}),
		graph:   graph,
		w:       w,
	}
}

// dump writes slot's state to the configured writer, unless a dump for
// this slot index was already written within the current window.
func (d *stallDumper) dump(slotIndex int, slot *eventslot.EventSlot) error {
	if d.w == nil {
		return nil
	}
	if _, ok := d.limiter.Allow(slotIndex); !ok {
		return nil
	}
	return precedence.DumpState(d.w, d.graph, slot)
}
