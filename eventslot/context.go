package eventslot

import (
	"github.com/google/uuid"
	"github.com/key4hep/avalanche-go/algstate"
)

// EventContext identifies one event as it moves through the scheduler. It
// is handed to pushNewEvent by the external driver and returned, possibly
// annotated with failure information, via popFinishedEvent.
type EventContext struct {
	// ID opaquely identifies the event across slots. If the zero UUID is
	// supplied to NewEventContext, a random one is generated.
	ID uuid.UUID
	// SlotIndex is the scheduler slot this context was allocated into.
	SlotIndex int
	// EventNumber is the caller-assigned sequence number for the event.
	EventNumber int64

	// Failed is set when the event could not complete, e.g. due to an
	// algorithm reaching algstate.ERROR or a detected stall.
	Failed bool
	// FailedAlgorithm names the algorithm responsible for Failed, if any.
	FailedAlgorithm string
	// FailedState records the terminal state the algorithm was left in.
	FailedState algstate.State
}

// NewEventContext builds an EventContext, defaulting ID to a fresh random
// UUID when the zero value is supplied.
func NewEventContext(id uuid.UUID, eventNumber int64) EventContext {
	if id == uuid.Nil {
		id = uuid.New()
	}
	return EventContext{ID: id, EventNumber: eventNumber}
}

// WithFailure returns a copy of ctx annotated with failure details.
func (ctx EventContext) WithFailure(algorithm string, state algstate.State) EventContext {
	ctx.Failed = true
	ctx.FailedAlgorithm = algorithm
	ctx.FailedState = state
	return ctx
}
