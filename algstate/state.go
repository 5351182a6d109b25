package algstate

// State is an algorithm's position in the per-event execution state
// machine. Values are contiguous integers so they can index directly into
// AlgStateSet's per-state index sets.
type State uint8

const (
	// INITIAL is the state every algorithm starts a slot in.
	INITIAL State = iota
	// CONTROLREADY means the algorithm's control-flow prerequisites are met.
	CONTROLREADY
	// DATAREADY means control-flow and data-flow prerequisites are both met.
	DATAREADY
	// RESOURCELESS means the algorithm is DATAREADY but no instance was
	// available from the algorithm resource pool when last considered.
	RESOURCELESS
	// SCHEDULED means a task for the algorithm has been handed to a worker.
	SCHEDULED
	// EVTACCEPTED is a terminal success state.
	EVTACCEPTED
	// EVTREJECTED is a terminal state where the algorithm ran but the event
	// was rejected along this branch.
	EVTREJECTED
	// ERROR is the terminal sink for both algorithm failures and illegal
	// transition requests.
	ERROR

	// numStates is the number of distinct State values, used to size the
	// per-state index sets. Kept unexported: callers read it through
	// NumStates.
	numStates = int(ERROR) + 1
)

// NumStates returns the number of distinct State values.
func NumStates() int { return numStates }

// String renders the state's canonical name, matching the original
// framework's stream operator output.
func (s State) String() string {
	switch s {
	case INITIAL:
		return "INITIAL"
	case CONTROLREADY:
		return "CONTROLREADY"
	case DATAREADY:
		return "DATAREADY"
	case RESOURCELESS:
		return "RESOURCELESS"
	case SCHEDULED:
		return "SCHEDULED"
	case EVTACCEPTED:
		return "EVTACCEPTED"
	case EVTREJECTED:
		return "EVTREJECTED"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// legalTransitions enumerates the state machine's legal (from, to) edges.
// Self-transitions are handled separately, as idempotent no-ops, rather
// than being listed here.
var legalTransitions = map[State]map[State]bool{
	INITIAL:      {CONTROLREADY: true},
	CONTROLREADY: {DATAREADY: true},
	DATAREADY:    {SCHEDULED: true, RESOURCELESS: true},
	RESOURCELESS: {SCHEDULED: true},
	SCHEDULED:    {EVTACCEPTED: true, EVTREJECTED: true, ERROR: true},
	EVTACCEPTED:  {},
	EVTREJECTED:  {},
	ERROR:        {},
}

// isLegalTransition reports whether moving from from to to is permitted by
// the state machine, not counting the always-legal self-transition case.
func isLegalTransition(from, to State) bool {
	return legalTransitions[from][to]
}
