package probe

// State is the state of a single measurement.
type State uint8

const (
	StateIdle          State = iota // handles acquired, nothing written yet
	StateMarkerWritten              // marker stored on the source
	StatePolling                    // waiting for the marker on the destination
	StateReplicated                 // marker observed on the destination
	StateCleaned                    // marker deleted from the source (success)
	StateFailed                     // measurement aborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMarkerWritten:
		return "marker-written"
	case StatePolling:
		return "polling"
	case StateReplicated:
		return "replicated"
	case StateCleaned:
		return "cleaned"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observer is notified about every state transition of a measurement.
// It is called synchronously from the measuring goroutine and must not block.
type Observer func(bucket, key string, from, to State)
