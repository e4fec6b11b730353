package rig

// State is the synchronization state of a proxy.
type State int

// Proxy states.
const (
	StateUnsynced State = iota
	StateCaptured
	StateDiffing
	StateCommitting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnsynced:
		return "unsynced"
	case StateCaptured:
		return "captured"
	case StateDiffing:
		return "diffing"
	case StateCommitting:
		return "committing"
	default:
		return "unknown"
	}
}
