package executor

// State is the lifecycle of one run: Idle -> Walking -> Draining -> Completed or Failed.
// No state is revisited.
type State int32

const (
	// StateIdle is the state before Run is called.
	StateIdle State = iota
	// StateWalking means the tree is being walked and tasks spawned.
	StateWalking
	// StateDraining means the walk ended and spawned tasks are being joined.
	StateDraining
	// StateCompleted means every task finished without a fatal error.
	StateCompleted
	// StateFailed means the run ended with a fatal error.
	StateFailed
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWalking:
		return "walking"
	case StateDraining:
		return "draining"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the run has ended.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}
