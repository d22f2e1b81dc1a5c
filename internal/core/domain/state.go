package domain

// DaemonState is a phase of the daemon lifecycle.
type DaemonState string

const (
	// StateInitializing is the state of a daemon that was constructed but never started.
	StateInitializing DaemonState = "initializing"
	// StateStarting is the state while the watcher and handlers are being wired.
	StateStarting DaemonState = "starting"
	// StateRunning is the state while events are being watched and dispatched.
	StateRunning DaemonState = "running"
	// StateStopping is the state while in-flight work drains.
	StateStopping DaemonState = "stopping"
	// StateStopped is the state after a clean shutdown.
	StateStopped DaemonState = "stopped"
	// StateError is the state after an unrecoverable startup failure.
	StateError DaemonState = "error"
)

// AllStates lists every state in lifecycle order.
var AllStates = []DaemonState{
	StateInitializing,
	StateStarting,
	StateRunning,
	StateStopping,
	StateStopped,
	StateError,
}

var transitions = map[DaemonState][]DaemonState{
	StateInitializing: {StateStarting},
	StateStarting:     {StateRunning},
	StateRunning:      {StateStopping},
	StateStopping:     {StateStopped},
	StateStopped:      {StateStarting},
	StateError:        {StateStarting, StateStopped},
}

// CanTransition reports whether the lifecycle allows moving from one state to another.
// Every state may move to StateError.
func CanTransition(from, to DaemonState) bool {
	if to == StateError {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Active reports whether the daemon is processing or about to process events.
func (s DaemonState) Active() bool {
	return s == StateStarting || s == StateRunning
}
