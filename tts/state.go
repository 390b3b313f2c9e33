package tts

import "github.com/charmbracelet/log"

// StateType represents the playback state of a controller.
type StateType int

const (
	// StateIdle indicates no session is active.
	StateIdle StateType = iota
	// StateSpeaking indicates a segment is being spoken.
	StateSpeaking
	// StatePaused indicates playback is paused mid-segment.
	StatePaused
	// StateCompleted indicates the last session read every segment.
	StateCompleted
	// StateStopped indicates the last session was pre-empted.
	StateStopped
	// StateError indicates the last session halted on a failure.
	StateError
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsActive returns true if a session is live in this state.
func (s StateType) IsActive() bool {
	return s == StateSpeaking || s == StatePaused
}

// IsTerminal returns true for the exits of a finished session.
func (s StateType) IsTerminal() bool {
	return s == StateCompleted || s == StateStopped || s == StateError
}

// State is a snapshot of a controller.
type State struct {
	CurrentState  StateType // Current state of the controller
	SessionID     string    // Live or last session, empty before the first Play
	Segment       int       // Current segment index (0-based)
	TotalSegments int       // Number of segments in the session
	Voice         *Voice    // Voice resolved for the session, nil if the backend picks
	LastError     error     // Last error encountered
}

// CanPause returns true if playback can be paused.
func (s *State) CanPause() bool {
	return s.CurrentState == StateSpeaking
}

// CanResume returns true if playback can be resumed.
func (s *State) CanResume() bool {
	return s.CurrentState == StatePaused
}

// CanStop returns true if playback can be stopped.
func (s *State) CanStop() bool {
	return s.CurrentState.IsActive()
}

// StateMachine manages state transitions for a controller.
type StateMachine struct {
	current      StateType
	transitions  map[StateType][]StateType
	onTransition func(from, to StateType)
}

// NewStateMachine creates a new state machine with valid transitions.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[StateType][]StateType{
			StateIdle:      {StateSpeaking},
			StateSpeaking:  {StatePaused, StateCompleted, StateStopped, StateError, StateIdle},
			StatePaused:    {StateSpeaking, StateStopped, StateError, StateIdle},
			StateCompleted: {StateSpeaking, StateIdle},
			StateStopped:   {StateSpeaking, StateIdle},
			StateError:     {StateSpeaking, StateIdle},
		},
	}
}

// Transition attempts to transition to the specified state.
func (sm *StateMachine) Transition(to StateType) bool {
	valid := false
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			valid = true
			break
		}
	}

	if !valid {
		log.Debug("Rejected state transition", "from", sm.current, "to", to)
		return false
	}

	from := sm.current
	sm.current = to

	if sm.onTransition != nil {
		sm.onTransition(from, to)
	}

	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() StateType {
	return sm.current
}

// OnTransition registers a callback run after every accepted transition.
func (sm *StateMachine) OnTransition(fn func(from, to StateType)) {
	sm.onTransition = fn
}
