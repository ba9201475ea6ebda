package client

// Phase is the lifecycle position of one analysis session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePolling
	PhaseComplete
	PhaseCancelled
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePolling:
		return "polling"
	case PhaseComplete:
		return "complete"
	case PhaseCancelled:
		return "cancelled"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase admits no further transitions.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseCancelled || p == PhaseFailed
}

// CountdownSeconds is the initial wait display. The countdown is cosmetic:
// reaching zero does not cancel the job or alter polling.
const CountdownSeconds = 360

// State is an immutable snapshot of one session. Reduce produces the next
// snapshot from the current one and an event; nothing here touches the
// network or a clock.
type State struct {
	Phase       Phase
	SecondsLeft int
	Fetching    bool
	Result      Classification
	FailureMsg  string
}

// NewState returns the initial idle state.
func NewState() State {
	return State{Phase: PhaseIdle, SecondsLeft: CountdownSeconds}
}

// Event is a session input consumed by Reduce.
type Event interface{ isEvent() }

// EventStart begins polling and the countdown display.
type EventStart struct{}

// EventTick advances the countdown by one second.
type EventTick struct{}

// EventFetchStarted marks a result fetch in flight. A second fetch while one
// is in flight is suppressed.
type EventFetchStarted struct{}

// EventFetchFinished clears the in-flight marker.
type EventFetchFinished struct{}

// EventResult delivers the classification.
type EventResult struct{ Result Classification }

// EventFailure delivers a surfaced, non-recoverable failure.
type EventFailure struct{ Message string }

// EventCancel records an explicit user cancellation.
type EventCancel struct{}

func (EventStart) isEvent()         {}
func (EventTick) isEvent()          {}
func (EventFetchStarted) isEvent()  {}
func (EventFetchFinished) isEvent() {}
func (EventResult) isEvent()        {}
func (EventFailure) isEvent()       {}
func (EventCancel) isEvent()        {}

// Reduce computes the next session state. Terminal phases absorb every
// event, so a response arriving after cancellation cannot resurrect the
// session.
func Reduce(s State, e Event) State {
	if s.Phase.Terminal() {
		return s
	}

	switch ev := e.(type) {
	case EventStart:
		if s.Phase != PhaseIdle {
			return s
		}
		s.Phase = PhasePolling
		s.SecondsLeft = CountdownSeconds
		return s

	case EventTick:
		if s.Phase != PhasePolling {
			return s
		}
		if s.SecondsLeft > 0 {
			s.SecondsLeft--
		}
		return s

	case EventFetchStarted:
		if s.Phase != PhasePolling || s.Fetching {
			return s
		}
		s.Fetching = true
		return s

	case EventFetchFinished:
		s.Fetching = false
		return s

	case EventResult:
		if s.Phase != PhasePolling {
			return s
		}
		s.Phase = PhaseComplete
		s.Fetching = false
		s.Result = ev.Result
		return s

	case EventFailure:
		if s.Phase != PhasePolling {
			return s
		}
		s.Phase = PhaseFailed
		s.Fetching = false
		s.FailureMsg = ev.Message
		return s

	case EventCancel:
		s.Phase = PhaseCancelled
		s.Fetching = false
		return s

	default:
		return s
	}
}
