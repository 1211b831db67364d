package delivery

// State is a delivery attempt's position in its lifecycle.
type State int

const (
	Idle State = iota
	Connecting
	Sending
	AwaitingResponse
	ClosedSuccess
	ClosedError
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Sending:
		return "sending"
	case AwaitingResponse:
		return "awaiting_response"
	case ClosedSuccess:
		return "closed_success"
	case ClosedError:
		return "closed_error"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can occur from s.
func (s State) Terminal() bool {
	return s == ClosedSuccess || s == ClosedError || s == Aborted
}

// Succeeded reports whether s is the clean completion state.
func (s State) Succeeded() bool { return s == ClosedSuccess }
