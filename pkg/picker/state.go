package picker

// State is the lifecycle stage of a picker session.
type State int

const (
	Browsing State = iota
	// Finalizing is held only while the result is handed to the listener.
	Finalizing
	Closed
)

func (s State) String() string {
	switch s {
	case Browsing:
		return "browsing"
	case Finalizing:
		return "finalizing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
