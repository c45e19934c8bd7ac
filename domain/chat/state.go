package chat

// ConnectionState is the lifecycle of the live stream of a session.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Joined
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Joined:
		return "joined"
	default:
		return "unknown"
	}
}

// SessionState is the lifecycle of a channel session.
type SessionState int

const (
	Opening SessionState = iota
	Active
	Closing
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Opening:
		return "opening"
	case Active:
		return "active"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
