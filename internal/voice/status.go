package voice

// Status is the lifecycle state of the voice session. Only StatusReady
// permits playback.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusReady
	StatusReconnecting
	StatusNearly
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusReady:
		return "ready"
	case StatusReconnecting:
		return "reconnecting"
	case StatusNearly:
		return "nearly"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// EventKind tags a transport event consumed by the session state machine.
type EventKind int

const (
	// EventDebug is log-only; it never changes state.
	EventDebug EventKind = iota
	// EventConnected means the transport confirmed the join or resume.
	EventConnected
	// EventReconnecting means the transport dropped mid-stream and is
	// re-establishing on its own.
	EventReconnecting
	// EventNearly means the transport is almost ready again.
	EventNearly
	// EventDisconnect means the session ended; full teardown.
	EventDisconnect
	// EventError is a recoverable mid-stream fault. The transport is
	// disconnected but the session reference survives.
	EventError
	// EventFailed means a (re)connection attempt failed; treated as a
	// full teardown like EventDisconnect.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventDebug:
		return "debug"
	case EventConnected:
		return "connected"
	case EventReconnecting:
		return "reconnecting"
	case EventNearly:
		return "nearly"
	case EventDisconnect:
		return "disconnect"
	case EventError:
		return "error"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one tagged transport event.
type Event struct {
	Kind EventKind
	Err  error
	Msg  string
}
