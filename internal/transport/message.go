package transport

// Message is a transport command sent to the Controller.
type Message int

const (
	Play Message = iota
	Pause
	Exit
)

func (m Message) String() string {
	switch m {
	case Play:
		return "play"
	case Pause:
		return "pause"
	case Exit:
		return "exit"
	default:
		return "unknown"
	}
}

// ParseMessage maps a command name, as used by the control panels, to a Message.
func ParseMessage(s string) (Message, bool) {
	switch s {
	case "play":
		return Play, true
	case "pause":
		return Pause, true
	case "exit":
		return Exit, true
	}
	return 0, false
}

// State of the output stream as driven by the Controller.
type State int32

const (
	// The stream is open but has never been started.
	Idle State = iota
	Playing
	Paused
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}
