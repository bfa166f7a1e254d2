package zre

// EventType defines event type
type EventType int

// Event types
const (
	EventEnter EventType = iota + 1
	EventJoin
	EventLeave
	EventExit
	EventWhisper
	EventShout
	EventStop
)

// Converts EventType to string.
func (e EventType) String() string {
	switch e {
	case EventEnter:
		return "EventEnter"
	case EventJoin:
		return "EventJoin"
	case EventLeave:
		return "EventLeave"
	case EventExit:
		return "EventExit"
	case EventWhisper:
		return "EventWhisper"
	case EventShout:
		return "EventShout"
	case EventStop:
		return "EventStop"
	}

	return ""
}

// Event represents one item of the application-facing event stream: a
// control event (ENTER/EXIT/JOIN/LEAVE/STOP) or data (WHISPER/SHOUT).
type Event struct {
	eventType EventType         // Event type
	sender    string            // Sender UUID as string
	name      string            // Sender public name as string
	address   string            // Sender endpoint as string, for an ENTER event
	headers   map[string]string // Headers, for an ENTER event
	group     string            // Group name for a JOIN/LEAVE/SHOUT event
	msg       [][]byte          // Payload frames for WHISPER or SHOUT
}

// Type returns event type, which is a EventType.
func (e *Event) Type() EventType {
	return e.eventType
}

// Sender returns the sending peer's id as a string.
func (e *Event) Sender() string {
	return e.sender
}

// Name returns the sending peer's public name as a string.
func (e *Event) Name() string {
	return e.name
}

// Addr returns the sending peer's endpoint as a string.
func (e *Event) Addr() string {
	return e.address
}

// Headers returns the headers of an ENTER event (an empty map when the peer
// advertised none), or nil for other event types.
func (e *Event) Headers() map[string]string {
	return e.headers
}

// Header returns value of a header from the message headers
// obtained by ENTER.
func (e *Event) Header(name string) (value string, ok bool) {
	value, ok = e.headers[name]
	return
}

// Group returns the group name that a JOIN/LEAVE/SHOUT event refers to.
func (e *Event) Group() string {
	return e.group
}

// Msg returns the incoming payload frames for a WHISPER or SHOUT event.
func (e *Event) Msg() [][]byte {
	return e.msg
}
