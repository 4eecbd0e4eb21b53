package handler

import "sync"

// Event is a server-initiated notification. Exactly one field style is
// used per event; Method selects the wire method.
type Event struct {
	// Method is the notification method, one of the Event* constants
	// or any custom "notifications/..." method.
	Method string
	// Params is the notification payload, marshaled as-is.
	Params interface{}
}

// Well-known server-initiated notification methods.
const (
	EventToolsListChanged     = "notifications/tools/list_changed"
	EventResourcesListChanged = "notifications/resources/list_changed"
	EventPromptsListChanged   = "notifications/prompts/list_changed"
	EventProgress             = "notifications/progress"
	EventLogMessage           = "notifications/message"
)

// ToolsListChanged builds a tools/list_changed event.
func ToolsListChanged() Event {
	return Event{Method: EventToolsListChanged}
}

// ResourcesListChanged builds a resources/list_changed event.
func ResourcesListChanged() Event {
	return Event{Method: EventResourcesListChanged}
}

// PromptsListChanged builds a prompts/list_changed event.
func PromptsListChanged() Event {
	return Event{Method: EventPromptsListChanged}
}

// Progress builds a progress event for a long-running operation. total
// may be nil when the extent of the work is unknown.
func Progress(token string, progress float64, total *float64, message string) Event {
	params := map[string]interface{}{
		"progressToken": token,
		"progress":      progress,
	}
	if total != nil {
		params["total"] = *total
	}
	if message != "" {
		params["message"] = message
	}
	return Event{Method: EventProgress, Params: params}
}

// LogMessage builds a server-to-client log event.
func LogMessage(level, logger, message string) Event {
	params := map[string]interface{}{
		"level":   level,
		"message": message,
	}
	if logger != "" {
		params["logger"] = logger
	}
	return Event{Method: EventLogMessage, Params: params}
}

// Notifier is a bounded, non-blocking event queue from handlers to a
// full-duplex transport. Send never blocks; when the buffer is full the
// event is dropped, notifications are best effort.
type Notifier struct {
	mu     sync.Mutex
	events chan Event
	closed bool
}

const defaultNotifierBuffer = 16

// NewNotifier creates a notifier with the default buffer.
func NewNotifier() *Notifier {
	return &Notifier{events: make(chan Event, defaultNotifierBuffer)}
}

// Send enqueues an event without blocking. Events sent after Close, or
// while the buffer is full, are dropped.
func (n *Notifier) Send(event Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.events <- event:
	default:
	}
}

// Events returns the receive side for the transport's pump goroutine.
// The channel is closed by Close.
func (n *Notifier) Events() <-chan Event {
	return n.events
}

// Close shuts the queue. Safe to call more than once.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	close(n.events)
}
