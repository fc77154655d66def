package answer

// EventType discriminates streamed events.
type EventType string

const (
	EventStatus EventType = "status"
	EventDoc    EventType = "doc"
	EventToken  EventType = "token"
	EventError  EventType = "error"
	EventDone   EventType = "done"
)

// Status messages emitted while streaming.
const (
	StatusSearching  = "Searching documents..."
	StatusGenerating = "Generating answer..."
)

// previewLength bounds the fragment preview carried by doc events.
const previewLength = 120

// Event is one element of a streamed answer. Only the fields relevant to
// Type are set.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"` // status and error
	Source  string    `json:"source,omitempty"`  // doc
	Preview string    `json:"preview,omitempty"` // doc
	Text    string    `json:"text,omitempty"`    // token
}
