package stream

// Event is one frame of a generation's output stream. Frames are forwarded
// to the client as SSE events named by Type.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

const (
	EventText          = "text"
	EventToolCall      = "tool-call"
	EventToolResult    = "tool-result"
	EventError         = "error"
	EventFinish        = "finish"
	EventAppendMessage = "append-message"
)
