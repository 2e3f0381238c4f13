package api

// StreamEventType identifies the type of a streaming event.
type StreamEventType string

// Delta events convey incremental content during streaming.
const (
	EventOutputItemAdded       StreamEventType = "response.output_item.added"
	EventContentPartAdded      StreamEventType = "response.content_part.added"
	EventOutputTextDelta       StreamEventType = "response.output_text.delta"
	EventOutputTextDone        StreamEventType = "response.output_text.done"
	EventReasoningTextDelta    StreamEventType = "response.reasoning_text.delta"
	EventReasoningTextDone     StreamEventType = "response.reasoning_text.done"
	EventFunctionCallArgsDelta StreamEventType = "response.function_call_arguments.delta"
	EventFunctionCallArgsDone  StreamEventType = "response.function_call_arguments.done"
	EventContentPartDone       StreamEventType = "response.content_part.done"
	EventOutputItemDone        StreamEventType = "response.output_item.done"
)

// Lifecycle events bracket the response.
const (
	EventResponseCreated   StreamEventType = "response.created"
	EventResponseCompleted StreamEventType = "response.completed"
	EventResponseFailed    StreamEventType = "response.failed"
)

// StreamEvent is a single server-sent event in a streaming response.
// Every emitted event carries EventID, ResponseID and SequenceNumber,
// stamped by the sequencer; the remaining fields depend on the type.
//
// OutputIndex, ContentIndex and Arguments are pointers so that an
// explicit zero (message index 0, content index 0, empty argument
// string) survives serialization.
type StreamEvent struct {
	Type           StreamEventType `json:"type"`
	EventID        string          `json:"event_id,omitempty"`
	ResponseID     string          `json:"response_id,omitempty"`
	Response       *Response       `json:"response,omitempty"`
	ItemID         string          `json:"item_id,omitempty"`
	OutputIndex    *int            `json:"output_index,omitempty"`
	ContentIndex   *int            `json:"content_index,omitempty"`
	Delta          string          `json:"delta,omitempty"`
	Text           *string         `json:"text,omitempty"`
	Item           *OutputItem     `json:"item,omitempty"`
	SequenceNumber int             `json:"sequence_number,omitempty"`
	CallID         string          `json:"call_id,omitempty"`
	Name           string          `json:"name,omitempty"`
	Arguments      *string         `json:"arguments,omitempty"`
	Error          *ResponseError  `json:"error,omitempty"`
}

// IsTerminal reports whether this event type ends the stream.
func (t StreamEventType) IsTerminal() bool {
	return t == EventResponseCompleted || t == EventResponseFailed
}
