// Package events defines the messages pushed to websocket clients.
package events

import "time"

// MessageType names the payload carried by a Message.
type MessageType string

const (
	// MessageTypeConnection greets a newly registered client.
	MessageTypeConnection MessageType = "connection"
	// MessageTypePipelineProgress carries one re-derivation step event.
	MessageTypePipelineProgress MessageType = "pipeline:progress"
	// MessageTypeWorkbookUpdate carries the summary after a load or edit.
	MessageTypeWorkbookUpdate MessageType = "workbook:update"
	MessageTypeError          MessageType = "error"
)

// Message is the envelope of every websocket frame.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Connection is the data of a connection message.
type Connection struct {
	ClientID string `json:"client_id"`
	TraceID  string `json:"trace_id,omitempty"`
}

// ErrorMessage is the data of an error message. It reports a load or
// edit that the session rejected.
type ErrorMessage struct {
	Operation string `json:"operation"`
	Message   string `json:"message"`
}
