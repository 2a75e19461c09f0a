// Package chat owns the conversation data model and the reducer that folds
// streamed analysis events into it.
package chat

import (
	"encoding/json"
)

// EventKind identifies a progress event pushed by the analysis backend.
// Unrecognized kinds are carried through with their literal tag so new server
// event types never crash the client.
type EventKind string

const (
	EventSession        EventKind = "session"
	EventRPCDone        EventKind = "rpc_done"
	EventEtherscanStart EventKind = "etherscan_start"
	EventEtherscanDone  EventKind = "etherscan_done"
	EventTenderlyStart  EventKind = "tenderly_start"
	EventTenderlyDone   EventKind = "tenderly_done"
	EventDraftStart     EventKind = "draft_start"
	EventDraftChunk     EventKind = "draft_chunk"
	EventDraftDone      EventKind = "draft_done"
	EventToken          EventKind = "token"
	EventMessageEnd     EventKind = "message_end"
	EventDone           EventKind = "done"
	EventError          EventKind = "error"
)

// retainedInProgress reports whether an event kind is kept in the message's
// progress log. Draft chunks and session binding are consumed for side
// effects only; storing them would just be noise.
func retainedInProgress(kind EventKind) bool {
	return kind != EventDraftChunk && kind != EventSession
}

// sessionPayload is the payload of a session event.
type sessionPayload struct {
	ConversationID string `json:"conversationId"`
}

// contentPayload covers token and draft_chunk events.
type contentPayload struct {
	Content string `json:"content"`
}

// finalPayload is the payload of a message_end event. Content is
// authoritative and may differ from the concatenated stream chunks.
type finalPayload struct {
	Content string          `json:"content"`
	Report  json.RawMessage `json:"report"`
}

// errorPayload is the payload of an error event.
type errorPayload struct {
	Message string `json:"message"`
}

// ErrorMessage extracts the human-readable message from an error event
// payload, or "" if there is none.
func ErrorMessage(payload json.RawMessage) string {
	var e errorPayload
	if err := json.Unmarshal(payload, &e); err != nil {
		return ""
	}
	return e.Message
}
