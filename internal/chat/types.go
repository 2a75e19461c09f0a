package chat

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/txray-labs/txray/internal/constants"
)

// Role identifies the author of a message. Fixed at creation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status tracks an assistant message's lifecycle. The only legal transitions
// are loading→completed and loading→error.
type Status string

const (
	StatusLoading   Status = "loading"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// ProgressEvent is one retained unit of streamed analysis progress.
type ProgressEvent struct {
	Type    EventKind       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      time.Time       `json:"at"`
}

// Message is one entry in a conversation. Content is append-only while
// streaming and replaced wholesale on finalization; Progress only grows.
type Message struct {
	ID        string          `json:"id"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	Status    Status          `json:"status,omitempty"`
	Progress  []ProgressEvent `json:"progress,omitempty"`
	Report    json.RawMessage `json:"report,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Conversation is a persisted, ordered thread of messages.
type Conversation struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Messages   []*Message `json:"messages"`
	LastUpdate time.Time  `json:"last_update"`
}

// NewTempID generates a client-side conversation id used until the server
// assigns a durable one.
func NewTempID() string {
	return constants.TempIDPrefix + uuid.New().String()
}

// IsTempID reports whether an id is a client-generated placeholder.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, constants.TempIDPrefix)
}

func newUserMessage(content string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func newAssistantPlaceholder() *Message {
	return &Message{
		ID:        uuid.New().String(),
		Role:      RoleAssistant,
		Status:    StatusLoading,
		Progress:  []ProgressEvent{},
		CreatedAt: time.Now().UTC(),
	}
}

// makeTitle derives a conversation title from its first user message.
// Rune-based truncation keeps multi-byte input intact.
func makeTitle(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	runes := []rune(text)
	if len(runes) > constants.TitleMaxRunes {
		return string(runes[:constants.TitleMaxRunes]) + "..."
	}
	return text
}

// message finds a message by id.
func (c *Conversation) message(id string) *Message {
	for _, m := range c.Messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// removeMessage drops a message by id, preserving order.
func (c *Conversation) removeMessage(id string) {
	out := c.Messages[:0]
	for _, m := range c.Messages {
		if m.ID != id {
			out = append(out, m)
		}
	}
	c.Messages = out
}
