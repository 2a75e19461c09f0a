package chat

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Saver persists the full conversation list. The store is injected so the
// reducer never reaches for a global.
type Saver interface {
	SaveConversations(convs []*Conversation) error
}

// List is the owner of all conversation state. Every mutation is an atomic
// read-modify-write over the current snapshot, so interleaved updates from
// concurrent streams cannot clobber each other's unrelated conversations.
// The list is persisted after every mutation.
type List struct {
	mu            sync.Mutex
	conversations []*Conversation
	currentID     string
	saver         Saver
}

// NewList creates an empty list backed by the given saver. A nil saver
// disables persistence (used in tests).
func NewList(saver Saver) *List {
	return &List{saver: saver}
}

// Seed installs conversations loaded at startup without persisting them back.
func (l *List) Seed(convs []*Conversation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conversations = convs
	if len(convs) > 0 {
		l.currentID = convs[0].ID
	}
}

// Update applies fn to the current snapshot and installs its result, then
// persists. All reducer mutations flow through here.
func (l *List) Update(fn func(prev []*Conversation) []*Conversation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conversations = fn(l.conversations)
	l.persistLocked()
}

// persistLocked saves best-effort; persistence failures never interrupt the
// stream that triggered the mutation.
func (l *List) persistLocked() {
	if l.saver == nil {
		return
	}
	if err := l.saver.SaveConversations(l.conversations); err != nil {
		log.Error().Err(err).Msg("failed to persist conversations")
	}
}

// All returns a snapshot of the conversation list.
func (l *List) All() []*Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Conversation, len(l.conversations))
	copy(out, l.conversations)
	return out
}

// Get returns the conversation with the given id, or nil.
func (l *List) Get(id string) *Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return findConversation(l.conversations, id)
}

// CurrentID returns the id of the conversation the UI is focused on.
func (l *List) CurrentID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentID
}

// SetCurrent switches focus to the given conversation id.
func (l *List) SetCurrent(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.currentID = id
}

// New creates an empty temporary conversation and makes it current.
func (l *List) New() *Conversation {
	conv := &Conversation{
		ID:         NewTempID(),
		Title:      "New Chat",
		Messages:   []*Message{},
		LastUpdate: time.Now().UTC(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.conversations = append([]*Conversation{conv}, l.conversations...)
	l.currentID = conv.ID
	l.persistLocked()
	return conv
}

// Delete removes a conversation. If it was current, focus moves to the most
// recent remaining conversation.
func (l *List) Delete(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.conversations[:0]
	for _, c := range l.conversations {
		if c.ID != id {
			out = append(out, c)
		}
	}
	l.conversations = out

	if l.currentID == id {
		if len(out) > 0 {
			l.currentID = out[0].ID
		} else {
			l.currentID = ""
		}
	}
	l.persistLocked()
}

func findConversation(convs []*Conversation, id string) *Conversation {
	for _, c := range convs {
		if c.ID == id {
			return c
		}
	}
	return nil
}
