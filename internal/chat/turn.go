package chat

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/txray-labs/txray/internal/constants"
	"github.com/txray-labs/txray/internal/sse"
)

// Turn is the request-scoped reducer context for one in-flight analysis
// request. It captures the target conversation id at request start so
// concurrent streams against different conversations cannot interfere; the
// only mutation of the captured id is the session-bind rename.
type Turn struct {
	list *List

	convID      string
	userText    string
	userMsgID   string
	asstMsgID   string
	accumulated strings.Builder
}

// StartTurn appends the user message and a loading assistant placeholder to
// the target conversation, creating a temporary conversation when convID is
// empty or no longer exists. The placeholder is visible before the first byte
// of the response arrives.
func (l *List) StartTurn(convID, text string) *Turn {
	t := &Turn{
		list:     l,
		convID:   convID,
		userText: text,
	}

	userMsg := newUserMessage(text)
	placeholder := newAssistantPlaceholder()
	t.userMsgID = userMsg.ID
	t.asstMsgID = placeholder.ID

	l.Update(func(prev []*Conversation) []*Conversation {
		conv := findConversation(prev, t.convID)
		if conv == nil {
			if t.convID == "" {
				t.convID = NewTempID()
			}
			conv = &Conversation{
				ID:       t.convID,
				Title:    makeTitle(text),
				Messages: []*Message{},
			}
			prev = append([]*Conversation{conv}, prev...)
		}
		conv.Messages = append(conv.Messages, userMsg, placeholder)
		conv.LastUpdate = time.Now().UTC()
		return prev
	})
	l.SetCurrent(t.convID)

	return t
}

// ConversationID returns the turn's current target conversation id.
func (t *Turn) ConversationID() string {
	return t.convID
}

// RequestConversationID returns the id to send to the backend: empty for
// temporary ids, which the server answers with a session event carrying the
// durable id.
func (t *Turn) RequestConversationID() string {
	if IsTempID(t.convID) {
		return ""
	}
	return t.convID
}

// AssistantMessageID returns the id of the placeholder message this turn
// streams into.
func (t *Turn) AssistantMessageID() string {
	return t.asstMsgID
}

// Apply folds one decoded stream event into the conversation state. Events
// are applied strictly in arrival order. Events without a payload were
// already logged by the decoder and carry nothing to fold in.
func (t *Turn) Apply(ev sse.Event) {
	if ev.Data == nil {
		return
	}

	kind := EventKind(ev.Type)
	if kind == EventSession {
		t.bindSession(ev.Data)
		return
	}

	t.list.Update(func(prev []*Conversation) []*Conversation {
		conv := findConversation(prev, t.convID)
		if conv == nil {
			return prev
		}
		msg := conv.message(t.asstMsgID)
		if msg == nil {
			return prev
		}

		// The progress log keeps growing even after finalization (the
		// terminal done event trails message_end), but content and status
		// are frozen once the message leaves the loading state.
		if retainedInProgress(kind) {
			msg.Progress = append(msg.Progress, ProgressEvent{
				Type:    kind,
				Payload: ev.Data,
				At:      time.Now().UTC(),
			})
		}
		if msg.Status != StatusLoading {
			conv.LastUpdate = time.Now().UTC()
			return prev
		}

		switch kind {
		case EventToken, EventDraftChunk:
			var p contentPayload
			if err := json.Unmarshal(ev.Data, &p); err == nil {
				t.accumulated.WriteString(p.Content)
			}
			msg.Content = t.accumulated.String()

		case EventMessageEnd:
			var p finalPayload
			if err := json.Unmarshal(ev.Data, &p); err != nil {
				log.Warn().Err(err).Msg("malformed message_end payload")
			}
			// The final content is authoritative; it overrides whatever the
			// chunk concatenation produced.
			msg.Content = p.Content
			msg.Report = p.Report
			msg.Status = StatusCompleted
		}

		conv.LastUpdate = time.Now().UTC()
		return prev
	})
}

// bindSession reconciles the client-side conversation id with the durable id
// the server assigned. Other in-flight temporary conversations are preserved;
// only this turn's conversation is renamed.
func (t *Turn) bindSession(data json.RawMessage) {
	var p sessionPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == "" {
		return
	}
	boundID := p.ConversationID

	t.list.Update(func(prev []*Conversation) []*Conversation {
		if t.convID == boundID {
			return prev
		}

		local := findConversation(prev, t.convID)
		if existing := findConversation(prev, boundID); existing != nil {
			// The server continued a conversation we already hold under its
			// durable id; fold the turn's messages into it and drop the
			// local duplicate.
			if local != nil && local != existing {
				existing.Messages = append(existing.Messages, local.Messages...)
				existing.LastUpdate = time.Now().UTC()
				prev = removeConversation(prev, local.ID)
			}
		} else if local != nil {
			// Rename in place; all subsequent updates target the bound id.
			local.ID = boundID
			local.LastUpdate = time.Now().UTC()
		} else {
			// The local conversation vanished mid-stream (deleted by the
			// user); recreate it seeded with this turn's messages.
			userMsg := newUserMessage(t.userText)
			userMsg.ID = t.userMsgID
			placeholder := newAssistantPlaceholder()
			placeholder.ID = t.asstMsgID
			prev = append([]*Conversation{{
				ID:         boundID,
				Title:      makeTitle(t.userText),
				Messages:   []*Message{userMsg, placeholder},
				LastUpdate: time.Now().UTC(),
			}}, prev...)
		}

		t.convID = boundID
		return prev
	})
	t.list.SetCurrent(t.convID)
}

// Fail marks the placeholder message as errored with the fixed failure
// message. The user's message stays in place and nothing is rolled back.
func (t *Turn) Fail() {
	t.list.Update(func(prev []*Conversation) []*Conversation {
		conv := findConversation(prev, t.convID)
		if conv == nil {
			return prev
		}
		if msg := conv.message(t.asstMsgID); msg != nil && msg.Status == StatusLoading {
			msg.Status = StatusError
			msg.Content = constants.AnalysisFailedMessage
		}
		conv.LastUpdate = time.Now().UTC()
		return prev
	})
}

// Discard removes the loading placeholder. Used on the payment-required
// branch, where no partial assistant message should persist.
func (t *Turn) Discard() {
	t.list.Update(func(prev []*Conversation) []*Conversation {
		conv := findConversation(prev, t.convID)
		if conv == nil {
			return prev
		}
		conv.removeMessage(t.asstMsgID)
		conv.LastUpdate = time.Now().UTC()
		return prev
	})
}

func removeConversation(convs []*Conversation, id string) []*Conversation {
	out := convs[:0]
	for _, c := range convs {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
