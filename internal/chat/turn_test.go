package chat

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/txray-labs/txray/internal/constants"
	"github.com/txray-labs/txray/internal/sse"
)

func event(kind, data string) sse.Event {
	return sse.Event{Type: kind, Data: json.RawMessage(data)}
}

func assistantMsg(t *testing.T, l *List, turn *Turn) *Message {
	t.Helper()
	conv := l.Get(turn.ConversationID())
	if conv == nil {
		t.Fatalf("conversation %s not found", turn.ConversationID())
	}
	msg := conv.message(turn.AssistantMessageID())
	if msg == nil {
		t.Fatal("assistant placeholder not found")
	}
	return msg
}

func TestStartTurnCreatesTempConversation(t *testing.T) {
	l := NewList(nil)
	turn := l.StartTurn("", "analyze 0xabc please")

	if !IsTempID(turn.ConversationID()) {
		t.Errorf("expected temp id, got %s", turn.ConversationID())
	}
	if turn.RequestConversationID() != "" {
		t.Errorf("temp id must not be sent to the backend, got %s", turn.RequestConversationID())
	}

	conv := l.Get(turn.ConversationID())
	if conv == nil {
		t.Fatal("conversation not created")
	}
	if conv.Title != "analyze 0xabc please" {
		t.Errorf("unexpected title %q", conv.Title)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected user message + placeholder, got %d messages", len(conv.Messages))
	}
	if conv.Messages[0].Role != RoleUser || conv.Messages[1].Role != RoleAssistant {
		t.Error("unexpected message roles")
	}
	if conv.Messages[1].Status != StatusLoading {
		t.Errorf("expected loading placeholder, got %s", conv.Messages[1].Status)
	}
	if l.CurrentID() != turn.ConversationID() {
		t.Error("new conversation should become current")
	}
}

func TestTitleTruncationIsRuneSafe(t *testing.T) {
	l := NewList(nil)
	turn := l.StartTurn("", "分析这笔交易的三明治攻击模式看看到底发生了什么事情")

	conv := l.Get(turn.ConversationID())
	runes := []rune(conv.Title)
	if len(runes) != constants.TitleMaxRunes+3 {
		t.Errorf("expected %d runes plus ellipsis, got %d (%q)", constants.TitleMaxRunes, len(runes), conv.Title)
	}
}

func TestFinalContentOverridesAccumulation(t *testing.T) {
	l := NewList(nil)
	turn := l.StartTurn("", "0xabc")

	turn.Apply(event("token", `{"content":"A"}`))
	turn.Apply(event("token", `{"content":"B"}`))
	turn.Apply(event("token", `{"content":"C"}`))

	if msg := assistantMsg(t, l, turn); msg.Content != "ABC" {
		t.Errorf("expected streamed content ABC, got %q", msg.Content)
	}

	turn.Apply(event("message_end", `{"content":"FINAL","report":{"mevType":"sandwich"}}`))

	msg := assistantMsg(t, l, turn)
	if msg.Content != "FINAL" {
		t.Errorf("final content must be authoritative, got %q", msg.Content)
	}
	if msg.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", msg.Status)
	}
	if msg.Report == nil {
		t.Error("expected report attached at finalization")
	}
}

func TestProgressLogExclusions(t *testing.T) {
	l := NewList(nil)
	turn := l.StartTurn("", "0xabc")

	turn.Apply(event("session", `{"conversationId":"conv_9"}`))
	turn.Apply(event("rpc_done", `{"blockNumber":1}`))
	turn.Apply(event("etherscan_start", `{}`))
	turn.Apply(event("draft_chunk", `{"content":"x"}`))
	turn.Apply(event("token", `{"content":"y"}`))
	turn.Apply(event("tenderly_done", `{"trace":{},"calls":[]}`))
	turn.Apply(event("mystery_kind", `{"z":1}`))

	msg := assistantMsg(t, l, turn)
	want := []EventKind{"rpc_done", "etherscan_start", "token", "tenderly_done", "mystery_kind"}
	if len(msg.Progress) != len(want) {
		t.Fatalf("expected %d progress events, got %d", len(want), len(msg.Progress))
	}
	for i, k := range want {
		if msg.Progress[i].Type != k {
			t.Errorf("progress[%d]: expected %s, got %s", i, k, msg.Progress[i].Type)
		}
	}
}

func TestSessionBindRenamesTempConversation(t *testing.T) {
	l := NewList(nil)
	turn := l.StartTurn("", "0xabc")
	tempID := turn.ConversationID()

	turn.Apply(event("session", `{"conversationId":"X"}`))
	turn.Apply(event("message_end", `{"content":"FINAL"}`))

	if turn.ConversationID() != "X" {
		t.Errorf("turn should target bound id, got %s", turn.ConversationID())
	}

	convs := l.All()
	if len(convs) != 1 {
		t.Fatalf("expected exactly one conversation, got %d", len(convs))
	}
	conv := convs[0]
	if conv.ID != "X" {
		t.Errorf("expected bound id X, got %s", conv.ID)
	}
	if l.Get(tempID) != nil {
		t.Error("temp-id conversation must not survive the bind")
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Role != RoleUser {
		t.Error("user message missing after bind")
	}
	if conv.Messages[1].Status != StatusCompleted {
		t.Errorf("expected completed assistant message, got %s", conv.Messages[1].Status)
	}
	if l.CurrentID() != "X" {
		t.Error("bound conversation should be current")
	}
}

func TestSessionBindPreservesOtherTempConversations(t *testing.T) {
	l := NewList(nil)

	// A second in-flight conversation that must survive the bind.
	other := l.StartTurn("", "0xother")
	turn := l.StartTurn("", "0xabc")

	turn.Apply(event("session", `{"conversationId":"X"}`))

	if l.Get(other.ConversationID()) == nil {
		t.Error("unrelated temp conversation was dropped by the bind")
	}
	if l.Get("X") == nil {
		t.Error("bound conversation missing")
	}
}

func TestSessionBindIntoExistingConversation(t *testing.T) {
	l := NewList(nil)
	first := l.StartTurn("", "0xabc")
	first.Apply(event("session", `{"conversationId":"X"}`))
	first.Apply(event("message_end", `{"content":"one"}`))

	// Follow-up in the same durable conversation.
	second := l.StartTurn("X", "and then?")
	if second.RequestConversationID() != "X" {
		t.Errorf("durable id should be sent, got %s", second.RequestConversationID())
	}
	second.Apply(event("session", `{"conversationId":"X"}`))
	second.Apply(event("message_end", `{"content":"two"}`))

	convs := l.All()
	if len(convs) != 1 {
		t.Fatalf("expected one conversation, got %d", len(convs))
	}
	if n := len(convs[0].Messages); n != 4 {
		t.Errorf("expected 4 messages, got %d", n)
	}
}

func TestConcurrentTurnsTargetTheirOwnConversations(t *testing.T) {
	l := NewList(nil)
	a := l.StartTurn("", "0xaaa")
	b := l.StartTurn("", "0xbbb")

	a.Apply(event("token", `{"content":"from-a"}`))
	b.Apply(event("token", `{"content":"from-b"}`))
	a.Apply(event("message_end", `{"content":"A-FINAL"}`))
	b.Apply(event("message_end", `{"content":"B-FINAL"}`))

	if msg := assistantMsg(t, l, a); msg.Content != "A-FINAL" {
		t.Errorf("turn A content %q", msg.Content)
	}
	if msg := assistantMsg(t, l, b); msg.Content != "B-FINAL" {
		t.Errorf("turn B content %q", msg.Content)
	}
}

func TestFailMarksPlaceholderOnly(t *testing.T) {
	l := NewList(nil)
	turn := l.StartTurn("", "0xabc")
	turn.Apply(event("rpc_done", `{"blockNumber":1}`))

	turn.Fail()

	conv := l.Get(turn.ConversationID())
	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Content != "0xabc" {
		t.Error("user message must be untouched")
	}
	msg := conv.Messages[1]
	if msg.Status != StatusError {
		t.Errorf("expected error status, got %s", msg.Status)
	}
	if msg.Content != constants.AnalysisFailedMessage {
		t.Errorf("expected fixed failure message, got %q", msg.Content)
	}
}

func TestStatusNeverTransitionsBackward(t *testing.T) {
	l := NewList(nil)
	turn := l.StartTurn("", "0xabc")
	turn.Apply(event("message_end", `{"content":"FINAL"}`))

	// Late events after finalization must not reopen the message.
	turn.Apply(event("token", `{"content":"zombie"}`))
	turn.Fail()

	msg := assistantMsg(t, l, turn)
	if msg.Status != StatusCompleted {
		t.Errorf("status regressed to %s", msg.Status)
	}
	if msg.Content != "FINAL" {
		t.Errorf("content changed after finalization: %q", msg.Content)
	}
}

func TestTrailingDoneStillRecordedInProgress(t *testing.T) {
	l := NewList(nil)
	turn := l.StartTurn("", "0xabc")

	turn.Apply(event("message_end", `{"content":"FINAL"}`))
	turn.Apply(event("done", `{}`))

	msg := assistantMsg(t, l, turn)
	last := msg.Progress[len(msg.Progress)-1]
	if last.Type != EventDone {
		t.Errorf("expected trailing done in progress log, got %s", last.Type)
	}
}

func TestDiscardRemovesPlaceholder(t *testing.T) {
	l := NewList(nil)
	turn := l.StartTurn("", "0xabc")

	turn.Discard()

	conv := l.Get(turn.ConversationID())
	if len(conv.Messages) != 1 {
		t.Fatalf("expected only the user message, got %d messages", len(conv.Messages))
	}
	if conv.Messages[0].Role != RoleUser {
		t.Error("user message must survive the payment branch")
	}
}

func TestNilPayloadEventsAreIgnored(t *testing.T) {
	l := NewList(nil)
	turn := l.StartTurn("", "0xabc")

	turn.Apply(sse.Event{Type: "etherscan_done"})

	if msg := assistantMsg(t, l, turn); len(msg.Progress) != 0 {
		t.Errorf("payload-less event must not be folded in, got %d progress entries", len(msg.Progress))
	}
}

type recordingSaver struct {
	saves int
	last  []*Conversation
}

func (r *recordingSaver) SaveConversations(convs []*Conversation) error {
	r.saves++
	r.last = convs
	return nil
}

func TestEveryMutationPersists(t *testing.T) {
	saver := &recordingSaver{}
	l := NewList(saver)

	turn := l.StartTurn("", "0xabc")
	afterStart := saver.saves
	if afterStart == 0 {
		t.Fatal("StartTurn did not persist")
	}

	turn.Apply(event("token", `{"content":"A"}`))
	if saver.saves <= afterStart {
		t.Error("Apply did not persist")
	}

	l.Delete(turn.ConversationID())
	if len(saver.last) != 0 {
		t.Errorf("expected empty persisted list after delete, got %d", len(saver.last))
	}
}

func TestDeleteMovesFocus(t *testing.T) {
	l := NewList(nil)
	a := l.New()
	b := l.New()

	if l.CurrentID() != b.ID {
		t.Fatalf("expected %s current, got %s", b.ID, l.CurrentID())
	}
	l.Delete(b.ID)
	if l.CurrentID() != a.ID {
		t.Errorf("expected focus to move to %s, got %s", a.ID, l.CurrentID())
	}
	l.Delete(a.ID)
	if l.CurrentID() != "" {
		t.Errorf("expected no current conversation, got %s", l.CurrentID())
	}
}

func TestSeedSetsCurrent(t *testing.T) {
	l := NewList(nil)
	convs := []*Conversation{
		{ID: "x", Title: "first"},
		{ID: "y", Title: "second"},
	}
	l.Seed(convs)

	if l.CurrentID() != "x" {
		t.Errorf("expected x current, got %s", l.CurrentID())
	}
	if len(l.All()) != 2 {
		t.Errorf("expected 2 conversations")
	}
}

func TestManyTokensAccumulate(t *testing.T) {
	l := NewList(nil)
	turn := l.StartTurn("", "0xabc")

	var want string
	for i := 0; i < 50; i++ {
		piece := fmt.Sprintf("t%d ", i)
		want += piece
		turn.Apply(event("token", fmt.Sprintf(`{"content":"%s"}`, piece)))
	}

	if msg := assistantMsg(t, l, turn); msg.Content != want {
		t.Errorf("accumulated content mismatch")
	}
}
