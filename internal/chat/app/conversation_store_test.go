package app

import (
	"errors"
	"testing"
	"time"

	"intranet_chat/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingMsg(clientID string) domain.Message {
	return domain.Message{ClientID: clientID, ConversationID: "a_b", SenderID: "a", RecipientID: "b", Text: "hola"}
}

func TestConversationStore_ConfirmBeforeEvent(t *testing.T) {
	s := NewConversationStore("a")
	s.AddPending(pendingMsg("c1"))

	msgs := s.Messages("a_b")
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Pending)
	assert.Equal(t, "c1", msgs[0].ID)

	real := domain.Message{ID: "m1", ClientID: "c1", ConversationID: "a_b", SenderID: "a", RecipientID: "b", Text: "hola", CreatedAt: time.Now()}
	assert.True(t, s.Confirm("c1", real))

	// 之後才收到的事件只是同 id upsert
	assert.True(t, s.Apply(domain.Event{Type: domain.EventMessageAdded, Message: &real}))
	assert.False(t, s.Confirm("c1", real))

	msgs = s.Messages("a_b")
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.False(t, msgs[0].Pending)
	state, ok := s.SendState("c1")
	assert.True(t, ok)
	assert.Equal(t, domain.SendConfirmed, state)
}

func TestConversationStore_EventBeforeConfirm(t *testing.T) {
	s := NewConversationStore("a")
	s.AddPending(pendingMsg("c1"))

	real := domain.Message{ID: "m1", ClientID: "c1", ConversationID: "a_b", SenderID: "a", RecipientID: "b", Text: "hola", CreatedAt: time.Now()}
	assert.True(t, s.Apply(domain.Event{Type: domain.EventMessageAdded, Message: &real}))
	assert.False(t, s.Confirm("c1", real))

	msgs := s.Messages("a_b")
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
}

func TestConversationStore_FailedNeverRegresses(t *testing.T) {
	s := NewConversationStore("a")
	s.AddPending(pendingMsg("c1"))

	assert.True(t, s.Fail("c1", errors.New("boom")))
	assert.False(t, s.Fail("c1", errors.New("again")))
	assert.False(t, s.Confirm("c1", domain.Message{ID: "m1", ClientID: "c1"}))

	state, _ := s.SendState("c1")
	assert.Equal(t, domain.SendFailed, state)
	msgs := s.Messages("a_b")
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Pending)
}

func TestConversationStore_ApplyEvents(t *testing.T) {
	now := time.Now()
	s := NewConversationStore("a")
	s.Merge("a_b", []domain.Message{
		{ID: "2", ConversationID: "a_b", SenderID: "b", CreatedAt: now.Add(time.Second)},
		{ID: "1", ConversationID: "a_b", SenderID: "a", CreatedAt: now},
	})
	s.Merge("a_b", []domain.Message{{ID: "1", ConversationID: "a_b", SenderID: "a", CreatedAt: now}})
	require.Len(t, s.Messages("a_b"), 2)
	assert.Equal(t, "1", s.Messages("a_b")[0].ID)

	oldest, ok := s.Oldest("a_b")
	assert.True(t, ok)
	assert.True(t, oldest.Equal(now))

	modified := domain.Message{ID: "2", ConversationID: "a_b", SenderID: "b", CreatedAt: now.Add(time.Second), ReadBy: []string{"a"}}
	s.Apply(domain.Event{Type: domain.EventMessageModified, Message: &modified})
	assert.True(t, s.Messages("a_b")[1].IsReadBy("a"))

	assert.True(t, s.Apply(domain.Event{Type: domain.EventMessageRemoved, Removed: &domain.MessageRef{ConversationID: "a_b", ID: "1"}}))
	assert.False(t, s.Apply(domain.Event{Type: domain.EventMessageRemoved, Removed: &domain.MessageRef{ConversationID: "a_b", ID: "1"}}))
	require.Len(t, s.Messages("a_b"), 1)

	s.Apply(domain.Event{Type: domain.EventConversationCleared, Cleared: &domain.ConversationCleared{ConversationID: "a_b", ClearedBy: "b"}})
	assert.Empty(t, s.Messages("a_b"))

	s.Drop("a_b")
	_, ok = s.Oldest("a_b")
	assert.False(t, ok)
}

func TestConversationStore_Search(t *testing.T) {
	now := time.Now()
	s := NewConversationStore("me")
	s.SetConversations([]domain.Conversation{
		{ID: "alice_me", Participants: []string{"alice", "me"}, LastMessageAt: now},
		{ID: "bob_me", Participants: []string{"bob", "me"}, LastMessageAt: now.Add(time.Minute)},
		{ID: "general", Group: true, Participants: []string{"bob", "carol", "me"}, LastMessageAt: now.Add(-time.Minute)},
	})
	labels := map[string]string{"alice_me": "Alice Wong", "bob_me": "Bob Chen", "general": "General"}
	label := func(c domain.Conversation) string { return labels[c.ID] }

	all := s.Search("", label)
	require.Len(t, all, 3)
	assert.Equal(t, "bob_me", all[0].ID)

	hits := s.Search("alc", label)
	require.NotEmpty(t, hits)
	assert.Equal(t, "alice_me", hits[0].ID)

	hits = s.Search("GENERAL", label)
	require.Len(t, hits, 1)
	assert.Equal(t, "general", hits[0].ID)

	assert.Empty(t, s.Search("zzz", label))
}
