package app

import (
	"sort"
	"time"

	"intranet_chat/internal/chat/domain"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

type pendingSend struct {
	conversationID string
	state          domain.SendState
	err            error
}

// ConversationStore session 內的聊天室與訊息 cache
// 不是 thread safe，由 Session 的 lock 保護
type ConversationStore struct {
	userID        string
	messages      map[string][]domain.Message
	pending       map[string]*pendingSend
	conversations map[string]domain.Conversation
}

// NewConversationStore create ConversationStore
func NewConversationStore(userID string) *ConversationStore {
	return &ConversationStore{
		userID:        userID,
		messages:      make(map[string][]domain.Message),
		pending:       make(map[string]*pendingSend),
		conversations: make(map[string]domain.Conversation),
	}
}

// SetConversations 以 db 列表取代聊天室摘要
func (s *ConversationStore) SetConversations(list []domain.Conversation) {
	s.conversations = make(map[string]domain.Conversation, len(list))
	for _, c := range list {
		s.conversations[c.ID] = c
	}
}

// Conversations 依最後訊息時間倒序
func (s *ConversationStore) Conversations() []domain.Conversation {
	out := make([]domain.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out
}

// Messages 依 created_at 排序的副本
func (s *ConversationStore) Messages(id string) []domain.Message {
	msgs := s.messages[id]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Merge snapshot 或較舊的分頁，以 id 去重
func (s *ConversationStore) Merge(id string, msgs []domain.Message) {
	for _, m := range msgs {
		s.upsert(id, m)
	}
}

// Oldest 分頁游標
func (s *ConversationStore) Oldest(id string) (time.Time, bool) {
	for _, m := range s.messages[id] {
		if !m.Pending {
			return m.CreatedAt, true
		}
	}
	return time.Time{}, false
}

// AddPending 送出前先放一筆 placeholder，id 為 client id
func (s *ConversationStore) AddPending(msg domain.Message) {
	id := msg.ResolveConversationID()
	msg.ID = msg.ClientID
	msg.Pending = true
	s.pending[msg.ClientID] = &pendingSend{conversationID: id, state: domain.SendPending}
	s.upsert(id, msg)
}

// Confirm 寫入成功或先收到同 client id 的 message.added，兩者誰先到都只會生效一次
func (s *ConversationStore) Confirm(clientID string, msg domain.Message) bool {
	p, ok := s.pending[clientID]
	if !ok || p.state != domain.SendPending {
		return false
	}
	p.state = domain.SendConfirmed
	s.remove(p.conversationID, clientID)
	msg.Pending = false
	s.upsert(p.conversationID, msg)
	return true
}

// Fail 寫入失敗，placeholder 保留讓前端顯示
func (s *ConversationStore) Fail(clientID string, err error) bool {
	p, ok := s.pending[clientID]
	if !ok || p.state != domain.SendPending {
		return false
	}
	p.state = domain.SendFailed
	p.err = err
	return true
}

// SendState 查詢送出狀態
func (s *ConversationStore) SendState(clientID string) (domain.SendState, bool) {
	p, ok := s.pending[clientID]
	if !ok {
		return "", false
	}
	return p.state, true
}

// Apply 套用 pub/sub 事件，回傳 cache 是否有變動
func (s *ConversationStore) Apply(ev domain.Event) bool {
	switch ev.Type {
	case domain.EventMessageAdded:
		m := *ev.Message
		if m.ClientID != "" && s.Confirm(m.ClientID, m) {
			return true
		}
		if p, ok := s.pending[m.ClientID]; ok && m.ClientID != "" && p.state == domain.SendFailed {
			s.remove(p.conversationID, m.ClientID)
		}
		s.upsert(m.ResolveConversationID(), m)
		s.touch(m)
		return true

	case domain.EventMessageModified:
		s.upsert(ev.Message.ResolveConversationID(), *ev.Message)
		return true

	case domain.EventMessageRemoved:
		return s.remove(ev.Removed.ConversationID, ev.Removed.ID)

	case domain.EventConversationCleared:
		id := ev.Cleared.ConversationID
		s.messages[id] = nil
		s.dropPending(id)
		if c, ok := s.conversations[id]; ok {
			c.LastMessage = ""
			c.LastSenderID = ""
			s.conversations[id] = c
		}
		return true
	}
	return false
}

// Drop 清掉該聊天室的所有 cache
func (s *ConversationStore) Drop(id string) {
	delete(s.messages, id)
	delete(s.conversations, id)
	s.dropPending(id)
}

// Search 以 label 與成員 id 模糊比對，越相近越前面
func (s *ConversationStore) Search(query string, label func(domain.Conversation) string) []domain.Conversation {
	if query == "" {
		return s.Conversations()
	}

	type ranked struct {
		conv domain.Conversation
		rank int
	}
	var hits []ranked
	for _, c := range s.Conversations() {
		best := -1
		for _, target := range append([]string{label(c), c.ID}, c.Participants...) {
			if r := fuzzy.RankMatchFold(query, target); r >= 0 && (best < 0 || r < best) {
				best = r
			}
		}
		if best >= 0 {
			hits = append(hits, ranked{conv: c, rank: best})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })
	out := make([]domain.Conversation, len(hits))
	for i, h := range hits {
		out[i] = h.conv
	}
	return out
}

func (s *ConversationStore) upsert(id string, m domain.Message) {
	if id == "" {
		return
	}
	msgs := s.messages[id]
	for i := range msgs {
		if msgs[i].ID == m.ID {
			msgs[i] = m
			return
		}
	}
	msgs = append(msgs, m)
	domain.SortMessages(msgs)
	s.messages[id] = msgs
}

func (s *ConversationStore) remove(id, messageID string) bool {
	msgs := s.messages[id]
	for i := range msgs {
		if msgs[i].ID == messageID {
			s.messages[id] = append(msgs[:i], msgs[i+1:]...)
			return true
		}
	}
	return false
}

func (s *ConversationStore) touch(m domain.Message) {
	id := m.ResolveConversationID()
	c, ok := s.conversations[id]
	if !ok {
		c = domain.Conversation{ID: id, Participants: participantsOf(m)}
	}
	if m.CreatedAt.Before(c.LastMessageAt) {
		return
	}
	c.LastMessage = m.Text
	c.LastMessageAt = m.CreatedAt
	c.LastSenderID = m.SenderID
	s.conversations[id] = c
}

func (s *ConversationStore) dropPending(id string) {
	for clientID, p := range s.pending {
		if p.conversationID == id {
			delete(s.pending, clientID)
		}
	}
}

func participantsOf(m domain.Message) []string {
	if m.RecipientID == "" {
		return []string{m.SenderID}
	}
	return []string{m.SenderID, m.RecipientID}
}
