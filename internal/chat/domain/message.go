package domain

import (
	"sort"
	"strings"
	"time"
)

// Message 表示一則聊天訊息
type Message struct {
	ID             string    `bson:"_id" json:"id" validate:"required"`
	ClientID       string    `bson:"client_id,omitempty" json:"client_id,omitempty"`
	ConversationID string    `bson:"conversation_id" json:"conversation_id,omitempty"`
	SenderID       string    `bson:"sender_id" json:"sender_id" validate:"required"`
	RecipientID    string    `bson:"recipient_id,omitempty" json:"recipient_id,omitempty"`
	Text           string    `bson:"text" json:"text"`
	AttachmentURL  string    `bson:"attachment_url,omitempty" json:"attachment_url,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	ReadBy         []string  `bson:"read_by" json:"read_by"`

	// Pending 只存在於本地 cache，不寫入 db
	Pending bool `bson:"-" json:"pending,omitempty"`
}

// IsReadBy userID 是否在 read_by 內
func (m Message) IsReadBy(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// ResolveConversationID 優先使用 conversation_id，否則由 sender/recipient 推導
func (m Message) ResolveConversationID() string {
	if m.ConversationID != "" {
		return m.ConversationID
	}
	if m.SenderID == "" || m.RecipientID == "" {
		return ""
	}
	return DirectConversationID(m.SenderID, m.RecipientID)
}

// DirectConversationID 1對1 聊天室 id：兩個 member id 排序後以 "_" 串接
func DirectConversationID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// SortMessages 依 created_at、id 排序
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

// SendState 本地送出狀態
type SendState string

const (
	// SendPending 等待確認
	SendPending SendState = "pending"
	// SendConfirmed 已寫入
	SendConfirmed SendState = "confirmed"
	// SendFailed 寫入失敗
	SendFailed SendState = "failed"
)
