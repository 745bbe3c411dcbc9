package domain

import (
	"strings"
	"time"
)

// Type 通知種類
type Type string

const (
	// TypeDirectChat 1對1 聊天
	TypeDirectChat Type = "direct_chat"
	// TypeGroupChat 群組聊天
	TypeGroupChat Type = "group_chat"
	// TypeForum 論壇新貼文
	TypeForum Type = "forum"
	// TypeComment 留言
	TypeComment Type = "comment"
	// TypeLike 按讚
	TypeLike Type = "like"
)

// Notification 每個 (recipient, type, entity) 只有一筆
type Notification struct {
	ID          string    `bson:"_id" json:"id"`
	RecipientID string    `bson:"recipient_id" json:"recipient_id"`
	SenderID    string    `bson:"sender_id" json:"sender_id"`
	Type        Type      `bson:"type" json:"type"`
	EntityID    string    `bson:"entity_id" json:"entity_id"`
	Route       string    `bson:"route" json:"route"`
	Title       string    `bson:"title" json:"title"`
	Body        string    `bson:"body" json:"body"`
	Read        bool      `bson:"read" json:"read"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// Key 冪等鍵 recipient|type|entity
func Key(recipientID string, t Type, entityID string) string {
	return strings.Join([]string{recipientID, string(t), entityID}, "|")
}

// Input 寫入通知的參數
type Input struct {
	RecipientID string `validate:"required"`
	SenderID    string `validate:"required"`
	Type        Type   `validate:"required,oneof=direct_chat group_chat forum comment like"`
	EntityID    string `validate:"required"`
	Route       string
	Title       string `validate:"max=200"`
	Body        string
}

// UpsertResult 寫入結果
type UpsertResult struct {
	Key     string `json:"key"`
	Created bool   `json:"created"`
	Read    bool   `json:"read"`
}

// Outcome created or merged
func (r UpsertResult) Outcome() string {
	if r.Created {
		return "created"
	}
	return "merged"
}
