package domain

import "time"

// Conversation 聊天室摘要，第一次送訊息時建立
type Conversation struct {
	ID            string         `bson:"_id" json:"id"`
	Participants  []string       `bson:"participants" json:"participants"`
	Group         bool           `bson:"group" json:"group"`
	LastMessage   string         `bson:"last_message" json:"last_message"`
	LastMessageAt time.Time      `bson:"last_message_at" json:"last_message_at"`
	LastSenderID  string         `bson:"last_sender_id" json:"last_sender_id"`
	Unread        map[string]int `bson:"unread" json:"unread"`
}

// Peer 1對1 聊天室的另一方，group 回傳空字串
func (c Conversation) Peer(userID string) string {
	if c.Group {
		return ""
	}
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// Recipients 除了 sender 以外的所有成員
func (c Conversation) Recipients(senderID string) []string {
	out := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != senderID {
			out = append(out, p)
		}
	}
	return out
}

// QuickRooms 固定 id 的群組聊天室
type QuickRooms map[string]struct{}

// NewQuickRooms create QuickRooms
func NewQuickRooms(ids []string) QuickRooms {
	q := make(QuickRooms, len(ids))
	for _, id := range ids {
		q[id] = struct{}{}
	}
	return q
}

// Has 是否為群組聊天室
func (q QuickRooms) Has(id string) bool {
	_, ok := q[id]
	return ok
}

// ViewingKey redis key：member 目前正在看的 entity
func ViewingKey(userID string) string {
	return "chat:viewing:" + userID
}
