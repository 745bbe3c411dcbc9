package domain

import "time"

// TriggerKind kafka 觸發事件種類
type TriggerKind string

const (
	// TriggerMessageCreated 新聊天訊息
	TriggerMessageCreated TriggerKind = "message.created"
	// TriggerPostLiked 貼文被按讚
	TriggerPostLiked TriggerKind = "post.liked"
	// TriggerCommentCreated 新留言
	TriggerCommentCreated TriggerKind = "comment.created"
	// TriggerForumPosted 論壇新貼文
	TriggerForumPosted TriggerKind = "forum.posted"
)

// TriggerEvent 以 msgpack 寫入 kafka
type TriggerEvent struct {
	Kind           TriggerKind `msgpack:"kind"`
	ActorID        string      `msgpack:"actor_id"`
	ActorName      string      `msgpack:"actor_name,omitempty"`
	ConversationID string      `msgpack:"conversation_id,omitempty"`
	Group          bool        `msgpack:"group,omitempty"`
	EntityID       string      `msgpack:"entity_id,omitempty"`
	Recipients     []string    `msgpack:"recipients"`
	Title          string      `msgpack:"title,omitempty"`
	Text           string      `msgpack:"text,omitempty"`
	OccurredAt     time.Time   `msgpack:"occurred_at"`
}

// PartitionKey 同一個 entity 的事件落在同一個 partition
func (e TriggerEvent) PartitionKey() string {
	if e.ConversationID != "" {
		return e.ConversationID
	}
	return e.EntityID
}
