package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	errprocess "intranet_chat/pkg/err"
	"intranet_chat/pkg/validate"
)

// EventType pub/sub 事件種類
type EventType string

const (
	// EventMessageAdded 新訊息
	EventMessageAdded EventType = "message.added"
	// EventMessageModified 訊息更新 (例如 read_by)
	EventMessageModified EventType = "message.modified"
	// EventMessageRemoved 訊息刪除
	EventMessageRemoved EventType = "message.removed"
	// EventConversationCleared 聊天室訊息清空
	EventConversationCleared EventType = "conversation.cleared"
	// EventPresenceChanged 上線狀態變更
	EventPresenceChanged EventType = "presence.changed"
)

// Envelope pub/sub 傳輸格式
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MessageRef 指向一則訊息
type MessageRef struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	ID             string `json:"id" validate:"required"`
}

// ConversationCleared 聊天室被清空
type ConversationCleared struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	ClearedBy      string `json:"cleared_by" validate:"required"`
}

// Event 解碼後的事件，依 Type 只會有一個欄位有值
type Event struct {
	Type     EventType
	Message  *Message
	Removed  *MessageRef
	Cleared  *ConversationCleared
	Presence *Presence
}

// ConversationID 事件所屬聊天室
func (e Event) ConversationID() string {
	switch {
	case e.Message != nil:
		return e.Message.ResolveConversationID()
	case e.Removed != nil:
		return e.Removed.ConversationID
	case e.Cleared != nil:
		return e.Cleared.ConversationID
	}
	return ""
}

type decoder func(raw json.RawMessage) (Event, error)

var eventRegistry = map[EventType]decoder{}

func init() {
	register(EventMessageAdded, func(raw json.RawMessage) (Event, error) {
		var m Message
		err := strictDecode(raw, &m)
		return Event{Type: EventMessageAdded, Message: &m}, err
	})
	register(EventMessageModified, func(raw json.RawMessage) (Event, error) {
		var m Message
		err := strictDecode(raw, &m)
		return Event{Type: EventMessageModified, Message: &m}, err
	})
	register(EventMessageRemoved, func(raw json.RawMessage) (Event, error) {
		var r MessageRef
		err := strictDecode(raw, &r)
		return Event{Type: EventMessageRemoved, Removed: &r}, err
	})
	register(EventConversationCleared, func(raw json.RawMessage) (Event, error) {
		var c ConversationCleared
		err := strictDecode(raw, &c)
		return Event{Type: EventConversationCleared, Cleared: &c}, err
	})
	register(EventPresenceChanged, func(raw json.RawMessage) (Event, error) {
		var p Presence
		err := strictDecode(raw, &p)
		return Event{Type: EventPresenceChanged, Presence: &p}, err
	})
}

func register(t EventType, d decoder) {
	eventRegistry[t] = d
}

// RegisteredEventTypes 測試用
func RegisteredEventTypes() []EventType {
	out := make([]EventType, 0, len(eventRegistry))
	for t := range eventRegistry {
		out = append(out, t)
	}
	return out
}

// NewEnvelope 包裝 payload
func NewEnvelope(t EventType, payload interface{}) ([]byte, error) {
	if _, ok := eventRegistry[t]; !ok {
		return nil, errprocess.Validation("encode event", fmt.Sprintf("unknown event type %q", t))
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return json.Marshal(Envelope{Type: t, Payload: raw})
}

// DecodeEvent 依 type 查表後嚴格解碼 payload，未知 type 或欄位不符回傳 ErrValidation
func DecodeEvent(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, errprocess.Wrap(errprocess.ErrValidation, "decode event", err)
	}

	dec, ok := eventRegistry[env.Type]
	if !ok {
		return Event{}, errprocess.Validation("decode event", fmt.Sprintf("unknown event type %q", env.Type))
	}

	ev, err := dec(env.Payload)
	if err != nil {
		return Event{}, errprocess.Wrap(errprocess.ErrValidation, "decode "+string(env.Type), err)
	}
	return ev, nil
}

func strictDecode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty payload")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return validate.Struct("decode payload", v)
}
