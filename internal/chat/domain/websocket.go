package domain

// Action websocket request action
type Action string

const (
	// OpenLauncher websocket action open_launcher
	OpenLauncher Action = "open_launcher"
	// ClosePanel websocket action close_panel
	ClosePanel Action = "close_panel"
	// SelectConversation websocket action select_conversation
	SelectConversation Action = "select_conversation"
	// Minimize websocket action minimize
	Minimize Action = "minimize"
	// ReopenPill websocket action reopen_pill
	ReopenPill Action = "reopen_pill"
	// CloseConversation websocket action close_conversation
	CloseConversation Action = "close_conversation"
	// SetTabHidden websocket action set_tab_hidden
	SetTabHidden Action = "set_tab_hidden"

	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// SendAttachment websocket action send_attachment
	SendAttachment Action = "send_attachment"
	// LoadOlder websocket action load_older
	LoadOlder Action = "load_older"
	// DeleteMessage websocket action delete_message
	DeleteMessage Action = "delete_message"
	// DeleteConversation websocket action delete_conversation
	DeleteConversation Action = "delete_conversation"

	// ListConversations websocket action list_conversations
	ListConversations Action = "list_conversations"
	// SearchConversations websocket action search_conversations
	SearchConversations Action = "search_conversations"
	// GetSnapshot websocket action snapshot
	GetSnapshot Action = "snapshot"
)

// server 主動推送的 UI effect
const (
	EffectToast     Action = "toast"
	EffectBadge     Action = "badge"
	EffectSound     Action = "sound"
	EffectPillBlink Action = "pill_blink"
	EffectPills     Action = "pills"
	EffectMessages  Action = "messages"
	EffectPresence  Action = "presence"
	EffectSendState Action = "send_state"
)

// WSRequest websocket Request
type WSRequest struct {
	Action         string `json:"action" validate:"required,oneof=open_launcher close_panel select_conversation minimize reopen_pill close_conversation set_tab_hidden send_message send_attachment load_older delete_message delete_conversation list_conversations search_conversations snapshot"`
	ConversationID string `json:"conversation_id" validate:"omitempty,max=128"`
	RecipientID    string `json:"recipient_id" validate:"omitempty,max=64"`
	Label          string `json:"label" validate:"omitempty,max=128"`
	Text           string `json:"text" validate:"omitempty,max=4000"`
	ClientID       string `json:"client_id" validate:"omitempty,max=64"`
	MessageID      string `json:"message_id"`
	AttachmentURL  string `json:"attachment_url" validate:"omitempty,url"`
	Password       string `json:"password"`
	Hidden         bool   `json:"hidden"`
	Query          string `json:"query" validate:"omitempty,max=128"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
