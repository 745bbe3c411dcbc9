package domain

import "errors"

// WindowState 聊天視窗狀態
type WindowState string

const (
	// WindowClosed 未開啟
	WindowClosed WindowState = "closed"
	// WindowPanelOpen 聊天列表開啟，沒有 focus 的聊天室
	WindowPanelOpen WindowState = "panel_open"
	// WindowThreadOpen 聊天室 focus 中
	WindowThreadOpen WindowState = "thread_open"
	// WindowThreadMinimized 聊天室縮小為 pill
	WindowThreadMinimized WindowState = "thread_minimized"
	// WindowRemoved 聊天室已刪除
	WindowRemoved WindowState = "removed"
)

// 視窗狀態錯誤
var (
	ErrPanelClosed       = errors.New("chat panel is closed")
	ErrNoActiveThread    = errors.New("no active thread")
	ErrInvalidTransition = errors.New("invalid window transition")
)

// Pill 縮小的聊天室
type Pill struct {
	ConversationID string `json:"conversation_id"`
	Label          string `json:"label"`
	Blinking       bool   `json:"blinking"`
}
