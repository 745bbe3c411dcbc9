package app

import "intranet_chat/internal/chat/domain"

// WindowManager 聊天面板、聊天室視窗與 pill 的狀態機
// 不是 thread safe，由 Session 的 lock 保護
type WindowManager struct {
	panelOpen bool
	active    string
	states    map[string]domain.WindowState
	labels    map[string]string
	pills     []domain.Pill
}

// NewWindowManager create WindowManager
func NewWindowManager() *WindowManager {
	return &WindowManager{
		states: make(map[string]domain.WindowState),
		labels: make(map[string]string),
	}
}

// OpenLauncher closed -> panel_open
func (w *WindowManager) OpenLauncher() {
	w.panelOpen = true
}

// ClosePanel 關閉面板以及目前 focus 的聊天室
func (w *WindowManager) ClosePanel() {
	w.panelOpen = false
	if w.active != "" {
		w.states[w.active] = domain.WindowClosed
		w.active = ""
	}
}

// Select panel_open -> thread_open，原本 focus 的聊天室會縮小成 pill
func (w *WindowManager) Select(id, label string) error {
	if !w.panelOpen {
		return domain.ErrPanelClosed
	}
	if label != "" {
		w.labels[id] = label
	}
	w.focus(id)
	return nil
}

// Minimize thread_open -> thread_minimized
func (w *WindowManager) Minimize() error {
	if w.active == "" {
		return domain.ErrNoActiveThread
	}
	w.minimize(w.active)
	w.active = ""
	return nil
}

// Reopen 點擊 pill，thread_minimized -> thread_open 並停止閃爍
func (w *WindowManager) Reopen(id string) error {
	if w.states[id] != domain.WindowThreadMinimized {
		return domain.ErrInvalidTransition
	}
	w.panelOpen = true
	w.focus(id)
	return nil
}

// Blink 只有縮小中的聊天室會閃爍
func (w *WindowManager) Blink(id string) bool {
	if w.states[id] != domain.WindowThreadMinimized {
		return false
	}
	for i := range w.pills {
		if w.pills[i].ConversationID == id {
			w.pills[i].Blinking = true
			return true
		}
	}
	return false
}

// Close 只關閉 UI，不影響資料
func (w *WindowManager) Close(id string) {
	w.states[id] = domain.WindowClosed
	w.dropPill(id)
	if w.active == id {
		w.active = ""
	}
}

// Remove 聊天室刪除後不再顯示
func (w *WindowManager) Remove(id string) {
	w.states[id] = domain.WindowRemoved
	w.dropPill(id)
	delete(w.labels, id)
	if w.active == id {
		w.active = ""
	}
}

// State 沒有紀錄視為 closed
func (w *WindowManager) State(id string) domain.WindowState {
	if s, ok := w.states[id]; ok {
		return s
	}
	return domain.WindowClosed
}

// Active 目前 focus 的聊天室
func (w *WindowManager) Active() string {
	return w.active
}

// PanelOpen 面板是否開啟
func (w *WindowManager) PanelOpen() bool {
	return w.panelOpen
}

// Label 聊天室顯示名稱
func (w *WindowManager) Label(id string) string {
	return w.labels[id]
}

// Pills 依縮小順序
func (w *WindowManager) Pills() []domain.Pill {
	out := make([]domain.Pill, len(w.pills))
	copy(out, w.pills)
	return out
}

func (w *WindowManager) focus(id string) {
	if w.active != "" && w.active != id {
		w.minimize(w.active)
	}
	w.states[id] = domain.WindowThreadOpen
	w.active = id
	w.dropPill(id)
}

func (w *WindowManager) minimize(id string) {
	w.states[id] = domain.WindowThreadMinimized
	label := w.labels[id]
	if label == "" {
		label = id
	}
	for i := range w.pills {
		if w.pills[i].ConversationID == id {
			w.pills[i].Label = label
			return
		}
	}
	w.pills = append(w.pills, domain.Pill{ConversationID: id, Label: label})
}

func (w *WindowManager) dropPill(id string) {
	for i := range w.pills {
		if w.pills[i].ConversationID == id {
			w.pills = append(w.pills[:i], w.pills[i+1:]...)
			return
		}
	}
}
