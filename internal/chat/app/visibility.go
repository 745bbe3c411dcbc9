package app

// VisibilityOracle 判斷聊天室是否正被使用者看著
type VisibilityOracle interface {
	IsConversationVisible(id string) bool
}

// OracleFunc 讓一般 func 實作 VisibilityOracle
type OracleFunc func(id string) bool

// IsConversationVisible implements VisibilityOracle
func (f OracleFunc) IsConversationVisible(id string) bool {
	return f(id)
}

// ViewState 每次呼叫都即時計算：面板開啟、focus 在該聊天室、分頁沒有隱藏
type ViewState struct {
	windows   *WindowManager
	tabHidden bool
}

// NewViewState create ViewState
func NewViewState(windows *WindowManager) *ViewState {
	return &ViewState{windows: windows}
}

// IsConversationVisible implements VisibilityOracle
func (v *ViewState) IsConversationVisible(id string) bool {
	return id != "" &&
		v.windows.PanelOpen() &&
		v.windows.Active() == id &&
		!v.tabHidden
}

// SetTabHidden 前端 visibilitychange
func (v *ViewState) SetTabHidden(hidden bool) {
	v.tabHidden = hidden
}

// TabHidden 分頁是否隱藏
func (v *ViewState) TabHidden() bool {
	return v.tabHidden
}

// ViewingEntity 目前看著的聊天室，沒有則為空字串
func (v *ViewState) ViewingEntity() string {
	if active := v.windows.Active(); v.IsConversationVisible(active) {
		return active
	}
	return ""
}
