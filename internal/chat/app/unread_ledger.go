package app

import (
	"context"

	"intranet_chat/internal/chat/domain"
	"intranet_chat/pkg/logger"
	"intranet_chat/pkg/metrics"

	"go.uber.org/zap"
)

// UnreadResetter 把聊天室摘要上自己的未讀數歸零，讓其他裝置同步
type UnreadResetter interface {
	ResetUnread(ctx context.Context, conversationID, userID string) error
}

// BadgeFunc 未讀數變動時呼叫
type BadgeFunc func(conversationID string, count, total int)

// UnreadLedger 每個聊天室與總未讀數，total 永遠等於各聊天室加總
type UnreadLedger struct {
	userID   string
	oracle   VisibilityOracle
	resetter UnreadResetter
	onChange BadgeFunc

	counts map[string]int
	total  int
}

// NewUnreadLedger create UnreadLedger, resetter 與 onChange 可為 nil
func NewUnreadLedger(userID string, oracle VisibilityOracle, resetter UnreadResetter, onChange BadgeFunc) *UnreadLedger {
	return &UnreadLedger{
		userID:   userID,
		oracle:   oracle,
		resetter: resetter,
		onChange: onChange,
		counts:   make(map[string]int),
	}
}

// Increment 聊天室正在被看時不計數
func (l *UnreadLedger) Increment(id string) bool {
	if l.oracle.IsConversationVisible(id) {
		return false
	}
	l.counts[id]++
	l.total++
	metrics.ChatEvent("unread_increment")
	l.changed(id)
	return true
}

// Clear 歸零並 best-effort 寫回摘要，回傳清掉的數量
func (l *UnreadLedger) Clear(ctx context.Context, id string) int {
	cleared := l.counts[id]
	delete(l.counts, id)
	l.total -= cleared
	if l.total < 0 {
		l.total = 0
	}

	if l.resetter != nil {
		if err := l.resetter.ResetUnread(ctx, id, l.userID); err != nil {
			logger.Log.Warn("reset unread", zap.String("conversation_id", id), zap.String("user_id", l.userID), zap.Error(err))
		}
	}
	l.changed(id)
	return cleared
}

// ReconcileInitial 以第一次 snapshot 重新計算：不是自己送的且 read_by 沒有自己
func (l *UnreadLedger) ReconcileInitial(id string, msgs []domain.Message) int {
	n := 0
	if !l.oracle.IsConversationVisible(id) {
		for _, m := range msgs {
			if m.SenderID != l.userID && !m.IsReadBy(l.userID) {
				n++
			}
		}
	}

	l.total += n - l.counts[id]
	if n == 0 {
		delete(l.counts, id)
	} else {
		l.counts[id] = n
	}
	l.changed(id)
	return n
}

// Count 單一聊天室未讀數
func (l *UnreadLedger) Count(id string) int {
	return l.counts[id]
}

// Total 總未讀數
func (l *UnreadLedger) Total() int {
	return l.total
}

// Snapshot 只包含未讀數大於 0 的聊天室
func (l *UnreadLedger) Snapshot() map[string]int {
	out := make(map[string]int, len(l.counts))
	for id, n := range l.counts {
		out[id] = n
	}
	return out
}

func (l *UnreadLedger) changed(id string) {
	if l.onChange != nil {
		l.onChange(id, l.counts[id], l.total)
	}
}
