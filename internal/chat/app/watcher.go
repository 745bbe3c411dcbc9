package app

import (
	"context"
	"sync"
	"time"

	"intranet_chat/internal/chat/domain"
	"intranet_chat/internal/chat/repository"
	"intranet_chat/pkg/logger"

	"go.uber.org/zap"
)

// ScopeIncoming 跨聊天室訂閱的權限 scope
const ScopeIncoming = "incoming"

const defaultBacklogLimit = 200

// 以下介面由 Session 實作，呼叫時已持有 session lock
type (
	roomOpener interface {
		// ensureRoom 第一次開啟時回傳 snapshot 內的訊息 id，已開啟回傳 nil
		ensureRoom(ctx context.Context, id string) (map[string]struct{}, error)
	}
	scopeGuard interface {
		latched(scope string) bool
		fail(scope, op string, err error)
	}
)

// IncomingReader watcher 需要的訊息操作
type IncomingReader interface {
	Unread(ctx context.Context, userID string, limit int64) ([]domain.Message, error)
	MarkRead(ctx context.Context, msg domain.Message, userID string) error
}

// IncomingWatcher 以單一訂閱觀察所有寄給自己的新訊息，分成 backlog 與 live
type IncomingWatcher struct {
	userID   string
	feed     repository.EventFeed
	reader   IncomingReader
	ledger   *UnreadLedger
	oracle   VisibilityOracle
	windows  *WindowManager
	rooms    roomOpener
	guard    scopeGuard
	emit     EffectSink
	lock     sync.Locker
	now      func() time.Time
	backlog  int64
	notified map[string]struct{}

	startedAt time.Time
	sub       domain.Subscription
}

// WatcherConfig IncomingWatcher 依賴
type WatcherConfig struct {
	UserID       string
	Feed         repository.EventFeed
	Reader       IncomingReader
	Ledger       *UnreadLedger
	Oracle       VisibilityOracle
	Windows      *WindowManager
	Emit         EffectSink
	Lock         sync.Locker
	Now          func() time.Time
	BacklogLimit int64
}

func newIncomingWatcher(cfg WatcherConfig, rooms roomOpener, guard scopeGuard) *IncomingWatcher {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.BacklogLimit <= 0 {
		cfg.BacklogLimit = defaultBacklogLimit
	}
	return &IncomingWatcher{
		userID:   cfg.UserID,
		feed:     cfg.Feed,
		reader:   cfg.Reader,
		ledger:   cfg.Ledger,
		oracle:   cfg.Oracle,
		windows:  cfg.Windows,
		rooms:    rooms,
		guard:    guard,
		emit:     cfg.Emit,
		lock:     cfg.Lock,
		now:      cfg.Now,
		backlog:  cfg.BacklogLimit,
		notified: make(map[string]struct{}),
	}
}

// start 訂閱 chat:user:<uid> 後載入 backlog，呼叫時已持有 lock
func (w *IncomingWatcher) start(ctx context.Context) error {
	if w.guard.latched(ScopeIncoming) {
		return nil
	}
	w.startedAt = w.now()

	sub, err := w.feed.Subscribe(ctx, repository.UserChannel(w.userID), func(ev domain.Event) {
		if ev.Type != domain.EventMessageAdded || ev.Message == nil {
			return
		}
		w.lock.Lock()
		defer w.lock.Unlock()
		if w.sub == nil {
			return
		}
		w.observe(ctx, *ev.Message)
	})
	if err != nil {
		w.guard.fail(ScopeIncoming, "subscribe incoming", err)
		return err
	}
	w.sub = sub

	msgs, err := w.reader.Unread(ctx, w.userID, w.backlog)
	if err != nil {
		w.guard.fail(ScopeIncoming, "load backlog", err)
		return err
	}
	domain.SortMessages(msgs)
	for _, m := range msgs {
		w.observe(ctx, m)
	}
	logger.Log.Debug("incoming watcher started", zap.String("user_id", w.userID), zap.Int("backlog", len(msgs)))
	return nil
}

func (w *IncomingWatcher) stop() {
	if w.sub != nil {
		w.sub.Unsubscribe()
		w.sub = nil
	}
}

// markNotified snapshot 已計算過的訊息
func (w *IncomingWatcher) markNotified(ids map[string]struct{}) {
	for id := range ids {
		w.notified[id] = struct{}{}
	}
}

// observe 去重、略過自己或已讀、開啟聊天室訂閱，再決定已讀或計入未讀
func (w *IncomingWatcher) observe(ctx context.Context, msg domain.Message) {
	convID := msg.ResolveConversationID()
	if convID == "" || msg.ID == "" {
		return
	}
	if _, seen := w.notified[msg.ID]; seen {
		return
	}
	w.notified[msg.ID] = struct{}{}

	if msg.SenderID == w.userID || msg.IsReadBy(w.userID) {
		return
	}

	covered, err := w.rooms.ensureRoom(ctx, convID)
	if err != nil {
		logger.Log.Warn("open conversation from watcher", zap.String("conversation_id", convID), zap.Error(err))
	}

	if w.oracle.IsConversationVisible(convID) {
		if err := w.reader.MarkRead(ctx, msg, w.userID); err != nil {
			w.guard.fail(convID, "mark read", err)
		}
		return
	}

	if _, accounted := covered[msg.ID]; !accounted {
		w.ledger.Increment(convID)
	}

	if !msg.CreatedAt.After(w.startedAt) {
		return
	}
	w.emit.Emit(domain.EffectSound, map[string]interface{}{
		"conversation_id": convID,
		"message_id":      msg.ID,
		"pulse":           true,
	})
	if w.windows.Blink(convID) {
		w.emit.Emit(domain.EffectPillBlink, map[string]interface{}{
			"conversation_id": convID,
			"pills":           w.windows.Pills(),
		})
	}
}
