package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"intranet_chat/internal/chat/domain"
	"intranet_chat/internal/chat/repository"
	notifdomain "intranet_chat/internal/notification/domain"
	errprocess "intranet_chat/pkg/err"
	"intranet_chat/pkg/logger"
	"intranet_chat/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultPageSize int64 = 50

// Authenticator 刪除前重新驗證密碼
type Authenticator interface {
	Reauthenticate(ctx context.Context, memberID, password string) error
}

// NotificationReader 開啟聊天室時把對應通知標為已讀
type NotificationReader interface {
	MarkEntityRead(ctx context.Context, recipientID string, t notifdomain.Type, entityID string) error
}

// SessionDeps 所有 session 共用的依賴，Notifications 與 Viewing 可為 nil
type SessionDeps struct {
	Chat          MessageService
	Feed          repository.EventFeed
	Presence      repository.PresenceRepository
	Viewing       repository.ViewingRepository
	Auth          Authenticator
	Notifications NotificationReader
	QuickRooms    domain.QuickRooms
	PageSize      int64
	// PresenceTTL 其他 member 超過此時間沒刷新即視為離線
	PresenceTTL time.Duration
	// Heartbeat 刷新 viewing key 與上線紀錄的間隔，0 不啟動
	Heartbeat time.Duration
	Now       func() time.Time
}

// SendRequest session 送出訊息
type SendRequest struct {
	ConversationID string
	RecipientID    string
	Text           string
	AttachmentURL  string
	ClientID       string
}

// SessionSnapshot 前端重整時取得的完整狀態
type SessionSnapshot struct {
	UserID      string         `json:"user_id"`
	PanelOpen   bool           `json:"panel_open"`
	Active      string         `json:"active"`
	TabHidden   bool           `json:"tab_hidden"`
	Pills       []domain.Pill  `json:"pills"`
	Unread      map[string]int `json:"unread"`
	TotalUnread int            `json:"total_unread"`
	Online      []string       `json:"online"`
	Latched     []string       `json:"latched,omitempty"`
}

type roomSub struct {
	sub domain.Subscription
	gen uint64
}

// Session 單一登入連線的狀態，登入時建立、登出時 Close
// 所有狀態變更都在 mu 之下執行，subscription callback 與 websocket action 依序處理
type Session struct {
	mu sync.Mutex

	userID      string
	displayName string
	deps        SessionDeps
	emit   EffectSink

	windows  *WindowManager
	view     *ViewState
	ledger   *UnreadLedger
	store    *ConversationStore
	watcher  *IncomingWatcher
	presence *PresenceTracker

	ctx         context.Context
	cancel      context.CancelFunc
	rooms       map[string]roomSub
	gen         uint64
	latches     map[string]struct{}
	lastViewing string
	started     bool
	closed      bool
}

// NewSession create Session
func NewSession(userID, displayName string, deps SessionDeps, emit EffectSink) *Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.PageSize <= 0 {
		deps.PageSize = defaultPageSize
	}
	if deps.QuickRooms == nil {
		deps.QuickRooms = domain.NewQuickRooms(nil)
	}
	if emit == nil {
		emit = EffectFunc(func(domain.Action, map[string]interface{}) {})
	}

	if displayName == "" {
		displayName = userID
	}

	s := &Session{
		userID:      userID,
		displayName: displayName,
		deps:        deps,
		emit:        emit,
		rooms:       make(map[string]roomSub),
		latches:     make(map[string]struct{}),
		ctx:         context.Background(),
	}
	s.windows = NewWindowManager()
	s.view = NewViewState(s.windows)
	s.ledger = NewUnreadLedger(userID, s.view, deps.Chat, func(id string, count, total int) {
		s.emit.Emit(domain.EffectBadge, map[string]interface{}{
			"conversation_id": id,
			"count":           count,
			"total":           total,
		})
	})
	s.store = NewConversationStore(userID)
	s.watcher = newIncomingWatcher(WatcherConfig{
		UserID:  userID,
		Feed:    deps.Feed,
		Reader:  deps.Chat,
		Ledger:  s.ledger,
		Oracle:  s.view,
		Windows: s.windows,
		Emit:    emit,
		Lock:    &s.mu,
		Now:     deps.Now,
	}, s, s)

	s.presence = newPresenceTracker(domain.Presence{UserID: userID, DisplayName: displayName},
		deps.Presence, deps.Feed, emit, &s.mu, s, deps.Now, deps.PresenceTTL)
	return s
}

// UserID session 擁有者
func (s *Session) UserID() string {
	return s.userID
}

// Start 寫入上線、訂閱上線名單、啟動 incoming watcher
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return nil
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	metrics.SessionOpened()

	var errs []error
	if s.deps.Presence != nil {
		if err := s.presence.start(s.ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.watcher.start(s.ctx); err != nil {
		errs = append(errs, err)
	}
	if s.deps.Heartbeat > 0 {
		go s.keepAlive(s.ctx, s.deps.Heartbeat)
	}
	logger.Log.Info("chat session started", zap.String("user_id", s.userID))
	return errors.Join(errs...)
}

// Close 每個訂閱只取消一次，重複呼叫為 no-op
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	for id, r := range s.rooms {
		r.sub.Unsubscribe()
		delete(s.rooms, id)
	}
	s.watcher.stop()
	s.presence.stop(ctx)
	if s.deps.Viewing != nil {
		if err := s.deps.Viewing.Clear(ctx, s.userID); err != nil {
			logger.Log.Warn("clear viewing", zap.String("user_id", s.userID), zap.Error(err))
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.started {
		metrics.SessionClosed()
	}
	logger.Log.Info("chat session closed", zap.String("user_id", s.userID))
}

// Heartbeat 刷新 viewing key 與自己的上線紀錄，移除過期的上線 member
func (s *Session) Heartbeat(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.closed {
		return
	}
	s.refreshViewing(ctx)
	if s.deps.Presence != nil {
		s.presence.refresh(ctx)
	}
}

func (s *Session) keepAlive(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Heartbeat(ctx)
		}
	}
}

// OpenLauncher 開啟聊天面板
func (s *Session) OpenLauncher(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows.OpenLauncher()
	s.afterWindowChange(ctx)
}

// ClosePanel 關閉聊天面板
func (s *Session) ClosePanel(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows.ClosePanel()
	s.afterWindowChange(ctx)
}

// SelectConversation 開啟聊天室：訂閱、未讀歸零、訊息與通知已讀
func (s *Session) SelectConversation(ctx context.Context, id, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		return s.reject(errprocess.Validation("select conversation", "conversation id is required"))
	}
	if s.latched(id) {
		return s.reject(errprocess.Wrap(errprocess.ErrPermissionDenied, "select conversation", nil))
	}
	if err := s.windows.Select(id, label); err != nil {
		return s.reject(err)
	}
	s.focus(ctx, id, false)
	return nil
}

// Minimize 目前的聊天室縮小為 pill，之後的訊息會計入未讀
func (s *Session) Minimize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.windows.Minimize(); err != nil {
		return s.reject(err)
	}
	s.afterWindowChange(ctx)
	return nil
}

// ReopenPill 點擊 pill 重新開啟，停止閃爍並清除未讀，分頁隱藏時也一樣
func (s *Session) ReopenPill(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.windows.Reopen(id); err != nil {
		return s.reject(err)
	}
	s.focus(ctx, id, true)
	return nil
}

// CloseConversation 只關閉 UI，訂閱與資料保留
func (s *Session) CloseConversation(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows.Close(id)
	s.afterWindowChange(ctx)
}

// SetTabHidden 分頁顯示時若聊天室變為可見，立即清除其未讀
func (s *Session) SetTabHidden(ctx context.Context, hidden bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SetTabHidden(hidden)
	if err := s.presence.setAway(ctx, hidden); err != nil {
		logger.Log.Warn("set away", zap.String("user_id", s.userID), zap.Error(err))
	}
	if active := s.windows.Active(); s.view.IsConversationVisible(active) {
		s.markSeen(ctx, active)
	}
	s.afterWindowChange(ctx)
}

// SendMessage 先放 placeholder，釋放 lock 寫入後再確認；事件可能比寫入結果先到
func (s *Session) SendMessage(ctx context.Context, req SendRequest) (domain.Message, error) {
	in := SendInput{
		SenderID:       s.userID,
		SenderName:     s.displayName,
		ConversationID: req.ConversationID,
		RecipientID:    req.RecipientID,
		Text:           req.Text,
		AttachmentURL:  req.AttachmentURL,
		ClientID:       req.ClientID,
	}

	s.mu.Lock()
	convID, err := ValidateSend(in, s.deps.QuickRooms)
	if err != nil {
		s.mu.Unlock()
		return domain.Message{}, s.rejectLocked(err)
	}
	if s.latched(convID) {
		s.mu.Unlock()
		return domain.Message{}, s.rejectLocked(errprocess.Wrap(errprocess.ErrPermissionDenied, "send message", nil))
	}
	if in.ClientID == "" {
		in.ClientID = uuid.New().String()
	}
	in.ConversationID = convID

	if _, err := s.ensureRoom(ctx, convID); err != nil {
		logger.Log.Warn("open conversation before send", zap.String("conversation_id", convID), zap.Error(err))
	}
	placeholder := domain.Message{
		ClientID:       in.ClientID,
		ConversationID: convID,
		SenderID:       s.userID,
		Text:           in.Text,
		AttachmentURL:  in.AttachmentURL,
		CreatedAt:      s.deps.Now().UTC(),
	}
	if !s.deps.QuickRooms.Has(convID) {
		placeholder.RecipientID = in.RecipientID
	}
	s.store.AddPending(placeholder)
	s.emitSendState(in.ClientID, convID, domain.SendPending, nil)
	s.emitMessages(convID)
	s.mu.Unlock()

	msg, sendErr := s.deps.Chat.Send(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if sendErr != nil {
		if s.store.Fail(in.ClientID, sendErr) {
			s.emitSendState(in.ClientID, convID, domain.SendFailed, sendErr)
		}
		s.fail(convID, "send message", sendErr)
		return domain.Message{}, sendErr
	}
	if s.store.Confirm(in.ClientID, msg) {
		s.emitMessages(convID)
	}
	if state, ok := s.store.SendState(in.ClientID); ok && state == domain.SendConfirmed {
		s.emitSendState(in.ClientID, convID, domain.SendConfirmed, nil)
	}
	return msg, nil
}

// SendAttachment 附件 url 由 /chat/attachments 上傳後取得
func (s *Session) SendAttachment(ctx context.Context, conversationID, recipientID, url, clientID string) (domain.Message, error) {
	if url == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		return domain.Message{}, s.reject(errprocess.Validation("send attachment", "attachment url is required"))
	}
	return s.SendMessage(ctx, SendRequest{
		ConversationID: conversationID,
		RecipientID:    recipientID,
		AttachmentURL:  url,
		ClientID:       clientID,
	})
}

// LoadOlder 以最舊一則的 created_at 為游標往前翻頁
func (s *Session) LoadOlder(ctx context.Context, id string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latched(id) {
		return nil, s.reject(errprocess.Wrap(errprocess.ErrPermissionDenied, "load older", nil))
	}

	var (
		page []domain.Message
		err  error
	)
	if oldest, ok := s.store.Oldest(id); ok {
		page, err = s.deps.Chat.Before(ctx, id, oldest, s.deps.PageSize)
	} else {
		page, err = s.deps.Chat.Latest(ctx, id, s.deps.PageSize)
	}
	if err != nil {
		s.fail(id, "load older", err)
		return nil, err
	}
	s.store.Merge(id, page)
	s.emitMessages(id)
	return page, nil
}

// DeleteMessage 重新驗證密碼後刪除自己送出的訊息
func (s *Session) DeleteMessage(ctx context.Context, messageID, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reauthenticate(ctx, password); err != nil {
		return err
	}

	msg, err := s.deps.Chat.Delete(ctx, s.userID, messageID)
	if err != nil {
		s.fail(msg.ResolveConversationID(), "delete message", err)
		return err
	}
	convID := msg.ResolveConversationID()
	if s.store.Apply(domain.Event{
		Type:    domain.EventMessageRemoved,
		Removed: &domain.MessageRef{ConversationID: convID, ID: messageID},
	}) {
		s.emitMessages(convID)
	}
	return nil
}

// DeleteConversation 重新驗證後依序：取消訂閱、清空訊息保留摘要、發布、未讀歸零、移除視窗、清 cache
func (s *Session) DeleteConversation(ctx context.Context, id, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		return s.reject(errprocess.Validation("delete conversation", "conversation id is required"))
	}
	if err := s.reauthenticate(ctx, password); err != nil {
		return err
	}

	if r, ok := s.rooms[id]; ok {
		r.sub.Unsubscribe()
		delete(s.rooms, id)
	}
	if err := s.deps.Chat.ClearConversation(ctx, s.userID, id); err != nil {
		s.fail(id, "delete conversation", err)
		return err
	}
	s.ledger.Clear(ctx, id)
	s.windows.Remove(id)
	s.store.Drop(id)

	s.afterWindowChange(ctx)
	s.emitMessages(id)
	logger.Log.Info("conversation deleted", zap.String("user_id", s.userID), zap.String("conversation_id", id))
	return nil
}

// ListConversations 重新載入聊天室列表
func (s *Session) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.deps.Chat.ListConversations(ctx, s.userID)
	if err != nil {
		s.fail(ScopeIncoming, "list conversations", err)
		return nil, err
	}
	s.store.SetConversations(list)
	return s.store.Conversations(), nil
}

// SearchConversations 模糊搜尋已載入的聊天室
func (s *Session) SearchConversations(query string) []domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Search(query, s.label)
}

// Messages 目前 cache 內的訊息
func (s *Session) Messages(id string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Messages(id)
}

// Snapshot 目前的視窗、未讀與上線狀態
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		UserID:      s.userID,
		PanelOpen:   s.windows.PanelOpen(),
		Active:      s.windows.Active(),
		TabHidden:   s.view.TabHidden(),
		Pills:       s.windows.Pills(),
		Unread:      s.ledger.Snapshot(),
		TotalUnread: s.ledger.Total(),
		Online:      s.presence.Online(),
	}
	for scope := range s.latches {
		snap.Latched = append(snap.Latched, scope)
	}
	return snap
}

// IsConversationVisible 測試與 handler 使用
func (s *Session) IsConversationVisible(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.IsConversationVisible(id)
}

// ensureRoom implements roomOpener
func (s *Session) ensureRoom(ctx context.Context, id string) (map[string]struct{}, error) {
	if _, ok := s.rooms[id]; ok {
		return nil, nil
	}
	if s.closed {
		return nil, nil
	}
	if s.latched(id) {
		return nil, errprocess.Wrap(errprocess.ErrPermissionDenied, "open conversation", nil)
	}

	s.gen++
	gen := s.gen
	sub, err := s.deps.Feed.Subscribe(s.ctx, repository.RoomChannel(id), func(ev domain.Event) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if r, ok := s.rooms[id]; !ok || r.gen != gen || s.closed {
			return
		}
		s.applyRoomEvent(id, ev)
	})
	if err != nil {
		s.fail(id, "subscribe conversation", err)
		return nil, err
	}

	msgs, err := s.deps.Chat.Latest(ctx, id, s.deps.PageSize)
	if err != nil {
		sub.Unsubscribe()
		s.fail(id, "load conversation", err)
		return nil, err
	}
	s.rooms[id] = roomSub{sub: sub, gen: gen}

	s.store.Merge(id, msgs)
	s.ledger.ReconcileInitial(id, msgs)
	covered := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		covered[m.ID] = struct{}{}
	}
	s.watcher.markNotified(covered)
	s.emitMessages(id)
	return covered, nil
}

func (s *Session) applyRoomEvent(id string, ev domain.Event) {
	metrics.ChatEvent(string(ev.Type))
	if ev.ConversationID() != id {
		return
	}
	changed := s.store.Apply(ev)

	switch ev.Type {
	case domain.EventMessageAdded:
		if s.view.IsConversationVisible(id) {
			s.refreshViewing(s.ctx)
		}
		s.watcher.observe(s.ctx, *ev.Message)
	case domain.EventConversationCleared:
		if ev.Cleared.ClearedBy != s.userID {
			s.ledger.Clear(s.ctx, id)
		}
	}
	if changed {
		s.emitMessages(id)
	}
}

// focus 開啟聊天室後的共同流程，force 時不論是否可見都清除未讀
func (s *Session) focus(ctx context.Context, id string, force bool) {
	if _, err := s.ensureRoom(ctx, id); err != nil {
		logger.Log.Warn("open conversation", zap.String("conversation_id", id), zap.Error(err))
	}
	if force || s.view.IsConversationVisible(id) {
		s.markSeen(ctx, id)
	}
	s.afterWindowChange(ctx)
	s.emitMessages(id)
}

// markSeen 未讀歸零、訊息與通知已讀
func (s *Session) markSeen(ctx context.Context, id string) {
	s.ledger.Clear(ctx, id)
	if err := s.deps.Chat.MarkConversationRead(ctx, id, s.userID); err != nil {
		s.fail(id, "mark conversation read", err)
	}
	if s.deps.Notifications != nil {
		t := notifdomain.TypeDirectChat
		if s.deps.QuickRooms.Has(id) {
			t = notifdomain.TypeGroupChat
		}
		if err := s.deps.Notifications.MarkEntityRead(ctx, s.userID, t, id); err != nil {
			logger.Log.Warn("mark notification read", zap.String("conversation_id", id), zap.Error(err))
		}
	}
}

// afterWindowChange 發布目前看著的聊天室並推送 pill
func (s *Session) afterWindowChange(ctx context.Context) {
	entity := s.view.ViewingEntity()
	if s.deps.Viewing != nil && entity != s.lastViewing {
		if err := s.deps.Viewing.SetViewing(ctx, s.userID, entity); err != nil {
			logger.Log.Warn("set viewing", zap.String("user_id", s.userID), zap.Error(err))
		} else {
			s.lastViewing = entity
		}
	}
	s.emit.Emit(domain.EffectPills, map[string]interface{}{
		"panel_open": s.windows.PanelOpen(),
		"active":     s.windows.Active(),
		"pills":      s.windows.Pills(),
	})
}

// refreshViewing 重寫 viewing key 延長 TTL，失敗的寫入在下次重試
func (s *Session) refreshViewing(ctx context.Context) {
	if s.deps.Viewing == nil {
		return
	}
	entity := s.view.ViewingEntity()
	if entity == "" && s.lastViewing == "" {
		return
	}
	if err := s.deps.Viewing.SetViewing(ctx, s.userID, entity); err != nil {
		logger.Log.Warn("refresh viewing", zap.String("user_id", s.userID), zap.Error(err))
		return
	}
	s.lastViewing = entity
}

func (s *Session) reauthenticate(ctx context.Context, password string) error {
	if err := s.deps.Auth.Reauthenticate(ctx, s.userID, password); err != nil {
		// 資料庫暫時失敗不是密碼錯誤
		err = errprocess.Classify("reauthenticate", err)
		if !errors.Is(err, errprocess.ErrReauthFailed) && !errors.Is(err, errprocess.ErrTransient) {
			err = errprocess.Wrap(errprocess.ErrReauthFailed, "reauthenticate", err)
		}
		return s.reject(err)
	}
	return nil
}

// latched implements scopeGuard
func (s *Session) latched(scope string) bool {
	_, ok := s.latches[scope]
	return ok
}

// fail implements scopeGuard：記 log、權限錯誤鎖定 scope、轉成 toast
func (s *Session) fail(scope, op string, err error) {
	err = errprocess.Classify(op, err)
	if errors.Is(err, errprocess.ErrPermissionDenied) && scope != "" {
		s.latches[scope] = struct{}{}
	}
	logger.Log.Error(op, zap.String("user_id", s.userID), zap.String("scope", scope), zap.Error(err))
	s.toast(scope, err)
}

// reject 本地驗證或狀態錯誤，只轉成 toast
func (s *Session) reject(err error) error {
	s.toast("", err)
	return err
}

// rejectLocked 在 lock 之外呼叫 reject
func (s *Session) rejectLocked(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reject(err)
}

func (s *Session) toast(scope string, err error) {
	s.emit.Emit(domain.EffectToast, map[string]interface{}{
		"scope": scope,
		"kind":  errorKindName(err),
		"error": err.Error(),
	})
}

func (s *Session) emitMessages(id string) {
	s.emit.Emit(domain.EffectMessages, map[string]interface{}{
		"conversation_id": id,
		"messages":        s.store.Messages(id),
	})
}

func (s *Session) emitSendState(clientID, convID string, state domain.SendState, err error) {
	payload := map[string]interface{}{
		"client_id":       clientID,
		"conversation_id": convID,
		"state":           state,
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.emit.Emit(domain.EffectSendState, payload)
}

func (s *Session) label(c domain.Conversation) string {
	if l := s.windows.Label(c.ID); l != "" {
		return l
	}
	if peer := c.Peer(s.userID); peer != "" {
		return peer
	}
	return c.ID
}
